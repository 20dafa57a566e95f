package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FindRepoRoot walks upward from startDir looking for a .git marker (directory
// or worktree file). If none is found the starting directory is returned, so
// lb still works outside version control.
func FindRepoRoot(startDir string) string {
	dir := startDir
	if dir == "" {
		dir, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}

	for cur := dir; ; {
		if _, err := os.Stat(filepath.Join(cur, ".git")); err == nil {
			return cur
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		cur = parent
	}
}

// DeriveRepoName produces the default repo name: the tail of the first git
// remote fetch URL, falling back to the directory basename.
func DeriveRepoName(repoRoot string) string {
	if name := remoteURLTail(repoRoot); name != "" {
		return name
	}
	return filepath.Base(repoRoot)
}

// remoteURLTail parses `git remote -v` output the same way the fetch/push
// pairs appear: "origin git@host:owner/name.git (fetch)".
func remoteURLTail(repoRoot string) string {
	cmd := exec.Command("git", "remote", "-v")
	cmd.Dir = repoRoot
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		if len(parts) >= 3 && !strings.Contains(parts[2], "fetch") {
			continue
		}
		if name := RepoNameFromURL(parts[1]); name != "" {
			return name
		}
	}
	return ""
}

// RepoNameFromURL extracts the repository name from a git remote URL,
// handling both scp-like (git@host:owner/name.git) and URL forms.
func RepoNameFromURL(url string) string {
	url = strings.TrimSuffix(strings.TrimSpace(url), "/")
	url = strings.TrimSuffix(url, ".git")
	if url == "" {
		return ""
	}
	idx := strings.LastIndexAny(url, "/:")
	if idx < 0 {
		return url
	}
	return url[idx+1:]
}
