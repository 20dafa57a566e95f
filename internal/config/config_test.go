package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/pflag"
)

func TestStripJSONComments(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "line comment",
			src:  "{\n  \"a\": 1 // trailing\n}",
			want: "{\n  \"a\": 1            \n}",
		},
		{
			name: "block comment",
			src:  `{"a": /* gone */ 1}`,
			want: `{"a":            1}`,
		},
		{
			name: "slashes inside strings survive",
			src:  `{"url": "https://example.com"}`,
			want: `{"url": "https://example.com"}`,
		},
		{
			name: "escaped quote does not end the string",
			src:  `{"a": "say \"hi\" // not a comment"}`,
			want: `{"a": "say \"hi\" // not a comment"}`,
		},
		{
			name: "multiline block keeps newlines",
			src:  "{\n/* one\ntwo */\n\"a\": 1\n}",
			want: "{\n      \n      \n\"a\": 1\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripJSONComments(tt.src); got != tt.want {
				t.Errorf("StripJSONComments(%q)\n got %q\nwant %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestStripJSONCommentsParses(t *testing.T) {
	src := `{
  // credential comes from auth
  "api_key": "lin_api_xyz", /* inline */
  "team_key": "ENG"
}`
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(StripJSONComments(src)), &m); err != nil {
		t.Fatalf("stripped output is not valid JSON: %v", err)
	}
	if m["api_key"] != "lin_api_xyz" || m["team_key"] != "ENG" {
		t.Errorf("unexpected values: %v", m)
	}
}

func writeRepoConfig(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ".lb")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.jsonc"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LB_CONFIG_DIR", filepath.Join(root, "noglobal"))
	t.Setenv("LINEAR_API_KEY", "")

	cfg, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RepoScope != ScopeLabel {
		t.Errorf("RepoScope = %q, want label", cfg.RepoScope)
	}
	if !cfg.UseIssueTypes {
		t.Error("UseIssueTypes = false, want true by default")
	}
	if cfg.CacheTTL != DefaultCacheTTLSeconds {
		t.Errorf("CacheTTL = %d, want %d", cfg.CacheTTL, DefaultCacheTTLSeconds)
	}
	if cfg.LocalOnly {
		t.Error("LocalOnly = true, want false by default")
	}
	if cfg.RepoName == "" {
		t.Error("RepoName empty, want directory-derived default")
	}
	if cfg.LbDir() != filepath.Join(cfg.RepoRoot, ".lb") {
		t.Errorf("LbDir = %q", cfg.LbDir())
	}
}

func TestLoadLayerPrecedence(t *testing.T) {
	root := t.TempDir()
	global := filepath.Join(root, "globalcfg")
	if err := os.MkdirAll(global, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LB_CONFIG_DIR", global)
	t.Setenv("LINEAR_API_KEY", "")
	t.Setenv("LB_TEAM_KEY", "")

	// Global layer.
	if err := os.WriteFile(filepath.Join(global, "config.jsonc"),
		[]byte(`{"api_key": "lin_api_global", "team_key": "GLB", "repo_name": "fromglobal"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	// Repo layer overrides the global file.
	writeRepoConfig(t, root, `{
  // repo-local overrides
  "team_key": "REPO",
  "repo_name": "myrepo",
  "cache_ttl_seconds": 30
}`)

	cfg, err := Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "lin_api_global" {
		t.Errorf("APIKey = %q, want the global value", cfg.APIKey)
	}
	if cfg.TeamKey != "REPO" {
		t.Errorf("TeamKey = %q, want repo layer to win", cfg.TeamKey)
	}
	if cfg.RepoName != "myrepo" || cfg.CacheTTL != 30 {
		t.Errorf("repo layer not applied: %+v", cfg)
	}

	// Environment overrides both files.
	t.Setenv("LB_TEAM_KEY", "ENV")
	cfg, err = Load(root, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TeamKey != "ENV" {
		t.Errorf("TeamKey = %q, want env layer to win", cfg.TeamKey)
	}

	// A changed CLI flag overrides everything.
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("team", "", "")
	flags.Bool("local-only", false, "")
	if err := flags.Parse([]string{"--team", "FLAG"}); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(root, flags)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TeamKey != "FLAG" {
		t.Errorf("TeamKey = %q, want flag layer to win", cfg.TeamKey)
	}
}

func TestLoadRejectsBadRepoScope(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LB_CONFIG_DIR", filepath.Join(root, "noglobal"))
	writeRepoConfig(t, root, `{"repo_scope": "teamwide"}`)

	if _, err := Load(root, nil); err == nil {
		t.Fatal("Load accepted an invalid repo_scope")
	}
}

func TestWriteGlobal(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LB_CONFIG_DIR", dir)

	if err := WriteGlobal(map[string]interface{}{"api_key": "lin_api_one", "team_key": "ENG"}); err != nil {
		t.Fatalf("WriteGlobal: %v", err)
	}
	path := filepath.Join(dir, "config.jsonc")

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Errorf("config mode = %o, want 600", info.Mode().Perm())
		}
	}

	// Updates merge; nil deletes.
	if err := WriteGlobal(map[string]interface{}{"api_key": "lin_api_two", "team_key": nil}); err != nil {
		t.Fatalf("WriteGlobal update: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	if m["api_key"] != "lin_api_two" {
		t.Errorf("api_key = %v, want replaced value", m["api_key"])
	}
	if _, ok := m["team_key"]; ok {
		t.Error("team_key survived a nil update")
	}
}

func TestRepoNameFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"git@github.com:steveyegge/lb.git", "lb"},
		{"https://github.com/steveyegge/lb", "lb"},
		{"https://github.com/steveyegge/lb.git", "lb"},
		{"ssh://git@host/owner/name.git/", "name"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RepoNameFromURL(tt.url); got != tt.want {
			t.Errorf("RepoNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
