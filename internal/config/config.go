// Package config resolves the layered lb configuration.
//
// Merge order, lowest priority first: hard-coded defaults, the global file
// ~/.config/lb/config.jsonc, the per-repo file <repo>/.lb/config.jsonc,
// environment variables, CLI flags. Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// RepoScope selects which Remote mechanism scopes issues to this repository.
type RepoScope string

const (
	ScopeLabel   RepoScope = "label"
	ScopeProject RepoScope = "project"
	ScopeBoth    RepoScope = "both"
)

// IsValid reports whether s is a known repo scope mode.
func (s RepoScope) IsValid() bool {
	switch s {
	case ScopeLabel, ScopeProject, ScopeBoth:
		return true
	}
	return false
}

// Config is the resolved configuration for one command invocation.
type Config struct {
	APIKey        string    `mapstructure:"api_key"`
	TeamKey       string    `mapstructure:"team_key"`
	TeamID        string    `mapstructure:"team_id"`
	RepoName      string    `mapstructure:"repo_name"`
	RepoScope     RepoScope `mapstructure:"repo_scope"`
	UseIssueTypes bool      `mapstructure:"use_issue_types"`
	CacheTTL      int       `mapstructure:"cache_ttl_seconds"`
	LocalOnly     bool      `mapstructure:"local_only"`

	// RepoRoot is the directory the .lb state dir lives under. It is
	// derived, never configured.
	RepoRoot string `mapstructure:"-"`
}

// DefaultCacheTTLSeconds is the freshness window for EnsureFresh.
const DefaultCacheTTLSeconds = 120

// LbDir returns the repo-local state directory <repo>/.lb.
func (c *Config) LbDir() string {
	return filepath.Join(c.RepoRoot, ".lb")
}

// DatabasePath returns the cache database path.
func (c *Config) DatabasePath() string { return filepath.Join(c.LbDir(), "cache.db") }

// PIDPath returns the worker PID file path.
func (c *Config) PIDPath() string { return filepath.Join(c.LbDir(), "sync.pid") }

// LogPath returns the worker log file path.
func (c *Config) LogPath() string { return filepath.Join(c.LbDir(), "sync.log") }

// JSONLPath returns the canonical snapshot path.
func (c *Config) JSONLPath() string { return filepath.Join(c.LbDir(), "issues.jsonl") }

// ImportMapPath returns the import identifier-map path.
func (c *Config) ImportMapPath() string { return filepath.Join(c.LbDir(), "import-map.jsonl") }

// GlobalDir returns the global configuration directory (~/.config/lb).
func GlobalDir() (string, error) {
	if dir := os.Getenv("LB_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving user config dir: %w", err)
	}
	return filepath.Join(base, "lb"), nil
}

// Load resolves the configuration for the repository containing (or given by)
// startDir. Flags may be nil when the caller has no flag layer.
func Load(startDir string, flags *pflag.FlagSet) (*Config, error) {
	root := FindRepoRoot(startDir)

	v := viper.New()
	v.SetDefault("repo_scope", string(ScopeLabel))
	v.SetDefault("use_issue_types", true)
	v.SetDefault("cache_ttl_seconds", DefaultCacheTTLSeconds)
	v.SetDefault("local_only", false)

	globalDir, err := GlobalDir()
	if err == nil {
		if err := mergeConfigFile(v, globalDir); err != nil {
			return nil, err
		}
	}
	if err := mergeConfigFile(v, filepath.Join(root, ".lb")); err != nil {
		return nil, err
	}

	// Environment layer. LINEAR_API_KEY is the historical credential name;
	// everything else is LB_-prefixed.
	bindEnv(v, "api_key", "LINEAR_API_KEY")
	bindEnv(v, "team_key", "LB_TEAM_KEY")
	bindEnv(v, "team_id", "LB_TEAM_ID")
	bindEnv(v, "repo_name", "LB_REPO_NAME")

	if flags != nil {
		for flagName, key := range map[string]string{
			"team":       "team_key",
			"local-only": "local_only",
		} {
			if f := flags.Lookup(flagName); f != nil && f.Changed {
				v.Set(key, f.Value.String())
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	cfg.RepoRoot = root

	if cfg.RepoScope == "" {
		cfg.RepoScope = ScopeLabel
	}
	if !cfg.RepoScope.IsValid() {
		return nil, fmt.Errorf("invalid repo_scope %q (want label, project, both)", cfg.RepoScope)
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTLSeconds
	}
	if cfg.RepoName == "" {
		cfg.RepoName = DeriveRepoName(root)
	}
	return cfg, nil
}

func bindEnv(v *viper.Viper, key, env string) {
	if val := os.Getenv(env); val != "" {
		v.Set(key, val)
	}
}

// mergeConfigFile merges config.jsonc (preferred), config.json, config.yaml,
// or config.toml from dir into v. Missing files are not an error.
func mergeConfigFile(v *viper.Viper, dir string) error {
	for _, name := range []string{"config.jsonc", "config.json"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path) // #nosec G304 - well-known config locations
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		v.SetConfigType("json")
		if err := v.MergeConfig(strings.NewReader(StripJSONComments(string(data)))); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}

	if path := filepath.Join(dir, "config.yaml"); fileExists(path) {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}

	if path := filepath.Join(dir, "config.toml"); fileExists(path) {
		raw := map[string]interface{}{}
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if err := v.MergeConfigMap(raw); err != nil {
			return fmt.Errorf("merging %s: %w", path, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteGlobal persists key/value pairs into the global config.jsonc, creating
// the directory if needed. Existing keys not in updates are preserved. The
// file is written mode 0600 because it holds the API credential.
func WriteGlobal(updates map[string]interface{}) error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	path := filepath.Join(dir, "config.jsonc")

	existing := map[string]interface{}{}
	if data, err := os.ReadFile(path); err == nil { // #nosec G304
		_ = decodeJSONC(data, &existing)
	}
	for k, val := range updates {
		if val == nil {
			delete(existing, k)
		} else {
			existing[k] = val
		}
	}

	data, err := encodeJSON(existing)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
