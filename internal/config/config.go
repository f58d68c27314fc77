package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Config represents the stylegate configuration.
type Config struct {
	RulesFile    string        `json:"rulesFile"`
	Extension    string        `json:"extension"`
	Format       string        `json:"format"`
	FailOn       string        `json:"failOn"`
	LineMapping  string        `json:"lineMapping"`
	Concurrency  int           `json:"concurrency"`
	MaxComments  int           `json:"maxComments"`
	ContextLines int           `json:"contextLines"`
	Include      []string      `json:"include"`
	Exclude      []string      `json:"exclude"`
	MaxDiffBytes int           `json:"maxDiffBytes"`
	Cache        CacheConfig   `json:"cache"`
	Privacy      PrivacyConfig `json:"privacy"`
	GitHub       GitHubConfig  `json:"github"`
	Server       ServerConfig  `json:"server"`
	Storage      StorageConfig `json:"storage"`
	Log          LogConfig     `json:"log"`
}

// CacheConfig controls the posted-review cache.
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Dir        string `json:"dir,omitempty"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// PrivacyConfig controls redaction of matched text in reports and comments.
type PrivacyConfig struct {
	RedactSecrets bool     `json:"redactSecrets"`
	RedactPaths   []string `json:"redactPaths,omitempty"`
}

// GitHubConfig controls the GitHub collaborator.
type GitHubConfig struct {
	APIURL        string `json:"apiURL,omitempty"`
	TokenEnv      string `json:"tokenEnv"`
	StatusContext string `json:"statusContext"`
	DryRun        bool   `json:"dryRun"`
}

// ServerConfig controls the webhook server.
type ServerConfig struct {
	Addr             string `json:"addr"`
	WebhookSecretEnv string `json:"webhookSecretEnv"`
}

// StorageConfig selects where run history is kept.
type StorageConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn,omitempty"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// Accepted values for enumerated keys.
var (
	Formats      = []string{"text", "json", "markdown", "sarif", "github"}
	FailOnLevels = []string{"none", "violations", "critical"}
	LineMappings = []string{"content", "file"}
	LogFormats   = []string{"text", "json"}
	LogLevels    = []string{"debug", "info", "warn", "error"}
	Drivers      = []string{"memory", "sqlite", "postgres"}
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		RulesFile:    ".stylegate.yml",
		Extension:    ".java",
		Format:       "text",
		FailOn:       "critical",
		LineMapping:  "content",
		Concurrency:  1,
		MaxComments:  50,
		ContextLines: 3,
		Include:      []string{"**/*"},
		Exclude:      []string{"vendor/**", "**/generated/**"},
		MaxDiffBytes: 2000000,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 7 * 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		GitHub: GitHubConfig{
			TokenEnv:      "GITHUB_TOKEN",
			StatusContext: "stylegate",
		},
		Server: ServerConfig{
			Addr:             ":8080",
			WebhookSecretEnv: "STYLEGATE_WEBHOOK_SECRET",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for stylegate.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stylegate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "stylegate"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "stylegate"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "stylegate"), nil
	default:
		return filepath.Join(home, ".config", "stylegate"), nil
	}
}

// ConfigPath returns the full path to the config file. STYLEGATE_CONFIG
// overrides the platform location.
func ConfigPath() (string, error) {
	if p := os.Getenv("STYLEGATE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile returns the defaults overlaid with the config file. Keys absent
// from the file keep their defaults. A missing file is not an error.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := SetField(&cfg, key, value); err != nil {
			return Config{}, fmt.Errorf("flag %s: %w", key, err)
		}
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKeys maps environment variables to config keys.
var envKeys = []struct {
	env string
	key string
}{
	{"STYLEGATE_RULES", "rulesFile"},
	{"STYLEGATE_EXTENSION", "extension"},
	{"STYLEGATE_FORMAT", "format"},
	{"STYLEGATE_FAIL_ON", "failOn"},
	{"STYLEGATE_LINE_MAPPING", "lineMapping"},
	{"STYLEGATE_CONCURRENCY", "concurrency"},
	{"STYLEGATE_MAX_COMMENTS", "maxComments"},
	{"STYLEGATE_CONTEXT_LINES", "contextLines"},
	{"STYLEGATE_SERVER_ADDR", "server.addr"},
	{"STYLEGATE_STORAGE_DRIVER", "storage.driver"},
	{"STYLEGATE_STORAGE_DSN", "storage.dsn"},
	{"STYLEGATE_LOG_FORMAT", "log.format"},
	{"STYLEGATE_LOG_LEVEL", "log.level"},
	{"STYLEGATE_DRY_RUN", "github.dryRun"},
	{"GITHUB_API_URL", "github.apiURL"},
}

func mergeEnv(cfg *Config) error {
	for _, ek := range envKeys {
		v := os.Getenv(ek.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, ek.key, v); err != nil {
			return fmt.Errorf("%s: %w", ek.env, err)
		}
	}
	return nil
}

// Validate checks enumerated and numeric keys.
func Validate(cfg Config) error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"format", cfg.Format, Formats},
		{"failOn", cfg.FailOn, FailOnLevels},
		{"lineMapping", cfg.LineMapping, LineMappings},
		{"log.format", cfg.Log.Format, LogFormats},
		{"log.level", cfg.Log.Level, LogLevels},
		{"storage.driver", cfg.Storage.Driver, Drivers},
	}
	for _, c := range checks {
		if !contains(c.allowed, c.value) {
			return fmt.Errorf("invalid %s %q (want one of: %s)", c.key, c.value, strings.Join(c.allowed, ", "))
		}
	}
	if cfg.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if cfg.MaxComments < 0 {
		return fmt.Errorf("maxComments must not be negative, got %d", cfg.MaxComments)
	}
	if cfg.Storage.Driver != "memory" && cfg.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for driver %q", cfg.Storage.Driver)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "rulesFile":
		cfg.RulesFile = value
	case "extension":
		cfg.Extension = value
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "lineMapping":
		cfg.LineMapping = value
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "maxComments":
		return setInt(&cfg.MaxComments, key, value)
	case "contextLines":
		return setInt(&cfg.ContextLines, key, value)
	case "maxDiffBytes":
		return setInt(&cfg.MaxDiffBytes, key, value)
	case "include":
		cfg.Include = splitList(value)
	case "exclude":
		cfg.Exclude = splitList(value)
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "github.apiURL":
		cfg.GitHub.APIURL = value
	case "github.tokenEnv":
		cfg.GitHub.TokenEnv = value
	case "github.statusContext":
		cfg.GitHub.StatusContext = value
	case "github.dryRun":
		return setBool(&cfg.GitHub.DryRun, key, value)
	case "server.addr":
		cfg.Server.Addr = value
	case "server.webhookSecretEnv":
		cfg.Server.WebhookSecretEnv = value
	case "storage.driver":
		cfg.Storage.Driver = value
	case "storage.dsn":
		cfg.Storage.DSN = value
	case "log.format":
		cfg.Log.Format = value
	case "log.level":
		cfg.Log.Level = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
