package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.RulesFile != ".stylegate.yml" {
		t.Errorf("Default rulesFile = %q, want %q", cfg.RulesFile, ".stylegate.yml")
	}
	if cfg.Extension != ".java" {
		t.Errorf("Default extension = %q, want %q", cfg.Extension, ".java")
	}
	if cfg.FailOn != "critical" {
		t.Errorf("Default failOn = %q, want %q", cfg.FailOn, "critical")
	}
	if cfg.LineMapping != "content" {
		t.Errorf("Default lineMapping = %q, want %q", cfg.LineMapping, "content")
	}
	if cfg.Concurrency != 1 {
		t.Errorf("Default concurrency = %d, want 1", cfg.Concurrency)
	}
	if cfg.GitHub.StatusContext != "stylegate" {
		t.Errorf("Default statusContext = %q, want %q", cfg.GitHub.StatusContext, "stylegate")
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("Default redactSecrets should be true")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("STYLEGATE_RULES", "rules/java.yml")
	t.Setenv("STYLEGATE_EXTENSION", ".kt")
	t.Setenv("STYLEGATE_FAIL_ON", "violations")
	t.Setenv("STYLEGATE_FORMAT", "json")
	t.Setenv("STYLEGATE_CONCURRENCY", "4")
	t.Setenv("STYLEGATE_DRY_RUN", "true")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/v3/")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.RulesFile != "rules/java.yml" {
		t.Errorf("RulesFile = %q, want %q", cfg.RulesFile, "rules/java.yml")
	}
	if cfg.Extension != ".kt" {
		t.Errorf("Extension = %q, want %q", cfg.Extension, ".kt")
	}
	if cfg.FailOn != "violations" {
		t.Errorf("FailOn = %q, want %q", cfg.FailOn, "violations")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
	if !cfg.GitHub.DryRun {
		t.Error("DryRun should be true")
	}
	if cfg.GitHub.APIURL != "https://ghe.example.com/api/v3/" {
		t.Errorf("APIURL = %q", cfg.GitHub.APIURL)
	}
}

func TestMergeEnv_Invalid(t *testing.T) {
	tests := []struct {
		env   string
		value string
	}{
		{"STYLEGATE_CONCURRENCY", "many"},
		{"STYLEGATE_MAX_COMMENTS", "notanumber"},
		{"STYLEGATE_CONTEXT_LINES", "abc"},
		{"STYLEGATE_DRY_RUN", "perhaps"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			cfg := Default()
			if err := mergeEnv(&cfg); err == nil {
				t.Errorf("expected error for %s=%q", tt.env, tt.value)
			}
		})
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
	}{
		{"rulesFile", "rules.json"},
		{"extension", ""},
		{"format", "sarif"},
		{"failOn", "none"},
		{"lineMapping", "file"},
		{"maxComments", "10"},
		{"contextLines", "10"},
		{"maxDiffBytes", "1000000"},
		{"include", "src/**, lib/**"},
		{"cache.enabled", "false"},
		{"privacy.redactSecrets", "false"},
		{"github.statusContext", "style/java"},
		{"storage.driver", "sqlite"},
		{"storage.dsn", "runs.db"},
		{"log.level", "debug"},
	}

	for _, tt := range tests {
		if err := SetField(&cfg, tt.key, tt.value); err != nil {
			t.Errorf("SetField(%q, %q) error: %v", tt.key, tt.value, err)
		}
	}

	if cfg.Extension != "" {
		t.Errorf("Extension = %q, want empty", cfg.Extension)
	}
	if cfg.MaxComments != 10 {
		t.Errorf("MaxComments = %d, want 10", cfg.MaxComments)
	}
	if len(cfg.Include) != 2 || cfg.Include[1] != "lib/**" {
		t.Errorf("Include = %v, want [src/** lib/**]", cfg.Include)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false")
	}
	if cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should be false")
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate = %v", err)
	}
}

func TestSetField_UnknownKey(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "nonexistent", "value"); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestSetField_InvalidInt(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "maxComments", "notanumber"); err == nil {
		t.Error("Expected error for non-integer value")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "html" }},
		{"bad failOn", func(c *Config) { c.FailOn = "high" }},
		{"bad lineMapping", func(c *Config) { c.LineMapping = "hunk" }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative maxComments", func(c *Config) { c.MaxComments = -1 }},
		{"sqlite without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql"; c.Storage.DSN = "x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"extension": ".kt", "failOn": "none", "format": "markdown"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STYLEGATE_CONFIG", path)
	t.Setenv("STYLEGATE_FAIL_ON", "violations")
	t.Setenv("STYLEGATE_FORMAT", "json")

	cfg, err := Load(map[string]string{"format": "sarif", "rulesFile": ""})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Extension != ".kt" {
		t.Errorf("Extension = %q, want %q (file)", cfg.Extension, ".kt")
	}
	if cfg.FailOn != "violations" {
		t.Errorf("FailOn = %q, want %q (env over file)", cfg.FailOn, "violations")
	}
	if cfg.Format != "sarif" {
		t.Errorf("Format = %q, want %q (flag over env)", cfg.Format, "sarif")
	}
	if cfg.RulesFile != ".stylegate.yml" {
		t.Errorf("RulesFile = %q, empty override should be ignored", cfg.RulesFile)
	}
}

func TestLoad_InvalidOverride(t *testing.T) {
	t.Setenv("STYLEGATE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))
	if _, err := Load(map[string]string{"failOn": "sometimes"}); err == nil {
		t.Error("expected error for invalid failOn")
	}
}

func TestLoadFile_FalseBooleans(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{"cache": {"enabled": false}, "privacy": {"redactSecrets": false}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STYLEGATE_CONFIG", path)

	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false when file explicitly sets it")
	}
	if cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should be false when file explicitly sets it")
	}
	if cfg.Cache.TTLSeconds != Default().Cache.TTLSeconds {
		t.Errorf("TTLSeconds = %d, absent key should keep default", cfg.Cache.TTLSeconds)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STYLEGATE_CONFIG", path)
	if _, err := LoadFile(); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg-test/stylegate" {
		t.Errorf("ConfigDir = %q, want %q", dir, "/tmp/xdg-test/stylegate")
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("STYLEGATE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath error: %v", err)
	}
	if path != "/tmp/xdg-test/stylegate/config.json" {
		t.Errorf("ConfigPath = %q, want %q", path, "/tmp/xdg-test/stylegate/config.json")
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	t.Setenv("STYLEGATE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.Extension = ".scala"
	cfg.Storage = StorageConfig{Driver: "sqlite", DSN: "/tmp/runs.db"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if loaded.Extension != ".scala" {
		t.Errorf("Extension = %q, want %q", loaded.Extension, ".scala")
	}
	if loaded.Storage.Driver != "sqlite" || loaded.Storage.DSN != "/tmp/runs.db" {
		t.Errorf("Storage = %+v", loaded.Storage)
	}
}
