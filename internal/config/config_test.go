package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(wd)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultModel() != "gemini-1.5-flash" {
		t.Fatalf("unexpected default model %q", cfg.DefaultModel())
	}
	if cfg.Providers["gemini"].APIKey != "env-key" {
		t.Fatalf("expected api key from environment")
	}
	if cfg.BasicConfig.MinWorkers != 2 || cfg.BasicConfig.MaxWorkers != 8 || cfg.BasicConfig.WorkerIdleTimeout() != time.Minute {
		t.Fatalf("unexpected worker defaults %+v", cfg.BasicConfig)
	}
	if cfg.Asset.PollInterval() != 10*time.Second {
		t.Fatalf("unexpected poll interval %s", cfg.Asset.PollInterval())
	}
	if got := cfg.Mode("pdf"); got.ResponseMIMEType != "text/plain" || got.Timeout() != 0 {
		t.Fatalf("unexpected pdf mode options: %+v", got)
	}
	if got := cfg.Mode("video"); got.Timeout() != 600*time.Second || got.ResponseMIMEType != "" {
		t.Fatalf("unexpected video mode options: %+v", got)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestLoadFileOverridesAndResolvesSqlitePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
		"basic_config": {"server_address": ":9999"},
		"providers": {"gemini": {"api_key": "file-key"}, "openai": {"model": "gpt-4o-mini"}},
		"models": [{"name": "gemini-1.5-pro", "provider": "gemini"}, {"name": "gpt-4o-mini", "provider": "openai"}],
		"modes": {"image": {"timeout_seconds": 0}},
		"asset": {"unknown_mime_policy": "sniff"},
		"databases": {"sqlite3": {"dsn": "local.db"}}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "openai-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9999" {
		t.Fatalf("server address not loaded")
	}
	if cfg.Providers["gemini"].APIKey != "file-key" {
		t.Fatalf("file api key should survive empty env")
	}
	if cfg.Providers["openai"].APIKey != "openai-env" {
		t.Fatalf("openai key not taken from env")
	}
	if cfg.DefaultModel() != "gemini-1.5-pro" {
		t.Fatalf("unexpected default model %q", cfg.DefaultModel())
	}
	if cfg.Mode("image").Timeout() != 0 {
		t.Fatalf("explicit image mode override lost")
	}
	if cfg.Mode("audio").Timeout() != 600*time.Second {
		t.Fatalf("missing modes should get defaults")
	}
	if want := filepath.Join(dir, "local.db"); cfg.Databases["sqlite3"].DSN != want {
		t.Fatalf("sqlite dsn = %q, want %q", cfg.Databases["sqlite3"].DSN, want)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Asset.UnknownMIMEPolicy = "guess"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected policy error")
	}

	cfg = Default()
	cfg.Models = append(cfg.Models, cfg.Models[0])
	cfg.Models[len(cfg.Models)-1].Provider = "mistral"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unconfigured provider error")
	}

	cfg = Default()
	cfg.Modes["slides"] = ModeConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown mode error")
	}
}
