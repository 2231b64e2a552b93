package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Telegram.APIBaseURL != "https://api.telegram.org" {
		t.Errorf("expected default API base https://api.telegram.org, got %s", cfg.Telegram.APIBaseURL)
	}

	if cfg.Telegram.PollTimeout != 50*time.Second {
		t.Errorf("expected poll timeout 50s, got %v", cfg.Telegram.PollTimeout)
	}

	if cfg.Ops.Host != "127.0.0.1" {
		t.Errorf("expected ops host 127.0.0.1, got %s", cfg.Ops.Host)
	}

	if cfg.Ops.Port != 18890 {
		t.Errorf("expected ops port 18890, got %d", cfg.Ops.Port)
	}

	if cfg.Audit.Enabled {
		t.Error("expected audit to be disabled by default")
	}

	if cfg.Audit.Topic != "pledgegate.audit" {
		t.Errorf("expected audit topic pledgegate.audit, got %s", cfg.Audit.Topic)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	origHome := os.Getenv("HOME")
	os.Setenv("HOME", "/tmp/nonexistent-pledgegate-test")
	defer os.Setenv("HOME", origHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.PollTimeout != 50*time.Second {
		t.Errorf("expected poll timeout 50s, got %v", cfg.Telegram.PollTimeout)
	}
	if cfg.Telegram.RequestTimeout <= cfg.Telegram.PollTimeout {
		t.Errorf("expected request timeout above poll timeout, got %v", cfg.Telegram.RequestTimeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, ".pledgegate")
	os.MkdirAll(configDir, 0755)
	configFile := filepath.Join(configDir, "config.json")

	configJSON := `{
		"telegram": {
			"token": "123456:test-token"
		},
		"ops": {
			"port": 9999
		}
	}`
	os.WriteFile(configFile, []byte(configJSON), 0600)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", origHome)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "123456:test-token" {
		t.Errorf("expected token from file, got %q", cfg.Telegram.Token)
	}
	if cfg.Ops.Port != 9999 {
		t.Errorf("expected ops port 9999, got %d", cfg.Ops.Port)
	}
	// Untouched sections keep their defaults.
	if cfg.Store.Path == "" {
		t.Error("expected store path default to survive partial file")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, ".pledgegate")
	os.MkdirAll(configDir, 0755)
	configFile := filepath.Join(configDir, "config.json")
	os.WriteFile(configFile, []byte(`{"telegram": {"token": "from-file"}}`), 0600)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	os.Setenv("PLEDGEGATE_TELEGRAM_TOKEN", "from-env")
	defer func() {
		os.Setenv("HOME", origHome)
		os.Unsetenv("PLEDGEGATE_TELEGRAM_TOKEN")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Telegram.Token != "from-env" {
		t.Errorf("expected env to override file, got %q", cfg.Telegram.Token)
	}
}

func TestLoadSubstitutesEnvPlaceholders(t *testing.T) {
	tmpDir := t.TempDir()
	configDir := filepath.Join(tmpDir, ".pledgegate")
	os.MkdirAll(configDir, 0755)
	configFile := filepath.Join(configDir, "config.json")
	os.WriteFile(configFile, []byte(`{"notify": {"slackWebhookUrl": "${PG_TEST_WEBHOOK}"}}`), 0600)

	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	os.Setenv("PG_TEST_WEBHOOK", "https://hooks.example.com/T000")
	defer func() {
		os.Setenv("HOME", origHome)
		os.Unsetenv("PG_TEST_WEBHOOK")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Notify.SlackWebhookURL != "https://hooks.example.com/T000" {
		t.Errorf("expected substituted webhook URL, got %q", cfg.Notify.SlackWebhookURL)
	}
}

func TestTokenFallbackEnv(t *testing.T) {
	origHome := os.Getenv("HOME")
	os.Setenv("HOME", t.TempDir())
	os.Setenv("TELEGRAM_BOT_TOKEN", "999:fallback")
	defer func() {
		os.Setenv("HOME", origHome)
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telegram.Token != "999:fallback" {
		t.Errorf("expected TELEGRAM_BOT_TOKEN fallback, got %q", cfg.Telegram.Token)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	origHome := os.Getenv("HOME")
	os.Setenv("HOME", tmpDir)
	defer os.Setenv("HOME", origHome)

	cfg := DefaultConfig()
	cfg.Telegram.Token = "42:roundtrip"
	cfg.Engine.Communities = []int64{-1001234567890}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	info, err := os.Stat(filepath.Join(tmpDir, ".pledgegate", "config.json"))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 perms, got %v", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Telegram.Token != "42:roundtrip" {
		t.Errorf("expected token to survive round trip, got %q", loaded.Telegram.Token)
	}
	if len(loaded.Engine.Communities) != 1 || loaded.Engine.Communities[0] != -1001234567890 {
		t.Errorf("expected communities to survive round trip, got %v", loaded.Engine.Communities)
	}
}
