package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func baseEnv(t *testing.T) {
	t.Helper()
	withEnv(t, "OPENAI_API_KEY", "sk-test")
	withEnv(t, "WP_URL", "https://exemplu.ro")
	withEnv(t, "WP_USER", "editor")
	withEnv(t, "WP_APP_PASSWORD", "secret")
	Reset()
	t.Cleanup(Reset)
}

func TestLoadDefaults(t *testing.T) {
	baseEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.Model != "gpt-4.1-mini" {
		t.Errorf("unexpected default model %q", cfg.OpenAI.Model)
	}
	if cfg.Quality.MetaDescriptionMin != 130 || cfg.Quality.MetaDescriptionMax != 160 {
		t.Errorf("unexpected meta bounds %d/%d", cfg.Quality.MetaDescriptionMin, cfg.Quality.MetaDescriptionMax)
	}
	if cfg.WordPress.PublishRetries != 3 || cfg.WordPress.RetryBaseMillis != 2500 {
		t.Errorf("unexpected retry defaults %+v", cfg.WordPress)
	}
	if cfg.Feeds.RomaniaMix != 0.8 {
		t.Errorf("unexpected mix %v", cfg.Feeds.RomaniaMix)
	}
	if !cfg.Links.Required || cfg.Links.MinLinks != 1 {
		t.Errorf("unexpected link defaults %+v", cfg.Links)
	}
}

func TestLoadFromFile(t *testing.T) {
	baseEnv(t)
	path := filepath.Join(t.TempDir(), "autopress.yaml")
	content := `
rewrite:
  min_words: 500
publish:
  window_enabled: true
  window_start_hour: 8
  window_end_hour: 21
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rewrite.MinWords != 500 {
		t.Errorf("expected file override, got %d", cfg.Rewrite.MinWords)
	}
	if !cfg.Publish.WindowEnabled || cfg.Publish.WindowStartHour != 8 {
		t.Errorf("unexpected publish window %+v", cfg.Publish)
	}
	// defaults still fill unset keys
	if cfg.Quality.MinWords != 350 {
		t.Errorf("expected quality default, got %d", cfg.Quality.MinWords)
	}
}

func TestValidateMissingCredentials(t *testing.T) {
	withEnv(t, "OPENAI_API_KEY", "")
	withEnv(t, "WP_URL", "")
	withEnv(t, "WP_USER", "")
	withEnv(t, "WP_APP_PASSWORD", "")
	Reset()
	t.Cleanup(Reset)

	_, err := Load("")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "openai.api_key") || !strings.Contains(err.Error(), "wordpress.base_url") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	baseEnv(t)
	path := filepath.Join(t.TempDir(), "autopress.yaml")
	if err := os.WriteFile(path, []byte("publish:\n  window_start_hour: 25\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for hour 25")
	}
}
