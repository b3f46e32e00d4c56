package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mohangy/azii/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "FUZZY_THRESHOLD", "FUZZY_MAX_RESULTS", "FUZZY_ENABLED", "TIMEZONE"} {
		t.Setenv(k, "")
	}

	cfg := config.Load()

	if cfg.Port != 8080 || cfg.StoreBackend != config.BackendMemory {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.FuzzyThreshold != 0.4 || cfg.FuzzyMaxResults != 200 || !cfg.FuzzyEnabled {
		t.Errorf("unexpected search defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FUZZY_THRESHOLD", "0.25")
	t.Setenv("FUZZY_ENABLED", "false")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := config.Load()

	if cfg.Port != 9090 || cfg.FuzzyThreshold != 0.25 || cfg.FuzzyEnabled {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %v", cfg.CacheTTL)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected fallback on malformed int, got %d", cfg.MaxRetries)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := config.Load()
	cfg.Port = 0
	cfg.StoreBackend = "postgres"
	cfg.FuzzyThreshold = 1.5
	cfg.AutoSyncSchedule = "whenever"
	cfg.Timezone = "Mars/Olympus"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"PORT", "STORE_BACKEND", "FUZZY_THRESHOLD", "AUTO_SYNC_SCHEDULE", "TIMEZONE"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s in %v", want, err)
		}
	}
}

func TestValidate_SupabaseNeedsCredentials(t *testing.T) {
	cfg := config.Load()
	cfg.StoreBackend = config.BackendSupabase
	cfg.SupabaseURL = ""

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "SUPABASE_URL") {
		t.Errorf("expected supabase credentials error, got %v", err)
	}
}

func TestLoadDotEnv_EnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "AZII_TEST_FROM_FILE=file\nAZII_TEST_SHARED=file\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AZII_TEST_SHARED", "env")
	t.Cleanup(func() { os.Unsetenv("AZII_TEST_FROM_FILE") })

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if os.Getenv("AZII_TEST_FROM_FILE") != "file" {
		t.Error("expected variable from file")
	}
	if os.Getenv("AZII_TEST_SHARED") != "env" {
		t.Error("expected environment to win over file")
	}
}
