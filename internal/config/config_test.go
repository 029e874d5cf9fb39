package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "TAX_RATE", "AI_TIMEOUT", "AI_HISTORY_WINDOW", "OPENAI_MODEL", "BANK_ACCOUNT_NUMBER"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	if cfg.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Port)
	}
	if cfg.TaxRate != 0.19 {
		t.Errorf("expected tax 0.19, got %v", cfg.TaxRate)
	}
	if cfg.AITimeout != 20*time.Second || cfg.AIHistoryWindow != 10 {
		t.Errorf("unexpected AI defaults: %s / %d", cfg.AITimeout, cfg.AIHistoryWindow)
	}
	if cfg.OpenAIModel != "gpt-3.5-turbo" {
		t.Errorf("unexpected model %q", cfg.OpenAIModel)
	}
	if cfg.BankAccountNumber != "31000008050" {
		t.Errorf("unexpected account %q", cfg.BankAccountNumber)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("TAX_RATE", "0.05")
	t.Setenv("SESSION_TTL", "90m")
	t.Setenv("MAX_RETRIES", "not-a-number")

	cfg := Load()
	if cfg.Port != 8081 || cfg.TaxRate != 0.05 || cfg.SessionTTL != 90*time.Minute {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("invalid int should fall back, got %d", cfg.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.TaxRate = 1.19
	cfg.AIHistoryWindow = 0
	cfg.WhatsAppAccessToken = "token"
	cfg.WhatsAppPhoneNumberID = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation errors")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("# local\nDOTENV_TEST_KEY=from-file\nDOTENV_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOTENV_TEST_KEEP", "from-env")
	t.Cleanup(func() { os.Unsetenv("DOTENV_TEST_KEY") })

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("DOTENV_TEST_KEY"); got != "from-file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("DOTENV_TEST_KEEP"); got != "from-env" {
		t.Errorf("environment must win, got %q", got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}
