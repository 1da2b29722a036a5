package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/crypto"
)

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Enabled {
		t.Error("database should be disabled by default")
	}
	if !cfg.Feed.Enabled || cfg.Feed.Stream.URL == "" {
		t.Errorf("feed should be enabled with a URL, got %+v", cfg.Feed)
	}
	if cfg.RPC.Endpoint == "" {
		t.Error("RPC endpoint should have a default")
	}

	def := bot.DefaultEngineConfig()
	if cfg.Strategy.Portfolio != def.Portfolio {
		t.Errorf("portfolio config = %+v, want defaults %+v", cfg.Strategy.Portfolio, def.Portfolio)
	}
	if cfg.Strategy.RandomSeed != nil {
		t.Error("seed should be nil without STRATEGY_RANDOM_SEED")
	}
}

func TestLoadFile_StrategyOverrides(t *testing.T) {
	t.Setenv("STRATEGY_DEFAULT", "Momentum")
	t.Setenv("STRATEGY_MAX_POSITIONS", "3")
	t.Setenv("STRATEGY_MAX_EXPOSURE_SOL", "1.5")
	t.Setenv("STRATEGY_CIRCUIT_BREAKER_COOLDOWN", "10m")
	t.Setenv("STRATEGY_CHECK_MINT_AUTHORITY", "false")
	t.Setenv("STRATEGY_RANDOM_SEED", "42")
	t.Setenv("STRATEGY_MIN_ENTRY_CONFIDENCE", "0.65")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	s := cfg.Strategy
	if s.DefaultStrategy != models.StrategyMomentumSurfing {
		t.Errorf("DefaultStrategy = %v, want momentum", s.DefaultStrategy)
	}
	if s.Portfolio.MaxConcurrentPositions != 3 {
		t.Errorf("MaxConcurrentPositions = %d, want 3", s.Portfolio.MaxConcurrentPositions)
	}
	if s.Portfolio.MaxExposureSOL != 1.5 {
		t.Errorf("MaxExposureSOL = %v, want 1.5", s.Portfolio.MaxExposureSOL)
	}
	if s.Portfolio.CircuitBreakerCooldown != 10*time.Minute {
		t.Errorf("CircuitBreakerCooldown = %v, want 10m", s.Portfolio.CircuitBreakerCooldown)
	}
	if s.FatalRisk.CheckMintAuthority {
		t.Error("CheckMintAuthority should be overridden to false")
	}
	if s.RandomSeed == nil || *s.RandomSeed != 42 {
		t.Errorf("RandomSeed = %v, want 42", s.RandomSeed)
	}
	if s.MinEntryConfidence != 0.65 {
		t.Errorf("MinEntryConfidence = %v, want 0.65", s.MinEntryConfidence)
	}
}

func TestLoadFile_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("SCANNER_INTERVAL", "soon")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("unparsable port should fall back to 8080, got %d", cfg.Server.Port)
	}
	if cfg.Scanner.Interval != 2*time.Second {
		t.Errorf("unparsable interval should fall back to default, got %v", cfg.Scanner.Interval)
	}
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"confidence above one", "STRATEGY_MIN_ENTRY_CONFIDENCE", "1.5"},
		{"per token above exposure", "STRATEGY_MAX_PER_TOKEN_SOL", "5"},
		{"zero positions", "STRATEGY_MAX_POSITIONS", "0"},
		{"dump pct above 100", "STRATEGY_MAX_CREATOR_DUMP_PCT", "150"},
		{"plain token instead of hash", "API_TOKEN_HASH", "my-token"},
		{"rpc attempts", "RPC_MAX_ATTEMPTS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadFile("")
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestLoadFile_DotEnv(t *testing.T) {
	hash, err := crypto.HashTokenWithCost("operator", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SERVER_PORT=9090\nAPI_TOKEN_HASH='" + hash + "'\nCORS_ALLOWED_ORIGINS=https://a.example, https://b.example\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	// godotenv не перезаписывает уже заданные переменные; t.Setenv вернет их после теста
	for _, k := range []string{"SERVER_PORT", "API_TOKEN_HASH", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.APITokenHash != hash {
		t.Errorf("APITokenHash = %q, want bcrypt hash", cfg.Server.APITokenHash)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("AllowedOrigins = %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoadFile_MissingDotEnv(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing env file should not fail, got %v", err)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "secret", Name: "n", SSLMode: "disable"}

	if !strings.Contains(d.DSN(), "password=secret") {
		t.Errorf("DSN should include password: %s", d.DSN())
	}
	if strings.Contains(d.DSNWithoutPassword(), "secret") {
		t.Errorf("DSNWithoutPassword leaks password: %s", d.DSNWithoutPassword())
	}
}
