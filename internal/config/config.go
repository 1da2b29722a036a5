package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/chain"
	"pumpstrategy/internal/feed"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/crypto"
	"pumpstrategy/pkg/utils"
)

// ErrInvalidConfig - общая ошибка валидации конфигурации
var ErrInvalidConfig = errors.New("invalid configuration")

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  utils.LogConfig
	Feed     FeedConfig
	RPC      chain.ClientConfig
	Scanner  feed.ScannerConfig
	Strategy bot.EngineConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port int
	Host string

	// APITokenHash - bcrypt хеш токена оператора (pkg/crypto.HashToken)
	APITokenHash   string
	AllowedOrigins []string

	ShutdownTimeout time.Duration

	// SnapshotInterval - период рассылки состояния в /ws/stream
	SnapshotInterval time.Duration
}

// Addr возвращает адрес для net/http
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig - настройки подключения к Postgres.
// Enabled=false - черный список и история создателей только в памяти.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string

	MaxOpenConns int
	MaxIdleConns int
}

// FeedConfig - поток событий и агрегатор
type FeedConfig struct {
	Enabled    bool
	Stream     feed.StreamConfig
	Aggregator feed.AggregatorConfig
}

// Load загружает .env (если есть), затем конфигурацию из переменных окружения
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile - Load с явным путем к env файлу. Отсутствие файла не ошибка.
func LoadFile(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:             getEnvAsInt("SERVER_PORT", 8080),
			Host:             getEnv("SERVER_HOST", "0.0.0.0"),
			APITokenHash:     getEnv("API_TOKEN_HASH", ""),
			AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
			ShutdownTimeout:  getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			SnapshotInterval: getEnvAsDuration("WS_SNAPSHOT_INTERVAL", 5*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			Name:         getEnv("DB_NAME", "pumpstrategy"),
			User:         getEnv("DB_USER", "pumpstrategy"),
			Password:     getEnv("DB_PASSWORD", ""),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Logging: utils.LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Output:      getEnv("LOG_OUTPUT", "stdout"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Feed:     loadFeed(),
		RPC:      loadRPC(),
		Scanner:  loadScanner(),
		Strategy: loadStrategy(),
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFeed() FeedConfig {
	stream := feed.DefaultStreamConfig()
	stream.URL = getEnv("FEED_URL", stream.URL)
	stream.InitialDelay = getEnvAsDuration("FEED_RECONNECT_DELAY", stream.InitialDelay)
	stream.MaxDelay = getEnvAsDuration("FEED_RECONNECT_MAX_DELAY", stream.MaxDelay)
	stream.MaxRetries = getEnvAsInt("FEED_MAX_RETRIES", stream.MaxRetries)
	stream.PingInterval = getEnvAsDuration("FEED_PING_INTERVAL", stream.PingInterval)

	agg := feed.DefaultAggregatorConfig()
	agg.MaxMints = getEnvAsInt("FEED_MAX_MINTS", agg.MaxMints)
	agg.IdleTTL = getEnvAsDuration("FEED_IDLE_TTL", agg.IdleTTL)
	agg.CreatorDumpPct = getEnvAsFloat("STRATEGY_MAX_CREATOR_DUMP_PCT", agg.CreatorDumpPct)

	return FeedConfig{
		Enabled:    getEnvAsBool("FEED_ENABLED", true),
		Stream:     stream,
		Aggregator: agg,
	}
}

func loadRPC() chain.ClientConfig {
	rpc := chain.DefaultClientConfig()
	rpc.Endpoint = getEnv("RPC_URL", rpc.Endpoint)
	rpc.RateLimit = getEnvAsFloat("RPC_RATE_LIMIT", rpc.RateLimit)
	rpc.Burst = getEnvAsFloat("RPC_BURST", rpc.Burst)
	rpc.Commitment = getEnv("RPC_COMMITMENT", rpc.Commitment)
	rpc.HTTP.TotalTimeout = getEnvAsDuration("RPC_TIMEOUT", rpc.HTTP.TotalTimeout)
	rpc.Retry.MaxAttempts = getEnvAsInt("RPC_MAX_ATTEMPTS", rpc.Retry.MaxAttempts)
	return rpc
}

func loadScanner() feed.ScannerConfig {
	sc := feed.DefaultScannerConfig()
	sc.Interval = getEnvAsDuration("SCANNER_INTERVAL", sc.Interval)
	sc.MinTrades = getEnvAsInt("SCANNER_MIN_TRADES", sc.MinTrades)
	sc.MaxAge = getEnvAsDuration("SCANNER_MAX_AGE", sc.MaxAge)
	sc.Cooldown = getEnvAsDuration("SCANNER_COOLDOWN", sc.Cooldown)
	return sc
}

// loadStrategy - STRATEGY_* переопределения поверх bot.DefaultEngineConfig()
func loadStrategy() bot.EngineConfig {
	c := bot.DefaultEngineConfig()

	c.Enabled = getEnvAsBool("STRATEGY_ENABLED", c.Enabled)
	if s := os.Getenv("STRATEGY_DEFAULT"); s != "" {
		c.DefaultStrategy = models.ParseTradingStrategy(strings.ToLower(s))
	}
	c.MinEntryConfidence = getEnvAsFloat("STRATEGY_MIN_ENTRY_CONFIDENCE", c.MinEntryConfidence)

	c.Sizing.BaseSizeSOL = getEnvAsFloat("STRATEGY_BASE_SIZE_SOL", c.Sizing.BaseSizeSOL)
	c.Sizing.MinSizeSOL = getEnvAsFloat("STRATEGY_MIN_SIZE_SOL", c.Sizing.MinSizeSOL)
	c.Sizing.MaxSizeSOL = getEnvAsFloat("STRATEGY_MAX_SIZE_SOL", c.Sizing.MaxSizeSOL)

	c.Portfolio.MaxConcurrentPositions = getEnvAsInt("STRATEGY_MAX_POSITIONS", c.Portfolio.MaxConcurrentPositions)
	c.Portfolio.MaxExposureSOL = getEnvAsFloat("STRATEGY_MAX_EXPOSURE_SOL", c.Portfolio.MaxExposureSOL)
	c.Portfolio.MaxPerTokenSOL = getEnvAsFloat("STRATEGY_MAX_PER_TOKEN_SOL", c.Portfolio.MaxPerTokenSOL)
	c.Portfolio.HourlyLossLimitSOL = getEnvAsFloat("STRATEGY_HOURLY_LOSS_LIMIT_SOL", c.Portfolio.HourlyLossLimitSOL)
	c.Portfolio.DailyLossLimitSOL = getEnvAsFloat("STRATEGY_DAILY_LOSS_LIMIT_SOL", c.Portfolio.DailyLossLimitSOL)
	c.Portfolio.ConsecutiveLossLimit = getEnvAsInt("STRATEGY_CONSECUTIVE_LOSS_LIMIT", c.Portfolio.ConsecutiveLossLimit)
	c.Portfolio.CircuitBreakerCooldown = getEnvAsDuration("STRATEGY_CIRCUIT_BREAKER_COOLDOWN", c.Portfolio.CircuitBreakerCooldown)

	c.FatalRisk.CheckMintAuthority = getEnvAsBool("STRATEGY_CHECK_MINT_AUTHORITY", c.FatalRisk.CheckMintAuthority)
	c.FatalRisk.CheckFreezeAuthority = getEnvAsBool("STRATEGY_CHECK_FREEZE_AUTHORITY", c.FatalRisk.CheckFreezeAuthority)
	c.FatalRisk.MaxCreatorDumpPct = getEnvAsFloat("STRATEGY_MAX_CREATOR_DUMP_PCT", c.FatalRisk.MaxCreatorDumpPct)
	c.FatalRisk.MinExitLiquiditySOL = getEnvAsFloat("STRATEGY_MIN_EXIT_LIQUIDITY_SOL", c.FatalRisk.MinExitLiquiditySOL)

	c.Exits.StopLossPct = getEnvAsFloat("STRATEGY_STOP_LOSS_PCT", c.Exits.StopLossPct)
	c.Exits.MaxHoldSecs = int64(getEnvAsInt("STRATEGY_MAX_HOLD_SECS", int(c.Exits.MaxHoldSecs)))

	c.ChainHealth.Enabled = getEnvAsBool("STRATEGY_CHAIN_HEALTH_ENABLED", c.ChainHealth.Enabled)
	c.ChainHealth.SampleInterval = getEnvAsDuration("STRATEGY_CHAIN_SAMPLE_INTERVAL", c.ChainHealth.SampleInterval)

	c.Randomization.Enabled = getEnvAsBool("STRATEGY_RANDOMIZATION_ENABLED", c.Randomization.Enabled)
	if v := os.Getenv("STRATEGY_RANDOM_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.RandomSeed = &seed
		}
	}

	c.NumShards = getEnvAsInt("STRATEGY_NUM_SHARDS", c.NumShards)
	return c
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	var verr utils.ValidationErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		verr.Add("SERVER_PORT", fmt.Sprintf("must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.APITokenHash != "" {
		verr.AddError("API_TOKEN_HASH", crypto.ValidateHash(c.Server.APITokenHash))
	}
	if c.Database.Enabled && (c.Database.Port < 1 || c.Database.Port > 65535) {
		verr.Add("DB_PORT", fmt.Sprintf("must be between 1 and 65535, got %d", c.Database.Port))
	}

	if c.RPC.Endpoint == "" {
		verr.Add("RPC_URL", "required")
	}
	if c.RPC.RateLimit <= 0 {
		verr.Add("RPC_RATE_LIMIT", "must be positive")
	}
	if c.RPC.Retry.MaxAttempts < 1 || c.RPC.Retry.MaxAttempts > 10 {
		verr.Add("RPC_MAX_ATTEMPTS", fmt.Sprintf("must be within [1, 10], got %d", c.RPC.Retry.MaxAttempts))
	}
	if c.Feed.Enabled && c.Feed.Stream.URL == "" {
		verr.Add("FEED_URL", "required when feed is enabled")
	}
	if c.Scanner.Interval <= 0 {
		verr.Add("SCANNER_INTERVAL", "must be positive")
	}

	s := c.Strategy
	if s.MinEntryConfidence < 0 || s.MinEntryConfidence > 1 {
		verr.Add("STRATEGY_MIN_ENTRY_CONFIDENCE", "must be within [0, 1]")
	}
	if s.Sizing.MinSizeSOL <= 0 || s.Sizing.MinSizeSOL > s.Sizing.MaxSizeSOL {
		verr.Add("STRATEGY_MIN_SIZE_SOL", "must be positive and not exceed STRATEGY_MAX_SIZE_SOL")
	}
	if s.Portfolio.MaxConcurrentPositions < 1 {
		verr.Add("STRATEGY_MAX_POSITIONS", "must be at least 1")
	}
	if s.Portfolio.MaxPerTokenSOL <= 0 || s.Portfolio.MaxPerTokenSOL > s.Portfolio.MaxExposureSOL {
		verr.Add("STRATEGY_MAX_PER_TOKEN_SOL", "must be positive and not exceed STRATEGY_MAX_EXPOSURE_SOL")
	}
	verr.AddError("STRATEGY_MAX_CREATOR_DUMP_PCT", utils.ValidatePercentage(s.FatalRisk.MaxCreatorDumpPct))
	verr.AddError("STRATEGY_STOP_LOSS_PCT", utils.ValidatePercentage(s.Exits.StopLossPct))
	if s.NumShards < 1 {
		verr.Add("STRATEGY_NUM_SHARDS", "must be at least 1")
	}

	if verr.HasErrors() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, verr.Error())
	}
	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения.
// Неразбираемое значение заменяется значением по умолчанию.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
