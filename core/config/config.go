package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Rotation of the bot file; zero values fall back to 20 MB and 5 backups.
	MaxSizeMB  int  `yaml:"max_size_mb"`
	MaxBackups int  `yaml:"max_backups"`
	MaxAgeDays int  `yaml:"max_age_days"`
	Compress   bool `yaml:"compress"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsDir overrides the migrations compiled into the binary.
	MigrationsDir string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// RedisConfig points the session store at a Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

// StorageConfig selects backends for purchase records and dialogue sessions.
type StorageConfig struct {
	Records  string      `yaml:"records" envconfig:"STORAGE_RECORDS"`
	Sessions string      `yaml:"sessions" envconfig:"STORAGE_SESSIONS"`
	Redis    RedisConfig `yaml:"redis"`
}

// FXConfig describes where currency rates come from.
// Rates maps a currency code to a gjson path inside the FX endpoint payload;
// Static provides fixed rates used when no endpoint is configured.
type FXConfig struct {
	Endpoint   string             `yaml:"endpoint" envconfig:"FX_ENDPOINT"`
	AuthHeader string             `yaml:"auth_header"`
	Token      string             `yaml:"token" envconfig:"FX_API_KEY"`
	Rates      map[string]string  `yaml:"rates"`
	Static     map[string]float64 `yaml:"static"`
}

// SimulatedConfig configures the offline demo price generator.
type SimulatedConfig struct {
	BaseOunce float64 `yaml:"base_ounce"`
	Jitter    float64 `yaml:"jitter"`
}

// PricingConfig configures the gold price provider.
type PricingConfig struct {
	Provider       string          `yaml:"provider" envconfig:"PRICING_PROVIDER"`
	Currency       string          `yaml:"currency"`
	Endpoint       string          `yaml:"endpoint" envconfig:"PRICING_ENDPOINT"`
	AuthHeader     string          `yaml:"auth_header"`
	Token          string          `yaml:"token" envconfig:"GOLD_API_KEY"`
	PricePath      string          `yaml:"price_path"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	CacheTTL       time.Duration   `yaml:"cache_ttl"`
	FX             FXConfig        `yaml:"fx"`
	Simulated      SimulatedConfig `yaml:"simulated"`
}

// GradeConfig declares one gold purity grade.
type GradeConfig struct {
	ID     string  `yaml:"id"`
	Label  string  `yaml:"label"`
	Purity float64 `yaml:"purity"`
}

// UnitConfig declares one mass unit and its weight in grams.
type UnitConfig struct {
	ID    string  `yaml:"id"`
	Label string  `yaml:"label"`
	Grams float64 `yaml:"grams"`
}

// CatalogConfig enumerates grades and units offered in the dialogue.
type CatalogConfig struct {
	Grades []GradeConfig `yaml:"grades"`
	Units  []UnitConfig  `yaml:"units"`
}

// ScheduleConfig describes when a recurring job fires: a list of daily
// "HH:MM" wall-clock times, or a fixed interval. Times win when both are set.
type ScheduleConfig struct {
	Times           []string `yaml:"times"`
	IntervalSeconds int      `yaml:"interval_seconds"`
	Timezone        string   `yaml:"timezone"`
}

// BroadcastConfig configures the periodic price broadcast.
type BroadcastConfig struct {
	Enabled     bool    `yaml:"enabled" envconfig:"BROADCAST_ENABLED"`
	ChatIDs     []int64 `yaml:"chat_ids" envconfig:"TELEGRAM_CHAT_ID"`
	RunOnStart  bool    `yaml:"run_on_start"`
	Annotation  string  `yaml:"annotation"`
	Concurrency int     `yaml:"concurrency"`

	Schedule ScheduleConfig `yaml:"schedule"`
}

// AlertsConfig configures the per-user profit notification sweep.
type AlertsConfig struct {
	Enabled     bool           `yaml:"enabled" envconfig:"ALERTS_ENABLED"`
	Concurrency int            `yaml:"concurrency"`
	Schedule    ScheduleConfig `yaml:"schedule"`
}

// DialogueConfig tunes the profit calculation dialogue.
type DialogueConfig struct {
	// StaleAfter discards sessions idle for longer than this; defaults to 24h.
	StaleAfter time.Duration `yaml:"stale_after"`
	// SessionTTL bounds how long Redis keeps a session key.
	SessionTTL time.Duration `yaml:"session_ttl"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

const (
	// BackendMemory keeps state in process memory.
	BackendMemory = "memory"
	// BackendPostgres stores purchase records in Postgres.
	BackendPostgres = "postgres"
	// BackendRedis stores dialogue sessions in Redis.
	BackendRedis = "redis"
)

const (
	// ProviderHTTP fetches prices from a JSON HTTP endpoint.
	ProviderHTTP = "http"
	// ProviderSimulated generates prices locally around a base value.
	ProviderSimulated = "simulated"
)

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Dialogue  DialogueConfig  `yaml:"dialogue"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeRateLimit(cfg); err != nil {
		return err
	}
	if err := normalizeStorage(cfg); err != nil {
		return err
	}
	if err := normalizePricing(cfg); err != nil {
		return err
	}
	if err := normalizeCatalog(cfg); err != nil {
		return err
	}

	if cfg.Broadcast.Enabled {
		if len(cfg.Broadcast.ChatIDs) == 0 {
			return fmt.Errorf("broadcast.chat_ids is required when broadcast is enabled")
		}
		if cfg.Broadcast.Concurrency <= 0 {
			cfg.Broadcast.Concurrency = 8
		}
		if err := validateSchedule("broadcast.schedule", &cfg.Broadcast.Schedule, 7200); err != nil {
			return err
		}
	}
	if cfg.Alerts.Enabled {
		if cfg.Alerts.Concurrency <= 0 {
			cfg.Alerts.Concurrency = 4
		}
		if err := validateSchedule("alerts.schedule", &cfg.Alerts.Schedule, 86400); err != nil {
			return err
		}
	}

	if cfg.Dialogue.StaleAfter < 0 {
		return fmt.Errorf("dialogue.stale_after must be >= 0")
	}
	if cfg.Dialogue.StaleAfter == 0 {
		cfg.Dialogue.StaleAfter = 24 * time.Hour
	}
	if cfg.Dialogue.SessionTTL <= 0 {
		cfg.Dialogue.SessionTTL = cfg.Dialogue.StaleAfter
	}
	return nil
}

func normalizeRunMode(cfg *Config) error {
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeRateLimit(cfg *Config) error {
	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	if cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit.burst must be >= 0")
	}
	return nil
}

func normalizeStorage(cfg *Config) error {
	records := strings.ToLower(strings.TrimSpace(cfg.Storage.Records))
	if records == "" {
		records = BackendPostgres
	}
	switch records {
	case BackendPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.records is 'postgres'")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid storage.records %q; allowed: postgres, memory", cfg.Storage.Records)
	}
	cfg.Storage.Records = records

	sessions := strings.ToLower(strings.TrimSpace(cfg.Storage.Sessions))
	if sessions == "" {
		sessions = BackendMemory
	}
	switch sessions {
	case BackendRedis:
		if strings.TrimSpace(cfg.Storage.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required when storage.sessions is 'redis'")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("invalid storage.sessions %q; allowed: memory, redis", cfg.Storage.Sessions)
	}
	cfg.Storage.Sessions = sessions
	return nil
}

func normalizePricing(cfg *Config) error {
	p := &cfg.Pricing
	provider := strings.ToLower(strings.TrimSpace(p.Provider))
	if provider == "" {
		provider = ProviderHTTP
	}
	switch provider {
	case ProviderHTTP:
		if strings.TrimSpace(p.Endpoint) == "" {
			return fmt.Errorf("pricing.endpoint is required when pricing.provider is 'http'")
		}
		if p.PricePath == "" {
			p.PricePath = "price"
		}
		if p.AuthHeader == "" {
			p.AuthHeader = "x-access-token"
		}
	case ProviderSimulated:
		if p.Simulated.BaseOunce <= 0 {
			p.Simulated.BaseOunce = 1950.50
		}
		if p.Simulated.Jitter < 0 {
			return fmt.Errorf("pricing.simulated.jitter must be >= 0")
		}
		if p.Simulated.Jitter == 0 {
			p.Simulated.Jitter = 5
		}
	default:
		return fmt.Errorf("invalid pricing.provider %q; allowed: http, simulated", p.Provider)
	}
	p.Provider = provider

	if p.Currency == "" {
		p.Currency = "USD"
	}
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 10
	}
	if p.CacheTTL < 0 {
		return fmt.Errorf("pricing.cache_ttl must be >= 0")
	}
	if p.FX.Endpoint != "" && len(p.FX.Rates) == 0 {
		return fmt.Errorf("pricing.fx.rates is required when pricing.fx.endpoint is set")
	}
	for code, rate := range p.FX.Static {
		if rate <= 0 {
			return fmt.Errorf("pricing.fx.static[%s] must be > 0", code)
		}
	}
	return nil
}

func normalizeCatalog(cfg *Config) error {
	if len(cfg.Catalog.Grades) == 0 {
		cfg.Catalog.Grades = []GradeConfig{
			{ID: "24", Label: "24K", Purity: 1},
			{ID: "22", Label: "22K", Purity: 0.9167},
			{ID: "21", Label: "21K", Purity: 0.875},
			{ID: "18", Label: "18K", Purity: 0.75},
		}
	}
	if len(cfg.Catalog.Units) == 0 {
		cfg.Catalog.Units = []UnitConfig{
			{ID: "gram", Label: "Gram", Grams: 1},
			{ID: "mithqal", Label: "Mithqal", Grams: 5},
			{ID: "ounce", Label: "Ounce", Grams: 31.1035},
		}
	}

	seen := make(map[string]struct{}, len(cfg.Catalog.Grades))
	for i, g := range cfg.Catalog.Grades {
		id := strings.TrimSpace(g.ID)
		if id == "" {
			return fmt.Errorf("catalog.grades[%d].id is required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("catalog.grades[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		if g.Purity <= 0 || g.Purity > 1 {
			return fmt.Errorf("catalog.grades[%d].purity must be in (0, 1]", i)
		}
		if strings.TrimSpace(g.Label) == "" {
			cfg.Catalog.Grades[i].Label = id
		}
		cfg.Catalog.Grades[i].ID = id
	}

	seen = make(map[string]struct{}, len(cfg.Catalog.Units))
	for i, u := range cfg.Catalog.Units {
		id := strings.ToLower(strings.TrimSpace(u.ID))
		if id == "" {
			return fmt.Errorf("catalog.units[%d].id is required", i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("catalog.units[%d]: duplicate id %q", i, id)
		}
		seen[id] = struct{}{}
		if u.Grams <= 0 {
			return fmt.Errorf("catalog.units[%d].grams must be > 0", i)
		}
		if strings.TrimSpace(u.Label) == "" {
			cfg.Catalog.Units[i].Label = id
		}
		cfg.Catalog.Units[i].ID = id
	}
	return nil
}

func validateSchedule(name string, s *ScheduleConfig, defaultInterval int) error {
	for _, t := range s.Times {
		if _, err := time.Parse("15:04", strings.TrimSpace(t)); err != nil {
			return fmt.Errorf("%s.times: invalid time %q, expected HH:MM", name, t)
		}
	}
	if s.IntervalSeconds < 0 {
		return fmt.Errorf("%s.interval_seconds must be >= 0", name)
	}
	if len(s.Times) == 0 && s.IntervalSeconds == 0 {
		s.IntervalSeconds = defaultInterval
	}
	if s.Timezone != "" {
		if _, err := time.LoadLocation(s.Timezone); err != nil {
			return fmt.Errorf("%s.timezone: %w", name, err)
		}
	}
	return nil
}
