package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"PageviewLabeler/internal/domain"
)

const (
	configPathEnv      = "PAGEVIEW_LABELER_CONFIG"
	logLevelEnv        = "LOG_LEVEL"
	knowledgeBaseEnv   = "KNOWLEDGE_BASE_URL"
	concurrencyEnv     = "FETCH_CONCURRENCY"
	maxAttemptsEnv     = "FETCH_MAX_ATTEMPTS"
	databaseDSNEnv     = "DATABASE_DSN"
	redisAddrEnv       = "REDIS_ADDR"
	redisPasswordEnv   = "REDIS_PASSWORD"
	s3BucketEnv        = "S3_BUCKET"
	s3RegionEnv        = "S3_REGION"
	s3EndpointEnv      = "S3_ENDPOINT"
	s3AccessKeyEnv     = "S3_ACCESS_KEY_ID"
	s3SecretKeyEnv     = "S3_SECRET_ACCESS_KEY"
	telegramTokenEnv   = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv  = "TELEGRAM_CHAT_ID"
	defaultUserAgent   = "PageviewLabeler/1.0 (https://github.com/pageview-labeler; batch enrichment)"
	defaultWikidataURL = "https://www.wikidata.org/w/api.php"
)

// Backoff strategies understood by the retry policy.
const (
	BackoffConstant    = "constant"
	BackoffExponential = "exponential"
	BackoffFibonacci   = "fibonacci"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheSQLite = "sqlite"
	CacheRedis  = "redis"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig       `yaml:"logging"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledgeBase"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Model         ModelConfig         `yaml:"model"`
	Training      TrainingConfig      `yaml:"training"`
	Cache         CacheConfig         `yaml:"cache"`
	Database      DatabaseConfig      `yaml:"database"`
	Publish       PublishConfig       `yaml:"publish"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Countries     []CountryConfig     `yaml:"countries"`
}

// LoggingConfig selects log verbosity and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// KnowledgeBaseConfig describes the Wikidata API endpoint.
type KnowledgeBaseConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	UserAgent string        `yaml:"userAgent"`
	Language  string        `yaml:"language"`
	Timeout   time.Duration `yaml:"timeout"`
	Retry     RetryConfig   `yaml:"retry"`
}

// RetryConfig is the injected retry policy of the description fetcher.
type RetryConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	Backoff     string        `yaml:"backoff"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	MaxDelay    time.Duration `yaml:"maxDelay"`
}

// PipelineConfig tunes the enrichment run.
type PipelineConfig struct {
	Concurrency   int          `yaml:"concurrency"`
	FallbackLabel string       `yaml:"fallbackLabel"`
	Output        string       `yaml:"output"`
	Columns       ColumnConfig `yaml:"columns"`
}

// ColumnConfig names the raw input columns.
type ColumnConfig struct {
	QID   string `yaml:"qid"`
	Date  string `yaml:"date"`
	Views string `yaml:"views"`
}

// ModelConfig locates the trained classifier artifact.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// TrainingConfig drives corpus building and model training.
type TrainingConfig struct {
	Corpus       string  `yaml:"corpus"`
	Titles       string  `yaml:"titles"`
	WikipediaURL string  `yaml:"wikipediaUrl"`
	TestFraction float64 `yaml:"testFraction"`
	Seed         uint64  `yaml:"seed"`
	Alpha        float64 `yaml:"alpha"`
	StopWords    bool    `yaml:"stopWords"`
}

// CacheConfig selects the persistent description cache.
type CacheConfig struct {
	Driver     string      `yaml:"driver"`
	SQLitePath string      `yaml:"sqlitePath"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig describes a shared Redis description cache.
type RedisConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// DatabaseConfig describes the optional Postgres aggregate sink.
type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// PublishConfig groups remote artifact destinations.
type PublishConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config describes an S3-compatible bucket for the aggregate CSV.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// CountryConfig points at one country's raw pageview file.
type CountryConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Load reads YAML configuration over the defaults and applies environment
// overrides. An empty path falls back to PAGEVIEW_LABELER_CONFIG; when
// neither is set the defaults are used as-is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := Parse(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from raw keep their current value,
// so decoding over Default() only overrides what the file sets.
func Parse(raw []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(knowledgeBaseEnv); v != "" {
		c.KnowledgeBase.Endpoint = v
	}
	if v := getenvInt(concurrencyEnv); v > 0 {
		c.Pipeline.Concurrency = v
	}
	if v := getenvInt(maxAttemptsEnv); v > 0 {
		c.KnowledgeBase.Retry.MaxAttempts = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Cache.Redis.Address = v
	}
	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Publish.S3.Bucket = v
	}
	if v := os.Getenv(s3RegionEnv); v != "" {
		c.Publish.S3.Region = v
	}
	if v := os.Getenv(s3EndpointEnv); v != "" {
		c.Publish.S3.Endpoint = v
	}
	if v := os.Getenv(s3AccessKeyEnv); v != "" {
		c.Publish.S3.AccessKey = v
	}
	if v := os.Getenv(s3SecretKeyEnv); v != "" {
		c.Publish.S3.SecretKey = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var problems []string

	if c.Pipeline.Concurrency < 1 {
		problems = append(problems, "pipeline.concurrency must be at least 1")
	}
	if _, err := c.Pipeline.Fallback(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Pipeline.Output == "" {
		problems = append(problems, "pipeline.output is required")
	}
	if c.KnowledgeBase.Endpoint == "" {
		problems = append(problems, "knowledgeBase.endpoint is required")
	}
	if c.KnowledgeBase.Retry.MaxAttempts < 1 {
		problems = append(problems, "knowledgeBase.retry.maxAttempts must be at least 1")
	}
	switch c.KnowledgeBase.Retry.Backoff {
	case BackoffConstant, BackoffExponential, BackoffFibonacci:
	default:
		problems = append(problems, fmt.Sprintf("knowledgeBase.retry.backoff %q is not one of constant, exponential, fibonacci", c.KnowledgeBase.Retry.Backoff))
	}
	if c.KnowledgeBase.Retry.BaseDelay < 0 || c.KnowledgeBase.Retry.MaxDelay < 0 {
		problems = append(problems, "knowledgeBase.retry delays must not be negative")
	}
	switch c.Cache.Driver {
	case CacheNone, CacheSQLite, CacheRedis:
	default:
		problems = append(problems, fmt.Sprintf("cache.driver %q is not one of none, sqlite, redis", c.Cache.Driver))
	}
	if c.Cache.Driver == CacheSQLite && c.Cache.SQLitePath == "" {
		problems = append(problems, "cache.sqlitePath is required for the sqlite driver")
	}
	if c.Cache.Driver == CacheRedis && c.Cache.Redis.Address == "" {
		problems = append(problems, "cache.redis.address is required for the redis driver")
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		problems = append(problems, "training.testFraction must be between 0 and 1")
	}
	if c.Training.Alpha <= 0 {
		problems = append(problems, "training.alpha must be positive")
	}

	seen := make(map[string]struct{}, len(c.Countries))
	for i, country := range c.Countries {
		if country.Code == "" || country.Path == "" {
			problems = append(problems, fmt.Sprintf("countries[%d] needs code and path", i))
			continue
		}
		if _, dup := seen[country.Code]; dup {
			problems = append(problems, fmt.Sprintf("country %s is listed twice", country.Code))
		}
		seen[country.Code] = struct{}{}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Fallback resolves the label given to identifiers whose description could
// not be obtained.
func (p PipelineConfig) Fallback() (domain.Label, error) {
	label, err := domain.ParseLabel(p.FallbackLabel)
	if err != nil || label == domain.LabelPolitical {
		return 0, fmt.Errorf("pipeline.fallbackLabel %q must be %q or %q",
			p.FallbackLabel, domain.LabelNoQID, domain.LabelNonPolitical)
	}
	return label, nil
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		KnowledgeBase: KnowledgeBaseConfig{
			Endpoint:  defaultWikidataURL,
			UserAgent: defaultUserAgent,
			Language:  "en",
			Timeout:   15 * time.Second,
			Retry: RetryConfig{
				MaxAttempts: 5,
				Backoff:     BackoffExponential,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    10 * time.Second,
			},
		},
		Pipeline: PipelineConfig{
			Concurrency:   4,
			FallbackLabel: domain.LabelNoQID.String(),
			Output:        "data/daily_label_summary.csv",
			Columns:       ColumnConfig{QID: "qid", Date: "date", Views: "views"},
		},
		Model: ModelConfig{Path: "data/model.json"},
		Training: TrainingConfig{
			Corpus:       "data/training_corpus.csv",
			Titles:       "configs/corpus_titles.yaml",
			WikipediaURL: "https://en.wikipedia.org/wiki/",
			TestFraction: 0.2,
			Seed:         42,
			Alpha:        1.0,
		},
		Cache: CacheConfig{
			Driver:     CacheSQLite,
			SQLitePath: "data/cache.db",
			Redis:      RedisConfig{Address: "localhost:6379", KeyPrefix: "pageviewlabeler:desc:", TTL: 30 * 24 * time.Hour},
		},
		Database: DatabaseConfig{Table: "daily_label_summary"},
		Publish:  PublishConfig{S3: S3Config{Region: "us-east-1", Prefix: "pageviews/"}},
		Countries: []CountryConfig{
			{Code: "US", Name: "United States", Path: "data/raw/US.csv"},
			{Code: "GB", Name: "United Kingdom", Path: "data/raw/GB.csv"},
			{Code: "CA", Name: "Canada", Path: "data/raw/CA.csv"},
			{Code: "AU", Name: "Australia", Path: "data/raw/AU.csv"},
			{Code: "IN", Name: "India", Path: "data/raw/IN.csv"},
		},
	}
}

func getenvInt(k string) int {
	v := os.Getenv(k)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
