package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	FeedBackendPostgres      = "postgres"
	FeedBackendElasticsearch = "elasticsearch"
)

type Config struct {
	Server       ServerConfig
	Postgres     PostgresConfig
	Auth         AuthConfig
	OIDC         OIDCConfig
	Slack        SlackConfig
	Cache        CacheConfig
	Feed         FeedConfig
	Kafka        KafkaConfig
	Scoring      ScoringConfig
	Dashboard    DashboardConfig
	Notification NotificationConfig
}

type ServerConfig struct {
	Port               string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

// AuthConfig - 원본 문자열을 그대로 두고 AuthService에서 파싱
type AuthConfig struct {
	JWTSecret      string
	JWTAccessTTL   string
	JWTRefreshTTL  string
	AllowSignup    string
	CookieSecure   string
	CookieSameSite string
	CookiePath     string
	CookieDomain   string
	AdminUsername  string
	AdminPassword  string
}

// OIDCConfig - IssuerURL이 비어 있으면 외부 IdP 토큰은 받지 않음
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

type SlackConfig struct {
	BotToken  string
	ChannelID string
}

type CacheConfig struct {
	TTL           time.Duration
	Capacity      int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

type FeedConfig struct {
	Backend                string
	ElasticsearchAddresses []string
	ElasticsearchUsername  string
	ElasticsearchPassword  string
	ElasticsearchIndex     string
}

type KafkaConfig struct {
	Brokers        []string
	Topic          string
	ConsumerGroup  string
	DLQTopic       string
	MaxRetries     int
	RetryBackoff   time.Duration
	DedupeCapacity int
	DedupeTTL      time.Duration
}

type ScoringConfig struct {
	ProfilePath  string
	WatchProfile bool
}

type DashboardConfig struct {
	FetchTimeout    time.Duration
	FetchLimit      int
	DefaultPageSize int
	MaxPageSize     int
}

type NotificationConfig struct {
	MinScore int
}

func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:               getenv("PORT", "8080"),
			CORSAllowedOrigins: splitAndTrim(os.Getenv("CORS_ALLOWED_ORIGINS")),
			ShutdownTimeout:    getDuration("SHUTDOWN_TIMEOUT", "10s"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:      os.Getenv("JWT_SECRET"),
			JWTAccessTTL:   getenv("JWT_ACCESS_TTL", "15m"),
			JWTRefreshTTL:  getenv("JWT_REFRESH_TTL", "720h"),
			AllowSignup:    os.Getenv("ALLOW_SIGNUP"),
			CookieSecure:   os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite: os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookiePath:     os.Getenv("AUTH_COOKIE_PATH"),
			CookieDomain:   os.Getenv("AUTH_COOKIE_DOMAIN"),
			AdminUsername:  os.Getenv("ADMIN_USERNAME"),
			AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		},
		OIDC: OIDCConfig{
			IssuerURL: os.Getenv("OIDC_ISSUER_URL"),
			ClientID:  os.Getenv("OIDC_CLIENT_ID"),
		},
		Slack: SlackConfig{
			BotToken:  os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Cache: CacheConfig{
			TTL:           getDuration("CACHE_TTL", "5m"),
			Capacity:      getInt("CACHE_CAPACITY", 1000),
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getInt("REDIS_DB", 0),
			RedisPrefix:   getenv("REDIS_PREFIX", "iocradar:"),
		},
		Feed: FeedConfig{
			Backend:                strings.ToLower(getenv("FEED_BACKEND", FeedBackendPostgres)),
			ElasticsearchAddresses: splitAndTrim(getenv("ELASTICSEARCH_ADDR", "http://localhost:9200")),
			ElasticsearchUsername:  os.Getenv("ELASTICSEARCH_USERNAME"),
			ElasticsearchPassword:  os.Getenv("ELASTICSEARCH_PASSWORD"),
			ElasticsearchIndex:     getenv("ELASTICSEARCH_INDEX", "cyber_alerts"),
		},
		Kafka: KafkaConfig{
			Brokers:        splitAndTrim(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:          getenv("KAFKA_TOPIC", "cyber_alerts"),
			ConsumerGroup:  getenv("KAFKA_CONSUMER_GROUP", "ioc-radar-ingest"),
			DLQTopic:       os.Getenv("KAFKA_DLQ_TOPIC"),
			MaxRetries:     getInt("KAFKA_MAX_RETRIES", 3),
			RetryBackoff:   getDuration("KAFKA_RETRY_BACKOFF", "500ms"),
			DedupeCapacity: getInt("INGEST_DEDUPE_CAPACITY", 10000),
			DedupeTTL:      getDuration("INGEST_DEDUPE_TTL", "24h"),
		},
		Scoring: ScoringConfig{
			ProfilePath:  os.Getenv("SCORING_PROFILE"),
			WatchProfile: getBool("SCORING_PROFILE_WATCH", true),
		},
		Dashboard: DashboardConfig{
			FetchTimeout:    getDuration("DASHBOARD_FETCH_TIMEOUT", "5s"),
			FetchLimit:      getInt("DASHBOARD_FETCH_LIMIT", 1000),
			DefaultPageSize: getInt("DASHBOARD_PAGE_SIZE", 10),
			MaxPageSize:     getInt("DASHBOARD_MAX_PAGE_SIZE", 100),
		},
		Notification: NotificationConfig{
			MinScore: getInt("NOTIFY_MIN_SCORE", 15),
		},
	}

	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = cfg.Kafka.Topic + "_dlq"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Feed.Backend != FeedBackendPostgres && c.Feed.Backend != FeedBackendElasticsearch {
		return fmt.Errorf("FEED_BACKEND must be %q or %q", FeedBackendPostgres, FeedBackendElasticsearch)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.Cache.Capacity <= 0 {
		return fmt.Errorf("CACHE_CAPACITY must be positive")
	}
	if c.Dashboard.FetchTimeout <= 0 {
		return fmt.Errorf("DASHBOARD_FETCH_TIMEOUT must be positive")
	}
	if c.Dashboard.FetchLimit <= 0 {
		return fmt.Errorf("DASHBOARD_FETCH_LIMIT must be positive")
	}
	if c.Dashboard.DefaultPageSize <= 0 || c.Dashboard.MaxPageSize <= 0 {
		return fmt.Errorf("DASHBOARD_PAGE_SIZE and DASHBOARD_MAX_PAGE_SIZE must be positive")
	}
	if c.Dashboard.DefaultPageSize > c.Dashboard.MaxPageSize {
		return fmt.Errorf("DASHBOARD_PAGE_SIZE cannot exceed DASHBOARD_MAX_PAGE_SIZE")
	}
	if c.Dashboard.MaxPageSize > 100 {
		return fmt.Errorf("DASHBOARD_MAX_PAGE_SIZE cannot exceed 100")
	}
	if c.Kafka.MaxRetries < 0 {
		return fmt.Errorf("KAFKA_MAX_RETRIES cannot be negative")
	}
	if c.Kafka.DedupeCapacity <= 0 {
		return fmt.Errorf("INGEST_DEDUPE_CAPACITY must be positive")
	}
	if c.Notification.MinScore < 0 {
		return fmt.Errorf("NOTIFY_MIN_SCORE cannot be negative")
	}
	return nil
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

// 잘못된 값이면 fallback 사용
func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getenv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
