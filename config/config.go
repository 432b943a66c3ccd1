package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Upstream  UpstreamConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Tracing   TracingConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	ListView  ListViewConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Version     string
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// UpstreamConfig describes the REST API that owns the domain data.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration

	// Circuit breaker: open after BreakerFailures consecutive failures,
	// probe again after BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (d DatabaseConfig) DNS() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s Timezone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret     string
	SessionTTL time.Duration
	Issuer     string
	CookieName string
	// SecureCookie is false only for local development over plain http.
	SecureCookie bool
}

type LogConfig struct {
	Level      string
	Format     string
	OutputPath string
}

type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
	SampleRate  float64
}

type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Enabled reports whether audit events should also go to Kafka.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type RateLimitConfig struct {
	// Login attempts per minute per client IP.
	LoginPerMinute int
	LoginBurst     int
}

type ListViewConfig struct {
	Debounce     time.Duration
	DefaultLimit int
	MaxLimit     int
	// ChartTopN caps the number of buckets in ranking charts.
	ChartTopN int
}

// Load reads .env (optional), repdash.yaml (optional) and the environment,
// in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("repdash")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "repdash")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "0.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("upstream.base_url", "http://localhost:4000/api")
	v.SetDefault("upstream.timeout", 10*time.Second)
	v.SetDefault("upstream.breaker_failures", 5)
	v.SetDefault("upstream.breaker_cooldown", 30*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "repdash")
	v.SetDefault("db.user", "repdash")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "require")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("db.conn_max_idle_time", 5*time.Minute)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.session_ttl", 12*time.Hour)
	v.SetDefault("jwt.issuer", "repdash")
	v.SetDefault("jwt.cookie_name", "repdash_session")
	v.SetDefault("jwt.secure_cookie", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "repdash")
	v.SetDefault("tracing.endpoint", "otel-collector:4318")
	v.SetDefault("tracing.sample_rate", 0.1)

	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.audit_topic", "repdash.audit")

	v.SetDefault("rate_limit.login_per_minute", 10)
	v.SetDefault("rate_limit.login_burst", 5)

	v.SetDefault("listview.debounce", 500*time.Millisecond)
	v.SetDefault("listview.default_limit", 10)
	v.SetDefault("listview.max_limit", 100)
	v.SetDefault("listview.chart_top_n", 5)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Environment: v.GetString("app.env"),
			Version:     v.GetString("app.version"),
		},
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Upstream: UpstreamConfig{
			BaseURL:         strings.TrimRight(v.GetString("upstream.base_url"), "/"),
			Timeout:         v.GetDuration("upstream.timeout"),
			BreakerFailures: v.GetUint32("upstream.breaker_failures"),
			BreakerCooldown: v.GetDuration("upstream.breaker_cooldown"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("db.host"),
			Port:            v.GetInt("db.port"),
			Name:            v.GetString("db.name"),
			User:            v.GetString("db.user"),
			Password:        v.GetString("db.password"),
			SSLMode:         v.GetString("db.sslmode"),
			MaxOpenConns:    v.GetInt("db.max_open_conns"),
			MaxIdleConns:    v.GetInt("db.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetDuration("db.conn_max_idle_time"),
		},
		JWT: JWTConfig{
			Secret:       v.GetString("jwt.secret"),
			SessionTTL:   v.GetDuration("jwt.session_ttl"),
			Issuer:       v.GetString("jwt.issuer"),
			CookieName:   v.GetString("jwt.cookie_name"),
			SecureCookie: v.GetBool("jwt.secure_cookie"),
		},
		Log: LogConfig{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			OutputPath: v.GetString("log.output"),
		},
		Tracing: TracingConfig{
			Enabled:     v.GetBool("tracing.enabled"),
			ServiceName: v.GetString("tracing.service_name"),
			Endpoint:    v.GetString("tracing.endpoint"),
			SampleRate:  v.GetFloat64("tracing.sample_rate"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitList(v.GetString("kafka.brokers")),
			AuditTopic: v.GetString("kafka.audit_topic"),
		},
		RateLimit: RateLimitConfig{
			LoginPerMinute: v.GetInt("rate_limit.login_per_minute"),
			LoginBurst:     v.GetInt("rate_limit.login_burst"),
		},
		ListView: ListViewConfig{
			Debounce:     v.GetDuration("listview.debounce"),
			DefaultLimit: v.GetInt("listview.default_limit"),
			MaxLimit:     v.GetInt("listview.max_limit"),
			ChartTopN:    v.GetInt("listview.chart_top_n"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.JWT.Secret == "" {
		errs = append(errs, "JWT_SECRET is required")
	} else if len(cfg.JWT.Secret) < 32 && cfg.App.Environment == "production" {
		errs = append(errs, "JWT_SECRET must be at least 32 characters in production")
	}

	if u, err := url.Parse(cfg.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "UPSTREAM_BASE_URL must be an absolute URL")
	}
	if cfg.Upstream.Timeout <= 0 {
		errs = append(errs, "UPSTREAM_TIMEOUT must be positive")
	}

	if cfg.Database.Password == "" && cfg.App.Environment != "development" {
		errs = append(errs, "DB_PASSWORD is required in non-development environments")
	}
	if cfg.Database.SSLMode == "disable" && cfg.App.Environment == "production" {
		errs = append(errs, "DB_SSLMODE=disable is not allowed in production")
	}

	if cfg.ListView.DefaultLimit <= 0 || cfg.ListView.MaxLimit < cfg.ListView.DefaultLimit {
		errs = append(errs, "LISTVIEW_DEFAULT_LIMIT must be positive and not above LISTVIEW_MAX_LIMIT")
	}
	if cfg.ListView.Debounce < 0 {
		errs = append(errs, "LISTVIEW_DEBOUNCE cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}
