package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	AES      AESConfig      `mapstructure:"aes"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Risk     RiskConfig     `mapstructure:"risk"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// IsRelease reports whether the server runs with production-grade requirements.
func (s ServerConfig) IsRelease() bool {
	return s.Mode == "release"
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL URL, escaping credentials.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig configures the optional fast tier. Enabled=false runs durable-only.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
	// OpTimeout bounds every fast-tier call; a slow cache degrades to the
	// durable tier instead of stalling the request.
	OpTimeout time.Duration `mapstructure:"op_timeout"`
}

func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type AESConfig struct {
	Key string `mapstructure:"key"` // 32-byte hex-encoded key for AES-256
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// LedgerConfig tunes the lock manager, cache tiers and bet ceiling.
type LedgerConfig struct {
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
	LockSweepInterval time.Duration `mapstructure:"lock_sweep_interval"`
	ReleaseTimeout    time.Duration `mapstructure:"release_timeout"`
	BalanceTTL        time.Duration `mapstructure:"balance_ttl"`
	GameStateTTL      time.Duration `mapstructure:"game_state_ttl"`
	MaxBet            int64         `mapstructure:"max_bet"` // minor units
}

type RiskConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
}

// defaults are applied before the file and the environment.
var defaults = map[string]any{
	"server.host": "0.0.0.0",
	"server.port": 8080,
	"server.mode": "debug",

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.dbname":            "casino_ledger",
	"database.sslmode":           "disable",
	"database.max_conns":         20,
	"database.min_conns":         5,
	"database.conn_max_lifetime": "30m",
	"database.auto_migrate":      true,

	"redis.enabled":    true,
	"redis.host":       "localhost",
	"redis.port":       6379,
	"redis.password":   "",
	"redis.db":         0,
	"redis.pool_size":  20,
	"redis.op_timeout": "200ms",

	"jwt.secret": "",
	"jwt.expiry": "24h",
	"jwt.issuer": "casino-ledger",
	"aes.key":    "",

	"log.level":  "info",
	"log.pretty": false,

	"ledger.lock_ttl":            "10s",
	"ledger.lock_sweep_interval": "1m",
	"ledger.release_timeout":     "2s",
	"ledger.balance_ttl":         "1h",
	"ledger.game_state_ttl":      "1h",
	"ledger.max_bet":             1_000_000, // 10,000.00

	"risk.metrics_enabled": true,
}

// Load reads configuration from an optional YAML file and CLG_ environment
// variables, which win over the file. Nested keys map with underscores:
// ledger.lock_ttl is CLG_LEDGER_LOCK_TTL. An empty path searches ./config.yaml
// and ./config/config.yaml; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CLG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks invariants the services rely on. Key material must be injected
// in release mode; there is no random fallback.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("server.mode %q must be debug, release or test", c.Server.Mode))
	}
	check(c.Database.MinConns <= c.Database.MaxConns, "database.min_conns exceeds database.max_conns")
	check(c.Redis.OpTimeout >= 0, "redis.op_timeout must not be negative")
	check(c.JWT.Expiry > 0, "jwt.expiry must be positive")

	check(c.Ledger.LockTTL > 0, "ledger.lock_ttl must be positive")
	check(c.Ledger.LockSweepInterval > 0, "ledger.lock_sweep_interval must be positive")
	check(c.Ledger.ReleaseTimeout > 0, "ledger.release_timeout must be positive")
	check(c.Ledger.BalanceTTL > 0 && c.Ledger.GameStateTTL > 0, "ledger cache TTLs must be positive")
	check(c.Ledger.MaxBet > 0, "ledger.max_bet must be positive")

	if c.Server.IsRelease() {
		check(c.JWT.Secret != "", "jwt.secret is required in release mode")
		check(c.AES.Key != "", "aes.key is required in release mode")
	}
	if c.AES.Key != "" {
		key, err := hex.DecodeString(c.AES.Key)
		check(err == nil && len(key) == 32, "aes.key must be 64 hex characters")
	}

	return errors.Join(errs...)
}
