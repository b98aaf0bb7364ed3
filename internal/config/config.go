// Package config loads settings from an optional YAML file and then from
// environment variables, which take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/parisxmas/OxiDB/OxiForms/internal/logging"
)

const (
	FileEnv = "OXIFORMS_CONFIG_FILE"

	StoreOxiDB = "oxidb"
	StoreMongo = "mongo"

	DevJWTSecret = "oxiforms-dev-secret-change-me"
)

type OxiDB struct {
	Host     string `yaml:"host" env:"OXIDB_HOST"`
	Port     int    `yaml:"port" env:"OXIDB_PORT"`
	PoolSize int    `yaml:"pool_size" env:"OXIFORMS_POOL_SIZE"`
}

type Mongo struct {
	URI         string        `yaml:"uri" env:"MONGODB_URI"`
	Database    string        `yaml:"database" env:"MONGODB_DATABASE"`
	Timeout     time.Duration `yaml:"timeout" env:"MONGODB_TIMEOUT"`
	MaxPoolSize uint64        `yaml:"max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`
}

type Airtable struct {
	ClientID     string `yaml:"client_id" env:"AIRTABLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"AIRTABLE_CLIENT_SECRET"`
	RedirectURI  string `yaml:"redirect_uri" env:"AIRTABLE_REDIRECT_URI"`
	Scope        string `yaml:"scope" env:"AIRTABLE_SCOPE"`
	APIURL       string `yaml:"api_url" env:"AIRTABLE_API_URL"`
	AuthURL      string `yaml:"auth_url" env:"AIRTABLE_AUTH_URL"`
	TokenURL     string `yaml:"token_url" env:"AIRTABLE_TOKEN_URL"`
}

// Scopes splits the space separated scope string.
func (a Airtable) Scopes() []string {
	return strings.Fields(a.Scope)
}

type Webhook struct {
	Secret        string `yaml:"secret" env:"WEBHOOK_SECRET"`
	RequireSecret bool   `yaml:"require_secret" env:"WEBHOOK_REQUIRE_SECRET"`
}

type Telemetry struct {
	Enabled  bool   `yaml:"enabled" env:"OXIFORMS_OTEL_ENABLED"`
	Endpoint string `yaml:"endpoint" env:"OXIFORMS_OTEL_ENDPOINT"`
}

type Config struct {
	HTTPAddr           string         `yaml:"http_addr" env:"OXIFORMS_ADDR"`
	Store              string         `yaml:"store" env:"OXIFORMS_STORE"`
	OxiDB              OxiDB          `yaml:"oxidb"`
	Mongo              Mongo          `yaml:"mongo"`
	JWTSecret          string         `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenEncryptionKey string         `yaml:"token_encryption_key" env:"TOKEN_ENCRYPTION_KEY"`
	SessionTTL         time.Duration  `yaml:"session_ttl" env:"SESSION_TTL"`
	SecureCookies      bool           `yaml:"secure_cookies" env:"SECURE_COOKIES"`
	FrontendURL        string         `yaml:"frontend_url" env:"FRONTEND_URL"`
	CORSOrigins        []string       `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	Airtable           Airtable       `yaml:"airtable"`
	Webhook            Webhook        `yaml:"webhook"`
	Log                logging.Config `yaml:"log"`
	Telemetry          Telemetry      `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		HTTPAddr: ":5000",
		Store:    StoreOxiDB,
		OxiDB: OxiDB{
			Host:     "127.0.0.1",
			Port:     4444,
			PoolSize: 3,
		},
		Mongo: Mongo{
			URI:      "mongodb://localhost:27017",
			Database: "oxiforms",
			Timeout:  10 * time.Second,
		},
		JWTSecret:   DevJWTSecret,
		SessionTTL:  7 * 24 * time.Hour,
		FrontendURL: "http://localhost:5173",
		Airtable: Airtable{
			Scope: "data.records:read data.records:write schema.bases:read",
		},
		Log: logging.Config{
			Level:      "info",
			MaxSizeMB:  100,
			MaxAgeDays: 28,
			MaxBackups: 5,
		},
	}
}

// Load reads the YAML file named by OXIFORMS_CONFIG_FILE, if any, over the
// defaults and then applies environment overrides.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Store != StoreOxiDB && c.Store != StoreMongo {
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreOxiDB, StoreMongo, c.Store))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	if c.OxiDB.PoolSize < 1 {
		errs = append(errs, errors.New("oxidb pool size must be at least 1"))
	}
	return errors.Join(errs...)
}

// SealingKey is the secret stored tokens are encrypted with.
func (c *Config) SealingKey() string {
	if c.TokenEncryptionKey != "" {
		return c.TokenEncryptionKey
	}
	return c.JWTSecret
}

type Relay struct {
	Addr      string         `yaml:"addr" env:"PORT"`
	TargetURL string         `yaml:"target_url" env:"TARGET_BACKEND_URL"`
	Secret    string         `yaml:"secret" env:"WEBHOOK_SECRET"`
	Log       logging.Config `yaml:"log"`
}

// LoadRelay loads the webhook relay settings the same way as Load.
func LoadRelay() (*Relay, error) {
	cfg := Relay{
		Addr:      "5001",
		TargetURL: "http://localhost:5000",
		Log:       logging.Config{Level: "info"},
	}
	if path := os.Getenv(FileEnv); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		var file struct {
			Relay *Relay `yaml:"relay"`
		}
		file.Relay = &cfg
		if err := yaml.NewDecoder(f).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Secret == "" {
		return nil, errors.New("WEBHOOK_SECRET is required")
	}
	if !strings.Contains(cfg.Addr, ":") {
		cfg.Addr = ":" + cfg.Addr
	}
	cfg.TargetURL = strings.TrimRight(cfg.TargetURL, "/")
	return &cfg, nil
}
