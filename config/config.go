package config

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/mbolis/survey3/auth"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type Config struct {
	Env     string `envconfig:"ENV" default:"production"`
	Host    string `envconfig:"HOST" default:"0.0.0.0"`
	Port    int    `envconfig:"PORT" required:"true"`
	BaseURL string `envconfig:"BASE_URL" required:"true"`

	DatabaseURL  string `envconfig:"DATABASE_URL"`
	MongoURI     string `envconfig:"MONGO_URI"`
	DatabaseName string `envconfig:"DATABASE_NAME" default:"survey3"`

	APISecret string        `envconfig:"API_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_EXPIRES_IN" default:"24h"`

	Web3Token   string        `envconfig:"WEB3_STORAGE_API_TOKEN" required:"true"`
	Web3URL     string        `envconfig:"WEB3_STORAGE_URL" default:"https://api.web3.storage"`
	Gateway     string        `envconfig:"IPFS_GATEWAY" default:"w3s.link"`
	UpstreamTTL time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	FanOut      int           `envconfig:"GATEWAY_CONCURRENCY" default:"1"`
	Retries     int           `envconfig:"GATEWAY_RETRIES" default:"2"`
	CacheDir    string        `envconfig:"GATEWAY_CACHE_DIR"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
	LogLevel    string   `envconfig:"LOG_LEVEL"`
	LogFormat   string   `envconfig:"LOG_FORMAT" default:"text"`

	Debug      bool            `ignored:"true"`
	SigningKey *rsa.PrivateKey `ignored:"true"`
}

// Load reads an optional dotenv file into the process environment and
// decodes the environment into a validated Config.
func Load(envFile string) (cfg Config, err error) {
	if envFile != "" {
		err = godotenv.Load(envFile)
		if err != nil && !(errors.Is(err, os.ErrNotExist) && envFile == ".env") {
			return cfg, fmt.Errorf("config.env_file: %w", err)
		}
	}

	err = envconfig.Process("", &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config.env: %w", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = cfg.MongoURI
	}

	err = cfg.Validate()
	return
}

// Validate checks every required value and parses the signing key.
// Any failure is fatal at startup.
func (cfg *Config) Validate() error {
	switch cfg.Env {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return fmt.Errorf("config: ENV must be one of production, development, test (got %q)", cfg.Env)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("config: PORT must be a positive port number (got %d)", cfg.Port)
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return fmt.Errorf("config: BASE_URL is not a valid URL: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: DATABASE_URL (or MONGO_URI) is required")
	}
	if cfg.Web3Token == "" {
		return errors.New("config: WEB3_STORAGE_API_TOKEN is required")
	}
	if _, err := url.ParseRequestURI(cfg.Web3URL); err != nil {
		return fmt.Errorf("config: WEB3_STORAGE_URL is not a valid URL: %w", err)
	}
	if strings.Contains(cfg.Gateway, "/") {
		return fmt.Errorf("config: IPFS_GATEWAY must be a host name (got %q)", cfg.Gateway)
	}
	if cfg.FanOut < 1 {
		return fmt.Errorf("config: GATEWAY_CONCURRENCY must be at least 1 (got %d)", cfg.FanOut)
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("config: GATEWAY_RETRIES must not be negative (got %d)", cfg.Retries)
	}
	if cfg.RequestTimeout <= 0 {
		return errors.New("config: REQUEST_TIMEOUT must be positive")
	}
	if cfg.TokenTTL <= 0 {
		return errors.New("config: ACCESS_TOKEN_EXPIRES_IN must be positive")
	}

	key, err := auth.ParsePrivateKey(cfg.APISecret)
	if err != nil {
		return fmt.Errorf("config: API_SECRET: %w", err)
	}
	cfg.SigningKey = key

	if cfg.Env == EnvDevelopment {
		cfg.Debug = true
	}
	return nil
}

func (cfg Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr()
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func (cfg Config) IsDevelopment() bool {
	return cfg.Env == EnvDevelopment
}
