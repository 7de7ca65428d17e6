package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		RequestTimeout  time.Duration `koanf:"request_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Backend struct {
		BaseURL        string        `koanf:"base_url"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
		Breaker        struct {
			MaxRequests      uint32        `koanf:"max_requests"`
			Interval         time.Duration `koanf:"interval"`
			OpenTimeout      time.Duration `koanf:"open_timeout"`
			FailureThreshold uint32        `koanf:"failure_threshold"`
		} `koanf:"breaker"`
	} `koanf:"backend"`

	Storage struct {
		Driver  string        `koanf:"driver"` // memory | redis | mongo
		CartTTL time.Duration `koanf:"cart_ttl"`
	} `koanf:"storage"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Mongo struct {
		URI                    string        `koanf:"uri"`
		Database               string        `koanf:"database"`
		ConnectTimeout         time.Duration `koanf:"connect_timeout"`
		ServerSelectionTimeout time.Duration `koanf:"server_selection_timeout"`
		MaxPoolSize            uint64        `koanf:"max_pool_size"`
		MinPoolSize            uint64        `koanf:"min_pool_size"`
	} `koanf:"mongo"`

	Postgres struct {
		Enabled       bool   `koanf:"enabled"`
		Host          string `koanf:"host"`
		Port          int    `koanf:"port"`
		User          string `koanf:"user"`
		Password      string `koanf:"password"`
		DBName        string `koanf:"dbname"`
		MigrationsDir string `koanf:"migrations_dir"`
	} `koanf:"postgres"`

	Kafka struct {
		Enabled bool     `koanf:"enabled"`
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Checkout struct {
		ShippingFee  string            `koanf:"shipping_fee"`
		PaymentDelay time.Duration     `koanf:"payment_delay"`
		PromoCodes   map[string]string `koanf:"promo_codes"`
	} `koanf:"checkout"`

	Catalog struct {
		RefreshInterval time.Duration `koanf:"refresh_interval"`
	} `koanf:"catalog"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
	} `koanf:"security"`
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod), optional for local runs
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables, nested with __
	// e.g. STOREFRONT_BACKEND__BASE_URL, STOREFRONT_REDIS__PASSWORD
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	// the response of a long checkout must still fit in the write window
	if c.HTTP.WriteTimeout > 0 && c.HTTP.WriteTimeout <= c.HTTP.RequestTimeout {
		return fmt.Errorf("http.write_timeout (%s) must exceed http.request_timeout (%s)", c.HTTP.WriteTimeout, c.HTTP.RequestTimeout)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr required for redis storage")
		}
	case "mongo":
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.uri and mongo.database required for mongo storage")
		}
		if c.Mongo.MaxPoolSize > 0 && c.Mongo.MinPoolSize > c.Mongo.MaxPoolSize {
			return fmt.Errorf("mongo.min_pool_size must not exceed mongo.max_pool_size")
		}
	default:
		return fmt.Errorf("storage.driver must be memory, redis or mongo, got %q", c.Storage.Driver)
	}

	if c.Postgres.Enabled && (c.Postgres.Host == "" || c.Postgres.DBName == "") {
		return fmt.Errorf("postgres.host and postgres.dbname required when postgres is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka is enabled")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}

	if _, err := c.ShippingFee(); err != nil {
		return err
	}
	if _, err := c.PromoCodes(); err != nil {
		return err
	}
	return nil
}

// ShippingFee is zero when unset; callers then fall back to the default fee.
func (c Config) ShippingFee() (decimal.Decimal, error) {
	if c.Checkout.ShippingFee == "" {
		return decimal.Zero, nil
	}
	fee, err := decimal.NewFromString(c.Checkout.ShippingFee)
	if err != nil || fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("checkout.shipping_fee must be a non-negative amount, got %q", c.Checkout.ShippingFee)
	}
	return fee, nil
}

func (c Config) PromoCodes() (map[string]decimal.Decimal, error) {
	codes := make(map[string]decimal.Decimal, len(c.Checkout.PromoCodes))
	for code, raw := range c.Checkout.PromoCodes {
		d, err := decimal.NewFromString(raw)
		if err != nil || d.IsNegative() {
			return nil, fmt.Errorf("checkout.promo_codes.%s must be a non-negative amount, got %q", code, raw)
		}
		codes[code] = d
	}
	return codes, nil
}
