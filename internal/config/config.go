package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/Alturino/storefront/internal/constants"
)

type Application struct {
	Env       string `mapstructure:"env"        json:"env"`
	Host      string `mapstructure:"host"       json:"host"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Port      int    `mapstructure:"port"       json:"port"`
}

type Database struct {
	DbName         string `mapstructure:"name"            json:"name"`
	Host           string `mapstructure:"host"            json:"host"`
	MigrationPath  string `mapstructure:"migration_path"  json:"migration_path"`
	Password       string `mapstructure:"password"        json:"-"`
	TimeZone       string `mapstructure:"timezone"        json:"timezone"`
	Username       string `mapstructure:"username"        json:"username"`
	MaxConnections int32  `mapstructure:"max_connections" json:"max_connections"`
	MinConnections int32  `mapstructure:"min_connections" json:"min_connections"`
	Port           uint16 `mapstructure:"port"            json:"port"`
}

type Cache struct {
	Host     string `mapstructure:"host"     json:"host"`
	Password string `mapstructure:"password" json:"-"`
	Database int    `mapstructure:"database" json:"database"`
	Port     uint16 `mapstructure:"port"     json:"port"`
}

type Otel struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type Catalog struct {
	BaseURL     string        `mapstructure:"base_url"     json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"      json:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures" json:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open_timeout" json:"open_timeout"`
}

type Payment struct {
	ProcessorURL   string `mapstructure:"processor_url"   json:"processor_url"`
	PublishableKey string `mapstructure:"publishable_key" json:"-"`
	SecretKey      string `mapstructure:"secret_key"      json:"-"`
	Currency       string `mapstructure:"currency"        json:"currency"`
}

type Broker struct {
	Brokers []string `mapstructure:"brokers"  json:"brokers"`
	Topic   string   `mapstructure:"topic"    json:"topic"`
	GroupID string   `mapstructure:"group_id" json:"group_id"`
}

type Services struct {
	UserURL    string `mapstructure:"user_url"    json:"user_url"`
	ProductURL string `mapstructure:"product_url" json:"product_url"`
	CartURL    string `mapstructure:"cart_url"    json:"cart_url"`
	PaymentURL string `mapstructure:"payment_url" json:"payment_url"`
}

type Client struct {
	SessionFile string `mapstructure:"session_file" json:"session_file"`
}

type Config struct {
	Database    `mapstructure:"db"          json:"db"`
	Cache       `mapstructure:"cache"       json:"cache"`
	Application `mapstructure:"application" json:"application"`
	Otel        `mapstructure:"otel"        json:"otel"`
	Catalog     `mapstructure:"catalog"     json:"catalog"`
	Payment     `mapstructure:"payment"     json:"payment"`
	Broker      `mapstructure:"broker"      json:"broker"`
	Services    `mapstructure:"services"    json:"services"`
	Client      `mapstructure:"client"      json:"client"`
}

var (
	once   sync.Once
	config *Config
)

func Get(c context.Context, filename string) *Config {
	once.Do(func() {
		logger := zerolog.Ctx(c).
			With().
			Str(constants.KEY_TAG, "config Get").
			Str(constants.KEY_PROCESS, "init config").
			Str("filename", filename).
			Logger()

		cfg, err := Load(filename, "./env")
		if err != nil {
			logger.Fatal().Err(err).Msg(err.Error())
		}
		config = cfg
		logger.Info().Any(constants.KEY_CONFIG, cfg).Msg("initialized config")
	})
	return config
}

func Load(filename string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(filename)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("catalog.base_url", "https://dummyjson.com")
	v.SetDefault("catalog.timeout", 15*time.Second)
	v.SetDefault("catalog.max_failures", 5)
	v.SetDefault("catalog.open_timeout", 30*time.Second)
	v.SetDefault("payment.processor_url", "https://api.stripe.com")
	v.SetDefault("payment.currency", "usd")
	v.SetDefault("broker.topic", "order.confirmed")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error when reading config with error=%w", err)
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config with error=%w", err)
	}
	return &cfg, nil
}
