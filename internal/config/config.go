package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Business BusinessConfig `mapstructure:"business"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	// AdminToken guards /api/v1/admin. Empty disables the admin routes.
	AdminToken string `mapstructure:"admin_token"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PaymentResult string `mapstructure:"payment_result"`
}

// FeedConfig describes the aggregator transaction feed.
type FeedConfig struct {
	DefaultURLTemplate string `mapstructure:"default_url_template"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	PageSize           int    `mapstructure:"page_size"`
}

func (c FeedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type BusinessConfig struct {
	ActivationAmount       int64  `mapstructure:"activation_amount"`
	TransferNotePrefix     string `mapstructure:"transfer_note_prefix"`
	QRBaseURL              string `mapstructure:"qr_base_url"`
	CheckCooldownSeconds   int    `mapstructure:"check_cooldown_seconds"`
	CooldownBackend        string `mapstructure:"cooldown_backend"` // redis | memory
	SweepLookbackHours     int    `mapstructure:"sweep_lookback_hours"`
	SyncIntervalSeconds    int    `mapstructure:"sync_interval_seconds"`
	RequestExpireHours     int    `mapstructure:"request_expire_hours"`
	RematchLookbackHours   int    `mapstructure:"rematch_lookback_hours"`
	RematchIntervalSeconds int    `mapstructure:"rematch_interval_seconds"`
	MaxRetryCount          int    `mapstructure:"max_retry_count"`
}

func (c BusinessConfig) CheckCooldown() time.Duration {
	return time.Duration(c.CheckCooldownSeconds) * time.Second
}

func (c BusinessConfig) SweepLookback() time.Duration {
	return time.Duration(c.SweepLookbackHours) * time.Hour
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	cfg := &Config{}
	v := viper.New()
	setDefaults(v)
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("mysql.host", "127.0.0.1")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("kafka.topic.payment_result", "payment.succeeded")

	v.SetDefault("feed.default_url_template",
		"https://apiv2.thiennguyen.app/api/v2/bank-account-transaction/{account_no}/transactionsV2")
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("feed.page_size", 20)

	v.SetDefault("business.activation_amount", 10000)
	v.SetDefault("business.transfer_note_prefix", "HOCTUTHIEN")
	v.SetDefault("business.qr_base_url", "https://img.vietqr.io/image")
	v.SetDefault("business.check_cooldown_seconds", 30)
	v.SetDefault("business.cooldown_backend", "redis")
	v.SetDefault("business.sweep_lookback_hours", 24)
	v.SetDefault("business.sync_interval_seconds", 60)
	v.SetDefault("business.request_expire_hours", 0)
	v.SetDefault("business.rematch_lookback_hours", 0)
	v.SetDefault("business.rematch_interval_seconds", 300)
	v.SetDefault("business.max_retry_count", 5)

	v.SetDefault("log.level", "info")
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("HOCTUTHIEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return config, nil
}
