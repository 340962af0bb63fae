package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	DB     DBConfig     `mapstructure:"db"`
	Cron   CronConfig   `mapstructure:"cron"`
	Jobber JobberConfig `mapstructure:"jobber"`
	OAuth  OAuthConfig  `mapstructure:"oauth"`
	Sync   SyncConfig   `mapstructure:"sync"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	AccountID string `mapstructure:"account_id"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sync    string `mapstructure:"sync"`
}

type JobberConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIVersion string        `mapstructure:"api_version"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type OAuthConfig struct {
	TokenURL        string        `mapstructure:"token_url"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	ExpiryBuffer    time.Duration `mapstructure:"expiry_buffer"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type SyncConfig struct {
	PageSize             int           `mapstructure:"page_size"`
	MaxPages             int           `mapstructure:"max_pages"`
	MaxConsecutiveErrors int           `mapstructure:"max_consecutive_errors"`
	MinThrottleWait      time.Duration `mapstructure:"min_throttle_wait"`
	ThrottleSafetyMargin time.Duration `mapstructure:"throttle_safety_margin"`
	MinPageDelay         time.Duration `mapstructure:"min_page_delay"`
	MaxPageDelay         time.Duration `mapstructure:"max_page_delay"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.account_id", "default")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.sync", "@every 30m")
	v.SetDefault("jobber.base_url", "https://api.getjobber.com")
	v.SetDefault("jobber.api_version", "2023-11-15")
	v.SetDefault("jobber.timeout", "30s")
	v.SetDefault("oauth.token_url", "https://api.getjobber.com/api/oauth/token")
	v.SetDefault("oauth.expiry_buffer", "5m")
	v.SetDefault("oauth.refresh_token_ttl", "720h")
	v.SetDefault("sync.page_size", 50)
	v.SetDefault("sync.max_pages", 50)
	v.SetDefault("sync.max_consecutive_errors", 10)
	v.SetDefault("sync.min_throttle_wait", "2s")
	v.SetDefault("sync.throttle_safety_margin", "1s")
	v.SetDefault("sync.min_page_delay", "250ms")
	v.SetDefault("sync.max_page_delay", "5s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
