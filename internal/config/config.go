package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	CookieName   string
	CookieSecret string
	CookieSecure bool
	TTL          time.Duration
}

// IdentityConfig points at the SteemConnect-compatible identity service used
// to confirm bearer tokens and posting delegations.
type IdentityConfig struct {
	BaseURL        string
	Timeout        time.Duration
	ServiceAccount string
}

// SteemConfig drives the external publisher. When Enabled is false no
// network call is made and permlinks are synthesized locally.
type SteemConfig struct {
	Enabled             bool
	BroadcastURL        string
	AccessToken         string
	Timeout             time.Duration
	Community           string
	AppID               string
	BaseTag             string
	MaxAcceptedPayout   string
	PercentSteemDollars int
	BeneficiaryAccount  string
	BeneficiaryWeight   int
	FallbackImageURL    string
	ContentBaseURL      string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Session          SessionConfig
	Identity         IdentityConfig
	Steem            SteemConfig
	AllowCORSOrigins []string
}

func Load() (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BLOCKDEALS")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("session.cookiename", "blockdeals_session")
	v.SetDefault("session.cookiesecure", false)
	v.SetDefault("session.ttl", "168h") // 7 days

	v.SetDefault("identity.baseurl", "https://v2.steemconnect.com")
	v.SetDefault("identity.timeout", "10s")
	v.SetDefault("identity.serviceaccount", "blockdeals")

	v.SetDefault("steem.enabled", false)
	v.SetDefault("steem.timeout", "10s")
	v.SetDefault("steem.community", "blockdeals")
	v.SetDefault("steem.appid", "blockdeals/1.0.0")
	v.SetDefault("steem.basetag", "blockdeals")
	v.SetDefault("steem.maxacceptedpayout", "1000000.000 SBD")
	v.SetDefault("steem.percentsteemdollars", 10000)
	v.SetDefault("steem.beneficiaryaccount", "blockdeals")
	v.SetDefault("steem.beneficiaryweight", 1000)
	v.SetDefault("steem.fallbackimageurl", "https://blockdeals.org/assets/images/logo_round.png")
	v.SetDefault("steem.contentbaseurl", "https://steemit.com")
}
