package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type ServerConf struct {
	ReadTimeoutSeconds     int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

type DBConf struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type JWTConf struct {
	Secret            string `mapstructure:"secret"`
	AccessTTLMinutes  int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLMinutes int    `mapstructure:"refresh_ttl_minutes"`
}

type RequestLogConf struct {
	Path string `mapstructure:"path"`
}

type RateLimitConf struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type RedisConf struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type CORSConf struct {
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

type Config struct {
	App        AppConf        `mapstructure:"app"`
	Server     ServerConf     `mapstructure:"server"`
	DB         DBConf         `mapstructure:"db"`
	JWT        JWTConf        `mapstructure:"jwt"`
	RequestLog RequestLogConf `mapstructure:"request_log"`
	RateLimit  RateLimitConf  `mapstructure:"ratelimit"`
	Redis      RedisConf      `mapstructure:"redis"`
	CORS       CORSConf       `mapstructure:"cors"`

	// derived
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
}

var defaults = map[string]any{
	"app.env":                         "production",
	"app.port":                        8084,
	"server.read_timeout_seconds":     15,
	"server.write_timeout_seconds":    15,
	"server.shutdown_timeout_seconds": 10,
	"db.driver":                       "mysql",
	"db.dsn":                          "",
	"jwt.secret":                      "",
	"jwt.access_ttl_minutes":          60,
	"jwt.refresh_ttl_minutes":         24 * 60,
	"request_log.path":                "requests.log",
	"ratelimit.per_minute":            600,
	"ratelimit.burst":                 20,
	"redis.addr":                      "",
	"redis.password":                  "",
	"redis.db":                        0,
	"redis.prefix":                    "chats:ratelimit",
	"cors.allowed_origins":            "*",
}

// Load reads the optional config file at path, then lets environment variables
// override every key (app.port -> APP_PORT, db.dsn -> DB_DSN, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	cfg.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	cfg.ShutdownTimeout = time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
	cfg.AccessTTL = time.Duration(cfg.JWT.AccessTTLMinutes) * time.Minute
	cfg.RefreshTTL = time.Duration(cfg.JWT.RefreshTTLMinutes) * time.Minute
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("DB_DSN is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.DB.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		errs = append(errs, errors.New("DB_DRIVER must be one of mysql, postgres, sqlite"))
	}
	return errors.Join(errs...)
}

func (c *Config) Development() bool {
	return c.App.Env == "development"
}

// Origins splits the comma separated CORS origin list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORS.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
