package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Supabase  SupabaseConfig  `yaml:"supabase"`
	Log       LogConfig       `yaml:"log"`
	Redis     RedisConfig     `yaml:"redis"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	// SimpleProtocol is needed behind transaction-mode poolers.
	SimpleProtocol bool `yaml:"simple_protocol"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// SupabaseConfig points at the hosted backend used for sign-in and account removal.
// Both fields empty disables those endpoints.
type SupabaseConfig struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
}

type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	Stdout    bool   `yaml:"stdout"`
}

// RedisConfig enables login rate limiting when Addr is set.
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LoginPerMinute int    `yaml:"login_per_minute"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DSN returns a PostgreSQL connection string. An explicit URL wins.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix FITLOG_ and underscore-separated paths:
//
//	FITLOG_SERVER_HOST, FITLOG_SERVER_PORT, FITLOG_SERVER_STATIC_DIR,
//	FITLOG_DB_URL, FITLOG_DB_HOST, FITLOG_DB_PORT, FITLOG_DB_NAME,
//	FITLOG_DB_USER, FITLOG_DB_PASSWORD, FITLOG_DB_SSLMODE, FITLOG_DB_SIMPLE_PROTOCOL,
//	FITLOG_AUTH_JWT_SECRET, FITLOG_SUPABASE_URL, FITLOG_SUPABASE_ANON_KEY,
//	FITLOG_LOG_LEVEL, FITLOG_LOG_FORMAT, FITLOG_LOG_FILE,
//	FITLOG_REDIS_ADDR, FITLOG_REDIS_PASSWORD,
//	FITLOG_CORS_ALLOWED_ORIGINS (comma separated)
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	str("FITLOG_SERVER_HOST", &cfg.Server.Host)
	num("FITLOG_SERVER_PORT", &cfg.Server.Port)
	str("FITLOG_SERVER_STATIC_DIR", &cfg.Server.StaticDir)

	str("FITLOG_DB_URL", &cfg.Database.URL)
	str("FITLOG_DB_HOST", &cfg.Database.Host)
	num("FITLOG_DB_PORT", &cfg.Database.Port)
	str("FITLOG_DB_NAME", &cfg.Database.Name)
	str("FITLOG_DB_USER", &cfg.Database.User)
	str("FITLOG_DB_PASSWORD", &cfg.Database.Password)
	str("FITLOG_DB_SSLMODE", &cfg.Database.SSLMode)
	if v := os.Getenv("FITLOG_DB_SIMPLE_PROTOCOL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.SimpleProtocol = b
		}
	}

	str("FITLOG_AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("FITLOG_SUPABASE_URL", &cfg.Supabase.URL)
	str("FITLOG_SUPABASE_ANON_KEY", &cfg.Supabase.AnonKey)

	str("FITLOG_LOG_LEVEL", &cfg.Log.Level)
	str("FITLOG_LOG_FORMAT", &cfg.Log.Format)
	str("FITLOG_LOG_FILE", &cfg.Log.File)

	str("FITLOG_REDIS_ADDR", &cfg.Redis.Addr)
	str("FITLOG_REDIS_PASSWORD", &cfg.Redis.Password)

	if v := os.Getenv("FITLOG_CORS_ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.CORS.AllowedOrigins = origins
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 50
	}
	if c.Redis.LoginPerMinute == 0 {
		c.Redis.LoginPerMinute = 10
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = "fitlog"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.URL == "" {
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required")
		}
		if c.Database.Port == 0 {
			return fmt.Errorf("database.port is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("database.name is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required")
		}
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if (c.Supabase.URL == "") != (c.Supabase.AnonKey == "") {
		return fmt.Errorf("supabase.url and supabase.anon_key must be set together")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
