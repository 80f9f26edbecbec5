package config

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreSQLite = "sqlite"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
		Port int
	}
	Log struct {
		Level string
	}
	Database struct {
		Driver          string
		Path            string
		URL             string
		Host            string
		Port            int
		User            string
		Password        string
		Name            string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}
	Auth struct {
		JWTSecret     string
		SessionSecret string
	}
	Session struct {
		Store        string
		Path         string
		Lifetime     time.Duration
		SecureCookie bool
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("WEATHERFAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Server.Port > 0 {
		host, _, err := net.SplitHostPort(cfg.Server.Addr)
		if err != nil {
			host = ""
		}
		cfg.Server.Addr = net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("server.port", 0)
	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/weatherfav.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "openweather-app")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxopenconns", 10)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 30*time.Minute)

	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.sessionsecret", "")

	v.SetDefault("session.store", SessionStoreMemory)
	v.SetDefault("session.path", "data/sessions.db")
	v.SetDefault("session.lifetime", 24*time.Hour)
	v.SetDefault("session.securecookie", false)
}

// bindLegacyEnv keeps the variable names of earlier deployments working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":        {"WEATHERFAV_SERVER_PORT", "PORT"},
		"database.password":  {"WEATHERFAV_DATABASE_PASSWORD", "DB_PW"},
		"auth.jwtsecret":     {"WEATHERFAV_AUTH_JWTSECRET", "JWT_SECRET"},
		"auth.sessionsecret": {"WEATHERFAV_AUTH_SESSIONSECRET", "SESSION_SECRET"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreSQLite:
	default:
		return fmt.Errorf("unsupported session store %q", c.Session.Store)
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if strings.TrimSpace(c.Auth.SessionSecret) == "" {
		return fmt.Errorf("auth session secret is required")
	}
	if c.Session.Lifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive")
	}
	return nil
}

// PostgresDSN returns Database.URL or builds one from the discrete fields.
func (c Config) PostgresDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:   "/" + c.Database.Name,
	}
	q := u.Query()
	if c.Database.SSLMode != "" {
		q.Set("sslmode", c.Database.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
