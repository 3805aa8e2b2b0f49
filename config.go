package connmgr

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	// DefaultPort is the port Redis listens on out of the box.
	DefaultPort = 6379

	// DefaultShutdownTimeout bounds how long the shutdown hook waits for the
	// connection to close.
	DefaultShutdownTimeout = 5 * time.Second
)

// Environment identifies the runtime environment the process is deployed to.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// IsProduction reports whether the environment is production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// Verbose reports whether diagnostics should carry stack traces. Every
// environment other than production is verbose.
func (e Environment) Verbose() bool {
	return !e.IsProduction()
}

// Flag is a boolean that is only true for the literal text "true". Any other
// value, including "1" or "TRUE", is false and never an error.
type Flag bool

func (f *Flag) UnmarshalText(text []byte) error {
	*f = string(text) == "true"
	return nil
}

// Config holds the parameters required to connect to Redis.
//
// Host, Port, and Password are required. A Config missing any of them is
// invalid and disables caching rather than failing.
type Config struct {
	Host            string        `env:"REDIS_HOST"`
	Port            int           `env:"REDIS_PORT"`
	Username        string        `env:"REDIS_USERNAME"`
	Password        string        `env:"REDIS_PASSWORD"`
	Database        int           `env:"REDIS_DB"`
	TLSEnabled      Flag          `env:"REDIS_TLS_ENABLED"`
	Environment     Environment   `env:"APP_ENV"`
	ShutdownTimeout time.Duration `env:"REDIS_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// DefaultConfig returns a Config pointing at a local Redis on the default port.
// The password still has to be provided for the Config to be valid.
func DefaultConfig() Config {
	return Config{
		Host:            "127.0.0.1",
		Port:            DefaultPort,
		Environment:     Development,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
	}
}

// ConfigFromEnv reads the Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse redis config: %w", err)
	}
	return cfg, nil
}

// ConfigFromMap reads the Config from vars instead of the process environment.
func ConfigFromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return cfg, fmt.Errorf("parse redis config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given dotenv files into the process
// environment. Files that don't exist are skipped and variables already set in
// the environment are never overwritten.
func LoadDotEnv(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load dotenv files: %w", err)
	}
	return nil
}

// Addr returns the host:port address of the Redis server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// TLSConfig returns the TLS configuration for the connection, or nil when TLS
// is disabled.
func (c Config) TLSConfig() *tls.Config {
	if !c.TLSEnabled {
		return nil
	}
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: c.Host,
	}
}

// Validate checks the Config and returns Valid when every required field is
// present, otherwise Invalid listing what is missing.
func (c Config) Validate() Settings {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "REDIS_HOST")
	}
	if c.Port == 0 {
		missing = append(missing, "REDIS_PORT")
	}
	if c.Password == "" {
		missing = append(missing, "REDIS_PASSWORD")
	}
	if len(missing) > 0 {
		return Invalid{Missing: missing}
	}
	if c.Port < 0 || c.Port > 65535 {
		return Invalid{Err: fmt.Errorf("redis port %d out of range", c.Port)}
	}
	return Valid{Config: c}
}

// Settings is the outcome of validating a Config. It is either Valid or
// Invalid.
type Settings interface {
	settings()
}

// Valid carries a Config that can be used to connect.
type Valid struct {
	Config Config
}

func (Valid) settings() {}

// Invalid describes why a Config cannot be used. Missing lists the absent
// environment variables and Err holds any parse or range error.
type Invalid struct {
	Missing []string
	Err     error
}

func (Invalid) settings() {}

func (i Invalid) Error() string {
	if i.Err != nil {
		return i.Err.Error()
	}
	return fmt.Sprintf("missing %v", i.Missing)
}
