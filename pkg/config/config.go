package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// EnvPaths are searched in order; the first existing file is loaded
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config holds the settings shared by the CLI and the stub server
type Config struct {
	APIURL      string        `env:"TIMESHEET_API_URL" envDefault:"http://localhost:8000/api"`
	Username    string        `env:"TIMESHEET_USERNAME"`
	Password    string        `env:"TIMESHEET_PASSWORD"`
	Token       string        `env:"TIMESHEET_TOKEN"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	Port        string        `env:"PORT" envDefault:"8000"`
	JWTSecret   string        `env:"JWT_SECRET"`
	AdminPass   string        `env:"ADMIN_PASSWORD" envDefault:"admin"`
	ExportDir   string        `env:"EXPORT_DIR" envDefault:"."`
	GinMode     string        `env:"GIN_MODE"`
}

// LoadEnvFile loads the first .env file found in paths and returns its path
func LoadEnvFile(paths []string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", errors.Wrapf(err, "load %s", p)
		}
		return p, nil
	}
	return "", nil
}

// Load reads the .env file, if any, then parses the environment
func Load() (*Config, error) {
	if _, err := LoadEnvFile(EnvPaths); err != nil {
		return nil, err
	}
	return Parse()
}

// Parse reads the process environment only
func Parse() (*Config, error) {
	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if c.HTTPTimeout <= 0 {
		return nil, errors.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return c, nil
}

// Logger builds a logrus logger at the configured level
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.Wrap(err, "LOG_LEVEL")
	}
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l, nil
}
