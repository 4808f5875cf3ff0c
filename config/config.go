package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/gommon/bytes"
)

type Config struct {
	HttpPort uint16 `envconfig:"TIDEPOOL_INTAKE_HTTP_PORT" default:"7000" required:"true"`

	// CorsAllowedOrigins is a comma separated list of origins, "*" allows any origin
	CorsAllowedOrigins []string `envconfig:"TIDEPOOL_INTAKE_CORS_ALLOWED_ORIGINS" default:"*"`

	JsonBodyLimit    string `envconfig:"TIDEPOOL_INTAKE_JSON_BODY_LIMIT" default:"50M"`
	UploadLimitBytes int64  `envconfig:"TIDEPOOL_INTAKE_UPLOAD_LIMIT_BYTES" default:"41943040"`
}

func New() *Config {
	return &Config{}
}

func NewConfig() (*Config, error) {
	cfg := New()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromEnv() error {
	if err := envconfig.Process("", c); err != nil {
		return err
	}
	for i, origin := range c.CorsAllowedOrigins {
		c.CorsAllowedOrigins[i] = strings.TrimSpace(origin)
	}
	if _, err := bytes.Parse(c.JsonBodyLimit); err != nil {
		return fmt.Errorf("invalid json body limit %q: %w", c.JsonBodyLimit, err)
	}
	if c.UploadLimitBytes <= 0 {
		return fmt.Errorf("upload limit must be positive")
	}
	return nil
}

func (c *Config) ServerAddress() string {
	return fmt.Sprintf(":%d", c.HttpPort)
}
