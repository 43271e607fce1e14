package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"medequip/internal/shared/konfig"
	"medequip/internal/shared/logs"
)

const (
	EnvPrefix = "MEDEQUIPD_"
	// DevJWTSecret is only meant for local runs; the server warns when it
	// is in use.
	DevJWTSecret = "dev-secret-change"
)

type Config struct {
	HTTP struct {
		Addr            string `koanf:"addr" validate:"required"`
		MaxRequestBytes int64  `koanf:"maxRequestBytes" validate:"gte=0"`
	} `koanf:"http"`
	Database struct {
		DSN string `koanf:"dsn" validate:"required"`
	} `koanf:"database"`
	Auth struct {
		JWTSecret string        `koanf:"jwtSecret" validate:"required"`
		TokenTTL  time.Duration `koanf:"tokenTTL" validate:"gt=0"`
	} `koanf:"auth"`
	Log logs.Config `koanf:"log"`
}

func Default() Config {
	var cfg Config
	cfg.HTTP.Addr = ":8001"
	cfg.HTTP.MaxRequestBytes = 1 << 20
	cfg.Database.DSN = "file:medequip.db?cache=shared&mode=rwc"
	cfg.Auth.JWTSecret = DevJWTSecret
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Log = logs.Config{Level: "info"}
	return cfg
}

// Load applies the optional YAML file at path and MEDEQUIPD_* variables
// over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if err := konfig.Load(&cfg, konfig.Options{File: path, EnvPrefix: EnvPrefix}); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid server config")
	}
	return &cfg, nil
}

func (c *Config) UsesDevSecret() bool { return c.Auth.JWTSecret == DevJWTSecret }
