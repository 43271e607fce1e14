// Package config holds the CLI settings: backend location, local storage
// and message/log presentation.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"medequip/internal/shared/konfig"
	"medequip/internal/shared/logs"
)

const (
	EnvPrefix      = "MEDEQUIP_"
	DefaultURL     = "http://localhost:8001/api"
	DefaultTimeout = 15 * time.Second
	DefaultDirName = ".medequip"
)

type Config struct {
	Server struct {
		URL     string        `koanf:"url" validate:"required,url"`
		Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
	} `koanf:"server"`
	Storage struct {
		Dir string `koanf:"dir" validate:"required"`
	} `koanf:"storage"`
	Messages struct {
		TTL time.Duration `koanf:"ttl" validate:"gt=0"`
	} `koanf:"messages"`
	Log logs.Config `koanf:"log"`
}

func Default() Config {
	var cfg Config
	cfg.Server.URL = DefaultURL
	cfg.Server.Timeout = DefaultTimeout
	cfg.Storage.Dir = defaultDir()
	cfg.Messages.TTL = 5 * time.Second
	cfg.Log = logs.Config{Level: "info", Pretty: true}
	return cfg
}

// DefaultFile is <storage dir>/config.yaml.
func DefaultFile() string { return filepath.Join(defaultDir(), "config.yaml") }

// Load reads path (optional unless explicit is set) and MEDEQUIP_*
// variables over the defaults.
func Load(path string, explicit bool) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile()
	}
	if err := konfig.Load(&cfg, konfig.Options{File: path, Required: explicit, EnvPrefix: EnvPrefix}); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, errors.Wrap(err, "invalid client config")
	}
	return cfg, nil
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}
