package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gpfimport/internal/gpf"
)

// DataDirEnv names the environment variable consulted when neither the
// config file nor the command line sets a data directory.
const DataDirEnv = "SOCET_DATA_DIR"

type Config struct {
	// DataDir is the SOCET SET data directory holding one folder per project.
	DataDir    string    `yaml:"data_dir"`
	UseBox     bool      `yaml:"use_box"`
	BestEffort bool      `yaml:"best_effort"`
	Accuracy   gpf.Vec3  `yaml:"accuracy"`
	Offset     gpf.Vec3  `yaml:"offset"`
	Log        LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	_ = DefaultAndValidate(&cfg)
	return cfg
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}

	if err := DefaultAndValidate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultAndValidate fills unset fields and rejects invalid ones.
func DefaultAndValidate(cfg *Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = os.Getenv(DataDirEnv)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "."
	}

	if cfg.Accuracy == (gpf.Vec3{}) {
		cfg.Accuracy = gpf.DefaultLayout().Accuracy
	}
	if cfg.Accuracy.X <= 0 || cfg.Accuracy.Y <= 0 || cfg.Accuracy.Z <= 0 {
		return fmt.Errorf("accuracy.x, accuracy.y and accuracy.z must be > 0")
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	switch cfg.Log.Level {
	case "":
		cfg.Log.Level = "info"
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}

	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	switch cfg.Log.Format {
	case "":
		cfg.Log.Format = "text"
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Layout is the per-entry accuracy and offset to write.
func (c Config) Layout() gpf.Layout {
	return gpf.Layout{Accuracy: c.Accuracy, Offset: c.Offset}
}
