package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Throttle   ThrottleConfig   `yaml:"throttle"`
	Server     ServerConfig     `yaml:"server"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

// ThrottleConfig holds the duplicate-suppression windows for creation commands.
type ThrottleConfig struct {
	ItemWindow      time.Duration `yaml:"itemWindow" validate:"gte=0"`
	SubEntityWindow time.Duration `yaml:"subEntityWindow" validate:"gte=0"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr" validate:"required,hostname_port"`
	AssetsDir string `yaml:"assetsDir"`
}

type GenerationConfig struct {
	ImageModel        string `yaml:"imageModel" validate:"required"`
	ImageSize         string `yaml:"imageSize" validate:"oneof=256x256 512x512 1024x1024 1792x1024 1024x1792"`
	SpeechModel       string `yaml:"speechModel" validate:"required"`
	Voice             string `yaml:"voice" validate:"required"`
	RequestsPerMinute int    `yaml:"requestsPerMinute" validate:"gte=0"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

func DefaultConfig() Config {
	return Config{
		Throttle: ThrottleConfig{
			ItemWindow:      5 * time.Second,
			SubEntityWindow: 800 * time.Millisecond,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8787"},
		Generation: GenerationConfig{
			ImageModel:        "dall-e-3",
			ImageSize:         "1024x1024",
			SpeechModel:       "tts-1",
			Voice:             "alloy",
			RequestsPerMinute: 20,
		},
		Log: LogConfig{Level: "info"},
	}
}

var configValidate = validator.New()

func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.canvas).
	if v := strings.TrimSpace(os.Getenv("CANVAS_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".canvas"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDir is where snapshots live when --dir is not given.
func DefaultDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "canvas"), nil
}

// LoadConfig reads path on top of the defaults. A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}
