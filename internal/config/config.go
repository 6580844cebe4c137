package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	NLP     NLPConfig
	Engine  EngineConfig
}

type ServerConfig struct {
	Port     int `validate:"min=1,max=65535"`
	APIToken string
}

type StorageConfig struct {
	DataDir string `validate:"required"`
	Backend string `validate:"oneof=file sqlite"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
	File  string
}

type NLPConfig struct {
	Tagger        string `validate:"oneof=prose none"`
	ThesaurusPath string
}

// EngineConfig.Seed fixes the response randomness when non-zero.
type EngineConfig struct {
	Seed int `validate:"min=0"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Backend: "file",
		},
		Log: LogConfig{
			Level: "info",
		},
		NLP: NLPConfig{
			Tagger: "prose",
		},
	}
}

// Load reads configuration from the JSON config file and environment
// variables. The file lives at $XDG_CONFIG_HOME/sage/config.json; SAGE_*
// environment variables override it. Secrets (server.api_token) are read
// from the environment only.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its allowed values.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
