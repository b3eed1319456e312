package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr" env:"REDIS_ADDR"`
		Password string `yaml:"password" env:"REDIS_PASSWORD"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// InstanceID names this process in channel markers; defaults to the hostname.
		InstanceID string `yaml:"instance_id" env:"INSTANCE_ID"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url" env:"DATABASE_URL"`
	} `yaml:"postgres"`
	Quiz struct {
		AnswerTimeout string `yaml:"answer_timeout"`
		MaxQuestions  int    `yaml:"max_questions"`
		DefaultPolicy string `yaml:"default_policy"`
	} `yaml:"quiz"`
	Generator struct {
		Backend string `yaml:"backend" env:"GENERATOR_BACKEND"`
		BankTTL string `yaml:"bank_ttl"`
		OpenAI  struct {
			APIKey  string `yaml:"api_key" env:"OPENAI_API_KEY"`
			Model   string `yaml:"model" env:"OPENAI_MODEL"`
			BaseURL string `yaml:"base_url" env:"OPENAI_BASE_URL"`
		} `yaml:"openai"`
	} `yaml:"generator"`
	Discord struct {
		Token string `yaml:"token" env:"DISCORD_TOKEN"`
	} `yaml:"discord"`
}

// Load reads YAML config from path, then applies environment overrides.
// A .env file in the working directory is loaded first when present.
// A missing YAML file is allowed so deployments can configure through env alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	// non-fatal if missing
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
