package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: "9090"
redis:
  addr: "localhost:6379"
  ttl: "5m"
quiz:
  answer_timeout: "20s"
  max_questions: 10
  default_policy: owner
generator:
  backend: static
  openai:
    model: gpt-4o-mini
discord:
  token: from-file
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DISCORD_TOKEN", "from-env")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected yaml values %+v", cfg)
	}
	if cfg.Discord.Token != "from-env" || cfg.Generator.OpenAI.APIKey != "sk-test" {
		t.Fatalf("expected env overrides, got token=%q key=%q", cfg.Discord.Token, cfg.Generator.OpenAI.APIKey)
	}
	if cfg.Quiz.MaxQuestions != 10 || cfg.Quiz.DefaultPolicy != "owner" || cfg.Generator.OpenAI.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected quiz config %+v", cfg.Quiz)
	}
	if got := TTLDuration(cfg.Quiz.AnswerTimeout, time.Second); got != 20*time.Second {
		t.Fatalf("unexpected timeout %v", got)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://quiz@localhost/quiz")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.URL != "postgres://quiz@localhost/quiz" {
		t.Fatalf("expected env value, got %q", cfg.Postgres.URL)
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := TTLDuration("soon", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback for invalid value, got %v", got)
	}
}
