package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "HTTP_ADDR", "REDIS_URL", "DATABASE_URL", "RABBITMQ_URL", "TURN_COOLDOWN",
		"SESSION_IDLE_TTL", "SESSION_SWEEP_INTERVAL", "SUBSCRIBER_BACKLOG", "AGENT_MOVE_DELAY",
		"RESULT_TTL", "ALLOWED_ORIGINS", "MESSAGES_DIR",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 8000 || cfg.Addr() != ":8000" {
		t.Fatalf("port = %d addr = %s", cfg.Port, cfg.Addr())
	}
	if cfg.TurnCooldown != 0 || cfg.SessionIdleTTL != time.Hour || cfg.SubscriberBacklog != 256 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.AgentMoveDelay != 300*time.Millisecond || cfg.ResultTTL != 24*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadReadsDotEnvAndEnvironmentWins(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "test.env")
	body := "PORT=9100\nTURN_COOLDOWN=2s\nALLOWED_ORIGINS=http://a.test, http://b.test\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("ENV_FILE", path)
	t.Setenv("PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9200 {
		t.Fatalf("environment should win, port = %d", cfg.Port)
	}
	if cfg.TurnCooldown != 2*time.Second {
		t.Fatalf("cooldown = %v", cfg.TurnCooldown)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("origins = %q", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":               "70000",
		"TURN_COOLDOWN":      "-1s",
		"SUBSCRIBER_BACKLOG": "-3",
		"SESSION_IDLE_TTL":   "soon",
	}
	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			isolate(t)
			t.Setenv(k, v)
			if _, err := Load(); err == nil {
				t.Fatalf("%s=%s accepted", k, v)
			}
		})
	}
}

func TestHTTPAddrOverridesPort(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_ADDR", "127.0.0.1:0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:0" {
		t.Fatalf("Addr = %s", cfg.Addr())
	}
}
