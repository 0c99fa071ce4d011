package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     int    `env:"PORT" envDefault:"8000"`
	HTTPAddr string `env:"HTTP_ADDR"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	TurnCooldown         time.Duration `env:"TURN_COOLDOWN" envDefault:"0s"`
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"1h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	SubscriberBacklog    int           `env:"SUBSCRIBER_BACKLOG" envDefault:"256"`
	AgentMoveDelay       time.Duration `env:"AGENT_MOVE_DELAY" envDefault:"300ms"`
	ResultTTL            time.Duration `env:"RESULT_TTL" envDefault:"24h"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	MessagesDir    string   `env:"MESSAGES_DIR"`
}

// Addr is HTTP_ADDR when set, otherwise ":<PORT>".
func (c *AppConfig) Addr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	return fmt.Sprintf(":%d", c.Port)
}

// Load reads an optional .env (ENV_FILE overrides the path) and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*AppConfig, error) {
	path := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.RabbitMQURL = strings.TrimSpace(cfg.RabbitMQURL)
	cfg.MessagesDir = strings.TrimSpace(cfg.MessagesDir)
	cfg.AllowedOrigins = trimList(cfg.AllowedOrigins)
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.HTTPAddr == "" && (c.Port <= 0 || c.Port > 65535) {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	if c.TurnCooldown < 0 {
		return errors.New("TURN_COOLDOWN must not be negative")
	}
	if c.SessionIdleTTL < 0 {
		return errors.New("SESSION_IDLE_TTL must not be negative")
	}
	if c.SessionIdleTTL > 0 && c.SessionSweepInterval <= 0 {
		return errors.New("SESSION_SWEEP_INTERVAL must be positive when SESSION_IDLE_TTL is set")
	}
	if c.SubscriberBacklog < 0 {
		return errors.New("SUBSCRIBER_BACKLOG must not be negative")
	}
	if c.AgentMoveDelay < 0 {
		return errors.New("AGENT_MOVE_DELAY must not be negative")
	}
	if c.ResultTTL < 0 {
		return errors.New("RESULT_TTL must not be negative")
	}
	return nil
}

func trimList(in []string) []string {
	out := in[:0]
	for _, p := range in {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
