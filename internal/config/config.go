package config

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/sethvargo/go-envconfig"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "FSUB_"

type (
	Config struct {
		TelegramAPIToken string   `env:"TOKEN,required"`
		AdminIDs         []int64  `env:"ADMIN_IDS,required"`
		BotUsername      string   `env:"BOT_USERNAME"`
		DefaultLanguage  string   `env:"LANG,default=en"`
		EnabledHandlers  []string `env:"HANDLERS,default=ledger,moderation,admin,registration,submissions,access"`
		LogLevel         int      `env:"LOG_LEVEL,default=4"`
		DotPath          string   `env:"DOT_PATH,default=~/.gatebot"`
		DBName           string   `env:"DB_NAME,default=media.db"`
		Workers          int      `env:"WORKERS,default=4"`
		Gate             Gate
		Content          Content
		Broadcast        Broadcast
		Observability    Observability
	}

	// Gate holds the seed values of the membership settings. They are written to the
	// settings table only when the keys are absent; operators own them afterwards.
	Gate struct {
		DefaultTargets []string `env:"DEFAULT_TARGETS"`
		JoinLink       string   `env:"JOIN_LINK"`
	}

	Content struct {
		ProtectContent bool   `env:"PROTECT_CONTENT,default=true"`
		BackupChatID   int64  `env:"BACKUP_CHAT"`
		PublishChatID  int64  `env:"PUBLISH_CHAT"`
		LogChatID      int64  `env:"LOG_CHAT"`
		CodePrefix     string `env:"CODE_PREFIX"`
		CodeLength     int    `env:"CODE_LENGTH,default=12"`
	}

	Broadcast struct {
		Rate  float64 `env:"BROADCAST_RATE,default=25"`
		Burst int     `env:"BROADCAST_BURST,default=5"`
	}

	Observability struct {
		MetricsAddr string `env:"METRICS_ADDR"`
		SentryDSN   string `env:"SENTRY_DSN"`
	}
)

var (
	once         sync.Once
	globalConfig = &Config{}
	globalErr    error
)

// Load reads the process configuration once; later calls return the same snapshot.
func Load() (Config, error) {
	once.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Debug("loaded .env file")
		}
		cfg, err := Process(context.Background(), envconfig.OsLookuper())
		if err != nil {
			globalErr = err
			return
		}
		log.Traceln("loaded config")
		globalConfig = cfg
	})
	return *globalConfig, globalErr
}

// Process builds a Config from the given lookuper, applying the FSUB_ prefix.
func Process(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	cfg := &Config{}
	envcfg := envconfig.Config{
		Lookuper: envconfig.PrefixLookuper(envPrefix, lookuper),
		Target:   cfg,
	}
	if err := envconfig.ProcessWith(ctx, &envcfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	dotPath, err := homedir.Expand(cfg.DotPath)
	if err != nil {
		return nil, fmt.Errorf("expand dot path: %w", err)
	}
	cfg.DotPath = dotPath
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("at least one admin id is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Content.CodeLength < 8 || c.Content.CodeLength > 30 {
		return fmt.Errorf("code length must be within 8..30, got %d", c.Content.CodeLength)
	}
	if c.Broadcast.Rate <= 0 {
		return fmt.Errorf("broadcast rate must be positive")
	}
	return nil
}

// IsOperator reports whether the user is one of the configured administrators.
func (c Config) IsOperator(userID int64) bool {
	return slices.Contains(c.AdminIDs, userID)
}
