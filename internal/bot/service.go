package bot

import (
	"strings"

	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/settings"
)

type service struct {
	bot      Client
	settings *settings.Store
	cfg      config.Config
	username string
}

// NewService wires the shared dependencies. username is the bot's @name used in deep links.
func NewService(bot Client, store *settings.Store, cfg config.Config, username string) *service {
	if username == "" {
		username = cfg.BotUsername
	}
	return &service{
		bot:      bot,
		settings: store,
		cfg:      cfg,
		username: strings.TrimPrefix(username, "@"),
	}
}

func (s *service) GetBot() Client {
	return s.bot
}

func (s *service) GetSettings() *settings.Store {
	return s.settings
}

func (s *service) GetConfig() config.Config {
	return s.cfg
}

func (s *service) IsOperator(userID int64) bool {
	return s.cfg.IsOperator(userID)
}

func (s *service) BotUsername() string {
	return s.username
}
