package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/settings"
)

// Client is the part of the Telegram Bot API the handlers use. *api.BotAPI satisfies it.
type Client interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
	GetChat(config api.ChatInfoConfig) (api.ChatFullInfo, error)
	CopyMessage(config api.CopyMessageConfig) (api.MessageID, error)
}

// UpdatesSource is polled by the Poller. *api.BotAPI satisfies it.
type UpdatesSource interface {
	GetUpdates(config api.UpdateConfig) ([]api.Update, error)
}

type ServiceBot interface {
	GetBot() Client
}

// Service bundles what every handler needs.
type Service interface {
	ServiceBot
	GetSettings() *settings.Store
	GetConfig() config.Config
	IsOperator(userID int64) bool
	BotUsername() string
}

// Handler defines the interface for all update handlers in the system
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
