package base

import (
	"errors"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/i18n"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	service bot.Service
	logger  *log.Entry
}

func NewBaseHandler(service bot.Service, handlerName string) *BaseHandler {
	return &BaseHandler{
		service: service,
		logger:  log.WithField("handler", handlerName),
	}
}

func (h *BaseHandler) GetService() bot.Service {
	return h.service
}

func (h *BaseHandler) GetLogger() *log.Entry {
	return h.logger
}

// ValidateUpdate performs common update validation
func (h *BaseHandler) ValidateUpdate(u *api.Update, chat *api.Chat, user *api.User) error {
	if u == nil {
		return ErrNilUpdate
	}
	if chat == nil || user == nil {
		return ErrNilChatOrUser
	}
	return nil
}

// GetLanguage picks the user's client language when translations exist for it,
// otherwise the configured default.
func (h *BaseHandler) GetLanguage(user *api.User) string {
	if user != nil && user.LanguageCode != "" && i18n.IsSupported(user.LanguageCode) {
		return user.LanguageCode
	}
	return h.service.GetConfig().DefaultLanguage
}

// IsOperator reports whether user is a configured administrator.
func (h *BaseHandler) IsOperator(user *api.User) bool {
	return user != nil && h.service.IsOperator(user.ID)
}

var (
	ErrNilUpdate     = errors.New("nil update")
	ErrNilChatOrUser = errors.New("nil chat or user")
)
