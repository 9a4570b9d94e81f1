package access

import (
	"context"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
	"github.com/iamwavecut/gatebot/internal/i18n"
)

// Handler routes /start payloads and retry buttons to the Dispatcher.
type Handler struct {
	*base.BaseHandler
	dispatcher *Dispatcher
}

func NewHandler(s bot.Service, dispatcher *Dispatcher) *Handler {
	return &Handler{
		BaseHandler: base.NewBaseHandler(s, "access"),
		dispatcher:  dispatcher,
	}
}

func (h *Handler) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := h.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}

	switch {
	case u.Message != nil && bot.IsPrivate(chat) && u.Message.IsCommand() && u.Message.Command() == "start":
		_, err := h.dispatcher.HandleAccessRequest(ctx, Request{
			UserID: user.ID,
			ChatID: chat.ID,
			Code:   strings.TrimSpace(u.Message.CommandArguments()),
			Lang:   h.GetLanguage(user),
		})
		return false, err

	case u.CallbackQuery != nil:
		code, ok := codes.ParseRetry(u.CallbackQuery.Data)
		if !ok {
			return true, nil
		}
		return false, h.handleRetry(ctx, u.CallbackQuery, chat, user, code)
	}
	return true, nil
}

// handleRetry re-runs the request with the code carried by the button and replaces
// the previous join prompt with the new answer.
func (h *Handler) handleRetry(ctx context.Context, cq *api.CallbackQuery, chat *api.Chat, user *api.User, code string) error {
	entry := h.GetLogger().WithFields(log.Fields{"method": "handleRetry", "user_id": user.ID})
	lang := h.GetLanguage(user)

	res, err := h.dispatcher.HandleAccessRequest(ctx, Request{
		UserID: user.ID,
		ChatID: chat.ID,
		Code:   code,
		Lang:   lang,
	})
	if err != nil {
		_ = bot.AnswerCallback(h.GetService().GetBot(), cq.ID, "", false)
		return err
	}

	toast := ""
	if res.Outcome == StateDenied {
		toast = i18n.Get("You have not joined every channel yet.", lang)
	}
	if err := bot.AnswerCallback(h.GetService().GetBot(), cq.ID, toast, res.Outcome == StateDenied); err != nil {
		entry.WithField("error", err.Error()).Warn("cant answer callback")
	}

	if cq.Message != nil {
		if err := bot.DeleteChatMessage(ctx, h.GetService().GetBot(), chat.ID, cq.Message.MessageID); err != nil {
			entry.WithField("error", err.Error()).Debug("cant delete previous prompt")
		}
	}
	return nil
}
