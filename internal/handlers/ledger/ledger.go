// Package ledger remembers every user who talks to the bot in private.
package ledger

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
)

type ledgerStore interface {
	InsertUserIfAbsent(ctx context.Context, user *db.User) (bool, error)
}

type Ledger struct {
	*base.BaseHandler
	store ledgerStore
}

func NewLedger(s bot.Service, store ledgerStore) *Ledger {
	return &Ledger{
		BaseHandler: base.NewBaseHandler(s, "ledger"),
		store:       store,
	}
}

// Handle records the sender and always lets the update continue. Storage errors
// are logged only; they must not block access.
func (l *Ledger) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := l.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	if !bot.IsPrivate(chat) || user.IsBot {
		return true, nil
	}
	if u.Message == nil && u.CallbackQuery == nil {
		return true, nil
	}

	created, err := l.store.InsertUserIfAbsent(ctx, &db.User{
		ID:        user.ID,
		Username:  user.UserName,
		FirstName: user.FirstName,
	})
	if err != nil {
		l.GetLogger().WithFields(log.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Warn("cant record user")
		return true, nil
	}
	if created {
		l.GetLogger().WithField("user_id", user.ID).Debug("new user recorded")
	}
	return true, nil
}
