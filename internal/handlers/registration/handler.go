package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/infra"
)

// skipCover typed while the cover is awaited finishes without an image.
const skipCover = "-"

type Registration struct {
	*base.BaseHandler
	sessions  *Sessions
	finalizer *Finalizer
	locks     infra.KeyedMutex
}

func NewRegistration(s bot.Service, sessions *Sessions, finalizer *Finalizer) *Registration {
	return &Registration{
		BaseHandler: base.NewBaseHandler(s, "registration"),
		sessions:    sessions,
		finalizer:   finalizer,
	}
}

func (r *Registration) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := r.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	if u.Message == nil || !bot.IsPrivate(chat) || !r.IsOperator(user) {
		return true, nil
	}
	msg := u.Message
	lang := r.GetLanguage(user)

	r.locks.Lock(user.ID)
	defer r.locks.Unlock(user.ID)

	if msg.IsCommand() {
		if msg.Command() != "cancel" {
			return true, nil
		}
		if err := r.sessions.Clear(ctx, user.ID); err != nil {
			return false, err
		}
		return false, r.reply(chat.ID, i18n.Get("Cancelled.", lang))
	}

	flow, err := r.sessions.Load(ctx, user.ID)
	if err != nil {
		return false, err
	}

	if kind, ref, ok := db.ContentKindOf(msg); ok {
		if flow.State == StateAwaitingCover && kind == db.KindPhoto {
			next, err := flow.SetCover(ref)
			return false, r.advance(ctx, chat.ID, user.ID, lang, next, err)
		}
		return false, r.begin(ctx, chat.ID, user.ID, lang, flow, Attachment{
			Kind:      kind,
			Ref:       ref,
			ChatID:    chat.ID,
			MessageID: msg.MessageID,
		})
	}

	switch flow.State {
	case StateAwaitingTitle:
		next, err := flow.SetTitle(msg.Text)
		return false, r.advance(ctx, chat.ID, user.ID, lang, next, err)
	case StateAwaitingCover:
		if strings.TrimSpace(msg.Text) == skipCover {
			next, err := flow.SetCover("")
			return false, r.advance(ctx, chat.ID, user.ID, lang, next, err)
		}
		return false, r.reply(chat.ID, i18n.Get("Send a cover image, or - to skip it.", lang))
	}
	return true, nil
}

// Start opens a form for operatorID with an attachment that did not come from the
// operator's own upload, such as an approved submission.
func (r *Registration) Start(ctx context.Context, operatorID int64, att Attachment) error {
	r.locks.Lock(operatorID)
	defer r.locks.Unlock(operatorID)

	flow, err := r.sessions.Load(ctx, operatorID)
	if err != nil {
		return err
	}
	next, err := flow.Begin(att)
	if err != nil {
		return err
	}
	if err := r.sessions.Save(ctx, operatorID, next); err != nil {
		return err
	}
	return r.reply(operatorID, i18n.Get("Send the title for this content.", r.GetService().GetConfig().DefaultLanguage))
}

// Cancel drops the operator's open form, if any.
func (r *Registration) Cancel(ctx context.Context, operatorID int64) error {
	r.locks.Lock(operatorID)
	defer r.locks.Unlock(operatorID)
	return r.sessions.Clear(ctx, operatorID)
}

func (r *Registration) begin(ctx context.Context, chatID, operatorID int64, lang string, flow Flow, att Attachment) error {
	next, err := flow.Begin(att)
	if errors.Is(err, ErrRegistrationPending) {
		return r.reply(chatID, i18n.Get("Finish the current registration first, or send /cancel.", lang))
	}
	if err != nil {
		return err
	}
	if err := r.sessions.Save(ctx, operatorID, next); err != nil {
		return err
	}
	return r.reply(chatID, i18n.Get("Send the title for this content.", lang))
}

// advance applies a transition result and, once the form is complete, finalizes it.
func (r *Registration) advance(ctx context.Context, chatID, operatorID int64, lang string, next Flow, err error) error {
	switch {
	case errors.Is(err, ErrEmptyTitle):
		return r.reply(chatID, i18n.Get("The title cannot be empty.", lang))
	case errors.Is(err, ErrTitleTooLong):
		return r.reply(chatID, fmt.Sprintf(i18n.Get("The title is too long, keep it within %d characters.", lang), MaxTitleLength))
	case err != nil:
		return err
	}

	if next.State != StateFinalizing {
		if err := r.sessions.Save(ctx, operatorID, next); err != nil {
			return err
		}
		return r.reply(chatID, i18n.Get("Now send a cover image, or - to skip it.", lang))
	}

	res, finalizeErr := r.finalizer.Finalize(ctx, operatorID, next)
	if err := r.sessions.Clear(ctx, operatorID); err != nil {
		r.GetLogger().WithFields(log.Fields{"operator_id": operatorID, "error": err.Error()}).Error("cant clear registration session")
	}
	if finalizeErr != nil {
		return r.reply(chatID, fmt.Sprintf(i18n.Get("Registration failed: %s", lang), finalizeErr.Error()))
	}

	text := fmt.Sprintf(i18n.Get("Saved.\nCode: %s\nLink: %s", lang), res.Item.Code, res.Link)
	if res.PublishErr != nil {
		text += "\n" + fmt.Sprintf(i18n.Get("The announcement could not be posted: %s", lang), res.PublishErr.Error())
	}
	return r.reply(chatID, text)
}

func (r *Registration) reply(chatID int64, text string) error {
	_, err := bot.SendText(r.GetService().GetBot(), chatID, text)
	return err
}
