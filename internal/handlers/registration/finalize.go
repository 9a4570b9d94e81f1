package registration

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/settings"
)

type mediaStore interface {
	CreateMedia(ctx context.Context, item *db.MediaItem) error
}

type SnapshotSource interface {
	Snapshot() settings.Snapshot
}

type CodeGenerator interface {
	Next() string
}

// Finalized describes a completed form. Item is nil when nothing was stored.
type Finalized struct {
	Item       *db.MediaItem
	Link       string
	Published  bool
	PublishErr error
}

type Finalizer struct {
	bot         bot.Client
	media       mediaStore
	settings    SnapshotSource
	codes       CodeGenerator
	botUsername string
	lang        string
}

func NewFinalizer(client bot.Client, media mediaStore, source SnapshotSource, gen CodeGenerator, botUsername, lang string) *Finalizer {
	return &Finalizer{
		bot:         client,
		media:       media,
		settings:    source,
		codes:       gen,
		botUsername: botUsername,
		lang:        lang,
	}
}

// Finalize copies the original to the backup chat, stores the item and announces
// it. A failure before the item is stored returns an error and stores nothing; a
// failed announcement leaves the stored item in place and is reported in PublishErr.
func (f *Finalizer) Finalize(ctx context.Context, operatorID int64, flow Flow) (Finalized, error) {
	if flow.State != StateFinalizing || flow.Pending == nil {
		return Finalized{}, ErrUnexpectedInput
	}
	entry := log.WithFields(log.Fields{"context": "registration", "operator_id": operatorID})
	snap := f.settings.Snapshot()
	att := flow.Pending

	item := &db.MediaItem{
		Code:       f.codes.Next(),
		Kind:       att.Kind,
		ContentRef: att.Ref,
		Title:      flow.Title,
		CreatedBy:  operatorID,
	}

	if snap.BackupChatID != 0 {
		copied, err := f.bot.CopyMessage(api.NewCopyMessage(snap.BackupChatID, att.ChatID, att.MessageID))
		if err != nil {
			return Finalized{}, errors.WithMessage(err, "backup copy")
		}
		item.BackupLocation = db.BackupLocation(snap.BackupChatID, copied.MessageID)
	}

	if err := f.media.CreateMedia(ctx, item); err != nil {
		return Finalized{}, errors.WithMessage(err, "store item")
	}
	res := Finalized{Item: item, Link: codes.DeepLink(f.botUsername, item.Code)}
	entry.WithField("code", item.Code).Info("content registered")

	if snap.PublishChatID != 0 {
		if err := f.publish(snap.PublishChatID, flow, res.Link); err != nil {
			res.PublishErr = err
			entry.WithField("error", err.Error()).Warn("announcement failed")
		} else {
			res.Published = true
		}
	}
	return res, nil
}

func (f *Finalizer) publish(chatID int64, flow Flow, link string) error {
	markup := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(
		api.NewInlineKeyboardButtonURL(i18n.Get("▶️ Watch", f.lang), link),
	))

	var msg api.Chattable
	if flow.Cover != "" {
		photo := api.NewPhoto(chatID, api.FileID(flow.Cover))
		photo.Caption = flow.Title
		photo.ReplyMarkup = markup
		msg = photo
	} else {
		text := api.NewMessage(chatID, flow.Title)
		text.ReplyMarkup = markup
		msg = text
	}
	if _, err := f.bot.Send(msg); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}
