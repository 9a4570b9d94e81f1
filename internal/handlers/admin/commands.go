package admin

import (
	"context"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/broadcast"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/infra"
)

const qrSize = 512

func (a *Admin) reply(chatID int64, text string) error {
	return tool.Err(bot.SendText(a.GetService().GetBot(), chatID, text))
}

func (a *Admin) handleStats(ctx context.Context, chat *api.Chat, lang string) error {
	users, err := a.store.CountUsers(ctx)
	if err != nil {
		return err
	}
	media, err := a.store.CountMedia(ctx)
	if err != nil {
		return err
	}
	pending, err := a.store.CountSubmissions(ctx, db.SubmissionPending)
	if err != nil {
		return err
	}
	text := fmt.Sprintf(i18n.Get("Users: %d\nItems: %d\nPending submissions: %d", lang), users, media, pending)
	return a.reply(chat.ID, text)
}

// handleSendDB ships a consistent copy of the database file to the operator.
func (a *Admin) handleSendDB(ctx context.Context, chat *api.Chat, lang string) error {
	path, cleanup, err := infra.TempFile(a.GetService().GetConfig().DotPath, "backup-*.db")
	if err != nil {
		return err
	}
	defer cleanup()

	if err := a.store.Snapshot(ctx, path); err != nil {
		return errors.WithMessage(err, "cant snapshot database")
	}
	doc := api.NewDocument(chat.ID, api.FilePath(path))
	doc.Caption = i18n.Get("Database backup", lang)
	return tool.Err(a.GetService().GetBot().Send(doc))
}

// handleBroadcast sends the command text, or the replied-to message verbatim, to
// every known user. The run continues in the background and reports when done.
func (a *Admin) handleBroadcast(ctx context.Context, msg *api.Message, chat *api.Chat, lang string) error {
	text := strings.TrimSpace(msg.CommandArguments())
	source := msg.ReplyToMessage
	if source == nil && text == "" {
		return a.reply(chat.ID, i18n.Get("Usage: /all <text>, or reply /all to a message.", lang))
	}

	recipients, err := a.store.ListUserIDs(ctx)
	if err != nil {
		return err
	}

	client := a.GetService().GetBot()
	send := func(_ context.Context, userID int64) error {
		if source != nil {
			return tool.Err(client.CopyMessage(api.NewCopyMessage(userID, chat.ID, source.MessageID)))
		}
		return tool.Err(client.Send(api.NewMessage(userID, text)))
	}

	if err := a.reply(chat.ID, fmt.Sprintf(i18n.Get("Broadcasting to %d users...", lang), len(recipients))); err != nil {
		a.GetLogger().WithField("error", err.Error()).Warn("cant confirm broadcast")
	}

	runCtx := a.backgroundContext()
	a.wg.Add(1)
	infra.GoRecoverable(0, "broadcast", func() {
		defer a.wg.Done()
		report := a.broadcaster.Broadcast(runCtx, recipients, send)
		if err := a.reply(chat.ID, formatReport(report, lang)); err != nil {
			a.GetLogger().WithFields(log.Fields{"error": err.Error()}).Warn("cant send broadcast report")
		}
	})
	return nil
}

func formatReport(r broadcast.Report, lang string) string {
	text := fmt.Sprintf(i18n.Get("Broadcast finished: %d sent, %d failed, %d total.", lang), r.Sent, r.Failed, r.Total)
	if r.Cancelled {
		text += "\n" + i18n.Get("The broadcast was stopped before reaching everyone.", lang)
	}
	return text
}

func (a *Admin) handleDelete(ctx context.Context, msg *api.Message, chat *api.Chat, lang string) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if !codes.Valid(code) {
		return a.reply(chat.ID, i18n.Get("Usage: /delete <code>", lang))
	}
	err := a.store.DeleteMedia(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return a.reply(chat.ID, i18n.Get("No item with this code.", lang))
	}
	if err != nil {
		return err
	}
	a.GetLogger().WithField("code", code).Info("item deleted")
	return a.reply(chat.ID, fmt.Sprintf(i18n.Get("Item %s deleted.", lang), code))
}

// handleLink answers with the deep link of an item and its QR code.
func (a *Admin) handleLink(ctx context.Context, msg *api.Message, chat *api.Chat, lang string) error {
	code := strings.TrimSpace(msg.CommandArguments())
	if !codes.Valid(code) {
		return a.reply(chat.ID, i18n.Get("Usage: /link <code>", lang))
	}
	item, err := a.store.GetMedia(ctx, code)
	if err != nil {
		return err
	}
	if item == nil {
		return a.reply(chat.ID, i18n.Get("No item with this code.", lang))
	}

	link := codes.DeepLink(a.GetService().BotUsername(), item.Code)
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return errors.WithMessage(err, "cant render qr code")
	}
	photo := api.NewPhoto(chat.ID, api.FileBytes{Name: item.Code + ".png", Bytes: png})
	photo.Caption = item.Title + "\n" + link
	return tool.Err(a.GetService().GetBot().Send(photo))
}
