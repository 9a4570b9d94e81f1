package admin

import (
	"context"
	"errors"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	apperrors "github.com/iamwavecut/gatebot/internal/errors"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/settings"
)

var settingLabels = map[string]string{
	settings.KeyStartText:      "Start message",
	settings.KeyTargets:        "Required channels",
	settings.KeyJoinLink:       "Join link",
	settings.KeyProtectContent: "Protect content",
	settings.KeyBackupChat:     "Backup chat",
	settings.KeyPublishChat:    "Publish chat",
	settings.KeyLogChat:        "Log chat",
	settings.KeyForbiddenWords: "Forbidden words",
	settings.KeyDeniedText:     "Join request text",
	settings.KeyNotFoundText:   "Not found text",
}

// translatedKeys lists the i18n keys that are looked up through variables.
var translatedKeys = []string{
	"Start message",
	"Required channels",
	"Join link",
	"Protect content",
	"Backup chat",
	"Publish chat",
	"Log chat",
	"Forbidden words",
	"Join request text",
	"Not found text",
}

func (a *Admin) handleSettingsCommand(ctx context.Context, chat *api.Chat, user *api.User, lang string) error {
	if err := a.store.DeleteOperatorPrompt(ctx, user.ID); err != nil {
		return err
	}

	rows := make([][]api.InlineKeyboardButton, 0, len(settings.Keys()))
	for _, key := range settings.Keys() {
		rows = append(rows, api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(i18n.Get(settingLabels[key], lang), codes.SettingData(key)),
		))
	}
	msg := api.NewMessage(chat.ID, i18n.Get("Settings", lang))
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(rows...)
	return tool.Err(a.GetService().GetBot().Send(msg))
}

func (a *Admin) handleSettingChoice(ctx context.Context, cq *api.CallbackQuery, chat *api.Chat, user *api.User, key string) error {
	client := a.GetService().GetBot()
	lang := a.GetLanguage(user)
	if !settings.IsKnown(key) {
		return bot.AnswerCallback(client, cq.ID, i18n.Get("Unknown setting.", lang), true)
	}

	if err := a.store.SetOperatorPrompt(ctx, &db.OperatorPrompt{OperatorID: user.ID, SettingKey: key}); err != nil {
		_ = bot.AnswerCallback(client, cq.ID, "", false)
		return err
	}
	if err := bot.AnswerCallback(client, cq.ID, "", false); err != nil {
		a.GetLogger().WithField("error", err.Error()).Warn("cant answer callback")
	}

	current := a.settings.Snapshot().Raw(key)
	if current == "" {
		current = i18n.Get("(empty)", lang)
	}
	prompt := "Send the new value for \"%s\".\nCurrent value:\n%s\n\nSend /cancel to keep it."
	if settings.Clearable(key) {
		prompt = "Send the new value for \"%s\".\nCurrent value:\n%s\n\nSend - to clear it, or /cancel."
	}
	text := fmt.Sprintf(i18n.Get(prompt, lang), i18n.Get(settingLabels[key], lang), current)
	_, err := bot.SendText(client, chat.ID, text)
	return err
}

// handlePromptAnswer applies text as the value of the setting the operator picked.
// Without an open prompt the update is left for the next handlers.
func (a *Admin) handlePromptAnswer(ctx context.Context, chat *api.Chat, user *api.User, lang, text string) (bool, error) {
	prompt, err := a.store.GetOperatorPrompt(ctx, user.ID)
	if err != nil {
		return false, err
	}
	if prompt == nil {
		return true, nil
	}

	_, err = a.settings.Update(ctx, prompt.SettingKey, text)
	if errors.Is(err, apperrors.ErrInvalidInput) {
		reply := fmt.Sprintf(i18n.Get("Invalid value: %s", lang), err.Error())
		return false, tool.Err(bot.SendText(a.GetService().GetBot(), chat.ID, reply))
	}
	if err != nil {
		return false, err
	}

	if err := a.store.DeleteOperatorPrompt(ctx, user.ID); err != nil {
		return false, err
	}
	a.GetLogger().WithField("key", prompt.SettingKey).Info("setting changed by operator")
	return false, tool.Err(bot.SendText(a.GetService().GetBot(), chat.ID, i18n.Get("Saved.", lang)))
}
