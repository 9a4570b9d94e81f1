package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
)

func DeleteChatMessage(ctx context.Context, bot Client, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

// RestrictChatting mutes the user in chatID until the given time.
func RestrictChatting(ctx context.Context, bot Client, userID int64, chatID int64, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: api.ChatMemberConfig{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
		UntilDate:   until.Unix(),
		Permissions: &api.ChatPermissions{},
	}); err != nil {
		return errors.WithMessage(err, "cant restrict")
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast text.
func AnswerCallback(bot Client, callbackID, text string, alert bool) error {
	cfg := api.NewCallback(callbackID, text)
	if alert {
		cfg = api.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := bot.Request(cfg); err != nil {
		return errors.WithMessage(err, "cant answer callback")
	}
	return nil
}

// SendText sends a plain text message to chatID.
func SendText(bot Client, chatID int64, text string) (api.Message, error) {
	msg := api.NewMessage(chatID, text)
	msg.LinkPreviewOptions.IsDisabled = true
	sent, err := bot.Send(msg)
	if err != nil {
		return sent, errors.WithMessage(err, "cant send message")
	}
	return sent, nil
}

func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}

// IsPrivate reports whether the update happened in a one-to-one chat with the bot.
func IsPrivate(chat *api.Chat) bool {
	return chat != nil && chat.IsPrivate()
}

// IsGroup reports whether chat is a group or supergroup.
func IsGroup(chat *api.Chat) bool {
	return chat != nil && (chat.IsGroup() || chat.IsSuperGroup())
}
