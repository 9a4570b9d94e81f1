package settings

import (
	"strconv"
	"strings"

	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/i18n"
)

// Defaults derives seed values from the process configuration.
func Defaults(cfg config.Config) map[string]string {
	lang := cfg.DefaultLanguage
	defaults := map[string]string{
		KeyStartText:      i18n.Get("Welcome! Open a content link to get your file.", lang),
		KeyDeniedText:     i18n.Get("Join the channels below, then press Retry.", lang),
		KeyNotFoundText:   i18n.Get("This link is invalid or the content was removed.", lang),
		KeyProtectContent: strconv.FormatBool(cfg.Content.ProtectContent),
		KeyTargets:        strings.Join(cfg.Gate.DefaultTargets, "|"),
		KeyJoinLink:       cfg.Gate.JoinLink,
		KeyForbiddenWords: "",
	}
	chats := map[string]int64{
		KeyBackupChat:  cfg.Content.BackupChatID,
		KeyPublishChat: cfg.Content.PublishChatID,
		KeyLogChat:     cfg.Content.LogChatID,
	}
	for key, id := range chats {
		if id != 0 {
			defaults[key] = strconv.FormatInt(id, 10)
		} else {
			defaults[key] = ""
		}
	}
	return defaults
}
