// Package moderation keeps groups clean: forbidden words are removed and their
// senders muted, joins and leaves are reported to the log chat.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/cloudflare/ahocorasick"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/observability"
	"github.com/iamwavecut/gatebot/internal/settings"
)

// MuteDuration is how long a sender of a forbidden word stays restricted.
const MuteDuration = 24 * time.Hour

type SettingsSource interface {
	Snapshot() settings.Snapshot
	OnChange(fn func(settings.Snapshot))
}

type Moderation struct {
	*base.BaseHandler
	source  SettingsSource
	matcher atomic.Pointer[ahocorasick.Matcher]
}

func NewModeration(s bot.Service, source SettingsSource) *Moderation {
	m := &Moderation{
		BaseHandler: base.NewBaseHandler(s, "moderation"),
		source:      source,
	}
	source.OnChange(m.rebuild)
	return m
}

// rebuild swaps in a matcher for the current word list; readers never block.
func (m *Moderation) rebuild(snap settings.Snapshot) {
	if len(snap.ForbiddenWords) == 0 {
		m.matcher.Store(nil)
		return
	}
	m.matcher.Store(ahocorasick.NewStringMatcher(snap.ForbiddenWords))
	m.GetLogger().WithField("words", len(snap.ForbiddenWords)).Debug("word filter rebuilt")
}

func (m *Moderation) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if err := m.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	msg := u.Message
	if msg == nil || !bot.IsGroup(chat) {
		return true, nil
	}

	if len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil {
		m.reportMembership(msg, chat)
		return true, nil
	}

	if m.IsOperator(user) || !m.containsForbidden(msg.Text+"\n"+msg.Caption) {
		return true, nil
	}

	entry := m.GetLogger().WithFields(log.Fields{
		"method":  "Handle",
		"chat_id": chat.ID,
		"user_id": user.ID,
	})
	client := m.GetService().GetBot()
	if err := bot.DeleteChatMessage(ctx, client, chat.ID, msg.MessageID); err != nil {
		entry.WithField("error", err.Error()).Warn("cant delete message with forbidden word")
	} else {
		observability.RecordModeration("delete")
	}
	if err := bot.RestrictChatting(ctx, client, user.ID, chat.ID, time.Now().Add(MuteDuration)); err != nil {
		entry.WithField("error", err.Error()).Warn("cant restrict sender")
	} else {
		observability.RecordModeration("restrict")
	}
	entry.Info("forbidden word removed")
	return false, nil
}

func (m *Moderation) containsForbidden(text string) bool {
	matcher := m.matcher.Load()
	if matcher == nil || strings.TrimSpace(text) == "" {
		return false
	}
	return len(matcher.Match([]byte(strings.ToLower(text)))) > 0
}

func (m *Moderation) reportMembership(msg *api.Message, chat *api.Chat) {
	logChat := m.source.Snapshot().LogChatID
	if logChat == 0 {
		return
	}
	lang := m.GetService().GetConfig().DefaultLanguage

	var lines []string
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		lines = append(lines, fmt.Sprintf(i18n.Get("%s (id %d) joined %s", lang), bot.GetFullName(member), member.ID, chat.Title))
	}
	if left := msg.LeftChatMember; left != nil {
		lines = append(lines, fmt.Sprintf(i18n.Get("%s (id %d) left %s", lang), bot.GetFullName(left), left.ID, chat.Title))
	}
	if _, err := bot.SendText(m.GetService().GetBot(), logChat, strings.Join(lines, "\n")); err != nil {
		m.GetLogger().WithField("error", err.Error()).Warn("cant report membership change")
	}
}
