package bot

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/infra"
	"github.com/iamwavecut/gatebot/internal/observability"
)

const (
	UpdateTimeout = 5 * time.Minute
)

type UpdateProcessor struct {
	enabled    []string
	registered map[string]Handler
}

// NewUpdateProcessor builds a chain that runs handlers in the order of enabled.
func NewUpdateProcessor(enabled []string) *UpdateProcessor {
	return &UpdateProcessor{
		enabled:    enabled,
		registered: make(map[string]Handler),
	}
}

func (up *UpdateProcessor) RegisterUpdateHandler(title string, handler Handler) {
	up.registered[title] = handler
}

func (up *UpdateProcessor) chain() []Handler {
	handlers := make([]Handler, 0, len(up.enabled))
	for _, name := range up.enabled {
		handler, ok := up.registered[name]
		if !ok || handler == nil {
			log.Warnf("no registered handler: %s", name)
			continue
		}
		handlers = append(handlers, handler)
	}
	return handlers
}

// Process passes u through the handler chain until one handler stops it. A panic in
// a handler is recovered and returned as an error.
func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) (err error) {
	if u == nil {
		return errors.New("update is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if updateTime := updateTimestamp(u); time.Since(updateTime) > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": updateTime,
			"age":         time.Since(updateTime),
		}).Debug("Skipping outdated update")
		return nil
	}

	done := observability.StartUpdate()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v at %s", r, infra.IdentifyPanic())
		}
		switch {
		case err != nil:
			done("error")
		default:
			done("ok")
		}
	}()

	chat, user := updateOrigin(u)
	for _, handler := range up.chain() {
		if err := ctx.Err(); err != nil {
			return err
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

func updateTimestamp(u *api.Update) time.Time {
	switch {
	case u.Message != nil:
		return time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		return time.Unix(int64(u.EditedMessage.Date), 0)
	case u.ChannelPost != nil:
		return time.Unix(int64(u.ChannelPost.Date), 0)
	}
	return time.Now()
}

func updateOrigin(u *api.Update) (*api.Chat, *api.User) {
	chat := u.FromChat()
	if chat == nil {
		switch {
		case u.MyChatMember != nil:
			chat = &u.MyChatMember.Chat
		case u.ChatMember != nil:
			chat = &u.ChatMember.Chat
		}
	}

	user := u.SentFrom()
	if user == nil {
		switch {
		case u.MyChatMember != nil:
			user = &u.MyChatMember.From
		case u.ChatMember != nil:
			user = &u.ChatMember.From
		}
	}
	return chat, user
}
