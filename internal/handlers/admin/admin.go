// Package admin serves the operator commands: settings panel, statistics, database
// export, broadcasts and item maintenance.
package admin

import (
	"context"
	"sync"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/broadcast"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/handlers/base"
	"github.com/iamwavecut/gatebot/internal/settings"
)

type adminStore interface {
	GetOperatorPrompt(ctx context.Context, operatorID int64) (*db.OperatorPrompt, error)
	SetOperatorPrompt(ctx context.Context, prompt *db.OperatorPrompt) error
	DeleteOperatorPrompt(ctx context.Context, operatorID int64) error

	GetMedia(ctx context.Context, code string) (*db.MediaItem, error)
	DeleteMedia(ctx context.Context, code string) error
	CountMedia(ctx context.Context) (int, error)
	CountUsers(ctx context.Context) (int, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountSubmissions(ctx context.Context, status db.SubmissionStatus) (int, error)

	Snapshot(ctx context.Context, path string) error
}

type Admin struct {
	*base.BaseHandler
	store       adminStore
	settings    *settings.Store
	broadcaster *broadcast.Broadcaster

	mu      sync.Mutex
	wg      sync.WaitGroup
	runCtx  context.Context
	cancel  context.CancelFunc
	started bool
}

func NewAdmin(s bot.Service, store adminStore, broadcaster *broadcast.Broadcaster) *Admin {
	return &Admin{
		BaseHandler: base.NewBaseHandler(s, "admin"),
		store:       store,
		settings:    s.GetSettings(),
		broadcaster: broadcaster,
	}
}

// Start provides the context background broadcasts run under.
func (a *Admin) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	a.runCtx, a.cancel = context.WithCancel(ctx)
	a.started = true
	return nil
}

// Stop cancels running broadcasts and waits for them to report.
func (a *Admin) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.started = false
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		a.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (a *Admin) backgroundContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx != nil {
		return a.runCtx
	}
	return context.Background()
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if err := a.ValidateUpdate(u, chat, user); err != nil {
		return true, nil
	}
	if !a.IsOperator(user) {
		return true, nil
	}

	if cq := u.CallbackQuery; cq != nil {
		key, ok := codes.ParseSetting(cq.Data)
		if !ok {
			return true, nil
		}
		return false, a.handleSettingChoice(ctx, cq, chat, user, key)
	}

	msg := u.Message
	if msg == nil || !bot.IsPrivate(chat) {
		return true, nil
	}
	lang := a.GetLanguage(user)

	if !msg.IsCommand() {
		if msg.Text == "" {
			return true, nil
		}
		return a.handlePromptAnswer(ctx, chat, user, lang, msg.Text)
	}

	entry := a.GetLogger().WithField("command", msg.Command())
	entry.Trace("operator command")

	switch msg.Command() {
	case "settings":
		return false, a.handleSettingsCommand(ctx, chat, user, lang)
	case "stats":
		return false, a.handleStats(ctx, chat, lang)
	case "senddb":
		return false, a.handleSendDB(ctx, chat, lang)
	case "all":
		return false, a.handleBroadcast(ctx, msg, chat, lang)
	case "delete":
		return false, a.handleDelete(ctx, msg, chat, lang)
	case "link":
		return false, a.handleLink(ctx, msg, chat, lang)
	case "cancel":
		// The registration handler answers /cancel; only the prompt is dropped here.
		if err := a.store.DeleteOperatorPrompt(ctx, user.ID); err != nil {
			entry.WithField("error", err.Error()).Warn("cant clear operator prompt")
		}
		return true, nil
	}
	return true, nil
}
