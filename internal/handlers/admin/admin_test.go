package admin

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/bot/bottest"
	"github.com/iamwavecut/gatebot/internal/broadcast"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/db/sqlite"
	"github.com/iamwavecut/gatebot/internal/settings"
)

const operatorID = 100

type fixture struct {
	client *bottest.Client
	db     db.Client
	store  *settings.Store
	admin  *Admin
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	dbClient, err := sqlite.NewSQLiteClient(ctx, dir, "admin.db")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = dbClient.Close() })

	cfg := config.Config{DefaultLanguage: "en", AdminIDs: []int64{operatorID}, DotPath: dir}
	cfg.Content.ProtectContent = true
	store, err := settings.NewStore(ctx, dbClient, settings.Defaults(cfg))
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	client := bottest.New()
	s := bot.NewService(client, store, cfg, "gate_bot")
	a := NewAdmin(s, dbClient, broadcast.New(1000, 10))
	if err := a.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return fixture{client: client, db: dbClient, store: store, admin: a}
}

func (f fixture) command(t *testing.T, userID int64, text string) bool {
	t.Helper()
	name, _, _ := strings.Cut(strings.TrimPrefix(text, "/"), " ")
	return f.message(t, userID, &api.Message{
		Text:     text,
		Entities: []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name) + 1}},
	})
}

func (f fixture) message(t *testing.T, userID int64, msg *api.Message) bool {
	t.Helper()
	user := &api.User{ID: userID}
	chat := &api.Chat{ID: userID, Type: "private"}
	msg.From, msg.Chat = user, *chat
	proceed, err := f.admin.Handle(context.Background(), &api.Update{Message: msg}, chat, user)
	if err != nil {
		t.Fatalf("handle %q: %v", msg.Text, err)
	}
	return proceed
}

func (f fixture) lastText(t *testing.T) string {
	t.Helper()
	texts := f.client.Texts()
	if len(texts) == 0 {
		t.Fatal("nothing sent")
	}
	return texts[len(texts)-1]
}

func TestNonOperatorsPassThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if !f.command(t, 7, "/stats") {
		t.Fatal("commands from users must pass through")
	}
	if len(f.client.Sent) != 0 {
		t.Fatal("nothing must be answered")
	}
}

func TestSettingsPanelUpdatesValue(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.command(t, operatorID, "/settings")

	panel, ok := f.client.Sent[0].(api.MessageConfig)
	if !ok {
		t.Fatalf("expected panel message, got %T", f.client.Sent[0])
	}
	markup := panel.ReplyMarkup.(api.InlineKeyboardMarkup)
	if len(markup.InlineKeyboard) != len(settings.Keys()) {
		t.Fatalf("expected one button per setting, got %d", len(markup.InlineKeyboard))
	}

	user := &api.User{ID: operatorID}
	chat := &api.Chat{ID: operatorID, Type: "private"}
	press := &api.Update{CallbackQuery: &api.CallbackQuery{ID: "cb", From: user, Data: codes.SettingData(settings.KeyProtectContent)}}
	if _, err := f.admin.Handle(ctx, press, chat, user); err != nil {
		t.Fatalf("press: %v", err)
	}
	prompt, err := f.db.GetOperatorPrompt(ctx, operatorID)
	if err != nil || prompt == nil || prompt.SettingKey != settings.KeyProtectContent {
		t.Fatalf("prompt not stored: %+v %v", prompt, err)
	}

	f.message(t, operatorID, &api.Message{Text: "maybe"})
	if !strings.Contains(f.lastText(t), "Invalid value") {
		t.Fatalf("expected validation error, got %q", f.lastText(t))
	}
	if !f.store.Snapshot().ProtectContent {
		t.Fatal("invalid value must not be applied")
	}

	f.message(t, operatorID, &api.Message{Text: "false"})
	if f.store.Snapshot().ProtectContent {
		t.Fatal("value not applied")
	}
	if prompt, _ := f.db.GetOperatorPrompt(ctx, operatorID); prompt != nil {
		t.Fatal("prompt must be cleared after a successful update")
	}

	if !f.message(t, operatorID, &api.Message{Text: "just chatting"}) {
		t.Fatal("text without a prompt must pass through")
	}
}

func TestTextSettingCannotBeCleared(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	before := f.store.Snapshot().DeniedText

	user := &api.User{ID: operatorID}
	chat := &api.Chat{ID: operatorID, Type: "private"}
	press := &api.Update{CallbackQuery: &api.CallbackQuery{ID: "cb", From: user, Data: codes.SettingData(settings.KeyDeniedText)}}
	if _, err := f.admin.Handle(ctx, press, chat, user); err != nil {
		t.Fatalf("press: %v", err)
	}
	if strings.Contains(f.lastText(t), "Send - to clear") {
		t.Fatalf("text settings must not offer clearing: %q", f.lastText(t))
	}

	f.message(t, operatorID, &api.Message{Text: "-"})
	if !strings.Contains(f.lastText(t), "Invalid value") {
		t.Fatalf("expected validation error, got %q", f.lastText(t))
	}
	if got := f.store.Snapshot().DeniedText; got != before {
		t.Fatalf("denied text changed to %q", got)
	}

	press.CallbackQuery.Data = codes.SettingData(settings.KeyJoinLink)
	if _, err := f.admin.Handle(ctx, press, chat, user); err != nil {
		t.Fatalf("press: %v", err)
	}
	if !strings.Contains(f.lastText(t), "Send - to clear") {
		t.Fatalf("link setting must offer clearing: %q", f.lastText(t))
	}
}

func TestCancelDropsPromptAndProceeds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.SetOperatorPrompt(ctx, &db.OperatorPrompt{OperatorID: operatorID, SettingKey: settings.KeyStartText}); err != nil {
		t.Fatalf("set prompt: %v", err)
	}
	if !f.command(t, operatorID, "/cancel") {
		t.Fatal("cancel must reach the registration handler too")
	}
	if prompt, _ := f.db.GetOperatorPrompt(ctx, operatorID); prompt != nil {
		t.Fatal("prompt must be cleared")
	}
}

func TestStatsCountsRows(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2} {
		if _, err := f.db.InsertUserIfAbsent(ctx, &db.User{ID: id}); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	if err := f.db.CreateMedia(ctx, &db.MediaItem{Code: "abc", Kind: db.KindPhoto, ContentRef: "p", Title: "t"}); err != nil {
		t.Fatalf("create media: %v", err)
	}
	f.command(t, operatorID, "/stats")
	if got := f.lastText(t); got != "Users: 2\nItems: 1\nPending submissions: 0" {
		t.Fatalf("unexpected stats %q", got)
	}
}

func TestBroadcastCountsPartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		if _, err := f.db.InsertUserIfAbsent(ctx, &db.User{ID: id}); err != nil {
			t.Fatalf("insert user: %v", err)
		}
	}
	f.client.SendErr = func(ch api.Chattable) error {
		if m, ok := ch.(api.MessageConfig); ok && m.ChatID == 2 {
			return errors.New("Forbidden: bot was blocked by the user")
		}
		return nil
	}

	f.command(t, operatorID, "/all hello everyone")
	f.admin.wg.Wait()

	delivered := 0
	for _, ch := range f.client.SentSnapshot() {
		if m, ok := ch.(api.MessageConfig); ok && m.Text == "hello everyone" {
			delivered++
		}
	}
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
	if got := f.lastText(t); got != "Broadcast finished: 2 sent, 1 failed, 3 total." {
		t.Fatalf("unexpected report %q", got)
	}
}

func TestBroadcastCopiesRepliedMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	if _, err := f.db.InsertUserIfAbsent(context.Background(), &db.User{ID: 5}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	msg := &api.Message{
		Text:           "/all",
		Entities:       []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}},
		ReplyToMessage: &api.Message{MessageID: 900},
	}
	f.message(t, operatorID, msg)
	f.admin.wg.Wait()

	if len(f.client.Copies) != 1 || f.client.Copies[0].MessageID != 900 || f.client.Copies[0].ChatID != 5 {
		t.Fatalf("unexpected copies %+v", f.client.Copies)
	}
}

func TestDeleteAndLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	if err := f.db.CreateMedia(ctx, &db.MediaItem{Code: "abc", Kind: db.KindVideo, ContentRef: "v", Title: "Film"}); err != nil {
		t.Fatalf("create media: %v", err)
	}

	f.command(t, operatorID, "/link abc")
	photo, ok := f.client.Sent[len(f.client.Sent)-1].(api.PhotoConfig)
	if !ok {
		t.Fatalf("expected qr photo, got %T", f.client.Sent[len(f.client.Sent)-1])
	}
	if !strings.Contains(photo.Caption, codes.DeepLink("gate_bot", "abc")) {
		t.Fatalf("caption lacks the link: %q", photo.Caption)
	}

	f.command(t, operatorID, "/delete abc")
	if item, _ := f.db.GetMedia(ctx, "abc"); item != nil {
		t.Fatal("item must be deleted")
	}
	f.command(t, operatorID, "/delete abc")
	if got := f.lastText(t); got != "No item with this code." {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestSendDBShipsSnapshot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	var snapshotSize int64
	f.client.SendErr = func(ch api.Chattable) error {
		doc, ok := ch.(api.DocumentConfig)
		if !ok {
			return nil
		}
		path, ok := doc.File.(api.FilePath)
		if !ok {
			return errors.New("expected a file path")
		}
		info, err := os.Stat(string(path))
		if err != nil {
			return err
		}
		snapshotSize = info.Size()
		return nil
	}

	f.command(t, operatorID, "/senddb")
	if snapshotSize == 0 {
		t.Fatal("snapshot file was empty or missing at send time")
	}
}
