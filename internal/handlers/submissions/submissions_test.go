package submissions

import (
	"context"
	"strings"
	"sync"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/bot/bottest"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/handlers/registration"
)

const (
	operatorID = 100
	donorID    = 7
)

type memoryStore struct {
	mu   sync.Mutex
	subs map[int64]*db.Submission
	next int64
}

func (m *memoryStore) CreateSubmission(_ context.Context, sub *db.Submission) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	sub.ID = m.next
	sub.Status = db.SubmissionPending
	m.subs[sub.ID] = sub
	return sub.ID, nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id int64) (*db.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (m *memoryStore) DecideSubmission(_ context.Context, id int64, status db.SubmissionStatus, decidedBy int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[id]
	if !ok {
		return db.ErrNotFound
	}
	if sub.Status != db.SubmissionPending {
		return db.ErrAlreadyDecided
	}
	sub.Status, sub.DecidedBy = status, decidedBy
	return nil
}

type recordingFlows struct {
	started   []registration.Attachment
	cancelled int
	pending   bool
}

func (r *recordingFlows) Start(_ context.Context, _ int64, att registration.Attachment) error {
	if r.pending {
		return registration.ErrRegistrationPending
	}
	r.started = append(r.started, att)
	return nil
}

func (r *recordingFlows) Cancel(context.Context, int64) error {
	r.cancelled++
	return nil
}

type fixture struct {
	client *bottest.Client
	store  *memoryStore
	flows  *recordingFlows
	h      *Submissions
}

func newFixture() fixture {
	client := bottest.New()
	store := &memoryStore{subs: map[int64]*db.Submission{}}
	flows := &recordingFlows{}
	cfg := config.Config{DefaultLanguage: "en", AdminIDs: []int64{operatorID}}
	s := bot.NewService(client, nil, cfg, "gate_bot")
	return fixture{client: client, store: store, flows: flows, h: NewSubmissions(s, store, flows)}
}

func (f fixture) message(t *testing.T, userID int64, msg *api.Message) bool {
	t.Helper()
	user := &api.User{ID: userID, FirstName: "Ann"}
	chat := &api.Chat{ID: userID, Type: "private"}
	msg.From, msg.Chat = user, *chat
	proceed, err := f.h.Handle(context.Background(), &api.Update{Message: msg}, chat, user)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	return proceed
}

func (f fixture) press(t *testing.T, data string) {
	t.Helper()
	user := &api.User{ID: operatorID}
	chat := &api.Chat{ID: operatorID, Type: "private"}
	u := &api.Update{CallbackQuery: &api.CallbackQuery{
		ID:      "cb",
		From:    user,
		Data:    data,
		Message: &api.Message{MessageID: 5, Chat: *chat},
	}}
	if _, err := f.h.Handle(context.Background(), u, chat, user); err != nil {
		t.Fatalf("press %s: %v", data, err)
	}
}

func lastToast(t *testing.T, c *bottest.Client) string {
	t.Helper()
	for i := len(c.Requests) - 1; i >= 0; i-- {
		if cb, ok := c.Requests[i].(api.CallbackConfig); ok {
			return cb.Text
		}
	}
	t.Fatal("no callback answer recorded")
	return ""
}

func TestAskIsForwardedToOperators(t *testing.T) {
	t.Parallel()

	f := newFixture()
	msg := &api.Message{
		Text:     "/ask where is part 2?",
		Entities: []api.MessageEntity{{Type: "bot_command", Offset: 0, Length: 4}},
	}
	if proceed := f.message(t, donorID, msg); proceed {
		t.Fatal("ask must be consumed")
	}

	var forwarded bool
	for _, ch := range f.client.Sent {
		if m, ok := ch.(api.MessageConfig); ok && m.ChatID == operatorID && strings.Contains(m.Text, "where is part 2?") {
			forwarded = true
		}
	}
	if !forwarded {
		t.Fatalf("question not forwarded: %v", f.client.Texts())
	}
}

func TestDonationThenApprove(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.message(t, donorID, &api.Message{MessageID: 31, Video: &api.Video{FileID: "gift"}})

	if len(f.store.subs) != 1 || len(f.client.Copies) != 1 {
		t.Fatalf("submission not stored or copied: subs=%d copies=%d", len(f.store.subs), len(f.client.Copies))
	}
	copied := f.client.Copies[0]
	if copied.ChatID != operatorID || copied.MessageID != 31 {
		t.Fatalf("unexpected copy %+v", copied)
	}

	f.press(t, codes.DecisionData(1, true))
	if f.store.subs[1].Status != db.SubmissionApproved {
		t.Fatalf("unexpected status %s", f.store.subs[1].Status)
	}
	if len(f.flows.started) != 1 || f.flows.started[0].Ref != "gift" || f.flows.started[0].SubmissionID != 1 {
		t.Fatalf("registration not started: %+v", f.flows.started)
	}

	f.press(t, codes.DecisionData(1, false))
	if f.store.subs[1].Status != db.SubmissionApproved {
		t.Fatal("decided submission must not change")
	}
	if toast := lastToast(t, f.client); !strings.Contains(toast, "already decided") {
		t.Fatalf("unexpected toast %q", toast)
	}
}

func TestApproveRefusedWhileFormPending(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.flows.pending = true
	f.message(t, donorID, &api.Message{MessageID: 1, Photo: []api.PhotoSize{{FileID: "p"}}})

	f.press(t, codes.DecisionData(1, true))
	if f.store.subs[1].Status != db.SubmissionPending {
		t.Fatal("submission must stay pending")
	}
	if toast := lastToast(t, f.client); !strings.Contains(toast, "/cancel") {
		t.Fatalf("unexpected toast %q", toast)
	}
}

func TestRejectNotifiesDonor(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.message(t, donorID, &api.Message{MessageID: 1, Document: &api.Document{FileID: "d"}})
	f.client.Reset()

	f.press(t, codes.DecisionData(1, false))
	if f.store.subs[1].Status != db.SubmissionRejected || len(f.flows.started) != 0 {
		t.Fatalf("unexpected state %+v", f.store.subs[1])
	}
	var notified bool
	for _, ch := range f.client.Sent {
		if m, ok := ch.(api.MessageConfig); ok && m.ChatID == donorID {
			notified = true
		}
	}
	if !notified {
		t.Fatal("donor must be notified")
	}
}

func TestOperatorsAndPlainTextPassThrough(t *testing.T) {
	t.Parallel()

	f := newFixture()
	if !f.message(t, operatorID, &api.Message{Video: &api.Video{FileID: "v"}}) {
		t.Fatal("operator uploads belong to registration")
	}
	if !f.message(t, donorID, &api.Message{Text: "hello"}) {
		t.Fatal("plain text must pass through")
	}
	if len(f.store.subs) != 0 {
		t.Fatal("nothing must be stored")
	}
}
