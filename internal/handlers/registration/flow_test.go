package registration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/iamwavecut/gatebot/internal/db"
)

func TestFlowTransitions(t *testing.T) {
	t.Parallel()

	att := Attachment{Kind: db.KindVideo, Ref: "vid", ChatID: 1, MessageID: 10}
	f, err := Flow{State: StateIdle}.Begin(att)
	if err != nil || f.State != StateAwaitingTitle || f.Pending.Ref != "vid" {
		t.Fatalf("begin: %+v %v", f, err)
	}

	if _, err := f.Begin(att); !errors.Is(err, ErrRegistrationPending) {
		t.Fatalf("expected pending error, got %v", err)
	}
	if _, err := f.SetCover("x"); !errors.Is(err, ErrUnexpectedInput) {
		t.Fatalf("cover before title must fail, got %v", err)
	}
	if _, err := f.SetTitle("   "); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected empty title error, got %v", err)
	}

	titled, err := f.SetTitle("  Episode 1 ")
	if err != nil || titled.State != StateAwaitingCover || titled.Title != "Episode 1" {
		t.Fatalf("set title: %+v %v", titled, err)
	}
	if f.State != StateAwaitingTitle {
		t.Fatal("transition must not mutate the receiver")
	}

	done, err := titled.SetCover("")
	if err != nil || done.State != StateFinalizing || done.Cover != "" {
		t.Fatalf("skip cover: %+v %v", done, err)
	}
}

func TestSetTitleLimitsLength(t *testing.T) {
	t.Parallel()

	f, err := Flow{}.Begin(Attachment{Kind: db.KindPhoto, Ref: "p"})
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := f.SetTitle(strings.Repeat("t", 3000)); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected too long error, got %v", err)
	}
	// Limit counts characters, not bytes.
	titled, err := f.SetTitle(strings.Repeat("я", MaxTitleLength))
	if err != nil || titled.State != StateAwaitingCover {
		t.Fatalf("title at the limit: %+v %v", titled, err)
	}
	if _, err := f.SetTitle(strings.Repeat("я", MaxTitleLength+1)); !errors.Is(err, ErrTitleTooLong) {
		t.Fatalf("expected too long error past the limit, got %v", err)
	}
}

func TestBeginRejectsEmptyAttachment(t *testing.T) {
	t.Parallel()

	if _, err := (Flow{}).Begin(Attachment{Kind: db.KindPhoto}); err == nil {
		t.Fatal("expected error for missing ref")
	}
	if _, err := (Flow{}).Begin(Attachment{Kind: "voice", Ref: "x"}); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}

type memorySessions map[int64]*db.RegistrationSession

func (m memorySessions) GetRegistrationSession(_ context.Context, id int64) (*db.RegistrationSession, error) {
	return m[id], nil
}

func (m memorySessions) SaveRegistrationSession(_ context.Context, s *db.RegistrationSession) error {
	m[s.OperatorID] = s
	return nil
}

func (m memorySessions) DeleteRegistrationSession(_ context.Context, id int64) error {
	delete(m, id)
	return nil
}

func TestSessionsRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memorySessions{}
	sessions := NewSessions(store)

	flow, err := sessions.Load(ctx, 9)
	if err != nil || flow.State != StateIdle {
		t.Fatalf("empty load: %+v %v", flow, err)
	}

	flow, _ = flow.Begin(Attachment{Kind: db.KindDocument, Ref: "doc", ChatID: 9, MessageID: 3, SubmissionID: 4})
	flow, _ = flow.SetTitle("Manual")
	if err := sessions.Save(ctx, 9, flow); err != nil {
		t.Fatalf("save: %v", err)
	}
	if store[9].State != string(StateAwaitingCover) {
		t.Fatalf("unexpected stored state %q", store[9].State)
	}

	loaded, err := sessions.Load(ctx, 9)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Title != "Manual" || loaded.Pending == nil || loaded.Pending.SubmissionID != 4 {
		t.Fatalf("unexpected loaded flow %+v", loaded)
	}

	if err := sessions.Save(ctx, 9, Flow{State: StateIdle}); err != nil {
		t.Fatalf("save idle: %v", err)
	}
	if _, ok := store[9]; ok {
		t.Fatal("idle flow must clear the session")
	}
}
