package bot

import (
	"context"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
)

// stuckSource answers the first poll with batch and then blocks like a long
// poll with nothing to deliver.
type stuckSource struct {
	batch   []api.Update
	calls   chan api.UpdateConfig
	release chan struct{}
	once    sync.Once
}

func newStuckSource(batch ...api.Update) *stuckSource {
	return &stuckSource{batch: batch, calls: make(chan api.UpdateConfig, 16), release: make(chan struct{})}
}

func (s *stuckSource) GetUpdates(config api.UpdateConfig) ([]api.Update, error) {
	select {
	case s.calls <- config:
	default:
	}
	first := false
	s.once.Do(func() { first = true })
	if first {
		return s.batch, nil
	}
	<-s.release
	return nil, nil
}

func (s *stuckSource) waitCall(t *testing.T) api.UpdateConfig {
	t.Helper()
	select {
	case c := <-s.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not call GetUpdates")
	}
	return api.UpdateConfig{}
}

type countingProcessor struct {
	mu   sync.Mutex
	seen map[int64][]int
	done chan struct{}
	want int
	got  int
}

func (p *countingProcessor) Process(_ context.Context, u *api.Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	user := u.SentFrom()
	p.seen[user.ID] = append(p.seen[user.ID], u.UpdateID)
	p.got++
	if p.got == p.want {
		close(p.done)
	}
	return nil
}

func fromUser(id int, userID int64) api.Update {
	return api.Update{UpdateID: id, Message: &api.Message{From: &api.User{ID: userID}, Text: "hi"}}
}

func TestPollerStopDoesNotWaitForLongPoll(t *testing.T) {
	t.Parallel()

	source := newStuckSource()
	t.Cleanup(func() { close(source.release) })
	p := NewPoller(source, &countingProcessor{seen: map[int64][]int{}, done: make(chan struct{})}, 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	if c := source.waitCall(t); c.Timeout != pollTimeout {
		t.Fatalf("unexpected poll timeout %d", c.Timeout)
	}
	// Second call blocks until release.
	source.waitCall(t)

	stopCtx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop during a blocked poll: %v", err)
	}
}

func TestPollerKeepsPerUserOrder(t *testing.T) {
	t.Parallel()

	source := newStuckSource(fromUser(1, 10), fromUser(2, 11), fromUser(3, 10), fromUser(4, 11), fromUser(5, 10))
	t.Cleanup(func() { close(source.release) })
	processor := &countingProcessor{seen: map[int64][]int{}, done: make(chan struct{}), want: 5}
	p := NewPoller(source, processor, 2)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer func() { _ = p.Stop(context.Background()) }()

	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("updates were not processed")
	}
	source.waitCall(t)
	if next := source.waitCall(t); next.Offset != 6 {
		t.Fatalf("offset not advanced past the batch: %d", next.Offset)
	}

	processor.mu.Lock()
	defer processor.mu.Unlock()
	if got := processor.seen[10]; len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("user 10 order broken: %v", got)
	}
	if got := processor.seen[11]; len(got) != 2 || got[0] != 2 || got[1] != 4 {
		t.Fatalf("user 11 order broken: %v", got)
	}
}

func TestPollerStopBeforeStart(t *testing.T) {
	t.Parallel()

	p := NewPoller(newStuckSource(), &countingProcessor{}, 1)
	if err := p.Stop(context.Background()); err != nil {
		t.Fatalf("stop without start: %v", err)
	}
}
