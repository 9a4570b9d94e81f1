package bot

import (
	"context"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/infra"
)

const (
	// pollTimeout is in seconds and stays below the process shutdown budget.
	pollTimeout  = 10
	retryBackoff = 3 * time.Second
	queueSize    = 100
)

// Processor handles one update.
type Processor interface {
	Process(ctx context.Context, u *api.Update) error
}

// Poller long-polls updates and fans them out to workers. Updates from the same
// user always land on the same worker, so one person's messages keep their order.
type Poller struct {
	source    UpdatesSource
	processor Processor
	workers   int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPoller(source UpdatesSource, processor Processor, workers int) *Poller {
	if workers < 1 {
		workers = 1
	}
	return &Poller{source: source, processor: processor, workers: workers}
}

func (p *Poller) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	queues := make([]chan api.Update, p.workers)
	for i := range queues {
		queues[i] = make(chan api.Update, queueSize)
		p.wg.Add(1)
		go p.work(ctx, queues[i])
	}

	// Stop does not join the long poll: GetUpdates cannot be interrupted and
	// returns by itself within pollTimeout.
	infra.GoRecoverable(-1, "poll_updates", func() { p.poll(ctx, queues) })
	return nil
}

func (p *Poller) work(ctx context.Context, queue <-chan api.Update) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-queue:
			if err := p.processor.Process(ctx, &u); err != nil {
				log.WithError(err).WithField("update_id", u.UpdateID).Error("cant process update")
			}
		}
	}
}

func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Poller) poll(ctx context.Context, queues []chan api.Update) {
	config := api.NewUpdate(0)
	config.Timeout = pollTimeout

	for ctx.Err() == nil {
		updates, err := p.source.GetUpdates(config)
		if err != nil {
			log.WithError(err).Warn("get updates failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
			continue
		}
		for _, update := range updates {
			if update.UpdateID < config.Offset {
				continue
			}
			config.Offset = update.UpdateID + 1
			select {
			case queues[shard(&update, len(queues))] <- update:
			case <-ctx.Done():
				return
			}
		}
	}
}

func shard(u *api.Update, n int) int {
	var key int64
	if user := u.SentFrom(); user != nil {
		key = user.ID
	} else if chat := u.FromChat(); chat != nil {
		key = chat.ID
	}
	if key < 0 {
		key = -key
	}
	return int(key % int64(n))
}
