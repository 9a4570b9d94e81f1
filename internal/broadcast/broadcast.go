// Package broadcast delivers one message to many users under a send rate limit.
package broadcast

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iamwavecut/gatebot/internal/observability"
)

type Report struct {
	Total    int
	Sent     int
	Failed   int
	Duration time.Duration
	// Cancelled is set when the run stopped before reaching every recipient.
	Cancelled bool
}

// SendFunc delivers the broadcast to one recipient.
type SendFunc func(ctx context.Context, userID int64) error

type Broadcaster struct {
	limiter *rate.Limiter
}

// New returns a broadcaster sending at most perSecond messages per second.
func New(perSecond float64, burst int) *Broadcaster {
	if burst < 1 {
		burst = 1
	}
	return &Broadcaster{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Broadcast sends to every recipient in order. Failures are counted and never stop
// the run; a cancelled ctx does, and the partial report is returned.
func (b *Broadcaster) Broadcast(ctx context.Context, recipients []int64, send SendFunc) Report {
	started := time.Now()
	report := Report{Total: len(recipients)}
	entry := log.WithField("context", "broadcast")

	for _, userID := range recipients {
		if err := b.limiter.Wait(ctx); err != nil {
			report.Cancelled = true
			break
		}
		if err := send(ctx, userID); err != nil {
			report.Failed++
			entry.WithFields(log.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Debug("broadcast delivery failed")
			continue
		}
		report.Sent++
	}

	report.Duration = time.Since(started)
	observability.RecordBroadcast(report.Sent, report.Failed)
	entry.WithFields(log.Fields{
		"total":  report.Total,
		"sent":   report.Sent,
		"failed": report.Failed,
	}).Info("broadcast finished")
	return report
}
