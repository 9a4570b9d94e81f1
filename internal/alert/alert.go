// Package alert surfaces unexpected failures to operators.
package alert

import (
	"context"
	"fmt"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
)

const maxDetailLen = 3500

type Sender interface {
	Send(c api.Chattable) (api.Message, error)
}

type Reporter struct {
	bot       Sender
	operators []int64
	sentry    bool
}

// New builds a reporter. Sentry is enabled only when dsn is set.
func New(bot Sender, operators []int64, dsn string) (*Reporter, error) {
	r := &Reporter{bot: bot, operators: operators}
	if dsn == "" {
		return r, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		AttachStacktrace: true,
	}); err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}
	r.sentry = true
	return r, nil
}

// Report logs err, forwards it to Sentry when enabled and messages every operator.
// where names the failing operation.
func (r *Reporter) Report(ctx context.Context, where string, err error, fields log.Fields) {
	if err == nil {
		return
	}
	entry := log.WithFields(fields).WithField("where", where)
	entry.WithField("error", err.Error()).Error("operation failed")

	if r.sentry {
		hub := sentry.CurrentHub().Clone()
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("where", where)
			for k, v := range fields {
				scope.SetExtra(k, v)
			}
			hub.CaptureException(err)
		})
	}

	text := fmt.Sprintf("⚠️ %s failed:\n%s", where, err.Error())
	if len(text) > maxDetailLen {
		text = text[:maxDetailLen] + "…"
	}
	for _, operatorID := range r.operators {
		if ctx.Err() != nil {
			return
		}
		if _, sendErr := r.bot.Send(api.NewMessage(operatorID, text)); sendErr != nil {
			entry.WithField("operator_id", operatorID).WithError(sendErr).Warn("cant deliver alert")
		}
	}
}

// Flush waits for buffered Sentry events.
func (r *Reporter) Flush(timeout time.Duration) {
	if r.sentry {
		sentry.Flush(timeout)
	}
}
