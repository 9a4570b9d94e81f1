// Package access turns an access code into delivered content for members of every
// required chat.
package access

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/db"
	"github.com/iamwavecut/gatebot/internal/gate"
	"github.com/iamwavecut/gatebot/internal/i18n"
	"github.com/iamwavecut/gatebot/internal/observability"
	"github.com/iamwavecut/gatebot/internal/settings"
)

// State is a stage of one access request. Gating and Delivering are transient;
// every Result ends in one of the others.
type State string

const (
	StateAwaitingCode State = "awaiting_code"
	StateGating       State = "gating"
	StateDenied       State = "denied"
	StateDelivering   State = "delivering"
	StateDelivered    State = "delivered"
	StateNotFound     State = "not_found"
	StateUnavailable  State = "unavailable"
)

type Request struct {
	UserID int64
	ChatID int64
	Code   string
	Lang   string
}

type Result struct {
	Outcome State
	// Missing lists the targets still to join when Outcome is StateDenied.
	Missing []settings.Target
	Item    *db.MediaItem
	// MessageID is the id of the message sent to the user.
	MessageID int
	// DeliveryErr holds the platform error behind StateUnavailable.
	DeliveryErr error
}

type Gatekeeper interface {
	Check(ctx context.Context, userID int64) (gate.Decision, error)
	JoinURL(target settings.Target) string
}

type mediaStore interface {
	GetMedia(ctx context.Context, code string) (*db.MediaItem, error)
}

type SnapshotSource interface {
	Snapshot() settings.Snapshot
}

type Alerter interface {
	Report(ctx context.Context, where string, err error, fields log.Fields)
}

type Dispatcher struct {
	bot      bot.Client
	gate     Gatekeeper
	media    mediaStore
	settings SnapshotSource
	alerts   Alerter
}

func NewDispatcher(client bot.Client, g Gatekeeper, media mediaStore, source SnapshotSource, alerts Alerter) *Dispatcher {
	return &Dispatcher{
		bot:      client,
		gate:     g,
		media:    media,
		settings: source,
		alerts:   alerts,
	}
}

func (d *Dispatcher) getLogEntry() *log.Entry {
	return log.WithField("context", "access")
}

// HandleAccessRequest runs one request to a terminal state and answers the user.
// Expected outcomes are reported in Result; the error is reserved for failures
// talking to storage or Telegram outside content delivery.
func (d *Dispatcher) HandleAccessRequest(ctx context.Context, req Request) (Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "access.request")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", req.UserID), attribute.String("code", req.Code))

	res, err := d.handle(ctx, req)
	if err != nil {
		span.RecordError(err)
		return res, err
	}
	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	observability.RecordAccessOutcome(string(res.Outcome))
	return res, nil
}

func (d *Dispatcher) handle(ctx context.Context, req Request) (Result, error) {
	entry := d.getLogEntry().WithFields(log.Fields{"user_id": req.UserID, "code": req.Code})
	snap := d.settings.Snapshot()

	if req.Code == "" {
		msg, err := bot.SendText(d.bot, req.ChatID, snap.StartText)
		if err != nil {
			return Result{}, err
		}
		return Result{Outcome: StateAwaitingCode, MessageID: msg.MessageID}, nil
	}
	if !codes.Valid(req.Code) {
		return d.notFound(req, snap)
	}

	entry.WithField("state", StateGating).Trace("checking membership")
	decision, err := d.gate.Check(ctx, req.UserID)
	if err != nil {
		return Result{}, errors.WithMessage(err, "membership check")
	}
	if !decision.Admitted {
		return d.deny(req, snap, decision.Missing)
	}

	item, err := d.media.GetMedia(ctx, req.Code)
	if err != nil {
		return Result{}, errors.WithMessage(err, "media lookup")
	}
	if item == nil {
		return d.notFound(req, snap)
	}

	entry.WithField("state", StateDelivering).Trace("delivering")
	msg, err := d.bot.Send(MediaMessage(req.ChatID, item, snap.ProtectContent))
	if err != nil {
		return d.unavailable(ctx, req, item, err)
	}
	entry.Debug("content delivered")
	return Result{Outcome: StateDelivered, Item: item, MessageID: msg.MessageID}, nil
}

func (d *Dispatcher) deny(req Request, snap settings.Snapshot, missing []settings.Target) (Result, error) {
	rows := make([][]api.InlineKeyboardButton, 0, len(missing)+1)
	for _, target := range missing {
		link := d.gate.JoinURL(target)
		if link == "" {
			d.getLogEntry().WithField("target", target.Ref).Warn("no join link for target")
			continue
		}
		label := fmt.Sprintf(i18n.Get("Join channel %d", req.Lang), len(rows)+1)
		rows = append(rows, api.NewInlineKeyboardRow(api.NewInlineKeyboardButtonURL(label, link)))
	}
	rows = append(rows, api.NewInlineKeyboardRow(
		api.NewInlineKeyboardButtonData(i18n.Get("🔄 Try again", req.Lang), codes.RetryData(req.Code)),
	))

	msg := api.NewMessage(req.ChatID, snap.DeniedText)
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(rows...)
	sent, err := d.bot.Send(msg)
	if err != nil {
		return Result{}, errors.WithMessage(err, "cant send join prompt")
	}
	return Result{Outcome: StateDenied, Missing: missing, MessageID: sent.MessageID}, nil
}

func (d *Dispatcher) notFound(req Request, snap settings.Snapshot) (Result, error) {
	msg, err := bot.SendText(d.bot, req.ChatID, snap.NotFoundText)
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: StateNotFound, MessageID: msg.MessageID}, nil
}

func (d *Dispatcher) unavailable(ctx context.Context, req Request, item *db.MediaItem, cause error) (Result, error) {
	d.alerts.Report(ctx, "content delivery", cause, log.Fields{
		"code":    item.Code,
		"kind":    item.Kind,
		"user_id": req.UserID,
	})
	res := Result{Outcome: StateUnavailable, Item: item, DeliveryErr: cause}
	msg, err := bot.SendText(d.bot, req.ChatID, i18n.Get("This content is temporarily unavailable. The admins have been notified.", req.Lang))
	if err != nil {
		return res, err
	}
	res.MessageID = msg.MessageID
	return res, nil
}

// MediaMessage builds the send request for item. The switch covers every ContentKind.
func MediaMessage(chatID int64, item *db.MediaItem, protect bool) api.Chattable {
	file := api.FileID(item.ContentRef)
	switch item.Kind {
	case db.KindPhoto:
		m := api.NewPhoto(chatID, file)
		m.Caption, m.ProtectContent = item.Title, protect
		return m
	case db.KindVideo:
		m := api.NewVideo(chatID, file)
		m.Caption, m.ProtectContent = item.Title, protect
		return m
	case db.KindAnimation:
		m := api.NewAnimation(chatID, file)
		m.Caption, m.ProtectContent = item.Title, protect
		return m
	case db.KindDocument:
		m := api.NewDocument(chatID, file)
		m.Caption, m.ProtectContent = item.Title, protect
		return m
	}
	m := api.NewDocument(chatID, file)
	m.Caption, m.ProtectContent = item.Title, protect
	return m
}
