// Package gate decides whether a user belongs to every configured target chat.
package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/iamwavecut/gatebot/internal/observability"
	"github.com/iamwavecut/gatebot/internal/settings"
)

const (
	lookupConcurrency = 4
	inviteLinkTTL     = time.Hour
)

var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

type MemberLookup interface {
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
	GetChat(config api.ChatInfoConfig) (api.ChatFullInfo, error)
}

type SnapshotSource interface {
	Snapshot() settings.Snapshot
}

// TargetFailure is a lookup that errored. The target still counts as missing.
type TargetFailure struct {
	Target settings.Target
	Err    error
}

type Decision struct {
	Admitted bool
	// Missing keeps the configured target order.
	Missing  []settings.Target
	Failures []TargetFailure
}

type Gate struct {
	client MemberLookup
	source SnapshotSource

	linksMu sync.RWMutex
	links   map[int64]cachedLink
}

type cachedLink struct {
	url     string
	expires time.Time
}

func New(client MemberLookup, source SnapshotSource) *Gate {
	return &Gate{
		client: client,
		source: source,
		links:  make(map[int64]cachedLink),
	}
}

func (g *Gate) getLogEntry() *log.Entry {
	return log.WithField("context", "gate")
}

// Check admits userID only when every target reports a member status. The error is
// non-nil only when ctx ends before all lookups finish.
func (g *Gate) Check(ctx context.Context, userID int64) (Decision, error) {
	targets := g.source.Snapshot().Targets

	ctx, span := observability.Tracer().Start(ctx, "gate.check")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user_id", userID),
		attribute.Int("targets", len(targets)),
	)

	if len(targets) == 0 {
		observability.RecordGateCheck(true, 0)
		return Decision{Admitted: true}, nil
	}

	satisfied := make([]bool, len(targets))
	failures := make([]error, len(targets))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(lookupConcurrency)
	for i, target := range targets {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ok, err := g.isMember(target, userID)
			satisfied[i] = ok
			failures[i] = err
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Decision{}, err
	}
	if err := ctx.Err(); err != nil {
		return Decision{}, err
	}

	decision := Decision{}
	for i, target := range targets {
		if failures[i] != nil {
			decision.Failures = append(decision.Failures, TargetFailure{Target: target, Err: failures[i]})
			g.getLogEntry().WithFields(log.Fields{
				"target":  target.Ref,
				"user_id": userID,
				"error":   failures[i].Error(),
			}).Warn("membership lookup failed, treating as not joined")
		}
		if !satisfied[i] {
			decision.Missing = append(decision.Missing, target)
		}
	}
	decision.Admitted = len(decision.Missing) == 0

	observability.RecordGateCheck(decision.Admitted, len(decision.Failures))
	span.SetAttributes(
		attribute.Bool("admitted", decision.Admitted),
		attribute.Int("missing", len(decision.Missing)),
	)
	return decision, nil
}

func (g *Gate) isMember(target settings.Target, userID int64) (bool, error) {
	chatConfig, err := chatConfigFor(target)
	if err != nil {
		return false, err
	}
	member, err := g.client.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: chatConfig,
			UserID:     userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member %s: %w", target.Ref, err)
	}
	return memberStatuses[member.Status], nil
}

func chatConfigFor(target settings.Target) (api.ChatConfig, error) {
	if id, ok := target.ChatID(); ok {
		return api.ChatConfig{ChatID: id}, nil
	}
	if name, ok := target.Username(); ok {
		return api.ChatConfig{ChannelUsername: name}, nil
	}
	return api.ChatConfig{}, fmt.Errorf("unsupported target %q", target.Ref)
}

// JoinURL returns the link a user follows to join target. Explicit links win, public
// usernames map to t.me, numeric chats use their invite link and fall back to the
// shared join link. An empty result means no link is known.
func (g *Gate) JoinURL(target settings.Target) string {
	if target.JoinURL != "" {
		return target.JoinURL
	}
	if name, ok := target.Username(); ok {
		return "https://t.me/" + strings.TrimPrefix(name, "@")
	}
	if id, ok := target.ChatID(); ok {
		if link := g.inviteLink(id); link != "" {
			return link
		}
	}
	return g.source.Snapshot().JoinLink
}

func (g *Gate) inviteLink(chatID int64) string {
	now := time.Now()
	g.linksMu.RLock()
	cached, found := g.links[chatID]
	g.linksMu.RUnlock()
	if found && now.Before(cached.expires) {
		return cached.url
	}

	info, err := g.client.GetChat(api.ChatInfoConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		g.getLogEntry().WithFields(log.Fields{
			"chat_id": chatID,
			"error":   err.Error(),
		}).Warn("cant resolve invite link")
		return ""
	}

	g.linksMu.Lock()
	g.links[chatID] = cachedLink{url: info.InviteLink, expires: now.Add(inviteLinkTTL)}
	g.linksMu.Unlock()
	return info.InviteLink
}

// Forget drops cached invite links, used after the target list changes.
func (g *Gate) Forget() {
	g.linksMu.Lock()
	g.links = make(map[int64]cachedLink)
	g.linksMu.Unlock()
}
