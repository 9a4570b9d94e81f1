package settings

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

type Persister interface {
	SeedSetting(ctx context.Context, key, value string) error
	SetSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]string, error)
}

// Snapshot is an immutable view of all settings at one point in time.
type Snapshot struct {
	StartText      string
	Targets        []Target
	JoinLink       string
	ForbiddenWords []string
	ProtectContent bool
	BackupChatID   int64
	PublishChatID  int64
	LogChatID      int64
	DeniedText     string
	NotFoundText   string

	raw map[string]string
}

// Raw returns the persisted string form of a key.
func (s Snapshot) Raw(key string) string {
	return s.raw[key]
}

// Store serves the current Snapshot and is the only writer of settings.
type Store struct {
	persister Persister
	current   atomic.Pointer[Snapshot]

	mu        sync.Mutex
	listeners []func(Snapshot)
}

// NewStore seeds absent keys with defaults and loads the first snapshot.
func NewStore(ctx context.Context, persister Persister, defaults map[string]string) (*Store, error) {
	for key, value := range defaults {
		if !IsKnown(key) {
			return nil, fmt.Errorf("%w: default for %q", ErrUnknownKey, key)
		}
		normalized, err := Normalize(key, value)
		if err != nil {
			return nil, fmt.Errorf("default for %s: %w", key, err)
		}
		if err := persister.SeedSetting(ctx, key, normalized); err != nil {
			return nil, err
		}
	}

	s := &Store{persister: persister}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Reload rebuilds the snapshot from storage.
func (s *Store) Reload(ctx context.Context) error {
	raw, err := s.persister.AllSettings(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	snap := buildSnapshot(raw)
	s.current.Store(&snap)
	return nil
}

// Update validates value, writes it through and publishes the new snapshot.
func (s *Store) Update(ctx context.Context, key, value string) (Snapshot, error) {
	normalized, err := Normalize(key, value)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persister.SetSetting(ctx, key, normalized); err != nil {
		return Snapshot{}, err
	}

	prev := s.current.Load()
	raw := make(map[string]string, len(prev.raw)+1)
	for k, v := range prev.raw {
		raw[k] = v
	}
	raw[key] = normalized
	snap := buildSnapshot(raw)
	s.current.Store(&snap)

	log.WithField("key", key).Info("setting updated")
	for _, fn := range s.listeners {
		fn(snap)
	}
	return snap, nil
}

// OnChange registers fn to run after every successful Update, and once right away
// with the current snapshot.
func (s *Store) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
	fn(s.Snapshot())
}

func buildSnapshot(raw map[string]string) Snapshot {
	snap := Snapshot{
		StartText:      raw[KeyStartText],
		JoinLink:       raw[KeyJoinLink],
		ForbiddenWords: ParseWords(raw[KeyForbiddenWords]),
		DeniedText:     raw[KeyDeniedText],
		NotFoundText:   raw[KeyNotFoundText],
		BackupChatID:   parseChatID(raw[KeyBackupChat]),
		PublishChatID:  parseChatID(raw[KeyPublishChat]),
		LogChatID:      parseChatID(raw[KeyLogChat]),
		raw:            raw,
	}
	if b, err := strconv.ParseBool(raw[KeyProtectContent]); err == nil {
		snap.ProtectContent = b
	}
	targets, err := ParseTargets(raw[KeyTargets])
	if err != nil {
		log.WithError(err).Warn("stored targets are invalid, gate is open")
	}
	snap.Targets = targets
	return snap
}

func parseChatID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
