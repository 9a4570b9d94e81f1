package registration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iamwavecut/gatebot/internal/db"
)

type sessionStore interface {
	GetRegistrationSession(ctx context.Context, operatorID int64) (*db.RegistrationSession, error)
	SaveRegistrationSession(ctx context.Context, session *db.RegistrationSession) error
	DeleteRegistrationSession(ctx context.Context, operatorID int64) error
}

// Sessions persists Flow values so an open form survives restarts.
type Sessions struct {
	store sessionStore
}

func NewSessions(store sessionStore) *Sessions {
	return &Sessions{store: store}
}

func (s *Sessions) Load(ctx context.Context, operatorID int64) (Flow, error) {
	session, err := s.store.GetRegistrationSession(ctx, operatorID)
	if err != nil {
		return Flow{}, err
	}
	if session == nil {
		return Flow{State: StateIdle}, nil
	}
	var flow Flow
	if err := json.Unmarshal([]byte(session.StateJSON), &flow); err != nil {
		return Flow{}, fmt.Errorf("decode registration session: %w", err)
	}
	return flow, nil
}

func (s *Sessions) Save(ctx context.Context, operatorID int64, flow Flow) error {
	if !flow.Active() {
		return s.Clear(ctx, operatorID)
	}
	raw, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("encode registration session: %w", err)
	}
	return s.store.SaveRegistrationSession(ctx, &db.RegistrationSession{
		OperatorID: operatorID,
		State:      string(flow.State),
		StateJSON:  string(raw),
	})
}

func (s *Sessions) Clear(ctx context.Context, operatorID int64) error {
	return s.store.DeleteRegistrationSession(ctx, operatorID)
}
