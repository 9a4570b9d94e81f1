package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/gatebot/internal/db"
)

func (c *sqliteClient) GetRegistrationSession(ctx context.Context, operatorID int64) (*db.RegistrationSession, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	session := &db.RegistrationSession{}
	query := `SELECT operator_id, state, state_json, updated_at FROM registration_sessions WHERE operator_id = ?`
	if err := c.db.GetContext(ctx, session, query, operatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get registration session: %w", err)
	}
	return session, nil
}

func (c *sqliteClient) SaveRegistrationSession(ctx context.Context, session *db.RegistrationSession) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO registration_sessions (operator_id, state, state_json, updated_at)
		VALUES (:operator_id, :state, :state_json, :updated_at)
		ON CONFLICT(operator_id) DO UPDATE SET
		state = excluded.state,
		state_json = excluded.state_json,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("failed to save registration session: %w", err)
	}
	return nil
}

func (c *sqliteClient) DeleteRegistrationSession(ctx context.Context, operatorID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM registration_sessions WHERE operator_id = ?`, operatorID); err != nil {
		return fmt.Errorf("failed to delete registration session: %w", err)
	}
	return nil
}

func (c *sqliteClient) GetOperatorPrompt(ctx context.Context, operatorID int64) (*db.OperatorPrompt, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	prompt := &db.OperatorPrompt{}
	query := `SELECT operator_id, setting_key, created_at FROM operator_prompts WHERE operator_id = ?`
	if err := c.db.GetContext(ctx, prompt, query, operatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get operator prompt: %w", err)
	}
	return prompt, nil
}

func (c *sqliteClient) SetOperatorPrompt(ctx context.Context, prompt *db.OperatorPrompt) error {
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = time.Now()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO operator_prompts (operator_id, setting_key, created_at)
		VALUES (:operator_id, :setting_key, :created_at)
		ON CONFLICT(operator_id) DO UPDATE SET
		setting_key = excluded.setting_key,
		created_at = excluded.created_at
	`
	if _, err := c.db.NamedExecContext(ctx, query, prompt); err != nil {
		return fmt.Errorf("failed to set operator prompt: %w", err)
	}
	return nil
}

func (c *sqliteClient) DeleteOperatorPrompt(ctx context.Context, operatorID int64) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM operator_prompts WHERE operator_id = ?`, operatorID); err != nil {
		return fmt.Errorf("failed to delete operator prompt: %w", err)
	}
	return nil
}
