package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iamwavecut/gatebot/internal/db"
)

func (c *sqliteClient) CreateSubmission(ctx context.Context, sub *db.Submission) (int64, error) {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	if sub.Status == "" {
		sub.Status = db.SubmissionPending
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO submissions (user_id, chat_id, message_id, content_kind, content_ref, caption, status, created_at)
		VALUES (:user_id, :chat_id, :message_id, :content_kind, :content_ref, :caption, :status, :created_at)
	`
	res, err := c.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return 0, fmt.Errorf("failed to create submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get submission id: %w", err)
	}
	sub.ID = id
	return id, nil
}

func (c *sqliteClient) GetSubmission(ctx context.Context, id int64) (*db.Submission, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	sub := &db.Submission{}
	query := `
		SELECT id, user_id, chat_id, message_id, content_kind, content_ref, caption, status, decided_by, created_at, decided_at
		FROM submissions
		WHERE id = ?
	`
	if err := c.db.GetContext(ctx, sub, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get submission %d: %w", id, err)
	}
	return sub, nil
}

// DecideSubmission moves a pending submission to its final status. Only the first
// decision wins; later ones get db.ErrAlreadyDecided.
func (c *sqliteClient) DecideSubmission(ctx context.Context, id int64, status db.SubmissionStatus, decidedBy int64) error {
	if status != db.SubmissionApproved && status != db.SubmissionRejected {
		return fmt.Errorf("invalid submission status %q", status)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE submissions
		SET status = ?, decided_by = ?, decided_at = ?
		WHERE id = ? AND status = ?
	`, status, decidedBy, time.Now(), id, db.SubmissionPending)
	if err != nil {
		return fmt.Errorf("failed to decide submission %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to decide submission %d: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	if err := c.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM submissions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to check submission %d: %w", id, err)
	}
	if exists == 0 {
		return db.ErrNotFound
	}
	return db.ErrAlreadyDecided
}

func (c *sqliteClient) CountSubmissions(ctx context.Context, status db.SubmissionStatus) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM submissions WHERE status = ?`, status); err != nil {
		return 0, fmt.Errorf("failed to count submissions: %w", err)
	}
	return count, nil
}
