package db

import (
	"fmt"
	"time"

	apperrors "github.com/iamwavecut/gatebot/internal/errors"
)

var (
	// ErrNotFound is returned by deletions and state transitions on missing rows.
	// Plain lookups return a nil entity instead.
	ErrNotFound = fmt.Errorf("record %w", apperrors.ErrNotFound)
	// ErrCodeConflict is returned when an access code is already registered.
	ErrCodeConflict = fmt.Errorf("access code %w", apperrors.ErrConflict)
	// ErrAlreadyDecided is returned when a submission left the pending state.
	ErrAlreadyDecided = fmt.Errorf("submission already decided: %w", apperrors.ErrConflict)
)

type (
	MediaItem struct {
		Code           string      `db:"code"`
		Kind           ContentKind `db:"content_kind"`
		ContentRef     string      `db:"content_ref"`
		Title          string      `db:"title"`
		BackupLocation string      `db:"backup_location"`
		CreatedBy      int64       `db:"created_by"`
		CreatedAt      time.Time   `db:"created_at"`
	}

	User struct {
		ID        int64     `db:"user_id"`
		Username  string    `db:"username"`
		FirstName string    `db:"first_name"`
		FirstSeen time.Time `db:"first_seen"`
	}

	RegistrationSession struct {
		OperatorID int64     `db:"operator_id"`
		State      string    `db:"state"`
		StateJSON  string    `db:"state_json"`
		UpdatedAt  time.Time `db:"updated_at"`
	}

	OperatorPrompt struct {
		OperatorID int64     `db:"operator_id"`
		SettingKey string    `db:"setting_key"`
		CreatedAt  time.Time `db:"created_at"`
	}

	Submission struct {
		ID         int64            `db:"id"`
		UserID     int64            `db:"user_id"`
		ChatID     int64            `db:"chat_id"`
		MessageID  int              `db:"message_id"`
		Kind       ContentKind      `db:"content_kind"`
		ContentRef string           `db:"content_ref"`
		Caption    string           `db:"caption"`
		Status     SubmissionStatus `db:"status"`
		DecidedBy  int64            `db:"decided_by"`
		CreatedAt  time.Time        `db:"created_at"`
		DecidedAt  *time.Time       `db:"decided_at"`
	}

	SubmissionStatus string
)

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// BackupLocation formats a copied message position as "<chat_id>/<message_id>".
func BackupLocation(chatID int64, messageID int) string {
	return fmt.Sprintf("%d/%d", chatID, messageID)
}
