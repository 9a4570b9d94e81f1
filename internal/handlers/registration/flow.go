// Package registration runs the operator form that turns an uploaded attachment
// into a stored item with an access code.
package registration

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iamwavecut/gatebot/internal/db"
	apperrors "github.com/iamwavecut/gatebot/internal/errors"
)

// MaxTitleLength is Telegram's media caption limit; the title is sent as the caption.
const MaxTitleLength = 1024

type State string

const (
	StateIdle          State = "idle"
	StateAwaitingTitle State = "awaiting_title"
	StateAwaitingCover State = "awaiting_cover"
	StateFinalizing    State = "finalizing"
)

var (
	// ErrRegistrationPending rejects a new attachment while a form is open.
	ErrRegistrationPending = fmt.Errorf("registration already in progress: %w", apperrors.ErrConflict)
	// ErrUnexpectedInput is returned when the input does not fit the current state.
	ErrUnexpectedInput = fmt.Errorf("unexpected input for registration state: %w", apperrors.ErrInvalidInput)
	ErrEmptyTitle      = fmt.Errorf("title must not be empty: %w", apperrors.ErrInvalidInput)
	ErrTitleTooLong    = fmt.Errorf("title must not exceed %d characters: %w", MaxTitleLength, apperrors.ErrInvalidInput)
	errEmptyAttachment = errors.New("attachment has no file reference")
)

// Attachment is the original upload the code will point to.
type Attachment struct {
	Kind      db.ContentKind `json:"kind"`
	Ref       string         `json:"ref"`
	ChatID    int64          `json:"chat_id"`
	MessageID int            `json:"message_id"`
	// SubmissionID links the form to an approved user submission.
	SubmissionID int64 `json:"submission_id,omitempty"`
}

// Flow is one operator's form state. Transitions return a new value and leave the
// receiver untouched.
type Flow struct {
	State   State       `json:"state"`
	Pending *Attachment `json:"pending,omitempty"`
	Title   string      `json:"title,omitempty"`
	// Cover is the file id of the announcement image; empty when skipped.
	Cover string `json:"cover,omitempty"`
}

func (f Flow) Active() bool {
	return f.State == StateAwaitingTitle || f.State == StateAwaitingCover || f.State == StateFinalizing
}

func (f Flow) Begin(att Attachment) (Flow, error) {
	if f.Active() {
		return f, ErrRegistrationPending
	}
	if att.Ref == "" || !att.Kind.Valid() {
		return f, errEmptyAttachment
	}
	return Flow{State: StateAwaitingTitle, Pending: &att}, nil
}

func (f Flow) SetTitle(title string) (Flow, error) {
	if f.State != StateAwaitingTitle {
		return f, ErrUnexpectedInput
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return f, ErrEmptyTitle
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return f, ErrTitleTooLong
	}
	next := f
	next.State = StateAwaitingCover
	next.Title = title
	return next, nil
}

// SetCover records the cover image; an empty fileID skips it.
func (f Flow) SetCover(fileID string) (Flow, error) {
	if f.State != StateAwaitingCover {
		return f, ErrUnexpectedInput
	}
	next := f
	next.State = StateFinalizing
	next.Cover = fileID
	return next, nil
}
