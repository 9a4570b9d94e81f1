package db

import (
	"context"
)

type Client interface {
	Close() error
	Snapshot(ctx context.Context, path string) error

	SetSetting(ctx context.Context, key, value string) error
	SeedSetting(ctx context.Context, key, value string) error
	AllSettings(ctx context.Context) (map[string]string, error)

	CreateMedia(ctx context.Context, item *MediaItem) error
	GetMedia(ctx context.Context, code string) (*MediaItem, error)
	DeleteMedia(ctx context.Context, code string) error
	CountMedia(ctx context.Context) (int, error)

	InsertUserIfAbsent(ctx context.Context, user *User) (bool, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
	CountUsers(ctx context.Context) (int, error)

	GetRegistrationSession(ctx context.Context, operatorID int64) (*RegistrationSession, error)
	SaveRegistrationSession(ctx context.Context, session *RegistrationSession) error
	DeleteRegistrationSession(ctx context.Context, operatorID int64) error

	GetOperatorPrompt(ctx context.Context, operatorID int64) (*OperatorPrompt, error)
	SetOperatorPrompt(ctx context.Context, prompt *OperatorPrompt) error
	DeleteOperatorPrompt(ctx context.Context, operatorID int64) error

	CreateSubmission(ctx context.Context, sub *Submission) (int64, error)
	GetSubmission(ctx context.Context, id int64) (*Submission, error)
	DecideSubmission(ctx context.Context, id int64, status SubmissionStatus, decidedBy int64) error
	CountSubmissions(ctx context.Context, status SubmissionStatus) (int, error)
}
