package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iamwavecut/gatebot/internal/db"
)

func (c *sqliteClient) CreateMedia(ctx context.Context, item *db.MediaItem) error {
	if item == nil || item.Code == "" {
		return fmt.Errorf("create media: empty code")
	}
	if !item.Kind.Valid() {
		return fmt.Errorf("create media: unknown content kind %q", item.Kind)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO media (code, content_kind, content_ref, title, backup_location, created_by, created_at)
		VALUES (:code, :content_kind, :content_ref, :title, :backup_location, :created_by, :created_at)
	`
	if _, err := c.db.NamedExecContext(ctx, query, item); err != nil {
		if isUniqueViolation(err) {
			return db.ErrCodeConflict
		}
		return fmt.Errorf("failed to create media %s: %w", item.Code, err)
	}
	return nil
}

func (c *sqliteClient) GetMedia(ctx context.Context, code string) (*db.MediaItem, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item := &db.MediaItem{}
	query := `
		SELECT code, content_kind, content_ref, title, backup_location, created_by, created_at
		FROM media
		WHERE code = ?
	`
	if err := c.db.GetContext(ctx, item, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get media %s: %w", code, err)
	}
	return item, nil
}

func (c *sqliteClient) DeleteMedia(ctx context.Context, code string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.ExecContext(ctx, `DELETE FROM media WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("failed to delete media %s: %w", code, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (c *sqliteClient) CountMedia(ctx context.Context) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM media`); err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return count, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
