package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/iamwavecut/gatebot/internal/db"
)

// InsertUserIfAbsent records a user the first time they are seen and reports
// whether a row was created.
func (c *sqliteClient) InsertUserIfAbsent(ctx context.Context, user *db.User) (bool, error) {
	if user.FirstSeen.IsZero() {
		user.FirstSeen = time.Now()
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	res, err := c.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, username, first_name, first_seen)
		VALUES (:user_id, :username, :first_name, :first_seen)
		ON CONFLICT(user_id) DO NOTHING
	`, user)
	if err != nil {
		return false, fmt.Errorf("failed to insert user %d: %w", user.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert user %d: %w", user.ID, err)
	}
	return n > 0, nil
}

func (c *sqliteClient) ListUserIDs(ctx context.Context) ([]int64, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var ids []int64
	if err := c.db.SelectContext(ctx, &ids, `SELECT user_id FROM users ORDER BY first_seen, user_id`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return ids, nil
}

func (c *sqliteClient) CountUsers(ctx context.Context) (int, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var count int
	if err := c.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
