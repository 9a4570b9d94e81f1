package sqlite

import (
	"context"
	"fmt"
)

func (c *sqliteClient) SetSetting(ctx context.Context, key, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SeedSetting stores value only when the key has never been written.
func (c *sqliteClient) SeedSetting(ctx context.Context, key, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to seed setting %s: %w", key, err)
	}
	return nil
}

func (c *sqliteClient) AllSettings(ctx context.Context) (map[string]string, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var rows []struct {
		Key   string `db:"key"`
		Value string `db:"value"`
	}
	if err := c.db.SelectContext(ctx, &rows, `SELECT key, value FROM settings`); err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	res := make(map[string]string, len(rows))
	for _, row := range rows {
		res[row.Key] = row.Value
	}
	return res, nil
}
