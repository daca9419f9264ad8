package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetConfig returns the stored value for key, or ("", false, nil) if
// unset.
func (s *Store) GetConfig(ctx context.Context, key string) (string, bool, error) {
	m := new(configModel)
	err := s.db.NewSelect().Model(m).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite: get config %s: %w", key, classify(err))
	}
	return m.Value, true, nil
}

// SetConfig upserts a (key, value) row, last-writer-wins.
func (s *Store) SetConfig(ctx context.Context, key, value string) error {
	_, err := s.db.NewInsert().
		Model(&configModel{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: set config %s: %w", key, classify(err))
	}
	return nil
}

// ListConfig returns every explicitly set (key, value) row.
func (s *Store) ListConfig(ctx context.Context) (map[string]string, error) {
	var models []*configModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("sqlite: list config: %w", classify(err))
	}
	out := make(map[string]string, len(models))
	for _, m := range models {
		out[m.Key] = m.Value
	}
	return out, nil
}
