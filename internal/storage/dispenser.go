package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"gorm.io/gorm"

	"scoreboard/internal/apperr"
)

const defaultDispenseAttempts = 100

// DispenseID returns a new system-wide unique id in lowercase hex. Ids are
// monotonic because they come from a single auto-increment column.
func (s *Storage) DispenseID(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxDispenseAttempts; attempt++ {
		id, err := s.insertID(ctx)
		if err == nil {
			return strconv.FormatInt(id, 16), nil
		}
		if !isWriteConflict(err) {
			return "", fmt.Errorf("failed to dispense id: %w", err)
		}
		lastErr = err
		s.logger.Debug("dispense_id_conflict", slog.Int("attempt", attempt), slog.Any("error", err))
		if ctx.Err() != nil {
			return "", fmt.Errorf("failed to dispense id: %w", ctx.Err())
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", apperr.ErrDispenseExhausted, s.maxDispenseAttempts, lastErr)
}

// DispenseIDs returns n ids in dispense order.
func (s *Storage) DispenseIDs(ctx context.Context, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id, err := s.DispenseID(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// insertGeneratorRow appends a row and drops every older one in the same
// transaction. The surviving max row keeps the auto-increment counter from
// handing out an id twice.
func (s *Storage) insertGeneratorRow(ctx context.Context) (int64, error) {
	row := idGeneratorRow{Stub: "a"}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("id < ?", row.ID).Delete(&idGeneratorRow{}).Error
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}
