package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
	"github.com/j-veylop/usage-ledger-tui/internal/store"
)

// GetHistory returns the usage samples of a user, oldest first unless the
// query asks otherwise. Samples sharing a timestamp keep insertion order.
func (db *DB) GetHistory(ctx context.Context, userID string, q store.HistoryQuery) ([]models.Sample, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, timestamp, account1, account2, account3 FROM usage_history WHERE user_id = ?`)
	args := []any{userID}

	if !q.Since.IsZero() {
		sb.WriteString(` AND timestamp >= ?`)
		args = append(args, formatTime(q.Since))
	}
	if q.Descending {
		sb.WriteString(` ORDER BY timestamp DESC, id DESC`)
	} else {
		sb.WriteString(` ORDER BY timestamp ASC, id ASC`)
	}
	if q.Limit > 0 {
		sb.WriteString(` LIMIT ?`)
		args = append(args, q.Limit)
	}

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var samples []models.Sample
	for rows.Next() {
		var (
			s          models.Sample
			ts         string
			a1, a2, a3 float64
		)
		if err := rows.Scan(&s.ID, &ts, &a1, &a2, &a3); err != nil {
			return nil, fmt.Errorf("failed to scan usage sample: %w", err)
		}
		if s.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("failed to parse sample time: %w", err)
		}
		s.Usage = map[int]float64{1: a1, 2: a2, 3: a3}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

// SaveHistoryPoint appends a sample and sets its ID.
func (db *DB) SaveHistoryPoint(ctx context.Context, userID string, sample *models.Sample) error {
	query := `
		INSERT INTO usage_history (user_id, timestamp, account1, account2, account3)
		VALUES (?, ?, ?, ?, ?)
	`

	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		userID,
		formatTime(sample.Timestamp),
		sample.Value(1),
		sample.Value(2),
		sample.Value(3),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage sample: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		sample.ID = id
	}

	db.publish(models.TableHistory, models.OpInsert, userID, 0)
	return nil
}

// ClearHistory deletes every sample of a user.
func (db *DB) ClearHistory(ctx context.Context, userID string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM usage_history WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to clear usage history: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count cleared samples: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	db.publish(models.TableHistory, models.OpDelete, userID, 0)
	return true, nil
}

// CountHistory returns the number of stored samples of a user.
func (db *DB) CountHistory(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage_history WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage history: %w", err)
	}
	return n, nil
}
