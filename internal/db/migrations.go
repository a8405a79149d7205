package db

import (
	"context"
	"fmt"
)

// FixLegacyTimeFormats rewrites timestamps written by time.Time.String
// (" +0000 UTC" suffix) into the sortable layout used by the queries.
func (db *DB) FixLegacyTimeFormats() error {
	queries := []string{
		`UPDATE usage_history
		 SET timestamp = SUBSTR(timestamp, 1, 19) || '.000'
		 WHERE length(timestamp) > 23 AND timestamp LIKE '% UTC'`,

		`UPDATE accounts
		 SET reset_date = SUBSTR(reset_date, 1, 19) || '.000'
		 WHERE reset_date IS NOT NULL AND length(reset_date) > 23 AND reset_date LIKE '% UTC'`,

		`UPDATE usage_history
		 SET timestamp = timestamp || '.000'
		 WHERE length(timestamp) = 19`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to fix legacy time formats: %w", err)
		}
	}

	return nil
}
