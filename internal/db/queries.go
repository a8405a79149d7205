package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const accountColumns = `account_number, usage_percent, reset_date, needs_update, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		acc       models.Account
		resetDate sql.NullString
		updatedAt string
	)
	if err := row.Scan(&acc.ID, &acc.Usage, &resetDate, &acc.NeedsAttention, &updatedAt); err != nil {
		return nil, err
	}

	if resetDate.Valid && resetDate.String != "" {
		t, err := parseTime(resetDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reset date: %w", err)
		}
		acc.ResetDate = &t
	}
	acc.UpdatedAt, _ = parseTime(updatedAt)
	acc.Name = models.DefaultAccountName(acc.ID)
	return &acc, nil
}

// GetAccounts returns the stored accounts of a user ordered by number.
func (db *DB) GetAccounts(ctx context.Context, userID string) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? ORDER BY account_number`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var accounts []models.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, *acc)
	}

	return accounts, rows.Err()
}

// GetAccount returns one account, or nil when it has no record.
func (db *DB) GetAccount(ctx context.Context, userID string, id int) (*models.Account, error) {
	return getAccount(ctx, db.DB, userID, id)
}

func getAccount(ctx context.Context, q queryer, userID string, id int) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ? AND account_number = ?`

	acc, err := scanAccount(q.QueryRowContext(ctx, query, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

func upsertAccount(ctx context.Context, q queryer, userID string, acc *models.Account, now time.Time) error {
	query := `
		INSERT INTO accounts (user_id, account_number, usage_percent, reset_date, needs_update, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, account_number) DO UPDATE SET
			usage_percent = excluded.usage_percent,
			reset_date = excluded.reset_date,
			needs_update = excluded.needs_update,
			updated_at = excluded.updated_at
	`

	var resetDate sql.NullString
	if acc.HasResetDate() {
		resetDate = sql.NullString{String: formatTime(*acc.ResetDate), Valid: true}
	}

	_, err := q.ExecContext(ctx, query,
		userID,
		acc.ID,
		acc.Usage,
		resetDate,
		acc.NeedsAttention,
		formatTime(now),
	)
	return err
}

func validAccountNumber(id int) error {
	if id < 1 || id > maxHistoryAccounts {
		return fmt.Errorf("invalid account number %d", id)
	}
	return nil
}

// SaveAccount applies patch to the stored account, creating it when absent.
func (db *DB) SaveAccount(ctx context.Context, userID string, id int, patch models.AccountPatch) error {
	if err := validAccountNumber(id); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	acc, err := getAccount(ctx, tx, userID, id)
	if err != nil {
		return err
	}
	op := models.OpUpdate
	if acc == nil {
		fresh := models.NewAccount(id)
		acc = &fresh
		op = models.OpInsert
	}
	patch.Apply(acc)

	if err := upsertAccount(ctx, tx, userID, acc, time.Now()); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}

	db.publish(models.TableAccounts, op, userID, id)
	return nil
}

// SaveAllAccounts overwrites every given account in one transaction.
func (db *DB) SaveAllAccounts(ctx context.Context, userID string, accounts []models.Account) error {
	for _, acc := range accounts {
		if err := validAccountNumber(acc.ID); err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for i := range accounts {
		if err := upsertAccount(ctx, tx, userID, &accounts[i], now); err != nil {
			return fmt.Errorf("failed to save account %d: %w", accounts[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit accounts: %w", err)
	}

	db.publish(models.TableAccounts, models.OpUpdate, userID, 0)
	return nil
}

// GetSettings returns the settings of a user, or nil when none are stored.
func (db *DB) GetSettings(ctx context.Context, userID string) (*models.Settings, error) {
	query := `SELECT x2_mode, account_names FROM user_settings WHERE user_id = ?`

	var (
		doubled bool
		names   string
	)
	err := db.QueryRowContext(ctx, query, userID).Scan(&doubled, &names)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	settings := models.DefaultSettings()
	if doubled {
		settings.CapacityMode = models.CapacityDoubled
	}
	if names != "" {
		if err := json.Unmarshal([]byte(names), &settings.AccountNames); err != nil {
			return nil, fmt.Errorf("failed to decode account names: %w", err)
		}
	}
	return &settings, nil
}

// SaveSettings upserts the settings of a user.
func (db *DB) SaveSettings(ctx context.Context, userID string, settings models.Settings) error {
	names, err := encodeNames(settings.AccountNames)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO user_settings (user_id, x2_mode, account_names, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			x2_mode = excluded.x2_mode,
			account_names = excluded.account_names,
			updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, userID, settings.Doubled(), names, formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	db.publish(models.TableSettings, models.OpUpdate, userID, 0)
	return nil
}

func encodeNames(names map[int]string) (string, error) {
	if names == nil {
		names = map[int]string{}
	}
	data, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("failed to encode account names: %w", err)
	}
	return string(data), nil
}

// InitializeUserData creates default accounts 1..n and default settings for
// a user. Rows that already exist are kept.
func (db *DB) InitializeUserData(ctx context.Context, userID string, n int) error {
	if n < 1 || n > maxHistoryAccounts {
		return fmt.Errorf("invalid account count %d", n)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	var createdAccounts, createdSettings int64

	for id := 1; id <= n; id++ {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO accounts (user_id, account_number, updated_at) VALUES (?, ?, ?)`,
			userID, id, now)
		if err != nil {
			return fmt.Errorf("failed to initialize account %d: %w", id, err)
		}
		affected, _ := res.RowsAffected()
		createdAccounts += affected
	}

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_settings (user_id, updated_at) VALUES (?, ?)`,
		userID, now)
	if err != nil {
		return fmt.Errorf("failed to initialize settings: %w", err)
	}
	createdSettings, _ = res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit user data: %w", err)
	}

	if createdAccounts > 0 {
		db.publish(models.TableAccounts, models.OpInsert, userID, 0)
	}
	if createdSettings > 0 {
		db.publish(models.TableSettings, models.OpInsert, userID, 0)
	}
	return nil
}
