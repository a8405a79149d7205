package models

import "time"

// Table names a persisted aggregate.
type Table string

const (
	TableAccounts Table = "accounts"
	TableSettings Table = "user_settings"
	TableHistory  Table = "usage_history"
)

// AllTables lists every table a realtime feed can report on.
var AllTables = []Table{TableAccounts, TableSettings, TableHistory}

// ChangeOp is the kind of change reported by a realtime feed.
type ChangeOp string

const (
	OpInsert ChangeOp = "insert"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent notifies subscribers that a table changed.
type ChangeEvent struct {
	At        time.Time `json:"at"`
	Table     Table     `json:"table"`
	Op        ChangeOp  `json:"op"`
	UserID    string    `json:"user_id"`
	Source    string    `json:"source,omitempty"`
	AccountID int       `json:"account_id,omitempty"`
}
