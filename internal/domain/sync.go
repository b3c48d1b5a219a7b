package domain

import "time"

// SyncStats holds statistics about a sync operation.
type SyncStats struct {
	SourceID  string
	Fetched   int
	Created   int
	Updated   int
	Skipped   int
	Errors    int
	Comments  int
	Published int
	// LedgerErrors counts items that were published but could not be
	// recorded in the run ledger. They are not included in Errors.
	LedgerErrors int
	Duration     time.Duration
}

type SyncState struct {
	ID           int64     `db:"id"`
	SourceID     string    `db:"source_id"`
	LastSyncedAt time.Time `db:"last_synced_at"`
	LastItemID   string    `db:"last_item_id"`
	TotalSynced  int64     `db:"total_synced"`
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// ItemAction is the ledger record of what a sync did with one feed item.
type ItemAction struct {
	ID         int64     `db:"id"`
	SourceID   string    `db:"source_id"`
	ItemID     string    `db:"item_id"`
	PostID     string    `db:"post_id"`
	Action     Action    `db:"action"`
	Kind       string    `db:"kind"`
	Title      string    `db:"title"`
	RecordedAt time.Time `db:"recorded_at"`
}

// PostEvent announces a created or updated blog post.
type PostEvent struct {
	Action   Action    `json:"action"`
	ItemID   string    `json:"item_id"`
	PostID   string    `json:"post_id"`
	Title    string    `json:"title"`
	Kind     string    `json:"kind"`
	Reshare  bool      `json:"reshare"`
	ItemURL  string    `json:"item_url"`
	PostedAt time.Time `json:"posted_at"`
}
