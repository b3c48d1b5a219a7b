package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"pluspress/internal/domain"
)

// ActionStore is the audit ledger of what each run did with each feed item.
// The blog stays the source of truth for duplicate detection.
type ActionStore struct {
	db *sqlx.DB
}

func NewActionStore(db *sqlx.DB) *ActionStore {
	return &ActionStore{db: db}
}

func (s *ActionStore) Record(ctx context.Context, action *domain.ItemAction) error {
	query := `
		INSERT INTO item_actions (source_id, item_id, post_id, action, kind, title, recorded_at)
		VALUES (:source_id, :item_id, :post_id, :action, :kind, :title, :recorded_at)
		RETURNING id`

	query, args, err := sqlx.Named(query, action)
	if err != nil {
		return fmt.Errorf("bind item action: %w", err)
	}

	exec := GetExecutor(ctx, s.db)
	if err := exec.QueryRowxContext(ctx, exec.Rebind(query), args...).Scan(&action.ID); err != nil {
		return fmt.Errorf("insert item action: %w", err)
	}
	return nil
}

// History returns the recorded actions for one feed item, oldest first.
func (s *ActionStore) History(ctx context.Context, sourceID, itemID string) ([]domain.ItemAction, error) {
	query := `
		SELECT id, source_id, item_id, post_id, action, kind, title, recorded_at
		FROM item_actions
		WHERE source_id = $1 AND item_id = $2
		ORDER BY recorded_at, id`

	var actions []domain.ItemAction
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &actions, query, sourceID, itemID); err != nil {
		return nil, fmt.Errorf("select item actions: %w", err)
	}
	return actions, nil
}
