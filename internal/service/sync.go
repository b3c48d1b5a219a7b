package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pluspress/internal/config"
	"pluspress/internal/domain"
	"pluspress/internal/metrics"
)

// SyncService mirrors feed items onto the blog. Items are handled one at a
// time in feed order.
type SyncService struct {
	source    Source
	blog      Blog
	renderer  Renderer
	syncState SyncStateStore
	actions   ActionStore
	txManager TransactionManager
	notifier  Notifier
	logger    *slog.Logger
	config    config.SyncConfig
	blogCfg   config.BlogConfig
}

// NewSyncService creates a SyncService. syncState, actions and txManager are
// either all set or all nil; notifier may be nil.
func NewSyncService(
	source Source,
	blog Blog,
	renderer Renderer,
	syncState SyncStateStore,
	actions ActionStore,
	txManager TransactionManager,
	notifier Notifier,
	logger *slog.Logger,
	cfg config.SyncConfig,
	blogCfg config.BlogConfig,
) *SyncService {
	return &SyncService{
		source:    source,
		blog:      blog,
		renderer:  renderer,
		syncState: syncState,
		actions:   actions,
		txManager: txManager,
		notifier:  notifier,
		logger:    logger.With("source", source.ID()),
		config:    cfg,
		blogCfg:   blogCfg,
	}
}

// run holds the state of a single Sync call.
type run struct {
	index *PostIndex
	// written holds posts created or updated during this run, keyed by
	// activity id. It takes precedence over the index.
	written map[string]*domain.BlogPost
	stats   *domain.SyncStats
}

func (s *SyncService) Sync(ctx context.Context) (*domain.SyncStats, error) {
	startTime := time.Now()
	s.logger.Info("starting sync",
		"source_name", s.source.Name(),
		"max_pages", s.config.MaxPagesPerSync,
		"max_historical_days", s.config.MaxHistoricalDays,
		"dry_run", s.config.DryRun,
	)

	items, err := s.source.FetchActivities(ctx, s.config.MaxPagesPerSync)
	if err != nil {
		return nil, fmt.Errorf("fetch activities: %w", err)
	}

	s.logger.Info("fetched activities from source", "count", len(items))

	if s.config.MaxHistoricalDays > 0 {
		cutoffDate := time.Now().AddDate(0, 0, -s.config.MaxHistoricalDays)
		items = s.filterByDate(items, cutoffDate)
		s.logger.Debug("filtered by date", "remaining", len(items))
	}

	index, err := LoadIndex(ctx, s.blog, s.blogCfg.PageSize, s.blogCfg.ActivityIDField)
	if err != nil {
		return nil, fmt.Errorf("load post index: %w", err)
	}

	s.logger.Info("loaded published posts", "count", index.Len())

	r := &run{
		index:   index,
		written: make(map[string]*domain.BlogPost),
		stats: &domain.SyncStats{
			SourceID: s.source.ID(),
			Fetched:  len(items),
		},
	}

	for i := range items {
		item := &items[i]
		if err := s.syncItem(ctx, r, item); err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				r.stats.Duration = time.Since(startTime)
				return r.stats, err
			}
			r.stats.Errors++
			metrics.ItemErrors.Inc()
			s.logger.Error("failed to sync item",
				"item_id", item.ID,
				"error", err,
			)
		}
	}

	if err := s.updateSyncState(ctx, items, r.stats); err != nil {
		return r.stats, fmt.Errorf("update sync state: %w", err)
	}

	r.stats.Duration = time.Since(startTime)
	metrics.SyncDuration.Observe(r.stats.Duration.Seconds())

	s.logger.Info("sync completed",
		"created", r.stats.Created,
		"updated", r.stats.Updated,
		"skipped", r.stats.Skipped,
		"errors", r.stats.Errors,
		"comments", r.stats.Comments,
		"published", r.stats.Published,
		"ledger_errors", r.stats.LedgerErrors,
		"duration", r.stats.Duration,
	)

	return r.stats, nil
}

func (s *SyncService) filterByDate(items []domain.FeedItem, cutoff time.Time) []domain.FeedItem {
	var filtered []domain.FeedItem
	for _, item := range items {
		if item.PublishedAt.After(cutoff) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func (s *SyncService) syncItem(ctx context.Context, r *run, item *domain.FeedItem) error {
	post, err := s.renderer.Render(ctx, item)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	logger := s.logger.With("item_id", item.ID, "kind", post.Kind.String())

	if post.IsEmpty() {
		r.stats.Skipped++
		metrics.ItemsProcessed.WithLabelValues(string(domain.ActionSkipped)).Inc()
		logger.Info("skipping item without title or body")
		return nil
	}

	action, err := s.publish(ctx, r, item, post)
	if err != nil {
		return err
	}

	switch action {
	case domain.ActionCreated:
		r.stats.Created++
	case domain.ActionUpdated:
		r.stats.Updated++
	default:
		r.stats.Skipped++
	}
	metrics.ItemsProcessed.WithLabelValues(string(action)).Inc()

	logger.Info("item synced",
		"action", action,
		"post_id", post.PostID,
		"title", post.Title,
		"reshare", post.Reshare,
	)

	if s.config.MirrorComments && item.Object.Replies > 0 && post.PostID != "" {
		if err := s.mirrorComments(ctx, r, item, post.PostID); err != nil {
			return err
		}
	}

	if action != domain.ActionSkipped {
		s.notify(ctx, r, item, post, action)
	}

	if err := s.record(ctx, item, post, action); err != nil {
		r.stats.LedgerErrors++
		metrics.LedgerErrors.Inc()
		logger.Error("failed to record item action",
			"action", action,
			"post_id", post.PostID,
			"error", err,
		)
	}

	return nil
}

// publish decides between create, update and skip for a rendered item and
// performs the blog write.
func (s *SyncService) publish(ctx context.Context, r *run, item *domain.FeedItem, post *domain.RenderedPost) (domain.Action, error) {
	existing, ok := r.written[item.ID]
	if !ok {
		existing = r.index.Resolve(item.ID)
	}

	if existing == nil {
		if !s.config.DryRun {
			id, err := s.blog.CreatePost(ctx, post.Title, post.Body, []domain.CustomField{
				{Key: s.blogCfg.ActivityIDField, Value: item.ID},
			})
			if err != nil {
				return "", fmt.Errorf("create post: %w", err)
			}
			post.PostID = id
		}
		r.written[item.ID] = &domain.BlogPost{ID: post.PostID, Title: post.Title, Content: post.Body}
		return domain.ActionCreated, nil
	}

	post.PostID = existing.ID

	if existing.Title == post.Title && existing.Content == post.Body {
		return domain.ActionSkipped, nil
	}

	if !s.config.DryRun {
		if err := s.blog.UpdatePost(ctx, existing.ID, post.Title, post.Body); err != nil {
			return "", fmt.Errorf("update post: %w", err)
		}
	}
	r.written[item.ID] = &domain.BlogPost{ID: existing.ID, Title: post.Title, Content: post.Body}
	return domain.ActionUpdated, nil
}

// mirrorComments copies every comment of the item onto the post. Comments
// already mirrored by an earlier run are posted again.
func (s *SyncService) mirrorComments(ctx context.Context, r *run, item *domain.FeedItem, postID string) error {
	comments, err := s.source.FetchComments(ctx, item.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return err
		}
		r.stats.Errors++
		s.logger.Warn("failed to fetch comments", "item_id", item.ID, "error", err)
		return nil
	}

	if s.config.DryRun {
		s.logger.Info("dry run, not mirroring comments",
			"item_id", item.ID,
			"post_id", postID,
			"count", len(comments),
		)
		return nil
	}

	for i := range comments {
		comment := &comments[i]
		if _, err := s.blog.CreateComment(ctx, postID, comment); err != nil {
			if errors.Is(err, domain.ErrUnauthorized) {
				return err
			}
			r.stats.Errors++
			s.logger.Warn("failed to mirror comment",
				"item_id", item.ID,
				"post_id", postID,
				"comment_id", comment.ID,
				"error", err,
			)
			continue
		}
		r.stats.Comments++
		metrics.CommentsMirrored.Inc()
	}

	return nil
}

func (s *SyncService) notify(ctx context.Context, r *run, item *domain.FeedItem, post *domain.RenderedPost, action domain.Action) {
	if s.notifier == nil || s.config.DryRun {
		return
	}

	event := &domain.PostEvent{
		Action:   action,
		ItemID:   item.ID,
		PostID:   post.PostID,
		Title:    post.Title,
		Kind:     post.Kind.String(),
		Reshare:  post.Reshare,
		ItemURL:  item.URL,
		PostedAt: time.Now(),
	}

	if err := s.notifier.Publish(ctx, event); err != nil {
		r.stats.Errors++
		s.logger.Warn("failed to publish post event", "item_id", item.ID, "error", err)
		return
	}
	r.stats.Published++
}

func (s *SyncService) record(ctx context.Context, item *domain.FeedItem, post *domain.RenderedPost, action domain.Action) error {
	if s.actions == nil || s.config.DryRun {
		return nil
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		err := s.actions.Record(txCtx, &domain.ItemAction{
			SourceID:   s.source.ID(),
			ItemID:     item.ID,
			PostID:     post.PostID,
			Action:     action,
			Kind:       post.Kind.String(),
			Title:      post.Title,
			RecordedAt: time.Now(),
		})
		if err != nil {
			return fmt.Errorf("record action: %w", err)
		}
		return nil
	})
}

func (s *SyncService) updateSyncState(ctx context.Context, items []domain.FeedItem, stats *domain.SyncStats) error {
	if s.syncState == nil || s.config.DryRun {
		return nil
	}

	state, err := s.syncState.Get(ctx, s.source.ID())
	if err != nil {
		return err
	}

	state.SourceID = s.source.ID()
	state.LastSyncedAt = time.Now()
	if len(items) > 0 {
		state.LastItemID = items[len(items)-1].ID
	}
	state.TotalSynced += int64(stats.Created + stats.Updated)

	return s.syncState.Update(ctx, state)
}
