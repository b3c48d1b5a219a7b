package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"pluspress/internal/domain"
)

type Source interface {
	ID() string
	Name() string
	FetchActivities(ctx context.Context, maxPages int) ([]domain.FeedItem, error)
	FetchComments(ctx context.Context, activityID string) ([]domain.Comment, error)
}

type Blog interface {
	ListPosts(ctx context.Context, offset, count int) ([]domain.BlogPost, error)
	CreatePost(ctx context.Context, title, body string, fields []domain.CustomField) (string, error)
	UpdatePost(ctx context.Context, id, title, body string) error
	CreateComment(ctx context.Context, postID string, comment *domain.Comment) (string, error)
}

type Renderer interface {
	Render(ctx context.Context, item *domain.FeedItem) (*domain.RenderedPost, error)
}

type SyncStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.SyncState, error)
	Update(ctx context.Context, state *domain.SyncState) error
}

type ActionStore interface {
	Record(ctx context.Context, action *domain.ItemAction) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Notifier interface {
	Publish(ctx context.Context, event *domain.PostEvent) error
	Close() error
}
