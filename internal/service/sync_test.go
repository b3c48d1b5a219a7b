package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pluspress/internal/config"
	"pluspress/internal/domain"
	"pluspress/internal/service/mocks"
)

type SyncServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockSource
	blog      *mocks.MockBlog
	renderer  *mocks.MockRenderer
	syncState *mocks.MockSyncStateStore
	actions   *mocks.MockActionStore
	txManager *mocks.MockTransactionManager
	notifier  *mocks.MockNotifier

	service *SyncService
	cfg     config.SyncConfig
	blogCfg config.BlogConfig
	logger  *slog.Logger
}

func (s *SyncServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.blog = mocks.NewMockBlog(s.ctrl)
	s.renderer = mocks.NewMockRenderer(s.ctrl)
	s.syncState = mocks.NewMockSyncStateStore(s.ctrl)
	s.actions = mocks.NewMockActionStore(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)

	s.cfg = config.SyncConfig{
		MaxPagesPerSync:   5,
		MaxHistoricalDays: 30,
		MirrorComments:    true,
	}
	s.blogCfg = config.BlogConfig{
		PageSize:        100,
		ActivityIDField: activityField,
	}

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.source.EXPECT().ID().Return("plus:me").AnyTimes()
	s.source.EXPECT().Name().Return("Google+").AnyTimes()

	s.service = s.newService(s.cfg)
}

func (s *SyncServiceTestSuite) newService(cfg config.SyncConfig) *SyncService {
	return NewSyncService(
		s.source,
		s.blog,
		s.renderer,
		s.syncState,
		s.actions,
		s.txManager,
		s.notifier,
		s.logger,
		cfg,
		s.blogCfg,
	)
}

func (s *SyncServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestSyncServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SyncServiceTestSuite))
}

func feedItem(id string, replies int) domain.FeedItem {
	return domain.FeedItem{
		ID:          id,
		URL:         "https://plus.google.com/" + id,
		Object:      domain.Object{Content: "content of " + id, Replies: replies},
		PublishedAt: time.Now().Add(-time.Hour),
		UpdatedAt:   time.Now().Add(-time.Hour),
	}
}

func rendered(id, title, body string) *domain.RenderedPost {
	return &domain.RenderedPost{SourceID: id, Title: title, Body: body, Kind: domain.KindText}
}

func publishedPost(postID, activityID, title, body string) domain.BlogPost {
	return domain.BlogPost{
		ID:           postID,
		Title:        title,
		Content:      body,
		CustomFields: []domain.CustomField{{Key: activityField, Value: activityID}},
	}
}

// loginFault mirrors the error the blog client returns for rejected
// credentials.
func loginFault(op string) error {
	return fmt.Errorf("%s: %w", op, fmt.Errorf("%w: Incorrect username or password.", domain.ErrUnauthorized))
}

func (s *SyncServiceTestSuite) expectIndex(ctx context.Context, posts ...domain.BlogPost) {
	s.blog.EXPECT().ListPosts(ctx, 0, 100).Return(posts, nil)
}

func (s *SyncServiceTestSuite) expectRecord(ctx context.Context, itemID string, action domain.Action) {
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
	s.actions.EXPECT().Record(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, a *domain.ItemAction) error {
			s.Equal(itemID, a.ItemID)
			s.Equal(action, a.Action)
			s.Equal("plus:me", a.SourceID)
			return nil
		},
	)
}

func (s *SyncServiceTestSuite) expectSyncState(ctx context.Context, lastItemID string, total int64) {
	s.syncState.EXPECT().Get(ctx, "plus:me").Return(&domain.SyncState{SourceID: "plus:me", TotalSynced: 3}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, state *domain.SyncState) error {
			s.Equal(lastItemID, state.LastItemID)
			s.Equal(3+total, state.TotalSynced)
			s.False(state.LastSyncedAt.IsZero())
			return nil
		},
	)
}

func (s *SyncServiceTestSuite) TestSync_CreatesNewPost() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "Hello world"), nil)

	s.blog.EXPECT().CreatePost(ctx, "Hello", "Hello world", []domain.CustomField{
		{Key: activityField, Value: "z1"},
	}).Return("101", nil)

	s.notifier.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, event *domain.PostEvent) error {
			s.Equal(domain.ActionCreated, event.Action)
			s.Equal("101", event.PostID)
			s.Equal("z1", event.ItemID)
			s.Equal("text", event.Kind)
			return nil
		},
	)
	s.expectRecord(ctx, "z1", domain.ActionCreated)
	s.expectSyncState(ctx, "z1", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Fetched)
	s.Equal(1, stats.Created)
	s.Equal(0, stats.Updated)
	s.Equal(0, stats.Skipped)
	s.Equal(1, stats.Published)
	s.Equal("plus:me", stats.SourceID)
}

func (s *SyncServiceTestSuite) TestSync_UpdatesChangedPost() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx,
		publishedPost("7", "z0", "Other", "Other"),
		publishedPost("8", "z1", "Hello", "old body"),
	)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "new body"), nil)

	s.blog.EXPECT().UpdatePost(ctx, "8", "Hello", "new body").Return(nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.expectRecord(ctx, "z1", domain.ActionUpdated)
	s.expectSyncState(ctx, "z1", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Created)
	s.Equal(1, stats.Updated)
	s.Equal(1, stats.Published)
}

func (s *SyncServiceTestSuite) TestSync_SkipsIdenticalPost() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx, publishedPost("8", "z1", "Hello", "Hello world"))
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "Hello world"), nil)

	s.expectRecord(ctx, "z1", domain.ActionSkipped)
	s.expectSyncState(ctx, "z1", 0)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Created)
	s.Equal(0, stats.Updated)
	s.Equal(1, stats.Skipped)
	s.Equal(0, stats.Published)
}

func (s *SyncServiceTestSuite) TestSync_RepeatedItemCreatedOnce() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	gomock.InOrder(
		s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "body"), nil),
		s.renderer.EXPECT().Render(ctx, &items[1]).Return(rendered("z1", "Hello", "body"), nil),
	)

	s.blog.EXPECT().CreatePost(ctx, "Hello", "body", gomock.Any()).Return("101", nil).Times(1)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(1)
	s.expectRecord(ctx, "z1", domain.ActionCreated)
	s.expectRecord(ctx, "z1", domain.ActionSkipped)
	s.expectSyncState(ctx, "z1", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Created)
	s.Equal(1, stats.Skipped)
}

func (s *SyncServiceTestSuite) TestSync_RepeatedItemWithNewContentUpdatesCreatedPost() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	gomock.InOrder(
		s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "first"), nil),
		s.renderer.EXPECT().Render(ctx, &items[1]).Return(rendered("z1", "Hello", "second"), nil),
	)

	s.blog.EXPECT().CreatePost(ctx, "Hello", "first", gomock.Any()).Return("101", nil)
	s.blog.EXPECT().UpdatePost(ctx, "101", "Hello", "second").Return(nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)
	s.expectRecord(ctx, "z1", domain.ActionCreated)
	s.expectRecord(ctx, "z1", domain.ActionUpdated)
	s.expectSyncState(ctx, "z1", 2)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Created)
	s.Equal(1, stats.Updated)
}

func (s *SyncServiceTestSuite) TestSync_MirrorsComments() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 3)}
	comments := []domain.Comment{
		{ID: "c1", Content: "one"},
		{ID: "c2", Content: "two"},
		{ID: "c3", Content: "three"},
	}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx, publishedPost("8", "z1", "Hello", "body"))
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "body"), nil)

	s.source.EXPECT().FetchComments(ctx, "z1").Return(comments, nil)
	gomock.InOrder(
		s.blog.EXPECT().CreateComment(ctx, "8", &comments[0]).Return("1", nil),
		s.blog.EXPECT().CreateComment(ctx, "8", &comments[1]).Return("", errors.New("fault 500")),
		s.blog.EXPECT().CreateComment(ctx, "8", &comments[2]).Return("3", nil),
	)

	s.expectRecord(ctx, "z1", domain.ActionSkipped)
	s.expectSyncState(ctx, "z1", 0)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Skipped)
	s.Equal(2, stats.Comments)
	s.Equal(1, stats.Errors)
}

func (s *SyncServiceTestSuite) TestSync_MirrorsCommentsOnCreatedPost() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 1)}
	comments := []domain.Comment{{ID: "c1", Content: "one"}}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "body"), nil)
	s.blog.EXPECT().CreatePost(ctx, "Hello", "body", gomock.Any()).Return("101", nil)
	s.source.EXPECT().FetchComments(ctx, "z1").Return(comments, nil)
	s.blog.EXPECT().CreateComment(ctx, "101", &comments[0]).Return("1", nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.expectRecord(ctx, "z1", domain.ActionCreated)
	s.expectSyncState(ctx, "z1", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Comments)
}

func (s *SyncServiceTestSuite) TestSync_CommentMirroringDisabled() {
	ctx := context.Background()
	cfg := s.cfg
	cfg.MirrorComments = false
	service := s.newService(cfg)
	items := []domain.FeedItem{feedItem("z1", 4)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx, publishedPost("8", "z1", "Hello", "body"))
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "Hello", "body"), nil)
	s.expectRecord(ctx, "z1", domain.ActionSkipped)
	s.expectSyncState(ctx, "z1", 0)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Comments)
}

func (s *SyncServiceTestSuite) TestSync_SkipsEmptyRender() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "", ""), nil)
	s.expectSyncState(ctx, "z1", 0)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Skipped)
	s.Equal(0, stats.Created)
}

func (s *SyncServiceTestSuite) TestSync_RenderErrorContinues() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z2", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	gomock.InOrder(
		s.renderer.EXPECT().Render(ctx, &items[0]).Return(nil, fmt.Errorf("render photo: %w", domain.ErrNoImage)),
		s.renderer.EXPECT().Render(ctx, &items[1]).Return(rendered("z2", "Two", "body"), nil),
	)
	s.blog.EXPECT().CreatePost(ctx, "Two", "body", gomock.Any()).Return("102", nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)
	s.expectRecord(ctx, "z2", domain.ActionCreated)
	s.expectSyncState(ctx, "z2", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Errors)
	s.Equal(1, stats.Created)
}

func (s *SyncServiceTestSuite) TestSync_UnauthorizedAbortsRun() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z2", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil)
	s.blog.EXPECT().CreatePost(ctx, "One", "body", gomock.Any()).Return("", loginFault("create post"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.ErrorIs(err, domain.ErrUnauthorized)
	s.NotNil(stats)
	s.Equal(0, stats.Created)
}

func (s *SyncServiceTestSuite) TestSync_UnauthorizedWhileFetchingComments() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 2)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx, publishedPost("8", "z1", "One", "body"))
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil)
	s.source.EXPECT().FetchComments(ctx, "z1").Return(nil, domain.ErrUnauthorized)

	_, err := s.service.Sync(ctx)

	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *SyncServiceTestSuite) TestSync_DryRunWritesNothing() {
	ctx := context.Background()
	cfg := s.cfg
	cfg.DryRun = true
	service := s.newService(cfg)
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z2", 2)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx, publishedPost("8", "z2", "Two", "old"))
	gomock.InOrder(
		s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil),
		s.renderer.EXPECT().Render(ctx, &items[1]).Return(rendered("z2", "Two", "new"), nil),
	)
	s.source.EXPECT().FetchComments(ctx, "z2").Return([]domain.Comment{{ID: "c1"}}, nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Created)
	s.Equal(1, stats.Updated)
	s.Equal(0, stats.Comments)
	s.Equal(0, stats.Published)
}

func (s *SyncServiceTestSuite) TestSync_FiltersOutdatedByDate() {
	ctx := context.Background()
	old := feedItem("z0", 0)
	old.PublishedAt = time.Now().AddDate(0, 0, -31)
	items := []domain.FeedItem{old}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.syncState.EXPECT().Get(ctx, "plus:me").Return(&domain.SyncState{SourceID: "plus:me"}, nil)
	s.syncState.EXPECT().Update(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(0, stats.Fetched)
	s.Equal(0, stats.Created)
}

func (s *SyncServiceTestSuite) TestSync_SourceError() {
	ctx := context.Background()

	s.source.EXPECT().FetchActivities(ctx, 5).Return(nil, errors.New("api error"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "fetch activities")
}

func (s *SyncServiceTestSuite) TestSync_IndexError() {
	ctx := context.Background()

	s.source.EXPECT().FetchActivities(ctx, 5).Return([]domain.FeedItem{feedItem("z1", 0)}, nil)
	s.blog.EXPECT().ListPosts(ctx, 0, 100).Return(nil, errors.New("fault"))

	stats, err := s.service.Sync(ctx)

	s.Error(err)
	s.Nil(stats)
	s.Contains(err.Error(), "load post index")
}

func (s *SyncServiceTestSuite) TestSync_LoginRejectedWhileLoadingIndex() {
	ctx := context.Background()

	s.source.EXPECT().FetchActivities(ctx, 5).Return([]domain.FeedItem{feedItem("z1", 0)}, nil)
	s.blog.EXPECT().ListPosts(ctx, 0, 100).Return(nil, loginFault("list posts"))

	_, err := s.service.Sync(ctx)

	s.ErrorIs(err, domain.ErrUnauthorized)
	s.Contains(err.Error(), "Incorrect username or password.")
}

func (s *SyncServiceTestSuite) TestSync_NotifierErrorCounted() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil)
	s.blog.EXPECT().CreatePost(ctx, "One", "body", gomock.Any()).Return("101", nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("channel closed"))
	s.expectRecord(ctx, "z1", domain.ActionCreated)
	s.expectSyncState(ctx, "z1", 1)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Created)
	s.Equal(0, stats.Published)
	s.Equal(1, stats.Errors)
}

func (s *SyncServiceTestSuite) TestSync_LedgerFailureCountedSeparately() {
	ctx := context.Background()
	items := []domain.FeedItem{feedItem("z1", 0), feedItem("z2", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil)
	s.renderer.EXPECT().Render(ctx, &items[1]).Return(rendered("z2", "Two", "body"), nil)
	s.blog.EXPECT().CreatePost(ctx, "One", "body", gomock.Any()).Return("101", nil)
	s.blog.EXPECT().CreatePost(ctx, "Two", "body", gomock.Any()).Return("102", nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(2)
	s.txManager.EXPECT().WithTransaction(ctx, gomock.Any()).Return(errors.New("connection reset"))
	s.expectRecord(ctx, "z2", domain.ActionCreated)
	s.expectSyncState(ctx, "z2", 2)

	stats, err := s.service.Sync(ctx)

	s.NoError(err)
	s.Equal(2, stats.Created)
	s.Equal(2, stats.Published)
	s.Equal(0, stats.Errors)
	s.Equal(1, stats.LedgerErrors)
}

func (s *SyncServiceTestSuite) TestSync_WithoutLedgerOrNotifier() {
	ctx := context.Background()
	service := NewSyncService(s.source, s.blog, s.renderer, nil, nil, nil, nil, s.logger, s.cfg, s.blogCfg)
	items := []domain.FeedItem{feedItem("z1", 0)}

	s.source.EXPECT().FetchActivities(ctx, 5).Return(items, nil)
	s.expectIndex(ctx)
	s.renderer.EXPECT().Render(ctx, &items[0]).Return(rendered("z1", "One", "body"), nil)
	s.blog.EXPECT().CreatePost(ctx, "One", "body", gomock.Any()).Return("101", nil)

	stats, err := service.Sync(ctx)

	s.NoError(err)
	s.Equal(1, stats.Created)
	s.Equal(0, stats.Published)
}
