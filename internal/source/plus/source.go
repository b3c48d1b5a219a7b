package plus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"pluspress/internal/domain"
)

const (
	SourceID   = "plus"
	SourceName = "Google+"
)

// Config holds activity feed configuration.
type Config struct {
	BaseURL    string
	UserID     string
	Collection string
	PageSize   int
	UserAgent  string
}

// Source reads a user's public activities and their comments.
type Source struct {
	httpClient *http.Client
	baseURL    string
	userID     string
	collection string
	pageSize   int
	userAgent  string
	logger     *slog.Logger
}

// New creates a Source. httpClient must carry the user's credentials.
func New(cfg Config, httpClient *http.Client, logger *slog.Logger) *Source {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "pluspress/1.0"
	}

	return &Source{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userID:     cfg.UserID,
		collection: cfg.Collection,
		pageSize:   cfg.PageSize,
		userAgent:  userAgent,
		logger:     logger.With("source", SourceID, "user_id", cfg.UserID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID + ":" + s.userID
}

// Name returns human-readable name.
func (s *Source) Name() string {
	return SourceName
}

// FetchActivities walks the activity list until the last page or maxPages
// (0 means no limit). Items on each page are ordered by id.
func (s *Source) FetchActivities(ctx context.Context, maxPages int) ([]domain.FeedItem, error) {
	var person Person
	if err := s.getJSON(ctx, "/people/"+url.PathEscape(s.userID), nil, &person); err != nil {
		return nil, fmt.Errorf("get person: %w", err)
	}

	var all []Activity
	token := ""

	for page := 0; maxPages <= 0 || page < maxPages; page++ {
		var feed ActivityFeed
		path := fmt.Sprintf("/people/%s/activities/%s", url.PathEscape(person.ID), url.PathEscape(s.collection))
		if err := s.getJSON(ctx, path, s.pageQuery(token), &feed); err != nil {
			return s.transform(all), fmt.Errorf("fetch page %d: %w", page, err)
		}

		slices.SortFunc(feed.Items, func(a, b Activity) int {
			return strings.Compare(a.ID, b.ID)
		})
		all = append(all, feed.Items...)

		s.logger.Debug("fetched page",
			"page", page,
			"activities", len(feed.Items),
			"total", len(all),
		)

		if feed.NextPageToken == "" {
			break
		}
		token = feed.NextPageToken
	}

	return s.transform(all), nil
}

// FetchComments returns every comment on an activity, oldest first as served.
func (s *Source) FetchComments(ctx context.Context, activityID string) ([]domain.Comment, error) {
	var comments []domain.Comment
	token := ""

	for {
		var feed CommentFeed
		path := fmt.Sprintf("/activities/%s/comments", url.PathEscape(activityID))
		if err := s.getJSON(ctx, path, s.pageQuery(token), &feed); err != nil {
			return nil, fmt.Errorf("list comments: %w", err)
		}

		for _, c := range feed.Items {
			published, err := time.Parse(time.RFC3339, c.Published)
			if err != nil {
				s.logger.Warn("failed to parse comment date",
					"item_id", activityID,
					"comment_id", c.ID,
					"date", c.Published,
				)
			}
			comments = append(comments, domain.Comment{
				ID:          c.ID,
				Content:     c.Object.Content,
				Author:      person(&c.Actor),
				PublishedAt: published,
			})
		}

		if feed.NextPageToken == "" {
			return comments, nil
		}
		token = feed.NextPageToken
	}
}

func (s *Source) pageQuery(token string) url.Values {
	q := url.Values{}
	if s.pageSize > 0 {
		q.Set("maxResults", strconv.Itoa(s.pageSize))
	}
	if token != "" {
		q.Set("pageToken", token)
	}
	return q
}

func (s *Source) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
		}
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (s *Source) transform(activities []Activity) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(activities))

	for _, a := range activities {
		publishedAt, err := time.Parse(time.RFC3339, a.Published)
		if err != nil {
			s.logger.Warn("failed to parse date",
				"item_id", a.ID,
				"date", a.Published,
			)
			continue
		}
		updatedAt, err := time.Parse(time.RFC3339, a.Updated)
		if err != nil {
			updatedAt = publishedAt
		}

		item := domain.FeedItem{
			ID:          a.ID,
			Title:       a.Title,
			URL:         a.URL,
			Verb:        a.Verb,
			Actor:       person(&a.Actor),
			Annotation:  a.Annotation,
			Location:    location(a),
			PublishedAt: publishedAt,
			UpdatedAt:   updatedAt,
			Object: domain.Object{
				ID:         a.Object.ID,
				ObjectType: a.Object.ObjectType,
				Actor:      person(a.Object.Actor),
				Content:    a.Object.Content,
				URL:        a.Object.URL,
				Replies:    a.Object.Replies.TotalItems,
			},
		}

		for _, att := range a.Object.Attachments {
			item.Object.Attachments = append(item.Object.Attachments, attachment(att))
		}

		items = append(items, item)
	}

	return items
}

func person(a *Actor) domain.Person {
	if a == nil {
		return domain.Person{}
	}
	p := domain.Person{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		URL:         a.URL,
	}
	if a.Image != nil {
		p.ImageURL = a.Image.URL
	}
	return p
}

func attachment(a Attachment) domain.Attachment {
	out := domain.Attachment{
		ObjectType:  domain.AttachmentType(a.ObjectType),
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Content:     a.Content,
		URL:         a.URL,
		Image:       image(a.Image),
		FullImage:   image(a.FullImage),
	}
	if a.Embed != nil {
		out.Embed = &domain.Embed{URL: a.Embed.URL, Type: a.Embed.Type}
	}
	for _, t := range a.Thumbnails {
		out.Thumbnails = append(out.Thumbnails, domain.Thumbnail{
			URL:         t.URL,
			Description: t.Description,
			Image:       image(t.Image),
		})
	}
	return out
}

func image(i *ImageInfo) *domain.Image {
	if i == nil {
		return nil
	}
	return &domain.Image{
		URL:     i.URL,
		Type:    i.Type,
		Content: i.Content,
		Width:   i.Width,
		Height:  i.Height,
	}
}

// location reads the "latitude longitude" geocode of an activity.
func location(a Activity) *domain.Location {
	coords := strings.Fields(a.Geocode)
	if len(coords) != 2 {
		return nil
	}
	return &domain.Location{
		Latitude:  coords[0],
		Longitude: coords[1],
		Address:   a.Address,
		PlaceName: a.PlaceName,
	}
}
