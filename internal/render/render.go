// Package render turns classified feed items into blog posts.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pluspress/internal/domain"
	"pluspress/internal/headline"
	"pluspress/internal/metrics"
	"pluspress/internal/templates"
)

// Embedder looks up oEmbed metadata for a URL.
type Embedder interface {
	Embed(ctx context.Context, url string) (*domain.EmbedInfo, error)
}

// MediaHost copies a remote image into the blog's media library and returns
// its new URL.
type MediaHost interface {
	Rehost(ctx context.Context, srcURL string) (string, error)
}

type Templates interface {
	Render(name string, vars any) (string, error)
}

type TitleExtractor interface {
	Extract(content string) headline.Result
}

type Config struct {
	IncludeLocation bool
}

type Renderer struct {
	embedder  Embedder
	media     MediaHost
	templates Templates
	titles    TitleExtractor
	logger    *slog.Logger
	config    Config
}

// New creates a Renderer. media may be nil, in which case looked-up photos
// are linked from their original host.
func New(
	embedder Embedder,
	media MediaHost,
	tmpl Templates,
	titles TitleExtractor,
	logger *slog.Logger,
	cfg Config,
) *Renderer {
	return &Renderer{
		embedder:  embedder,
		media:     media,
		templates: tmpl,
		titles:    titles,
		logger:    logger.With("component", "render"),
		config:    cfg,
	}
}

// Render converts a feed item into a post title and body.
func (r *Renderer) Render(ctx context.Context, item *domain.FeedItem) (*domain.RenderedPost, error) {
	kind := Classify(item.Object)
	hl := r.titles.Extract(item.Object.Content)

	post := &domain.RenderedPost{
		SourceID: item.ID,
		Kind:     kind,
	}

	if item.IsReshare() {
		post.Reshare = true
		post.Title = ReshareTitle(hl.Title, kind, item.Object.Actor.DisplayName)
		post.Body = item.Annotation
		return post, nil
	}

	frag, err := r.strategy(kind).render(ctx, item)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", kind, err)
	}

	post.Title = hl.Title
	if frag.title != "" {
		post.Title = frag.title
	}
	post.Body = compose(kind, item.Object.Content, hl, frag.body)

	if r.config.IncludeLocation && item.Location != nil {
		loc, err := r.templates.Render(templates.Location, templates.LocationVars{
			Coordinates: item.Location.Latitude + "," + item.Location.Longitude,
			PlaceName:   item.Location.PlaceName,
			Address:     item.Location.Address,
		})
		if err != nil {
			return nil, fmt.Errorf("render location: %w", err)
		}
		post.Body = strings.TrimSpace(post.Body + "\n" + loc)
	}

	metrics.RenderedKinds.WithLabelValues(kind.String()).Inc()

	return post, nil
}

// ReshareTitle names a reshared item after its original title, when the
// original has one.
func ReshareTitle(original string, kind domain.Kind, author string) string {
	prefix := ""
	if len([]rune(original)) > 1 {
		prefix = original + " - "
	}
	return fmt.Sprintf("%sReshared %s from %s", prefix, kind.Noun(), author)
}

type fragment struct {
	title string
	body  string
}

type strategy interface {
	render(ctx context.Context, item *domain.FeedItem) (fragment, error)
}

func (r *Renderer) strategy(kind domain.Kind) strategy {
	switch kind {
	case domain.KindGallery:
		return galleryRenderer{r}
	case domain.KindWebPage:
		return webPageRenderer{r}
	case domain.KindPhoto:
		return photoRenderer{r}
	case domain.KindVideo:
		return videoRenderer{r}
	case domain.KindText:
		return textRenderer{}
	}
	panic(fmt.Sprintf("render: no strategy for kind %d", kind))
}

// compose places the post text around the rendered attachment. Text that was
// consumed entirely as the title is not repeated.
func compose(kind domain.Kind, content string, hl headline.Result, body string) string {
	switch {
	case kind == domain.KindText:
		return body
	case !hl.HasContent || strings.TrimSpace(content) == "":
		return body
	case body == "":
		return content
	case kind == domain.KindVideo:
		return body + "\n\n" + content
	default:
		return content + "\n\n" + body
	}
}

// lookup returns nil when the embed service has nothing for url.
func (r *Renderer) lookup(ctx context.Context, url string) *domain.EmbedInfo {
	if url == "" {
		return nil
	}

	info, err := r.embedder.Embed(ctx, url)
	if err != nil {
		metrics.EmbedFailures.Inc()
		r.logger.Debug("embed lookup failed", "url", url, "error", err)
		return nil
	}
	return info
}

func imageURL(img *domain.Image) string {
	if img == nil {
		return ""
	}
	return img.URL
}
