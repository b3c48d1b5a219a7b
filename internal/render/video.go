package render

import (
	"cmp"
	"context"
	"strings"

	"pluspress/internal/domain"
	"pluspress/internal/templates"
)

// videoRenderer puts the video URL on a line of its own; the blog turns
// known video URLs into players.
type videoRenderer struct {
	*Renderer
}

func (v videoRenderer) render(_ context.Context, item *domain.FeedItem) (fragment, error) {
	media := mediaAttachments(item.Object.Attachments)
	if len(media) == 0 {
		return fragment{}, nil
	}

	att := media[0]
	url := strings.TrimSpace(att.URL)
	if url == "" && att.Embed != nil {
		url = strings.TrimSpace(att.Embed.URL)
	}
	url = cmp.Or(url, strings.TrimSpace(item.Object.URL))

	body, err := v.templates.Render(templates.Video, templates.VideoVars{URL: url})
	if err != nil {
		return fragment{}, err
	}
	return fragment{body: body}, nil
}
