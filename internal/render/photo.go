package render

import (
	"cmp"
	"context"
	"fmt"

	"pluspress/internal/domain"
	"pluspress/internal/templates"
)

type photoRenderer struct {
	*Renderer
}

func (p photoRenderer) render(ctx context.Context, item *domain.FeedItem) (fragment, error) {
	media := mediaAttachments(item.Object.Attachments)
	if len(media) == 0 {
		return fragment{}, domain.ErrNoImage
	}
	att := media[0]

	if att.Image != nil && att.Image.URL != "" && att.FullImage != nil && att.FullImage.URL != "" {
		return p.image(att.Image.URL, att.FullImage.Content)
	}

	info := p.lookup(ctx, att.URL)
	if info == nil {
		return fragment{}, fmt.Errorf("attachment %s: %w", att.URL, domain.ErrNoImage)
	}

	src := info.ThumbnailURL
	if info.Type == "photo" {
		src = cmp.Or(info.URL, src)
	}
	if src == "" {
		return fragment{}, fmt.Errorf("attachment %s: %w", att.URL, domain.ErrNoImage)
	}

	if p.media != nil {
		hosted, err := p.media.Rehost(ctx, src)
		if err != nil {
			p.logger.Warn("rehost image failed, linking original",
				"item_id", item.ID,
				"src", src,
				"error", err,
			)
		} else {
			src = hosted
		}
	}

	return p.image(src, cmp.Or(info.Title, info.Description))
}

func (p photoRenderer) image(src, alt string) (fragment, error) {
	body, err := p.templates.Render(templates.Photo, templates.PhotoVars{Src: src, Alt: alt})
	if err != nil {
		return fragment{}, err
	}
	return fragment{body: body}, nil
}
