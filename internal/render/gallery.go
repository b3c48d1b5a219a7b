package render

import (
	"cmp"
	"context"

	"github.com/samber/lo"

	"pluspress/internal/domain"
	"pluspress/internal/templates"
)

type galleryRenderer struct {
	*Renderer
}

type galleryEntry struct {
	url       string
	thumbnail string
	original  string
}

func (g galleryRenderer) render(ctx context.Context, item *domain.FeedItem) (fragment, error) {
	entries := galleryEntries(item.Object.Attachments)
	if len(entries) == 0 {
		return fragment{}, nil
	}

	vars := templates.GalleryVars{ID: item.ID}
	for _, e := range entries {
		gi := templates.GalleryItem{
			Href:      e.original,
			Thumbnail: e.thumbnail,
		}
		if info := g.lookup(ctx, e.url); info != nil {
			gi = templates.GalleryItem{
				Href:        cmp.Or(info.URL, e.original),
				Thumbnail:   cmp.Or(info.ThumbnailURL, e.thumbnail),
				Title:       info.Title,
				Description: cmp.Or(info.Description, info.Title),
				HTML:        info.HTML,
				Embedded:    true,
			}
		}
		vars.Items = append(vars.Items, gi)
	}

	body, err := g.templates.Render(templates.Gallery, vars)
	if err != nil {
		return fragment{}, err
	}
	return fragment{body: body}, nil
}

// galleryEntries lists the photos and videos of a post, or the members of
// its album when it has no loose media.
func galleryEntries(atts []domain.Attachment) []galleryEntry {
	media := mediaAttachments(atts)
	if len(media) > 0 {
		return lo.Map(media, func(a domain.Attachment, _ int) galleryEntry {
			var embedURL string
			if a.Embed != nil {
				embedURL = a.Embed.URL
			}
			return galleryEntry{
				url:       a.URL,
				thumbnail: imageURL(a.Image),
				original:  cmp.Or(imageURL(a.FullImage), embedURL, a.URL),
			}
		})
	}

	album, ok := lo.Find(atts, isType(domain.AttachmentAlbum))
	if !ok {
		return nil
	}
	return lo.Map(album.Thumbnails, func(t domain.Thumbnail, _ int) galleryEntry {
		return galleryEntry{
			url:       t.URL,
			thumbnail: imageURL(t.Image),
			original:  cmp.Or(t.URL, imageURL(t.Image)),
		}
	})
}
