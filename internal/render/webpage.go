package render

import (
	"cmp"
	"context"

	"github.com/samber/lo"

	"pluspress/internal/domain"
	"pluspress/internal/templates"
)

type webPageRenderer struct {
	*Renderer
}

func (w webPageRenderer) render(ctx context.Context, item *domain.FeedItem) (fragment, error) {
	article, ok := lo.Find(item.Object.Attachments, isType(domain.AttachmentArticle))
	if !ok {
		return fragment{}, nil
	}
	images := mediaAttachments(item.Object.Attachments)

	vars := templates.WebPageVars{
		URL:         article.URL,
		Description: cmp.Or(article.Content, article.DisplayName, article.URL),
	}

	var title string
	if info := w.lookup(ctx, article.URL); info != nil {
		title = info.Title
		vars.URL = cmp.Or(info.URL, article.URL)
		vars.Description = cmp.Or(info.Description, vars.Description)
		vars.HTML = info.HTML
		if len(images) < 2 {
			vars.Thumbnail = info.ThumbnailURL
		}
	}

	if vars.HTML == "" && vars.Thumbnail == "" {
		for _, img := range images {
			vars.Images = append(vars.Images, templates.Image{
				Src: cmp.Or(imageURL(img.FullImage), imageURL(img.Image)),
				Alt: fullImageContent(img),
			})
		}
	}

	body, err := w.templates.Render(templates.WebPage, vars)
	if err != nil {
		return fragment{}, err
	}
	return fragment{title: title, body: body}, nil
}

func fullImageContent(a domain.Attachment) string {
	if a.FullImage == nil {
		return ""
	}
	return a.FullImage.Content
}
