package render

import (
	"context"

	"pluspress/internal/domain"
)

type textRenderer struct{}

func (textRenderer) render(_ context.Context, item *domain.FeedItem) (fragment, error) {
	return fragment{body: item.Object.Content}, nil
}
