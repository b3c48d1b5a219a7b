package service

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"pluspress/internal/domain"
)

type PostLister interface {
	ListPosts(ctx context.Context, offset, count int) ([]domain.BlogPost, error)
}

// PostIndex is the snapshot of published posts taken at the start of a run.
type PostIndex struct {
	posts []domain.BlogPost
	field string
}

func NewPostIndex(posts []domain.BlogPost, field string) *PostIndex {
	return &PostIndex{posts: posts, field: field}
}

// LoadIndex pages through every published post until a short page.
func LoadIndex(ctx context.Context, blog PostLister, pageSize int, field string) (*PostIndex, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var posts []domain.BlogPost
	for offset := 0; ; offset += pageSize {
		page, err := blog.ListPosts(ctx, offset, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list posts at %d: %w", offset, err)
		}
		posts = append(posts, page...)

		if len(page) < pageSize {
			break
		}
	}

	return NewPostIndex(posts, field), nil
}

// Resolve returns a copy of the first post whose activity-id field equals id,
// or nil.
func (x *PostIndex) Resolve(id string) *domain.BlogPost {
	post, ok := lo.Find(x.posts, func(p domain.BlogPost) bool {
		return lo.ContainsBy(p.CustomFields, func(f domain.CustomField) bool {
			return f.Key == x.field && f.Value == id
		})
	})
	if !ok {
		return nil
	}
	return &post
}

func (x *PostIndex) Len() int {
	return len(x.posts)
}
