// Package wordpress publishes posts, comments and media to a WordPress blog
// over its XML-RPC API.
package wordpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/rpc"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"

	"pluspress/internal/domain"
)

const (
	// CommentIDField and CommentAvatarField are read by the avatar plugin on
	// the blog side.
	CommentIDField     = "google_plus_comment_id"
	CommentAvatarField = "google_plus_comment_avatar"
)

// faultUnauthorized is the fault code WordPress answers with when the
// username or password is rejected.
const faultUnauthorized = 403

type Config struct {
	URL      string
	BlogID   int
	Username string
	Password string
	// Timeout bounds image downloads and the wait for an XML-RPC response.
	Timeout   time.Duration
	UserAgent string
}

type Client struct {
	rpc        *xmlrpc.Client
	httpClient *http.Client
	blogID     int
	username   string
	password   string
	userAgent  string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	rpc, err := xmlrpc.NewClient(cfg.URL, transport)
	if err != nil {
		return nil, fmt.Errorf("create xmlrpc client: %w", err)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "pluspress/1.0"
	}

	return &Client{
		rpc:        rpc,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		blogID:     cfg.BlogID,
		username:   cfg.Username,
		password:   cfg.Password,
		userAgent:  userAgent,
		logger:     logger.With("component", "wordpress"),
	}, nil
}

func (c *Client) Close() error {
	return c.rpc.Close()
}

type post struct {
	ID           string        `xmlrpc:"post_id"`
	Title        string        `xmlrpc:"post_title"`
	Content      string        `xmlrpc:"post_content"`
	CustomFields []customField `xmlrpc:"custom_fields"`
}

type customField struct {
	ID    string `xmlrpc:"id"`
	Key   string `xmlrpc:"key"`
	Value string `xmlrpc:"value"`
}

type mediaItem struct {
	ID  string `xmlrpc:"id"`
	URL string `xmlrpc:"url"`
}

// ListPosts returns one page of published posts, newest first.
func (c *Client) ListPosts(ctx context.Context, offset, count int) ([]domain.BlogPost, error) {
	filter := map[string]any{
		"number": count,
		"offset": offset,
	}
	fields := []any{"post_title", "post_content", "custom_fields"}

	var reply []post
	if err := c.call(ctx, "wp.getPosts", &reply, filter, fields); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]domain.BlogPost, 0, len(reply))
	for _, p := range reply {
		bp := domain.BlogPost{
			ID:      p.ID,
			Title:   p.Title,
			Content: p.Content,
		}
		for _, f := range p.CustomFields {
			bp.CustomFields = append(bp.CustomFields, domain.CustomField{ID: f.ID, Key: f.Key, Value: f.Value})
		}
		posts = append(posts, bp)
	}

	return posts, nil
}

// CreatePost publishes a new post and returns its id.
func (c *Client) CreatePost(ctx context.Context, title, body string, fields []domain.CustomField) (string, error) {
	content := map[string]any{
		"post_type":     "post",
		"post_status":   "publish",
		"post_title":    title,
		"post_content":  body,
		"custom_fields": encodeFields(fields),
	}

	var id string
	if err := c.call(ctx, "wp.newPost", &id, content); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}

	return id, nil
}

// UpdatePost replaces the title and body of an existing post.
func (c *Client) UpdatePost(ctx context.Context, id, title, body string) error {
	content := map[string]any{
		"post_title":   title,
		"post_content": body,
	}

	var ok bool
	if err := c.call(ctx, "wp.editPost", &ok, id, content); err != nil {
		return fmt.Errorf("update post %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("update post %s: rejected", id)
	}

	return nil
}

// CreateComment adds comment to a post, tagged with its source id and the
// author's avatar.
func (c *Client) CreateComment(ctx context.Context, postID string, comment *domain.Comment) (string, error) {
	postNum, err := strconv.Atoi(postID)
	if err != nil {
		return "", fmt.Errorf("parse post id %q: %w", postID, err)
	}

	content := map[string]any{
		"content":    comment.Content,
		"author":     comment.Author.DisplayName,
		"author_url": comment.Author.URL,
		"custom_fields": encodeFields([]domain.CustomField{
			{Key: CommentIDField, Value: comment.ID},
			{Key: CommentAvatarField, Value: comment.Author.ImageURL},
		}),
	}

	var id int
	if err := c.call(ctx, "wp.newComment", &id, postNum, content); err != nil {
		return "", fmt.Errorf("create comment on post %s: %w", postID, err)
	}

	return strconv.Itoa(id), nil
}

// Rehost downloads srcURL and uploads it to the media library, returning the
// blog URL of the copy.
func (c *Client) Rehost(ctx context.Context, srcURL string) (string, error) {
	data, contentType, err := c.download(ctx, srcURL)
	if err != nil {
		return "", err
	}

	name := fileName(srcURL, contentType)
	file := map[string]any{
		"name":      name,
		"type":      contentType,
		"bits":      data,
		"overwrite": false,
	}

	var reply mediaItem
	if err := c.call(ctx, "wp.uploadFile", &reply, file); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if reply.URL == "" {
		return "", fmt.Errorf("upload %s: empty media url", name)
	}

	c.logger.Debug("rehosted image",
		"src", srcURL,
		"media_id", reply.ID,
		"url", reply.URL,
	)

	return reply.URL, nil
}

func (c *Client) download(ctx context.Context, srcURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download image: unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	contentType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}

// call prefixes args with the blog id and credentials every wp.* method
// expects. The XML-RPC client has no context support, so ctx is only checked
// before the call.
func (c *Client) call(ctx context.Context, method string, reply any, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := append([]any{c.blogID, c.username, c.password}, args...)
	if err := c.rpc.Call(method, params, reply); err != nil {
		if msg, ok := unauthorized(err); ok {
			return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
		}
		return err
	}
	return nil
}

// unauthorized reports whether err is a login fault. Faults arrive either as
// xmlrpc.FaultError or flattened by net/rpc into "Fault(code): message".
func unauthorized(err error) (string, bool) {
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return fault.String, fault.Code == faultUnauthorized
	}

	var serverErr rpc.ServerError
	if errors.As(err, &serverErr) {
		prefix := fmt.Sprintf("Fault(%d):", faultUnauthorized)
		if msg, ok := strings.CutPrefix(string(serverErr), prefix); ok {
			return strings.TrimSpace(msg), true
		}
	}

	return "", false
}

func encodeFields(fields []domain.CustomField) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, map[string]any{"key": f.Key, "value": f.Value})
	}
	return out
}

func fileName(srcURL, contentType string) string {
	name := "image"
	if u, err := url.Parse(srcURL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	if path.Ext(name) == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			name += exts[0]
		}
	}
	return name
}
