// Package embed looks up oEmbed metadata for URLs.
package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"pluspress/internal/domain"
)

// ErrNoEndpoint means no configured provider serves the URL.
var ErrNoEndpoint = errors.New("no oembed endpoint for url")

type Endpoint struct {
	URL     string
	Schemes []string
	// Key is appended as the key query parameter when set (Embedly style).
	Key string

	patterns []*regexp.Regexp
}

type Config struct {
	Endpoints []Endpoint
	Timeout   time.Duration
	UserAgent string
}

// Consumer resolves a URL against the first endpoint whose scheme matches it.
type Consumer struct {
	httpClient *http.Client
	endpoints  []Endpoint
	userAgent  string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Consumer {
	endpoints := make([]Endpoint, 0, len(cfg.Endpoints))
	for _, ep := range cfg.Endpoints {
		ep.patterns = make([]*regexp.Regexp, 0, len(ep.Schemes))
		for _, scheme := range ep.Schemes {
			ep.patterns = append(ep.patterns, compileScheme(scheme))
		}
		endpoints = append(endpoints, ep)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "pluspress/1.0"
	}

	return &Consumer{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoints:  endpoints,
		userAgent:  userAgent,
		logger:     logger.With("component", "embed"),
	}
}

// Embed fetches oEmbed metadata for rawURL.
func (c *Consumer) Embed(ctx context.Context, rawURL string) (*domain.EmbedInfo, error) {
	ep, ok := c.endpointFor(rawURL)
	if !ok {
		return nil, ErrNoEndpoint
	}

	reqURL, err := ep.requestURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var info domain.EmbedInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("embed lookup",
		"url", rawURL,
		"endpoint", ep.URL,
		"type", info.Type,
	)

	return &info, nil
}

func (c *Consumer) endpointFor(rawURL string) (Endpoint, bool) {
	for _, ep := range c.endpoints {
		for _, p := range ep.patterns {
			if p.MatchString(rawURL) {
				return ep, true
			}
		}
	}
	return Endpoint{}, false
}

func (ep Endpoint) requestURL(rawURL string) (string, error) {
	u, err := url.Parse(ep.URL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("url", rawURL)
	q.Set("format", "json")
	if ep.Key != "" {
		q.Set("key", ep.Key)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// compileScheme turns an oEmbed URL scheme such as "http://*.flickr.com/*"
// into an anchored regular expression.
func compileScheme(scheme string) *regexp.Regexp {
	parts := strings.Split(scheme, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}
