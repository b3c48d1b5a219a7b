// Package auth builds the OAuth2 HTTP client used to read the activity feed.
package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type Config struct {
	ClientSecrets string
	TokenFile     string
	Scopes        []string
}

// Prompt is the terminal used for the one-time authorization code flow.
type Prompt struct {
	In  io.Reader
	Out io.Writer
}

// Client returns an HTTP client authorized with the stored token. When no
// token is stored yet the user is walked through the code flow on prompt and
// the result is saved. Refreshed tokens are written back to the token file.
func Client(ctx context.Context, cfg Config, prompt Prompt, logger *slog.Logger) (*http.Client, error) {
	secrets, err := os.ReadFile(cfg.ClientSecrets)
	if err != nil {
		return nil, fmt.Errorf("read client secrets: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(secrets, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets: %w", err)
	}

	store := FileStore{Path: cfg.TokenFile}

	tok, err := store.Load()
	switch {
	case errors.Is(err, os.ErrNotExist):
		tok, err = authorize(ctx, oauthCfg, prompt)
		if err != nil {
			return nil, err
		}
		if err := store.Save(tok); err != nil {
			return nil, err
		}
		logger.Info("stored new credentials", "token_file", cfg.TokenFile)
	case err != nil:
		return nil, err
	}

	ts := &persistingSource{
		base:   oauthCfg.TokenSource(ctx, tok),
		store:  store,
		last:   tok.AccessToken,
		logger: logger,
	}

	return oauth2.NewClient(ctx, ts), nil
}

func authorize(ctx context.Context, cfg *oauth2.Config, prompt Prompt) (*oauth2.Token, error) {
	authURL := cfg.AuthCodeURL("pluspress", oauth2.AccessTypeOffline)
	fmt.Fprintf(prompt.Out, "Go to the following link in your browser:\n\n    %s\n\nEnter verification code: ", authURL)

	code, err := bufio.NewReader(prompt.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read verification code: %w", err)
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty verification code")
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// FileStore keeps a token as JSON on disk.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	return &tok, nil
}

func (s FileStore) Save(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// persistingSource saves every token the base source hands out that differs
// from the last one saved.
type persistingSource struct {
	base   oauth2.TokenSource
	store  FileStore
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken != p.last {
		if err := p.store.Save(tok); err != nil {
			p.logger.Warn("failed to persist refreshed token", "error", err)
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}
