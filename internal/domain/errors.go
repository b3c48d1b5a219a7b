package domain

import "errors"

var (
	// ErrUnauthorized means the feed or blog credentials were revoked or
	// rejected.
	ErrUnauthorized = errors.New("credentials revoked or expired")
	// ErrNoImage means a photo post carries no usable image URL.
	ErrNoImage = errors.New("no image url")
)
