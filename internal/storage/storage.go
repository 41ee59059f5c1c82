// Package storage persists recipe images. Images arrive as base64 data URIs
// ("data:image/png;base64,....") and are written either to the local
// filesystem (served by the HTTP router under the media base URL) or to an
// S3-compatible bucket.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/tbourn/go-recipes-backend/internal/config"
)

// MaxImageBytes caps the decoded size of an uploaded image.
const MaxImageBytes = 5 << 20

// ErrInvalidImage is returned for malformed or unsupported data URIs.
var ErrInvalidImage = errors.New("image must be a base64 data URI (png, jpeg, gif or webp)")

// ImageStore writes objects, returning their public URL, and removes them by
// key. Deleting a missing key is not an error.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Image is a decoded data URI.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

var extByType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// DecodeDataURI parses "data:<type>;base64,<payload>".
func DecodeDataURI(s string) (*Image, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrInvalidImage
	}
	ctype, enc, ok := strings.Cut(meta, ";")
	if !ok || !strings.EqualFold(enc, "base64") {
		return nil, ErrInvalidImage
	}
	ctype = strings.ToLower(ctype)
	ext, ok := extByType[ctype]
	if !ok {
		return nil, ErrInvalidImage
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidImage, MaxImageBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, ErrInvalidImage
	}
	return &Image{Data: data, ContentType: ctype, Ext: ext}, nil
}

const keyPrefix = "recipes/images/"

// NewKey returns a unique object key for a recipe image.
func NewKey(ext string) string {
	return path.Join("recipes", "images", uuid.NewString()+"."+ext)
}

// KeyFromURL recovers the object key from a URL returned by Put.
func KeyFromURL(url string) (string, bool) {
	i := strings.LastIndex(url, keyPrefix)
	if i < 0 || i+len(keyPrefix) == len(url) {
		return "", false
	}
	return url[i:], true
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.MediaConfig) (ImageStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocalStore(cfg.Dir, cfg.BaseURL)
	case "s3":
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}
