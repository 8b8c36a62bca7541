package storage

import (
	"context"
	"path/filepath"
	"strings"
)

// Object is an uploaded file held in memory until it is put to the bucket.
type Object struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Ext returns the lower-cased file extension including the dot, defaulting to .jpg.
func (o *Object) Ext() string {
	if o == nil {
		return ".jpg"
	}
	ext := strings.ToLower(filepath.Ext(o.Filename))
	if ext == "" {
		return ".jpg"
	}
	return ext
}

func (o *Object) Empty() bool {
	return o == nil || len(o.Body) == 0
}

// Store is the object storage boundary. Put returns the public URL of key.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
