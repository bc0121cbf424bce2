// Package images validates recipe image uploads and stores them as blobs.
package images

import (
	"context"
	"errors"
	"io"

	"github.com/geocoder89/recipehub/internal/observability"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidKey   = errors.New("invalid blob key")
)

// BlobStore holds image bytes under opaque keys.
type BlobStore interface {
	// Put writes data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key string) string
}

type instrumented struct {
	next BlobStore
	prom *observability.Prom
}

// Instrument times every store call. A nil prom returns store unchanged.
func Instrument(store BlobStore, prom *observability.Prom) BlobStore {
	if prom == nil {
		return store
	}
	return &instrumented{next: store, prom: prom}
}

func (s *instrumented) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	var url string
	err := s.prom.ObserveBlob("put", func() error {
		var err error
		url, err = s.next.Put(ctx, key, data, contentType)
		return err
	})
	return url, err
}

func (s *instrumented) Delete(ctx context.Context, key string) error {
	return s.prom.ObserveBlob("delete", func() error {
		return s.next.Delete(ctx, key)
	})
}

func (s *instrumented) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := s.prom.ObserveBlob("open", func() error {
		var err error
		rc, err = s.next.Open(ctx, key)
		return err
	})
	return rc, err
}

func (s *instrumented) URL(key string) string {
	return s.next.URL(key)
}
