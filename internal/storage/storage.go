package storage

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

type router struct {
	base Storage
	s3   Storage
	http Storage
}

// NewRouter returns a Storage that writes to base and reads each URL from
// the backend its scheme names: s3:// URLs from s3, http(s):// URLs from
// httpStorage and everything else from base. Nil backends fall back to base.
func NewRouter(base Storage, s3 Storage, httpStorage Storage) Storage {
	return &router{
		base: base,
		s3:   s3,
		http: httpStorage,
	}
}

func (r *router) Put(ctx context.Context, key string, data []byte) (string, error) {
	return r.base.Put(ctx, key, data)
}

func (r *router) Get(ctx context.Context, url string) ([]byte, error) {
	switch {
	case strings.HasPrefix(url, "s3://") && r.s3 != nil:
		return r.s3.Get(ctx, url)
	case (strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) && r.http != nil:
		return r.http.Get(ctx, url)
	default:
		return r.base.Get(ctx, url)
	}
}

// IsNotFound reports whether err means the object does not exist in any
// backend, as opposed to the backend being unreachable.
func IsNotFound(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusNotFound || statusErr.StatusCode == http.StatusGone
	}

	var noSuchKey *types.NoSuchKey
	return errors.As(err, &noSuchKey)
}
