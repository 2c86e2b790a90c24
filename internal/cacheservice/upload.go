package cacheservice

import (
	"context"

	"github.com/snowpity/tg/internal/platform"
)

// Uploader pushes a local file to the messaging platform's own storage
// channel, choosing the transport method for kind, and returns the CDN's
// opaque file handle. The concrete messaging-platform SDK is a seam
// (spec.md §1 Non-goals); this interface is the only surface the cache
// service needs from it.
type Uploader interface {
	Upload(ctx context.Context, kind platform.CdnFileKind, path string) (cdnFileID string, err error)
}
