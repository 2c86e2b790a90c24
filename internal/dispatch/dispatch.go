// Package dispatch implements C4: it unifies every platform's adapter
// behind the single closed Request/PostID/BlobID tagged union in
// internal/platform, so the cache service and the bot's command surface
// handle one type, not eight (spec.md §4.4).
package dispatch

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/adapter/booru"
	"github.com/snowpity/tg/internal/adapter/deviantart"
	"github.com/snowpity/tg/internal/adapter/twitter"
	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/platform"
)

// Dispatch is the dispatch layer: a small, fixed set of adapter instances
// plus switch-based adapter selection. ParseQuery iterates the ordered
// parser list through platform.QueryParser; SingleBlob/GetPost/
// GetCachedBlobs/GetCachedBlob/SetCachedBlob pick the adapter with the
// explicit switch in adapterFor and then call it through the
// platform.Adapter interface that adapterFor returns.
type Dispatch struct {
	booru      map[platform.Platform]*booru.Adapter
	twitter    *twitter.Adapter
	deviantArt *deviantart.Adapter

	parsers []platform.QueryParser
	log     *logrus.Entry
}

// New builds the dispatch layer from one fully-constructed adapter instance
// per platform. booruAdapters must contain exactly one entry per
// platform.Platform.IsBooruFamily() member, in the declared parse order.
func New(booruAdapters []*booru.Adapter, tw *twitter.Adapter, da *deviantart.Adapter, log *logrus.Entry) *Dispatch {
	d := &Dispatch{
		booru:      make(map[platform.Platform]*booru.Adapter, len(booruAdapters)),
		twitter:    tw,
		deviantArt: da,
		log:        log.WithField("component", "dispatch"),
	}
	for _, a := range booruAdapters {
		d.booru[a.Platform()] = a
		d.parsers = append(d.parsers, a)
	}
	if tw != nil {
		d.parsers = append(d.parsers, tw)
	}
	if da != nil {
		d.parsers = append(d.parsers, da)
	}
	return d
}

// ParseQuery tries every adapter's parser in the statically configured
// order; the first match wins (spec.md §4.2, P1).
func (d *Dispatch) ParseQuery(raw string) (platform.Request, bool) {
	for _, p := range d.parsers {
		if pq, ok := p.ParseQuery(raw); ok {
			return pq.Request, true
		}
	}
	return platform.Request{}, false
}

// ParseQueryFull is like ParseQuery but also returns the Mirror, when the
// matching adapter reports one, for callers that need to rewrite display
// URLs (scenario 3).
func (d *Dispatch) ParseQueryFull(raw string) (platform.ParsedQuery, bool) {
	for _, p := range d.parsers {
		if pq, ok := p.ParseQuery(raw); ok {
			return pq, true
		}
	}
	return platform.ParsedQuery{}, false
}

func (d *Dispatch) adapterFor(p platform.Platform) platform.Adapter {
	switch {
	case p.IsBooruFamily():
		a, ok := d.booru[p]
		if !ok {
			panic(&apperr.FatalError{Reason: fmt.Sprintf("no booru adapter registered for %v", p)})
		}
		return a
	case p == platform.Twitter:
		return d.twitter
	case p == platform.DeviantArt:
		return d.deviantArt
	default:
		d.log.WithField("platform", p).Error("dispatch: unhandled platform tag")
		panic(&apperr.FatalError{Reason: fmt.Sprintf("dispatch: unhandled platform tag %v", p)})
	}
}

func (d *Dispatch) SingleBlob(p platform.Platform) bool {
	return d.adapterFor(p).SingleBlob()
}

func (d *Dispatch) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	return d.adapterFor(req.Platform).GetPost(ctx, req)
}

func (d *Dispatch) GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error) {
	return d.adapterFor(req.Platform).GetCachedBlobs(ctx, req)
}

func (d *Dispatch) GetCachedBlob(ctx context.Context, id platform.BlobID) (platform.CdnFileMeta, bool, error) {
	return d.adapterFor(id.Platform).GetCachedBlob(ctx, id)
}

// SetCachedBlob requires postID and blob.ID to share the same platform tag;
// a mismatch is a programming error and crashes the task (FatalError),
// exactly as spec.md §4.4 requires.
func (d *Dispatch) SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error {
	if postID.Platform != blob.ID.Platform {
		panic(&apperr.FatalError{
			Reason: fmt.Sprintf("SetCachedBlob: postID platform %v != blob platform %v", postID.Platform, blob.ID.Platform),
		})
	}
	return d.adapterFor(postID.Platform).SetCachedBlob(ctx, postID, blob)
}
