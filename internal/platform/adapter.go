package platform

import "context"

// ParsedQuery is what an adapter's URL parser extracts from a raw string.
type ParsedQuery struct {
	Origin  string
	Mirror  *Mirror
	Request Request
}

// Adapter is what the dispatch layer needs from any platform's
// implementation (C2): upstream resolution and blob-cache pass-through.
// The dispatch layer selects the adapter with an explicit switch on the
// Platform tag and returns it as this interface; GetPost/GetCachedBlobs/
// GetCachedBlob/SetCachedBlob are then called through it.
type Adapter interface {
	Platform() Platform
	Name() string
	// SingleBlob reports whether every post on this platform has exactly
	// one blob sharing the post's own media id. For such platforms a full
	// cache hit answers Client.Get without any upstream call (spec.md §8
	// scenario 1); multi-blob platforms must always call GetPost to
	// discover which blob ids a post actually has (§9 Open Question 1).
	SingleBlob() bool
	GetPost(ctx context.Context, req Request) (Post, error)
	// GetCachedBlobs consults C1 using only what Request reveals. For
	// single-blob platforms this is a complete answer; for multi-blob
	// platforms it is always empty, since blob ids aren't known until
	// GetPost runs.
	GetCachedBlobs(ctx context.Context, req Request) ([]CachedBlob, error)
	// GetCachedBlob is the blob-granularity counterpart, used once a blob id
	// is known (from GetPost, or from SingleBlob platforms' own Request).
	GetCachedBlob(ctx context.Context, id BlobID) (CdnFileMeta, bool, error)
	SetCachedBlob(ctx context.Context, postID PostID, blob CachedBlob) error
}

// QueryParser is the narrow interface used only for the ordered,
// first-match-wins URL parsing loop (§4.2/§4.4). It is the one operation the
// dispatch layer calls without first selecting an adapter by Platform tag:
// every other operation goes through the switch in Dispatch.adapterFor.
type QueryParser interface {
	ParseQuery(raw string) (ParsedQuery, bool)
}
