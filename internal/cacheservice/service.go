// Package cacheservice implements the coalescing core (C5) and its client
// handle (C6): a single owned event loop that deduplicates concurrent
// requests for the same post, bounds in-flight upstream work, and fans a
// shared result back to every coalesced waiter.
package cacheservice

import (
	"context"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/convert"
	"github.com/snowpity/tg/internal/platform"
)

// DefaultMaxInFlight is the bounded mailbox capacity from spec.md §4.5.
const DefaultMaxInFlight = 40

// defaultBlobFanout caps how many blobs of one post are downloaded,
// converted, and uploaded concurrently.
const defaultBlobFanout = 4

// Dispatcher is everything the cache service needs from the dispatch layer.
// It is the narrow shape *dispatch.Dispatch already satisfies; declaring it
// here (rather than importing dispatch directly) keeps this package testable
// against fakes without a real adapter fleet.
type Dispatcher interface {
	SingleBlob(p platform.Platform) bool
	GetPost(ctx context.Context, req platform.Request) (platform.Post, error)
	GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error)
	GetCachedBlob(ctx context.Context, id platform.BlobID) (platform.CdnFileMeta, bool, error)
	SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error
}

type result struct {
	response platform.Response
	err      error
}

// envelope bundles one request with its reply destination (§3). reply is
// buffered with capacity 1 so delivery never blocks on a waiter that
// dropped its receiving end.
type envelope struct {
	request platform.Request
	ctx     context.Context
	reply   chan result
}

type jobResult struct {
	postID platform.PostID
	result result
}

// Service is the single owned task described in spec.md §4.5. Construct one
// with New and interact with it only through a Client.
type Service struct {
	dispatch   Dispatcher
	downloader Downloader
	uploader   Uploader
	converter  *convert.Converter
	log        *logrus.Entry
	blobFanout int

	admission   chan struct{}
	requests    chan *envelope
	completions chan jobResult
	waiters     map[platform.PostID][]*envelope
	done        chan struct{}
}

// Option configures a Service at construction.
type Option func(*Service)

// WithMaxInFlight overrides DefaultMaxInFlight.
func WithMaxInFlight(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.admission = make(chan struct{}, n)
			s.requests = make(chan *envelope, n)
		}
	}
}

// WithBlobFanout overrides defaultBlobFanout.
func WithBlobFanout(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.blobFanout = n
		}
	}
}

// New starts the service's event loop goroutine and returns a handle to it.
// Callers normally don't hold a *Service directly; they get one indirectly
// through NewClient.
func New(dispatch Dispatcher, downloader Downloader, uploader Uploader, converter *convert.Converter, log *logrus.Entry, opts ...Option) *Service {
	s := &Service{
		dispatch:    dispatch,
		downloader:  downloader,
		uploader:    uploader,
		converter:   converter,
		log:         log.WithField("component", "cacheservice"),
		blobFanout:  defaultBlobFanout,
		admission:   make(chan struct{}, DefaultMaxInFlight),
		requests:    make(chan *envelope, DefaultMaxInFlight),
		completions: make(chan jobResult),
		waiters:     make(map[platform.PostID][]*envelope),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// run is the event loop: a guarded select over new requests and completed
// resolutions, exactly the two sources spec.md §4.5 names. It returns once
// the requests channel is closed (client lifetime ended) and every
// coalesced post has been answered (P6).
func (s *Service) run() {
	defer close(s.done)
	requests := s.requests
	for {
		if requests == nil && len(s.waiters) == 0 {
			return
		}
		select {
		case env, ok := <-requests:
			if !ok {
				requests = nil
				continue
			}
			s.admit(env)
		case jr := <-s.completions:
			s.deliver(jr)
		}
	}
}

// admit either coalesces env onto an already-pending post, or starts a new
// resolution future for it (I2: at most one upstream sequence per PostId).
func (s *Service) admit(env *envelope) {
	postID := env.request.PostID()
	if waiters, pending := s.waiters[postID]; pending {
		s.waiters[postID] = append(waiters, env)
		s.log.WithField("post_id", postID.String()).Debug("cacheservice: coalesced onto pending request")
		return
	}
	s.waiters[postID] = []*envelope{env}
	go s.resolve(postID, env.request)
}

// deliver fans jr's result out to every waiter coalesced on jr.postID and
// releases one admission token per waiter delivered, matching the literal
// `sum(|waiters[k]|) <= MAX_IN_FLIGHT` bound from spec.md §4.5.
func (s *Service) deliver(jr jobResult) {
	waiters := s.waiters[jr.postID]
	delete(s.waiters, jr.postID)
	for _, env := range waiters {
		select {
		case env.reply <- jr.result:
		default:
		}
		if env.ctx.Err() != nil {
			s.log.WithField("post_id", jr.postID.String()).Warn("cacheservice: waiter gone before delivery")
		}
		<-s.admission
	}
}

// resolve runs one coalesced job against a service-scoped context: one
// waiter cancelling must not abort work that benefits the others (§5).
func (s *Service) resolve(postID platform.PostID, req platform.Request) {
	resp, err := s.resolveOne(context.Background(), req)
	s.completions <- jobResult{postID: postID, result: result{response: resp, err: err}}
}

// resolveOne implements the per-request resolution steps from spec.md §4.5.
func (s *Service) resolveOne(ctx context.Context, req platform.Request) (platform.Response, error) {
	cached, err := s.dispatch.GetCachedBlobs(ctx, req)
	if err != nil {
		return platform.Response{}, err
	}

	// A single-blob platform with a full cache hit answers without any
	// upstream call at all (scenario 1); its metadata-bearing GetPost call
	// would otherwise be pure overhead on the hit path.
	if s.dispatch.SingleBlob(req.Platform) && len(cached) == 1 {
		hit := cached[0]
		return platform.Response{CdnFileID: hit.CDNFile.ID, CdnFileKind: hit.CDNFile.Kind}, nil
	}

	post, err := s.dispatch.GetPost(ctx, req)
	if err != nil {
		return platform.Response{}, err
	}

	cachedByID := make(map[platform.BlobID]platform.CdnFileMeta, len(cached))
	for _, c := range cached {
		cachedByID[c.ID] = c.CDNFile
	}

	resolved := make([]platform.CdnFileMeta, len(post.Blobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.blobFanout)
	for i, blob := range post.Blobs {
		i, blob := i, blob
		g.Go(func() error {
			if meta, ok := cachedByID[blob.ID]; ok {
				resolved[i] = meta
				return nil
			}
			if meta, hit, err := s.dispatch.GetCachedBlob(gctx, blob.ID); err != nil {
				return err
			} else if hit {
				resolved[i] = meta
				return nil
			}
			meta, err := s.resolveBlob(gctx, post.Base.ID, blob)
			if err != nil {
				return err
			}
			resolved[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return platform.Response{}, err
	}

	principal := resolved[0] // Derpibooru-family's sole blob; the only principal-blob rule spec.md §4.5 pins down
	return platform.Response{
		CdnFileID:   principal.ID,
		CdnFileKind: principal.Kind,
		Meta: platform.MediaMeta{
			WebURL:  post.Base.WebURL,
			Authors: post.Base.Authors,
			Safety:  post.Base.Safety,
		},
	}, nil
}

// resolveBlob downloads, maybe converts, uploads, and persists one blob.
// Convert-then-upload is sequential per blob, as spec.md §4.5 step 3
// requires; only the per-blob fan-out in resolveOne runs concurrently.
func (s *Service) resolveBlob(ctx context.Context, postID platform.PostID, blob platform.MultiBlob) (platform.CdnFileMeta, error) {
	path, cleanup, err := s.downloader.Download(ctx, blob.Repr.SourceURL)
	if err != nil {
		return platform.CdnFileMeta{}, &apperr.UpstreamError{Adapter: postID.Platform.String(), Err: err}
	}
	defer cleanup()

	uploadPath := path
	kind := classifyKind(blob.Repr.MIME)
	switch blob.Repr.MIME {
	case "image/gif":
		converted, err := s.converter.ConvertGIF(ctx, path)
		if err != nil {
			return platform.CdnFileMeta{}, err
		}
		defer s.converter.Cleanup(converted)
		uploadPath = converted
		kind = platform.AnimatedGif
	case "video/webm":
		converted, err := s.converter.ConvertWebM(ctx, path)
		if err != nil {
			return platform.CdnFileMeta{}, err
		}
		defer s.converter.Cleanup(converted)
		uploadPath = converted
		kind = platform.Video
	}

	cdnFileID, err := s.uploader.Upload(ctx, kind, uploadPath)
	if err != nil {
		return platform.CdnFileMeta{}, &apperr.UploadError{Kind: kind.String(), Err: err}
	}
	meta := platform.CdnFileMeta{ID: cdnFileID, Kind: kind}

	if err := s.dispatch.SetCachedBlob(ctx, postID, platform.CachedBlob{ID: blob.ID, CDNFile: meta}); err != nil {
		if !errdefs.IsAlreadyExists(err) {
			return platform.CdnFileMeta{}, err
		}
		// Benign race (I3): another writer already installed a value for
		// this blob. Read it back so every coalesced waiter sees the same
		// winning value, not whichever writer happened to finish the upload.
		if existing, ok, getErr := s.dispatch.GetCachedBlob(ctx, blob.ID); getErr == nil && ok {
			return existing, nil
		}
		return meta, nil
	}
	return meta, nil
}

func classifyKind(mime string) platform.CdnFileKind {
	switch {
	case strings.HasPrefix(mime, "video/"):
		return platform.Video
	case strings.HasPrefix(mime, "image/"):
		return platform.Photo
	default:
		return platform.Document
	}
}
