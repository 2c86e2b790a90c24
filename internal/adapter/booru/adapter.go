package booru

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"

	digest "github.com/opencontainers/go-digest"
	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/blobcache"
	"github.com/snowpity/tg/internal/platform"
)

// Adapter is the single generic implementation of C2 shared by every
// Derpibooru-family platform.
type Adapter struct {
	cfg    Config
	http   *http.Client
	repo   *blobcache.Repo
	apiKey string
	log    *logrus.Entry

	hostRE regexp.Regexp
	cdnRE  regexp.Regexp
}

// New constructs an Adapter for one family member. httpClient defaults to
// http.DefaultClient when nil; the concrete transport is a seam (spec.md §1
// Non-goals), not this adapter's concern.
func New(cfg Config, httpClient *http.Client, repo *blobcache.Repo, log *logrus.Entry) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	hosts := append([]string{cfg.CanonicalHost}, cfg.MirrorHosts...)
	hostPattern := fmt.Sprintf(`^(?:https?://)?(%s)(?:/images)?/(\d+)`, joinAlternatives(hosts))
	cdnPattern := fmt.Sprintf(`^(?:https?://)?%s/img/(?:(?:view|download)/)?(\d+)/(\d+)/(\d+)/(\d+)`, regexp.QuoteMeta(cfg.CDNHost))
	return &Adapter{
		cfg:    cfg,
		http:   httpClient,
		repo:   repo,
		apiKey: os.Getenv(cfg.envPrefix() + "_API_KEY"),
		log:    log.WithField("adapter", cfg.Name),
		hostRE: *regexp.MustCompile(hostPattern),
		cdnRE:  *regexp.MustCompile(cdnPattern),
	}
}

func joinAlternatives(hosts []string) string {
	escaped := make([]string, len(hosts))
	for i, h := range hosts {
		escaped[i] = regexp.QuoteMeta(h)
	}
	out := escaped[0]
	for _, e := range escaped[1:] {
		out += "|" + e
	}
	return out
}

func (a *Adapter) Platform() platform.Platform { return a.cfg.Platform }
func (a *Adapter) Name() string                { return a.cfg.Name }
func (a *Adapter) SingleBlob() bool            { return true }

// ParseQuery recognizes the canonical/mirror host shape and the two
// derpicdn-style CDN asset shapes (spec.md §4.2/§6). It never matches a host
// it was not configured with.
func (a *Adapter) ParseQuery(raw string) (platform.ParsedQuery, bool) {
	if m := a.hostRE.FindStringSubmatch(raw); m != nil {
		host, idStr := m[1], m[2]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return platform.ParsedQuery{}, false
		}
		return platform.ParsedQuery{
			Origin:  raw,
			Mirror:  a.mirrorFor(host),
			Request: platform.NewBooruRequest(a.cfg.Platform, id),
		}, true
	}
	if m := a.cdnRE.FindStringSubmatch(raw); m != nil {
		idStr := m[4]
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return platform.ParsedQuery{}, false
		}
		return platform.ParsedQuery{
			Origin:  raw,
			Request: platform.NewBooruRequest(a.cfg.Platform, id),
		}, true
	}
	return platform.ParsedQuery{}, false
}

func (a *Adapter) mirrorFor(host string) *platform.Mirror {
	if host == a.cfg.CanonicalHost {
		return nil
	}
	return &platform.Mirror{Canonical: a.cfg.CanonicalHost, Typed: host}
}

// GetPost fetches and normalizes the post. Every booru-family post has
// exactly one blob, sharing the post's own media id (§9 Open Question 1).
func (a *Adapter) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	if req.Platform != a.cfg.Platform || req.Booru == nil {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("%s adapter given request for %v", a.cfg.Name, req.Platform)})
	}
	img, err := a.fetchImage(ctx, req.Booru.ImageID)
	if err != nil {
		return platform.Post{}, err
	}

	postID := platform.PostID{Platform: a.cfg.Platform, Native: strconv.FormatInt(img.ID, 10)}
	blobID := platform.BlobID{Platform: a.cfg.Platform, Native: postID.Native}

	webURL := (&url.URL{Scheme: "https", Host: a.cfg.CanonicalHost, Path: fmt.Sprintf("/images/%d", img.ID)}).String()

	var authors []platform.Artist
	if img.Uploader != "" {
		authors = []platform.Artist{{Name: img.Uploader, Link: fmt.Sprintf("https://%s/profiles/%s", a.cfg.CanonicalHost, img.Uploader)}}
	}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })

	d := digest.FromString(img.Representations.Full)
	a.log.WithFields(logrus.Fields{"image_id": img.ID, "content_digest": d.String()}).Debug("booru: resolved post")

	return platform.Post{
		Base: platform.BasePost{
			ID:      postID,
			Authors: authors,
			WebURL:  webURL,
			Safety:  img.Tags,
		},
		Blobs: []platform.MultiBlob{
			{
				ID: blobID,
				Repr: platform.BlobRepr{
					MIME:      img.MimeType,
					Width:     img.Width,
					Height:    img.Height,
					ByteSize:  img.Size,
					SourceURL: img.Representations.Full,
				},
			},
		},
	}, nil
}

// GetCachedBlobs consults C1. Booru-family posts have a single blob whose
// BlobID.Native equals the post's own media id.
func (a *Adapter) GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error) {
	if req.Platform != a.cfg.Platform || req.Booru == nil {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("%s adapter given request for %v", a.cfg.Name, req.Platform)})
	}
	meta, ok, err := a.repo.Get(ctx, req.Booru.ImageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []platform.CachedBlob{{
		ID:      platform.BlobID{Platform: a.cfg.Platform, Native: strconv.FormatInt(req.Booru.ImageID, 10)},
		CDNFile: meta,
	}}, nil
}

// GetCachedBlob looks up a single blob id directly; for the booru family
// this is the same lookup GetCachedBlobs already does, since the blob id and
// the Request's native id always coincide.
func (a *Adapter) GetCachedBlob(ctx context.Context, id platform.BlobID) (platform.CdnFileMeta, bool, error) {
	if id.Platform != a.cfg.Platform {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("%s adapter given blob id for %v", a.cfg.Name, id.Platform)})
	}
	mediaID, err := strconv.ParseInt(id.Native, 10, 64)
	if err != nil {
		return platform.CdnFileMeta{}, false, err
	}
	return a.repo.Get(ctx, mediaID)
}

// SetCachedBlob writes through to C1. A benign insert conflict (I3) is
// downgraded to a debug log by Repo.Set already; the caller (cache service)
// decides whether to read the winning row back.
func (a *Adapter) SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error {
	if postID.Platform != a.cfg.Platform || blob.ID.Platform != a.cfg.Platform {
		panic(&apperr.FatalError{Reason: "SetCachedBlob called with mismatched platform tags"})
	}
	mediaID, err := strconv.ParseInt(blob.ID.Native, 10, 64)
	if err != nil {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("booru blob id %q is not numeric", blob.ID.Native)})
	}
	return a.repo.Set(ctx, mediaID, blob.CDNFile)
}
