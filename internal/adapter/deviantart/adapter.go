// Package deviantart implements the DeviantArt adapter (C2). Like Twitter,
// its concrete upstream API shape is a seam (spec.md §1); unlike Twitter,
// a deviation carries exactly one media asset, so it is single-blob like
// the booru family.
package deviantart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/blobcache"
	"github.com/snowpity/tg/internal/platform"
)

var deviationURLRE = regexp.MustCompile(`^(?:https?://)?(?:www\.)?deviantart\.com/[^/]+/art/[\w-]*?-(\d+)$`)

type Adapter struct {
	http *http.Client
	repo *blobcache.Repo
	log  *logrus.Entry
}

func New(httpClient *http.Client, repo *blobcache.Repo, log *logrus.Entry) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{http: httpClient, repo: repo, log: log.WithField("adapter", "DeviantArt")}
}

func (a *Adapter) Platform() platform.Platform { return platform.DeviantArt }
func (a *Adapter) Name() string                { return "DeviantArt" }
func (a *Adapter) SingleBlob() bool            { return true }

// ParseQuery recognizes DeviantArt's "/<user>/art/<slug>-<id>" permalink
// shape; it never matches another platform's host. The trailing numeric
// suffix is DeviantArt's own canonical deviation id, kept as a string since
// it is used only for lookups, never arithmetic.
func (a *Adapter) ParseQuery(raw string) (platform.ParsedQuery, bool) {
	m := deviationURLRE.FindStringSubmatch(raw)
	if m == nil {
		return platform.ParsedQuery{}, false
	}
	return platform.ParsedQuery{Origin: raw, Request: platform.NewDeviantArtRequest(m[1])}, true
}

type deviation struct {
	DeviationID string `json:"deviationid"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Author      struct {
		Username string `json:"username"`
	} `json:"author"`
	Content struct {
		Src    string `json:"src"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"content"`
	MimeType     string   `json:"mime_type"`
	IsMature     bool     `json:"is_mature"`
	MatureLevel  string   `json:"mature_level"`
}

func (a *Adapter) fetchDeviation(ctx context.Context, id string) (deviation, error) {
	u := fmt.Sprintf("https://backend.deviantart.com/oembed?deviationid=%s", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return deviation{}, &apperr.UpstreamError{Adapter: "DeviantArt", Err: err}
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return deviation{}, &apperr.UpstreamError{Adapter: "DeviantArt", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return deviation{}, &apperr.UpstreamError{Adapter: "DeviantArt", Err: fmt.Errorf("GET %s: status %d", u, resp.StatusCode)}
	}
	var d deviation
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return deviation{}, &apperr.UpstreamError{Adapter: "DeviantArt", Err: fmt.Errorf("decoding response: %w", err)}
	}
	d.DeviationID = id
	return d, nil
}

func (a *Adapter) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	if req.Platform != platform.DeviantArt || req.DeviantArt == nil {
		panic(&apperr.FatalError{Reason: "DeviantArt adapter given non-DeviantArt request"})
	}
	d, err := a.fetchDeviation(ctx, req.DeviantArt.DeviationID)
	if err != nil {
		return platform.Post{}, err
	}

	postID := platform.PostID{Platform: platform.DeviantArt, Native: d.DeviationID}
	blobID := platform.BlobID{Platform: platform.DeviantArt, Native: d.DeviationID}

	var safety []string
	if d.IsMature {
		safety = []string{d.MatureLevel}
	}

	authors := []platform.Artist{{Name: d.Author.Username, Link: fmt.Sprintf("https://www.deviantart.com/%s", d.Author.Username)}}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })

	return platform.Post{
		Base: platform.BasePost{ID: postID, Authors: authors, WebURL: d.URL, Safety: safety},
		Blobs: []platform.MultiBlob{{
			ID: blobID,
			Repr: platform.BlobRepr{
				MIME:      d.MimeType,
				Width:     d.Content.Width,
				Height:    d.Content.Height,
				SourceURL: d.Content.Src,
			},
		}},
	}, nil
}

func (a *Adapter) GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error) {
	if req.Platform != platform.DeviantArt || req.DeviantArt == nil {
		panic(&apperr.FatalError{Reason: "DeviantArt adapter given non-DeviantArt request"})
	}
	mediaID, err := strconv.ParseInt(req.DeviantArt.DeviationID, 10, 64)
	if err != nil {
		return nil, nil
	}
	meta, ok, err := a.repo.Get(ctx, mediaID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return []platform.CachedBlob{{
		ID:      platform.BlobID{Platform: platform.DeviantArt, Native: req.DeviantArt.DeviationID},
		CDNFile: meta,
	}}, nil
}

func (a *Adapter) GetCachedBlob(ctx context.Context, id platform.BlobID) (platform.CdnFileMeta, bool, error) {
	if id.Platform != platform.DeviantArt {
		panic(&apperr.FatalError{Reason: "DeviantArt adapter given blob id for another platform"})
	}
	mediaID, err := strconv.ParseInt(id.Native, 10, 64)
	if err != nil {
		return platform.CdnFileMeta{}, false, err
	}
	return a.repo.Get(ctx, mediaID)
}

func (a *Adapter) SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error {
	if postID.Platform != platform.DeviantArt || blob.ID.Platform != platform.DeviantArt {
		panic(&apperr.FatalError{Reason: "SetCachedBlob called with mismatched platform tags"})
	}
	mediaID, err := strconv.ParseInt(blob.ID.Native, 10, 64)
	if err != nil {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("deviantart blob id %q is not numeric", blob.ID.Native)})
	}
	return a.repo.Set(ctx, mediaID, blob.CDNFile)
}
