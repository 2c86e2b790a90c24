// Package twitter implements the Twitter/X adapter (C2). Its upstream API
// shape is intentionally thin — the concrete HTTP client for each upstream
// is explicitly out of scope (spec.md §1) — but it participates in the same
// dispatch, caching, and single-flight guarantees as every other platform
// (§9 Open Question 3).
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/blobcache"
	"github.com/snowpity/tg/internal/platform"
)

var statusURLRE = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?:twitter\.com|x\.com)/[^/]+/status/(\d+)`)

type Adapter struct {
	http *http.Client
	repo *blobcache.Repo
	log  *logrus.Entry
}

func New(httpClient *http.Client, repo *blobcache.Repo, log *logrus.Entry) *Adapter {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Adapter{http: httpClient, repo: repo, log: log.WithField("adapter", "Twitter")}
}

func (a *Adapter) Platform() platform.Platform { return platform.Twitter }
func (a *Adapter) Name() string                { return "Twitter" }
func (a *Adapter) SingleBlob() bool            { return false }

// ParseQuery recognizes twitter.com/x.com status URLs only; it never matches
// another platform's host.
func (a *Adapter) ParseQuery(raw string) (platform.ParsedQuery, bool) {
	m := statusURLRE.FindStringSubmatch(raw)
	if m == nil {
		return platform.ParsedQuery{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return platform.ParsedQuery{}, false
	}
	return platform.ParsedQuery{Origin: raw, Request: platform.NewTwitterRequest(id)}, true
}

// tweetMedia is the subset of a syndication-style tweet payload this adapter
// needs: author and one entry per attached photo/video.
type tweetMedia struct {
	AuthorName   string `json:"author_name"`
	AuthorHandle string `json:"author_handle"`
	Photos       []struct {
		MediaID int64  `json:"media_id"`
		URL     string `json:"url"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	} `json:"photos"`
	Videos []struct {
		MediaID int64  `json:"media_id"`
		URL     string `json:"url"`
		Width   int    `json:"width"`
		Height  int    `json:"height"`
	} `json:"videos"`
	SensitiveTags []string `json:"sensitive_tags"`
}

func (a *Adapter) fetchTweet(ctx context.Context, statusID int64) (tweetMedia, error) {
	u := fmt.Sprintf("https://api.twitter-syndication.internal/tweet/%d", statusID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return tweetMedia{}, &apperr.UpstreamError{Adapter: "Twitter", Err: err}
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return tweetMedia{}, &apperr.UpstreamError{Adapter: "Twitter", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return tweetMedia{}, &apperr.UpstreamError{Adapter: "Twitter", Err: fmt.Errorf("GET %s: status %d", u, resp.StatusCode)}
	}
	var tm tweetMedia
	if err := json.NewDecoder(resp.Body).Decode(&tm); err != nil {
		return tweetMedia{}, &apperr.UpstreamError{Adapter: "Twitter", Err: fmt.Errorf("decoding response: %w", err)}
	}
	return tm, nil
}

// GetPost fetches and normalizes a tweet. Unlike the booru family, a tweet
// can carry multiple photos/videos, each with its own media id distinct
// from the tweet's own status id (§9 Open Question 1).
func (a *Adapter) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	if req.Platform != platform.Twitter || req.Twitter == nil {
		panic(&apperr.FatalError{Reason: "Twitter adapter given non-Twitter request"})
	}
	tm, err := a.fetchTweet(ctx, req.Twitter.StatusID)
	if err != nil {
		return platform.Post{}, err
	}

	postID := platform.PostID{Platform: platform.Twitter, Native: strconv.FormatInt(req.Twitter.StatusID, 10)}
	webURL := fmt.Sprintf("https://twitter.com/%s/status/%d", url.PathEscape(tm.AuthorHandle), req.Twitter.StatusID)

	var blobs []platform.MultiBlob
	for _, p := range tm.Photos {
		blobs = append(blobs, platform.MultiBlob{
			ID: platform.BlobID{Platform: platform.Twitter, Native: strconv.FormatInt(p.MediaID, 10)},
			Repr: platform.BlobRepr{
				MIME:      "image/jpeg",
				Width:     p.Width,
				Height:    p.Height,
				SourceURL: p.URL,
			},
		})
	}
	for _, v := range tm.Videos {
		blobs = append(blobs, platform.MultiBlob{
			ID: platform.BlobID{Platform: platform.Twitter, Native: strconv.FormatInt(v.MediaID, 10)},
			Repr: platform.BlobRepr{
				MIME:      "video/mp4",
				Width:     v.Width,
				Height:    v.Height,
				SourceURL: v.URL,
			},
		})
	}
	if len(blobs) == 0 {
		return platform.Post{}, &apperr.UpstreamError{Adapter: "Twitter", Err: fmt.Errorf("tweet %d has no photo or video attachments", req.Twitter.StatusID)}
	}

	authors := []platform.Artist{{Name: tm.AuthorName, Link: fmt.Sprintf("https://twitter.com/%s", tm.AuthorHandle)}}
	sort.Slice(authors, func(i, j int) bool { return authors[i].Name < authors[j].Name })

	return platform.Post{
		Base: platform.BasePost{ID: postID, Authors: authors, WebURL: webURL, Safety: tm.SensitiveTags},
		Blobs: blobs,
	}, nil
}

// GetCachedBlobs always returns empty: a tweet's blobs are keyed by their
// own per-photo/per-video media ids, which aren't known until GetPost runs
// (§9 Open Question 1). The cache service falls back to GetCachedBlob once
// it has those ids.
func (a *Adapter) GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error) {
	return nil, nil
}

func (a *Adapter) SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error {
	if postID.Platform != platform.Twitter || blob.ID.Platform != platform.Twitter {
		panic(&apperr.FatalError{Reason: "SetCachedBlob called with mismatched platform tags"})
	}
	mediaID, err := strconv.ParseInt(blob.ID.Native, 10, 64)
	if err != nil {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("twitter blob id %q is not numeric", blob.ID.Native)})
	}
	return a.repo.Set(ctx, mediaID, blob.CDNFile)
}

// GetCachedBlob looks up one specific blob id, used by the cache service
// once GetPost has revealed which media ids a multi-blob post actually has.
func (a *Adapter) GetCachedBlob(ctx context.Context, blobID platform.BlobID) (platform.CdnFileMeta, bool, error) {
	mediaID, err := strconv.ParseInt(blobID.Native, 10, 64)
	if err != nil {
		return platform.CdnFileMeta{}, false, err
	}
	return a.repo.Get(ctx, mediaID)
}
