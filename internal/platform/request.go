package platform

import (
	"fmt"

	"github.com/snowpity/tg/internal/apperr"
)

// BooruRequest is the native request shape shared by every Derpibooru-family
// member: they differ only in adapter configuration (host, CDN host, env
// prefix), never in the shape of what identifies a post.
type BooruRequest struct {
	ImageID int64
}

// TwitterRequest identifies one tweet.
type TwitterRequest struct {
	StatusID int64
}

// DeviantArtRequest identifies one deviation by its canonical permalink id.
type DeviantArtRequest struct {
	DeviationID string
}

// Request is the closed tagged union produced only by Dispatch.ParseQuery.
// Exactly one field is populated, selected by Platform; equal Request values
// must coalesce in the cache service, which is why PostID() — not Request
// equality — is what the cache service actually keys on.
type Request struct {
	Platform   Platform
	Booru      *BooruRequest
	Twitter    *TwitterRequest
	DeviantArt *DeviantArtRequest
}

// PostID derives the PostID a Request resolves to. This is pure and cheap:
// no upstream call is made, which is what lets the cache service key waiters
// on it before any I/O happens.
func (r Request) PostID() PostID {
	switch r.Platform {
	case Twitter:
		return PostID{Platform: r.Platform, Native: fmt.Sprintf("%d", r.Twitter.StatusID)}
	case DeviantArt:
		return PostID{Platform: r.Platform, Native: r.DeviantArt.DeviationID}
	default:
		if !r.Platform.IsBooruFamily() {
			panic(&apperr.FatalError{Reason: fmt.Sprintf("Request has invalid platform tag %v", r.Platform)})
		}
		return PostID{Platform: r.Platform, Native: fmt.Sprintf("%d", r.Booru.ImageID)}
	}
}

func newBooruRequest(platform Platform, imageID int64) Request {
	return Request{Platform: platform, Booru: &BooruRequest{ImageID: imageID}}
}

// NewBooruRequest constructs a Request for one of the Derpibooru-family
// platforms. It panics if platform is not a booru-family member — a
// programming error, never a user-facing condition (booru adapters are the
// only callers).
func NewBooruRequest(platform Platform, imageID int64) Request {
	if !platform.IsBooruFamily() {
		panic(&apperr.FatalError{Reason: fmt.Sprintf("%v is not a booru-family platform", platform)})
	}
	return newBooruRequest(platform, imageID)
}

// NewTwitterRequest constructs a Request identifying one tweet.
func NewTwitterRequest(statusID int64) Request {
	return Request{Platform: Twitter, Twitter: &TwitterRequest{StatusID: statusID}}
}

// NewDeviantArtRequest constructs a Request identifying one deviation.
func NewDeviantArtRequest(deviationID string) Request {
	return Request{Platform: DeviantArt, DeviantArt: &DeviantArtRequest{DeviationID: deviationID}}
}
