package platform

import "fmt"

// PostID tags a platform-native post identifier with its platform. It is
// comparable (usable as a map key) by construction, satisfying the "hashable
// and stringifiable, always carries its platform tag" requirement without a
// hand-rolled Hash method.
type PostID struct {
	Platform Platform
	Native   string
}

func (id PostID) String() string {
	return fmt.Sprintf("%s:%s", id.Platform, id.Native)
}

// BlobID tags a platform-native blob identifier with its platform. For
// single-blob platforms (the booru family and DeviantArt) it carries the same Native
// value as the owning PostID.
type BlobID struct {
	Platform Platform
	Native   string
}

func (id BlobID) String() string {
	return fmt.Sprintf("%s:%s", id.Platform, id.Native)
}

// Mirror records that the URL the user typed used a non-canonical but
// recognized host alias; web URLs in the returned Post are rewritten back to
// the canonical host, and Typed is kept around for display fidelity.
type Mirror struct {
	Canonical string
	Typed     string
}

// Artist is ordered by Name for deterministic captions.
type Artist struct {
	Name string
	Link string
}

// CdnFileKind is the closed set of CDN attachment kinds. It round-trips
// through the database as a SMALLINT exactly as declared here; do not
// renumber existing members.
type CdnFileKind int16

const (
	Photo       CdnFileKind = 0
	Document    CdnFileKind = 1
	Video       CdnFileKind = 2
	AnimatedGif CdnFileKind = 3
)

func (k CdnFileKind) String() string {
	switch k {
	case Photo:
		return "photo"
	case Document:
		return "document"
	case Video:
		return "video"
	case AnimatedGif:
		return "animated_gif"
	default:
		return fmt.Sprintf("cdn_file_kind(%d)", int16(k))
	}
}

// Valid reports whether k is one of the four declared kinds. Any other i16
// read back from the database is a corruption, not a new variant.
func (k CdnFileKind) Valid() bool {
	switch k {
	case Photo, Document, Video, AnimatedGif:
		return true
	default:
		return false
	}
}

// CdnFileKindFromI16 is the other half of the round-trip: it fails (ok=false)
// on any value outside {0,1,2,3}.
func CdnFileKindFromI16(v int16) (CdnFileKind, bool) {
	k := CdnFileKind(v)
	return k, k.Valid()
}

// CdnFileMeta is the opaque handle the messaging platform assigned to an
// uploaded asset, plus the kind it was uploaded as.
type CdnFileMeta struct {
	ID   string
	Kind CdnFileKind
}

// CachedBlob pairs a BlobID with the CDN handle it resolved to.
type CachedBlob struct {
	ID      BlobID
	CDNFile CdnFileMeta
}

// BlobRepr carries everything needed to fetch and classify one blob.
type BlobRepr struct {
	MIME       string
	Width      int
	Height     int
	ByteSize   int64
	SourceURL  string
}

// MultiBlob is one constituent blob of a Post.
type MultiBlob struct {
	ID   BlobID
	Repr BlobRepr
}

// BasePost is the platform-agnostic metadata every Post carries.
type BasePost struct {
	ID      PostID
	Authors []Artist
	WebURL  string
	Safety  []string
}

// Post is the normalized result of resolving one upstream post. Blobs is
// never empty, and every BlobID in it shares ID's platform tag (I1).
type Post struct {
	Base  BasePost
	Blobs []MultiBlob
}
