// Package platform holds the data model shared by every adapter and by the
// dispatch layer (C4, internal/dispatch): the closed Platform set, the
// tagged Request union over every upstream host the bot mirrors media from,
// and the adapter interfaces.
package platform

import "fmt"

// Platform is the closed set of upstream hosts the bot knows how to mirror.
// Adding one is a source change, never a runtime registration.
type Platform uint8

const (
	Derpibooru Platform = iota
	Furbooru
	Manebooru
	Ponerpics
	Ponybooru
	Twibooru
	Twitter
	DeviantArt

	numPlatforms
)

func (p Platform) String() string {
	switch p {
	case Derpibooru:
		return "derpibooru"
	case Furbooru:
		return "furbooru"
	case Manebooru:
		return "manebooru"
	case Ponerpics:
		return "ponerpics"
	case Ponybooru:
		return "ponybooru"
	case Twibooru:
		return "twibooru"
	case Twitter:
		return "twitter"
	case DeviantArt:
		return "deviantart"
	default:
		return fmt.Sprintf("platform(%d)", uint8(p))
	}
}

// EnvPrefix is the prefix under which an adapter's own configuration lives,
// e.g. "DERPIBOORU_API_KEY".
func (p Platform) EnvPrefix() string {
	switch p {
	case Derpibooru:
		return "DERPIBOORU"
	case Furbooru:
		return "FURBOORU"
	case Manebooru:
		return "MANEBOORU"
	case Ponerpics:
		return "PONERPICS"
	case Ponybooru:
		return "PONYBOORU"
	case Twibooru:
		return "TWIBOORU"
	case Twitter:
		return "TWITTER"
	case DeviantArt:
		return "DEVIANTART"
	default:
		return ""
	}
}

// Valid reports whether p is one of the declared platforms.
func (p Platform) Valid() bool {
	return p < numPlatforms
}

// IsBooruFamily reports whether p is served by the generic booru adapter.
func (p Platform) IsBooruFamily() bool {
	switch p {
	case Derpibooru, Furbooru, Manebooru, Ponerpics, Ponybooru, Twibooru:
		return true
	default:
		return false
	}
}

// TableName is the blob-cache table this platform's rows live in (C1, §6).
func (p Platform) TableName() string {
	return "tg_" + p.String() + "_blob_cache"
}
