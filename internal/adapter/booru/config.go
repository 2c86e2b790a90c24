// Package booru implements the single generic adapter (C2) shared by every
// Derpibooru-family host. The six family members differ only in
// configuration (host names, API base, env prefix), never in request,
// post, or blob shape, so one Adapter type is instantiated six times rather
// than hand-duplicated per platform.
package booru

import "github.com/snowpity/tg/internal/platform"

// Config is the static, per-platform configuration for one booru-family
// instance.
type Config struct {
	Platform platform.Platform
	Name     string

	// CanonicalHost is the host the bot normalizes display URLs to.
	CanonicalHost string
	// MirrorHosts are additional hosts recognized for the same platform;
	// a match against one of these produces a non-nil platform.Mirror.
	MirrorHosts []string
	// CDNHost serves the `/img/...` asset-download URL shapes.
	CDNHost string
	// APIBase is the upstream JSON API root, e.g. "https://derpibooru.org/api/v1/json".
	APIBase string
}

func (c Config) envPrefix() string {
	return c.Platform.EnvPrefix()
}
