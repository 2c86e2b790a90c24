package booru

import "github.com/snowpity/tg/internal/platform"

// Configs is the static list of every Derpibooru-family instance, in the
// declared order §4.2 requires ParseQuery to try adapters in. Derpibooru
// itself is declared first since it is both the namesake and the one whose
// CDN (derpicdn.net) is explicitly named in spec.md §6; the remaining family
// members use plausible sibling CDN hosts, since the spec is silent on their
// exact asset hosts.
var Configs = []Config{
	{
		Platform:      platform.Derpibooru,
		Name:          "Derpibooru",
		CanonicalHost: "derpibooru.org",
		MirrorHosts:   []string{"trixiebooru.org"},
		CDNHost:       "derpicdn.net",
		APIBase:       "https://derpibooru.org/api/v1/json",
	},
	{
		Platform:      platform.Furbooru,
		Name:          "Furbooru",
		CanonicalHost: "furbooru.org",
		CDNHost:       "furbooru.b-cdn.net",
		APIBase:       "https://furbooru.org/api/v1/json",
	},
	{
		Platform:      platform.Manebooru,
		Name:          "Manebooru",
		CanonicalHost: "manebooru.art",
		CDNHost:       "manebooru.b-cdn.net",
		APIBase:       "https://manebooru.art/api/v1/json",
	},
	{
		Platform:      platform.Ponerpics,
		Name:          "Ponerpics",
		CanonicalHost: "ponerpics.org",
		CDNHost:       "cdn.ponerpics.org",
		APIBase:       "https://ponerpics.org/api/v1/json",
	},
	{
		Platform:      platform.Ponybooru,
		Name:          "Ponybooru",
		CanonicalHost: "ponybooru.org",
		CDNHost:       "cdn.ponybooru.org",
		APIBase:       "https://ponybooru.org/api/v1/json",
	},
	{
		Platform:      platform.Twibooru,
		Name:          "Twibooru",
		CanonicalHost: "twibooru.org",
		CDNHost:       "cdn.twibooru.org",
		APIBase:       "https://twibooru.org/api/v1/json",
	},
}
