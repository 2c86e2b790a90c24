package caption

import (
	"fmt"
	"strings"

	"github.com/snowpity/tg/internal/platform"
)

// Render formats meta per spec.md §4.7:
// *<link>(Original (Hosting)) by <artist-links>[ (ratings)]*
// The artist clause is omitted entirely when there are no authors; the
// ratings clause is omitted when empty or exactly "safe".
func Render(meta platform.MediaMeta) string {
	link := Link(meta.WebURL, Escape(fmt.Sprintf("Original (%s)", meta.HostName)))

	var artistsClause string
	if len(meta.Authors) > 0 {
		links := make([]string, len(meta.Authors))
		for i, a := range meta.Authors {
			links[i] = Link(a.Link, Escape(a.Name))
		}
		artistsClause = " by " + strings.Join(links, ", ")
	}

	var ratingsClause string
	if ratings := strings.Join(meta.Safety, ", "); ratings != "" && ratings != "safe" {
		ratingsClause = fmt.Sprintf(" \\(%s\\)", Escape(ratings))
	}

	return fmt.Sprintf("*%s%s%s*", link, artistsClause, ratingsClause)
}
