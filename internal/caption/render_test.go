package caption

import (
	"strings"
	"testing"

	"github.com/snowpity/tg/internal/platform"
)

func TestRenderOmitsArtistClauseWhenEmpty(t *testing.T) {
	out := Render(platform.MediaMeta{WebURL: "https://derpibooru.org/images/42", HostName: "Derpibooru"})
	if strings.Contains(out, " by ") {
		t.Fatalf("expected no artist clause, got %q", out)
	}
	if !strings.HasPrefix(out, "*[Original \\(Derpibooru\\)](https://derpibooru.org/images/42)") {
		t.Fatalf("unexpected link clause: %q", out)
	}
	if !strings.HasSuffix(out, "*") {
		t.Fatalf("expected caption to be wrapped in *, got %q", out)
	}
}

func TestRenderIncludesArtistsInGivenOrder(t *testing.T) {
	meta := platform.MediaMeta{
		WebURL:   "https://derpibooru.org/images/42",
		HostName: "Derpibooru",
		Authors: []platform.Artist{
			{Name: "Alice", Link: "https://derpibooru.org/profiles/Alice"},
			{Name: "Bob", Link: "https://derpibooru.org/profiles/Bob"},
		},
	}
	out := Render(meta)
	wantAlice := "[Alice](https://derpibooru.org/profiles/Alice)"
	wantBob := "[Bob](https://derpibooru.org/profiles/Bob)"
	if !strings.Contains(out, " by "+wantAlice+", "+wantBob) {
		t.Fatalf("expected artists in order Alice, Bob, got %q", out)
	}
}

func TestRenderOmitsRatingsWhenSafeOrEmpty(t *testing.T) {
	for _, safety := range [][]string{nil, {"safe"}} {
		out := Render(platform.MediaMeta{WebURL: "https://derpibooru.org/images/42", HostName: "Derpibooru", Safety: safety})
		if strings.Contains(out, "\\(") && strings.Contains(out, "safe") {
			t.Fatalf("expected no ratings clause for %v, got %q", safety, out)
		}
	}
}

func TestRenderIncludesNonSafeRatings(t *testing.T) {
	out := Render(platform.MediaMeta{
		WebURL:   "https://derpibooru.org/images/42",
		HostName: "Derpibooru",
		Safety:   []string{"suggestive", "grimdark"},
	})
	if !strings.HasSuffix(out, " \\(suggestive, grimdark\\)*") {
		t.Fatalf("expected trailing ratings clause, got %q", out)
	}
}

func TestEscapeHandlesMarkdownSpecialChars(t *testing.T) {
	got := Escape("a.b!c_d")
	want := `a\.b\!c\_d`
	if got != want {
		t.Fatalf("Escape() = %q, want %q", got, want)
	}
}

func TestLinkEscapesClosingParenInURL(t *testing.T) {
	got := Link("https://example.com/a(b)", "text")
	want := `[text](https://example.com/a(b\))`
	if got != want {
		t.Fatalf("Link() = %q, want %q", got, want)
	}
}
