package booru

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/platform"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func derpibooruAdapter(t *testing.T) *Adapter {
	t.Helper()
	return New(Configs[0], nil, nil, testLogger())
}

func TestParseQueryCanonicalHost(t *testing.T) {
	a := derpibooruAdapter(t)
	pq, ok := a.ParseQuery("https://derpibooru.org/images/42")
	if !ok {
		t.Fatalf("expected match")
	}
	if pq.Mirror != nil {
		t.Fatalf("expected no mirror for canonical host, got %+v", pq.Mirror)
	}
	if pq.Request.Platform != platform.Derpibooru || pq.Request.Booru.ImageID != 42 {
		t.Fatalf("unexpected request: %+v", pq.Request)
	}
}

func TestParseQueryMirrorHostRewrite(t *testing.T) {
	a := derpibooruAdapter(t)
	pq, ok := a.ParseQuery("https://trixiebooru.org/42")
	if !ok {
		t.Fatalf("expected match")
	}
	if pq.Mirror == nil || pq.Mirror.Canonical != "derpibooru.org" || pq.Mirror.Typed != "trixiebooru.org" {
		t.Fatalf("unexpected mirror: %+v", pq.Mirror)
	}
	if pq.Request.Booru.ImageID != 42 {
		t.Fatalf("unexpected image id: %+v", pq.Request)
	}
}

func TestParseQueryCDNShapes(t *testing.T) {
	a := derpibooruAdapter(t)
	cases := []string{
		"https://derpicdn.net/img/2023/1/2/555/full.png",
		"https://derpicdn.net/img/view/2023/1/2/555/full.png",
		"https://derpicdn.net/img/download/2023/1/2/555/full.png",
	}
	for _, raw := range cases {
		pq, ok := a.ParseQuery(raw)
		if !ok {
			t.Fatalf("expected match for %q", raw)
		}
		if pq.Request.Booru.ImageID != 555 {
			t.Fatalf("%q: expected image id 555, got %d", raw, pq.Request.Booru.ImageID)
		}
	}
}

func TestParseQueryRejectsUnrelatedHost(t *testing.T) {
	a := derpibooruAdapter(t)
	if _, ok := a.ParseQuery("https://furbooru.org/images/42"); ok {
		t.Fatalf("derpibooru adapter should not match furbooru.org")
	}
}
