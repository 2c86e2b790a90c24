package dispatch

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/adapter/booru"
	"github.com/snowpity/tg/internal/adapter/deviantart"
	"github.com/snowpity/tg/internal/adapter/twitter"
	"github.com/snowpity/tg/internal/apperr"
	"github.com/snowpity/tg/internal/platform"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

func testDispatch(t *testing.T) *Dispatch {
	t.Helper()
	log := testLogger()
	booruAdapters := make([]*booru.Adapter, len(booru.Configs))
	for i, cfg := range booru.Configs {
		booruAdapters[i] = booru.New(cfg, nil, nil, log)
	}
	tw := twitter.New(nil, nil, log)
	da := deviantart.New(nil, nil, log)
	return New(booruAdapters, tw, da, log)
}

func TestParseQueryFirstMatchAcrossFamily(t *testing.T) {
	d := testDispatch(t)

	cases := []struct {
		raw      string
		platform platform.Platform
	}{
		{"https://derpibooru.org/images/1", platform.Derpibooru},
		{"https://furbooru.org/images/2", platform.Furbooru},
		{"https://manebooru.art/images/3", platform.Manebooru},
		{"https://twitter.com/someone/status/123456", platform.Twitter},
		{"https://www.deviantart.com/someone/art/a-title-987654", platform.DeviantArt},
	}
	for _, c := range cases {
		req, ok := d.ParseQuery(c.raw)
		if !ok {
			t.Fatalf("%q: expected a match", c.raw)
		}
		if req.Platform != c.platform {
			t.Fatalf("%q: expected platform %v, got %v", c.raw, c.platform, req.Platform)
		}
	}
}

func TestParseQueryNoMatch(t *testing.T) {
	d := testDispatch(t)
	if _, ok := d.ParseQuery("https://example.com/not-a-known-shape"); ok {
		t.Fatalf("expected no match")
	}
}

func TestSingleBlobByPlatform(t *testing.T) {
	d := testDispatch(t)
	if !d.SingleBlob(platform.Derpibooru) {
		t.Fatalf("expected Derpibooru to be single-blob")
	}
	if !d.SingleBlob(platform.DeviantArt) {
		t.Fatalf("expected DeviantArt to be single-blob")
	}
	if d.SingleBlob(platform.Twitter) {
		t.Fatalf("expected Twitter to be multi-blob")
	}
}

func TestSetCachedBlobMismatchedPlatformsPanics(t *testing.T) {
	d := testDispatch(t)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected a panic")
		}
		if _, ok := r.(*apperr.FatalError); !ok {
			t.Fatalf("expected *apperr.FatalError, got %T: %v", r, r)
		}
	}()
	_ = d.SetCachedBlob(nil,
		platform.PostID{Platform: platform.Derpibooru, Native: "1"},
		platform.CachedBlob{ID: platform.BlobID{Platform: platform.Furbooru, Native: "1"}},
	)
}

func TestAdapterForUnknownPlatformPanics(t *testing.T) {
	d := testDispatch(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	d.adapterFor(platform.Platform(255))
}
