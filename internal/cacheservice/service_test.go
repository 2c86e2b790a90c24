package cacheservice

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/platform"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("test", true)
}

// fakeDispatcher is a Dispatcher test double whose behavior is supplied by
// the test through plain fields, guarded by a mutex since resolution runs
// on its own goroutine per coalesced post.
type fakeDispatcher struct {
	mu sync.Mutex

	singleBlob    bool
	cached        []platform.CachedBlob
	post          platform.Post
	postErr       error
	setErr        error
	getAfterSet   platform.CdnFileMeta
	getPostCalls  int32
	setCalls      int32
	getBlobCalls  int32
}

func (f *fakeDispatcher) SingleBlob(p platform.Platform) bool { return f.singleBlob }

func (f *fakeDispatcher) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	atomic.AddInt32(&f.getPostCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.post, f.postErr
}

func (f *fakeDispatcher) GetCachedBlobs(ctx context.Context, req platform.Request) ([]platform.CachedBlob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cached, nil
}

func (f *fakeDispatcher) GetCachedBlob(ctx context.Context, id platform.BlobID) (platform.CdnFileMeta, bool, error) {
	atomic.AddInt32(&f.getBlobCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cached {
		if c.ID == id {
			return c.CDNFile, true, nil
		}
	}
	return platform.CdnFileMeta{}, false, nil
}

func (f *fakeDispatcher) SetCachedBlob(ctx context.Context, postID platform.PostID, blob platform.CachedBlob) error {
	atomic.AddInt32(&f.setCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.setErr
}

type fakeDownloader struct {
	calls int32
}

func (d *fakeDownloader) Download(ctx context.Context, url string) (string, func(), error) {
	atomic.AddInt32(&d.calls, 1)
	return "/tmp/fake-blob", func() {}, nil
}

type fakeUploader struct {
	calls int32
}

func (u *fakeUploader) Upload(ctx context.Context, kind platform.CdnFileKind, path string) (string, error) {
	atomic.AddInt32(&u.calls, 1)
	return "cdn-" + kind.String(), nil
}

func samplePost() platform.Post {
	postID := platform.PostID{Platform: platform.Derpibooru, Native: "7"}
	blobID := platform.BlobID{Platform: platform.Derpibooru, Native: "7"}
	return platform.Post{
		Base: platform.BasePost{ID: postID, WebURL: "https://derpibooru.org/images/7"},
		Blobs: []platform.MultiBlob{
			{ID: blobID, Repr: platform.BlobRepr{MIME: "image/png", SourceURL: "https://derpicdn.net/img/full.png"}},
		},
	}
}

func TestSingleBlobCacheHitSkipsGetPost(t *testing.T) {
	disp := &fakeDispatcher{
		singleBlob: true,
		cached: []platform.CachedBlob{
			{ID: platform.BlobID{Platform: platform.Derpibooru, Native: "42"}, CDNFile: platform.CdnFileMeta{ID: "cdn-xyz", Kind: platform.Photo}},
		},
	}
	dl := &fakeDownloader{}
	ul := &fakeUploader{}
	client := NewClient(disp, dl, ul, nil, testLogger())
	defer client.Close()

	resp, err := client.Get(context.Background(), platform.NewBooruRequest(platform.Derpibooru, 42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CdnFileID != "cdn-xyz" || resp.CdnFileKind != platform.Photo {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if atomic.LoadInt32(&disp.getPostCalls) != 0 {
		t.Fatalf("expected zero GetPost calls on a full cache hit, got %d", disp.getPostCalls)
	}
	if atomic.LoadInt32(&dl.calls) != 0 || atomic.LoadInt32(&ul.calls) != 0 {
		t.Fatalf("expected zero upstream download/upload calls on a full cache hit")
	}
}

func TestCoalescesConcurrentIdenticalRequests(t *testing.T) {
	disp := &fakeDispatcher{singleBlob: true, post: samplePost()}
	dl := &fakeDownloader{}
	ul := &fakeUploader{}
	client := NewClient(disp, dl, ul, nil, testLogger())
	defer client.Close()

	const n = 10
	req := platform.NewBooruRequest(platform.Derpibooru, 7)
	results := make([]platform.Response, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = client.Get(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("waiter %d: unexpected error: %v", i, err)
		}
		if results[i] != results[0] {
			t.Fatalf("waiter %d: expected equal responses, got %+v vs %+v", i, results[i], results[0])
		}
	}
	if got := atomic.LoadInt32(&disp.getPostCalls); got != 1 {
		t.Fatalf("expected exactly one GetPost call, got %d", got)
	}
	if got := atomic.LoadInt32(&ul.calls); got != 1 {
		t.Fatalf("expected exactly one upload, got %d", got)
	}
	if got := atomic.LoadInt32(&disp.setCalls); got != 1 {
		t.Fatalf("expected exactly one SetCachedBlob call, got %d", got)
	}
}

func TestBackpressureBlocksUntilSlotFrees(t *testing.T) {
	release := make(chan struct{})
	disp := &slowDispatcher{fakeDispatcher: fakeDispatcher{singleBlob: true}, release: release}
	client := NewClient(disp, &fakeDownloader{}, &fakeUploader{}, nil, testLogger(), WithMaxInFlight(1))
	defer client.Close()

	first := make(chan struct{})
	go func() {
		_, _ = client.Get(context.Background(), platform.NewBooruRequest(platform.Derpibooru, 1))
		close(first)
	}()
	// give the first request time to occupy the single admission slot
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := client.Get(ctx, platform.NewBooruRequest(platform.Derpibooru, 2))
	if err == nil {
		t.Fatalf("expected the second request to still be blocked on the full mailbox")
	}

	close(release)
	<-first
}

// slowDispatcher blocks GetPost until release is closed, so a test can hold
// one in-flight slot open long enough to exercise backpressure.
type slowDispatcher struct {
	fakeDispatcher
	release chan struct{}
}

func (d *slowDispatcher) GetPost(ctx context.Context, req platform.Request) (platform.Post, error) {
	<-d.release
	return samplePost(), nil
}

func TestGetHonorsContextCancellationWhileWaitingForReply(t *testing.T) {
	release := make(chan struct{})
	disp := &slowDispatcher{fakeDispatcher: fakeDispatcher{singleBlob: true}, release: release}
	client := NewClient(disp, &fakeDownloader{}, &fakeUploader{}, nil, testLogger())
	defer func() {
		close(release)
		client.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := client.Get(ctx, platform.NewBooruRequest(platform.Derpibooru, 3))
	if err == nil {
		t.Fatalf("expected a context-deadline error")
	}
}

func TestCloseReturnsAfterCompletedResolution(t *testing.T) {
	disp := &fakeDispatcher{singleBlob: true, post: samplePost()}
	client := NewClient(disp, &fakeDownloader{}, &fakeUploader{}, nil, testLogger())

	resp, err := client.Get(context.Background(), platform.NewBooruRequest(platform.Derpibooru, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.CdnFileID == "" {
		t.Fatalf("expected a populated response")
	}
	client.Close() // must return promptly once nothing is in flight
}
