package cacheservice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Downloader fetches a blob to a local file. A file path, not a stream, is
// the contract because the converter (C3) only ever accepts a file path as
// its -i argument; blobs that need no conversion are uploaded straight from
// the same path.
type Downloader interface {
	Download(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// HTTPDownloader is the default Downloader. The transport is a seam (spec.md
// §1 Non-goals), taken as a constructor argument the same way every platform
// adapter takes its own *http.Client.
type HTTPDownloader struct {
	http    *http.Client
	tempDir string
}

func NewHTTPDownloader(httpClient *http.Client, tempDir string) *HTTPDownloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &HTTPDownloader{http: httpClient, tempDir: tempDir}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	path := filepath.Join(d.tempDir, uuid.NewString())
	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(path)
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}
