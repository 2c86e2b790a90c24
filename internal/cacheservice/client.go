package cacheservice

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/snowpity/tg/internal/convert"
	"github.com/snowpity/tg/internal/platform"
)

// Client is the thin front door (C6): the only thing the bot holds. It owns
// the mailbox sender and the service's lifetime.
type Client struct {
	svc *Service
}

// NewClient starts a Service and wraps it in a Client.
func NewClient(dispatch Dispatcher, downloader Downloader, uploader Uploader, converter *convert.Converter, log *logrus.Entry, opts ...Option) *Client {
	return &Client{svc: New(dispatch, downloader, uploader, converter, log, opts...)}
}

// Get resolves one request, coalescing with any identical in-flight request
// (I2) and blocking while the mailbox is at capacity (backpressure, P3).
// Cancelling ctx only drops this caller's own wait; in-flight upstream work
// it may be coalesced onto keeps running for the benefit of other waiters.
func (c *Client) Get(ctx context.Context, req platform.Request) (platform.Response, error) {
	select {
	case c.svc.admission <- struct{}{}:
	case <-ctx.Done():
		return platform.Response{}, ctx.Err()
	}

	reply := make(chan result, 1)
	env := &envelope{request: req, ctx: ctx, reply: reply}
	select {
	case c.svc.requests <- env:
	case <-ctx.Done():
		<-c.svc.admission
		return platform.Response{}, ctx.Err()
	}

	select {
	case res := <-reply:
		return res.response, res.err
	case <-ctx.Done():
		return platform.Response{}, ctx.Err()
	}
}

// Close ends the client's lifetime: closing the mailbox sender lets the
// service observe channel-closed, drain every in-flight resolution, and
// return; Close blocks until that happens (P6). Close must not be called
// concurrently with Get.
func (c *Client) Close() {
	close(c.svc.requests)
	<-c.svc.done
}
