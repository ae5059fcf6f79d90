package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdejongh/filesage/pkg/ratelimit"
)

// Range is the result of a byte range request
type Range struct {
	Data  []byte
	Start int64
	// Total is the full resource length from Content-Range, -1 if unknown
	Total int64
}

// FetchRange retrieves bytes [start, end] inclusive. A server that ignores
// the Range header yields ErrRangeUnsupported.
func (c *Client) FetchRange(ctx context.Context, url string, start, end int64) (*Range, error) {
	type result struct {
		rng  *Range
		full bool
	}

	res, err := withRetry(ctx, c, url, func(ctx context.Context) (result, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		header := http.Header{}
		header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))
		req, err := c.newRequest(ctx, http.MethodGet, url, header)
		if err != nil {
			return result{}, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return result{}, err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusPartialContent:
		case http.StatusOK:
			return result{full: true}, nil
		default:
			return result{}, &StatusError{URL: url, Method: http.MethodGet, StatusCode: resp.StatusCode, Status: resp.Status}
		}

		rngStart, total, err := parseContentRange(resp.Header.Get("Content-Range"))
		if err != nil {
			return result{}, err
		}
		if rngStart != start {
			return result{}, fmt.Errorf("server returned range starting at %d, requested %d", rngStart, start)
		}

		data, err := io.ReadAll(io.LimitReader(resp.Body, end-start+1))
		if err != nil {
			return result{}, fmt.Errorf("failed to read range body: %w", err)
		}
		return result{rng: &Range{Data: data, Start: start, Total: total}}, nil
	})
	if err != nil {
		return nil, unavailable(url, err)
	}
	if res.full {
		return nil, ErrRangeUnsupported
	}
	return res.rng, nil
}

// parseContentRange parses "bytes start-end/total"; total may be "*"
func parseContentRange(v string) (start, total int64, err error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(v), "bytes ")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", v)
	}
	rng, size, ok := strings.Cut(spec, "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", v)
	}
	first, _, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", v)
	}
	if start, err = strconv.ParseInt(first, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid Content-Range %q: %w", v, err)
	}
	if size == "*" {
		return start, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("invalid Content-Range %q: %w", v, err)
	}
	return start, total, nil
}

// Body is a streamed response body
type Body struct {
	io.ReadCloser
	// Length is the declared length, -1 if unknown
	Length int64
}

// OpenStream issues a GET and returns the body for incremental reading.
// Opening is retried; failures while reading the body are not.
func (c *Client) OpenStream(ctx context.Context, url string) (*Body, error) {
	body, err := withRetry(ctx, c, url, func(ctx context.Context) (*Body, error) {
		return c.openStream(ctx, url)
	})
	if err != nil {
		return nil, unavailable(url, err)
	}
	return body, nil
}

func (c *Client) openStream(ctx context.Context, url string) (*Body, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := c.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, fallbackDrainLimit))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{URL: url, Method: http.MethodGet, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var rc io.ReadCloser = newIdleBody(resp.Body, c.timeout, cancel)
	rc = ratelimit.NewReadCloser(ctx, rc, c.limiter)
	if c.progress != nil {
		rc = &trackedBody{ReadCloser: rc, tracker: c.progress(url, resp.ContentLength)}
	}
	return &Body{ReadCloser: rc, Length: resp.ContentLength}, nil
}

// Resetter is a writer that can discard what it received, so a download can
// restart from scratch on retry
type Resetter interface {
	io.Writer
	Reset() error
}

var copyBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, 256*1024)
		return &buf
	},
}

// Download streams the whole body into w. The complete transfer is retried;
// w is reset before every attempt.
func (c *Client) Download(ctx context.Context, url string, w Resetter) (int64, error) {
	n, err := withRetry(ctx, c, url, func(ctx context.Context) (int64, error) {
		if err := w.Reset(); err != nil {
			return 0, err
		}

		body, err := c.openStream(ctx, url)
		if err != nil {
			return 0, err
		}
		defer body.Close()

		bufPtr := copyBufPool.Get().(*[]byte)
		defer copyBufPool.Put(bufPtr)

		n, err := io.CopyBuffer(w, body, *bufPtr)
		if err != nil {
			return n, fmt.Errorf("failed to download body: %w", err)
		}
		if body.Length >= 0 && n != body.Length {
			return n, fmt.Errorf("download truncated: got %d of %d bytes", n, body.Length)
		}
		return n, nil
	})
	if err != nil {
		return 0, unavailable(url, err)
	}
	return n, nil
}

// ErrIdleTimeout reports a streamed body that stopped delivering data
var ErrIdleTimeout = errors.New("no data received")

// idleBody cancels the request when a single Read makes no progress within
// timeout. The clock only runs while a Read is blocked on the server.
type idleBody struct {
	io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	expired atomic.Bool
}

func newIdleBody(rc io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{ReadCloser: rc, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		b.cancel()
	})
	b.timer.Stop()
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	if b.expired.Load() {
		return 0, b.idleErr()
	}
	b.timer.Reset(b.timeout)
	n, err := b.ReadCloser.Read(p)
	b.timer.Stop()
	if err != nil && b.expired.Load() {
		return n, b.idleErr()
	}
	return n, err
}

func (b *idleBody) idleErr() error {
	return fmt.Errorf("%w for %s", ErrIdleTimeout, b.timeout)
}

func (b *idleBody) Close() error {
	b.timer.Stop()
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

type trackedBody struct {
	io.ReadCloser
	tracker Tracker
	once    sync.Once
}

func (b *trackedBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.tracker.Add(int64(n))
	}
	return n, err
}

func (b *trackedBody) Close() error {
	b.once.Do(b.tracker.Done)
	return b.ReadCloser.Close()
}
