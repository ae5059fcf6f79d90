package ratelimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// minBurst keeps reads reasonably sized when the rate is very low
const minBurst = 64 * 1024

// Limiter caps the byte rate shared by every reader it wraps
type Limiter struct {
	limiter *rate.Limiter
	burst   int
}

// NewLimiter creates a limiter for bytesPerSecond.
// A non-positive rate returns nil, which disables limiting.
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := minBurst
	if bytesPerSecond > int64(burst) {
		burst = int(bytesPerSecond)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), burst),
		burst:   burst,
	}
}

// Burst returns the largest single read the limiter allows
func (l *Limiter) Burst() int {
	return l.burst
}

// Reader wraps an io.Reader with bandwidth limiting
type Reader struct {
	reader  io.Reader
	limiter *Limiter
	ctx     context.Context
}

// NewReader wraps reader; a nil limiter returns reader unchanged
func NewReader(ctx context.Context, reader io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return reader
	}
	return &Reader{reader: reader, limiter: limiter, ctx: ctx}
}

// Read waits for enough tokens before reading
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	toRead := len(p)
	if toRead > r.limiter.burst {
		toRead = r.limiter.burst
	}
	if toRead == 0 {
		return r.reader.Read(p)
	}

	if err := r.limiter.limiter.WaitN(r.ctx, toRead); err != nil {
		return 0, err
	}
	return r.reader.Read(p[:toRead])
}

// ReadCloser wraps an io.ReadCloser with bandwidth limiting
type ReadCloser struct {
	Reader
	closer io.Closer
}

// NewReadCloser wraps rc; a nil limiter returns rc unchanged
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return &ReadCloser{
		Reader: Reader{reader: rc, limiter: limiter, ctx: ctx},
		closer: rc,
	}
}

// Close implements io.Closer
func (rc *ReadCloser) Close() error {
	return rc.closer.Close()
}
