package compare

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/remote"
	"github.com/sdejongh/filesage/pkg/storage"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

// Digest is a SHA-256 content fingerprint
type Digest [sha256.Size]byte

// String returns the hex encoding
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func sum(h hash.Hash) Digest {
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// ctxReader fails reads once ctx is done
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// DigestWhole hashes everything r yields
func DigestWhole(ctx context.Context, r io.Reader) (Digest, error) {
	bufPtr := readBuffers.Get().(*[]byte)
	defer readBuffers.Put(bufPtr)

	h := sha256.New()
	if _, err := io.CopyBuffer(h, ctxReader{ctx, r}, *bufPtr); err != nil {
		return Digest{}, fmt.Errorf("failed to read content: %w", err)
	}
	return sum(h), nil
}

// region is a byte range [off, off+n)
type region struct {
	off, n int64
}

// partialRegions returns the head and tail regions sampled for a source of
// the given size. The tail never starts before the end of the head, so when
// size <= 2*chunk the two regions cover the file exactly once. tail.n is 0
// when size <= chunk.
func partialRegions(size, chunk int64) (head, tail region) {
	head = region{0, min(chunk, size)}
	if size > chunk {
		off := max(chunk, size-chunk)
		tail = region{off, size - off}
	}
	return head, tail
}

// DigestPartial hashes the head and tail regions of a random-access source.
// Both regions are read concurrently and hashed head first.
func DigestPartial(ctx context.Context, r io.ReaderAt, size, chunk int64) (Digest, error) {
	if chunk <= 0 {
		return Digest{}, fmt.Errorf("partial chunk size must be positive, got %d", chunk)
	}
	head, tail := partialRegions(size, chunk)

	headBuf := make([]byte, head.n)
	tailBuf := make([]byte, tail.n)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return readRegion(gctx, r, head, headBuf) })
	if tail.n > 0 {
		g.Go(func() error { return readRegion(gctx, r, tail, tailBuf) })
	}
	if err := g.Wait(); err != nil {
		return Digest{}, err
	}

	h := sha256.New()
	h.Write(headBuf)
	h.Write(tailBuf)
	return sum(h), nil
}

func readRegion(ctx context.Context, r io.ReaderAt, reg region, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := r.ReadAt(buf, reg.off)
	if int64(n) == reg.n {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("failed to read bytes %d-%d: %w", reg.off, reg.off+reg.n-1, err)
}

// DigestPartialStream computes the same digest as DigestPartial from a
// forward-only stream, holding at most about two chunks of the tail.
// It also returns the stream length.
func DigestPartialStream(ctx context.Context, r io.Reader, chunk int64) (Digest, int64, error) {
	if chunk <= 0 {
		return Digest{}, 0, fmt.Errorf("partial chunk size must be positive, got %d", chunk)
	}
	r = ctxReader{ctx, r}

	h := sha256.New()
	headLen, err := io.CopyN(h, r, chunk)
	if err != nil && !errors.Is(err, io.EOF) {
		return Digest{}, 0, fmt.Errorf("failed to read content: %w", err)
	}
	if headLen < chunk {
		return sum(h), headLen, nil
	}

	bufPtr := readBuffers.Get().(*[]byte)
	defer readBuffers.Put(bufPtr)
	buf := *bufPtr

	var tail []byte
	var rest int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			rest += int64(n)
			tail = append(tail, buf[:n]...)
			if int64(len(tail)) > 2*chunk {
				keep := tail[int64(len(tail))-chunk:]
				tail = tail[:copy(tail, keep)]
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Digest{}, 0, fmt.Errorf("failed to read content: %w", err)
		}
	}

	if int64(len(tail)) > chunk {
		tail = tail[int64(len(tail))-chunk:]
	}
	h.Write(tail)
	return sum(h), headLen + rest, nil
}

// FileDigest hashes a local file, partially when partial is set
func FileDigest(ctx context.Context, fs storage.Backend, path string, partial bool, chunk int64) (Digest, error) {
	file, err := fs.Open(ctx, path)
	if err != nil {
		return Digest{}, err
	}
	defer file.Close()

	if !partial {
		return DigestWhole(ctx, file)
	}

	info, err := fs.Stat(ctx, path)
	if err != nil {
		return Digest{}, err
	}
	return DigestPartial(ctx, file, info.Size, chunk)
}

// SmartDigest hashes a local file partially or wholly depending on cfg
func SmartDigest(ctx context.Context, fs storage.Backend, path string, cfg *config.Config) (Digest, error) {
	return FileDigest(ctx, fs, path, cfg.Hashing.PreferPartial, cfg.Hashing.PartialChunkSize)
}

// RemotePartialDigest computes DigestPartial of a remote resource with two
// ranged requests. The total length always comes from the Content-Range of
// the head response; knownLength only lets the tail be requested alongside
// the head and is discarded when the server reports a different total.
func RemotePartialDigest(ctx context.Context, client *remote.Client, url string, chunk, knownLength int64) (Digest, error) {
	if chunk <= 0 {
		return Digest{}, fmt.Errorf("partial chunk size must be positive, got %d", chunk)
	}
	if knownLength == 0 {
		return sum(sha256.New()), nil
	}

	var headRng, tailRng *remote.Range
	var guess region

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		headRng, err = client.FetchRange(gctx, url, 0, chunk-1)
		return err
	})
	if knownLength > chunk {
		_, guess = partialRegions(knownLength, chunk)
		g.Go(func() (err error) {
			tailRng, err = fetchRegion(gctx, client, url, guess)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Digest{}, err
	}

	total := headRng.Total
	if total < 0 {
		switch {
		case int64(len(headRng.Data)) < chunk:
			total = int64(len(headRng.Data))
		case knownLength > 0:
			total = knownLength
		default:
			return Digest{}, fmt.Errorf("%w: total length not reported", remote.ErrRangeUnsupported)
		}
	}

	head, tail := partialRegions(total, chunk)
	if int64(len(headRng.Data)) != head.n {
		return Digest{}, fmt.Errorf("range 0-%d returned %d bytes, want %d", chunk-1, len(headRng.Data), head.n)
	}

	var tailData []byte
	if tail.n > 0 {
		if tailRng == nil || tail != guess {
			var err error
			if tailRng, err = fetchRegion(ctx, client, url, tail); err != nil {
				return Digest{}, err
			}
		}
		if tailRng.Total >= 0 && tailRng.Total != total {
			return Digest{}, &xerrors.Error{
				Kind:     xerrors.KindLengthMismatch,
				Remote:   url,
				Expected: strconv.FormatInt(total, 10),
				Actual:   strconv.FormatInt(tailRng.Total, 10),
				Detail:   "remote length changed between range requests",
			}
		}
		tailData = tailRng.Data
	}

	h := sha256.New()
	h.Write(headRng.Data)
	h.Write(tailData)
	return sum(h), nil
}

func fetchRegion(ctx context.Context, client *remote.Client, url string, reg region) (*remote.Range, error) {
	rng, err := client.FetchRange(ctx, url, reg.off, reg.off+reg.n-1)
	if err != nil {
		return nil, err
	}
	if int64(len(rng.Data)) != reg.n {
		return nil, fmt.Errorf("range %d-%d returned %d bytes, want %d", reg.off, reg.off+reg.n-1, len(rng.Data), reg.n)
	}
	return rng, nil
}

// RemoteStreamDigest streams the remote body into a digest. With partial set
// the digest samples the same regions DigestPartial would.
func RemoteStreamDigest(ctx context.Context, client *remote.Client, url string, partial bool, chunk int64) (Digest, error) {
	body, err := client.OpenStream(ctx, url)
	if err != nil {
		return Digest{}, err
	}
	defer body.Close()

	var d Digest
	if partial {
		d, _, err = DigestPartialStream(ctx, body, chunk)
	} else {
		d, err = DigestWhole(ctx, body)
	}
	if err != nil {
		return Digest{}, remoteReadError(url, err)
	}
	return d, nil
}
