package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/filesage/pkg/xerrors"
)

// serveBytes serves content with Range support through http.ServeContent
func serveBytes(content []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
	}
}

func TestFetchRange(t *testing.T) {
	server := httptest.NewServer(serveBytes([]byte("abcdefghij")))
	defer server.Close()

	client := newTestClient(0)

	rng, err := client.FetchRange(context.Background(), server.URL, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(rng.Data))
	assert.Equal(t, int64(10), rng.Total)

	rng, err = client.FetchRange(context.Background(), server.URL, 7, 9)
	require.NoError(t, err)
	assert.Equal(t, "hij", string(rng.Data))
	assert.Equal(t, int64(7), rng.Start)
}

func TestFetchRangeUnsupported(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		fmt.Fprint(w, "abcdefghij")
	}))
	defer server.Close()

	_, err := newTestClient(2).FetchRange(context.Background(), server.URL, 0, 2)
	assert.ErrorIs(t, err, ErrRangeUnsupported)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "a full response is not retried")
}

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		in    string
		start int64
		total int64
		ok    bool
	}{
		{"bytes 0-2/10", 0, 10, true},
		{"bytes 7-9/10", 7, 10, true},
		{"bytes 0-2/*", 0, -1, true},
		{"0-2/10", 0, 0, false},
		{"bytes x-2/10", 0, 0, false},
		{"bytes 0-2", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			start, total, err := parseContentRange(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.total, total)
		})
	}
}

func TestOpenStream(t *testing.T) {
	content := bytes.Repeat([]byte("0123456789"), 1000)
	server := httptest.NewServer(serveBytes(content))
	defer server.Close()

	tracker := &countingTracker{}
	client := newTestClient(0).WithProgress(func(url string, total int64) Tracker {
		tracker.total = total
		return tracker
	})

	body, err := client.OpenStream(context.Background(), server.URL)
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())

	assert.Equal(t, content, got)
	assert.Equal(t, int64(len(content)), body.Length)
	assert.Equal(t, int64(len(content)), tracker.total)
	assert.Equal(t, int64(len(content)), tracker.n.Load())
	assert.True(t, tracker.done)
}

func TestOpenStreamNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := newTestClient(1).OpenStream(context.Background(), server.URL)
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.KindRemoteUnavailable))
}

func TestDownloadResetsBetweenAttempts(t *testing.T) {
	content := []byte("complete body")
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			// Declare more than is sent so the first attempt is truncated
			w.Header().Set("Content-Length", strconv.Itoa(len(content)+10))
			w.Write(content[:4])
			return
		}
		w.Write(content)
	}))
	defer server.Close()

	dst := &bufferResetter{}
	n, err := newTestClient(1).Download(context.Background(), server.URL, dst)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), n)
	assert.Equal(t, string(content), dst.String())
	assert.Equal(t, 2, dst.resets)
}

func TestDownloadCancelled(t *testing.T) {
	server := httptest.NewServer(serveBytes([]byte("data")))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(2).Download(ctx, server.URL, &bufferResetter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDownloadStalledBody(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "16")
		w.Write([]byte("0123456"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Options{Timeout: 300 * time.Millisecond})
	dst := &bufferResetter{}

	start := time.Now()
	_, err := client.Download(context.Background(), server.URL, dst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIdleTimeout), "error = %v", err)
	assert.False(t, errors.Is(err, context.Canceled))
	assert.Equal(t, xerrors.KindRemoteUnavailable, xerrors.KindOf(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIdleBodyKeepsSlowProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4")
		for i := 0; i < 4; i++ {
			w.Write([]byte{'a' + byte(i)})
			w.(http.Flusher).Flush()
			time.Sleep(150 * time.Millisecond)
		}
	}))
	defer server.Close()

	client := NewClient(Options{Timeout: 400 * time.Millisecond})
	body, err := client.OpenStream(context.Background(), server.URL)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(data))
}

type countingTracker struct {
	n     atomic.Int64
	total int64
	done  bool
}

func (c *countingTracker) Add(n int64) { c.n.Add(n) }
func (c *countingTracker) Done()       { c.done = true }

type bufferResetter struct {
	mu sync.Mutex
	strings.Builder
	resets int
}

func (b *bufferResetter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Builder.Write(p)
}

func (b *bufferResetter) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Builder.Reset()
	b.resets++
	return nil
}
