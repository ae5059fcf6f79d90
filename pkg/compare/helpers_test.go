package compare

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/sdejongh/filesage/pkg/config"
	"github.com/sdejongh/filesage/pkg/models"
	"github.com/sdejongh/filesage/pkg/remote"
	"github.com/sdejongh/filesage/pkg/retry"
	"github.com/sdejongh/filesage/pkg/storage"
)

// TestHelper provides an in-memory filesystem with I/O accounting
type TestHelper struct {
	t  *testing.T
	fs *countingBackend
}

// NewTestHelper creates a helper over a fresh in-memory filesystem
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	return &TestHelper{t: t, fs: &countingBackend{Local: storage.NewMemory()}}
}

// CreateFile writes content to path
func (h *TestHelper) CreateFile(path, content string) string {
	h.t.Helper()
	if err := util.WriteFile(h.fs.Filesystem(), path, []byte(content), 0644); err != nil {
		h.t.Fatalf("failed to create %s: %v", path, err)
	}
	return path
}

// TempEntries lists what is left in the artifact directory
func (h *TestHelper) TempEntries(dir string) []string {
	h.t.Helper()
	entries, err := h.fs.Filesystem().ReadDir(dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// testConfig returns a valid config with the given policies
func testConfig(policies ...models.Policy) *config.Config {
	cfg := config.Default()
	cfg.Policies = policies
	cfg.Network.Timeout = 2 * time.Second
	cfg.Network.MaxRetries = 0
	cfg.TempDir = "/tmp/filesage-test"
	return cfg
}

func testClient() *remote.Client {
	return remote.NewClient(remote.Options{Timeout: 2 * time.Second, Retry: retry.Policy{}})
}

// countingBackend counts content access on a storage backend
type countingBackend struct {
	*storage.Local
	opens     atomic.Int32
	readFiles atomic.Int32
	bytesRead atomic.Int64
}

func (b *countingBackend) Open(ctx context.Context, path string) (storage.File, error) {
	b.opens.Add(1)
	f, err := b.Local.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return &countingFile{File: f, n: &b.bytesRead}, nil
}

func (b *countingBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	b.readFiles.Add(1)
	return b.Local.ReadFile(ctx, path)
}

type countingFile struct {
	storage.File
	n *atomic.Int64
}

func (f *countingFile) Read(p []byte) (int, error) {
	n, err := f.File.Read(p)
	f.n.Add(int64(n))
	return n, err
}

func (f *countingFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.File.ReadAt(p, off)
	f.n.Add(int64(n))
	return n, err
}

// remoteFile is an httptest server for one resource with request accounting
type remoteFile struct {
	*httptest.Server

	mu      sync.Mutex
	content []byte
	header  http.Header
	// noHead answers HEAD with 405
	noHead bool
	// noRanges ignores Range headers
	noRanges bool

	heads    atomic.Int32
	gets     atomic.Int32
	ranges []string
	inm    []string
}

type remoteOption func(*remoteFile)

func withHeader(key, value string) remoteOption {
	return func(rf *remoteFile) { rf.header.Set(key, value) }
}

func withoutHead() remoteOption {
	return func(rf *remoteFile) { rf.noHead = true }
}

func withoutRanges() remoteOption {
	return func(rf *remoteFile) { rf.noRanges = true }
}

func newRemoteFile(t *testing.T, content string, opts ...remoteOption) *remoteFile {
	t.Helper()
	rf := &remoteFile{content: []byte(content), header: http.Header{}}
	for _, opt := range opts {
		opt(rf)
	}
	rf.Server = httptest.NewServer(http.HandlerFunc(rf.serve))
	t.Cleanup(rf.Close)
	return rf
}

func (rf *remoteFile) serve(w http.ResponseWriter, r *http.Request) {
	rf.mu.Lock()
	for k, v := range rf.header {
		w.Header()[k] = v
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" {
		rf.inm = append(rf.inm, inm)
	}
	if rg := r.Header.Get("Range"); rg != "" {
		rf.ranges = append(rf.ranges, rg)
	}
	content := rf.content
	rf.mu.Unlock()

	if r.Method == http.MethodHead {
		rf.heads.Add(1)
		if rf.noHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
	} else {
		rf.gets.Add(1)
	}

	if etag := w.Header().Get("ETag"); etag != "" && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if rf.noRanges {
		r.Header.Del("Range")
	}
	if w.Header().Get("Content-Length") != "" && r.Method == http.MethodHead {
		return
	}
	http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(content))
}

func (rf *remoteFile) Ranges() []string {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return append([]string(nil), rf.ranges...)
}

func (rf *remoteFile) IfNoneMatch() []string {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return append([]string(nil), rf.inm...)
}

// chunkedServer streams content without a Content-Length, flushing every
// chunk, and counts the bytes actually written before the client hung up
func chunkedServer(t *testing.T, content []byte, chunk int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var written atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for off := 0; off < len(content); off += chunk {
			end := min(off+chunk, len(content))
			n, err := w.Write(content[off:end])
			written.Add(int64(n))
			if err != nil {
				return
			}
			flusher.Flush()
		}
	}))
	t.Cleanup(server.Close)
	return server, &written
}

// staleLengthServer answers HEAD with a Content-Length that no longer matches
// the body served to GET requests.
func staleLengthServer(t *testing.T, declared int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(declared))
			w.Header().Set("Accept-Ranges", "bytes")
			return
		}
		http.ServeContent(w, r, "", time.Time{}, strings.NewReader(content))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// stalledServer declares length bytes, sends the first sent of content and
// then stops writing until the client goes away.
func stalledServer(t *testing.T, content string, sent int) *httptest.Server {
	t.Helper()
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Write([]byte(content[:sent]))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })
	return srv
}
