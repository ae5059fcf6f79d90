package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// fallbackDrainLimit bounds how much of a GET fallback body is read before closing
const fallbackDrainLimit = 64 * 1024

// Metadata describes a remote resource without its body
type Metadata struct {
	URL string
	// Length is the declared Content-Length, -1 if unknown
	Length      int64
	ETag        string
	ContentType string
	// NotModified is set when a conditional request returned 304
	NotModified  bool
	AcceptRanges bool
	StatusCode   int
}

// FetchMetadata issues a HEAD request, falling back once to GET when the
// server rejects HEAD. header is added to the request, typically for
// If-None-Match. Errors that survive every retry are RemoteUnavailable.
func (c *Client) FetchMetadata(ctx context.Context, url string, header http.Header) (*Metadata, error) {
	md, err := withRetry(ctx, c, url, func(ctx context.Context) (*Metadata, error) {
		md, err := c.fetchMetadata(ctx, http.MethodHead, url, header)
		var se *StatusError
		if errors.As(err, &se) && rejectsHead(se.StatusCode) {
			return c.fetchMetadata(ctx, http.MethodGet, url, header)
		}
		return md, err
	})
	if err != nil {
		return nil, unavailable(url, err)
	}
	return md, nil
}

func rejectsHead(code int) bool {
	return code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented
}

func (c *Client) fetchMetadata(ctx context.Context, method, url string, header http.Header) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, url, header)
	if err != nil {
		return nil, err
	}
	if method == http.MethodGet {
		// a compressed reply would hide the length of the stored bytes
		req.Header.Set("Accept-Encoding", "identity")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if method == http.MethodGet {
		io.Copy(io.Discard, io.LimitReader(resp.Body, fallbackDrainLimit))
	}

	md := &Metadata{
		URL:          url,
		Length:       -1,
		ETag:         resp.Header.Get("ETag"),
		ContentType:  resp.Header.Get("Content-Type"),
		AcceptRanges: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
		StatusCode:   resp.StatusCode,
	}

	switch {
	case resp.StatusCode == http.StatusNotModified:
		md.NotModified = true
		return md, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{URL: url, Method: method, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	md.Length = declaredLength(resp)
	return md, nil
}

// declaredLength reads Content-Length, preferring the raw header since HEAD
// responses carry no body
func declaredLength(resp *http.Response) int64 {
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	if resp.ContentLength >= 0 {
		return resp.ContentLength
	}
	return -1
}

// NormalizeETag strips the weak prefix and surrounding quotes
func NormalizeETag(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}

// QuoteETag returns tag as a strong entity tag suitable for If-None-Match
func QuoteETag(tag string) string {
	tag = strings.TrimSpace(tag)
	if strings.HasPrefix(tag, `"`) || strings.HasPrefix(tag, "W/") || tag == "*" {
		return tag
	}
	return `"` + tag + `"`
}
