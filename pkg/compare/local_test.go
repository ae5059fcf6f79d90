package compare

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/sdejongh/filesage/pkg/models"
	"github.com/sdejongh/filesage/pkg/xerrors"
)

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		path string
		want FileKind
	}{
		{"notes.txt", KindText},
		{"DATA.CSV", KindText},
		{"a/b/config.json", KindText},
		{"feed.xml", KindText},
		{"index.html", KindText},
		{"README.md", KindText},
		{"photo.jpg", KindBinary},
		{"archive.tar.gz", KindBinary},
		{"page.htm", KindBinary},
		{"noext", KindBinary},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ClassifyPath(tt.path); got != tt.want {
				t.Errorf("ClassifyPath(%q) = %s, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func TestClassifyContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        FileKind
	}{
		{"text/plain; charset=utf-8", KindText},
		{"text/csv", KindText},
		{"application/json", KindText},
		{"application/ld+json", KindText},
		{"application/atom+xml", KindText},
		{"APPLICATION/XML", KindText},
		{"application/octet-stream", KindBinary},
		{"image/png", KindBinary},
		{"garbage;;", KindBinary},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := ClassifyContentType(tt.contentType); got != tt.want {
				t.Errorf("ClassifyContentType(%q) = %s, want %s", tt.contentType, got, tt.want)
			}
		})
	}
}

func TestCompareLocalIdentical(t *testing.T) {
	h := NewTestHelper(t)
	ctx := context.Background()
	binary := string([]byte{0, 1, 2, 0xff, 0xfe})

	tests := []struct {
		name    string
		a, b    string
		content string
		method  models.LocalMethod
		want    string
	}{
		{"Text", "/a.txt", "/b.txt", "line one\nline two\n", models.LocalAuto, "text"},
		{"Binary", "/a.bin", "/b.bin", binary, models.LocalAuto, "binary"},
		{"InvalidUTF8AsText", "/a.md", "/b.md", binary, models.LocalAuto, "text"},
		{"Digest", "/a.dat", "/b.dat", strings.Repeat("x", 200000), models.LocalDigest, "digest"},
		{"Empty", "/a.csv", "/b.csv", "", models.LocalAuto, "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.CreateFile(tt.a, tt.content)
			h.CreateFile(tt.b, tt.content)
			cfg := testConfig()
			cfg.LocalMethod = tt.method

			method, err := CompareLocal(ctx, h.fs, tt.a, tt.b, cfg)
			if err != nil {
				t.Fatalf("CompareLocal() error = %v", err)
			}
			if method != tt.want {
				t.Errorf("method = %s, want %s", method, tt.want)
			}
		})
	}
}

func TestCompareLocalSizeMismatchReadsNoContent(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("/a.txt", "short")
	h.CreateFile("/b.txt", "much longer")

	_, err := CompareLocal(context.Background(), h.fs, "/a.txt", "/b.txt", testConfig())
	if !xerrors.Is(err, xerrors.KindSizeMismatch) {
		t.Fatalf("error = %v, want size mismatch", err)
	}
	if h.fs.opens.Load() != 0 || h.fs.readFiles.Load() != 0 {
		t.Errorf("content was read: %d opens, %d whole reads", h.fs.opens.Load(), h.fs.readFiles.Load())
	}

	var xe *xerrors.Error
	errors.As(err, &xe)
	if xe.Expected != "5" || xe.Actual != "11" {
		t.Errorf("expected/actual = %s/%s, want 5/11", xe.Expected, xe.Actual)
	}
}

func TestCompareLocalContentMismatch(t *testing.T) {
	h := NewTestHelper(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		a, b    string
		method  models.LocalMethod
		variant string
		detail  string
	}{
		{"Text", "/x.txt", "/y.txt", models.LocalAuto, xerrors.VariantText, "line 2"},
		{"Binary", "/x.bin", "/y.bin", models.LocalAuto, xerrors.VariantBinary, "offset 7"},
		{"Digest", "/x.txt", "/y.txt", models.LocalDigest, xerrors.VariantDigest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.CreateFile(tt.a, "line 1\nline 2\n")
			h.CreateFile(tt.b, "line 1\nLine 2\n")
			cfg := testConfig()
			cfg.LocalMethod = tt.method

			_, err := CompareLocal(ctx, h.fs, tt.a, tt.b, cfg)
			var xe *xerrors.Error
			if !errors.As(err, &xe) || xe.Kind != xerrors.KindContentMismatch {
				t.Fatalf("error = %v, want content mismatch", err)
			}
			if xe.Variant != tt.variant {
				t.Errorf("variant = %s, want %s", xe.Variant, tt.variant)
			}
			if !strings.Contains(xe.Detail, tt.detail) {
				t.Errorf("detail = %q, want it to mention %q", xe.Detail, tt.detail)
			}
		})
	}
}

func TestCompareLocalMissingFile(t *testing.T) {
	h := NewTestHelper(t)
	h.CreateFile("/a.txt", "x")

	_, err := CompareLocal(context.Background(), h.fs, "/a.txt", "/missing.txt", testConfig())
	if err == nil {
		t.Fatal("CompareLocal() should fail for a missing file")
	}
	if xerrors.IsMismatch(err) {
		t.Errorf("missing file should not be reported as a mismatch: %v", err)
	}
}

func TestBinaryComparatorChunkBoundaries(t *testing.T) {
	h := NewTestHelper(t)
	content := strings.Repeat("abcdefgh", 100)

	for _, offset := range []int{0, 63, 64, 65, 799} {
		b := []byte(content)
		b[offset] = 'Z'
		h.CreateFile("/a.bin", content)
		h.CreateFile("/b.bin", string(b))

		err := NewBinaryComparator(h.fs, 64).Compare(context.Background(), "/a.bin", "/b.bin")
		var xe *xerrors.Error
		if !errors.As(err, &xe) {
			t.Fatalf("offset %d: error = %v, want content mismatch", offset, err)
		}
		want := "offset " + strconv.Itoa(offset)
		if !strings.HasSuffix(xe.Detail, want) {
			t.Errorf("offset %d: detail = %q", offset, xe.Detail)
		}
	}
}

func TestFirstDifferentLine(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a\nb\nc", "a\nb\nd", 3},
		{"a", "b", 1},
		{"a\nb", "a\nb\nc", 2},
	}
	for _, tt := range tests {
		if got := firstDifferentLine([]byte(tt.a), []byte(tt.b)); got != tt.want {
			t.Errorf("firstDifferentLine(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
