package output

import (
	"io"
	"os"
	"path"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/filesage/pkg/remote"
)

const (
	knownTemplate   = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }}`
	unknownTemplate = `{{string . "prefix"}}{{counters . }} {{speed . }} {{etime . }}`
)

// getRefreshRate returns the bar refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences
func getRefreshRate() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// IsTerminal reports whether w is an interactive terminal
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// terminalWidth returns the width of w, or 0 when it cannot be detected
func terminalWidth(w io.Writer) int {
	if file, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 0
}

// Progress renders one progress bar per remote body read
type Progress struct {
	writer io.Writer
	width  int

	mu     sync.Mutex
	active int
}

// NewProgress creates a progress renderer writing to w
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	return &Progress{writer: w, width: terminalWidth(w)}
}

// Track implements remote.ProgressFunc
func (p *Progress) Track(url string, total int64) remote.Tracker {
	p.mu.Lock()
	p.active++
	p.mu.Unlock()

	bar := pb.New64(max(total, 0))
	if total > 0 {
		bar.SetTemplateString(knownTemplate)
	} else {
		bar.SetTemplateString(unknownTemplate)
	}
	bar.SetWriter(p.writer)
	bar.SetRefreshRate(getRefreshRate())
	bar.Set(pb.Bytes, true)
	bar.Set("prefix", path.Base(url)+" ")
	if p.width > 0 {
		bar.SetMaxWidth(p.width)
	}
	bar.Start()

	return &barTracker{bar: bar, progress: p}
}

// Active returns the number of bars still running
func (p *Progress) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

type barTracker struct {
	bar      *pb.ProgressBar
	progress *Progress
}

func (t *barTracker) Add(n int64) {
	t.bar.Add64(n)
}

func (t *barTracker) Done() {
	t.bar.Finish()
	t.progress.mu.Lock()
	t.progress.active--
	t.progress.mu.Unlock()
}
