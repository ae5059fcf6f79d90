package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sdejongh/filesage/pkg/batch"
	"github.com/sdejongh/filesage/pkg/models"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct{}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{}
}

// Report writes a single comparison result
func (f *HumanFormatter) Report(w io.Writer, report *models.Report) error {
	fmt.Fprintf(w, "%s  %s %s %s\n", statusLabel(report.Status), report.Local, statusSymbol(report.Status), report.Other)

	if report.Method != "" {
		fmt.Fprintf(w, "  Method:    %s\n", report.Method)
	}
	if info := report.RemoteInfo; info != nil {
		fmt.Fprintf(w, "  Remote:    %s\n", describeRemote(info))
	}

	if len(report.Policies) > 0 {
		fmt.Fprintf(w, "  Policies:\n")
		for _, p := range report.Policies {
			fmt.Fprintf(w, "    %-22s %-12s %s\n", p.Policy.String(), p.Outcome, policyNote(p))
		}
	}

	if report.Error != "" {
		fmt.Fprintf(w, "  Reason:    %s\n", report.Error)
	}
	fmt.Fprintf(w, "  Duration:  %s\n", report.Duration.Round(time.Millisecond))

	return nil
}

// Summary writes one line per pair followed by the totals
func (f *HumanFormatter) Summary(w io.Writer, summary *batch.Summary) error {
	for _, r := range summary.Reports {
		fmt.Fprintf(w, "%-8s  %s %s %s", statusLabel(r.Status), r.Local, statusSymbol(r.Status), r.Other)
		if r.Kind != "" {
			fmt.Fprintf(w, "  (%s)", r.Kind)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Batch completed in %s\n", formatDuration(summary.Duration))
	fmt.Fprintf(w, "  Pairs:       %d\n", len(summary.Reports))
	fmt.Fprintf(w, "  Matched:     %d\n", summary.Matched)
	fmt.Fprintf(w, "  Mismatched:  %d\n", summary.Mismatched)
	fmt.Fprintf(w, "  Errored:     %d\n", summary.Errored)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", summary.Status)

	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func statusLabel(s models.Status) string {
	return strings.ToUpper(string(s))
}

func statusSymbol(s models.Status) string {
	switch s {
	case models.StatusMatch:
		return "=="
	case models.StatusMismatch:
		return "!="
	default:
		return "??"
	}
}

func describeRemote(info *models.RemoteInfo) string {
	parts := []string{}
	if info.Length >= 0 {
		parts = append(parts, formatBytes(info.Length))
	} else {
		parts = append(parts, "length unknown")
	}
	if info.ETag != "" {
		parts = append(parts, "etag "+info.ETag)
	}
	if info.ContentType != "" {
		parts = append(parts, info.ContentType)
	}
	return strings.Join(parts, ", ")
}

func policyNote(p models.PolicyResult) string {
	note := p.Detail
	if p.Error != "" {
		note = p.Error
	}
	return fmt.Sprintf("%s (%s)", note, p.Duration.Round(time.Millisecond))
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
