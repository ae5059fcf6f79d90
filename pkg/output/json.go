package output

import (
	"encoding/json"
	"io"
	"time"

	"github.com/sdejongh/filesage/pkg/batch"
	"github.com/sdejongh/filesage/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct{}

// JSONReportData represents one comparison result
type JSONReportData struct {
	ID         string           `json:"id,omitempty"`
	Local      string           `json:"local"`
	Other      string           `json:"other"`
	Remote     bool             `json:"remote"`
	Method     string           `json:"method,omitempty"`
	Status     string           `json:"status"`
	ExitCode   int              `json:"exit_code"`
	Kind       string           `json:"kind,omitempty"`
	Error      string           `json:"error,omitempty"`
	RemoteInfo *JSONRemoteData  `json:"remote_info,omitempty"`
	Policies   []JSONPolicyData `json:"policies,omitempty"`
	StartTime  string           `json:"start_time"`
	Duration   string           `json:"duration"`
	DurationMs int64            `json:"duration_ms"`
}

// JSONRemoteData represents the metadata of the remote resource
type JSONRemoteData struct {
	Length      int64  `json:"length"`
	ETag        string `json:"etag,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// JSONPolicyData represents one evaluated policy
type JSONPolicyData struct {
	Policy     string `json:"policy"`
	Outcome    string `json:"outcome"`
	Detail     string `json:"detail,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// JSONSummaryData represents a batch run
type JSONSummaryData struct {
	Status     string           `json:"status"`
	ExitCode   int              `json:"exit_code"`
	Matched    int              `json:"matched"`
	Mismatched int              `json:"mismatched"`
	Errored    int              `json:"errored"`
	Duration   string           `json:"duration"`
	DurationMs int64            `json:"duration_ms"`
	Reports    []JSONReportData `json:"reports"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Report writes a single comparison result as JSON
func (f *JSONFormatter) Report(w io.Writer, report *models.Report) error {
	return encode(w, reportData(report))
}

// Summary writes a batch result as JSON
func (f *JSONFormatter) Summary(w io.Writer, summary *batch.Summary) error {
	data := JSONSummaryData{
		Status:     string(summary.Status),
		ExitCode:   summary.ExitCode(),
		Matched:    summary.Matched,
		Mismatched: summary.Mismatched,
		Errored:    summary.Errored,
		Duration:   summary.Duration.Round(time.Millisecond).String(),
		DurationMs: summary.Duration.Milliseconds(),
		Reports:    make([]JSONReportData, 0, len(summary.Reports)),
	}
	for _, r := range summary.Reports {
		data.Reports = append(data.Reports, reportData(r))
	}
	return encode(w, data)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func reportData(report *models.Report) JSONReportData {
	data := JSONReportData{
		ID:         report.ID,
		Local:      report.Local,
		Other:      report.Other,
		Remote:     report.Remote,
		Method:     report.Method,
		Status:     string(report.Status),
		ExitCode:   report.Status.ExitCode(),
		Kind:       report.Kind,
		Error:      report.Error,
		StartTime:  report.StartTime.Format(time.RFC3339),
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
	}
	if info := report.RemoteInfo; info != nil {
		data.RemoteInfo = &JSONRemoteData{Length: info.Length, ETag: info.ETag, ContentType: info.ContentType}
	}
	for _, p := range report.Policies {
		data.Policies = append(data.Policies, JSONPolicyData{
			Policy:     p.Policy.String(),
			Outcome:    string(p.Outcome),
			Detail:     p.Detail,
			Error:      p.Error,
			DurationMs: p.Duration.Milliseconds(),
		})
	}
	return data
}

func encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
