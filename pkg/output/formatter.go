package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/filesage/pkg/batch"
	"github.com/sdejongh/filesage/pkg/models"
)

// Formatter defines the interface for result formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Report writes the result of a single comparison
	Report(w io.Writer, report *models.Report) error

	// Summary writes the result of a batch run
	Summary(w io.Writer, summary *batch.Summary) error

	// Name returns the formatter name
	Name() string
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use: human, json)", name)
	}
}
