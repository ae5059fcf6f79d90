package output

import (
	"fmt"
	"os"

	"github.com/sdejongh/filesage/pkg/batch"
	"github.com/sdejongh/filesage/pkg/models"
)

// WriteReportFile writes report to path using formatter
func WriteReportFile(formatter Formatter, path string, report *models.Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := formatter.Report(file, report); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return file.Close()
}

// WriteSummaryFile writes a batch summary to path using formatter
func WriteSummaryFile(formatter Formatter, path string, summary *batch.Summary) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	if err := formatter.Summary(file, summary); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return file.Close()
}
