// package formatter provides functions to export run history data to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/desertthunder/lrx/internal/models"
	"github.com/desertthunder/lrx/internal/shared"
)

// ExportToCSV converts run outcomes to CSV format with columns: Path, Status, Error
func ExportToCSV(outcomes []models.OutcomeRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Path", "Status", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, outcome := range outcomes {
		record := []string{
			outcome.Path,
			outcome.Status,
			outcome.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a run to Markdown format with a summary header and outcome list
func ExportToMarkdown(summary models.RunSummary, outcomes []models.OutcomeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Run %s\n\n", summary.ID))

	buf.WriteString(fmt.Sprintf("**Root**: %s\n", summary.Root))
	buf.WriteString(fmt.Sprintf("**Files**: %d\n", summary.FilesSeen))
	buf.WriteString(fmt.Sprintf("**Found**: %d\n", summary.Found))
	buf.WriteString(fmt.Sprintf("**Missing**: %d\n", summary.Missing))
	buf.WriteString(fmt.Sprintf("**Duration**: %s\n\n", shared.FormatDuration(runSeconds(summary))))

	buf.WriteString("## Outcomes\n\n")
	for i, outcome := range outcomes {
		errPart := ""
		if outcome.Error != "" {
			errPart = fmt.Sprintf(" (%s)", outcome.Error)
		}
		buf.WriteString(fmt.Sprintf("%d. [%s] %s%s\n", i+1, outcome.Status, outcome.Path, errPart))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a run to plain text format
func ExportToText(summary models.RunSummary, outcomes []models.OutcomeRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Run: %s\n", summary.ID))
	buf.WriteString(fmt.Sprintf("Root: %s\n", summary.Root))
	buf.WriteString(fmt.Sprintf("Files: %d (found %d, missing %d, cached %d, existing %d, errored %d)\n\n",
		summary.FilesSeen, summary.Found, summary.Missing, summary.Cached, summary.Existing, summary.Errored))

	for i, outcome := range outcomes {
		buf.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, outcome.Status, outcome.Path))
	}

	return buf.Bytes(), nil
}

// ToSummaryJSON generates a JSON representation of a run summary (without outcomes)
func ToSummaryJSON(summary models.RunSummary) ([]byte, error) {
	return shared.MarshalJSON(summary, true)
}

// runSeconds is the wall-clock length of a run in whole seconds.
func runSeconds(summary models.RunSummary) int {
	if summary.StartedAt.IsZero() || summary.CompletedAt.IsZero() {
		return 0
	}

	return int(summary.CompletedAt.Sub(summary.StartedAt).Seconds())
}

// RunExportResult contains the paths of files created by WriteRunExport
type RunExportResult struct {
	OutcomesFile string
	SummaryFile  string
}

// WriteRunExport exports a run to CSV format with an accompanying summary JSON file.
//
// Defaults to the run ID as the base filename & creates {base}_outcomes.csv and {base}_run.json
func WriteRunExport(summary models.RunSummary, outcomes []models.OutcomeRecord, baseFilepath string) (*RunExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = summary.ID
	}

	csvData, err := ExportToCSV(outcomes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	outcomesFile := baseFilepath + "_outcomes.csv"
	if err := os.WriteFile(outcomesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	summaryJSON, err := ToSummaryJSON(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to generate summary JSON: %w", err)
	}

	summaryFile := baseFilepath + "_run.json"
	if err := os.WriteFile(summaryFile, summaryJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write summary file: %w", err)
	}

	return &RunExportResult{
		OutcomesFile: outcomesFile,
		SummaryFile:  summaryFile,
	}, nil
}

// WriteMarkdownExport exports a run report to a Markdown file.
//
// Defaults to {id}_run.md as the filename.
func WriteMarkdownExport(summary models.RunSummary, outcomes []models.OutcomeRecord, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_run.md", summary.ID)
	}

	mdData, err := ExportToMarkdown(summary, outcomes)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	if err := os.WriteFile(filepath, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return filepath, nil
}

// WriteTextExport exports a run report to plain text format.
//
// Defaults to {id}_run.txt as the filename.
func WriteTextExport(summary models.RunSummary, outcomes []models.OutcomeRecord, filepath string) (string, error) {
	if filepath == "" {
		filepath = fmt.Sprintf("%s_run.txt", summary.ID)
	}

	textData, err := ExportToText(summary, outcomes)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(filepath, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return filepath, nil
}
