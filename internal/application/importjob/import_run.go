package importjob

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

const (
	rowStatusValid   = "valid"
	rowStatusInvalid = "invalid"
	rowStatusSkipped = "skipped"

	reasonBlankRow     = "blank row"
	reasonDuplicateKey = "duplicate upsert key"
)

var artifactFileNames = map[domain.ArtifactKind]string{
	domain.ArtifactValidationReport: "validation-report.json",
	domain.ArtifactErrorRows:        "error-rows.csv",
	domain.ArtifactResultSummary:    "result-summary.json",
	domain.ArtifactAnnotatedInput:   "annotated-input.csv",
	domain.ArtifactCheckpoint:       "checkpoint.json",
	domain.ArtifactDLQEntries:       "dlq-entries.jsonl",
}

var artifactContentTypes = map[domain.ArtifactKind]string{
	domain.ArtifactValidationReport: "application/json",
	domain.ArtifactErrorRows:        "text/csv",
	domain.ArtifactResultSummary:    "application/json",
	domain.ArtifactAnnotatedInput:   "text/csv",
	domain.ArtifactCheckpoint:       "application/json",
	domain.ArtifactDLQEntries:       "application/x-ndjson",
}

func artifactKey(jobID string, kind domain.ArtifactKind) string {
	return fmt.Sprintf("imports/%s/%s", jobID, artifactFileNames[kind])
}

type rowFailure struct {
	Row    int64  `json:"row"`
	Reason string `json:"reason"`
}

type dlqEntry struct {
	Row        int64    `json:"row"`
	Identifier string   `json:"identifier"`
	Reason     string   `json:"reason"`
	Cells      []string `json:"cells"`
}

// importRun accumulates one processing attempt of a job. Row numbers are file
// line numbers, so the header is row 1.
type importRun struct {
	job         domain.ImportJob
	maxFailures int
	startedAt   time.Time

	progress domain.Progress
	created  int64
	updated  int64
	pruned   int64
	lastRow  int64

	pruneSkipped string

	failures         []rowFailure
	failuresByReason map[string]int64
	dlq              []dlqEntry
	seen             map[string]int64

	errorRows    bytes.Buffer
	errorCSV     *csv.Writer
	annotated    *os.File
	annotatedCSV *csv.Writer
}

func newImportRun(job domain.ImportJob, header []string, maxFailures int) (*importRun, error) {
	annotated, err := os.CreateTemp("", "annotated-"+job.ID+"-*.csv")
	if err != nil {
		return nil, fmt.Errorf("create annotated input file: %w", err)
	}

	run := &importRun{
		job:              job,
		maxFailures:      maxFailures,
		startedAt:        time.Now(),
		failuresByReason: make(map[string]int64),
		seen:             make(map[string]int64),
		annotated:        annotated,
		annotatedCSV:     csv.NewWriter(annotated),
	}
	run.errorCSV = csv.NewWriter(&run.errorRows)

	if err := run.errorCSV.Write(append([]string{"row", "reason"}, header...)); err != nil {
		run.close()
		return nil, fmt.Errorf("write error rows header: %w", err)
	}
	if err := run.annotatedCSV.Write(append(append([]string{}, header...), "import_status", "import_reason")); err != nil {
		run.close()
		return nil, fmt.Errorf("write annotated header: %w", err)
	}
	return run, nil
}

func (r *importRun) close() {
	name := r.annotated.Name()
	_ = r.annotated.Close()
	_ = os.Remove(name)
}

func (r *importRun) annotate(cells []string, status, reason string) error {
	return r.annotatedCSV.Write(append(append([]string{}, cells...), status, reason))
}

func (r *importRun) recordValid(row int64, cells []string, identifier string) error {
	r.progress.ProcessedRows++
	r.progress.ValidRows++
	r.lastRow = row
	r.seen[identifier] = row
	return r.annotate(cells, rowStatusValid, "")
}

func (r *importRun) recordInvalid(row int64, cells []string, reason string) error {
	r.progress.ProcessedRows++
	r.progress.InvalidRows++
	r.lastRow = row
	r.failuresByReason[reason]++
	if len(r.failures) < r.maxFailures {
		r.failures = append(r.failures, rowFailure{Row: row, Reason: reason})
		if err := r.errorCSV.Write(append([]string{strconv.FormatInt(row, 10), reason}, cells...)); err != nil {
			return err
		}
	}
	return r.annotate(cells, rowStatusInvalid, reason)
}

func (r *importRun) recordSkipped(row int64, cells []string, reason string) error {
	r.progress.ProcessedRows++
	r.progress.SkippedRows++
	r.lastRow = row
	return r.annotate(cells, rowStatusSkipped, reason)
}

// recordDuplicate skips a row whose upsert key already appeared earlier in the
// file and sets it aside in the dead-letter list.
func (r *importRun) recordDuplicate(row int64, cells []string, identifier string) error {
	first := r.seen[identifier]
	reason := fmt.Sprintf("%s (first seen on row %d)", reasonDuplicateKey, first)
	if len(r.dlq) < r.maxFailures {
		r.dlq = append(r.dlq, dlqEntry{
			Row:        row,
			Identifier: identifier,
			Reason:     reason,
			Cells:      append([]string{}, cells...),
		})
	}
	return r.recordSkipped(row, cells, reason)
}

func (r *importRun) duplicate(identifier string) bool {
	_, ok := r.seen[identifier]
	return ok
}

func (r *importRun) checkpoint() ([]byte, error) {
	return json.Marshal(map[string]any{
		"jobId":         r.job.ID,
		"traceId":       r.job.TraceID,
		"attempt":       r.job.Attempts,
		"lastRow":       r.lastRow,
		"processedRows": r.progress.ProcessedRows,
		"validRows":     r.progress.ValidRows,
		"invalidRows":   r.progress.InvalidRows,
		"skippedRows":   r.progress.SkippedRows,
		"writtenAt":     time.Now().UTC(),
	})
}

func (r *importRun) validationReport(totalRows int64) ([]byte, error) {
	return json.Marshal(map[string]any{
		"jobId":            r.job.ID,
		"totalRows":        totalRows,
		"processedRows":    r.progress.ProcessedRows,
		"validRows":        r.progress.ValidRows,
		"invalidRows":      r.progress.InvalidRows,
		"skippedRows":      r.progress.SkippedRows,
		"failuresByReason": r.failuresByReason,
		"failures":         r.failures,
		"truncated":        r.progress.InvalidRows > int64(len(r.failures)),
	})
}

func (r *importRun) resultSummary() ([]byte, error) {
	summary := map[string]any{
		"jobId":         r.job.ID,
		"traceId":       r.job.TraceID,
		"dryRun":        r.job.Options.DryRun,
		"upsertKey":     r.job.Options.UpsertKey,
		"processedRows": r.progress.ProcessedRows,
		"validRows":     r.progress.ValidRows,
		"invalidRows":   r.progress.InvalidRows,
		"skippedRows":   r.progress.SkippedRows,
		"createdCount":  r.created,
		"updatedCount":  r.updated,
		"prunedCount":   r.pruned,
		"dlqCount":      len(r.dlq),
		"durationMs":    time.Since(r.startedAt).Milliseconds(),
	}
	if r.pruneSkipped != "" {
		summary["pruneSkipped"] = r.pruneSkipped
	}
	return json.Marshal(summary)
}

func (r *importRun) errorRowsCSV() (io.Reader, error) {
	r.errorCSV.Flush()
	if err := r.errorCSV.Error(); err != nil {
		return nil, err
	}
	return bytes.NewReader(r.errorRows.Bytes()), nil
}

func (r *importRun) annotatedInput() (io.Reader, error) {
	r.annotatedCSV.Flush()
	if err := r.annotatedCSV.Error(); err != nil {
		return nil, err
	}
	if _, err := r.annotated.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return r.annotated, nil
}

func (r *importRun) dlqEntries() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range r.dlq {
		if err := enc.Encode(entry); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
