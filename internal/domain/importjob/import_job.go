package importjob

import (
	"fmt"
	"time"
)

type ArtifactKind string

const (
	ArtifactValidationReport ArtifactKind = "validationReport"
	ArtifactErrorRows        ArtifactKind = "errorRows"
	ArtifactResultSummary    ArtifactKind = "resultSummary"
	ArtifactAnnotatedInput   ArtifactKind = "annotatedInput"
	ArtifactCheckpoint       ArtifactKind = "checkpoint"
	ArtifactDLQEntries       ArtifactKind = "dlqEntries"
)

var artifactKinds = map[ArtifactKind]struct{}{
	ArtifactValidationReport: {},
	ArtifactErrorRows:        {},
	ArtifactResultSummary:    {},
	ArtifactAnnotatedInput:   {},
	ArtifactCheckpoint:       {},
	ArtifactDLQEntries:       {},
}

func (k ArtifactKind) Valid() bool {
	_, ok := artifactKinds[k]
	return ok
}

// Artifacts maps an artifact kind to a retrieval reference (URL or storage key).
type Artifacts map[ArtifactKind]string

type UpsertKey string

const (
	UpsertBySKU    UpsertKey = "sku"
	UpsertByHandle UpsertKey = "handle"
)

// Options are captured at submission and never change afterwards.
type Options struct {
	DryRun               bool      `json:"dryRun"`
	UpsertKey            UpsertKey `json:"upsertKey"`
	VariantMergeStrategy string    `json:"variantMergeStrategy"`
	ForcePrune           bool      `json:"forcePrune"`
	ImageStrategy        string    `json:"imageStrategy"`
	MappingProfileID     string    `json:"mappingProfileId"`
}

type JobError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ImportJob struct {
	ID             string
	TraceID        string
	IdempotencyKey string
	SourcePath     string
	Status         Status

	TotalRows     int64
	ProcessedRows int64
	ValidRows     int64
	InvalidRows   int64
	SkippedRows   int64

	Attempts    int
	MaxAttempts int

	CreatedAt   time.Time
	StartedAt   *time.Time
	UpdatedAt   *time.Time
	CompletedAt *time.Time

	Options   Options
	Artifacts Artifacts
	Error     *JobError
}

// Progress is the counter snapshot the worker writes after each chunk.
type Progress struct {
	ProcessedRows int64
	ValidRows     int64
	InvalidRows   int64
	SkippedRows   int64
}

// Validate reports the first violated record invariant, wrapped in
// ErrMalformedRecord. A total of zero means "not yet known".
func (j ImportJob) Validate() error {
	counters := []struct {
		name  string
		value int64
	}{
		{"totalRows", j.TotalRows},
		{"processedRows", j.ProcessedRows},
		{"validRows", j.ValidRows},
		{"invalidRows", j.InvalidRows},
		{"skippedRows", j.SkippedRows},
	}
	for _, c := range counters {
		if c.value < 0 {
			return fmt.Errorf("%w: %s is negative (%d)", ErrMalformedRecord, c.name, c.value)
		}
	}
	if j.TotalRows > 0 && j.ProcessedRows > j.TotalRows {
		return fmt.Errorf("%w: processedRows %d exceeds totalRows %d", ErrMalformedRecord, j.ProcessedRows, j.TotalRows)
	}
	if j.ValidRows+j.InvalidRows+j.SkippedRows > j.ProcessedRows {
		return fmt.Errorf("%w: row outcomes exceed processedRows %d", ErrMalformedRecord, j.ProcessedRows)
	}
	if j.Error != nil && j.Status != StatusFailed {
		return fmt.Errorf("%w: error set on %s job", ErrMalformedRecord, j.Status)
	}
	return nil
}

// Sanitized returns a copy with negative counters clamped to zero.
func (j ImportJob) Sanitized() ImportJob {
	j.TotalRows = max(j.TotalRows, 0)
	j.ProcessedRows = max(j.ProcessedRows, 0)
	j.ValidRows = max(j.ValidRows, 0)
	j.InvalidRows = max(j.InvalidRows, 0)
	j.SkippedRows = max(j.SkippedRows, 0)
	return j
}

// NewJob is what the submission path hands to the store; the store assigns
// the id and defaults TraceID to it.
type NewJob struct {
	SourcePath     string
	TraceID        string
	IdempotencyKey string
	Options        Options
	MaxAttempts    int
}
