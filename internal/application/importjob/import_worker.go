package importjob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type RowReader = domain.RowReader

type RowSource interface {
	OpenRows(ctx context.Context, sourcePath string) (RowReader, error)
}

type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type ChunkResult = catalog.ImportChunkResult

type productChunkImporter interface {
	ImportChunk(ctx context.Context, jobID string, opts domain.Options, products []catalog.Product) (ChunkResult, error)
	PruneNotImportedBy(ctx context.Context, jobID string) (int64, error)
}

type importWorkerJobRepo interface {
	ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error)
	Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error
	SetTotalRows(ctx context.Context, jobID string, totalRows int64) error
	UpdateProgress(ctx context.Context, jobID string, progress domain.Progress) error
	AttachArtifact(ctx context.Context, jobID string, kind domain.ArtifactKind, ref string) error
	Complete(ctx context.Context, jobID string) error
	Requeue(ctx context.Context, jobID string, reason string) error
	Fail(ctx context.Context, jobID string, jobErr domain.JobError) error
}

type WorkerMetrics interface {
	AddRows(outcome string, n int64)
	ObserveJob(result string)
}

type ImportWorkerConfig struct {
	Workers           int
	ChunkSize         int
	PollInterval      time.Duration
	LeaseDuration     time.Duration
	HeartbeatInterval time.Duration
	// CheckpointEvery writes a checkpoint artifact every N flushed chunks.
	CheckpointEvery   int
	MaxStoredFailures int
	Metrics           WorkerMetrics
}

type ImportWorker struct {
	repo      importWorkerJobRepo
	source    RowSource
	importer  productChunkImporter
	artifacts ArtifactStore
	cfg       ImportWorkerConfig

	once sync.Once
}

func NewImportWorker(repo importWorkerJobRepo, source RowSource, importer productChunkImporter, artifacts ArtifactStore, cfg ImportWorkerConfig) *ImportWorker {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 60 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = cfg.LeaseDuration / 2
	}
	if cfg.CheckpointEvery <= 0 {
		cfg.CheckpointEvery = 10
	}
	if cfg.MaxStoredFailures <= 0 {
		cfg.MaxStoredFailures = 100
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopWorkerMetrics{}
	}

	return &ImportWorker{
		repo:      repo,
		source:    source,
		importer:  importer,
		artifacts: artifacts,
		cfg:       cfg,
	}
}

func (w *ImportWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		for i := 0; i < w.cfg.Workers; i++ {
			go w.workerLoop(ctx)
		}
	})
}

func (w *ImportWorker) workerLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.repo.ClaimNext(ctx, w.cfg.LeaseDuration)
		if err != nil {
			log.Printf("claim next import job failed: %v", err)
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if job == nil {
			if !sleepWithContext(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		if err := w.ProcessJob(ctx, *job); err != nil {
			log.Printf("process import job %s (trace %s) failed: %v", job.ID, job.TraceID, err)
		}
	}
}

// permanentError marks failures that a retry cannot fix, such as a file
// without the required columns.
type permanentError struct {
	code string
	err  error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func (w *ImportWorker) ProcessJob(ctx context.Context, job domain.ImportJob) error {
	totalRows, err := w.countRows(ctx, job.SourcePath)
	if err != nil {
		return w.onProcessingError(ctx, job, err)
	}
	if err := w.repo.SetTotalRows(ctx, job.ID, totalRows); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("set total rows: %w", err))
	}

	rows, err := w.source.OpenRows(ctx, job.SourcePath)
	if err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("open import source: %w", err))
	}
	defer rows.Close()

	header, err := rows.Next()
	if err != nil {
		return w.onProcessingError(ctx, job, &permanentError{code: "empty_source", err: fmt.Errorf("read header: %w", err)})
	}

	upsertKey := string(job.Options.UpsertKey)
	if upsertKey == "" {
		upsertKey = string(domain.UpsertBySKU)
	}
	mapper, err := newRowMapper(header, job.Options.MappingProfileID, upsertKey)
	if err != nil {
		return w.onProcessingError(ctx, job, &permanentError{code: "invalid_header", err: err})
	}

	run, err := newImportRun(job, header, w.cfg.MaxStoredFailures)
	if err != nil {
		return w.onProcessingError(ctx, job, err)
	}
	defer run.close()

	ticker := time.NewTicker(w.cfg.HeartbeatInterval)
	defer ticker.Stop()

	chunk := make([]catalog.Product, 0, w.cfg.ChunkSize)
	var sinceFlush, chunksFlushed int

	flush := func() error {
		if len(chunk) > 0 && !job.Options.DryRun {
			result, importErr := w.importer.ImportChunk(ctx, job.ID, job.Options, chunk)
			if importErr != nil {
				return fmt.Errorf("import chunk: %w", importErr)
			}
			run.created += result.CreatedCount
			run.updated += result.UpdatedCount
		}
		chunk = chunk[:0]
		sinceFlush = 0

		if err := w.repo.UpdateProgress(ctx, job.ID, run.progress); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		chunksFlushed++
		if chunksFlushed%w.cfg.CheckpointEvery == 0 {
			body, err := run.checkpoint()
			if err != nil {
				return fmt.Errorf("encode checkpoint: %w", err)
			}
			if err := w.putArtifact(ctx, job.ID, domain.ArtifactCheckpoint, bytes.NewReader(body)); err != nil {
				return err
			}
		}
		return nil
	}

	row := int64(1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
				return w.onProcessingError(ctx, job, fmt.Errorf("heartbeat: %w", err))
			}
		default:
		}

		cells, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return w.onProcessingError(ctx, job, fmt.Errorf("read row %d: %w", row+1, err))
		}
		row++

		if err := w.classifyRow(run, mapper, &chunk, row, cells); err != nil {
			return w.onProcessingError(ctx, job, fmt.Errorf("record row %d: %w", row, err))
		}

		sinceFlush++
		if sinceFlush >= w.cfg.ChunkSize {
			if err := flush(); err != nil {
				return w.onProcessingError(ctx, job, fmt.Errorf("flush chunk: %w", err))
			}
			if err := w.repo.Heartbeat(ctx, job.ID, w.cfg.LeaseDuration); err != nil {
				return w.onProcessingError(ctx, job, fmt.Errorf("heartbeat after flush: %w", err))
			}
		}
	}

	if err := flush(); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("flush last chunk: %w", err))
	}

	switch {
	case !job.Options.ForcePrune || job.Options.DryRun:
	case run.progress.ValidRows == 0:
		run.pruneSkipped = "no valid rows imported"
		log.Printf("import job %s: force prune skipped, no valid rows", job.ID)
	default:
		pruned, err := w.importer.PruneNotImportedBy(ctx, job.ID)
		if err != nil {
			return w.onProcessingError(ctx, job, fmt.Errorf("prune catalog: %w", err))
		}
		run.pruned = pruned
	}

	if err := w.writeFinalArtifacts(ctx, run, totalRows); err != nil {
		return w.onProcessingError(ctx, job, err)
	}

	if err := w.repo.Complete(ctx, job.ID); err != nil {
		return w.onProcessingError(ctx, job, fmt.Errorf("complete job: %w", err))
	}

	w.cfg.Metrics.AddRows(rowStatusValid, run.progress.ValidRows)
	w.cfg.Metrics.AddRows(rowStatusInvalid, run.progress.InvalidRows)
	w.cfg.Metrics.AddRows(rowStatusSkipped, run.progress.SkippedRows)
	w.cfg.Metrics.ObserveJob(string(domain.StatusCompleted))
	return nil
}

func (w *ImportWorker) classifyRow(run *importRun, mapper *rowMapper, chunk *[]catalog.Product, row int64, cells []string) error {
	if blankRow(cells) {
		return run.recordSkipped(row, cells, reasonBlankRow)
	}

	product, err := mapper.toProduct(cells)
	if err != nil {
		return run.recordInvalid(row, cells, err.Error())
	}

	identifier := product.Identifier(mapper.upsertKey)
	if run.duplicate(identifier) {
		return run.recordDuplicate(row, cells, identifier)
	}

	*chunk = append(*chunk, product)
	return run.recordValid(row, cells, identifier)
}

// countRows returns the number of data rows, header excluded.
func (w *ImportWorker) countRows(ctx context.Context, sourcePath string) (int64, error) {
	rows, err := w.source.OpenRows(ctx, sourcePath)
	if err != nil {
		return 0, fmt.Errorf("open import source: %w", err)
	}
	defer rows.Close()

	var n int64
	for {
		if _, err := rows.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, fmt.Errorf("count rows: %w", err)
		}
		n++
	}
	return max(n-1, 0), nil
}

func (w *ImportWorker) writeFinalArtifacts(ctx context.Context, run *importRun, totalRows int64) error {
	report, err := run.validationReport(totalRows)
	if err != nil {
		return fmt.Errorf("encode validation report: %w", err)
	}
	errorRows, err := run.errorRowsCSV()
	if err != nil {
		return fmt.Errorf("encode error rows: %w", err)
	}
	annotated, err := run.annotatedInput()
	if err != nil {
		return fmt.Errorf("encode annotated input: %w", err)
	}
	dlq, err := run.dlqEntries()
	if err != nil {
		return fmt.Errorf("encode dlq entries: %w", err)
	}
	summary, err := run.resultSummary()
	if err != nil {
		return fmt.Errorf("encode result summary: %w", err)
	}

	outputs := []struct {
		kind domain.ArtifactKind
		body io.Reader
	}{
		{domain.ArtifactValidationReport, bytes.NewReader(report)},
		{domain.ArtifactErrorRows, errorRows},
		{domain.ArtifactAnnotatedInput, annotated},
		{domain.ArtifactDLQEntries, bytes.NewReader(dlq)},
		{domain.ArtifactResultSummary, bytes.NewReader(summary)},
	}
	for _, out := range outputs {
		if err := w.putArtifact(ctx, run.job.ID, out.kind, out.body); err != nil {
			return err
		}
	}
	return nil
}

func (w *ImportWorker) putArtifact(ctx context.Context, jobID string, kind domain.ArtifactKind, body io.Reader) error {
	ref, err := w.artifacts.Put(ctx, artifactKey(jobID, kind), body, artifactContentTypes[kind])
	if err != nil {
		return fmt.Errorf("store %s artifact: %w", kind, err)
	}
	if err := w.repo.AttachArtifact(ctx, jobID, kind, ref); err != nil {
		return fmt.Errorf("attach %s artifact: %w", kind, err)
	}
	return nil
}

func (w *ImportWorker) onProcessingError(ctx context.Context, job domain.ImportJob, err error) error {
	if errors.Is(err, domain.ErrLeaseLost) {
		log.Printf("import job %s: lease lost, stopping: %v", job.ID, err)
		w.cfg.Metrics.ObserveJob("abandoned")
		return err
	}

	reason := truncateReason(err.Error())
	var permanent *permanentError
	if !errors.As(err, &permanent) && job.Attempts < job.MaxAttempts {
		if requeueErr := w.repo.Requeue(ctx, job.ID, reason); requeueErr != nil {
			return fmt.Errorf("%v; requeue failed: %w", err, requeueErr)
		}
		w.cfg.Metrics.ObserveJob("requeued")
		return err
	}

	code := "import_failed"
	if permanent != nil {
		code = permanent.code
	}
	if failErr := w.repo.Fail(ctx, job.ID, domain.JobError{
		Code:    code,
		Message: reason,
		Details: map[string]any{"attempts": job.Attempts},
	}); failErr != nil {
		return fmt.Errorf("%v; fail update failed: %w", err, failErr)
	}
	w.cfg.Metrics.ObserveJob(string(domain.StatusFailed))
	return err
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func truncateReason(reason string) string {
	const maxLen = 1000
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxLen {
		return reason
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(reason[cut]) {
		cut--
	}
	return reason[:cut]
}

type nopWorkerMetrics struct{}

func (nopWorkerMetrics) AddRows(string, int64) {}
func (nopWorkerMetrics) ObserveJob(string)     {}
