package importjob

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type GetImportJobStatusInput struct {
	ID string
}

type GetImportJobStatus interface {
	Execute(ctx context.Context, in GetImportJobStatusInput) (StatusProjection, error)
}

type StatusLookupMetrics interface {
	ObserveStatusLookup(source, result string, elapsed time.Duration)
}

type GetImportJobStatusConfig struct {
	// Source labels the store the lookups go to ("import_jobs", "batch_jobs").
	Source  string
	Timeout time.Duration
	Clock   func() time.Time
	Metrics StatusLookupMetrics
}

type getImportJobStatus struct {
	reader domain.Reader
	cfg    GetImportJobStatusConfig
}

// NewGetImportJobStatus serves status for whichever store reader is injected;
// native and legacy lookups differ only in that reader.
func NewGetImportJobStatus(reader domain.Reader, cfg GetImportJobStatusConfig) GetImportJobStatus {
	if cfg.Source == "" {
		cfg.Source = "import_jobs"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopStatusMetrics{}
	}
	return &getImportJobStatus{reader: reader, cfg: cfg}
}

func (uc *getImportJobStatus) Execute(ctx context.Context, in GetImportJobStatusInput) (StatusProjection, error) {
	start := time.Now()

	id := strings.TrimSpace(in.ID)
	if id == "" {
		uc.cfg.Metrics.ObserveStatusLookup(uc.cfg.Source, "not_found", time.Since(start))
		return StatusProjection{}, ErrImportJobNotFound
	}

	lookupCtx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	job, err := uc.reader.Get(lookupCtx, id)
	if err == nil && job == nil {
		err = domain.ErrJobNotFound
	}
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			uc.cfg.Metrics.ObserveStatusLookup(uc.cfg.Source, "not_found", time.Since(start))
			return StatusProjection{}, ErrImportJobNotFound
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		uc.cfg.Metrics.ObserveStatusLookup(uc.cfg.Source, "error", time.Since(start))
		return StatusProjection{}, fmt.Errorf("%w: %w", ErrGetImportJobStatus, err)
	}

	if err := job.Validate(); err != nil {
		log.Printf("import job %s (trace %s): serving best-effort status: %v", job.ID, job.TraceID, err)
	}

	out := Project(*job, uc.cfg.Clock())
	uc.cfg.Metrics.ObserveStatusLookup(uc.cfg.Source, "ok", time.Since(start))
	return out, nil
}

type nopStatusMetrics struct{}

func (nopStatusMetrics) ObserveStatusLookup(string, string, time.Duration) {}
