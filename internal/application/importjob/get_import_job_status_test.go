package importjob_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobReader struct {
	job   *domain.ImportJob
	err   error
	block bool
	calls int
}

func (f *fakeJobReader) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.job, f.err
}

type lookupObservation struct {
	source string
	result string
}

type fakeLookupMetrics struct {
	mu   sync.Mutex
	seen []lookupObservation
}

func (f *fakeLookupMetrics) ObserveStatusLookup(source, result string, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, lookupObservation{source: source, result: result})
}

type countingClock struct {
	now   time.Time
	calls int
}

func (c *countingClock) Now() time.Time {
	c.calls++
	return c.now
}

func newStatusUseCase(reader domain.Reader, clock *countingClock, metrics *fakeLookupMetrics) app.GetImportJobStatus {
	return app.NewGetImportJobStatus(reader, app.GetImportJobStatusConfig{
		Source:  "import_jobs",
		Timeout: 50 * time.Millisecond,
		Clock:   clock.Now,
		Metrics: metrics,
	})
}

func TestGetImportJobStatusSuccess(t *testing.T) {
	t.Parallel()

	clock := &countingClock{now: projectionNow}
	metrics := &fakeLookupMetrics{}
	reader := &fakeJobReader{job: &domain.ImportJob{
		ID:            "job-1",
		Status:        domain.StatusProcessing,
		TotalRows:     10,
		ProcessedRows: 5,
		StartedAt:     timePtr(projectionNow.Add(-5 * time.Second)),
	}}

	out, err := newStatusUseCase(reader, clock, metrics).Execute(context.Background(), app.GetImportJobStatusInput{ID: " job-1 "})
	require.NoError(t, err)

	assert.Equal(t, "job-1", out.ID)
	assert.Equal(t, 50, out.Progress.Percentage)
	assert.Equal(t, 1.0, out.Performance.ProcessingRate)
	assert.Equal(t, 1, clock.calls)
	assert.Equal(t, []lookupObservation{{"import_jobs", "ok"}}, metrics.seen)
}

func TestGetImportJobStatusNotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		id        string
		reader    *fakeJobReader
		wantCalls int
	}{
		{"store reports not found", "job-1", &fakeJobReader{err: domain.ErrJobNotFound}, 1},
		{"wrapped not found", "job-1", &fakeJobReader{err: fmt.Errorf("lookup: %w", domain.ErrJobNotFound)}, 1},
		{"nil job without error", "job-1", &fakeJobReader{}, 1},
		{"empty id", "   ", &fakeJobReader{}, 0},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			clock := &countingClock{now: projectionNow}
			metrics := &fakeLookupMetrics{}

			_, err := newStatusUseCase(tc.reader, clock, metrics).Execute(context.Background(), app.GetImportJobStatusInput{ID: tc.id})

			assert.ErrorIs(t, err, app.ErrImportJobNotFound)
			assert.Equal(t, tc.wantCalls, tc.reader.calls)
			assert.Zero(t, clock.calls, "no calculation runs for unknown jobs")
			assert.Equal(t, []lookupObservation{{"import_jobs", "not_found"}}, metrics.seen)
		})
	}
}

func TestGetImportJobStatusTimeoutIsStorageUnavailable(t *testing.T) {
	t.Parallel()

	clock := &countingClock{now: projectionNow}
	metrics := &fakeLookupMetrics{}

	start := time.Now()
	_, err := newStatusUseCase(&fakeJobReader{block: true}, clock, metrics).Execute(context.Background(), app.GetImportJobStatusInput{ID: "job-1"})

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, app.ErrGetImportJobStatus)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, errors.Is(err, app.ErrImportJobNotFound))
	assert.Zero(t, clock.calls)
	assert.Equal(t, []lookupObservation{{"import_jobs", "error"}}, metrics.seen)
}

func TestGetImportJobStatusStoreErrors(t *testing.T) {
	t.Parallel()

	for _, storeErr := range []error{
		fmt.Errorf("get: %w", domain.ErrStorageUnavailable),
		fmt.Errorf("decode: %w", domain.ErrMalformedRecord),
	} {
		clock := &countingClock{now: projectionNow}
		_, err := newStatusUseCase(&fakeJobReader{err: storeErr}, clock, &fakeLookupMetrics{}).
			Execute(context.Background(), app.GetImportJobStatusInput{ID: "job-1"})

		assert.ErrorIs(t, err, app.ErrGetImportJobStatus)
		assert.ErrorIs(t, err, errors.Unwrap(storeErr))
	}
}

func TestGetImportJobStatusServesInconsistentRecordBestEffort(t *testing.T) {
	t.Parallel()

	clock := &countingClock{now: projectionNow}
	reader := &fakeJobReader{job: &domain.ImportJob{
		ID:            "job-1",
		Status:        domain.StatusProcessing,
		TotalRows:     10,
		ProcessedRows: 12,
	}}

	out, err := newStatusUseCase(reader, clock, &fakeLookupMetrics{}).Execute(context.Background(), app.GetImportJobStatusInput{ID: "job-1"})
	require.NoError(t, err)
	assert.Equal(t, 100, out.Progress.Percentage)
}
