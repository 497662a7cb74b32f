package importjob

import "context"

// Reader loads a job record by its identifier. Implementations must return
// ErrJobNotFound for unknown ids and must never report a counter lower than
// one already observed for the same job.
type Reader interface {
	Get(ctx context.Context, id string) (*ImportJob, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, job NewJob) (string, error)
}

// Canceler moves a pending or processing job to canceled. It returns
// ErrInvalidTransition for jobs already in a terminal state.
type Canceler interface {
	Cancel(ctx context.Context, id string) error
}

// RowReader yields the cells of one source row per call and io.EOF after the
// last. The first row is the header.
type RowReader interface {
	Next() ([]string, error)
	Close() error
}
