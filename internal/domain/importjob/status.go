package importjob

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCanceled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCanceled},
}

// CanTransition reports whether the job state machine allows from -> to.
// Nothing leaves a terminal state.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusVocabulary maps a source system's raw status values onto Status.
type StatusVocabulary map[string]Status

// Translate returns the mapped status. Unknown values pass through as-is so
// that the phase deriver reports them as unknown.
func (v StatusVocabulary) Translate(raw string) Status {
	if status, ok := v[raw]; ok {
		return status
	}
	return Status(raw)
}

var NativeVocabulary = StatusVocabulary{
	"pending":    StatusPending,
	"processing": StatusProcessing,
	"completed":  StatusCompleted,
	"failed":     StatusFailed,
	"canceled":   StatusCanceled,
}

// BatchJobVocabulary covers the legacy batch-job table, whose intermediate
// pre_processed and confirmed states are already past queueing.
var BatchJobVocabulary = StatusVocabulary{
	"created":       StatusPending,
	"pre_processed": StatusProcessing,
	"confirmed":     StatusProcessing,
	"processing":    StatusProcessing,
	"completed":     StatusCompleted,
	"failed":        StatusFailed,
	"canceled":      StatusCanceled,
}
