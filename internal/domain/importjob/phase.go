package importjob

type Phase string

const (
	PhaseQueued       Phase = "queued"
	PhaseInitializing Phase = "initializing"
	PhaseParsing      Phase = "parsing"
	PhaseValidating   Phase = "validating"
	PhaseImporting    Phase = "importing"
	PhaseFinalizing   Phase = "finalizing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
	PhaseCanceled     Phase = "canceled"
	PhaseUnknown      Phase = "unknown"
)

const (
	validatingFrom = 10
	importingFrom  = 50
	finalizingFrom = 90
)

// DerivePhase maps status and completion percentage to a user-facing phase.
func DerivePhase(status Status, percentage int) Phase {
	switch status {
	case StatusPending:
		return PhaseQueued
	case StatusProcessing:
		switch {
		case percentage <= 0:
			return PhaseInitializing
		case percentage < validatingFrom:
			return PhaseParsing
		case percentage < importingFrom:
			return PhaseValidating
		case percentage < finalizingFrom:
			return PhaseImporting
		default:
			return PhaseFinalizing
		}
	case StatusCompleted:
		return PhaseCompleted
	case StatusFailed:
		return PhaseFailed
	case StatusCanceled:
		return PhaseCanceled
	}
	return PhaseUnknown
}
