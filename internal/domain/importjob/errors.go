package importjob

import "errors"

var (
	ErrJobNotFound        = errors.New("import job not found")
	ErrStorageUnavailable = errors.New("import job store unavailable")
	ErrMalformedRecord    = errors.New("malformed import job record")
	ErrInvalidTransition  = errors.New("invalid import job status transition")
	ErrLeaseLost          = errors.New("import job lease lost")
)
