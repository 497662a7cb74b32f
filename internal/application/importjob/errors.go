package importjob

import "errors"

var (
	ErrInvalidImportSource    = errors.New("invalid import source")
	ErrInvalidImportOptions   = errors.New("invalid import options")
	ErrEnqueueImportJob       = errors.New("failed to enqueue import job")
	ErrImportJobNotFound      = errors.New("import job not found")
	ErrGetImportJobStatus     = errors.New("failed to get import job status")
	ErrImportJobNotCancelable = errors.New("import job is not cancelable")
	ErrCancelImportJob        = errors.New("failed to cancel import job")
)
