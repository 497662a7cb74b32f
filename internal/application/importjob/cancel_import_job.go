package importjob

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type CancelImportJobInput struct {
	ID string
}

type CancelImportJobOutput struct {
	JobID  string        `json:"job_id"`
	Status domain.Status `json:"status"`
}

type CancelImportJob interface {
	Execute(ctx context.Context, in CancelImportJobInput) (CancelImportJobOutput, error)
}

type cancelImportJob struct {
	repo domain.Canceler
}

func NewCancelImportJob(repo domain.Canceler) CancelImportJob {
	return &cancelImportJob{repo: repo}
}

func (uc *cancelImportJob) Execute(ctx context.Context, in CancelImportJobInput) (CancelImportJobOutput, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		return CancelImportJobOutput{}, ErrImportJobNotFound
	}

	if err := uc.repo.Cancel(ctx, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrJobNotFound):
			return CancelImportJobOutput{}, ErrImportJobNotFound
		case errors.Is(err, domain.ErrInvalidTransition):
			return CancelImportJobOutput{}, ErrImportJobNotCancelable
		}
		return CancelImportJobOutput{}, fmt.Errorf("%w: %v", ErrCancelImportJob, err)
	}

	return CancelImportJobOutput{JobID: id, Status: domain.StatusCanceled}, nil
}
