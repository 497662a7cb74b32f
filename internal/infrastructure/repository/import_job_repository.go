package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ImportJobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImportJobRepository(db *gorm.DB) *ImportJobRepository {
	return &ImportJobRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of the repository that stamps rows with now.
func (r *ImportJobRepository) WithClock(now func() time.Time) *ImportJobRepository {
	return &ImportJobRepository{db: r.db, now: now}
}

func (r *ImportJobRepository) Enqueue(ctx context.Context, job domain.NewJob) (string, error) {
	options, err := json.Marshal(job.Options)
	if err != nil {
		return "", fmt.Errorf("encode import options: %w", err)
	}

	id := uuid.NewString()
	traceID := job.TraceID
	if traceID == "" {
		traceID = id
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	row := models.ImportJob{
		ID:          id,
		TraceID:     traceID,
		SourcePath:  job.SourcePath,
		Status:      string(domain.StatusPending),
		MaxAttempts: maxAttempts,
		Options:     datatypes.JSON(options),
		Artifacts:   datatypes.JSON("{}"),
		CreatedAt:   r.now(),
		UpdatedAt:   r.now(),
	}
	if job.IdempotencyKey != "" {
		key := job.IdempotencyKey
		row.IdempotencyKey = &key
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("create import job: %w", err)
	}

	return row.ID, nil
}

func (r *ImportJobRepository) Get(ctx context.Context, id string) (*domain.ImportJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrJobNotFound
	}

	var row models.ImportJob
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get import job %s: %w: %w", id, domain.ErrStorageUnavailable, err)
	}

	return toDomainImportJob(row)
}

// ClaimNext leases the oldest claimable job: pending ones, and processing ones
// whose lease expired after a requeue or a crashed worker. Jobs that expired
// with no attempts left are failed first.
func (r *ImportJobRepository) ClaimNext(ctx context.Context, leaseDuration time.Duration) (*domain.ImportJob, error) {
	var claimed *domain.ImportJob

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := r.now()

		if err := tx.Model(&models.ImportJob{}).
			Where("status = ? AND lease_expires_at < ? AND attempts >= max_attempts", string(domain.StatusProcessing), now).
			Updates(map[string]any{
				"status":           string(domain.StatusFailed),
				"error_code":       "lease_expired",
				"error_message":    "lease expired with no attempts left",
				"lease_expires_at": nil,
				"completed_at":     now,
				"updated_at":       now,
			}).Error; err != nil {
			return fmt.Errorf("fail exhausted import jobs: %w", err)
		}

		var row models.ImportJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? OR (status = ? AND (lease_expires_at IS NULL OR lease_expires_at < ?))",
				string(domain.StatusPending), string(domain.StatusProcessing), now).
			Order("created_at").
			First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("select claimable import job: %w", err)
		}

		res := tx.Model(&models.ImportJob{}).
			Where("id = ? AND status = ?", row.ID, row.Status).
			Updates(map[string]any{
				"status":           string(domain.StatusProcessing),
				"attempts":         gorm.Expr("attempts + 1"),
				"heartbeat_at":     now,
				"lease_expires_at": now.Add(leaseDuration),
				"started_at":       gorm.Expr("COALESCE(started_at, ?)", now),
				"updated_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("claim import job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}

		if err := tx.First(&row, "id = ?", row.ID).Error; err != nil {
			return fmt.Errorf("reload claimed import job: %w", err)
		}
		job, err := toDomainImportJob(row)
		if err != nil {
			return err
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *ImportJobRepository) Heartbeat(ctx context.Context, jobID string, leaseDuration time.Duration) error {
	now := r.now()
	return r.updateProcessing(ctx, jobID, "heartbeat", map[string]any{
		"heartbeat_at":     now,
		"lease_expires_at": now.Add(leaseDuration),
		"updated_at":       now,
	})
}

func (r *ImportJobRepository) SetTotalRows(ctx context.Context, jobID string, totalRows int64) error {
	return r.updateProcessing(ctx, jobID, "set total rows", map[string]any{
		"total_rows": monotonic("total_rows", totalRows),
		"updated_at": r.now(),
	})
}

// UpdateProgress never lowers a stored counter, so readers observe
// non-decreasing progress even when a retried attempt starts over.
func (r *ImportJobRepository) UpdateProgress(ctx context.Context, jobID string, progress domain.Progress) error {
	return r.updateProcessing(ctx, jobID, "update progress", map[string]any{
		"processed_rows": monotonic("processed_rows", progress.ProcessedRows),
		"valid_rows":     monotonic("valid_rows", progress.ValidRows),
		"invalid_rows":   monotonic("invalid_rows", progress.InvalidRows),
		"skipped_rows":   monotonic("skipped_rows", progress.SkippedRows),
		"updated_at":     r.now(),
	})
}

// AttachArtifact merges one artifact reference into the job. References are
// replaced per kind but never removed.
func (r *ImportJobRepository) AttachArtifact(ctx context.Context, jobID string, kind domain.ArtifactKind, ref string) error {
	if !kind.Valid() {
		return fmt.Errorf("attach artifact: unknown kind %q", kind)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ImportJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "artifacts").
			First(&row, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("load artifacts: %w", err)
		}

		artifacts := domain.Artifacts{}
		if len(row.Artifacts) > 0 {
			if err := json.Unmarshal(row.Artifacts, &artifacts); err != nil {
				return fmt.Errorf("%w: decode artifacts: %v", domain.ErrMalformedRecord, err)
			}
		}
		artifacts[kind] = ref

		encoded, err := json.Marshal(artifacts)
		if err != nil {
			return fmt.Errorf("encode artifacts: %w", err)
		}
		if err := tx.Model(&models.ImportJob{}).Where("id = ?", jobID).Updates(map[string]any{
			"artifacts":  datatypes.JSON(encoded),
			"updated_at": r.now(),
		}).Error; err != nil {
			return fmt.Errorf("save artifacts: %w", err)
		}
		return nil
	})
}

func (r *ImportJobRepository) Complete(ctx context.Context, jobID string) error {
	now := r.now()
	return r.updateProcessing(ctx, jobID, "complete", map[string]any{
		"status":           string(domain.StatusCompleted),
		"lease_expires_at": nil,
		"completed_at":     now,
		"updated_at":       now,
	})
}

// Requeue releases the lease so another worker can pick the job up. The job
// stays in processing: the status machine never moves backwards.
func (r *ImportJobRepository) Requeue(ctx context.Context, jobID string, reason string) error {
	now := r.now()
	return r.updateProcessing(ctx, jobID, "requeue", map[string]any{
		"last_requeue_reason": reason,
		"lease_expires_at":    now,
		"updated_at":          now,
	})
}

func (r *ImportJobRepository) Fail(ctx context.Context, jobID string, jobErr domain.JobError) error {
	details, err := json.Marshal(jobErr.Details)
	if err != nil {
		return fmt.Errorf("encode error details: %w", err)
	}
	now := r.now()
	return r.updateProcessing(ctx, jobID, "fail", map[string]any{
		"status":           string(domain.StatusFailed),
		"error_code":       jobErr.Code,
		"error_message":    jobErr.Message,
		"error_details":    datatypes.JSON(details),
		"lease_expires_at": nil,
		"completed_at":     now,
		"updated_at":       now,
	})
}

func (r *ImportJobRepository) Cancel(ctx context.Context, jobID string) error {
	if _, err := uuid.Parse(jobID); err != nil {
		return domain.ErrJobNotFound
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ImportJob
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "status").
			First(&row, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrJobNotFound
		}
		if err != nil {
			return fmt.Errorf("load import job: %w", err)
		}

		if !domain.CanTransition(domain.Status(row.Status), domain.StatusCanceled) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, row.Status, domain.StatusCanceled)
		}

		now := r.now()
		res := tx.Model(&models.ImportJob{}).
			Where("id = ? AND status = ?", jobID, row.Status).
			Updates(map[string]any{
				"status":           string(domain.StatusCanceled),
				"lease_expires_at": nil,
				"completed_at":     now,
				"updated_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("cancel import job: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: status changed concurrently", domain.ErrInvalidTransition)
		}
		return nil
	})
}

// updateProcessing applies values to a job the caller still holds. Zero
// affected rows means the job left processing (canceled or reclaimed).
func (r *ImportJobRepository) updateProcessing(ctx context.Context, jobID, op string, values map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.ImportJob{}).
		Where("id = ? AND status = ?", jobID, string(domain.StatusProcessing)).
		Updates(values)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, domain.ErrLeaseLost)
	}
	return nil
}

func monotonic(column string, value int64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("CASE WHEN %s > ? THEN %s ELSE ? END", column, column), value, value)
}

func toDomainImportJob(row models.ImportJob) (*domain.ImportJob, error) {
	job := &domain.ImportJob{
		ID:            row.ID,
		TraceID:       row.TraceID,
		SourcePath:    row.SourcePath,
		Status:        domain.NativeVocabulary.Translate(row.Status),
		TotalRows:     row.TotalRows,
		ProcessedRows: row.ProcessedRows,
		ValidRows:     row.ValidRows,
		InvalidRows:   row.InvalidRows,
		SkippedRows:   row.SkippedRows,
		Attempts:      row.Attempts,
		MaxAttempts:   row.MaxAttempts,
		CreatedAt:     row.CreatedAt,
		StartedAt:     row.StartedAt,
		CompletedAt:   row.CompletedAt,
		Artifacts:     domain.Artifacts{},
	}
	if row.IdempotencyKey != nil {
		job.IdempotencyKey = *row.IdempotencyKey
	}
	if !row.UpdatedAt.IsZero() {
		updatedAt := row.UpdatedAt
		job.UpdatedAt = &updatedAt
	}

	if len(row.Options) > 0 {
		if err := json.Unmarshal(row.Options, &job.Options); err != nil {
			return nil, fmt.Errorf("%w: decode options of %s: %v", domain.ErrMalformedRecord, row.ID, err)
		}
	}
	if len(row.Artifacts) > 0 {
		if err := json.Unmarshal(row.Artifacts, &job.Artifacts); err != nil {
			return nil, fmt.Errorf("%w: decode artifacts of %s: %v", domain.ErrMalformedRecord, row.ID, err)
		}
	}

	if row.ErrorCode != nil && job.Status == domain.StatusFailed {
		job.Error = &domain.JobError{Code: *row.ErrorCode}
		if row.ErrorMessage != nil {
			job.Error.Message = *row.ErrorMessage
		}
		if len(row.ErrorDetails) > 0 && string(row.ErrorDetails) != "null" {
			if err := json.Unmarshal(row.ErrorDetails, &job.Error.Details); err != nil {
				return nil, fmt.Errorf("%w: decode error details of %s: %v", domain.ErrMalformedRecord, row.ID, err)
			}
		}
	}

	return job, nil
}
