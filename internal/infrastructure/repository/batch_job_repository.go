package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

const productImportBatchType = "product-import"

type batchJobContext struct {
	TraceID              string `json:"trace_id"`
	DryRun               bool   `json:"dry_run"`
	UpsertKey            string `json:"upsert_key"`
	VariantMergeStrategy string `json:"variant_merge_strategy"`
	ForcePrune           bool   `json:"force_prune"`
	ImageStrategy        string `json:"image_strategy"`
	MappingProfileID     string `json:"mapping_profile_id"`
}

type batchJobError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type batchJobResult struct {
	Count            int64             `json:"count"`
	AdvancementCount int64             `json:"advancement_count"`
	ValidCount       int64             `json:"valid_count"`
	InvalidCount     int64             `json:"invalid_count"`
	SkippedCount     int64             `json:"skipped_count"`
	Files            map[string]string `json:"files"`
	Errors           []batchJobError   `json:"errors"`
}

// BatchJobRepository reads product-import rows of the legacy batch_jobs table
// and adapts them to the import job record, keyed by job_id.
type BatchJobRepository struct {
	db *gorm.DB
}

func NewBatchJobRepository(db *gorm.DB) *BatchJobRepository {
	return &BatchJobRepository{db: db}
}

func (r *BatchJobRepository) Get(ctx context.Context, jobID string) (*domain.ImportJob, error) {
	var row models.BatchJob
	err := r.db.WithContext(ctx).
		Where("id = ? AND type = ?", jobID, productImportBatchType).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("get batch job %s: %w: %w", jobID, domain.ErrStorageUnavailable, err)
	}

	return toDomainBatchJob(row)
}

func toDomainBatchJob(row models.BatchJob) (*domain.ImportJob, error) {
	var jobCtx batchJobContext
	if len(row.Context) > 0 {
		if err := json.Unmarshal(row.Context, &jobCtx); err != nil {
			return nil, fmt.Errorf("%w: decode context of batch job %s: %v", domain.ErrMalformedRecord, row.ID, err)
		}
	}
	var result batchJobResult
	if len(row.Result) > 0 {
		if err := json.Unmarshal(row.Result, &result); err != nil {
			return nil, fmt.Errorf("%w: decode result of batch job %s: %v", domain.ErrMalformedRecord, row.ID, err)
		}
	}

	job := &domain.ImportJob{
		ID:            row.ID,
		TraceID:       jobCtx.TraceID,
		Status:        domain.BatchJobVocabulary.Translate(row.Status),
		TotalRows:     result.Count,
		ProcessedRows: result.AdvancementCount,
		ValidRows:     result.ValidCount,
		InvalidRows:   result.InvalidCount,
		SkippedRows:   result.SkippedCount,
		CreatedAt:     row.CreatedAt,
		StartedAt:     firstSet(row.ProcessingAt, row.ConfirmedAt, row.PreProcessedAt),
		CompletedAt:   firstSet(row.CompletedAt, row.FailedAt, row.CanceledAt),
		Options: domain.Options{
			DryRun:               jobCtx.DryRun,
			UpsertKey:            domain.UpsertKey(jobCtx.UpsertKey),
			VariantMergeStrategy: jobCtx.VariantMergeStrategy,
			ForcePrune:           jobCtx.ForcePrune,
			ImageStrategy:        jobCtx.ImageStrategy,
			MappingProfileID:     jobCtx.MappingProfileID,
		},
		Artifacts: domain.Artifacts{},
	}
	if job.TraceID == "" {
		job.TraceID = row.ID
	}
	if row.IdempotencyKey != nil {
		job.IdempotencyKey = *row.IdempotencyKey
	}
	if !row.UpdatedAt.IsZero() {
		updatedAt := row.UpdatedAt
		job.UpdatedAt = &updatedAt
	}

	for kind, ref := range result.Files {
		if k := domain.ArtifactKind(kind); k.Valid() {
			job.Artifacts[k] = ref
		}
	}

	if job.Status == domain.StatusFailed && len(result.Errors) > 0 {
		first := result.Errors[0]
		job.Error = &domain.JobError{Code: first.Code, Message: first.Message, Details: first.Details}
		if job.Error.Code == "" {
			job.Error.Code = "batch_job_failed"
		}
	}

	return job, nil
}

func firstSet(times ...*time.Time) *time.Time {
	for _, t := range times {
		if t != nil {
			return t
		}
	}
	return nil
}
