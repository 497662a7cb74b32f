package importjob

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

var (
	variantMergeStrategies = []string{"merge", "replace"}
	imageStrategies        = []string{"keep", "replace", "append"}
)

type StartCatalogImportInput struct {
	SourcePath     string
	TraceID        string
	IdempotencyKey string
	Options        domain.Options
}

type StartCatalogImportOutput struct {
	JobID  string        `json:"job_id"`
	Status domain.Status `json:"status"`
}

type StartCatalogImport interface {
	Execute(ctx context.Context, in StartCatalogImportInput) (StartCatalogImportOutput, error)
}

type startCatalogImport struct {
	importJobRepo domain.Enqueuer
	maxAttempts   int
}

func NewStartCatalogImport(importJobRepo domain.Enqueuer, maxAttempts int) StartCatalogImport {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &startCatalogImport{importJobRepo: importJobRepo, maxAttempts: maxAttempts}
}

func (uc *startCatalogImport) Execute(ctx context.Context, in StartCatalogImportInput) (StartCatalogImportOutput, error) {
	sourcePath := strings.TrimSpace(in.SourcePath)
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if sourcePath == "" || (ext != ".csv" && ext != ".xlsx") {
		return StartCatalogImportOutput{}, ErrInvalidImportSource
	}

	opts, err := normalizeOptions(in.Options)
	if err != nil {
		return StartCatalogImportOutput{}, err
	}

	jobID, err := uc.importJobRepo.Enqueue(ctx, domain.NewJob{
		SourcePath:     sourcePath,
		TraceID:        strings.TrimSpace(in.TraceID),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
		Options:        opts,
		MaxAttempts:    uc.maxAttempts,
	})
	if err != nil {
		return StartCatalogImportOutput{}, fmt.Errorf("%w: %v", ErrEnqueueImportJob, err)
	}

	return StartCatalogImportOutput{
		JobID:  jobID,
		Status: domain.StatusPending,
	}, nil
}

func normalizeOptions(opts domain.Options) (domain.Options, error) {
	switch opts.UpsertKey {
	case "":
		opts.UpsertKey = domain.UpsertBySKU
	case domain.UpsertBySKU, domain.UpsertByHandle:
	default:
		return domain.Options{}, fmt.Errorf("%w: unsupported upsert key %q", ErrInvalidImportOptions, opts.UpsertKey)
	}

	var err error
	if opts.VariantMergeStrategy, err = oneOf("variant merge strategy", opts.VariantMergeStrategy, variantMergeStrategies); err != nil {
		return domain.Options{}, err
	}
	if opts.ImageStrategy, err = oneOf("image strategy", opts.ImageStrategy, imageStrategies); err != nil {
		return domain.Options{}, err
	}
	opts.MappingProfileID = strings.ToLower(strings.TrimSpace(opts.MappingProfileID))
	if !KnownMappingProfile(opts.MappingProfileID) {
		return domain.Options{}, fmt.Errorf("%w: unknown mapping profile %q", ErrInvalidImportOptions, opts.MappingProfileID)
	}

	return opts, nil
}

// oneOf returns value, or the first allowed value when value is empty.
func oneOf(name, value string, allowed []string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return allowed[0], nil
	}
	for _, candidate := range allowed {
		if value == candidate {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported %s %q", ErrInvalidImportOptions, name, value)
}
