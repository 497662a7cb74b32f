package importjob_test

import (
	"context"
	"errors"
	"testing"

	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type fakeEnqueuer struct {
	jobID string
	err   error
	got   *domain.NewJob
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, job domain.NewJob) (string, error) {
	f.got = &job
	if f.err != nil {
		return "", f.err
	}
	return f.jobID, nil
}

func TestStartCatalogImportSuccess(t *testing.T) {
	t.Parallel()

	repo := &fakeEnqueuer{jobID: "job-1"}
	uc := app.NewStartCatalogImport(repo, 4)

	out, err := uc.Execute(context.Background(), app.StartCatalogImportInput{
		SourcePath:     " uploads/Spring.XLSX ",
		TraceID:        "tr-1",
		IdempotencyKey: "idem-1",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out.JobID != "job-1" || out.Status != domain.StatusPending {
		t.Fatalf("unexpected output: %+v", out)
	}

	if repo.got == nil {
		t.Fatal("expected enqueue call")
	}
	if repo.got.SourcePath != "uploads/Spring.XLSX" {
		t.Fatalf("unexpected source path: %q", repo.got.SourcePath)
	}
	if repo.got.MaxAttempts != 4 {
		t.Fatalf("expected max attempts 4, got %d", repo.got.MaxAttempts)
	}
	opts := repo.got.Options
	if opts.UpsertKey != domain.UpsertBySKU || opts.VariantMergeStrategy != "merge" || opts.ImageStrategy != "keep" {
		t.Fatalf("expected defaulted options, got %+v", opts)
	}
}

func TestStartCatalogImportNormalizesOptions(t *testing.T) {
	t.Parallel()

	repo := &fakeEnqueuer{jobID: "job-1"}
	uc := app.NewStartCatalogImport(repo, 0)

	_, err := uc.Execute(context.Background(), app.StartCatalogImportInput{
		SourcePath: "catalog.csv",
		Options: domain.Options{
			UpsertKey:            domain.UpsertByHandle,
			VariantMergeStrategy: " Replace ",
			ImageStrategy:        "APPEND",
			MappingProfileID:     "Shopify",
			DryRun:               true,
		},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	opts := repo.got.Options
	if opts.VariantMergeStrategy != "replace" || opts.ImageStrategy != "append" || opts.MappingProfileID != "shopify" || !opts.DryRun {
		t.Fatalf("unexpected normalized options: %+v", opts)
	}
	if repo.got.MaxAttempts != 5 {
		t.Fatalf("expected default max attempts 5, got %d", repo.got.MaxAttempts)
	}
}

func TestStartCatalogImportValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		in      app.StartCatalogImportInput
		wantErr error
	}{
		{"empty source", app.StartCatalogImportInput{SourcePath: " "}, app.ErrInvalidImportSource},
		{"json source", app.StartCatalogImportInput{SourcePath: "users.json"}, app.ErrInvalidImportSource},
		{"unknown upsert key", app.StartCatalogImportInput{SourcePath: "a.csv", Options: domain.Options{UpsertKey: "barcode"}}, app.ErrInvalidImportOptions},
		{"unknown image strategy", app.StartCatalogImportInput{SourcePath: "a.csv", Options: domain.Options{ImageStrategy: "drop"}}, app.ErrInvalidImportOptions},
		{"unknown variant strategy", app.StartCatalogImportInput{SourcePath: "a.csv", Options: domain.Options{VariantMergeStrategy: "zip"}}, app.ErrInvalidImportOptions},
		{"unknown mapping profile", app.StartCatalogImportInput{SourcePath: "a.csv", Options: domain.Options{MappingProfileID: "magento"}}, app.ErrInvalidImportOptions},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			repo := &fakeEnqueuer{}

			_, err := app.NewStartCatalogImport(repo, 5).Execute(context.Background(), tc.in)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if repo.got != nil {
				t.Fatal("invalid submissions must not be enqueued")
			}
		})
	}
}

func TestStartCatalogImportEnqueueFailure(t *testing.T) {
	t.Parallel()

	_, err := app.NewStartCatalogImport(&fakeEnqueuer{err: errors.New("db down")}, 5).
		Execute(context.Background(), app.StartCatalogImportInput{SourcePath: "a.csv"})

	if !errors.Is(err, app.ErrEnqueueImportJob) {
		t.Fatalf("expected ErrEnqueueImportJob, got %v", err)
	}
}
