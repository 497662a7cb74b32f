package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	app "github.com/mohammadpnp/catalog-import/internal/application/importjob"
	"github.com/mohammadpnp/catalog-import/internal/config"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/artifact"
	infrafile "github.com/mohammadpnp/catalog-import/internal/infrastructure/file"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/metrics"
	"github.com/mohammadpnp/catalog-import/internal/infrastructure/repository"
	"gorm.io/gorm"
)

// NewArtifactStore returns the artifact backend selected by ARTIFACT_BACKEND.
func NewArtifactStore(ctx context.Context, cfg config.Config) (app.ArtifactStore, error) {
	switch cfg.ArtifactBackend {
	case config.ArtifactBackendFS:
		store, err := artifact.NewFSStore(cfg.ArtifactDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.ArtifactBackendS3:
		store, err := artifact.NewS3Store(ctx, artifact.S3Config{
			Bucket:          cfg.ArtifactS3Bucket,
			Prefix:          cfg.ArtifactS3Prefix,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.ArtifactS3Endpoint,
			PresignTTL:      cfg.ArtifactPresignTTL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifact backend %q", cfg.ArtifactBackend)
	}
}

func NewImportWorker(db *gorm.DB, pool *pgxpool.Pool, artifacts app.ArtifactStore, cfg config.Config, importMetrics *metrics.ImportMetrics) *app.ImportWorker {
	return app.NewImportWorker(
		repository.NewImportJobRepository(db),
		infrafile.NewLocalSource(cfg.ImportBaseDir),
		repository.NewProductBulkImportRepository(pool),
		artifacts,
		app.ImportWorkerConfig{
			Workers:           cfg.ImportWorkers,
			ChunkSize:         cfg.ImportChunkSize,
			PollInterval:      500 * time.Millisecond,
			LeaseDuration:     cfg.ImportJobLease,
			CheckpointEvery:   cfg.ImportCheckpointEvery,
			MaxStoredFailures: cfg.ImportMaxStoredFailures,
			Metrics:           importMetrics,
		},
	)
}
