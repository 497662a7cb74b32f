package models

import (
	"time"

	"gorm.io/datatypes"
)

// BatchJob is the legacy job table the storefront admin used before
// import_jobs existed. Its status vocabulary and counters differ; rows are
// only read.
type BatchJob struct {
	ID             string  `gorm:"type:text;primaryKey"`
	Type           string  `gorm:"type:text;not null"`
	Status         string  `gorm:"type:text;not null"`
	IdempotencyKey *string `gorm:"type:text"`
	Context        datatypes.JSON
	Result         datatypes.JSON
	PreProcessedAt *time.Time
	ConfirmedAt    *time.Time
	ProcessingAt   *time.Time
	CompletedAt    *time.Time
	FailedAt       *time.Time
	CanceledAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (BatchJob) TableName() string {
	return "batch_jobs"
}
