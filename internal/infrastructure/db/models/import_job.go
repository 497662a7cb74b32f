package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportJob struct {
	ID                string         `gorm:"type:uuid;primaryKey"`
	TraceID           string         `gorm:"type:text;not null;index"`
	IdempotencyKey    *string        `gorm:"type:text;index"`
	SourcePath        string         `gorm:"type:text;not null"`
	Status            string         `gorm:"type:text;not null;index"`
	TotalRows         int64          `gorm:"not null;default:0"`
	ProcessedRows     int64          `gorm:"not null;default:0"`
	ValidRows         int64          `gorm:"not null;default:0"`
	InvalidRows       int64          `gorm:"not null;default:0"`
	SkippedRows       int64          `gorm:"not null;default:0"`
	Attempts          int            `gorm:"not null;default:0"`
	MaxAttempts       int            `gorm:"not null;default:5"`
	Options           datatypes.JSON `gorm:"not null"`
	Artifacts         datatypes.JSON `gorm:"not null"`
	ErrorCode         *string        `gorm:"type:text"`
	ErrorMessage      *string        `gorm:"type:text"`
	ErrorDetails      datatypes.JSON
	LastRequeueReason *string `gorm:"type:text"`
	HeartbeatAt       *time.Time
	LeaseExpiresAt    *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (ImportJob) TableName() string {
	return "import_jobs"
}
