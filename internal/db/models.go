package db

import (
	"time"
)

// File index states.
const (
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// FileIndex remembers what the watcher did with a source file so unchanged
// files are not converted twice.
type FileIndex struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	FilePath   string    `gorm:"uniqueIndex;not null" json:"file_path"`
	FileMD5    string    `gorm:"index;not null" json:"file_md5"`
	Status     string    `gorm:"index;not null" json:"status"`
	Plugin     string    `json:"plugin"`
	OutputPath string    `json:"output_path"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (FileIndex) TableName() string { return "files_index" }

// JobRecord is one finished conversion.
type JobRecord struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"uniqueIndex;not null" json:"job_id"`
	SrcPath    string    `gorm:"not null" json:"src_path"`
	SrcMime    string    `json:"src_mime"`
	DstMime    string    `json:"dst_mime"`
	Status     string    `gorm:"index;not null" json:"status"`
	Progress   float64   `json:"progress"`
	OutputPath string    `json:"output_path"`
	Options    string    `json:"options"`
	LastLog    string    `json:"last_log"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `gorm:"index" json:"finished_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (JobRecord) TableName() string { return "jobs_history" }

// Stats summarises the file index.
type Stats struct {
	TotalFiles      int64 `json:"total_files"`
	SuccessCount    int64 `json:"success_count"`
	FailedCount     int64 `json:"failed_count"`
	ProcessingCount int64 `json:"processing_count"`
}
