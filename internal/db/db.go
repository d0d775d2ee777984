// Package db stores job history and the watcher's file index in sqlite.
package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/itsthejuice/File-Converter/internal/job"
)

// DB wraps the gorm connection.
type DB struct {
	conn *gorm.DB
}

// New opens (creating if needed) the sqlite database at path and migrates
// the schema.
func New(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite has a single writer.
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&FileIndex{}, &JobRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	sqlDB, err := db.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record stores a terminal job snapshot. Recording the same job again
// updates the row.
func (db *DB) Record(s job.Snapshot) error {
	opts, err := json.Marshal(s.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	rec := &JobRecord{
		JobID:      s.ID,
		SrcPath:    s.SrcPath,
		SrcMime:    s.SrcMime,
		DstMime:    s.DstMime,
		Status:     string(s.Status),
		Progress:   s.Progress,
		OutputPath: s.OutputPath,
		Options:    string(opts),
		LastLog:    s.LastLog(),
		DurationMs: s.Duration().Milliseconds(),
		FinishedAt: s.FinishedAt,
	}
	return db.conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// ListHistory returns the newest records first. A non-positive limit means 50.
func (db *DB) ListHistory(limit, offset int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []JobRecord
	err := db.conn.Order("finished_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

// GetJob looks a record up by job id. It returns nil when absent.
func (db *DB) GetJob(jobID string) (*JobRecord, error) {
	var rec JobRecord
	err := db.conn.Where("job_id = ?", jobID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpsertFileIndex inserts or updates the entry for file.FilePath.
func (db *DB) UpsertFileIndex(file *FileIndex) error {
	return db.conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_md5", "status", "plugin", "output_path", "updated_at"}),
	}).Create(file).Error
}

// GetFileIndex retrieves an entry by path. It returns nil when absent.
func (db *DB) GetFileIndex(path string) (*FileIndex, error) {
	var f FileIndex
	err := db.conn.Where("file_path = ?", path).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFiles lists index entries, newest first, optionally filtered by status.
func (db *DB) ListFiles(status string, limit, offset int) ([]FileIndex, error) {
	q := db.conn.Model(&FileIndex{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []FileIndex
	err := q.Order("updated_at DESC").Limit(limit).Offset(offset).Find(&out).Error
	return out, err
}

// GetStats counts index entries per status.
func (db *DB) GetStats() (*Stats, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	if err := db.conn.Model(&FileIndex{}).Select("status, count(*) as n").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	s := &Stats{}
	for _, r := range rows {
		s.TotalFiles += r.N
		switch r.Status {
		case StatusSuccess:
			s.SuccessCount = r.N
		case StatusFailed:
			s.FailedCount = r.N
		case StatusProcessing:
			s.ProcessingCount = r.N
		}
	}
	return s, nil
}

// DeleteFileIndex forgets path so the watcher converts it again.
func (db *DB) DeleteFileIndex(path string) error {
	return db.conn.Where("file_path = ?", path).Delete(&FileIndex{}).Error
}
