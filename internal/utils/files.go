package utils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// stableChecks bounds how many size samples WaitFileStable takes.
const stableChecks = 5

// MatchesExtension reports whether path has one of exts (".mov" form,
// lowercase). An empty list matches everything.
func MatchesExtension(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}

// IsPartial reports files that are still being written by another program or
// that we produced ourselves: dotfiles, temporary downloads and job reports.
func IsPartial(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".part", ".tmp", ".crdownload", ".download":
		return true
	}
	return strings.HasSuffix(base, "_job_report.json")
}

// WaitFileStable waits until two size samples taken delay apart agree, or
// gives up after a few samples and returns nil.
func WaitFileStable(ctx context.Context, path string, delay time.Duration) error {
	var lastSize int64 = -1
	for i := 0; i < stableChecks; i++ {
		fi, err := os.Stat(path)
		if err != nil {
			return err
		}
		sz := fi.Size()
		if lastSize == sz {
			return nil
		}
		lastSize = sz
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}
