package engine

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/itsthejuice/File-Converter/internal/job"
)

// Report is the sidecar written next to a finished output.
type Report struct {
	JobID      string      `json:"job_id"`
	SrcPath    string      `json:"src_path"`
	SrcMime    string      `json:"src_mime"`
	DstMime    string      `json:"dst_mime"`
	OutputPath string      `json:"output_path"`
	Status     job.Status  `json:"status"`
	Plugin     string      `json:"plugin,omitempty"`
	Options    job.Options `json:"options"`
	FinishedAt time.Time   `json:"finished_at"`
}

// ReportPath is <dir>/<stem>_job_report.json for outputPath.
func ReportPath(outputPath string) string {
	base := filepath.Base(outputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(outputPath), stem+"_job_report.json")
}

// writeReport stores r atomically through a temporary file.
func writeReport(r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	path := ReportPath(r.OutputPath)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
