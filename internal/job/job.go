package job

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle position of a job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

var (
	ErrTerminal          = errors.New("job already finished")
	ErrInvalidTransition = errors.New("invalid job transition")
)

// Job is one conversion request. All mutation goes through its methods,
// observers read Snapshots.
type Job struct {
	mu sync.RWMutex

	id         string
	srcPath    string
	srcMime    string
	dstMime    string
	options    Options
	status     Status
	progress   float64
	logs       []string
	outputPath string

	createdAt  time.Time
	startedAt  time.Time
	finishedAt time.Time
}

// New creates a queued job. srcMime may be empty, in which case it is
// detected when the job runs.
func New(srcPath, srcMime, dstMime string, opts Options) *Job {
	if opts == nil {
		opts = Options{}
	}
	return &Job{
		id:        uuid.NewString(),
		srcPath:   srcPath,
		srcMime:   srcMime,
		dstMime:   dstMime,
		options:   opts.Clone(),
		status:    StatusQueued,
		createdAt: time.Now(),
	}
}

func (j *Job) ID() string         { return j.id }
func (j *Job) SourcePath() string { return j.srcPath }
func (j *Job) DestMIME() string   { return j.dstMime }

func (j *Job) SourceMIME() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.srcMime
}

// SetSourceMIME records the detected source type.
func (j *Job) SetSourceMIME(m string) {
	j.mu.Lock()
	j.srcMime = m
	j.mu.Unlock()
}

// Options returns a copy of the job options.
func (j *Job) Options() Options {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.options.Clone()
}

func (j *Job) Status() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status
}

func (j *Job) Progress() float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// Start moves a queued job to running.
func (j *Job) Start() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrTerminal
	}
	if j.status != StatusQueued {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, StatusRunning)
	}
	j.status = StatusRunning
	j.startedAt = time.Now()
	return nil
}

// SetProgress stores p clamped to [0, 1].
func (j *Job) SetProgress(p float64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrTerminal
	}
	if j.status != StatusRunning {
		return fmt.Errorf("%w: progress while %s", ErrInvalidTransition, j.status)
	}
	j.progress = clamp(p)
	return nil
}

// Log appends an entry. Logging stays possible after the job finished so
// late diagnostics are not lost.
func (j *Job) Log(line string) {
	j.mu.Lock()
	j.logs = append(j.logs, line)
	j.mu.Unlock()
}

// Finish marks the job done with the produced output.
func (j *Job) Finish(outputPath string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrTerminal
	}
	if j.status != StatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.status, StatusDone)
	}
	j.status = StatusDone
	j.progress = 1.0
	j.outputPath = outputPath
	j.finishedAt = time.Now()
	return nil
}

// Fail marks the job as errored and records cause in the log. Progress keeps
// its last value.
func (j *Job) Fail(cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return ErrTerminal
	}
	j.status = StatusError
	if cause != nil {
		j.logs = append(j.logs, cause.Error())
	}
	j.finishedAt = time.Now()
	return nil
}

// Snapshot is an immutable copy of a job's state.
type Snapshot struct {
	ID         string    `json:"id"`
	SrcPath    string    `json:"src_path"`
	SrcMime    string    `json:"src_mime"`
	DstMime    string    `json:"dst_mime"`
	Options    Options   `json:"options"`
	Status     Status    `json:"status"`
	Progress   float64   `json:"progress"`
	Logs       []string  `json:"logs"`
	OutputPath string    `json:"output_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Snapshot copies the current state.
func (j *Job) Snapshot() Snapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()
	logs := make([]string, len(j.logs))
	copy(logs, j.logs)
	return Snapshot{
		ID:         j.id,
		SrcPath:    j.srcPath,
		SrcMime:    j.srcMime,
		DstMime:    j.dstMime,
		Options:    j.options.Clone(),
		Status:     j.status,
		Progress:   j.progress,
		Logs:       logs,
		OutputPath: j.outputPath,
		CreatedAt:  j.createdAt,
		StartedAt:  j.startedAt,
		FinishedAt: j.finishedAt,
	}
}

// Duration is the wall time between start and finish, zero while unfinished.
func (s Snapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// LastLog returns the most recent log entry, or "".
func (s Snapshot) LastLog() string {
	if len(s.Logs) == 0 {
		return ""
	}
	return s.Logs[len(s.Logs)-1]
}

func clamp(p float64) float64 {
	switch {
	case p < 0 || p != p:
		return 0
	case p > 1:
		return 1
	}
	return p
}
