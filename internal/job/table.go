package job

import (
	"sync"
	"time"
)

// Table tracks jobs by id in submission order so other goroutines can
// observe them through snapshots.
type Table struct {
	mu    sync.RWMutex
	jobs  map[string]*Job
	order []string
}

func NewTable() *Table {
	return &Table{jobs: make(map[string]*Job)}
}

// Add registers j. Adding the same job twice is a no-op.
func (t *Table) Add(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.jobs[j.ID()]; ok {
		return
	}
	t.jobs[j.ID()] = j
	t.order = append(t.order, j.ID())
}

// Get returns a snapshot of the job with the given id.
func (t *Table) Get(id string) (Snapshot, bool) {
	t.mu.RLock()
	j, ok := t.jobs[id]
	t.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return j.Snapshot(), true
}

// Snapshots returns every tracked job in submission order.
func (t *Table) Snapshots() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.jobs[id].Snapshot())
	}
	return out
}

// Active returns snapshots of jobs that have not reached a terminal state.
func (t *Table) Active() []Snapshot {
	var out []Snapshot
	for _, s := range t.Snapshots() {
		if !s.Status.Terminal() {
			out = append(out, s)
		}
	}
	return out
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Prune drops terminal jobs that finished more than maxAge ago.
func (t *Table) Prune(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	kept := t.order[:0]
	removed := 0
	for _, id := range t.order {
		s := t.jobs[id].Snapshot()
		if s.Status.Terminal() && now.Sub(s.FinishedAt) > maxAge {
			delete(t.jobs, id)
			removed++
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
	return removed
}
