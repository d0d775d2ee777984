package worker

import (
	"sync"
)

// Queue holds source paths waiting for conversion. A path is queued at most
// once until the worker marks it dequeued.
type Queue struct {
	ch        chan string
	mu        sync.Mutex
	enqueued  map[string]struct{}
	accepting bool
}

func NewQueue(buf int) *Queue {
	if buf <= 0 {
		buf = 1000
	}
	return &Queue{
		ch:        make(chan string, buf),
		enqueued:  make(map[string]struct{}),
		accepting: true,
	}
}

// Enqueue adds path. It returns false when the path is already waiting, the
// queue is closed for new work or the buffer is full.
func (q *Queue) Enqueue(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.accepting {
		return false
	}
	if _, ok := q.enqueued[path]; ok {
		return false
	}
	select {
	case q.ch <- path:
		q.enqueued[path] = struct{}{}
		return true
	default:
		return false
	}
}

func (q *Queue) Dequeued(path string) {
	q.mu.Lock()
	delete(q.enqueued, path)
	q.mu.Unlock()
}

func (q *Queue) StopAccepting() {
	q.mu.Lock()
	q.accepting = false
	q.mu.Unlock()
}

func (q *Queue) Chan() <-chan string { return q.ch }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}
