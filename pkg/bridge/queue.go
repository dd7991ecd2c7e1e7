package bridge

import "sync"

// Queue buffers command batches between the scripting goroutine and the
// rendering goroutine. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	batches int
}

// NewQueue returns an empty queue.
func NewQueue() *Queue { return &Queue{} }

// Enqueue appends cmds as one batch. A batch is never split across drains.
func (q *Queue) Enqueue(cmds ...Command) {
	if len(cmds) == 0 {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, cmds...)
	q.batches++
	q.mu.Unlock()
}

// Drain removes and returns every queued command in FIFO order.
func (q *Queue) Drain() []Command {
	q.mu.Lock()
	cmds := q.pending
	q.pending = nil
	q.batches = 0
	q.mu.Unlock()
	return cmds
}

// Len returns the number of queued commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Batches returns the number of batches queued since the last drain.
func (q *Queue) Batches() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.batches
}
