package bot

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/italolelis/seedbox_bot/internal/logctx"
)

// Job is one unit of work for a single user.
type Job func(ctx context.Context)

type userQueue struct {
	pending []Job
}

// Dispatcher runs jobs in arrival order per key while different keys run in
// parallel. Submit never blocks; a key's worker exits once its queue drains.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{queues: make(map[int64]*userQueue)}
}

func (d *Dispatcher) Submit(ctx context.Context, key int64, job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if q, ok := d.queues[key]; ok {
		q.pending = append(q.pending, job)
		return
	}

	q := &userQueue{pending: []Job{job}}
	d.queues[key] = q

	d.wg.Add(1)

	go d.drain(ctx, key, q)
}

func (d *Dispatcher) drain(ctx context.Context, key int64, q *userQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()

			return
		}

		job := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		d.mu.Unlock()

		d.run(ctx, key, job)
	}
}

func (d *Dispatcher) run(ctx context.Context, key int64, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logctx.LoggerFromContext(ctx).ErrorContext(ctx, "update handler panic",
				"user_id", key,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	job(ctx)
}

// Active returns the number of keys with a running worker.
func (d *Dispatcher) Active() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.queues)
}

// Wait blocks until every submitted job has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
