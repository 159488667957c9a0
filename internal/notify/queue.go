package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/frahmantamala/taskdesk/internal/core/datamodel/notification"
)

var ErrQueueClosed = errors.New("notification queue is closed")

type Job struct {
	Notification notification.Notification
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Job)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case job := <-w.JobChannel:
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("notification worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type QueueConfig struct {
	MaxWorkers int
	QueueSize  int
}

// Queue delivers notifications in the background so a slow sink never holds up
// the caller. With one worker, delivery order is enqueue order.
type Queue struct {
	next   Notifier
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	dispatched chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewQueue(next Notifier, config QueueConfig, logger *slog.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	q := &Queue{
		next:       next,
		logger:     logger,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		dispatched: make(chan struct{}),
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.maxWorkers; i++ {
			worker := NewWorker(i, q.workerPool, q.logger)
			worker.Start(q.ctx, &q.wg, q.deliver)
		}

		q.wg.Add(1)
		go q.dispatch()

		q.logger.Debug("notification queue started",
			"max_workers", q.maxWorkers,
			"queue_size", cap(q.jobQueue))
	})
}

// dispatch hands queued jobs to idle workers until the queue is closed and empty.
func (q *Queue) dispatch() {
	defer q.wg.Done()
	defer close(q.dispatched)

	for {
		select {
		case job, ok := <-q.jobQueue:
			if !ok {
				return
			}
			select {
			case jobChannel := <-q.workerPool:
				select {
				case jobChannel <- job:
				case <-q.ctx.Done():
					return
				}
			case <-q.ctx.Done():
				return
			}
		case <-q.ctx.Done():
			return
		}
	}
}

// deliver is not bound to the queue's lifetime so an in-flight job finishes during Shutdown.
func (q *Queue) deliver(job Job) {
	if err := q.next.Notify(context.Background(), job.Notification); err != nil {
		q.logger.Warn("notification delivery failed",
			"notification_id", job.Notification.ID,
			"kind", job.Notification.Kind,
			"error", err)
	}
}

// Notify enqueues without blocking. A full queue drops the notification with a warning.
func (q *Queue) Notify(_ context.Context, n notification.Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.jobQueue <- Job{Notification: n}:
	default:
		q.logger.Warn("notification queue full, dropping notification",
			"notification_id", n.ID,
			"queue_capacity", cap(q.jobQueue))
	}
	return nil
}

// Shutdown stops accepting notifications and delivers what is already queued,
// unless ctx ends first. It is safe to call more than once.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobQueue)
	q.mu.Unlock()

	select {
	case <-q.dispatched:
	case <-ctx.Done():
		q.logger.Warn("notification queue shutdown timed out", "pending", len(q.jobQueue))
	}
	q.cancel()
	q.wg.Wait()
	q.logger.Debug("notification queue stopped")
}
