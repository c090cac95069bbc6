package preview

import (
	"context"
	"shrinkurl/internal/db"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store persists preview progress for a short code.
type Store interface {
	UpdatePreviewStatus(shortCode string, status db.PreviewStatus) error
	UpdatePreviewContent(shortCode, html string, status db.PreviewStatus) error
}

// DBStore writes preview progress through the db package.
type DBStore struct{}

func (DBStore) UpdatePreviewStatus(shortCode string, status db.PreviewStatus) error {
	return db.UpdatePreviewStatus(shortCode, status)
}

func (DBStore) UpdatePreviewContent(shortCode, html string, status db.PreviewStatus) error {
	return db.UpdatePreviewContent(shortCode, html, status)
}

// Job is one page to prerender.
type Job struct {
	ShortCode   string
	OriginalURL string
}

const queueCapacity = 100

// Queue renders previews on a fixed pool of workers. A short code is queued
// at most once while it is pending or rendering.
type Queue struct {
	renderer    Renderer
	store       Store
	jobs        chan Job
	inProgress  map[string]bool
	pending     map[string]chan struct{} // closed once the pending status is stored
	waiting     map[string][]chan struct{}
	mutex       sync.Mutex
	workerCount int
	closed      bool
	wg          sync.WaitGroup
}

// DefaultQueue is the process-wide queue, nil when previews are disabled.
var DefaultQueue *Queue

// InitQueue starts DefaultQueue with workerCount workers.
func InitQueue(renderer Renderer, store Store, workerCount int) *Queue {
	DefaultQueue = NewQueue(renderer, store, workerCount)
	return DefaultQueue
}

// NewQueue starts a queue with workerCount workers (at least one).
func NewQueue(renderer Renderer, store Store, workerCount int) *Queue {
	if workerCount < 1 {
		workerCount = 1
	}
	q := &Queue{
		renderer:    renderer,
		store:       store,
		jobs:        make(chan Job, queueCapacity),
		inProgress:  make(map[string]bool),
		pending:     make(map[string]chan struct{}),
		waiting:     make(map[string][]chan struct{}),
		workerCount: workerCount,
	}

	q.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go q.worker(i)
	}

	log.Info().Int("workers", workerCount).Msg("preview queue started")
	return q
}

// Enqueue schedules a render for shortCode. It reports false when the job is
// already in progress, the queue is full or shut down.
func (q *Queue) Enqueue(shortCode, originalURL string) bool {
	q.mutex.Lock()
	if q.closed || q.inProgress[shortCode] {
		q.mutex.Unlock()
		return false
	}

	// Only Enqueue sends, under the mutex, so a free slot cannot disappear.
	if len(q.jobs) >= cap(q.jobs) {
		q.mutex.Unlock()
		log.Warn().Int("capacity", cap(q.jobs)).Str("short_code", shortCode).Msg("preview queue is full, dropping job")
		return false
	}

	marked := make(chan struct{})
	q.inProgress[shortCode] = true
	q.pending[shortCode] = marked
	q.jobs <- Job{ShortCode: shortCode, OriginalURL: originalURL}
	q.mutex.Unlock()

	if err := q.store.UpdatePreviewStatus(shortCode, db.PreviewStatusPending); err != nil {
		log.Error().Err(err).Str("short_code", shortCode).Msg("failed to mark preview pending")
	}
	close(marked)
	return true
}

// Wait blocks until the render for shortCode finishes or timeout elapses.
// It reports whether a render was awaited to completion.
func (q *Queue) Wait(shortCode string, timeout time.Duration) bool {
	q.mutex.Lock()
	if !q.inProgress[shortCode] {
		q.mutex.Unlock()
		return false
	}
	done := make(chan struct{})
	q.waiting[shortCode] = append(q.waiting[shortCode], done)
	q.mutex.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		q.mutex.Lock()
		waiters := q.waiting[shortCode]
		for i, ch := range waiters {
			if ch == done {
				q.waiting[shortCode] = append(waiters[:i], waiters[i+1:]...)
				break
			}
		}
		q.mutex.Unlock()
		return false
	}
}

// InProgress reports whether shortCode is pending or rendering.
func (q *Queue) InProgress(shortCode string) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.inProgress[shortCode]
}

// Status summarizes the queue for the status endpoint.
func (q *Queue) Status() map[string]interface{} {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	waiting := 0
	for _, waiters := range q.waiting {
		waiting += len(waiters)
	}
	return map[string]interface{}{
		"worker_count":      q.workerCount,
		"queue_length":      len(q.jobs),
		"in_progress_count": len(q.inProgress),
		"waiting":           waiting,
	}
}

// Shutdown stops accepting jobs and waits for the workers to drain the queue.
func (q *Queue) Shutdown() {
	q.mutex.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mutex.Unlock()

	q.wg.Wait()
	log.Info().Msg("preview queue stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger := log.With().Int("worker", id).Logger()

	for job := range q.jobs {
		jobLogger := logger.With().Str("short_code", job.ShortCode).Str("url", job.OriginalURL).Logger()

		q.mutex.Lock()
		marked := q.pending[job.ShortCode]
		delete(q.pending, job.ShortCode)
		q.mutex.Unlock()
		if marked != nil {
			<-marked
		}

		if err := q.store.UpdatePreviewStatus(job.ShortCode, db.PreviewStatusRendering); err != nil {
			jobLogger.Error().Err(err).Msg("failed to mark preview rendering")
		}

		start := time.Now()
		html, err := q.renderer.Render(context.Background(), job.OriginalURL)
		if err != nil {
			jobLogger.Warn().Err(err).Dur("took", time.Since(start)).Msg("preview render failed")
			if dbErr := q.store.UpdatePreviewContent(job.ShortCode, "", db.PreviewStatusFailed); dbErr != nil {
				jobLogger.Error().Err(dbErr).Msg("failed to store preview failure")
			}
		} else if dbErr := q.store.UpdatePreviewContent(job.ShortCode, html, db.PreviewStatusCompleted); dbErr != nil {
			jobLogger.Error().Err(dbErr).Msg("failed to store preview content")
		}

		q.mutex.Lock()
		for _, done := range q.waiting[job.ShortCode] {
			close(done)
		}
		delete(q.waiting, job.ShortCode)
		delete(q.inProgress, job.ShortCode)
		q.mutex.Unlock()
	}
}
