package history

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quintalapp/geoscope/internal/location"
)

// DefaultQueueSize is the default visit queue capacity.
const DefaultQueueSize = 1024

// writeTimeout bounds each storage write so one slow insert cannot stall
// the queue indefinitely.
const writeTimeout = 5 * time.Second

// WriterConfig configures the async visit writer.
type WriterConfig struct {
	// QueueSize is the visit queue capacity.
	QueueSize int
	// Logger for writer activity.
	Logger *slog.Logger
	// Metrics for queue tracking.
	Metrics *Metrics
}

// Writer drains visit entries into a Repository from a background
// goroutine. Enqueueing never blocks: when the queue is full the entry is
// dropped and counted. Location history is best effort by design.
type Writer struct {
	config WriterConfig
	repo   Repository
	queue  chan Entry

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWriter creates a new visit writer over repo.
func NewWriter(config WriterConfig, repo Repository) *Writer {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Writer{
		config: config,
		repo:   repo,
		queue:  make(chan Entry, config.QueueSize),
	}
}

// Start begins draining the queue.
// Returns immediately; the writer runs in a background goroutine.
func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)
	return nil
}

// Stop signals the writer to stop and waits for it to finish. Entries
// still queued at stop time are drained before returning.
func (w *Writer) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopCh := w.stopCh
	doneCh := w.doneCh
	w.mu.Unlock()

	close(stopCh)
	<-doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// IsRunning returns whether the writer is currently running.
func (w *Writer) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Enqueue queues one entry for recording. Returns false when the queue is
// full and the entry was dropped.
func (w *Writer) Enqueue(entry Entry) bool {
	select {
	case w.queue <- entry:
		if w.config.Metrics != nil {
			w.config.Metrics.SetQueueDepth(float64(len(w.queue)))
		}
		return true
	default:
		if w.config.Metrics != nil {
			w.config.Metrics.IncVisitsDropped()
		}
		w.config.Logger.Warn("visit queue full, dropping entry",
			"user_id", entry.UserID)
		return false
	}
}

// RecordVisit adapts a resolved location update into a queued entry. It
// satisfies the location store's history sink without exposing the queue.
func (w *Writer) RecordVisit(sessionKey string, loc location.ResolvedLocation) {
	w.Enqueue(Entry{
		UserID:       sessionKey,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		City:         loc.City,
		Neighborhood: loc.Neighborhood,
	})
}

// run is the main loop for the writer.
func (w *Writer) run(ctx context.Context) {
	defer close(w.doneCh)

	for {
		select {
		case <-ctx.Done():
			w.config.Logger.Info("history writer stopping due to context cancellation")
			return
		case <-w.stopCh:
			w.drain()
			w.config.Logger.Info("history writer stopping due to stop signal")
			return
		case entry := <-w.queue:
			w.write(ctx, entry)
		}
	}
}

// drain flushes entries queued before the stop signal.
func (w *Writer) drain() {
	for {
		select {
		case entry := <-w.queue:
			w.write(context.Background(), entry)
		default:
			return
		}
	}
}

// write records one entry, logging and counting failures. A failed write
// drops the entry rather than retrying.
func (w *Writer) write(parentCtx context.Context, entry Entry) {
	ctx, cancel := context.WithTimeout(parentCtx, writeTimeout)
	defer cancel()

	visit := newVisit(entry)
	if err := w.repo.RecordVisit(ctx, visit); err != nil {
		if w.config.Metrics != nil {
			w.config.Metrics.IncVisitErrors()
		}
		w.config.Logger.Error("failed to record visit",
			"user_id", entry.UserID,
			"error", err)
		return
	}

	if w.config.Metrics != nil {
		w.config.Metrics.IncVisitsRecorded()
		w.config.Metrics.SetQueueDepth(float64(len(w.queue)))
	}
}
