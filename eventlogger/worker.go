package eventlogger

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const saveTimeout = 5 * time.Second

// Worker persists events off the request path. Events logged once the
// buffer is full, or after Shutdown, are dropped with a warning.
type Worker struct {
	eventCh chan Event
	logger  EventLogger
	wg      sync.WaitGroup

	// mu orders Log sends before the shutdown drain.
	mu      sync.RWMutex
	stopped bool
	done    chan struct{}
}

func NewWorker(logger EventLogger, bufferSize int) *Worker {
	return &Worker{
		eventCh: make(chan Event, bufferSize),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.done:
				w.drain()
				return
			case event := <-w.eventCh:
				w.save(event)
			}
		}
	})
}

func (w *Worker) drain() {
	slog.Info("draining events before shutdown", "remaining_events", len(w.eventCh))
	for {
		select {
		case event := <-w.eventCh:
			w.save(event)
		default:
			return
		}
	}
}

// save is not tied to the worker lifetime: a write started before
// Shutdown runs to completion.
func (w *Worker) save(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := w.logger.Save(ctx, event); err != nil {
		slog.Error("failed to save event", "error", err, "event_type", event.Type)
	}
}

func (w *Worker) Log(event Event) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.stopped {
		slog.Warn("event worker stopped, dropping event", "event_type", event.Type)
		return
	}

	select {
	case w.eventCh <- event:
	default:
		slog.Warn("event channel full, dropping event", "event_type", event.Type)
	}
}

// Shutdown stops the worker after saving every buffered event. It is safe
// to call more than once.
func (w *Worker) Shutdown() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.done)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
