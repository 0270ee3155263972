package report

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("report queue closed")

// DispatcherConfig tunes queueing and retries.
type DispatcherConfig struct {
	QueueSize  int
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

type job struct {
	id     string
	report domain.Report
}

// Dispatcher delivers reports from a bounded queue on a single worker.
// Enqueue never blocks; when the queue is full the oldest report is dropped.
type Dispatcher struct {
	deliverer Deliverer
	cfg       DispatcherConfig
	logger    *slog.Logger

	queue  chan job
	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher starts a dispatcher delivering through d.
func NewDispatcher(d Deliverer, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	dp := &Dispatcher{
		deliverer: d,
		cfg:       cfg,
		logger:    logger,
		queue:     make(chan job, cfg.QueueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
	dp.wg.Add(1)
	go dp.run()
	return dp
}

// Enqueue schedules r for delivery and returns its report id.
func (d *Dispatcher) Enqueue(r domain.Report) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return "", ErrQueueClosed
	}

	j := job{id: NewID(), report: r}
	select {
	case d.queue <- j:
		return j.id, nil
	default:
	}

	// Queue full: drop the oldest to make room.
	select {
	case old := <-d.queue:
		d.logger.Warn("report queue full, dropped oldest report",
			"dropped_session_id", old.report.SessionID,
			"report_id", old.id,
		)
	default:
	}
	select {
	case d.queue <- j:
	default:
		d.logger.Warn("report queue full, dropping report", "session_id", r.SessionID)
	}
	return j.id, nil
}

// Close stops accepting reports and waits for queued ones to be delivered.
// If ctx expires first, in-flight retries are abandoned.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for j := range d.queue {
		d.deliver(j)
	}
}

// forgetter releases per-id state held by a deliverer once a job is settled.
type forgetter interface {
	Forget(id string)
}

func (d *Dispatcher) deliver(j job) {
	log := d.logger.With("session_id", j.report.SessionID, "report_id", j.id)
	if f, ok := d.deliverer.(forgetter); ok {
		defer f.Forget(j.id)
	}
	for attempt := 0; attempt < d.cfg.MaxRetries; attempt++ {
		if d.ctx.Err() != nil {
			log.Warn("report delivery abandoned on shutdown")
			return
		}

		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.Timeout)
		err := d.deliverer.Deliver(ctx, j.id, j.report)
		cancel()
		if err == nil {
			log.Info("report delivered", "attempt", attempt+1)
			return
		}

		if attempt == d.cfg.MaxRetries-1 {
			log.Error("report delivery failed", "attempts", attempt+1, "error", err)
			return
		}
		delay := d.cfg.BaseDelay * time.Duration(1<<attempt)
		log.Warn("report delivery failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
		select {
		case <-time.After(delay):
		case <-d.ctx.Done():
		}
	}
}
