package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull = errors.New("notification queue full")
	ErrClosed    = errors.New("notification dispatcher closed")
)

type DispatcherOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
	// OnResult is called once per summary with the delivery outcome.
	OnResult func(s Summary, err error)
}

// Dispatcher sends summaries on a small pool of workers so the order
// request never waits on the transport.
type Dispatcher struct {
	gateway Gateway
	opts    DispatcherOptions
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Summary
	wg     sync.WaitGroup
}

func NewDispatcher(gateway Gateway, opts DispatcherOptions, log *slog.Logger) *Dispatcher {
	opts.Workers = max(opts.Workers, 1)
	opts.QueueSize = max(opts.QueueSize, 1)
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	d := &Dispatcher{
		gateway: gateway,
		opts:    opts,
		log:     log.With(slog.String("component", "notification.dispatcher")),
		queue:   make(chan Summary, opts.QueueSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

// Dispatch enqueues s without blocking. It reports false when the summary
// was dropped; the drop is already logged and reported to OnResult.
func (d *Dispatcher) Dispatch(s Summary) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.report(s, ErrClosed)
		return false
	}
	select {
	case d.queue <- s:
		return true
	default:
		d.report(s, ErrQueueFull)
		return false
	}
}

// Close stops accepting summaries and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for s := range d.queue {
		d.report(s, d.send(s))
	}
}

func (d *Dispatcher) send(s Summary) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gateway panic: %v", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.Timeout)
	defer cancel()
	return d.gateway.Send(ctx, s)
}

func (d *Dispatcher) report(s Summary, err error) {
	if err != nil {
		d.log.Error("merchant notification failed",
			slog.String("order_correlation_id", s.CorrelationID),
			slog.String("error", err.Error()))
	} else {
		d.log.Info("merchant notified", slog.String("order_correlation_id", s.CorrelationID))
	}
	if d.opts.OnResult != nil {
		d.opts.OnResult(s, err)
	}
}
