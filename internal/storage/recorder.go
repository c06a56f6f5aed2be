package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

const (
	// DefaultMaxBatchSize is the number of records written per transaction
	DefaultMaxBatchSize = 100

	// DefaultFlushInterval bounds how long a record waits in memory
	DefaultFlushInterval = time.Second

	queueSize = 1024
)

// WithRecorderLogger sets the logger of the recorder
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// WithMaxBatchSize sets the maximum number of records stored within a single
// database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.maxBatchSize = size
	}
}

// WithFlushInterval sets how often pending records are written regardless of
// the batch size
func WithFlushInterval(d time.Duration) func(*Recorder) {
	return func(r *Recorder) {
		r.flushInterval = d
	}
}

type record struct {
	telemetry *telemetry.Telemetry
	setpoint  *flight.Setpoint
	event     *flight.Event
}

// Recorder writes flight records to a Store from a background goroutine.
// Record methods never block: when the queue is full the record is dropped
// and counted.
type Recorder struct {
	store    Store
	flightID int64
	logger   *slog.Logger

	maxBatchSize  int
	flushInterval time.Duration

	// mu orders enqueues against Close so that no record lands in the
	// queue after the final drain
	mu      sync.RWMutex
	closed  bool
	queue   chan record
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	errMu sync.Mutex
	errs  []error
}

// NewRecorder creates a recorder for the given flight and starts its writer
func NewRecorder(store Store, flightID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:         store,
		flightID:      flightID,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize:  DefaultMaxBatchSize,
		flushInterval: DefaultFlushInterval,
		queue:         make(chan record, queueSize),
		done:          make(chan struct{}),
	}

	for _, option := range options {
		option(&r)
	}
	if r.maxBatchSize <= 0 {
		r.maxBatchSize = DefaultMaxBatchSize
	}
	if r.flushInterval <= 0 {
		r.flushInterval = DefaultFlushInterval
	}

	r.wg.Add(1)
	go r.run()

	return &r
}

// FlightID returns the flight the recorder writes to
func (r *Recorder) FlightID() int64 {
	return r.flightID
}

// RecordTelemetry queues a telemetry record
func (r *Recorder) RecordTelemetry(t *telemetry.Telemetry) {
	if t == nil {
		return
	}
	r.enqueue(record{telemetry: t})
}

// RecordSetpoint queues a setpoint accepted by the link
func (r *Recorder) RecordSetpoint(sp flight.Setpoint) {
	r.enqueue(record{setpoint: &sp})
}

// RecordEvent queues an event stamped with the current time
func (r *Recorder) RecordEvent(kind, message string) {
	r.enqueue(record{event: &flight.Event{Timestamp: time.Now(), Kind: kind, Message: message}})
}

// Dropped returns the number of records lost to a full queue or a closed
// recorder
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

func (r *Recorder) enqueue(rec record) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		return
	}

	select {
	case r.queue <- rec:
	default:
		r.dropped.Add(1)
	}
}

// Close writes every queued record, stops the writer and returns the storage
// errors seen during the flight
func (r *Recorder) Close() error {
	r.mu.Lock()
	closing := !r.closed
	r.closed = true
	r.mu.Unlock()

	if closing {
		close(r.done)
		r.wg.Wait()
	}

	r.errMu.Lock()
	defer r.errMu.Unlock()

	if dropped := r.dropped.Load(); dropped > 0 {
		r.logger.Warn("records dropped", slog.Uint64("count", dropped))
	}
	return errors.Join(r.errs...)
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	var records []*telemetry.Telemetry
	var setpoints []flight.Setpoint

	flush := func() {
		if len(records) > 0 {
			r.report(r.store.StoreTelemetry(context.Background(), r.flightID, records), "storing telemetry")
			records = nil
		}
		if len(setpoints) > 0 {
			r.report(r.store.StoreSetpoints(context.Background(), r.flightID, setpoints), "storing setpoints")
			setpoints = nil
		}
	}

	add := func(rec record) {
		switch {
		case rec.telemetry != nil:
			records = append(records, rec.telemetry)
		case rec.setpoint != nil:
			setpoints = append(setpoints, *rec.setpoint)
		case rec.event != nil:
			r.report(r.store.StoreEvent(context.Background(), r.flightID, *rec.event), "storing event")
		}

		if len(records) >= r.maxBatchSize || len(setpoints) >= r.maxBatchSize {
			flush()
		}
	}

	for {
		select {
		case rec := <-r.queue:
			add(rec)

		case <-ticker.C:
			flush()

		case <-r.done:
			for {
				select {
				case rec := <-r.queue:
					add(rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) report(err error, msg string) {
	if err == nil {
		return
	}

	err = fmt.Errorf("%s: %w", msg, err)
	r.logger.Error(err.Error(), slog.Int64("flight", r.flightID))

	r.errMu.Lock()
	r.errs = append(r.errs, err)
	r.errMu.Unlock()
}
