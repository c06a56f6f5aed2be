package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/roman-kulish/motor-ramp/internal/flight"
	"github.com/roman-kulish/motor-ramp/internal/telemetry"
)

func ptr(v float64) *float64 {
	return &v
}

func newStore(t *testing.T) *SqliteStore {
	t.Helper()

	s := NewSqliteStore(filepath.Join(t.TempDir(), "flights.sqlite"))
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return s
}

func TestSqliteStore_Flights(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.CreateFlight(ctx, "sim://0", "hold", map[string]any{"climb": 1.0})
	if err != nil {
		t.Fatalf("Failed to create flight: %v", err)
	}
	if _, err = s.CreateFlight(ctx, "sim://1", "manual", nil); err != nil {
		t.Fatalf("Failed to create second flight: %v", err)
	}
	if err = s.FinishFlight(ctx, id); err != nil {
		t.Fatalf("Failed to finish flight: %v", err)
	}

	f, err := s.Flight(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read flight: %v", err)
	}
	if f.LinkURI != "sim://0" || f.Mode != "hold" {
		t.Errorf("Unexpected flight %+v", f)
	}
	if f.EndTime == nil || f.EndTime.Before(f.StartTime) {
		t.Errorf("Expected end time after start time, got %v", f.EndTime)
	}
	if f.Config == nil || *f.Config != `{"climb":1}` {
		t.Errorf("Unexpected config %v", f.Config)
	}

	flights, err := s.Flights(ctx)
	if err != nil {
		t.Fatalf("Failed to list flights: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("Expected 2 flights, got %d", len(flights))
	}
	if flights[1].EndTime != nil || flights[1].Config != nil {
		t.Errorf("Expected unfinished flight without config, got %+v", flights[1])
	}
}

func TestSqliteStore_FlightNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.CreateFlight(ctx, "sim://0", "hold", nil); err != nil {
		t.Fatalf("Failed to create flight: %v", err)
	}
	if _, err := s.Flight(ctx, 42); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("Expected ErrFlightNotFound, got %v", err)
	}
	if err := s.FinishFlight(ctx, 42); !errors.Is(err, ErrFlightNotFound) {
		t.Errorf("Expected ErrFlightNotFound, got %v", err)
	}
}

func TestSqliteStore_ReadTrace(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.CreateFlight(ctx, "sim://0", "hold", `{"mode":"hold"}`)
	if err != nil {
		t.Fatalf("Failed to create flight: %v", err)
	}

	start := time.Now().UTC().Truncate(time.Millisecond)

	var records []*telemetry.Telemetry
	for i := 0; i < 1200; i++ {
		records = append(records, &telemetry.Telemetry{
			Timestamp: start.Add(time.Duration(i) * 100 * time.Millisecond),
			Altitude:  ptr(10 + float64(i)/100),
			Pressure:  ptr(1012.0),
		})
	}
	if err = s.StoreTelemetry(ctx, id, records); err != nil {
		t.Fatalf("Failed to store telemetry: %v", err)
	}

	setpoints := []flight.Setpoint{
		{Timestamp: start.Add(50 * time.Millisecond), Phase: "unlocking"},
		{Timestamp: start.Add(150 * time.Millisecond), Phase: "streaming", Roll: 13, Pitch: 5, Thrust: 20250},
		{Timestamp: start.Add(250 * time.Millisecond), Phase: "stopping"},
	}
	if err = s.StoreSetpoints(ctx, id, setpoints); err != nil {
		t.Fatalf("Failed to store setpoints: %v", err)
	}
	if err = s.StoreEvent(ctx, id, flight.Event{Timestamp: start, Kind: flight.EventLink, Message: "connected"}); err != nil {
		t.Fatalf("Failed to store event: %v", err)
	}

	trace, err := s.ReadTrace(ctx, id)
	if err != nil {
		t.Fatalf("Failed to read trace: %v", err)
	}

	if len(trace.Telemetry) != len(records) {
		t.Fatalf("Expected %d telemetry records, got %d", len(records), len(trace.Telemetry))
	}
	first := trace.Telemetry[0]
	if !first.Timestamp.Equal(start) || *first.Altitude != 10 || first.Roll != nil {
		t.Errorf("Unexpected first record %+v", first)
	}
	if last := trace.Telemetry[len(records)-1]; *last.Altitude != *records[len(records)-1].Altitude {
		t.Errorf("Expected records ordered by time, last altitude %.2f", *last.Altitude)
	}

	if len(trace.Setpoints) != 3 {
		t.Fatalf("Expected 3 setpoints, got %d", len(trace.Setpoints))
	}
	if sp := trace.Setpoints[1]; sp.Phase != "streaming" || sp.Thrust != 20250 || sp.Roll != 13 {
		t.Errorf("Unexpected setpoint %+v", sp)
	}
	if len(trace.Events) != 1 || trace.Events[0].Message != "connected" {
		t.Errorf("Unexpected events %+v", trace.Events)
	}
}

type memoryStore struct {
	Store

	mu        sync.Mutex
	telemetry []*telemetry.Telemetry
	setpoints []flight.Setpoint
	events    []flight.Event
	batches   int
	fail      error
}

func (m *memoryStore) StoreTelemetry(_ context.Context, _ int64, records []*telemetry.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches++
	m.telemetry = append(m.telemetry, records...)
	return m.fail
}

func (m *memoryStore) StoreSetpoints(_ context.Context, _ int64, setpoints []flight.Setpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.batches++
	m.setpoints = append(m.setpoints, setpoints...)
	return m.fail
}

func (m *memoryStore) StoreEvent(_ context.Context, _ int64, event flight.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return m.fail
}

func TestRecorder_FlushesOnClose(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, 1, WithMaxBatchSize(10), WithFlushInterval(time.Hour))

	for i := 0; i < 25; i++ {
		r.RecordTelemetry(&telemetry.Telemetry{Timestamp: time.Now(), Altitude: ptr(float64(i))})
	}
	r.RecordSetpoint(flight.Setpoint{Timestamp: time.Now(), Phase: "unlocking"})
	r.RecordEvent(flight.EventControl, "target set")
	r.RecordTelemetry(nil)

	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.telemetry) != 25 || len(store.setpoints) != 1 || len(store.events) != 1 {
		t.Errorf("Expected 25/1/1 records, got %d/%d/%d", len(store.telemetry), len(store.setpoints), len(store.events))
	}
	if store.batches < 3 {
		t.Errorf("Expected telemetry written in batches, got %d writes", store.batches)
	}
	if *store.telemetry[24].Altitude != 24 {
		t.Errorf("Expected records in order")
	}
}

func TestRecorder_AfterClose(t *testing.T) {
	store := &memoryStore{fail: errors.New("disk full")}
	r := NewRecorder(store, 1)

	r.RecordEvent(flight.EventLink, "connected")
	if err := r.Close(); err == nil {
		t.Errorf("Expected storage error from Close")
	}
	if err := r.Close(); err == nil {
		t.Errorf("Expected Close to keep reporting the error")
	}

	r.RecordTelemetry(&telemetry.Telemetry{Timestamp: time.Now()})
	if r.Dropped() != 1 {
		t.Errorf("Expected record after close to be dropped, got %d", r.Dropped())
	}
}

// blockingStore holds the writer inside StoreEvent until release is closed
type blockingStore struct {
	memoryStore

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStore) StoreEvent(ctx context.Context, flightID int64, event flight.Event) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.memoryStore.StoreEvent(ctx, flightID, event)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	store := &blockingStore{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRecorder(store, 1, WithFlushInterval(time.Hour))

	r.RecordEvent(flight.EventLink, "connected")
	select {
	case <-store.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("writer never reached the store")
	}

	// the writer is stuck, so the queue takes exactly queueSize records
	for i := 0; i < queueSize+3; i++ {
		r.RecordTelemetry(&telemetry.Telemetry{Timestamp: time.Now(), Altitude: ptr(float64(i))})
	}
	if r.Dropped() != 3 {
		t.Errorf("Expected 3 dropped records, got %d", r.Dropped())
	}

	close(store.release)
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.telemetry) != queueSize || len(store.events) != 1 {
		t.Errorf("Expected %d telemetry records and 1 event, got %d and %d", queueSize, len(store.telemetry), len(store.events))
	}
}

func TestRecorder_NonPositiveFlushInterval(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, 1, WithFlushInterval(0), WithMaxBatchSize(-1))

	r.RecordSetpoint(flight.Setpoint{Timestamp: time.Now(), Phase: "unlocking"})
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.setpoints) != 1 {
		t.Errorf("Expected the setpoint written, got %d", len(store.setpoints))
	}
}

func TestRecorder_CloseWhileRecording(t *testing.T) {
	store := &memoryStore{}
	r := NewRecorder(store, 1, WithFlushInterval(time.Millisecond))

	const writers, perWriter = 4, 200

	var wg sync.WaitGroup
	start := make(chan struct{})
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < perWriter; i++ {
				r.RecordTelemetry(&telemetry.Telemetry{Timestamp: time.Now()})
			}
		}()
	}

	close(start)
	if err := r.Close(); err != nil {
		t.Fatalf("Failed to close recorder: %v", err)
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()

	// every record is either written or counted as dropped
	if got := uint64(len(store.telemetry)) + r.Dropped(); got != writers*perWriter {
		t.Errorf("Expected %d records accounted for, got %d written + %d dropped",
			writers*perWriter, len(store.telemetry), r.Dropped())
	}
}
