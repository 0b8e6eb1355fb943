package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/api/metrics"
	"github.com/medicore/clinic-api/internal/core/domain"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	block  chan struct{}
	err    error
}

func (r *recordingRepo) Insert(_ context.Context, e *domain.AuthEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return r.err
}

func (r *recordingRepo) snapshot() []domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuthEvent(nil), r.events...)
}

func TestDispatcher_PersistsInOrderPerAccount(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(4, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	types := []domain.AuthEventType{
		domain.EventSignup,
		domain.EventLoginFailed,
		domain.EventLoginSucceeded,
		domain.EventPasswordChanged,
	}
	for _, typ := range types {
		d.Record(domain.AuthEvent{Type: typ, AccountID: "acc-1", At: time.Now()})
	}

	cancel()
	d.Wait()

	got := repo.snapshot()
	if len(got) != len(types) {
		t.Fatalf("expected %d events, got %d", len(types), len(got))
	}
	for i, e := range got {
		if e.Type != types[i] {
			t.Fatalf("event %d: expected %s, got %s", i, types[i], e.Type)
		}
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, &recordingRepo{}, zerolog.Nop())

	first := d.shardIndex("acc-42")
	for i := 0; i < 10; i++ {
		if d.shardIndex("acc-42") != first {
			t.Fatalf("shard index changed between calls")
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shard index out of range: %d", first)
	}
}

func TestDispatcher_DefaultWorkers(t *testing.T) {
	d := NewDispatcher(0, &recordingRepo{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	repo := &recordingRepo{block: make(chan struct{})}
	d := NewDispatcher(1, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	done := make(chan struct{})
	go func() {
		// One event is held by the blocked worker, the rest overflow the buffer.
		for i := 0; i < channelBuffer+10; i++ {
			d.Record(domain.AuthEvent{Type: domain.EventLoginFailed, Identifier: "jdoe"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Record blocked on a full queue")
	}

	close(repo.block)
	cancel()
	d.Wait()

	if got := len(repo.snapshot()); got > channelBuffer+1 {
		t.Fatalf("expected overflow to be dropped, persisted %d", got)
	}
}

func TestDispatcher_InsertErrorDoesNotStopWorker(t *testing.T) {
	repo := &recordingRepo{err: errors.New("mongo down")}
	d := NewDispatcher(1, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	d.Record(domain.AuthEvent{Type: domain.EventSignup, AccountID: "a"})
	d.Record(domain.AuthEvent{Type: domain.EventSignup, AccountID: "b"})

	cancel()
	d.Wait()

	if got := len(repo.snapshot()); got != 2 {
		t.Fatalf("expected both inserts to be attempted, got %d", got)
	}
}

func TestDispatcher_RecordAfterStopIsCountedAsDropped(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	cancel()
	d.Wait()

	before := testCounterValue(t, metrics.AuditEventsDroppedTotal)
	d.Record(domain.AuthEvent{Type: domain.EventLoginSucceeded, AccountID: "acc-1"})

	if got := testCounterValue(t, metrics.AuditEventsDroppedTotal); got != before+1 {
		t.Fatalf("expected late event to be counted as dropped, counter %v -> %v", before, got)
	}
	if got := len(repo.snapshot()); got != 0 {
		t.Fatalf("expected no persistence after stop, got %d", got)
	}
}

func TestDispatcher_AcceptsEventsUntilCancelled(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	// Events recorded while the HTTP server drains in-flight requests must
	// still be persisted as long as the dispatcher context is alive.
	for i := 0; i < 20; i++ {
		d.Record(domain.AuthEvent{Type: domain.EventLoginFailed, Identifier: fmt.Sprintf("user-%d", i)})
	}

	cancel()
	d.Wait()

	if got := len(repo.snapshot()); got != 20 {
		t.Fatalf("expected 20 persisted events, got %d", got)
	}
}

func testCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
