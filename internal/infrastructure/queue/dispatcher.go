package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/clinic-api/internal/api/metrics"
	"github.com/medicore/clinic-api/internal/core/domain"
	"github.com/medicore/clinic-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	insertTimeout  = 5 * time.Second
)

// Dispatcher routes audit events to a fixed set of workers using consistent
// hashing on the account id, guaranteeing per-account event ordering.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	repo    ports.AuditRepository
	log     zerolog.Logger
	wg      sync.WaitGroup

	// mu guards stopped. Channels are closed under the write lock, so
	// Record never sends on a closed channel.
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.AuditRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Once ctx is cancelled Record stops
// accepting events and the workers exit after persisting what is queued.
// Cancel ctx only after the last request that may record has finished.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stop()
	}()
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Record queues an event on the worker responsible for its shard key. It
// never blocks: when that worker's channel is full, or the dispatcher has
// stopped, the event is dropped and counted.
func (d *Dispatcher) Record(event domain.AuthEvent) {
	id := d.shardIndex(event.ShardKey())

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.dropped(id, event, "audit dispatcher stopped, event dropped")
		return
	}
	select {
	case d.workers[id] <- event:
		metrics.AuditQueueDepth.WithLabelValues(strconv.Itoa(id)).Inc()
	default:
		d.dropped(id, event, "audit queue full, event dropped")
	}
}

func (d *Dispatcher) dropped(id int, event domain.AuthEvent, msg string) {
	metrics.AuditEventsDroppedTotal.Inc()
	d.log.Warn().
		Str("type", string(event.Type)).
		Str("account_id", event.AccountID).
		Int("worker_id", id).
		Msg(msg)
}

// shardIndex maps a shard key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

// runWorker persists events until its channel is closed and empty.
func (d *Dispatcher) runWorker(id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for event := range ch {
		d.persist(id, label, event)
	}
}

func (d *Dispatcher) persist(id int, label string, event domain.AuthEvent) {
	metrics.AuditQueueDepth.WithLabelValues(label).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()

	if err := d.repo.Insert(ctx, &event); err != nil {
		metrics.AuditEventsPersistedTotal.WithLabelValues("error").Inc()
		d.log.Error().Err(err).
			Str("type", string(event.Type)).
			Str("account_id", event.AccountID).
			Int("worker_id", id).
			Msg("audit event persistence failed")
		return
	}
	metrics.AuditEventsPersistedTotal.WithLabelValues("ok").Inc()
}
