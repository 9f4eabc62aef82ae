package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/roombook/booking-system/internal/core/ports"
	"github.com/roombook/booking-system/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 30 * time.Second
	drainTimeout   = 10 * time.Second
)

// ErrQueueFull is returned when a worker channel cannot accept a message
// before the caller's context is done.
var ErrQueueFull = errors.New("notification queue full")

// Dispatcher is an asynchronous ports.Notifier. Messages are routed to a fixed
// set of workers using consistent hashing on the recipient address, so messages
// to one address are delivered in the order they were queued.
type Dispatcher struct {
	workers []chan ports.Message
	next    ports.Notifier
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers that hand
// messages to next. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.Message, numWorkers),
		next:    next,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.Message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled
// after flushing what is already queued.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Run starts the workers and blocks until they have all stopped.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.Start(ctx)
	d.wg.Wait()
	return nil
}

// Wait blocks until every worker launched by Start has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Notify queues msg and returns without waiting for delivery. It blocks only
// while the target worker's buffer is full.
func (d *Dispatcher) Notify(ctx context.Context, msg ports.Message) error {
	idx := d.shardIndex(msg.To)
	select {
	case d.workers[idx] <- msg:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ErrQueueFull
	}
}

// shardIndex maps an address deterministically to a worker index.
func (d *Dispatcher) shardIndex(address string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(address)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.Message) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			d.drain(id, ch)
			return
		case msg := <-ch:
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if ctx.Err() != nil {
				d.drain(id, ch, msg)
				return
			}
			d.deliver(ctx, id, msg)
		}
	}
}

// drain delivers messages still buffered at shutdown under a fresh deadline.
func (d *Dispatcher) drain(id int, ch <-chan ports.Message, pending ...ports.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for _, msg := range pending {
		d.deliver(ctx, id, msg)
	}

	for {
		select {
		case msg := <-ch:
			d.deliver(ctx, id, msg)
		default:
			metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id)).Set(0)
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, msg ports.Message) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.next.Notify(sendCtx, msg)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		d.log.Error().Err(err).
			Str("to", msg.To).
			Int("worker_id", id).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
}
