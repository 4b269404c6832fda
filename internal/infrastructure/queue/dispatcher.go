package queue

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 64
	processTimeout = 30 * time.Second
)

var _ ports.WebhookQueue = (*Dispatcher)(nil)

type job struct {
	ev   ports.WebhookEvent
	done chan error
}

// Dispatcher routes verified webhook events to a fixed set of workers by
// hashing the profile id, so events for one profile are applied in order.
type Dispatcher struct {
	workers   []chan job
	processor ports.WebhookProcessor
	log       zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, processor ports.WebhookProcessor, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan job, numWorkers),
		processor: processor,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Submit hands ev to the worker owning its profile and waits for the result.
// When ctx ends first the event may still be processed later.
func (d *Dispatcher) Submit(ctx context.Context, ev ports.WebhookEvent) error {
	j := job{ev: ev, done: make(chan error, 1)}
	select {
	case d.workers[d.shardIndex(ev.ProfileID)] <- j:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) shardIndex(profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			j.done <- d.process(ctx, id, j.ev)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, id int, ev ports.WebhookEvent) error {
	ctx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	err := d.processor.Process(ctx, ev)
	if err != nil {
		d.log.Error().Err(err).
			Str("event_id", ev.ID).
			Str("event_type", ev.Type).
			Str("profile_id", ev.ProfileID).
			Int("worker_id", id).
			Msg("webhook processing failed")
	}
	return err
}
