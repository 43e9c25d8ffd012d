package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Dispatcher fans events out to sinks from a single goroutine.
// Publish never blocks; when the queue is full the event is dropped.
type Dispatcher struct {
	queue       chan Event
	sinks       []Sink
	sinkTimeout time.Duration
	log         *logrus.Entry
	dropped     atomic.Int64
	onDrop      func()
}

type DispatcherOption func(*Dispatcher)

// WithDropHook is called once per dropped event
func WithDropHook(fn func()) DispatcherOption {
	return func(d *Dispatcher) {
		d.onDrop = fn
	}
}

func WithSinkTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.sinkTimeout = timeout
	}
}

func NewDispatcher(buffer int, log *logrus.Entry, sinks []Sink, opts ...DispatcherOption) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	d := &Dispatcher{
		queue:       make(chan Event, buffer),
		sinks:       sinks,
		sinkTimeout: 3 * time.Second,
		log:         log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Publish(ev Event) {
	select {
	case d.queue <- ev:
	default:
		d.dropped.Add(1)
		if d.onDrop != nil {
			d.onDrop()
		}
		d.log.WithFields(logrus.Fields{
			"event_type": ev.Type,
			"entity_id":  ev.EntityID,
		}).Warn("event queue full, dropping event")
	}
}

// Dropped reports how many events were discarded because the queue was full
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Run delivers events until ctx is cancelled, then flushes whatever is still queued.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case ev := <-d.queue:
			d.deliver(context.Background(), ev)
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case ev := <-d.queue:
			d.deliver(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev Event) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.sinkTimeout)
		err := sink.Handle(sinkCtx, ev)
		cancel()
		if err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{
				"sink":       sink.Name(),
				"event_type": ev.Type,
				"entity_id":  ev.EntityID,
			}).Error("sink failed to handle event")
		}
	}
}
