package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dshills/lazyrc/internal/trigger"
)

// Handler handles one message.
type Handler func(ctx context.Context, msg Message) error

// Queue is a FIFO of messages with many producers and one consumer.
type Queue struct {
	config queueConfig

	mu      sync.Mutex
	pending []Message
	closed  bool

	// notify has capacity one; a pending signal means "look again".
	notify chan struct{}

	// space is closed and replaced whenever a message leaves a full queue
	// or the queue closes.
	space chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue(opts ...QueueOption) *Queue {
	config := defaultQueueConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Queue{
		config: config,
		notify: make(chan struct{}, 1),
		space:  make(chan struct{}),
	}
}

// Post appends a message to the queue.
func (q *Queue) Post(msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.config.capacity > 0 && len(q.pending) >= q.config.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	q.config.logger.Debug().
		Str("id", msg.ID).
		Str("kind", msg.Kind.String()).
		Str("trigger", msg.Trigger.String()).
		Str("source", msg.Source).
		Msg("message posted")

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// PostWait appends a message, waiting for room while the queue is at
// capacity. It must not be called from the consumer, which is the only
// goroutine that makes room.
func (q *Queue) PostWait(ctx context.Context, msg Message) error {
	for {
		err := q.Post(msg)
		if !errors.Is(err, ErrQueueFull) {
			return err
		}

		q.mu.Lock()
		full := q.config.capacity > 0 && len(q.pending) >= q.config.capacity && !q.closed
		space := q.space
		q.mu.Unlock()
		if !full {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-space:
		}
	}
}

// Fire posts a KindFire message for t.
func (q *Queue) Fire(t trigger.Trigger) error {
	return q.Post(NewFire(t, q.config.source))
}

// Bind posts a KindBind message binding t to the extension name.
func (q *Queue) Bind(t trigger.Trigger, name string) error {
	return q.Post(NewBind(t, name, q.config.source))
}

// Len returns the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close stops the queue from accepting messages. Pending messages can
// still be drained. Close wakes a blocked Run.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.space)
	q.space = make(chan struct{})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Closed returns true once Close was called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Drain handles pending messages until the queue is empty, including
// messages posted by the handler itself. Handler failures are collected
// as *HandlerError or *PanicError and joined; they never stop the drain.
// A cancelled context stops the drain between messages.
func (q *Queue) Drain(ctx context.Context, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}

	var errs []error
	for {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		msg, ok := q.pop()
		if !ok {
			return errors.Join(errs...)
		}
		if err := q.handle(ctx, h, msg); err != nil {
			errs = append(errs, err)
		}
	}
}

// Run drains the queue every time a message is posted, until ctx is done
// or the queue is closed and empty. onErr, if non-nil, receives the error
// of each drain.
func (q *Queue) Run(ctx context.Context, h Handler, onErr func(error)) error {
	return q.RunUntil(ctx, h, onErr, nil)
}

// RunUntil is Run that also returns once stop is closed and a drain leaves
// the queue empty. The queue stays open, so messages handled in the final
// drain can still post follow-up messages.
func (q *Queue) RunUntil(ctx context.Context, h Handler, onErr func(error), stop <-chan struct{}) error {
	if h == nil {
		return ErrNilHandler
	}
	stopped := false
	for {
		if err := q.Drain(ctx, h); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if onErr != nil {
				onErr(err)
			}
		}
		if (stopped || q.Closed()) && q.Len() == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.notify:
		case <-stop:
			stopped = true
			stop = nil
		}
	}
}

func (q *Queue) pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Message{}, false
	}
	msg := q.pending[0]
	q.pending[0] = Message{}
	q.pending = q.pending[1:]
	if q.config.capacity > 0 && len(q.pending) == q.config.capacity-1 {
		close(q.space)
		q.space = make(chan struct{})
	}
	return msg, true
}

// handle runs h for one message with panic recovery.
func (q *Queue) handle(ctx context.Context, h Handler, msg Message) (err error) {
	log := q.config.logger.With().Str("id", msg.ID).Str("kind", msg.Kind.String()).Logger()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("handler panicked")
			err = &PanicError{MessageID: msg.ID, Value: r}
		}
	}()

	if herr := h(log.WithContext(ctx), msg); herr != nil {
		log.Debug().Err(herr).Msg("handler failed")
		return &HandlerError{MessageID: msg.ID, Kind: msg.Kind, Err: herr}
	}
	return nil
}

// String describes the queue for debugging.
func (q *Queue) String() string {
	return fmt.Sprintf("event.Queue{pending: %d, closed: %t}", q.Len(), q.Closed())
}
