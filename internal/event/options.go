package event

import "github.com/rs/zerolog"

// QueueOption configures a Queue.
type QueueOption func(*queueConfig)

// queueConfig contains configuration for the queue.
type queueConfig struct {
	// capacity is the maximum number of pending messages. Zero means unbounded.
	capacity int

	// source is used by Fire and Bind when posting.
	source string

	logger zerolog.Logger
}

// defaultQueueConfig returns the default queue configuration.
func defaultQueueConfig() queueConfig {
	return queueConfig{
		capacity: 1024,
		source:   "queue",
		logger:   zerolog.Nop(),
	}
}

// WithCapacity sets the maximum number of pending messages.
// Zero removes the limit.
func WithCapacity(n int) QueueOption {
	return func(c *queueConfig) {
		if n >= 0 {
			c.capacity = n
		}
	}
}

// WithSource sets the source recorded on messages posted through Fire and Bind.
func WithSource(source string) QueueOption {
	return func(c *queueConfig) {
		if source != "" {
			c.source = source
		}
	}
}

// WithLogger sets the queue logger.
func WithLogger(logger zerolog.Logger) QueueOption {
	return func(c *queueConfig) {
		c.logger = logger
	}
}
