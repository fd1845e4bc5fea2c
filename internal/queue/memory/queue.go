// Package memory provides an in-process transport backed by a buffered channel.
// It is used in memory mode and in tests.
package memory

import (
	"context"
	"log/slog"
	"sync"

	"guildq/internal/queue"
)

// Queue implements both queue.Producer and queue.Consumer.
// It is safe for concurrent use. A single consumer preserves publish order.
type Queue struct {
	messages chan *queue.Message
	done     chan struct{}
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// NewQueue creates a transport that buffers up to bufferSize messages
// before Publish blocks.
func NewQueue(bufferSize int, logger *slog.Logger) *Queue {
	return &Queue{
		messages: make(chan *queue.Message, bufferSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Publish sends a message, blocking while the buffer is full until space
// is available, ctx is canceled or the queue is closed.
func (q *Queue) Publish(ctx context.Context, msg *queue.Message) error {
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()

	if closed {
		return ErrQueueClosed
	}

	// messages is never closed, so a send racing Close is safe
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return ErrQueueClosed
	}
}

// Start consumes messages until ctx is canceled or the queue is closed.
// On close, messages already buffered are handled before Start returns.
func (q *Queue) Start(ctx context.Context, handler queue.MessageHandler) error {
	q.wg.Add(1)
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-q.messages:
			q.handle(ctx, handler, msg)
		case <-q.done:
			for {
				select {
				case msg := <-q.messages:
					q.handle(ctx, handler, msg)
				default:
					return nil
				}
			}
		}
	}
}

func (q *Queue) handle(ctx context.Context, handler queue.MessageHandler, msg *queue.Message) {
	if err := handler(ctx, msg); err != nil {
		// no redelivery in memory mode
		q.logger.Warn("dropping message after handler error",
			"key", string(msg.Key),
			"error", err,
		)
	}
}

// Close shuts down the queue, releases blocked publishers and waits for
// consumers to return.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// Len returns the number of buffered messages.
func (q *Queue) Len() int {
	return len(q.messages)
}
