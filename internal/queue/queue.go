// Package queue defines the transport that carries speech requests from
// ingestion to the processor. Implementations exist for Kafka and for an
// in-process channel; both deliver messages with the same key in order.
package queue

import (
	"context"
	"strconv"
)

// Message is a single transport message.
type Message struct {
	// Key is the partition key. Speech requests use the guild id so one
	// guild's messages stay in order.
	Key []byte

	// Value is the serialized payload.
	Value []byte

	// Headers contains optional metadata.
	Headers map[string]string
}

// GuildKey encodes a guild id as a partition key.
func GuildKey(guildID uint64) []byte {
	return []byte(strconv.FormatUint(guildID, 10))
}

// Producer publishes messages to the transport.
// Implementations must be safe for concurrent use.
type Producer interface {
	// Publish sends a message. Messages with the same key are delivered in order.
	Publish(ctx context.Context, msg *Message) error

	// Close releases any resources held by the producer.
	Close() error
}

// MessageHandler processes one consumed message.
// Returning an error leaves the message uncommitted where the transport supports it.
type MessageHandler func(ctx context.Context, msg *Message) error

// Consumer reads messages from the transport.
type Consumer interface {
	// Start consumes messages and calls handler for each one.
	// It blocks until ctx is canceled or the transport is closed.
	Start(ctx context.Context, handler MessageHandler) error

	// Close stops consuming and releases any resources.
	Close() error
}
