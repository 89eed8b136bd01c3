package domain

import (
	"context"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Standard) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// GlobalTenant is the cross-tenant sentinel. A subscription made with it
// receives every tenant's messages on the topic; workers use it to serve
// tenants that are not known up front. On NATS it doubles as the subject
// wildcard token.
const GlobalTenant = "*"

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string

	// Channel settings (Standard tier)
	ChannelBufferSize int

	// NATS settings (Pro tier)
	NATSUrl           string
	NATSToken         string
	NATSMaxReconnects int
	NATSReconnectWait int // seconds
}

// Standard topic names for the ranking pipeline.
const (
	TopicItemCreated      = "stratum.item.created"
	TopicItemUpdated      = "stratum.item.updated"
	TopicItemDeleted      = "stratum.item.deleted"
	TopicConfigUpdated    = "stratum.config.updated"
	TopicRankingRequested = "stratum.ranking.requested"
	TopicRankingCompleted = "stratum.ranking.completed"
	TopicRankingFailed    = "stratum.ranking.failed"
	TopicReviewFlagged    = "stratum.review.flagged"
)
