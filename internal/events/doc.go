// Package events defines the task lifecycle event model and the transport
// contracts around it.
//
// Events are immutable once created. They are produced synchronously at the
// point of a task mutation, routed to a topic by event type, keyed by the
// owning user ID (per-user ordering), and delivered at least once to
// handlers registered by event type. Publishing is best-effort: a failed
// publish never rolls back the mutation that produced the event.
//
// Two transports implement the contracts: the Kafka producer/consumer in
// internal/platform/kafka, and the in-process ChannelBus used when no
// broker is configured. NoopPublisher stands in when eventing is disabled.
package events
