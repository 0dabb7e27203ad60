// Package messaging publishes events to a message broker.
//
// Callers depend on Publisher only. The broker (Kafka, NATS, NSQ or Google
// Pub/Sub) is picked by driver name at wiring time, and an empty driver
// selects Noop so events are dropped without error.
package messaging
