// Package queue provides the bounded FIFO that decouples connection intake
// from rendering.
//
// # Overview
//
// [Queue] is a ring of pre-allocated request slots sized to a power of two.
// Producers block in [Queue.Publish] while the ring is full and consumers
// block in [Queue.Take] while it is empty, so a burst of clients is throttled
// by render throughput instead of growing memory without bound.
//
// # Guarantees
//
//   - FIFO: requests are taken in the order their Publish calls completed.
//   - Two-phase visibility: a slot is written completely before it is
//     announced to consumers, so a consumer never observes a partial request.
//   - Any number of producers and consumers may call concurrently; the queue
//     serializes them internally.
//
// Both blocking calls honor context cancellation, which is how the server
// releases parked connection handlers and idle workers at shutdown.
package queue
