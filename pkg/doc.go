// Package pkg holds the libraries behind the graphwriter service.
//
// # Overview
//
// graphwriter renders labeled syntax trees and Graphviz graphs to PNG files.
// Callers hand jobs to a long-running loopback service, which serializes them
// through a bounded queue and renders them on a fixed pool of workers:
//
//	client ── TCP ──▶ acceptor ──▶ queue ──▶ workers ──▶ render backend ──▶ <target>.png
//
// # Packages
//
//   - [request]: the job type and its zero-byte wire framing
//   - [queue]: bounded FIFO ring with blocking publish and take
//   - [control]: the one-way running to shutting-down transition
//   - [server]: acceptor, worker pool, and service lifecycle
//   - [render]: backend processes, in-process Graphviz, artifact caching
//   - [client]: probe, start, submit, and shutdown from another process
//   - [config]: TOML configuration with defaults
//   - [cache]: artifact cache backends (file, Redis, null)
//   - [observability] and [metrics]: event hooks and their Prometheus collectors
//   - [admin]: loopback HTTP health, stats, and metrics endpoints
//   - [errors]: coded errors shared by every package
//   - [buildinfo]: version information
//
// # Wire Format
//
// One request per connection, two UTF-8 fields each terminated by a zero
// byte, no response:
//
//	<target> 0x00 <payload> 0x00
//
// The targets "quit" and "ignore" are control requests. The payload
// "graphviz" asks for <target>.dot to be rendered instead of a syntax tree.
package pkg
