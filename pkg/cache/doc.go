// Package cache stores rendered artifacts so identical jobs skip the backend.
//
// # Overview
//
// A render job is deterministic in its input: the same labeled tree, or the
// same DOT file contents, always produces the same PNG. When caching is
// enabled the render layer looks up the artifact by a hash of that input and,
// on a hit, writes the cached bytes to <target>.png instead of starting a
// backend process.
//
// # Backends
//
//   - [NullCache]: never stores anything (the default)
//   - [FileCache]: one file per entry under a cache directory
//   - [RedisCache]: shared cache for several services on one host
//
// # Keys
//
// [Keyer] derives keys from the job kind and input bytes. Wrap it with
// [NewScopedKeyer] to namespace keys by backend configuration, so changing
// the renderer command invalidates old entries.
package cache
