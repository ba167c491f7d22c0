// Package eventlog implements the per-stream append-only event logs.
//
// # Overview
//
// Every backend implements Stream: unconditional Append, AppendIfHeadIs for
// optimistic concurrency, and ReadFrom which plays events strictly after a
// cursor id, in append order, up to maxCount. A nil cursor starts at the first
// event; a cursor that never appeared in the stream yields no events and no
// error.
//
// Three variants exist:
//   - MemoryStream: ordered slice seeded with a nil-id sentinel.
//   - DiskStream: a data file plus a sequential (id, offset) index file.
//   - PebbleStream: entries, an id lookup and head metadata in Pebble.
//
// # Disk format
//
// Data file, repeated, big-endian, no header:
//
//	id(16) | writeTimeMs(8) | payloadLen(2) | payload
//
// Index file, one 20-byte record per append in the same order:
//
//	id(16) | offset(4)
//
// The data record is fsynced before an append is acknowledged; the index is
// written after it and synced in the background (see DiskStream.SyncIndex).
// Offsets are 32-bit, bounding a stream's data file to math.MaxInt32 bytes;
// appends past that fail with ErrStreamFull.
//
// All backends honor maxCount. The original disk playback ran to end of file
// regardless of maxCount; reads are now bounded on every backend while the
// files themselves are unchanged.
//
// # Pebble keyspace
//
//	s/{len_be2}{name}/m              lastSeq(8) | head(16)
//	s/{len_be2}{name}/e/{seq_be8}    crc32c-protected record
//	s/{len_be2}{name}/i/{id16}       seq of the first event with that id
//
// # Concurrency
//
// Each stream serializes appends with a write lock held across the head check,
// the durable write and the head update. Readers snapshot the committed size
// under the read lock and never read past it, so they cannot observe a torn
// tail and do not block writers while the consumer runs.
package eventlog
