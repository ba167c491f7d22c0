// Package id provides 128-bit event identifiers.
//
// Event ids travel as github.com/google/uuid values. On the wire and on disk an
// id is two big-endian 64-bit halves (high, then low), which is exactly the
// 16-byte uuid layout; Halves and FromHalves convert between the two views.
//
// # Generator
//
// Generator produces time-ordered ids for clients that do not bring their own:
// [8 bytes ms_timestamp][8 bytes sequence], stamped with the RFC 9562 version 7
// and variant bits so the result is a valid UUID.
//
//   - If the system clock regresses, it pins to the last seen millisecond and
//     keeps incrementing the sequence.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond.
//
// Usage
//
//	g := id.NewGenerator()
//	evID := g.Next()
//	hi, lo := id.Halves(evID)
package id
