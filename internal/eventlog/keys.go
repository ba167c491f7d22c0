package eventlog

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
// - s/{len_be2}{name}/m
// - s/{len_be2}{name}/e/{seq_be8}
// - s/{len_be2}{name}/i/{id16}
//
// The length prefix keeps one stream's keys from being a prefix range of
// another stream whose name extends it.

var (
	streamPrefix = []byte("s/")
	metaSuffix   = []byte("/m")
	entrySeg     = []byte("/e/")
	idSeg        = []byte("/i/")
)

func appendBE2(dst []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(dst, v)
}

func appendBE8(dst []byte, v uint64) []byte {
	return binary.BigEndian.AppendUint64(dst, v)
}

func keyStream(name string, extra int) []byte {
	k := make([]byte, 0, len(streamPrefix)+2+len(name)+extra)
	k = append(k, streamPrefix...)
	k = appendBE2(k, uint16(len(name)))
	k = append(k, name...)
	return k
}

// KeyStreamMeta builds the stream metadata key (last sequence and head id).
func KeyStreamMeta(name string) []byte {
	k := keyStream(name, len(metaSuffix))
	return append(k, metaSuffix...)
}

// KeyStreamEntry builds the entry key with a big-endian sequence for proper ordering.
func KeyStreamEntry(name string, seq uint64) []byte {
	k := keyStream(name, len(entrySeg)+8)
	k = append(k, entrySeg...)
	return appendBE8(k, seq)
}

// KeyStreamID builds the id lookup key used to resolve read cursors.
func KeyStreamID(name string, id uuid.UUID) []byte {
	k := keyStream(name, len(idSeg)+16)
	k = append(k, idSeg...)
	return append(k, id[:]...)
}

// splitStreamKey returns the stream name of any stream key and the suffix
// that follows it.
func splitStreamKey(k []byte) (string, []byte, bool) {
	if len(k) < len(streamPrefix)+2 || string(k[:len(streamPrefix)]) != string(streamPrefix) {
		return "", nil, false
	}
	n := int(binary.BigEndian.Uint16(k[len(streamPrefix):]))
	rest := k[len(streamPrefix)+2:]
	if len(rest) < n {
		return "", nil, false
	}
	return string(rest[:n]), rest[n:], true
}

// KeyStreamNameFromMeta extracts the stream name from a metadata key.
func KeyStreamNameFromMeta(k []byte) (string, bool) {
	name, suffix, ok := splitStreamKey(k)
	if !ok || string(suffix) != string(metaSuffix) {
		return "", false
	}
	return name, true
}
