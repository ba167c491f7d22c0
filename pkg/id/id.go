package id

import (
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Nil is the reserved "no events yet" identifier.
var Nil = uuid.Nil

// seqMask keeps the sequence clear of the version and variant bits.
const seqMask = (uint64(1) << 62) - 1

// Halves splits u into its big-endian high and low 64-bit halves.
func Halves(u uuid.UUID) (hi, lo uint64) {
	return binary.BigEndian.Uint64(u[0:8]), binary.BigEndian.Uint64(u[8:16])
}

// FromHalves assembles a uuid from big-endian halves.
func FromHalves(hi, lo uint64) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint64(u[0:8], hi)
	binary.BigEndian.PutUint64(u[8:16], lo)
	return u
}

// Parse accepts the canonical uuid forms plus the bare words "nil" and "head"
// (both meaning Nil).
func Parse(s string) (uuid.UUID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nil", "head":
		return uuid.Nil, nil
	}
	return uuid.Parse(strings.TrimSpace(s))
}

// Generator produces monotonically increasing ids per process.
type Generator struct {
	mu       sync.Mutex
	lastMs   int64
	sequence uint64
}

// NewGenerator creates a new Generator.
func NewGenerator() *Generator { return &Generator{} }

// NowMs returns current time in milliseconds since Unix epoch.
var NowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new id. If the clock goes backwards it reuses lastMs and
// increments the sequence; on sequence overflow it waits for the next ms.
func (g *Generator) Next() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := NowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}

	if ms == g.lastMs {
		if g.sequence == seqMask {
			for {
				ms = NowMs()
				if ms > g.lastMs {
					break
				}
				time.Sleep(time.Millisecond / 8)
			}
			g.sequence = 0
		} else {
			g.sequence++
		}
	} else {
		g.sequence = 0
	}

	g.lastMs = ms
	return makeID(ms, g.sequence)
}

// makeID lays out [48-bit ms][4-bit version][12 bits seq][2-bit variant][50 bits seq].
func makeID(ms int64, seq uint64) uuid.UUID {
	var u uuid.UUID
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(ms))
	copy(u[0:6], ts[2:8])
	hiSeq := (seq >> 50) & 0x0fff
	u[6] = 0x70 | byte(hiSeq>>8)
	u[7] = byte(hiSeq)
	binary.BigEndian.PutUint64(u[8:16], seq&((uint64(1)<<50)-1))
	u[8] = (u[8] & 0x3f) | 0x80
	return u
}

// Compare returns -1, 0, 1 based on byte-wise comparison.
func Compare(a, b uuid.UUID) int {
	for i := 0; i < 16; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
