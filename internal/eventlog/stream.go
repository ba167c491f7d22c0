package eventlog

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxPayloadSize is the largest payload a 16-bit length prefix can describe.
const MaxPayloadSize = 0xFFFF

var (
	ErrPayloadTooLarge = errors.New("eventlog: payload exceeds 65535 bytes")
	ErrStreamFull      = errors.New("eventlog: data file exceeds 32-bit offset range")
	ErrClosed          = errors.New("eventlog: stream closed")
	ErrCorruptRecord   = errors.New("eventlog: corrupt record")
)

// Event is one immutable entry of a stream.
type Event struct {
	ID      uuid.UUID
	Payload []byte
}

// WriteResult describes the outcome of a single write. A failed result is a
// normal outcome (e.g. head mismatch), not a fault.
type WriteResult struct {
	Success bool
	Message string
}

// Succeeded is the result of an accepted append.
func Succeeded(id uuid.UUID) WriteResult {
	return WriteResult{Success: true, Message: "wrote " + id.String()}
}

// HeadMismatch is the result of a rejected conditional append.
func HeadMismatch(expected, actual uuid.UUID) WriteResult {
	return WriteResult{
		Success: false,
		Message: fmt.Sprintf("head needed to be %s but was %s", expected, actual),
	}
}

// Stream is an append-only, ordered sequence of events.
//
// Errors returned by Stream methods are backend faults. Consumers passed to
// ReadFrom must not retain or modify Event.Payload after returning.
type Stream interface {
	// Append adds an event unconditionally.
	Append(id uuid.UUID, payload []byte) (WriteResult, error)
	// AppendIfHeadIs appends only when the current head equals expected.
	AppendIfHeadIs(expected, id uuid.UUID, payload []byte) (WriteResult, error)
	// ReadFrom calls fn for up to maxCount events strictly after cursor.
	// A non-nil error from fn stops the read and is returned.
	ReadFrom(cursor uuid.UUID, maxCount int, fn func(Event) error) error
	// Head returns the id of the last appended event, or uuid.Nil.
	Head() uuid.UUID
	Close() error
}

// IndexSyncer is implemented by streams whose index is written lazily.
type IndexSyncer interface {
	SyncIndex() error
}

func checkPayload(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	return nil
}
