package eventlog

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryStream keeps events in an ordered slice. events[0] is a sentinel with
// the nil id so a nil cursor and an empty stream's head fall out of the same
// linear scan.
type MemoryStream struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStream returns an empty in-memory stream.
func NewMemoryStream() *MemoryStream {
	return &MemoryStream{events: []Event{{ID: uuid.Nil, Payload: []byte{}}}}
}

func (s *MemoryStream) Append(id uuid.UUID, payload []byte) (WriteResult, error) {
	if err := checkPayload(payload); err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(id, payload)
	return Succeeded(id), nil
}

func (s *MemoryStream) AppendIfHeadIs(expected, id uuid.UUID, payload []byte) (WriteResult, error) {
	if err := checkPayload(payload); err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if head := s.events[len(s.events)-1].ID; head != expected {
		return HeadMismatch(expected, head), nil
	}
	s.appendLocked(id, payload)
	return Succeeded(id), nil
}

func (s *MemoryStream) appendLocked(id uuid.UUID, payload []byte) {
	s.events = append(s.events, Event{ID: id, Payload: append([]byte{}, payload...)})
}

func (s *MemoryStream) ReadFrom(cursor uuid.UUID, maxCount int, fn func(Event) error) error {
	if maxCount <= 0 {
		return nil
	}
	s.mu.RLock()
	// Elements below len are never rewritten, so the slice header is a snapshot.
	events := s.events
	s.mu.RUnlock()

	start := -1
	for i := range events {
		if events[i].ID == cursor {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}
	for i := start; i < len(events) && i-start < maxCount; i++ {
		if err := fn(events[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStream) Head() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events[len(s.events)-1].ID
}

// Len reports the number of appended events.
func (s *MemoryStream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events) - 1
}

func (s *MemoryStream) Close() error { return nil }
