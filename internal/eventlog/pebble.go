package eventlog

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	pebblestore "github.com/rzbill/eventual/internal/storage/pebble"
)

const metaValueSize = 8 + 16

// PebbleStream stores a stream's events, id lookup and head in Pebble.
type PebbleStream struct {
	mu      sync.RWMutex
	db      *pebblestore.DB
	name    string
	lastSeq uint64
	head    uuid.UUID
	closed  bool
	nowMs   func() int64
}

// OpenPebbleStream loads the stream metadata for name, creating nothing until
// the first append.
func OpenPebbleStream(db *pebblestore.DB, name string) (*PebbleStream, error) {
	if name == "" || len(name) > 0xFFFF {
		return nil, fmt.Errorf("eventlog: invalid stream name length %d", len(name))
	}
	s := &PebbleStream{
		db:    db,
		name:  name,
		nowMs: func() int64 { return time.Now().UnixMilli() },
	}
	meta, err := db.Get(KeyStreamMeta(name))
	switch {
	case errors.Is(err, pebblestore.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("eventlog: load meta %q: %w", name, err)
	case len(meta) != metaValueSize:
		return nil, fmt.Errorf("%w: meta for %q has %d bytes", ErrCorruptRecord, name, len(meta))
	default:
		s.lastSeq = binary.BigEndian.Uint64(meta[0:8])
		copy(s.head[:], meta[8:24])
	}
	return s, nil
}

func (s *PebbleStream) Append(id uuid.UUID, payload []byte) (WriteResult, error) {
	if err := checkPayload(payload); err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.appendLocked(id, payload); err != nil {
		return WriteResult{}, err
	}
	return Succeeded(id), nil
}

func (s *PebbleStream) AppendIfHeadIs(expected, id uuid.UUID, payload []byte) (WriteResult, error) {
	if err := checkPayload(payload); err != nil {
		return WriteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return WriteResult{}, ErrClosed
	}
	if s.head != expected {
		return HeadMismatch(expected, s.head), nil
	}
	if err := s.appendLocked(id, payload); err != nil {
		return WriteResult{}, err
	}
	return Succeeded(id), nil
}

func (s *PebbleStream) appendLocked(id uuid.UUID, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	seq := s.lastSeq + 1

	b := s.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeyStreamEntry(s.name, seq), encodeEntry(id, s.nowMs(), payload), nil); err != nil {
		return err
	}
	// Cursors resolve to the first event carrying an id.
	idKey := KeyStreamID(s.name, id)
	if _, err := s.db.Get(idKey); errors.Is(err, pebblestore.ErrNotFound) {
		if err := b.Set(idKey, appendBE8(nil, seq), nil); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("eventlog: id lookup: %w", err)
	}
	meta := make([]byte, 0, metaValueSize)
	meta = appendBE8(meta, seq)
	meta = append(meta, id[:]...)
	if err := b.Set(KeyStreamMeta(s.name), meta, nil); err != nil {
		return err
	}
	if err := s.db.CommitBatch(context.Background(), b); err != nil {
		return fmt.Errorf("eventlog: commit append: %w", err)
	}
	s.lastSeq = seq
	s.head = id
	return nil
}

func (s *PebbleStream) ReadFrom(cursor uuid.UUID, maxCount int, fn func(Event) error) error {
	if maxCount <= 0 {
		return nil
	}
	s.mu.RLock()
	closed, last := s.closed, s.lastSeq
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	start := uint64(1)
	if cursor != uuid.Nil {
		v, err := s.db.Get(KeyStreamID(s.name, cursor))
		if errors.Is(err, pebblestore.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("eventlog: id lookup: %w", err)
		}
		if len(v) != 8 {
			return fmt.Errorf("%w: id entry has %d bytes", ErrCorruptRecord, len(v))
		}
		start = binary.BigEndian.Uint64(v) + 1
	}
	if start > last {
		return nil
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: KeyStreamEntry(s.name, start),
		UpperBound: KeyStreamEntry(s.name, last+1),
	})
	if err != nil {
		return err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok && n < maxCount; ok = iter.Next() {
		ev, err := decodeEntry(iter.Value())
		if err != nil {
			return fmt.Errorf("eventlog: seq %d: %w", binary.BigEndian.Uint64(iter.Key()[len(iter.Key())-8:]), err)
		}
		if err := fn(ev); err != nil {
			return err
		}
		n++
	}
	return iter.Error()
}

func (s *PebbleStream) Head() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Close detaches the stream; the shared DB is closed by its owner.
func (s *PebbleStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// PebbleStreamNames lists the streams that have at least one event in db.
func PebbleStreamNames(db *pebblestore.DB) ([]string, error) {
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: streamPrefix,
		UpperBound: []byte("s0"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var names []string
	for ok := iter.First(); ok; {
		name, _, isStream := splitStreamKey(iter.Key())
		if !isStream {
			ok = iter.Next()
			continue
		}
		meta := KeyStreamMeta(name)
		if iter.SeekGE(meta) && bytes.Equal(iter.Key(), meta) {
			names = append(names, name)
		}
		// Jump past every key of this stream.
		ok = iter.SeekGE(append(keyStream(name, 1), '0'))
	}
	return names, iter.Error()
}
