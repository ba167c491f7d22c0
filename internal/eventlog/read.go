package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const readBufferSize = 64 << 10

// snapshot is the committed extent of a disk stream at one instant.
type snapshot struct {
	size    int64
	indexed int64
	pending []indexEntry
}

func (s *DiskStream) snapshot() (snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return snapshot{}, ErrClosed
	}
	return snapshot{
		size:    s.size,
		indexed: s.indexed,
		pending: append([]indexEntry(nil), s.pending...),
	}, nil
}

// ReadFrom plays events after cursor. The index is scanned sequentially for
// the first record carrying the cursor id.
func (s *DiskStream) ReadFrom(cursor uuid.UUID, maxCount int, fn func(Event) error) error {
	if maxCount <= 0 {
		return nil
	}
	snap, err := s.snapshot()
	if err != nil {
		return err
	}
	start := int64(0)
	skipFirst := false
	if cursor != uuid.Nil {
		offset, ok, err := s.lookup(snap, cursor)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		start, skipFirst = offset, true
	}
	return s.play(start, snap.size, skipFirst, maxCount, fn)
}

func (s *DiskStream) lookup(snap snapshot, id uuid.UUID) (int64, bool, error) {
	r := bufio.NewReaderSize(io.NewSectionReader(s.index, 0, snap.indexed*indexRecordSize), readBufferSize)
	buf := make([]byte, indexRecordSize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, false, fmt.Errorf("eventlog: scan index: %w", err)
		}
		if uuid.UUID(buf[0:16]) == id {
			return int64(decodeIndexEntry(buf).Offset), true, nil
		}
	}
	for _, e := range snap.pending {
		if e.ID == id {
			return int64(e.Offset), true, nil
		}
	}
	return 0, false, nil
}

func (s *DiskStream) play(start, end int64, skipFirst bool, maxCount int, fn func(Event) error) error {
	r := bufio.NewReaderSize(io.NewSectionReader(s.data, start, end-start), readBufferSize)
	var hdr [dataHeaderSize]byte
	if skipFirst {
		if _, err := readDataRecord(r, &hdr); err != nil {
			return fmt.Errorf("%w: cursor record: %v", ErrCorruptRecord, err)
		}
	}
	for n := 0; n < maxCount; n++ {
		rec, err := readDataRecord(r, &hdr)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		if err := fn(Event{ID: rec.ID, Payload: rec.Payload}); err != nil {
			return err
		}
	}
	return nil
}
