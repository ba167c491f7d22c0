package eventlog

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IndexSuffix is appended to a stream's data file name to form its index file.
const IndexSuffix = ".idx"

var ErrInvalidName = errors.New("eventlog: stream name must not be empty")

// FileName returns the data file name used for a stream. Names made of
// letters, digits and -_.~ map to themselves. Dots are escaped as %2E when
// the name would otherwise be "." or "..", or end in the index suffix;
// url.PathEscape never emits %2E, so the mapping stays reversible.
func FileName(name string) string {
	file := url.PathEscape(name)
	if strings.Trim(file, ".") == "" || strings.HasSuffix(file, IndexSuffix) {
		file = strings.ReplaceAll(file, ".", "%2E")
	}
	return file
}

// DiskStream is a stream persisted as a data file and an offset index file.
type DiskStream struct {
	mu      sync.RWMutex
	name    string
	data    *os.File
	index   *os.File
	size    int64 // committed data bytes
	indexed int64 // index records present in the index file
	pending []indexEntry
	head    uuid.UUID
	closed  bool
	nowMs   func() int64
}

// OpenDiskStream opens or creates the files for name under dir and recovers
// the head id from existing data.
func OpenDiskStream(dir, name string) (*DiskStream, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	file := FileName(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("eventlog: create data dir: %w", err)
	}
	data, err := os.OpenFile(filepath.Join(dir, file), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open data file: %w", err)
	}
	index, err := os.OpenFile(filepath.Join(dir, file+IndexSuffix), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		_ = data.Close()
		return nil, fmt.Errorf("eventlog: open index file: %w", err)
	}
	s := &DiskStream{
		name:  name,
		data:  data,
		index: index,
		nowMs: func() int64 { return time.Now().UnixMilli() },
	}
	if err := s.recover(); err != nil {
		_ = data.Close()
		_ = index.Close()
		return nil, fmt.Errorf("eventlog: recover %q: %w", name, err)
	}
	return s, nil
}

// Name returns the stream name.
func (s *DiskStream) Name() string { return s.name }

func (s *DiskStream) Append(id uuid.UUID, payload []byte) (WriteResult, error) {
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

func (s *DiskStream) AppendIfHeadIs(expected, id uuid.UUID, payload []byte) (WriteResult, error) {
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

func (s *DiskStream) appendLocked(id uuid.UUID, payload []byte) error {
	if s.closed {
		return ErrClosed
	}
	offset := s.size
	if offset > math.MaxInt32 {
		return ErrStreamFull
	}
	rec := encodeDataRecord(id, s.nowMs(), payload)
	if _, err := s.data.WriteAt(rec, offset); err != nil {
		s.rollback(offset)
		return fmt.Errorf("eventlog: write data: %w", err)
	}
	if err := s.data.Sync(); err != nil {
		s.rollback(offset)
		return fmt.Errorf("eventlog: sync data: %w", err)
	}
	s.size += int64(len(rec))
	s.head = id

	// The event is durable at this point; a failed index write stays pending
	// and is retried by the next append or SyncIndex.
	s.pending = append(s.pending, indexEntry{ID: id, Offset: uint32(offset)})
	_ = s.flushPendingLocked()
	return nil
}

func (s *DiskStream) rollback(offset int64) {
	_ = s.data.Truncate(offset)
}

func (s *DiskStream) flushPendingLocked() error {
	for len(s.pending) > 0 {
		if _, err := s.index.WriteAt(encodeIndexEntry(s.pending[0]), s.indexed*indexRecordSize); err != nil {
			return fmt.Errorf("eventlog: write index: %w", err)
		}
		s.indexed++
		s.pending = s.pending[1:]
	}
	s.pending = nil
	return nil
}

// SyncIndex writes pending index records and fsyncs the index file.
func (s *DiskStream) SyncIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.flushPendingLocked(); err != nil {
		return err
	}
	if err := s.index.Sync(); err != nil {
		return fmt.Errorf("eventlog: sync index: %w", err)
	}
	return nil
}

func (s *DiskStream) Head() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// Size returns the committed size of the data file in bytes.
func (s *DiskStream) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *DiskStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.flushPendingLocked()
	if serr := s.index.Sync(); serr != nil {
		err = errors.Join(err, serr)
	}
	return errors.Join(err, s.index.Close(), s.data.Close())
}
