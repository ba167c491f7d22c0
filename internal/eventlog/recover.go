package eventlog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// recover walks the data file and the index in lockstep. It truncates a torn
// trailing data record, drops index records that disagree with the data,
// re-indexes records the index never received and restores the head id.
func (s *DiskStream) recover() error {
	dataInfo, err := s.data.Stat()
	if err != nil {
		return err
	}
	indexInfo, err := s.index.Stat()
	if err != nil {
		return err
	}
	indexBytes := indexInfo.Size() - indexInfo.Size()%indexRecordSize

	dr := bufio.NewReaderSize(io.NewSectionReader(s.data, 0, dataInfo.Size()), readBufferSize)
	ir := bufio.NewReaderSize(io.NewSectionReader(s.index, 0, indexBytes), readBufferSize)

	var (
		hdr      [dataHeaderSize]byte
		entryBuf = make([]byte, indexRecordSize)
		offset   int64
		records  int64
		inSync   = true
		reindex  *bufio.Writer
	)
	for {
		rec, err := readDataRecord(dr, &hdr)
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if terr := s.data.Truncate(offset); terr != nil {
				return fmt.Errorf("truncate torn record: %w", terr)
			}
			break
		}
		if err != nil {
			return err
		}

		want := indexEntry{ID: rec.ID, Offset: uint32(offset)}
		if inSync {
			if _, err := io.ReadFull(ir, entryBuf); err != nil || decodeIndexEntry(entryBuf) != want {
				inSync = false
				if err := s.index.Truncate(records * indexRecordSize); err != nil {
					return fmt.Errorf("truncate index: %w", err)
				}
				reindex = bufio.NewWriter(io.NewOffsetWriter(s.index, records*indexRecordSize))
			}
		}
		if !inSync {
			if _, err := reindex.Write(encodeIndexEntry(want)); err != nil {
				return fmt.Errorf("reindex: %w", err)
			}
		}
		s.head = rec.ID
		offset += rec.size()
		records++
	}

	switch {
	case !inSync:
		if err := reindex.Flush(); err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		if err := s.index.Sync(); err != nil {
			return err
		}
	case records*indexRecordSize != indexInfo.Size():
		// Index records past the last data record, or a partial trailing record.
		if err := s.index.Truncate(records * indexRecordSize); err != nil {
			return fmt.Errorf("truncate index: %w", err)
		}
	}

	s.size = offset
	s.indexed = records
	return nil
}
