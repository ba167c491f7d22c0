package eventlog

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/google/uuid"
)

const (
	// dataHeaderSize is id(16) | writeTimeMs(8) | payloadLen(2).
	dataHeaderSize = 26
	// indexRecordSize is id(16) | offset(4).
	indexRecordSize = 20
)

// dataRecord is a decoded data-file record.
type dataRecord struct {
	ID          uuid.UUID
	WriteTimeMs int64
	Payload     []byte
}

func (r dataRecord) size() int64 { return dataHeaderSize + int64(len(r.Payload)) }

func encodeDataRecord(id uuid.UUID, writeTimeMs int64, payload []byte) []byte {
	out := make([]byte, dataHeaderSize+len(payload))
	copy(out[0:16], id[:])
	binary.BigEndian.PutUint64(out[16:24], uint64(writeTimeMs))
	binary.BigEndian.PutUint16(out[24:26], uint16(len(payload)))
	copy(out[dataHeaderSize:], payload)
	return out
}

// readDataRecord decodes one record from r. A clean end of input returns
// io.EOF; a record cut short returns io.ErrUnexpectedEOF.
func readDataRecord(r io.Reader, hdr *[dataHeaderSize]byte) (dataRecord, error) {
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return dataRecord{}, err
	}
	var rec dataRecord
	copy(rec.ID[:], hdr[0:16])
	rec.WriteTimeMs = int64(binary.BigEndian.Uint64(hdr[16:24]))
	rec.Payload = make([]byte, binary.BigEndian.Uint16(hdr[24:26]))
	if _, err := io.ReadFull(r, rec.Payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return dataRecord{}, err
	}
	return rec, nil
}

type indexEntry struct {
	ID     uuid.UUID
	Offset uint32
}

func encodeIndexEntry(e indexEntry) []byte {
	out := make([]byte, indexRecordSize)
	copy(out[0:16], e.ID[:])
	binary.BigEndian.PutUint32(out[16:20], e.Offset)
	return out
}

func decodeIndexEntry(b []byte) indexEntry {
	var e indexEntry
	copy(e.ID[:], b[0:16])
	e.Offset = binary.BigEndian.Uint32(b[16:20])
	return e
}

// Pebble entry encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header carries id(16) | writeTimeMs(8).

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames header and payload with a length prefix and checksum.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, binary.MaxVarintLen64+len(header)+len(payload)+4)
	out = binary.AppendUvarint(out, uint64(len(header)))
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	return binary.BigEndian.AppendUint32(out, crc)
}

type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord reverses EncodeRecord. It reports false on truncation or a
// checksum mismatch.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if uint64(n)+hlen+4 > uint64(len(b)) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{Header: append([]byte(nil), header...), Payload: append([]byte(nil), payload...)}, true
}

const entryHeaderSize = 24

func encodeEntry(id uuid.UUID, writeTimeMs int64, payload []byte) []byte {
	var hdr [entryHeaderSize]byte
	copy(hdr[0:16], id[:])
	binary.BigEndian.PutUint64(hdr[16:24], uint64(writeTimeMs))
	return EncodeRecord(hdr[:], payload)
}

func decodeEntry(b []byte) (Event, error) {
	dec, ok := DecodeRecord(b)
	if !ok || len(dec.Header) != entryHeaderSize {
		return Event{}, ErrCorruptRecord
	}
	var ev Event
	copy(ev.ID[:], dec.Header[0:16])
	ev.Payload = dec.Payload
	return ev, nil
}
