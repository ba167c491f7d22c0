package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/eventlog"
)

// Version is the protocol version written on every frame.
const Version byte = 1

// Request types.
const (
	RequestConditionalWrite byte = 1
	RequestWrite            byte = 2
	RequestRead             byte = 3
)

// Response types.
const (
	ResponseWriteSucceeded byte = 1
	ResponseWriteFailed    byte = 2
	ResponseReadResult     byte = 3
)

// Read result section types.
const (
	SectionData byte = 1
	SectionEnd  byte = 2
)

// UnknownRequestMessage is the failure message for unsupported request types.
const UnknownRequestMessage = "Unknown request type"

var (
	ErrUnknownRequestType  = errors.New("wire: unknown request type")
	ErrUnknownResponseType = errors.New("wire: unknown response type")
	ErrUnknownSectionType  = errors.New("wire: unknown section type")
)

// Request is a decoded request frame. Fields not carried by Type are zero.
type Request struct {
	Version      byte
	Type         byte
	Stream       string
	ExpectedHead uuid.UUID
	EventID      uuid.UUID
	Payload      []byte
	Cursor       uuid.UUID
	MaxCount     uint16
}

// ReadRequest decodes one request frame. For an unsupported type it returns
// the header fields and ErrUnknownRequestType without consuming the body.
func ReadRequest(r *Reader) (Request, error) {
	var req Request
	var err error
	if req.Version, err = r.ReadByte(); err != nil {
		return req, fmt.Errorf("read version: %w", err)
	}
	if req.Type, err = r.ReadByte(); err != nil {
		return req, fmt.Errorf("read type: %w", shortIfEOF(err))
	}
	switch req.Type {
	case RequestConditionalWrite, RequestWrite, RequestRead:
	default:
		return req, fmt.Errorf("%w: %d", ErrUnknownRequestType, req.Type)
	}

	n, err := r.ReadWord()
	if err != nil {
		return req, fmt.Errorf("read stream name length: %w", err)
	}
	if req.Stream, err = r.ReadText(int(n)); err != nil {
		return req, fmt.Errorf("read stream name: %w", err)
	}

	switch req.Type {
	case RequestRead:
		if req.Cursor, err = r.ReadID(); err != nil {
			return req, fmt.Errorf("read cursor: %w", err)
		}
		if req.MaxCount, err = r.ReadWord(); err != nil {
			return req, fmt.Errorf("read max count: %w", err)
		}
		return req, nil
	case RequestConditionalWrite:
		if req.ExpectedHead, err = r.ReadID(); err != nil {
			return req, fmt.Errorf("read expected head: %w", err)
		}
	}
	if req.EventID, err = r.ReadID(); err != nil {
		return req, fmt.Errorf("read event id: %w", err)
	}
	size, err := r.ReadWord()
	if err != nil {
		return req, fmt.Errorf("read payload length: %w", err)
	}
	if req.Payload, err = r.ReadBytes(int(size)); err != nil {
		return req, fmt.Errorf("read payload: %w", err)
	}
	return req, nil
}

// WriteRequest encodes req and flushes it.
func WriteRequest(w *Writer, req Request) error {
	version := req.Version
	if version == 0 {
		version = Version
	}
	if err := w.WriteByte(version); err != nil {
		return err
	}
	if err := w.WriteByte(req.Type); err != nil {
		return err
	}
	if err := w.WriteSized([]byte(req.Stream)); err != nil {
		return fmt.Errorf("stream name: %w", err)
	}
	switch req.Type {
	case RequestRead:
		if err := w.WriteID(req.Cursor); err != nil {
			return err
		}
		if err := w.WriteWord(req.MaxCount); err != nil {
			return err
		}
	case RequestConditionalWrite, RequestWrite:
		if req.Type == RequestConditionalWrite {
			if err := w.WriteID(req.ExpectedHead); err != nil {
				return err
			}
		}
		if err := w.WriteID(req.EventID); err != nil {
			return err
		}
		if err := w.WriteSized(req.Payload); err != nil {
			return fmt.Errorf("payload: %w", err)
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownRequestType, req.Type)
	}
	return w.Flush()
}

// WriteSucceeded writes a write-succeeded response.
func WriteSucceeded(w *Writer) error {
	if err := writeHeader(w, ResponseWriteSucceeded); err != nil {
		return err
	}
	return w.Flush()
}

// WriteFailed writes a write-failed response. Messages longer than 65535
// bytes are truncated.
func WriteFailed(w *Writer, id uuid.UUID, message string) error {
	if err := writeHeader(w, ResponseWriteFailed); err != nil {
		return err
	}
	if err := w.WriteID(id); err != nil {
		return err
	}
	msg := []byte(message)
	if len(msg) > MaxFieldLen {
		msg = msg[:MaxFieldLen]
	}
	if err := w.WriteSized(msg); err != nil {
		return err
	}
	return w.Flush()
}

// WriteResult writes the response matching res for the event id.
func WriteResult(w *Writer, id uuid.UUID, res eventlog.WriteResult) error {
	if res.Success {
		return WriteSucceeded(w)
	}
	return WriteFailed(w, id, res.Message)
}

// WriteReadHeader starts a read-result response.
func WriteReadHeader(w *Writer) error {
	return writeHeader(w, ResponseReadResult)
}

// WriteDataSection writes one event of a read result. It is buffered; the
// caller flushes after the end section.
func WriteDataSection(w *Writer, ev eventlog.Event) error {
	if err := w.WriteByte(SectionData); err != nil {
		return err
	}
	if err := w.WriteID(ev.ID); err != nil {
		return err
	}
	return w.WriteSized(ev.Payload)
}

// WriteEndSection terminates a read result and flushes it.
func WriteEndSection(w *Writer) error {
	if err := w.WriteByte(SectionEnd); err != nil {
		return err
	}
	return w.Flush()
}

func writeHeader(w *Writer, typ byte) error {
	if err := w.WriteByte(Version); err != nil {
		return err
	}
	return w.WriteByte(typ)
}

// ReadResponseHeader reads the version and type of a response frame.
func ReadResponseHeader(r *Reader) (version, typ byte, err error) {
	if version, err = r.ReadByte(); err != nil {
		return 0, 0, fmt.Errorf("read version: %w", shortIfEOF(err))
	}
	if typ, err = r.ReadByte(); err != nil {
		return 0, 0, fmt.Errorf("read response type: %w", shortIfEOF(err))
	}
	return version, typ, nil
}

// ReadFailure reads the body of a write-failed response.
func ReadFailure(r *Reader) (uuid.UUID, string, error) {
	id, err := r.ReadID()
	if err != nil {
		return uuid.Nil, "", err
	}
	n, err := r.ReadWord()
	if err != nil {
		return uuid.Nil, "", err
	}
	msg, err := r.ReadText(int(n))
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, msg, nil
}

// ReadSection reads one read-result section. ok is false at the end section.
func ReadSection(r *Reader) (ev eventlog.Event, ok bool, err error) {
	typ, err := r.ReadByte()
	if err != nil {
		return ev, false, fmt.Errorf("read section type: %w", shortIfEOF(err))
	}
	switch typ {
	case SectionEnd:
		return ev, false, nil
	case SectionData:
	default:
		return ev, false, fmt.Errorf("%w: %d", ErrUnknownSectionType, typ)
	}
	if ev.ID, err = r.ReadID(); err != nil {
		return ev, false, err
	}
	n, err := r.ReadWord()
	if err != nil {
		return ev, false, err
	}
	if ev.Payload, err = r.ReadBytes(int(n)); err != nil {
		return ev, false, err
	}
	return ev, true, nil
}

func shortIfEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrShortRead
	}
	return err
}
