package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
)

// ErrShortRead reports that the peer closed the stream while a fixed-length
// field was being read.
var ErrShortRead = fmt.Errorf("wire: short read: %w", io.ErrUnexpectedEOF)

// ErrFieldTooLong reports a variable-length field beyond its 16-bit length prefix.
var ErrFieldTooLong = errors.New("wire: field exceeds 65535 bytes")

// MaxFieldLen is the largest length a 16-bit prefix can carry.
const MaxFieldLen = 0xFFFF

// Reader decodes big-endian protocol primitives.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r with buffering.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// ReadByte reads one byte. A clean end of input is returned as io.EOF.
func (r *Reader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

// ReadWord reads an unsigned 16-bit value.
func (r *Reader) ReadWord() (uint16, error) {
	var b [2]byte
	if err := r.readFull(b[:]); err != nil {
		return 0, err
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// ReadDWord reads an unsigned 32-bit value as two words, high first.
func (r *Reader) ReadDWord() (uint32, error) {
	hi, err := r.ReadWord()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadWord()
	if err != nil {
		return 0, err
	}
	return uint32(hi)<<16 | uint32(lo), nil
}

// ReadQWord reads an unsigned 64-bit value as two dwords, high first.
func (r *Reader) ReadQWord() (uint64, error) {
	hi, err := r.ReadDWord()
	if err != nil {
		return 0, err
	}
	lo, err := r.ReadDWord()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := r.readFull(b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadText reads n bytes of UTF-8 text.
func (r *Reader) ReadText(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadID reads a 128-bit id.
func (r *Reader) ReadID() (uuid.UUID, error) {
	var id uuid.UUID
	if err := r.readFull(id[:]); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *Reader) readFull(b []byte) error {
	if _, err := io.ReadFull(r.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrShortRead
		}
		return err
	}
	return nil
}

// Writer encodes big-endian protocol primitives. Output is buffered until
// Flush.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w with buffering.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) WriteByte(b byte) error {
	return w.w.WriteByte(b)
}

func (w *Writer) WriteWord(v uint16) error {
	_, err := w.w.Write([]byte{byte(v >> 8), byte(v)})
	return err
}

func (w *Writer) WriteDWord(v uint32) error {
	if err := w.WriteWord(uint16(v >> 16)); err != nil {
		return err
	}
	return w.WriteWord(uint16(v))
}

func (w *Writer) WriteQWord(v uint64) error {
	if err := w.WriteDWord(uint32(v >> 32)); err != nil {
		return err
	}
	return w.WriteDWord(uint32(v))
}

func (w *Writer) WriteBytes(b []byte) error {
	_, err := w.w.Write(b)
	return err
}

// WriteText writes s without a length prefix.
func (w *Writer) WriteText(s string) error {
	_, err := w.w.WriteString(s)
	return err
}

// WriteID writes a 128-bit id, high half first.
func (w *Writer) WriteID(id uuid.UUID) error {
	return w.WriteBytes(id[:])
}

// WriteSized writes a 16-bit length prefix followed by b.
func (w *Writer) WriteSized(b []byte) error {
	if len(b) > MaxFieldLen {
		return fmt.Errorf("%w: %d bytes", ErrFieldTooLong, len(b))
	}
	if err := w.WriteWord(uint16(len(b))); err != nil {
		return err
	}
	return w.WriteBytes(b)
}

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
