package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
)

func TestPrimitivesBigEndian(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.WriteByte(0xAB)
	_ = w.WriteWord(0x0102)
	_ = w.WriteDWord(0x03040506)
	_ = w.WriteQWord(0x0708090A0B0C0D0E)
	_ = w.WriteText("hé")
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	want := []byte{0xAB, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 'h', 0xC3, 0xA9}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("encoded %x, want %x", buf.Bytes(), want)
	}

	r := NewReader(bytes.NewReader(want))
	if b, _ := r.ReadByte(); b != 0xAB {
		t.Fatalf("byte %x", b)
	}
	if v, _ := r.ReadWord(); v != 0x0102 {
		t.Fatalf("word %x", v)
	}
	if v, _ := r.ReadDWord(); v != 0x03040506 {
		t.Fatalf("dword %x", v)
	}
	if v, _ := r.ReadQWord(); v != 0x0708090A0B0C0D0E {
		t.Fatalf("qword %x", v)
	}
	if s, _ := r.ReadText(3); s != "hé" {
		t.Fatalf("text %q", s)
	}
}

func TestIDIsTwoQWords(t *testing.T) {
	id := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	var buf bytes.Buffer
	w := NewWriter(&buf)
	_ = w.WriteID(id)
	_ = w.Flush()

	r := NewReader(bytes.NewReader(buf.Bytes()))
	hi, _ := r.ReadQWord()
	lo, _ := r.ReadQWord()
	if hi != 0x0011223344556677 || lo != 0x8899aabbccddeeff {
		t.Fatalf("halves %x %x", hi, lo)
	}
	got, err := NewReader(bytes.NewReader(buf.Bytes())).ReadID()
	if err != nil || got != id {
		t.Fatalf("ReadID = %s, %v", got, err)
	}
}

func TestShortRead(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		read func(r *Reader) error
	}{
		{"word", []byte{1}, func(r *Reader) error { _, err := r.ReadWord(); return err }},
		{"dword", []byte{1, 2, 3}, func(r *Reader) error { _, err := r.ReadDWord(); return err }},
		{"id", make([]byte, 15), func(r *Reader) error { _, err := r.ReadID(); return err }},
		{"bytes", []byte("abc"), func(r *Reader) error { _, err := r.ReadBytes(4); return err }},
		{"empty", nil, func(r *Reader) error { _, err := r.ReadWord(); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(NewReader(bytes.NewReader(tc.in)))
			if !errors.Is(err, ErrShortRead) || !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Fatalf("want ErrShortRead, got %v", err)
			}
		})
	}
	if _, err := NewReader(bytes.NewReader(nil)).ReadByte(); err != io.EOF {
		t.Fatalf("ReadByte at end: %v", err)
	}
}

func TestWriteSizedTooLong(t *testing.T) {
	w := NewWriter(io.Discard)
	if err := w.WriteSized(make([]byte, MaxFieldLen)); err != nil {
		t.Fatalf("max length: %v", err)
	}
	if err := w.WriteSized(make([]byte, MaxFieldLen+1)); !errors.Is(err, ErrFieldTooLong) {
		t.Fatalf("want ErrFieldTooLong, got %v", err)
	}
}
