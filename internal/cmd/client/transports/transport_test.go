package transports

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/internal/wire"
)

// fakeServer answers one connection with respond after reading the request.
func fakeServer(t *testing.T, respond func(w *wire.Writer)) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := wire.ReadRequest(wire.NewReader(conn)); err != nil {
			return
		}
		respond(wire.NewWriter(conn))
	}()
	return l.Addr().String()
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestWriteFailureSurfacesWriteError(t *testing.T) {
	evID := uuid.New()
	addr := fakeServer(t, func(w *wire.Writer) {
		_ = wire.WriteFailed(w, evID, "head needed to be a but was b")
	})
	err := NewTCPTransport(addr).Write(ctx(t), "s", eventlog.Event{ID: evID, Payload: []byte("x")})
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("expected WriteError, got %v", err)
	}
	if we.ID != evID || we.Message != "head needed to be a but was b" {
		t.Fatalf("unexpected write error: %+v", we)
	}
}

func TestReadStreamsSections(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	addr := fakeServer(t, func(w *wire.Writer) {
		_ = wire.WriteReadHeader(w)
		_ = wire.WriteDataSection(w, eventlog.Event{ID: a, Payload: []byte("one")})
		_ = wire.WriteDataSection(w, eventlog.Event{ID: b, Payload: []byte("two")})
		_ = wire.WriteEndSection(w)
	})
	var got []eventlog.Event
	err := NewTCPTransport(addr).Read(ctx(t), "s", uuid.Nil, 10, func(ev eventlog.Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0].ID != a || string(got[1].Payload) != "two" {
		t.Fatalf("unexpected events: %+v", got)
	}
}

func TestReadWithoutEndSectionIsTruncated(t *testing.T) {
	addr := fakeServer(t, func(w *wire.Writer) {
		_ = wire.WriteReadHeader(w)
		_ = wire.WriteDataSection(w, eventlog.Event{ID: uuid.New(), Payload: []byte("one")})
		_ = w.Flush()
	})
	n := 0
	err := NewTCPTransport(addr).Read(ctx(t), "s", uuid.Nil, 10, func(eventlog.Event) error {
		n++
		return nil
	})
	if !errors.Is(err, ErrTruncatedRead) {
		t.Fatalf("expected ErrTruncatedRead, got %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 event before truncation, got %d", n)
	}
}

func TestUnknownResponseType(t *testing.T) {
	addr := fakeServer(t, func(w *wire.Writer) {
		_ = w.WriteByte(wire.Version)
		_ = w.WriteByte(9)
		_ = w.Flush()
	})
	err := NewTCPTransport(addr).Write(ctx(t), "s", eventlog.Event{ID: uuid.New()})
	if !errors.Is(err, wire.ErrUnknownResponseType) {
		t.Fatalf("expected ErrUnknownResponseType, got %v", err)
	}
}
