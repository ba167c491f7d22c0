package transports

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/internal/wire"
)

// ErrTruncatedRead is returned when a read result ends without its end section.
var ErrTruncatedRead = errors.New("read result truncated by server")

// WriteError is a write-failed response from the server.
type WriteError struct {
	ID      uuid.UUID
	Message string
}

func (e *WriteError) Error() string { return e.Message }

// StreamsTransport abstracts the transport used by the CLI.
type StreamsTransport interface {
	Write(ctx context.Context, stream string, ev eventlog.Event) error
	WriteIfHeadIs(ctx context.Context, stream string, expectedHead uuid.UUID, ev eventlog.Event) error
	Read(ctx context.Context, stream string, cursor uuid.UUID, maxCount uint16, onEvent func(eventlog.Event) error) error
}

// TCPTransport speaks the binary protocol, one connection per request.
type TCPTransport struct {
	Addr        string
	DialTimeout time.Duration
}

func NewTCPTransport(addr string) *TCPTransport {
	return &TCPTransport{Addr: addr, DialTimeout: 5 * time.Second}
}

func (t *TCPTransport) dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{Timeout: t.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", t.Addr)
	if err != nil {
		return nil, err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	return conn, nil
}

// Write appends ev unconditionally.
func (t *TCPTransport) Write(ctx context.Context, stream string, ev eventlog.Event) error {
	return t.write(ctx, wire.Request{Type: wire.RequestWrite, Stream: stream, EventID: ev.ID, Payload: ev.Payload})
}

// WriteIfHeadIs appends ev only if the stream head equals expectedHead.
func (t *TCPTransport) WriteIfHeadIs(ctx context.Context, stream string, expectedHead uuid.UUID, ev eventlog.Event) error {
	return t.write(ctx, wire.Request{
		Type:         wire.RequestConditionalWrite,
		Stream:       stream,
		ExpectedHead: expectedHead,
		EventID:      ev.ID,
		Payload:      ev.Payload,
	})
}

func (t *TCPTransport) write(ctx context.Context, req wire.Request) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	if err := wire.WriteRequest(wire.NewWriter(conn), req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	r := wire.NewReader(conn)
	_, typ, err := wire.ReadResponseHeader(r)
	if err != nil {
		return err
	}
	switch typ {
	case wire.ResponseWriteSucceeded:
		return nil
	case wire.ResponseWriteFailed:
		id, msg, err := wire.ReadFailure(r)
		if err != nil {
			return fmt.Errorf("read failure: %w", err)
		}
		return &WriteError{ID: id, Message: msg}
	default:
		return fmt.Errorf("%w: %d", wire.ErrUnknownResponseType, typ)
	}
}

// Read streams up to maxCount events after cursor to onEvent. An error from
// onEvent stops the read and is returned.
func (t *TCPTransport) Read(ctx context.Context, stream string, cursor uuid.UUID, maxCount uint16, onEvent func(eventlog.Event) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	req := wire.Request{Type: wire.RequestRead, Stream: stream, Cursor: cursor, MaxCount: maxCount}
	if err := wire.WriteRequest(wire.NewWriter(conn), req); err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	r := wire.NewReader(conn)
	_, typ, err := wire.ReadResponseHeader(r)
	if err != nil {
		return err
	}
	switch typ {
	case wire.ResponseReadResult:
	case wire.ResponseWriteFailed:
		id, msg, err := wire.ReadFailure(r)
		if err != nil {
			return fmt.Errorf("read failure: %w", err)
		}
		return &WriteError{ID: id, Message: msg}
	default:
		return fmt.Errorf("%w: %d", wire.ErrUnknownResponseType, typ)
	}
	for {
		ev, ok, err := wire.ReadSection(r)
		if err != nil {
			if errors.Is(err, wire.ErrShortRead) {
				return ErrTruncatedRead
			}
			return err
		}
		if !ok {
			return nil
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
}
