package tcpserver

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/internal/wire"
	"github.com/rzbill/eventual/pkg/log"
)

type handler struct {
	streams      StreamRegistry
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       log.Logger
}

// serve runs one request/response cycle and closes conn.
func (h *handler) serve(conn net.Conn) {
	defer conn.Close()
	logger := h.logger.With(log.Str("remote", conn.RemoteAddr().String()))
	if err := h.handle(conn, logger); err != nil {
		logger.Warn("connection aborted", log.Err(err))
	}
}

func (h *handler) handle(conn net.Conn, logger log.Logger) error {
	if h.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
	r := wire.NewReader(conn)
	w := wire.NewWriter(conn)

	req, err := wire.ReadRequest(r)
	if h.writeTimeout > 0 {
		_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
	}
	switch {
	case errors.Is(err, io.EOF):
		logger.Debug("connection closed before request")
		return nil
	case errors.Is(err, wire.ErrUnknownRequestType):
		logger.Warn("unknown request type", log.Int("type", int(req.Type)))
		return wire.WriteFailed(w, uuid.Nil, wire.UnknownRequestMessage)
	case err != nil:
		// Best effort: the peer may already be gone.
		_ = wire.WriteFailed(w, req.EventID, "malformed request: "+err.Error())
		return err
	}
	if req.Version != wire.Version {
		logger.Debug("request version differs", log.Int("version", int(req.Version)))
	}

	switch req.Type {
	case wire.RequestConditionalWrite:
		logger.Debug("write to head", log.Str("stream", req.Stream), log.Stringer("head", req.ExpectedHead),
			log.Stringer("id", req.EventID), log.Int("bytes", len(req.Payload)))
		return h.write(w, req, logger, func(s eventlog.Stream) (eventlog.WriteResult, error) {
			return s.AppendIfHeadIs(req.ExpectedHead, req.EventID, req.Payload)
		})
	case wire.RequestWrite:
		logger.Debug("write", log.Str("stream", req.Stream), log.Stringer("id", req.EventID),
			log.Int("bytes", len(req.Payload)))
		return h.write(w, req, logger, func(s eventlog.Stream) (eventlog.WriteResult, error) {
			return s.Append(req.EventID, req.Payload)
		})
	default:
		logger.Debug("read", log.Str("stream", req.Stream), log.Stringer("cursor", req.Cursor),
			log.Int("max", int(req.MaxCount)))
		return h.read(w, req, logger)
	}
}

func (h *handler) write(w *wire.Writer, req wire.Request, logger log.Logger, op func(eventlog.Stream) (eventlog.WriteResult, error)) error {
	stream, err := h.streams.Stream(req.Stream)
	if err != nil {
		logger.Error("open stream failed", log.Str("stream", req.Stream), log.Err(err))
		return wire.WriteFailed(w, req.EventID, internalError(err))
	}
	res, err := op(stream)
	if err != nil {
		logger.Error("append failed", log.Str("stream", req.Stream), log.Stringer("id", req.EventID), log.Err(err))
		return wire.WriteFailed(w, req.EventID, internalError(err))
	}
	if res.Success {
		logger.Debug("write successful", log.Str("stream", req.Stream))
	} else {
		logger.Info("write rejected", log.Str("stream", req.Stream), log.Str("reason", res.Message))
	}
	return wire.WriteResult(w, req.EventID, res)
}

func (h *handler) read(w *wire.Writer, req wire.Request, logger log.Logger) error {
	stream, err := h.streams.Stream(req.Stream)
	if err != nil {
		logger.Error("open stream failed", log.Str("stream", req.Stream), log.Err(err))
		return wire.WriteFailed(w, uuid.Nil, internalError(err))
	}
	if err := wire.WriteReadHeader(w); err != nil {
		return err
	}
	sent := 0
	err = stream.ReadFrom(req.Cursor, int(req.MaxCount), func(ev eventlog.Event) error {
		sent++
		return wire.WriteDataSection(w, ev)
	})
	if err != nil {
		// Sections may already be on the wire; abort without an end section.
		return fmt.Errorf("read %q: %w", req.Stream, err)
	}
	logger.Debug("read complete", log.Str("stream", req.Stream), log.Int("events", sent))
	return wire.WriteEndSection(w)
}

func internalError(err error) string {
	return "internal error: " + err.Error()
}
