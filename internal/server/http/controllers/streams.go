package controllers

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/eventlog"
)

// StreamsController exposes read-only views of streams.
type StreamsController struct {
	rt Runtime
}

// NewStreamsController creates a new streams controller.
func NewStreamsController(rt Runtime) *StreamsController {
	return &StreamsController{rt: rt}
}

// RegisterRoutes registers all stream-related routes with the given router.
func (c *StreamsController) RegisterRoutes(r chi.Router) {
	r.Get("/v1/streams", c.handleListStreams)
	r.Route("/v1/streams/{name}", func(r chi.Router) {
		r.Get("/head", c.handleHead)
		r.Get("/events", c.handleListEvents)
	})
}

func (c *StreamsController) handleListStreams(w http.ResponseWriter, r *http.Request) {
	names, err := c.rt.Names()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list streams")
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, listStreamsResp{Streams: names})
}

// lookup resolves the {name} parameter without creating unknown streams.
func (c *StreamsController) lookup(w http.ResponseWriter, r *http.Request) (string, eventlog.Stream, bool) {
	name := chi.URLParam(r, "name")
	// chi matches on RawPath when the request carries escapes like %2F.
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid stream name")
			return "", nil, false
		}
		name = unescaped
	}
	if name == "" || !c.rt.Has(name) {
		writeError(w, http.StatusNotFound, "Stream not found")
		return "", nil, false
	}
	s, err := c.rt.Stream(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to open stream")
		return "", nil, false
	}
	return name, s, true
}

func (c *StreamsController) handleHead(w http.ResponseWriter, r *http.Request) {
	name, s, ok := c.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, headResp{Stream: name, Head: s.Head().String()})
}

// handleListEvents returns up to limit events after cursor (default: from the start).
func (c *StreamsController) handleListEvents(w http.ResponseWriter, r *http.Request) {
	cursor := uuid.Nil
	if v := r.URL.Query().Get("cursor"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid cursor")
			return
		}
		cursor = id
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	name, s, ok := c.lookup(w, r)
	if !ok {
		return
	}
	resp := listEventsResp{Stream: name, Cursor: cursor.String(), Events: []eventJSON{}}
	err := s.ReadFrom(cursor, limit, func(ev eventlog.Event) error {
		enc, payload := renderPayload(ev.Payload)
		resp.Events = append(resp.Events, eventJSON{ID: ev.ID.String(), Size: len(ev.Payload), Encoding: enc, Payload: payload})
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read stream")
		return
	}
	if n := len(resp.Events); n > 0 {
		resp.NextCursor = resp.Events[n-1].ID
	}
	writeJSON(w, resp)
}
