package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"

	"github.com/rzbill/eventual/internal/runtime"
	logpkg "github.com/rzbill/eventual/pkg/log"
)

func newServer(t *testing.T) (*Server, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{Backend: runtime.BackendDisk, DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	return New(rt, logger), rt
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return w.Code
}

func TestHealthHandler(t *testing.T) {
	s, _ := newServer(t)
	var body map[string]string
	if code := get(t, s, "/v1/healthz", &body); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("status: %d %v", code, body)
	}
}

func TestStreamsHandlers(t *testing.T) {
	s, rt := newServer(t)
	stream, err := rt.Stream("orders")
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	payloads := [][]byte{[]byte(`{"total":3}`), []byte("plain text"), {0xff, 0xfe}}
	for i, id := range ids {
		if _, err := stream.Append(id, payloads[i]); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var list struct {
		Streams []string `json:"streams"`
	}
	if code := get(t, s, "/v1/streams", &list); code != http.StatusOK || len(list.Streams) != 1 || list.Streams[0] != "orders" {
		t.Fatalf("list: %d %v", code, list)
	}

	var head struct {
		Head string `json:"head"`
	}
	if code := get(t, s, "/v1/streams/orders/head", &head); code != http.StatusOK || head.Head != ids[2].String() {
		t.Fatalf("head: %d %v", code, head)
	}

	var page struct {
		Events []struct {
			ID       string          `json:"id"`
			Encoding string          `json:"encoding"`
			Payload  json.RawMessage `json:"payload"`
		} `json:"events"`
		NextCursor string `json:"next_cursor"`
	}
	if code := get(t, s, "/v1/streams/orders/events?limit=10", &page); code != http.StatusOK {
		t.Fatalf("events: %d", code)
	}
	if len(page.Events) != 3 || page.NextCursor != ids[2].String() {
		t.Fatalf("events page: %+v", page)
	}
	for i, want := range []string{"json", "text", "base64"} {
		if page.Events[i].Encoding != want {
			t.Fatalf("event %d encoding %q, want %q", i, page.Events[i].Encoding, want)
		}
	}
	if string(page.Events[0].Payload) != `{"total":3}` {
		t.Fatalf("json payload %s", page.Events[0].Payload)
	}

	q := url.Values{"cursor": {ids[0].String()}, "limit": {"1"}}
	if code := get(t, s, "/v1/streams/orders/events?"+q.Encode(), &page); code != http.StatusOK || len(page.Events) != 1 || page.Events[0].ID != ids[1].String() {
		t.Fatalf("cursor page: %d %+v", code, page)
	}
}

func TestStreamsHandlersEscapedNames(t *testing.T) {
	s, rt := newServer(t)
	for _, name := range []string{"tenant/orders", "a b", "100%"} {
		st, err := rt.Stream(name)
		if err != nil {
			t.Fatalf("stream %q: %v", name, err)
		}
		id := uuid.New()
		if _, err := st.Append(id, []byte("x")); err != nil {
			t.Fatalf("append %q: %v", name, err)
		}
		var head struct {
			Stream string `json:"stream"`
			Head   string `json:"head"`
		}
		path := "/v1/streams/" + url.PathEscape(name) + "/head"
		if code := get(t, s, path, &head); code != http.StatusOK || head.Stream != name || head.Head != id.String() {
			t.Fatalf("%s: %d %+v", path, code, head)
		}
		path = "/v1/streams/" + url.PathEscape(name) + "/events"
		if code := get(t, s, path, nil); code != http.StatusOK {
			t.Fatalf("%s: %d", path, code)
		}
	}
}

func TestStreamsHandlerErrors(t *testing.T) {
	s, rt := newServer(t)
	if code := get(t, s, "/v1/streams/missing/head", nil); code != http.StatusNotFound {
		t.Fatalf("missing stream: %d", code)
	}
	if rt.Has("missing") {
		t.Fatalf("GET must not create streams")
	}
	if _, err := rt.Stream("orders"); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if code := get(t, s, "/v1/streams/orders/events?cursor=not-a-uuid", nil); code != http.StatusBadRequest {
		t.Fatalf("bad cursor: %d", code)
	}
	req := httptest.NewRequest(http.MethodPost, "/v1/streams", nil)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST: %d", w.Code)
	}
}
