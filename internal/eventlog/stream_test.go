package eventlog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	pebblestore "github.com/rzbill/eventual/internal/storage/pebble"
)

type backend struct {
	name string
	open func(t *testing.T) Stream
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Stream { return NewMemoryStream() }},
		{"disk", func(t *testing.T) Stream {
			s, err := OpenDiskStream(t.TempDir(), "orders")
			if err != nil {
				t.Fatalf("open disk: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		}},
		{"pebble", func(t *testing.T) Stream {
			db, err := pebblestore.Open(pebblestore.Options{DataDir: filepath.Join(t.TempDir(), "db"), Fsync: pebblestore.FsyncModeNever})
			if err != nil {
				t.Fatalf("open pebble: %v", err)
			}
			t.Cleanup(func() { _ = db.Close() })
			s, err := OpenPebbleStream(db, "orders")
			if err != nil {
				t.Fatalf("open stream: %v", err)
			}
			return s
		}},
	}
}

func readAll(t *testing.T, s Stream, cursor uuid.UUID, maxCount int) []Event {
	t.Helper()
	var out []Event
	err := s.ReadFrom(cursor, maxCount, func(ev Event) error {
		out = append(out, Event{ID: ev.ID, Payload: append([]byte(nil), ev.Payload...)})
		return nil
	})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return out
}

func mustAppend(t *testing.T, s Stream, id uuid.UUID, payload string) {
	t.Helper()
	res, err := s.Append(id, []byte(payload))
	if err != nil || !res.Success {
		t.Fatalf("append %s: %+v %v", id, res, err)
	}
}

func TestStreamContract(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			t.Run("AppendThenRead", func(t *testing.T) {
				s := b.open(t)
				id := uuid.New()
				mustAppend(t, s, id, "hello")
				got := readAll(t, s, uuid.Nil, 1)
				if len(got) != 1 || got[0].ID != id || string(got[0].Payload) != "hello" {
					t.Fatalf("got %+v", got)
				}
			})

			t.Run("EmptyStream", func(t *testing.T) {
				s := b.open(t)
				if s.Head() != uuid.Nil {
					t.Fatalf("head of empty stream should be nil")
				}
				if got := readAll(t, s, uuid.Nil, 10); len(got) != 0 {
					t.Fatalf("expected no events, got %d", len(got))
				}
			})

			t.Run("UnknownCursor", func(t *testing.T) {
				s := b.open(t)
				mustAppend(t, s, uuid.New(), "a")
				if got := readAll(t, s, uuid.New(), 10); len(got) != 0 {
					t.Fatalf("unknown cursor should yield nothing, got %d", len(got))
				}
			})

			t.Run("CursorExclusive", func(t *testing.T) {
				s := b.open(t)
				ids := make([]uuid.UUID, 5)
				for i := range ids {
					ids[i] = uuid.New()
					mustAppend(t, s, ids[i], fmt.Sprintf("e%d", i))
				}
				for k := range ids {
					got := readAll(t, s, ids[k], 100)
					if len(got) != len(ids)-k-1 {
						t.Fatalf("cursor %d: got %d events", k, len(got))
					}
					for j, ev := range got {
						if ev.ID != ids[k+1+j] {
							t.Fatalf("cursor %d: event %d out of order", k, j)
						}
					}
				}
			})

			t.Run("MaxCount", func(t *testing.T) {
				s := b.open(t)
				for i := 0; i < 10; i++ {
					mustAppend(t, s, uuid.New(), "x")
				}
				for _, k := range []int{0, 1, 3, 10, 50} {
					want := k
					if want > 10 {
						want = 10
					}
					if got := readAll(t, s, uuid.Nil, k); len(got) != want {
						t.Fatalf("maxCount %d: got %d", k, len(got))
					}
				}
			})

			t.Run("HeadTracking", func(t *testing.T) {
				s := b.open(t)
				a, bID, c := uuid.New(), uuid.New(), uuid.New()
				mustAppend(t, s, a, "a")
				if s.Head() != a {
					t.Fatalf("head not a")
				}
				res, err := s.AppendIfHeadIs(a, bID, []byte("b"))
				if err != nil || !res.Success {
					t.Fatalf("conditional append: %+v %v", res, err)
				}
				res, err = s.AppendIfHeadIs(a, c, []byte("c"))
				if err != nil {
					t.Fatalf("stale conditional append: %v", err)
				}
				if res.Success {
					t.Fatalf("stale head must be rejected")
				}
				if !strings.Contains(res.Message, a.String()) || !strings.Contains(res.Message, bID.String()) {
					t.Fatalf("message should name expected and actual head: %q", res.Message)
				}
				if s.Head() != bID {
					t.Fatalf("rejected append mutated head")
				}
				if got := readAll(t, s, uuid.Nil, 10); len(got) != 2 {
					t.Fatalf("rejected append mutated log: %d events", len(got))
				}
			})

			t.Run("ConditionalOnEmpty", func(t *testing.T) {
				s := b.open(t)
				id := uuid.New()
				res, err := s.AppendIfHeadIs(uuid.Nil, id, []byte("first"))
				if err != nil || !res.Success || s.Head() != id {
					t.Fatalf("append on nil head: %+v %v", res, err)
				}
			})

			t.Run("PayloadLimits", func(t *testing.T) {
				s := b.open(t)
				big := make([]byte, MaxPayloadSize)
				for i := range big {
					big[i] = byte(i)
				}
				id := uuid.New()
				mustAppend(t, s, id, string(big))
				mustAppend(t, s, uuid.New(), "")
				got := readAll(t, s, uuid.Nil, 10)
				if len(got) != 2 || string(got[0].Payload) != string(big) || len(got[1].Payload) != 0 {
					t.Fatalf("payload round trip failed")
				}
				if _, err := s.Append(uuid.New(), make([]byte, MaxPayloadSize+1)); !errors.Is(err, ErrPayloadTooLarge) {
					t.Fatalf("want ErrPayloadTooLarge, got %v", err)
				}
			})

			t.Run("ConsumerErrorStops", func(t *testing.T) {
				s := b.open(t)
				for i := 0; i < 3; i++ {
					mustAppend(t, s, uuid.New(), "x")
				}
				stop := errors.New("stop")
				calls := 0
				err := s.ReadFrom(uuid.Nil, 10, func(Event) error {
					calls++
					return stop
				})
				if !errors.Is(err, stop) || calls != 1 {
					t.Fatalf("err=%v calls=%d", err, calls)
				}
			})

			t.Run("ConcurrentAppends", func(t *testing.T) {
				s := b.open(t)
				const n = 64
				var wg sync.WaitGroup
				for i := 0; i < n; i++ {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						if _, err := s.Append(uuid.New(), []byte(fmt.Sprintf("payload-%03d", i))); err != nil {
							t.Errorf("append: %v", err)
						}
					}(i)
				}
				wg.Wait()
				got := readAll(t, s, uuid.Nil, 1000)
				if len(got) != n {
					t.Fatalf("got %d events, want %d", len(got), n)
				}
				seen := map[string]bool{}
				for _, ev := range got {
					seen[string(ev.Payload)] = true
				}
				if len(seen) != n {
					t.Fatalf("payloads interleaved or lost: %d distinct", len(seen))
				}
				if s.Head() != got[n-1].ID {
					t.Fatalf("head is not the last event")
				}
			})

			t.Run("ConcurrentConditionalAppends", func(t *testing.T) {
				s := b.open(t)
				observed := appendChain(t, s, 32)
				verifyChain(t, readAll(t, s, uuid.Nil, 1000), observed)
			})

			t.Run("Orders", func(t *testing.T) {
				s := b.open(t)
				a := uuid.MustParse("0d9d4ad0-3c53-4b8f-9d2c-1a8b4b0f6a11")
				bID := uuid.MustParse("7f1f8a2e-5b7c-4c1e-8e8d-2f3a4b5c6d7e")
				mustAppend(t, s, a, "hello")
				got := readAll(t, s, uuid.Nil, 10)
				if len(got) != 1 || got[0].ID != a || string(got[0].Payload) != "hello" {
					t.Fatalf("got %+v", got)
				}
				res, err := s.AppendIfHeadIs(a, bID, []byte("world"))
				if err != nil || !res.Success || s.Head() != bID {
					t.Fatalf("conditional: %+v %v", res, err)
				}
				res, err = s.AppendIfHeadIs(a, uuid.New(), []byte("late"))
				if err != nil || res.Success {
					t.Fatalf("stale conditional accepted: %+v %v", res, err)
				}
				want := fmt.Sprintf("head needed to be %s but was %s", a, bID)
				if res.Message != want {
					t.Fatalf("message %q, want %q", res.Message, want)
				}
			})
		})
	}
}

// appendChain runs n writers that each retry AppendIfHeadIs with the head
// they last saw until it succeeds. It returns the accepted head per event id.
func appendChain(t *testing.T, s Stream, n int) map[uuid.UUID]uuid.UUID {
	t.Helper()
	var mu sync.Mutex
	observed := make(map[uuid.UUID]uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := uuid.New()
			for {
				h := s.Head()
				res, err := s.AppendIfHeadIs(h, id, []byte(fmt.Sprintf("writer-%02d", i)))
				if err != nil {
					t.Errorf("conditional append: %v", err)
					return
				}
				if res.Success {
					mu.Lock()
					observed[id] = h
					mu.Unlock()
					return
				}
			}
		}(i)
	}
	wg.Wait()
	if len(observed) != n {
		t.Fatalf("%d writers succeeded, want %d", len(observed), n)
	}
	return observed
}

// verifyChain checks each event was accepted against the id of the event
// stored before it.
func verifyChain(t *testing.T, events []Event, observed map[uuid.UUID]uuid.UUID) {
	t.Helper()
	if len(events) != len(observed) {
		t.Fatalf("got %d events, want %d", len(events), len(observed))
	}
	prev := uuid.Nil
	for i, ev := range events {
		h, ok := observed[ev.ID]
		if !ok {
			t.Fatalf("event %d has unknown id %s", i, ev.ID)
		}
		if h != prev {
			t.Fatalf("event %d accepted with head %s, previous event is %s", i, h, prev)
		}
		prev = ev.ID
	}
}

func TestDuplicateIDCursorUsesFirstOccurrence(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			dup := uuid.New()
			mustAppend(t, s, dup, "one")
			mustAppend(t, s, uuid.New(), "two")
			mustAppend(t, s, dup, "three")
			got := readAll(t, s, dup, 10)
			if len(got) != 2 || string(got[0].Payload) != "two" {
				t.Fatalf("got %d events", len(got))
			}
		})
	}
}
