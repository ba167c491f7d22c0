package serverrun

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	cfgpkg "github.com/rzbill/eventual/internal/config"
	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/internal/wire"
	logpkg "github.com/rzbill/eventual/pkg/log"
)

func testConfig(t *testing.T, backend string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Listen.Addr = "127.0.0.1:0"
	cfg.Listen.Workers = 2
	cfg.Storage.Backend = backend
	cfg.Storage.DataDir = t.TempDir()
	cfg.Admin.HTTPAddr = ""
	cfg.Admin.GRPCAddr = ""
	return cfg
}

func startRun(t *testing.T, cfg cfgpkg.Config) (net.Addr, context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, Options{
			Config:    cfg,
			Logger:    logpkg.NewNopLogger(),
			Listening: func(a net.Addr) { addrCh <- a },
		})
	}()
	select {
	case a := <-addrCh:
		return a, cancel, errCh
	case err := <-errCh:
		cancel()
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	return nil, cancel, errCh
}

func waitStopped(t *testing.T, cancel context.CancelFunc, errCh <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func sendWrite(t *testing.T, addr string, stream string, ev eventlog.Event) byte {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	req := wire.Request{Type: wire.RequestWrite, Stream: stream, EventID: ev.ID, Payload: ev.Payload}
	if err := wire.WriteRequest(wire.NewWriter(conn), req); err != nil {
		t.Fatalf("send: %v", err)
	}
	_, typ, err := wire.ReadResponseHeader(wire.NewReader(conn))
	if err != nil {
		t.Fatalf("response: %v", err)
	}
	return typ
}

func TestRunServesAndPersists(t *testing.T) {
	cfg := testConfig(t, "disk")
	addr, cancel, errCh := startRun(t, cfg)

	ev := eventlog.Event{ID: uuid.New(), Payload: []byte("created")}
	if typ := sendWrite(t, addr.String(), "orders", ev); typ != wire.ResponseWriteSucceeded {
		t.Fatalf("write response type = %d", typ)
	}
	waitStopped(t, cancel, errCh)

	s, err := eventlog.OpenDiskStream(cfg.Storage.DataDir, "orders")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got := s.Head(); got != ev.ID {
		t.Fatalf("head after restart = %s want %s", got, ev.ID)
	}
}

func TestRunMemoryBackend(t *testing.T) {
	addr, cancel, errCh := startRun(t, testConfig(t, "memory"))
	ev := eventlog.Event{ID: uuid.New(), Payload: []byte("x")}
	if typ := sendWrite(t, addr.String(), "s", ev); typ != wire.ResponseWriteSucceeded {
		t.Fatalf("write response type = %d", typ)
	}
	waitStopped(t, cancel, errCh)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t, "tape")
	if err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNopLogger()}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestRunListenFailure(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	cfg := testConfig(t, "memory")
	cfg.Listen.Addr = l.Addr().String()
	if err := Run(context.Background(), Options{Config: cfg, Logger: logpkg.NewNopLogger()}); err == nil {
		t.Fatal("expected error when address is in use")
	}
}

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSyncer) SyncIndexes() error {
	c.calls.Add(1)
	return c.err
}

func TestIndexSchedulerRunsSync(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("disk busy")}
	s := newIndexScheduler(syncer, time.Second, logpkg.NewNopLogger())
	s.Start()
	deadline := time.Now().Add(4 * time.Second)
	for syncer.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	s.Stop()
	if syncer.calls.Load() == 0 {
		t.Fatal("index sync never ran")
	}
}
