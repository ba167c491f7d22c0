package tcpserver

import (
	"context"
	"errors"
	"net"
	goruntime "runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rzbill/eventual/internal/eventlog"
	"github.com/rzbill/eventual/pkg/log"
)

// StreamRegistry resolves stream names to streams, creating them on first use.
type StreamRegistry interface {
	Stream(name string) (eventlog.Stream, error)
}

// Options configures the listener.
type Options struct {
	// Workers bounds concurrently handled connections. Defaults to the number of CPUs.
	Workers int
	// ReadTimeout and WriteTimeout bound each connection's request and response; zero disables.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       log.Logger
}

// Server owns the listener and the connection worker pool.
type Server struct {
	handler *handler
	opts    Options
	logger  log.Logger

	mu      sync.Mutex
	lis     net.Listener
	closing bool
	done    chan struct{}
	ready   chan struct{}
}

// New constructs a server over streams.
func New(streams StreamRegistry, opts Options) *Server {
	if opts.Workers <= 0 {
		opts.Workers = goruntime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	logger := opts.Logger.WithComponent("tcp")
	return &Server{
		handler: &handler{
			streams:      streams,
			readTimeout:  opts.ReadTimeout,
			writeTimeout: opts.WriteTimeout,
			logger:       logger,
		},
		opts:   opts,
		logger: logger,
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
	}
}

// ListenAndServe binds to addr and serves until ctx is done or Close is called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done or Close is called, then
// waits for in-flight connections to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		_ = l.Close()
		close(s.ready)
		return nil
	}
	s.lis = l
	s.mu.Unlock()
	close(s.ready)
	defer close(s.done)

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.stopAccepting()
		case <-stop:
		}
	}()

	s.logger.Info("listening", log.Str("addr", l.Addr().String()), log.Int("workers", s.opts.Workers))

	var pool errgroup.Group
	pool.SetLimit(s.opts.Workers)
	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.isClosing() {
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn("accept failed; retrying", log.Err(err), log.Duration("backoff", backoff))
				time.Sleep(backoff)
				continue
			}
			_ = pool.Wait()
			return err
		}
		backoff = 0
		// Blocks while every worker is busy.
		pool.Go(func() error {
			s.handler.serve(conn)
			return nil
		})
	}
	_ = pool.Wait()
	s.logger.Info("stopped")
	return nil
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}

func (s *Server) stopAccepting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Addr returns the bound address, blocking until Serve has started. It
// returns nil if the server was closed before Serve ran.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

// Close stops accepting and waits for in-flight connections.
func (s *Server) Close() {
	s.stopAccepting()
	s.mu.Lock()
	started := s.lis != nil
	s.mu.Unlock()
	if started {
		<-s.done
	}
}
