package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zhangyunhao116/skipmap"

	"github.com/rzbill/eventual/internal/eventlog"
	pebblestore "github.com/rzbill/eventual/internal/storage/pebble"
	"github.com/rzbill/eventual/pkg/log"
)

var (
	ErrInvalidStreamName = errors.New("runtime: stream name must not be empty")
	ErrClosed            = errors.New("runtime: closed")
)

// Backend selects the Stream implementation.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendDisk   Backend = "disk"
	BackendPebble Backend = "pebble"
)

// ParseBackend maps memory|disk|pebble to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendMemory, BackendDisk, BackendPebble:
		return b, nil
	case "":
		return BackendDisk, nil
	default:
		return "", fmt.Errorf("runtime: invalid backend %q; use memory|disk|pebble", s)
	}
}

// PebbleDirName is the Pebble directory created under DataDir.
const PebbleDirName = "pebble"

// Options for building the Runtime.
type Options struct {
	Backend Backend
	DataDir string
	// Fsync and FsyncInterval apply to the pebble backend. The disk backend
	// always syncs the data file before acknowledging.
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Logger        log.Logger
}

type slot struct {
	once   sync.Once
	stream eventlog.Stream
	err    error
	ready  atomic.Bool // set once stream is open and safe to read without once
}

func (s *slot) opened() (eventlog.Stream, bool) {
	if !s.ready.Load() {
		return nil, false
	}
	return s.stream, true
}

// Runtime is the storage registry.
type Runtime struct {
	opts    Options
	db      *pebblestore.DB
	streams *skipmap.OrderedMap[string, *slot]
	evictMu sync.Mutex
	// closeMu is held shared while a stream is looked up or opened and
	// exclusively while Close marks the runtime closed.
	closeMu sync.RWMutex
	closed  atomic.Bool
	logger  log.Logger
}

// Open initializes the selected backend and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	if opts.Backend == "" {
		opts.Backend = BackendDisk
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNopLogger()
	}
	rt := &Runtime{
		opts:    opts,
		streams: skipmap.New[string, *slot](),
		logger:  opts.Logger.WithComponent("runtime"),
	}
	switch opts.Backend {
	case BackendMemory:
	case BackendDisk:
		if opts.DataDir == "" {
			return nil, errors.New("runtime: Options.DataDir is required for the disk backend")
		}
		if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("runtime: create data dir: %w", err)
		}
	case BackendPebble:
		if opts.DataDir == "" {
			return nil, errors.New("runtime: Options.DataDir is required for the pebble backend")
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir:       filepath.Join(opts.DataDir, PebbleDirName),
			Fsync:         opts.Fsync,
			FsyncInterval: opts.FsyncInterval,
		})
		if err != nil {
			return nil, err
		}
		rt.db = db
	default:
		return nil, fmt.Errorf("runtime: unknown backend %q", opts.Backend)
	}
	rt.logger.Info("storage opened", log.Str("backend", string(opts.Backend)), log.Str("data_dir", opts.DataDir))
	return rt, nil
}

// Backend returns the selected backend.
func (r *Runtime) Backend() Backend { return r.opts.Backend }

// Stream returns the stream registered under name, creating it on first use.
// A failed open is not cached; the next lookup retries.
func (r *Runtime) Stream(name string) (eventlog.Stream, error) {
	if name == "" {
		return nil, ErrInvalidStreamName
	}
	r.closeMu.RLock()
	defer r.closeMu.RUnlock()
	if r.closed.Load() {
		return nil, ErrClosed
	}
	s, _ := r.streams.LoadOrStoreLazy(name, func() *slot { return &slot{} })
	s.once.Do(func() {
		s.stream, s.err = r.open(name)
		if s.err == nil {
			s.ready.Store(true)
			r.logger.Debug("stream opened", log.Str("stream", name))
		}
	})
	if s.err != nil {
		r.evict(name, s)
		return nil, s.err
	}
	return s.stream, nil
}

func (r *Runtime) evict(name string, failed *slot) {
	r.evictMu.Lock()
	defer r.evictMu.Unlock()
	if cur, ok := r.streams.Load(name); ok && cur == failed {
		r.streams.Delete(name)
	}
}

func (r *Runtime) open(name string) (eventlog.Stream, error) {
	switch r.opts.Backend {
	case BackendMemory:
		return eventlog.NewMemoryStream(), nil
	case BackendPebble:
		return eventlog.OpenPebbleStream(r.db, name)
	default:
		return eventlog.OpenDiskStream(r.opts.DataDir, name)
	}
}

// Has reports whether name is registered or persisted by the backend.
func (r *Runtime) Has(name string) bool {
	if _, ok := r.streams.Load(name); ok {
		return true
	}
	names, err := r.persisted()
	if err != nil {
		return false
	}
	i := sort.SearchStrings(names, name)
	return i < len(names) && names[i] == name
}

// Names returns the sorted names of registered and persisted streams.
func (r *Runtime) Names() ([]string, error) {
	names, err := r.persisted()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		seen[n] = struct{}{}
	}
	r.streams.Range(func(name string, s *slot) bool {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names, nil
}

func (r *Runtime) persisted() ([]string, error) {
	var (
		names []string
		err   error
	)
	switch r.opts.Backend {
	case BackendDisk:
		names, err = eventlog.DiskStreamNames(r.opts.DataDir)
	case BackendPebble:
		names, err = eventlog.PebbleStreamNames(r.db)
	}
	sort.Strings(names)
	return names, err
}

// SyncIndexes flushes and fsyncs the index of every open stream that keeps one.
func (r *Runtime) SyncIndexes() error {
	var errs []error
	r.streams.Range(func(name string, s *slot) bool {
		stream, ok := s.opened()
		if !ok {
			return true
		}
		syncer, ok := stream.(eventlog.IndexSyncer)
		if !ok {
			return true
		}
		if err := syncer.SyncIndex(); err != nil && !errors.Is(err, eventlog.ErrClosed) {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return true
	})
	return errors.Join(errs...)
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	switch r.opts.Backend {
	case BackendDisk:
		if _, err := os.Stat(r.opts.DataDir); err != nil {
			return fmt.Errorf("runtime: data dir: %w", err)
		}
	case BackendPebble:
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		return it.Close()
	}
	return nil
}

// Close closes every stream, then the Pebble database.
func (r *Runtime) Close() error {
	r.closeMu.Lock()
	swapped := r.closed.CompareAndSwap(false, true)
	r.closeMu.Unlock()
	if !swapped {
		return nil
	}
	var errs []error
	r.streams.Range(func(name string, s *slot) bool {
		if stream, ok := s.opened(); ok {
			if err := stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		return true
	})
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	r.logger.Info("storage closed")
	return errors.Join(errs...)
}
