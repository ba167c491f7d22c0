package serverrun

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	cfgpkg "github.com/rzbill/eventual/internal/config"
	"github.com/rzbill/eventual/internal/runtime"
	grpcserver "github.com/rzbill/eventual/internal/server/grpc"
	httpserver "github.com/rzbill/eventual/internal/server/http"
	tcpserver "github.com/rzbill/eventual/internal/server/tcp"
	pebblestore "github.com/rzbill/eventual/internal/storage/pebble"
	logpkg "github.com/rzbill/eventual/pkg/log"
)

type Options struct {
	Config cfgpkg.Config
	// Logger overrides the logger built from Config.Log.
	Logger logpkg.Logger
	// Listening, if set, is called with the bound wire protocol address.
	Listening func(net.Addr)
}

// Run starts the node and blocks until ctx is cancelled or a signal arrives.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger := opts.Logger
	if procLogger == nil {
		var err error
		procLogger, err = logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			lvl := logpkg.InfoLevel
			if l, e := logpkg.ParseLevel(cfg.Log.Level); e == nil {
				lvl = l
			}
			procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
		}
		// Redirect stdlib logs (e.g., Pebble) to our logger
		logpkg.RedirectStdLog(procLogger)
	}

	backend, err := runtime.ParseBackend(cfg.Storage.Backend)
	if err != nil {
		return err
	}
	fsync, err := pebblestore.ParseFsyncMode(cfg.Storage.Fsync)
	if err != nil {
		return err
	}

	procLogger.Info("Starting eventual server",
		logpkg.Str("addr", cfg.Listen.Addr),
		logpkg.Str("backend", string(backend)),
		logpkg.Str("data_dir", cfg.Storage.DataDir),
		logpkg.Str("http", cfg.Admin.HTTPAddr),
		logpkg.Str("grpc", cfg.Admin.GRPCAddr),
		logpkg.Int("workers", cfg.Listen.Workers),
		logpkg.Str("level", cfg.Log.Level),
		logpkg.Str("format", cfg.Log.Format),
	)

	rt, err := runtime.Open(runtime.Options{
		Backend:       backend,
		DataDir:       cfg.Storage.DataDir,
		Fsync:         fsync,
		FsyncInterval: cfg.Storage.FsyncInterval(),
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	lis, err := net.Listen("tcp", cfg.Listen.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Listen.Addr, err)
	}
	if opts.Listening != nil {
		opts.Listening(lis.Addr())
	}

	var sched *indexScheduler
	if backend == runtime.BackendDisk && cfg.Storage.IndexSyncIntervalMs > 0 {
		sched = newIndexScheduler(rt, cfg.Storage.IndexSyncInterval(), procLogger)
		sched.Start()
	}

	tsrv := tcpserver.New(rt, tcpserver.Options{
		Workers:      cfg.Listen.Workers,
		ReadTimeout:  cfg.Listen.ReadTimeout(),
		WriteTimeout: cfg.Listen.WriteTimeout(),
		Logger:       procLogger,
	})

	var wg sync.WaitGroup
	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tsrv.Serve(sctx, lis); err != nil && sctx.Err() == nil {
			procLogger.Error("tcp server error", logpkg.Err(err))
			select {
			case errCh <- err:
			default:
			}
			stop()
		}
	}()

	var hsrv *httpserver.Server
	if cfg.Admin.HTTPAddr != "" {
		hsrv = httpserver.New(rt, procLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hsrv.ListenAndServe(sctx, cfg.Admin.HTTPAddr); err != nil && sctx.Err() == nil {
				procLogger.Error("http error", logpkg.Err(err))
			}
		}()
	}

	var gsrv *grpcserver.Server
	if cfg.Admin.GRPCAddr != "" {
		gsrv = grpcserver.New(rt, procLogger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := gsrv.ListenAndServe(sctx, cfg.Admin.GRPCAddr); err != nil && sctx.Err() == nil {
				procLogger.Error("grpc error", logpkg.Err(err))
			}
		}()
	}

	<-sctx.Done()
	// Stop servers before closing the runtime so no request sees closed streams.
	tsrv.Close()
	if hsrv != nil {
		hsrv.Close()
	}
	if gsrv != nil {
		gsrv.Close()
	}
	wg.Wait()
	if sched != nil {
		sched.Stop()
	}
	if err := rt.SyncIndexes(); err != nil {
		procLogger.Warn("final index sync failed", logpkg.Err(err))
	}
	procLogger.Info("eventual server stopped")

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
