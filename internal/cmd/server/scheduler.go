package serverrun

import (
	"time"

	"github.com/robfig/cron/v3"

	logpkg "github.com/rzbill/eventual/pkg/log"
)

// indexSyncer flushes best-effort stream indexes.
type indexSyncer interface {
	SyncIndexes() error
}

// indexScheduler runs SyncIndexes on a fixed delay. cron's constant delay
// schedules round up to whole seconds.
type indexScheduler struct {
	cron   *cron.Cron
	logger logpkg.Logger
}

func newIndexScheduler(rt indexSyncer, every time.Duration, logger logpkg.Logger) *indexScheduler {
	logger = logger.WithComponent("index-sync")
	cronLogger := cron.PrintfLogger(logpkg.ToStdLogger(logger, logpkg.DebugLevel))
	s := &indexScheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		logger: logger,
	}
	s.cron.Schedule(cron.Every(every), cron.FuncJob(func() {
		if err := rt.SyncIndexes(); err != nil {
			s.logger.Warn("index sync failed", logpkg.Err(err))
		}
	}))
	return s
}

func (s *indexScheduler) Start() {
	s.cron.Start()
	s.logger.Debug("scheduler started", logpkg.Int("entries", len(s.cron.Entries())))
}

// Stop waits for a running sync to finish.
func (s *indexScheduler) Stop() {
	<-s.cron.Stop().Done()
}
