package digest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xiaoyuanzhu-com/mylifedb-digest/config"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/db"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/fs"
	"github.com/xiaoyuanzhu-com/mylifedb-digest/log"
)

// selectionBatch is how many candidate paths a watcher event checks against
const selectionBatch = 100

// supervisorActive enforces one Supervisor per process
var supervisorActive atomic.Bool

// Supervisor is the long-running scheduler. It polls file selection, runs the
// coordinator one file at a time, sweeps stale in-progress rows, backs off on
// repeated failure, and reacts to filesystem events for immediate processing.
type Supervisor struct {
	cfg      *config.Config
	registry *Registry
	coord    *Coordinator

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastStaleSweep      time.Time
	consecutiveFailures int
}

// NewSupervisor creates a supervisor
func NewSupervisor(registry *Registry, coord *Coordinator) *Supervisor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:      config.Get(),
		registry: registry,
		coord:    coord,
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

// Start launches the supervisor loop. Only one supervisor may run per process.
func (s *Supervisor) Start() error {
	if !supervisorActive.CompareAndSwap(false, true) {
		return fmt.Errorf("digest supervisor already running")
	}

	log.Info().
		Dur("startDelay", s.cfg.StartDelay).
		Dur("staleThreshold", s.cfg.StaleThreshold).
		Msg("starting digest supervisor")

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop signals the loop to exit and waits for it
func (s *Supervisor) Stop() {
	close(s.stopChan)
	s.cancel()
	s.wg.Wait()
	supervisorActive.Store(false)
	log.Info().Msg("digest supervisor stopped")
}

// OnFileChange handles filesystem events. An invalidating change reprocesses
// the file from scratch; anything else is processed only if file selection
// still has work for it. The per-file lock serializes event handling with
// the main loop.
func (s *Supervisor) OnFileChange(event fs.FileChangeEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if event.IsNew {
			if _, _, err := EnsurePlaceholders(s.registry, event.FilePath); err != nil {
				log.Error().Err(err).Str("path", event.FilePath).Msg("failed to ensure placeholders")
				return
			}
		}

		if event.ShouldInvalidateDigests {
			log.Info().Str("path", event.FilePath).Msg("content changed, reprocessing digests")
			if err := s.coord.Process(s.ctx, event.FilePath, &ProcessOptions{Reset: true}); err != nil {
				log.Error().Err(err).Str("path", event.FilePath).Msg("event processing failed")
			}
			return
		}

		paths, err := SelectFiles(s.registry, selectionBatch)
		if err != nil {
			log.Error().Err(err).Msg("file selection failed")
			return
		}
		for _, path := range paths {
			if path == event.FilePath {
				if err := s.coord.Process(s.ctx, path, nil); err != nil {
					log.Error().Err(err).Str("path", path).Msg("event processing failed")
				}
				return
			}
		}
	}()
}

// run is the main loop
func (s *Supervisor) run() {
	defer s.wg.Done()

	// Warm-up delay; cancellable by Stop
	if !s.sleep(s.cfg.StartDelay) {
		return
	}

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		s.sweepStaleIfDue()

		paths, err := SelectFiles(s.registry, 1)
		if err != nil {
			log.Error().Err(err).Msg("file selection failed")
			if !s.sleep(s.cfg.IdleSleep) {
				return
			}
			continue
		}

		if len(paths) == 0 {
			s.consecutiveFailures = 0
			if !s.sleep(s.cfg.IdleSleep) {
				return
			}
			continue
		}

		path := paths[0]
		if err := s.coord.Process(s.ctx, path, nil); err != nil {
			log.Error().Err(err).Str("path", path).Msg("coordinator failed")
		}

		if !s.sleep(s.cfg.FileDelay) {
			return
		}

		if s.fileHasFailures(path) {
			s.consecutiveFailures++
			delay := s.failureBackoff(s.consecutiveFailures)
			log.Warn().
				Str("path", path).
				Int("consecutiveFailures", s.consecutiveFailures).
				Dur("backoff", delay).
				Msg("file has failed digests, backing off")
			if !s.sleep(delay) {
				return
			}
		} else {
			s.consecutiveFailures = 0
		}
	}
}

// sweepStaleIfDue reclaims in-progress rows (and locks) abandoned by crashed
// workers. This is the only writer allowed to move rows out of in-progress
// without holding the file lock.
func (s *Supervisor) sweepStaleIfDue() {
	if time.Since(s.lastStaleSweep) < s.cfg.StaleSweepInterval {
		return
	}
	s.lastStaleSweep = time.Now()

	cutoff := db.NowMs() - s.cfg.StaleThreshold.Milliseconds()

	reclaimed, err := db.ResetStaleInProgressDigests(cutoff)
	if err != nil {
		log.Error().Err(err).Msg("stale digest sweep failed")
	} else if reclaimed > 0 {
		log.Warn().Int64("count", reclaimed).Msg("reclaimed stale in-progress digests")
	}

	if _, err := db.ReleaseStaleFileLocks(cutoff); err != nil {
		log.Error().Err(err).Msg("stale lock sweep failed")
	}
}

// fileHasFailures reports whether any of the file's digests is failed
func (s *Supervisor) fileHasFailures(path string) bool {
	digests, err := db.ListDigestsForFile(path)
	if err != nil {
		return false
	}
	for _, d := range digests {
		if d.Status == db.DigestStatusFailed {
			return true
		}
	}
	return false
}

// failureBackoff returns min(base * 2^(n-1), max)
func (s *Supervisor) failureBackoff(n int) time.Duration {
	delay := s.cfg.FailureBaseDelay
	for i := 1; i < n; i++ {
		delay *= 2
		if delay >= s.cfg.FailureMaxDelay {
			return s.cfg.FailureMaxDelay
		}
	}
	return min(delay, s.cfg.FailureMaxDelay)
}

// sleep waits for d or until Stop; returns false when stopping
func (s *Supervisor) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-s.stopChan:
		return false
	}
}
