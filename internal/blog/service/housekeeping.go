package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/milan-stefanik/flyhigh/internal/blog/store"
)

// DefaultOrphanGrace is how old an unreferenced blob must be before the
// sweep deletes it.
const DefaultOrphanGrace = time.Hour

// HousekeepingService periodically removes expired sessions and blobs that
// no user or post references any more (left behind when a request died
// between storing a picture and writing its owner).
type HousekeepingService struct {
	Store       store.Store
	Media       *media.Pipeline
	Logger      *slog.Logger
	Interval    time.Duration
	OrphanGrace time.Duration
	Now         func() time.Time

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Non-positive
// durations fall back to one hour.
func NewHousekeepingService(s store.Store, m *media.Pipeline, logger *slog.Logger, interval, orphanGrace time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if orphanGrace <= 0 {
		orphanGrace = DefaultOrphanGrace
	}

	return &HousekeepingService{
		Store:       s,
		Media:       m,
		Logger:      logger,
		Interval:    interval,
		OrphanGrace: orphanGrace,
		Now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs one cleanup pass. Each step is independent; a failure in
// one does not stop the other.
func (s *HousekeepingService) RunOnce(ctx context.Context) {
	now := s.Now().UTC()
	s.Logger.Info("starting housekeeping cleanup")

	var successful int

	n, err := s.Store.Sessions().DeleteExpiredSessions(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired sessions", "error", err)
	} else {
		s.Logger.Debug("deleted expired sessions", "count", n)
		successful++
	}

	if removed, err := s.sweepOrphans(ctx, now); err != nil {
		s.Logger.Error("failed to sweep orphan blobs", "error", err)
	} else {
		s.Logger.Debug("swept orphan blobs", "count", removed)
		successful++
	}

	s.Logger.Info("housekeeping cleanup completed", "successful_cleanups", successful)
}

func (s *HousekeepingService) sweepOrphans(ctx context.Context, now time.Time) (int, error) {
	referenced := map[string]struct{}{}

	userFiles, err := s.Store.Users().ListImageFiles(ctx)
	if err != nil {
		return 0, err
	}
	postFiles, err := s.Store.Posts().ListImageFiles(ctx)
	if err != nil {
		return 0, err
	}
	for _, f := range append(userFiles, postFiles...) {
		referenced[f] = struct{}{}
	}

	return s.Media.SweepOrphans(ctx, referenced, now.Add(-s.OrphanGrace))
}
