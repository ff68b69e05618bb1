package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/boofmebel/auth/internal/auth/store"
)

// WindowSweeper drops in-memory rate limit windows older than cutoff.
type WindowSweeper interface {
	Sweep(cutoff time.Time) int
}

// HousekeepingService periodically removes rate limit windows that can no
// longer affect a decision. Refresh token records are kept forever.
type HousekeepingService struct {
	Store    store.Store
	Memory   WindowSweeper // nil when the store backend is in use
	Logger   *slog.Logger
	Interval time.Duration

	// MaxWindow is the longest configured rate limit window. Windows that
	// started before now minus MaxWindow are stale.
	MaxWindow time.Duration

	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one minute.
func NewHousekeepingService(st store.Store, memory WindowSweeper, logger *slog.Logger, interval, maxWindow time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Minute
	}

	return &HousekeepingService{
		Store:     st,
		Memory:    memory,
		Logger:    logger,
		Interval:  interval,
		MaxWindow: maxWindow,
		Now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one cleanup pass. Each backend is independent; a store failure
// is logged and does not stop the memory sweep.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	cutoff := s.Now().UTC().Add(-s.MaxWindow)

	if s.Memory != nil {
		n := s.Memory.Sweep(cutoff)
		housekeepingSweptTotal.WithLabelValues("memory").Add(float64(n))
		s.Logger.Debug("swept memory rate windows", "removed", n)
	}

	if s.Store != nil {
		n, err := s.Store.RateWindows().DeleteBefore(ctx, cutoff)
		if err != nil {
			s.Logger.Error("failed to delete stale rate windows", "error", err)
			return
		}
		housekeepingSweptTotal.WithLabelValues("store").Add(float64(n))
		s.Logger.Debug("deleted stale rate windows", "removed", n)
	}
}
