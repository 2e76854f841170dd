package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRefreshInterval = 15 * time.Minute

	refreshTimeout = 2 * time.Minute
)

// RefresherService rebuilds the reference snapshot on a schedule.
type RefresherService struct {
	data   *ReferenceData
	logger *zap.Logger

	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRefresherService(data *ReferenceData, logger *zap.Logger) *RefresherService {
	return &RefresherService{
		data:     data,
		logger:   logger,
		interval: DefaultRefreshInterval,
		stopCh:   make(chan struct{}),
	}
}

func (s *RefresherService) SetInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Start builds the first snapshot, then refreshes periodically in a
// background goroutine.
func (s *RefresherService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.logger.Info("reference refresher started", zap.Duration("interval", s.interval))
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopCh:
				s.logger.Info("reference refresher stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the refresher.
func (s *RefresherService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *RefresherService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if _, err := s.data.Refresh(ctx); err != nil {
		s.logger.Error("reference refresh failed", zap.Error(err))
	}
}
