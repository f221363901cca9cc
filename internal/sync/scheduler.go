package sync

import (
	"context"
	"time"
)

// Run drives the background scheduler: refresh_updated fires every
// interval, and a manually triggered refresh (via Trigger) preempts the
// next scheduled tick. Run blocks until ctx is cancelled or Stop is
// called.
func (s *Synchroniser) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 300 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		case <-s.triggerCh:
			s.runRefresh(ctx)
			ticker.Reset(interval)
		}
	}
}

func (s *Synchroniser) runRefresh(ctx context.Context) {
	if err := s.RefreshUpdated(ctx); err != nil {
		s.log.Error(err, "background refresh_updated failed")
	}
}

// Trigger preempts the next scheduled refresh_updated with an
// immediate one; it does not block, and drops the request if one is
// already pending.
func (s *Synchroniser) Trigger() {
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

// Stop ends the background scheduler loop started by Run.
func (s *Synchroniser) Stop() {
	close(s.stopCh)
}

// Bootstrapped reports whether Bootstrap has completed.
func (s *Synchroniser) Bootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bootstrapped
}
