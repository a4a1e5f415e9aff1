package reputation

import (
	"context"
	"log/slog"
	"time"
)

// Sweep performs one maintenance pass: stale counting windows are reset,
// expired blacklist entries are released, and long-idle entries are evicted.
// The sweeper takes the same lock discipline as the request path; request
// handling never waits on a sweep in progress beyond ordinary lock hold times.
func (s *Store) Sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	entries := make(map[string]*clientEntry, len(s.entries))
	for id, e := range s.entries {
		entries[id] = e
	}
	s.mu.Unlock()

	// Coarse once-per-window reset, not a true sliding window. Accepted
	// approximation: burst resistance under-counts right at window edges.
	var idle []string
	for id, e := range entries {
		e.mu.Lock()
		if now.Sub(e.windowStart) > s.cfg.CountWindow {
			e.requestCount = 0
			e.windowStart = now
		}
		lastSeen := e.lastRequest
		e.mu.Unlock()

		if s.cfg.IdleTTL > 0 && now.Sub(lastSeen) > s.cfg.IdleTTL {
			idle = append(idle, id)
		}
	}

	s.mu.Lock()
	for id := range s.blacklist {
		e, ok := s.entries[id]
		if !ok {
			delete(s.blacklist, id)
			continue
		}
		e.mu.Lock()
		lastSeen := e.lastRequest
		e.mu.Unlock()
		if now.Sub(lastSeen) > s.cfg.BlacklistDuration {
			delete(s.blacklist, id)
		}
	}
	for _, id := range idle {
		// Blacklisted entries survive eviction until released above.
		if _, banned := s.blacklist[id]; !banned {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
}

// StartSweeper runs Sweep on a fixed period until the context is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("reputation sweeper stopped")
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}
