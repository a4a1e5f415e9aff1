// Package reputation maintains per-client request counters and a blacklist,
// and decides whether each request is admitted. Pure per-minute counting is
// defeated by bursts within a second, so a consecutive-burst counter escalates
// rapid-fire clients to a full blacklist with a fixed cooldown.
package reputation

import (
	"sync"
	"time"
)

// Config holds the admission thresholds. Zero values are replaced by
// DefaultConfig values in NewStore.
type Config struct {
	// PerMinuteLimit is the ordinary request budget per counting window.
	PerMinuteLimit int
	// BurstThreshold is the consecutive-burst count that triggers blacklisting.
	BurstThreshold int
	// ShortWindow is the inter-arrival gap below which requests count as a burst.
	ShortWindow time.Duration
	// ResetWindow is the gap above which burst suspicion fully resets.
	ResetWindow time.Duration
	// CountWindow is the span of one request-counting window.
	CountWindow time.Duration
	// BlacklistDuration is how long a blacklisted client stays denied after
	// its last observed activity.
	BlacklistDuration time.Duration
	// IdleTTL is how long an idle entry survives before the sweeper evicts
	// it. Zero disables eviction.
	IdleTTL time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		PerMinuteLimit:    15,
		BurstThreshold:    2,
		ShortWindow:       time.Second,
		ResetWindow:       5 * time.Second,
		CountWindow:       time.Minute,
		BlacklistDuration: time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// Decision is the outcome of one admission check. Exactly one of
// Allowed, Cooldown, Blacklisted describes the client's standing.
type Decision struct {
	Allowed     bool
	Blacklisted bool
	Cooldown    bool
	// Limit and Remaining feed the X-RateLimit response headers.
	Limit     int
	Remaining int
	// ResetAt is when the current counting window ends.
	ResetAt time.Time
}

// clientEntry tracks one observed client. Counter mutations are serialized by
// the entry mutex so concurrent requests from the same client cannot race a
// read-then-write past the limit.
type clientEntry struct {
	mu sync.Mutex

	requestCount     int
	windowStart      time.Time
	consecutiveBurst int
	lastRequest      time.Time
}

// Store is the reputation store shared by all request handlers and the
// sweeper. Construct one per process and inject it; it is not a singleton.
type Store struct {
	cfg   Config
	clock Clock

	mu        sync.Mutex
	entries   map[string]*clientEntry
	blacklist map[string]struct{}
}

// NewStore creates a Store with the given thresholds. A nil clock means the
// system clock. Zero config fields take their defaults.
func NewStore(cfg Config, clock Clock) *Store {
	def := DefaultConfig()
	if cfg.PerMinuteLimit <= 0 {
		cfg.PerMinuteLimit = def.PerMinuteLimit
	}
	if cfg.BurstThreshold <= 0 {
		cfg.BurstThreshold = def.BurstThreshold
	}
	if cfg.ShortWindow <= 0 {
		cfg.ShortWindow = def.ShortWindow
	}
	if cfg.ResetWindow <= 0 {
		cfg.ResetWindow = def.ResetWindow
	}
	if cfg.CountWindow <= 0 {
		cfg.CountWindow = def.CountWindow
	}
	if cfg.BlacklistDuration <= 0 {
		cfg.BlacklistDuration = def.BlacklistDuration
	}
	if clock == nil {
		clock = SystemClock()
	}
	return &Store{
		cfg:       cfg,
		clock:     clock,
		entries:   make(map[string]*clientEntry),
		blacklist: make(map[string]struct{}),
	}
}

// CheckAdmission decides whether the client's request is admitted. It never
// fails; every call returns a Decision. Blacklisted clients are denied
// without touching their counters, so blacklist expiry is measured from the
// last admitted-path activity.
func (s *Store) CheckAdmission(clientID string) Decision {
	now := s.clock.Now()

	s.mu.Lock()
	if _, banned := s.blacklist[clientID]; banned {
		s.mu.Unlock()
		return Decision{Blacklisted: true, Limit: s.cfg.PerMinuteLimit, ResetAt: now.Add(s.cfg.BlacklistDuration)}
	}
	e, ok := s.entries[clientID]
	if !ok {
		e = &clientEntry{windowStart: now}
		s.entries[clientID] = e
	}
	s.mu.Unlock()

	e.mu.Lock()
	gap := now.Sub(e.lastRequest)
	switch {
	case gap < s.cfg.ShortWindow:
		e.consecutiveBurst++
	case gap > s.cfg.ResetWindow:
		// A fresh entry lands here too: gap since the zero time is huge.
		e.consecutiveBurst = 1
	default:
		// Partial credit: slowing down slightly is not full forgiveness.
		if e.consecutiveBurst > 1 {
			e.consecutiveBurst--
		}
	}
	e.lastRequest = now
	e.requestCount++
	if e.windowStart.IsZero() {
		e.windowStart = now
	}
	burst := e.consecutiveBurst
	count := e.requestCount
	resetAt := e.windowStart.Add(s.cfg.CountWindow)
	e.mu.Unlock()

	if burst >= s.cfg.BurstThreshold {
		s.mu.Lock()
		s.blacklist[clientID] = struct{}{}
		s.mu.Unlock()
		return Decision{Blacklisted: true, Limit: s.cfg.PerMinuteLimit, ResetAt: resetAt}
	}

	if count > s.cfg.PerMinuteLimit {
		return Decision{Cooldown: true, Limit: s.cfg.PerMinuteLimit, ResetAt: resetAt}
	}

	return Decision{
		Allowed:   true,
		Limit:     s.cfg.PerMinuteLimit,
		Remaining: s.cfg.PerMinuteLimit - count,
		ResetAt:   resetAt,
	}
}

// Blacklisted reports whether the client is currently denied outright.
func (s *Store) Blacklisted(clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, banned := s.blacklist[clientID]
	return banned
}

// Len returns the number of tracked client entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
