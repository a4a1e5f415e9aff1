package reputation

import (
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock for deterministic tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore() (*Store, *fakeClock) {
	clock := newFakeClock()
	return NewStore(DefaultConfig(), clock), clock
}

func TestCheckAdmissionUnderLimit(t *testing.T) {
	store, clock := newTestStore()

	// Spaced beyond the short window, every request inside the budget is
	// admitted.
	for i := 0; i < 15; i++ {
		clock.Advance(6 * time.Second)
		d := store.CheckAdmission("1.2.3.4")
		if !d.Allowed {
			t.Fatalf("request %d: Allowed = false, want true (decision %+v)", i+1, d)
		}
		if want := 15 - (i + 1); d.Remaining != want {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, d.Remaining, want)
		}
	}
}

func TestCheckAdmissionBurstBlacklists(t *testing.T) {
	store, clock := newTestStore()

	if d := store.CheckAdmission("9.9.9.9"); !d.Allowed {
		t.Fatalf("first request denied: %+v", d)
	}

	// Second request inside the short window crosses the burst threshold.
	clock.Advance(100 * time.Millisecond)
	d := store.CheckAdmission("9.9.9.9")
	if d.Allowed || !d.Blacklisted {
		t.Fatalf("burst request: got %+v, want denied blacklisted", d)
	}

	// Every subsequent request is denied outright, counters untouched.
	for i := 0; i < 5; i++ {
		clock.Advance(200 * time.Millisecond)
		if d := store.CheckAdmission("9.9.9.9"); !d.Blacklisted {
			t.Fatalf("post-blacklist request %d: got %+v, want blacklisted", i, d)
		}
	}
}

func TestCheckAdmissionPartialCredit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BurstThreshold = 4
	clock := newFakeClock()
	store := NewStore(cfg, clock)

	// Build up suspicion with three rapid requests: burst reaches 3.
	for i := 0; i < 3; i++ {
		if d := store.CheckAdmission("c"); !d.Allowed {
			t.Fatalf("rapid request %d denied: %+v", i+1, d)
		}
		clock.Advance(200 * time.Millisecond)
	}

	// A moderately paced request decrements suspicion by one instead of
	// resetting it, so a follow-up burst request still escalates to 3+1=4.
	clock.Advance(3 * time.Second)
	if d := store.CheckAdmission("c"); !d.Allowed {
		t.Fatalf("moderate request denied: %+v", d)
	}

	clock.Advance(200 * time.Millisecond)
	d := store.CheckAdmission("c")
	if !d.Blacklisted {
		t.Fatalf("expected partial credit to keep suspicion high, got %+v", d)
	}
}

func TestCheckAdmissionBurstResetAfterLongGap(t *testing.T) {
	store, clock := newTestStore()

	if d := store.CheckAdmission("c"); !d.Allowed {
		t.Fatal("first request denied")
	}

	// A gap beyond the reset window fully clears suspicion; the next pair
	// needs a fresh burst to blacklist.
	clock.Advance(10 * time.Second)
	if d := store.CheckAdmission("c"); !d.Allowed {
		t.Fatalf("request after long gap denied: %+v", d)
	}
}

func TestCheckAdmissionCooldown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerMinuteLimit = 5
	cfg.CountWindow = time.Minute
	clock := newFakeClock()
	store := NewStore(cfg, clock)

	// Spaced in the partial-credit band: never a burst, but the counter
	// still runs over the per-window budget.
	for i := 0; i < 5; i++ {
		clock.Advance(2 * time.Second)
		if d := store.CheckAdmission("c"); !d.Allowed {
			t.Fatalf("request %d denied: %+v", i+1, d)
		}
	}

	clock.Advance(2 * time.Second)
	d := store.CheckAdmission("c")
	if d.Allowed || !d.Cooldown || d.Blacklisted {
		t.Fatalf("over-limit request: got %+v, want cooldown denial", d)
	}
}

func TestSweepResetsCountingWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerMinuteLimit = 3
	clock := newFakeClock()
	store := NewStore(cfg, clock)

	for i := 0; i < 3; i++ {
		clock.Advance(2 * time.Second)
		if d := store.CheckAdmission("c"); !d.Allowed {
			t.Fatalf("request %d denied: %+v", i+1, d)
		}
	}
	clock.Advance(2 * time.Second)
	if d := store.CheckAdmission("c"); !d.Cooldown {
		t.Fatalf("expected cooldown before sweep, got %+v", d)
	}

	clock.Advance(61 * time.Second)
	store.Sweep()

	if d := store.CheckAdmission("c"); !d.Allowed {
		t.Fatalf("request after window reset denied: %+v", d)
	}
}

func TestSweepExpiresBlacklist(t *testing.T) {
	store, clock := newTestStore()

	store.CheckAdmission("c")
	clock.Advance(100 * time.Millisecond)
	if d := store.CheckAdmission("c"); !d.Blacklisted {
		t.Fatalf("expected blacklist, got %+v", d)
	}

	// Too early: blacklist holds.
	clock.Advance(30 * time.Second)
	store.Sweep()
	if !store.Blacklisted("c") {
		t.Fatal("blacklist released too early")
	}

	// Past the blacklist duration: released, and the client is admitted
	// again once within rate limits.
	clock.Advance(31 * time.Second)
	store.Sweep()
	if store.Blacklisted("c") {
		t.Fatal("blacklist not released after expiry")
	}
	if d := store.CheckAdmission("c"); !d.Allowed {
		t.Fatalf("previously blacklisted client still denied: %+v", d)
	}
}

func TestSweepEvictsIdleEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTTL = 10 * time.Minute
	clock := newFakeClock()
	store := NewStore(cfg, clock)

	store.CheckAdmission("idle-client")
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", store.Len())
	}

	clock.Advance(11 * time.Minute)
	store.Sweep()
	if store.Len() != 0 {
		t.Errorf("Len() = %d after idle sweep, want 0", store.Len())
	}
}

func TestSweepKeepsBlacklistedEntriesUntilReleased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IdleTTL = time.Second
	cfg.BlacklistDuration = 10 * time.Minute
	clock := newFakeClock()
	store := NewStore(cfg, clock)

	store.CheckAdmission("c")
	clock.Advance(100 * time.Millisecond)
	store.CheckAdmission("c") // blacklisted

	clock.Advance(5 * time.Minute)
	store.Sweep()
	if !store.Blacklisted("c") {
		t.Fatal("blacklist released early")
	}
	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want blacklisted entry retained", store.Len())
	}
}

func TestCheckAdmissionConcurrentSameClient(t *testing.T) {
	store, _ := newTestStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d := store.CheckAdmission("same"); d.Allowed {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// All requests land at the same instant; serialized counter updates
	// must not let a read-then-write race admit past the limit.
	if admitted > DefaultConfig().PerMinuteLimit {
		t.Errorf("admitted = %d, want <= %d", admitted, DefaultConfig().PerMinuteLimit)
	}
}

func TestCheckAdmissionIsolatesClients(t *testing.T) {
	store, clock := newTestStore()

	store.CheckAdmission("a")
	clock.Advance(100 * time.Millisecond)
	if d := store.CheckAdmission("a"); !d.Blacklisted {
		t.Fatal("expected client a blacklisted")
	}

	// An unrelated client is unaffected.
	if d := store.CheckAdmission("b"); !d.Allowed {
		t.Fatalf("client b denied: %+v", d)
	}
}
