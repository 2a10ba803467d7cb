package llm

import (
	"sync"
	"time"
)

// BudgetTracker caps cloud spend per UTC day. It is safe for concurrent use.
type BudgetTracker struct {
	mu    sync.Mutex
	limit float64
	spent float64
	day   time.Time
	now   func() time.Time
}

// NewBudgetTracker creates a tracker allowing limit per day. A nil clock
// means time.Now.
func NewBudgetTracker(limit float64, now func() time.Time) *BudgetTracker {
	if now == nil {
		now = time.Now
	}
	return &BudgetTracker{limit: limit, now: now, day: utcDay(now())}
}

func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// resetIfNewDay must be called with mu held.
func (b *BudgetTracker) resetIfNewDay() {
	if today := utcDay(b.now()); !today.Equal(b.day) {
		b.day = today
		b.spent = 0
	}
}

// Reservation is spend held against one UTC day.
type Reservation struct {
	day  time.Time
	cost float64
}

// Reserve claims cost from today's budget if it fits. Checking and spending
// happen under one lock, so concurrent callers cannot overshoot the limit.
func (b *BudgetTracker) Reserve(cost float64) (Reservation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewDay()
	if b.spent >= b.limit || b.spent+cost > b.limit {
		return Reservation{}, false
	}
	b.spent += cost
	return Reservation{day: b.day, cost: cost}, true
}

// Refund returns an unused reservation. Reservations from an earlier day
// are dropped since that budget has already been reset.
func (b *BudgetTracker) Refund(r Reservation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewDay()
	if !r.day.Equal(b.day) {
		return
	}
	b.spent -= r.cost
	if b.spent < 0 {
		b.spent = 0
	}
}

// Spent returns today's spend.
func (b *BudgetTracker) Spent() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewDay()
	return b.spent
}

func (b *BudgetTracker) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetIfNewDay()
	if b.spent >= b.limit {
		return 0
	}
	return b.limit - b.spent
}
