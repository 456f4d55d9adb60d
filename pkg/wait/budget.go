package wait

import "time"

// Budget is the single wall-clock allowance shared by the whole run. The
// orchestrator owns it and hands it to each scheduler invocation; it is
// charged one poll interval per failed attempt, never reset between
// targets.
type Budget struct {
	limit   time.Duration
	elapsed time.Duration
}

// NewBudget returns a budget limited to limit; zero or negative means
// unlimited.
func NewBudget(limit time.Duration) *Budget {
	return &Budget{limit: limit}
}

func (b *Budget) Unlimited() bool {
	return b.limit <= 0
}

// Exhausted reports whether the charged time has exceeded the limit. The
// comparison is strict, so a run may overshoot the limit by at most one
// poll interval.
func (b *Budget) Exhausted() bool {
	return !b.Unlimited() && b.elapsed > b.limit
}

func (b *Budget) Charge(d time.Duration) {
	b.elapsed += d
}

func (b *Budget) Elapsed() time.Duration {
	return b.elapsed
}

func (b *Budget) Limit() time.Duration {
	return b.limit
}
