// Package report defines how run state transitions reach the user. The core
// never formats output itself; it notifies an injected Reporter.
package report

// Reporter receives run state transitions. Implementations own presentation
// only; classification stays in the core.
type Reporter interface {
	CheckStarted(index, total int, raw string)
	Attempt(raw string, attempt int, reason string)
	Ready(raw string, attempts int)
	Failed(raw string, reason string, code int)
	AllReady(total int)
}

// Nop discards every event. Used by tests and quiet mode.
type Nop struct{}

func (Nop) CheckStarted(int, int, string) {}
func (Nop) Attempt(string, int, string)   {}
func (Nop) Ready(string, int)             {}
func (Nop) Failed(string, string, int)    {}
func (Nop) AllReady(int)                  {}

type multi []Reporter

// Multi fans events out to several reporters in order.
func Multi(rs ...Reporter) Reporter {
	return multi(rs)
}

func (m multi) CheckStarted(index, total int, raw string) {
	for _, r := range m {
		r.CheckStarted(index, total, raw)
	}
}

func (m multi) Attempt(raw string, attempt int, reason string) {
	for _, r := range m {
		r.Attempt(raw, attempt, reason)
	}
}

func (m multi) Ready(raw string, attempts int) {
	for _, r := range m {
		r.Ready(raw, attempts)
	}
}

func (m multi) Failed(raw string, reason string, code int) {
	for _, r := range m {
		r.Failed(raw, reason, code)
	}
}

func (m multi) AllReady(total int) {
	for _, r := range m {
		r.AllReady(total)
	}
}
