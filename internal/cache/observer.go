package cache

import "time"

type Outcome string

const (
	OutcomeReady     Outcome = "ready"
	OutcomeFailed    Outcome = "failed"
	OutcomeDiscarded Outcome = "discarded"
)

// Observer receives fetch and mutation events. Calls happen outside the cache lock.
type Observer interface {
	FetchStarted(resource string)
	FetchSettled(resource string, outcome Outcome, elapsed time.Duration)
	Mutated(resource string)
}

type noopObserver struct{}

func (noopObserver) FetchStarted(string)                         {}
func (noopObserver) FetchSettled(string, Outcome, time.Duration) {}
func (noopObserver) Mutated(string)                              {}
