package recommend

import "time"

// Observer receives ranking telemetry.
type Observer interface {
	SourceFailed(source string)
	CacheLookup(hit bool)
	RankCompleted(outcome string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) SourceFailed(string)                 {}
func (nopObserver) CacheLookup(bool)                    {}
func (nopObserver) RankCompleted(string, time.Duration) {}
