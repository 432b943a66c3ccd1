package listview

import "time"

type Timer interface {
	Stop() bool
}

// Scheduler runs debounced fetches. Tests swap in a manual one.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
