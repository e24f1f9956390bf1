package queue

import "time"

// Scheduler runs processing passes. The processor never calls a pass
// inline, so a pass always starts on a fresh goroutine or timer.
type Scheduler interface {
	Go(f func())
	AfterFunc(d time.Duration, f func())
}

// RealScheduler runs passes on goroutines and runtime timers.
type RealScheduler struct{}

func (RealScheduler) Go(f func()) { go f() }

func (RealScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }
