package client

import "time"

// fibonacci yields Fibonacci-growing delays starting at base, capped at max.
type fibonacci struct {
	base time.Duration
	max  time.Duration
	prev time.Duration
	cur  time.Duration
}

func newFibonacci(base, max time.Duration) *fibonacci {
	return &fibonacci{base: base, max: max}
}

// Next returns the next delay.
func (f *fibonacci) Next() time.Duration {
	if f.cur == 0 {
		f.cur = f.base
		return f.cur
	}
	if f.cur >= f.max {
		return f.max
	}
	next := f.prev + f.cur
	if f.prev == 0 {
		next = f.cur
	}
	f.prev, f.cur = f.cur, next
	if f.cur > f.max {
		f.cur = f.max
	}
	return f.cur
}

// Reset starts the sequence over.
func (f *fibonacci) Reset() {
	f.prev, f.cur = 0, 0
}
