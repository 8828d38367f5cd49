// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package lifecycle

import "sync/atomic"

// An ActivityCounter counts requests which currently have network
// activity in progress.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type ActivityCounter interface {
	Increment()
	Decrement()
}

// DefaultActivity is the process-wide network activity counter used by
// the robust client when no other counter is configured.
var DefaultActivity = &Counter{}

// A Counter is a simple ActivityCounter. Its zero value is ready to
// use.
type Counter struct {
	n atomic.Int64
}

// Increment adds one to the count.
func (c *Counter) Increment() {
	c.n.Add(1)
}

// Decrement subtracts one from the count.
func (c *Counter) Decrement() {
	c.n.Add(-1)
}

// InFlight returns the current count.
func (c *Counter) InFlight() int64 {
	return c.n.Load()
}

// Track counts b as active on c, unless b is already tracked. It
// returns true if this call incremented c.
func Track(b *Box, c ActivityCounter) bool {
	if b.SetTracking() {
		return false
	}
	c.Increment()
	return true
}

// Untrack uncounts b from c, unless b is not tracked. It returns true if
// this call decremented c.
func Untrack(b *Box, c ActivityCounter) bool {
	if !b.ClearTracking() {
		return false
	}
	c.Decrement()
	return true
}
