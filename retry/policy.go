// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/httptask/request"
)

// A Policy is a Decider paired with a Waiter. After every attempt the
// client asks the Policy whether to retry and, if so, how long to wait
// first.
//
// Implementations must be safe for concurrent use.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy pairs DefaultDecider with DefaultWaiter.
var DefaultPolicy = NewPolicy(DefaultDecider, DefaultWaiter)

// Never is a policy that never retries.
var Never = NewPolicy(Times(0), NewFixedWaiter(0))

// NewPolicy pairs d and w into a Policy.
//
// The policy never retries an execution whose lifecycle has already
// reached a terminal state, and waits zero for one, without consulting
// d or w.
func NewPolicy(d Decider, w Waiter) Policy {
	if d == nil {
		panic("httptask/retry: nil decider")
	}
	if w == nil {
		panic("httptask/retry: nil waiter")
	}

	return &policy{decider: d, waiter: w}
}

type policy struct {
	decider Decider
	waiter  Waiter
}

func (p *policy) Decide(e *request.Execution) bool {
	if e.State().Terminal() {
		return false
	}
	return p.decider.Decide(e)
}

func (p *policy) Wait(e *request.Execution) time.Duration {
	if e.State().Terminal() {
		return 0
	}
	if d := p.waiter.Wait(e); d > 0 {
		return d
	}
	return 0
}
