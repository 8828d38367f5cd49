// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"time"

	"github.com/gogama/httptask/request"
)

// A Policy chooses the timeout of each attempt of a plan execution.
// Client consults it before every attempt, so implementations must be
// safe for concurrent use.
type Policy interface {
	// Timeout returns the timeout for the attempt about to start. e is
	// the execution as it stands after the previous attempt, if any.
	Timeout(e *request.Execution) time.Duration
}

// DefaultPolicy gives every attempt 5 seconds.
var DefaultPolicy Policy = Fixed(5 * time.Second)

// Infinite never times an attempt out.
var Infinite Policy = Fixed(1<<63 - 1)

// Fixed returns a policy giving every attempt the timeout d.
func Fixed(d time.Duration) Policy {
	return ladder{d}
}

// Adaptive returns a policy that uses usual unless the previous attempt
// timed out. After the execution's nth timeout it uses after[n-1], or
// the last element of after once they run out.
//
// It suits a service with occasional slow responses that a quick retry
// cures, while backing off when the slowness persists:
//
//	p := Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	return append(ladder{usual}, after...)
}

// PolicyFunc adapts an ordinary function to Policy.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout returns f(e).
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// Streaming returns a policy that asks streamed for the timeout when
// the plan streams its body, and buffered otherwise. A streamed attempt
// runs at the speed of its FillFunc, so it usually needs much longer:
//
//	p := Streaming(DefaultPolicy, Fixed(10*time.Minute))
func Streaming(buffered, streamed Policy) Policy {
	if buffered == nil || streamed == nil {
		panic("httptask/timeout: nil policy")
	}

	return PolicyFunc(func(e *request.Execution) time.Duration {
		if e.Plan != nil && e.Plan.Streamed() {
			return streamed.Timeout(e)
		}
		return buffered.Timeout(e)
	})
}

// ladder holds the usual timeout followed by the timeouts to use after
// the first, second, and later attempt timeouts.
type ladder []time.Duration

func (l ladder) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return l[0]
	}
	return l[min(e.AttemptTimeouts, len(l)-1)]
}
