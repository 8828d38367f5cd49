// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/transient"
)

// A Decider looks at an execution whose attempt has just finished and
// reports whether another attempt should be made.
//
// The client consults the Decider while the execution is Processing.
// A Decider may read the execution, including its lifecycle state, but
// must not modify it. Implementations must be safe for concurrent use.
type Decider interface {
	Decide(e *request.Execution) bool
}

// DeciderFunc adapts an ordinary function into a Decider. Deciders
// built from functions compose with And and Or.
type DeciderFunc func(e *request.Execution) bool

// DefaultTimes is the number of retries DefaultDecider allows.
const DefaultTimes = 5

// DefaultDecider retries a task that has not been canceled, up to
// DefaultTimes times, when the attempt failed with a transient error
// or the server answered 429, 502, 503 or 504.
var DefaultDecider = NotCanceled.
	And(Times(DefaultTimes)).
	And(StatusCode(429, 502, 503, 504).Or(TransientErr))

// TransientErr retries when transient.Categorize finds the attempt
// error transient. It never retries an attempt that got a response
// without error, whatever the status code.
var TransientErr DeciderFunc = func(e *request.Execution) bool {
	return transient.Categorize(e.Err) != transient.Not
}

// NotCanceled returns false once the execution's task has been
// canceled, and true otherwise, including for an execution with no
// lifecycle box.
//
// The client never retries a canceled task. NotCanceled lets a decider
// consulted from elsewhere, such as an event handler, agree with it.
var NotCanceled DeciderFunc = func(e *request.Execution) bool {
	return !e.Canceled()
}

// Decide calls f(e).
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And returns a decider which retries only if both f and g do. g is
// not consulted when f says no.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		if !f(e) {
			return false
		}
		return g(e)
	}
}

// Or returns a decider which retries if either f or g does. g is not
// consulted when f says yes.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		if f(e) {
			return true
		}
		return g(e)
	}
}

// Times allows at most n retries, so at most n+1 attempts in total.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Attempt < n
	}
}

// Before allows retries while less than d has passed since the
// execution started.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode retries when the attempt received a response whose status
// code is one of codes. An attempt without a response never matches.
func StatusCode(codes ...int) DeciderFunc {
	set := make(map[int]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}
	return func(e *request.Execution) bool {
		if e.Response == nil {
			return false
		}
		_, ok := set[e.StatusCode()]
		return ok
	}
}

// Categories retries when the transient category of the attempt error
// is one of cats. Use it in place of TransientErr to retry only some
// kinds of transient failure, for example only refused connections
// when the request is not idempotent.
func Categories(cats ...transient.Category) DeciderFunc {
	var mask uint32
	for _, cat := range cats {
		if cat > transient.Not {
			mask |= 1 << uint(cat)
		}
	}
	return func(e *request.Execution) bool {
		cat := transient.Categorize(e.Err)
		return cat > transient.Not && mask&(1<<uint(cat)) != 0
	}
}
