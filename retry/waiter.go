// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math/bits"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gogama/httptask/request"
)

// A Waiter says how long to sleep before the next attempt. The client
// only asks once the Decider has chosen to retry.
//
// Implementations must be safe for concurrent use.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

// WaiterFunc adapts an ordinary function into a Waiter.
type WaiterFunc func(e *request.Execution) time.Duration

// Wait calls f(e).
func (f WaiterFunc) Wait(e *request.Execution) time.Duration {
	return f(e)
}

// DefaultWaiter backs off exponentially from 50 milliseconds up to one
// second, with full jitter.
var DefaultWaiter = NewExpWaiter(50*time.Millisecond, time.Second, time.Now())

// NewFixedWaiter returns a Waiter which always waits d.
func NewFixedWaiter(d time.Duration) Waiter {
	return WaiterFunc(func(*request.Execution) time.Duration {
		return d
	})
}

// NewExpWaiter returns a Waiter whose wait before retry number n+1 is
// drawn uniformly from [0, min(base<<n, max)), the "full jitter"
// backoff. With a nil jitter, the wait is exactly min(base<<n, max).
//
// base must be positive and max must not be less than base.
//
// jitter seeds the random wait. It may be a seed (time.Time, int or
// int64), a rand.Source, a *rand.Rand, or nil.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	switch {
	case base <= 0:
		panic("httptask/retry: base must be positive")
	case max < base:
		panic("httptask/retry: max must be at least base")
	}

	return &expWaiter{base: base, max: max, rand: newJitter(jitter)}
}

type expWaiter struct {
	base, max time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

func (w *expWaiter) Wait(e *request.Execution) time.Duration {
	ceil := w.ceil(e.Attempt)
	if w.rand == nil {
		return ceil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return time.Duration(w.rand.Int63n(int64(ceil)))
}

// ceil returns min(base<<attempt, max) without overflowing.
func (w *expWaiter) ceil(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	headroom := bits.LeadingZeros64(uint64(w.base)) - 1
	if attempt > headroom {
		return w.max
	}
	if c := w.base << uint(attempt); c < w.max {
		return c
	}
	return w.max
}

func newJitter(jitter interface{}) *rand.Rand {
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		return rand.New(rand.NewSource(j.UnixNano()))
	case int:
		return rand.New(rand.NewSource(int64(j)))
	case int64:
		return rand.New(rand.NewSource(j))
	case *rand.Rand:
		if j == nil {
			panic("httptask/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		return rand.New(j)
	}
	panic("httptask/retry: invalid jitter type")
}

// RetryAfter returns a Waiter which honors the Retry-After header of a
// 429 or 503 response, given either as delay seconds or as an HTTP
// date. The wait is capped at max. When the response carries no usable
// header, the wait comes from fallback.
func RetryAfter(fallback Waiter, max time.Duration) Waiter {
	if fallback == nil {
		panic("httptask/retry: nil fallback waiter")
	}

	return WaiterFunc(func(e *request.Execution) time.Duration {
		d, ok := retryAfter(e, time.Now())
		if !ok {
			return fallback.Wait(e)
		}
		if d > max {
			return max
		}
		return d
	})
}

func retryAfter(e *request.Execution, now time.Time) (time.Duration, bool) {
	switch e.StatusCode() {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
	default:
		return 0, false
	}

	v := strings.TrimSpace(e.Header().Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, false
		}
		if secs > int64(1<<63-1)/int64(time.Second) {
			return 1<<63 - 1, true
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}
