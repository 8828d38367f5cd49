// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/request"
)

func TestBudget(t *testing.T) {
	t.Run("nil limiter", func(t *testing.T) {
		assert.False(t, Budget(nil)(&request.Execution{}))
	})
	t.Run("burst spent", func(t *testing.T) {
		// Refills once an hour, so nothing comes back during the test.
		l := rate.NewLimiter(rate.Every(time.Hour), 3)
		b := Budget(l)
		e := &request.Execution{}
		assert.True(t, b(e))
		assert.True(t, b(e))
		assert.True(t, b(e))
		assert.False(t, b(e))
		assert.False(t, b(e))
	})
	t.Run("unlimited", func(t *testing.T) {
		b := Budget(rate.NewLimiter(rate.Inf, 0))
		for i := 0; i < 100; i++ {
			assert.True(t, b(&request.Execution{}))
		}
	})
	t.Run("shared between executions", func(t *testing.T) {
		l := rate.NewLimiter(rate.Every(time.Hour), 1)
		d := StatusCode(503).And(Budget(l))
		e1 := &request.Execution{Response: &http.Response{StatusCode: 503}}
		e2 := &request.Execution{Response: &http.Response{StatusCode: 503}}
		assert.True(t, d(e1))
		assert.False(t, d(e2))
	})
	t.Run("not spent when short-circuited", func(t *testing.T) {
		l := rate.NewLimiter(rate.Every(time.Hour), 1)
		d := StatusCode(503).And(Budget(l))
		assert.False(t, d(&request.Execution{Response: &http.Response{StatusCode: 200}}))
		assert.True(t, d(&request.Execution{Response: &http.Response{StatusCode: 503}}))
	})
	t.Run("after default decider", func(t *testing.T) {
		l := rate.NewLimiter(rate.Every(time.Hour), 1)
		d := DefaultDecider.And(Budget(l))
		canceled := withStatus(processing(0), 503)
		canceled.Lifecycle.Transition(lifecycle.Canceled)
		assert.False(t, d(canceled))
		assert.False(t, d(withStatus(processing(DefaultTimes), 503)))
		assert.True(t, d(withStatus(processing(0), 503)))
		assert.False(t, d(withStatus(processing(1), 503)))
	})
}
