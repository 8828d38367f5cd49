// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/httptask"
	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
	"github.com/gogama/httptask/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ lifecycle.ActivityCounter = (*Recorder)(nil)

func TestRecorder_Empty(t *testing.T) {
	r := NewRecorder()
	assert.Equal(t, Snapshot{}, r.Snapshot())
}

func TestRecorder_Activity(t *testing.T) {
	r := NewRecorder()
	r.Increment()
	r.Increment()
	assert.Equal(t, int64(2), r.InFlight())
	r.Decrement()
	assert.Equal(t, int64(1), r.InFlight())
	assert.Equal(t, int64(1), r.Snapshot().InFlight)
}

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder()
	r.record(0)
	r.record(2 * time.Millisecond)
	r.record(time.Hour)
	s := r.Snapshot()
	assert.Equal(t, time.Microsecond, s.Min)
	assert.InDelta(t, float64(2*time.Millisecond), float64(s.P50), float64(10*time.Microsecond))
	assert.InDelta(t, float64(time.Minute), float64(s.Max), float64(100*time.Millisecond))
	assert.True(t, s.P99 >= s.P95)
	assert.True(t, s.P95 >= s.P50)
}

func TestRecorder_Reset(t *testing.T) {
	r := NewRecorder()
	r.Increment()
	r.attempts.Add(3)
	r.record(time.Second)
	r.Reset()
	assert.Equal(t, Snapshot{InFlight: 1}, r.Snapshot())
}

func TestRecorder_Client(t *testing.T) {
	t.Run("retry", func(t *testing.T) {
		var n atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if n.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer server.Close()
		r, cl := newClient()

		e, err := cl.Get(server.URL)

		require.NoError(t, err)
		assert.Equal(t, "ok", string(e.Body))
		s := r.Snapshot()
		assert.Equal(t, int64(1), s.Executions)
		assert.Equal(t, int64(2), s.Attempts)
		assert.Equal(t, int64(1), s.Retries)
		assert.Equal(t, int64(0), s.Errors)
		assert.Equal(t, int64(0), s.Canceled)
		assert.Equal(t, int64(0), s.InFlight)
		assert.True(t, s.Max > 0)
	})
	t.Run("cancel", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			select {
			case <-req.Context().Done():
			case <-release:
			}
		}))
		defer server.Close()
		defer close(release)
		r, cl := newClient()
		p, err := request.NewPlan("GET", server.URL, nil)
		require.NoError(t, err)

		task := cl.Start(p)
		require.Eventually(t, func() bool { return r.InFlight() == 1 }, 5*time.Second, time.Millisecond)
		assert.True(t, task.Cancel())
		_, err = task.Wait()

		assert.True(t, errors.Is(err, httptask.ErrCanceled))
		s := r.Snapshot()
		assert.Equal(t, int64(1), s.Executions)
		assert.Equal(t, int64(1), s.Attempts)
		assert.Equal(t, int64(1), s.Errors)
		assert.Equal(t, int64(1), s.Canceled)
		assert.Equal(t, int64(0), s.InFlight)
	})
}

func newClient() (*Recorder, *httptask.Client) {
	r := NewRecorder()
	g := &httptask.HandlerGroup{}
	r.Install(g)
	return r, &httptask.Client{
		RetryPolicy:   retry.NewPolicy(retry.Times(1).And(retry.StatusCode(503)), retry.NewFixedWaiter(0)),
		TimeoutPolicy: timeout.Fixed(10 * time.Second),
		Handlers:      g,
		Activity:      r,
	}
}
