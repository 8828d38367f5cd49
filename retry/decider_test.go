// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/transient"
)

type nopTask struct{}

func (nopTask) Cancel() {}

// processing returns an execution that has finished attempt number
// attempt and is being examined for retry.
func processing(attempt int) *request.Execution {
	b := lifecycle.NewBox(lifecycle.Running, nopTask{})
	b.Transition(lifecycle.Processing)
	return &request.Execution{Attempt: attempt, Lifecycle: b}
}

func withStatus(e *request.Execution, code int) *request.Execution {
	e.Response = &http.Response{StatusCode: code, Header: http.Header{}}
	return e
}

func withErr(e *request.Execution, err error) *request.Execution {
	e.Err = &url.Error{Op: "Put", URL: "http://upload.test/", Err: err}
	return e
}

func TestDefaultDecider(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(*request.Execution) *request.Execution
		retry bool
	}{
		{"429", func(e *request.Execution) *request.Execution { return withStatus(e, 429) }, true},
		{"502", func(e *request.Execution) *request.Execution { return withStatus(e, 502) }, true},
		{"503", func(e *request.Execution) *request.Execution { return withStatus(e, 503) }, true},
		{"504", func(e *request.Execution) *request.Execution { return withStatus(e, 504) }, true},
		{"200", func(e *request.Execution) *request.Execution { return withStatus(e, 200) }, false},
		{"404", func(e *request.Execution) *request.Execution { return withStatus(e, 404) }, false},
		{"500", func(e *request.Execution) *request.Execution { return withStatus(e, 500) }, false},
		{"ECONNRESET", func(e *request.Execution) *request.Execution { return withErr(e, syscall.ECONNRESET) }, true},
		{"ECONNREFUSED", func(e *request.Execution) *request.Execution { return withErr(e, syscall.ECONNREFUSED) }, true},
		{"attempt deadline", func(e *request.Execution) *request.Execution { return withErr(e, context.DeadlineExceeded) }, true},
		{"upload cut short", func(e *request.Execution) *request.Execution { return withErr(e, io.ErrUnexpectedEOF) }, true},
		{"fill contract", func(e *request.Execution) *request.Execution { return withErr(e, request.ErrFillContract) }, false},
		{"plan canceled", func(e *request.Execution) *request.Execution { return withErr(e, context.Canceled) }, false},
		{"EHOSTUNREACH", func(e *request.Execution) *request.Execution { return withErr(e, syscall.EHOSTUNREACH) }, false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			for attempt := 0; attempt < DefaultTimes; attempt++ {
				assert.Equal(t, testCase.retry, DefaultDecider(testCase.setup(processing(attempt))), "attempt %d", attempt)
			}
			assert.False(t, DefaultDecider(testCase.setup(processing(DefaultTimes))))

			e := testCase.setup(processing(0))
			e.Lifecycle.Transition(lifecycle.Canceled)
			assert.False(t, DefaultDecider(e), "canceled")
		})
	}
}

func TestNotCanceled(t *testing.T) {
	assert.True(t, NotCanceled(&request.Execution{}))

	e := processing(0)
	assert.True(t, NotCanceled(e))
	e.Lifecycle.Transition(lifecycle.Completed)
	assert.True(t, NotCanceled(e))

	e = processing(0)
	e.Lifecycle.Transition(lifecycle.Canceled)
	assert.False(t, NotCanceled(e))
}

func TestDeciderFunc(t *testing.T) {
	var calls []string
	named := func(name string, result bool) DeciderFunc {
		return func(*request.Execution) bool {
			calls = append(calls, name)
			return result
		}
	}

	testCases := []struct {
		name  string
		d     DeciderFunc
		want  bool
		calls []string
	}{
		{"yes and yes", named("a", true).And(named("b", true)), true, []string{"a", "b"}},
		{"yes and no", named("a", true).And(named("b", false)), false, []string{"a", "b"}},
		{"no and yes", named("a", false).And(named("b", true)), false, []string{"a"}},
		{"no or yes", named("a", false).Or(named("b", true)), true, []string{"a", "b"}},
		{"no or no", named("a", false).Or(named("b", false)), false, []string{"a", "b"}},
		{"yes or no", named("a", true).Or(named("b", false)), true, []string{"a"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			calls = nil
			assert.Equal(t, testCase.want, testCase.d.Decide(&request.Execution{}))
			assert.Equal(t, testCase.calls, calls)
		})
	}
}

func TestTimes(t *testing.T) {
	assert.False(t, Times(0)(processing(0)))
	assert.True(t, Times(3)(processing(2)))
	assert.False(t, Times(3)(processing(3)))
}

func TestBefore(t *testing.T) {
	e := processing(7)
	e.Start = time.Now().Add(-30 * time.Second)
	assert.True(t, Before(time.Minute)(e))
	e.End = e.Start.Add(2 * time.Minute)
	assert.False(t, Before(time.Minute)(e))
}

func TestStatusCode(t *testing.T) {
	d := StatusCode(409, 503)
	assert.False(t, StatusCode()(withStatus(processing(0), 503)))
	assert.False(t, d(processing(0)), "no response")
	assert.True(t, d(withStatus(processing(0), 409)))
	assert.True(t, d(withStatus(processing(0), 503)))
	assert.False(t, d(withStatus(processing(0), 500)))
}

func TestCategories(t *testing.T) {
	refusedOnly := Categories(transient.ConnRefused)
	assert.True(t, refusedOnly(withErr(processing(0), syscall.ECONNREFUSED)))
	assert.False(t, refusedOnly(withErr(processing(0), syscall.ECONNRESET)))
	assert.False(t, refusedOnly(withErr(processing(0), errors.New("bad gateway config"))))
	assert.False(t, refusedOnly(processing(0)))

	assert.False(t, Categories(transient.Not)(withErr(processing(0), errors.New("permanent"))))
	assert.False(t, Categories()(withErr(processing(0), syscall.ECONNREFUSED)))

	all := Categories(transient.Timeout, transient.ConnRefused, transient.ConnReset, transient.UnexpectedEOF)
	for _, err := range []error{context.DeadlineExceeded, syscall.ECONNREFUSED, syscall.ECONNRESET, io.ErrUnexpectedEOF} {
		e := withErr(processing(0), err)
		assert.True(t, all(e), err.Error())
		assert.Equal(t, TransientErr(e), all(e), err.Error())
	}
}
