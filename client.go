// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gogama/httptask/lifecycle"
	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
	"github.com/gogama/httptask/timeout"
	"github.com/google/uuid"
)

// An HTTPDoer sends one HTTP request and returns its response, with the
// contract of http.Client.Do. It must give up promptly once the
// request's context is done, since that is how a network task is
// canceled.
type HTTPDoer interface {
	Do(r *http.Request) (*http.Response, error)
}

// ErrCanceled is wrapped by the *url.Error of an execution whose Task
// was canceled. Canceling the plan's context instead yields a
// *url.Error wrapping context.Canceled.
var ErrCanceled = errors.New("httptask: task canceled")

var emptyHandlers = HandlerGroup{}

// A Client executes request plans over an HTTPDoer, adding attempt
// timeouts, retries and cancelable background tasks. It buffers each
// response body into Execution.Body, streams request bodies from a
// plan's BodyFill, and runs the handlers in Handlers at each Event.
//
// Every execution is tracked by a lifecycle.Box, so a Task can be
// canceled from any goroutine without racing the retry loop, and an
// execution with network activity in progress is counted once on
// Activity.
//
// The zero value is ready to use. A Client is safe for concurrent use
// and, like the http.Client it usually wraps, should be reused.
type Client struct {
	// HTTPDoer sends each attempt. Nil means http.DefaultClient.
	HTTPDoer HTTPDoer

	// RetryPolicy decides whether a finished attempt is retried and how
	// long to wait first. Nil means retry.DefaultPolicy.
	RetryPolicy retry.Policy

	// TimeoutPolicy sets the timeout of each attempt. Nil means
	// timeout.DefaultPolicy.
	TimeoutPolicy timeout.Policy

	// Handlers are run at each Event of an execution. Nil means none.
	Handlers *HandlerGroup

	// Activity counts executions with an attempt on the network. Nil
	// means lifecycle.DefaultActivity.
	Activity lifecycle.ActivityCounter

	// Logger receives debug records about retries and cancellation.
	// Nil means slog.Default().
	Logger *slog.Logger
}

// Do executes p on the calling goroutine and returns the execution as
// it stood after the last attempt.
//
// The error is the last attempt's error, a *url.Error, and is also in
// the execution's Err field. An attempt fails when the HTTPDoer fails,
// when it times out, or when the response body cannot be read; a
// response with any status code is not an error. The url.Error's
// Timeout reports whether the last attempt or the plan timed out.
//
// On success Response and Body are both set, though Body may be empty.
// On failure Response is set only if the body read failed.
//
// Use Start to execute a plan in the background with the option of
// canceling it.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	t := c.newTask(p)
	defer close(t.done)
	t.run()
	return t.exec, t.exec.Err
}

// Start executes p on a new goroutine, as Do would, and returns the
// Task for waiting on or canceling it.
func (c *Client) Start(p *request.Plan) *Task {
	t := c.newTask(p)
	go t.runAsync()
	return t
}

// Get executes a GET plan for url. For custom headers, build the plan
// with request.NewPlan and call Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	return Get(c, url)
}

// Head executes a HEAD plan for url.
func (c *Client) Head(url string) (*request.Execution, error) {
	return Head(c, url)
}

// Post executes a POST plan for url with a buffered body, which may be
// nil or any type request.BodyBytes accepts.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(c, url, contentType, body)
}

// PostForm executes a POST plan for url with data URL-encoded as the
// body.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(c, url, data)
}

// PostStream executes a POST plan for url whose body is streamed from
// the FillFunc values newFill returns, one per attempt.
func (c *Client) PostStream(url, contentType string, newFill func() request.FillFunc) (*request.Execution, error) {
	return PostStream(c, url, contentType, newFill)
}

// CloseIdleConnections calls CloseIdleConnections on the HTTPDoer, if
// it has that method.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.doer().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) newTask(p *request.Plan) *Task {
	ctx, cancel := context.WithCancel(context.Background())
	box := lifecycle.NewBox(lifecycle.Running, newAttempt(ctx))
	id := uuid.NewString()

	t := &Task{
		id:     id,
		box:    box,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		exec: &request.Execution{
			Plan:      p,
			Lifecycle: box,
		},
		doer:          c.doer(),
		retryPolicy:   c.RetryPolicy,
		timeoutPolicy: c.TimeoutPolicy,
		handlers:      c.Handlers,
		activity:      c.Activity,
	}

	if t.retryPolicy == nil {
		t.retryPolicy = retry.DefaultPolicy
	}
	if t.timeoutPolicy == nil {
		t.timeoutPolicy = timeout.DefaultPolicy
	}
	if t.handlers == nil {
		t.handlers = &emptyHandlers
	}
	if t.activity == nil {
		t.activity = lifecycle.DefaultActivity
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t.logger = logger.With("task", id)

	return t
}

func (c *Client) doer() HTTPDoer {
	if c.HTTPDoer != nil {
		return c.HTTPDoer
	}
	return http.DefaultClient
}

// urlErrorWrap wraps err the way http.Client.Do does, unless it is
// already a *url.Error.
func urlErrorWrap(p *request.Plan, err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue
	}
	return &url.Error{Op: urlErrorOp(p.Method), URL: p.URL.String(), Err: err}
}

// urlErrorOp turns "POST" into "Post", matching net/http.
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}

func isCancellation(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}
