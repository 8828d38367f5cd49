// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/gogama/httptask/request"
)

type mockHTTPDoer struct {
	mock.Mock
	idleClosed bool
}

func newMockHTTPDoer(t *testing.T) *mockHTTPDoer {
	m := &mockHTTPDoer{}
	m.Test(t)
	return m
}

func (m *mockHTTPDoer) Do(r *http.Request) (*http.Response, error) {
	args := m.Called(r)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// An idleDoer is an HTTPDoer which also closes idle connections.
type idleDoer struct {
	*mockHTTPDoer
}

func (d idleDoer) CloseIdleConnections() {
	d.idleClosed = true
}

type httpDoerFunc func(*http.Request) (*http.Response, error)

func (f httpDoerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

type mockTimeoutPolicy struct {
	mock.Mock
}

func newMockTimeoutPolicy(t *testing.T) *mockTimeoutPolicy {
	m := &mockTimeoutPolicy{}
	m.Test(t)
	return m
}

func (m *mockTimeoutPolicy) Timeout(e *request.Execution) time.Duration {
	return m.Called(e).Get(0).(time.Duration)
}

type mockRetryPolicy struct {
	mock.Mock
}

func newMockRetryPolicy(t *testing.T) *mockRetryPolicy {
	m := &mockRetryPolicy{}
	m.Test(t)
	return m
}

func (m *mockRetryPolicy) Decide(e *request.Execution) bool {
	return m.Called(e).Bool(0)
}

func (m *mockRetryPolicy) Wait(e *request.Execution) time.Duration {
	return m.Called(e).Get(0).(time.Duration)
}

type mockHandler struct {
	mock.Mock
}

func (m *mockHandler) Handle(evt Event, e *request.Execution) {
	m.Called(evt, e)
}

// mock installs a new mock handler at the back of the chain for evt.
func (g *HandlerGroup) mock(t *testing.T, evt Event) *mockHandler {
	m := &mockHandler{}
	m.Test(t)
	g.PushBack(evt, m)
	return m
}

type mockReadCloser struct {
	mock.Mock
}

func newMockReadCloser(t *testing.T) *mockReadCloser {
	m := &mockReadCloser{}
	m.Test(t)
	return m
}

func (m *mockReadCloser) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockReadCloser) Close() error {
	return m.Called().Error(0)
}

// An eventTrace records the events fired during executions, and the
// lifecycle state each event observed.
type eventTrace struct {
	calls  []string
	states []string
}

func (c *Client) addTraceHandlers() *eventTrace {
	tr := &eventTrace{}
	h := HandlerFunc(func(evt Event, e *request.Execution) {
		tr.calls = append(tr.calls, evt.Name())
		tr.states = append(tr.states, evt.Name()+":"+e.State().String())
	})
	for _, evt := range Events() {
		c.Handlers.PushBack(evt, h)
	}
	return tr
}

// blockingBody is a response body whose Read blocks until it is closed
// or its request context is done, like a body from net/http.
type blockingBody struct {
	ctx    context.Context
	once   sync.Once
	closed chan struct{}
}

func newBlockingBody(ctx context.Context) *blockingBody {
	return &blockingBody{ctx: ctx, closed: make(chan struct{})}
}

func (b *blockingBody) Read(_ []byte) (int, error) {
	select {
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	case <-b.closed:
		return 0, errors.New("read on closed body")
	}
}

func (b *blockingBody) Close() error {
	b.once.Do(func() { close(b.closed) })
	return nil
}

func (b *blockingBody) isClosed() bool {
	select {
	case <-b.closed:
		return true
	default:
		return false
	}
}
