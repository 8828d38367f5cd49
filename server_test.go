// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gogama/httptask/request"
	"github.com/gogama/httptask/retry"
	"github.com/gogama/httptask/timeout"
)

// The test servers echo the request body back, shaped by the script
// headers the request carries.
const (
	scriptStatus = "X-Script-Status"
	scriptDelay  = "X-Script-Delay"
	scriptDrip   = "X-Script-Drip"
	scriptReply  = "X-Script-Reply"
)

var (
	plainServer = httptest.NewUnstartedServer(http.HandlerFunc(scriptHandler))
	tlsServer   = httptest.NewUnstartedServer(http.HandlerFunc(scriptHandler))
	h2Server    = httptest.NewUnstartedServer(http.HandlerFunc(scriptHandler))
	servers     = []*httptest.Server{plainServer, tlsServer, h2Server}
)

func TestMain(m *testing.M) {
	plainServer.Start()
	tlsServer.StartTLS()
	h2Server.EnableHTTP2 = true
	h2Server.StartTLS()
	for _, server := range servers {
		awaitServer(server)
	}

	code := m.Run()
	for _, server := range servers {
		server.Close()
	}
	os.Exit(code)
}

func awaitServer(server *httptest.Server) {
	cl := &Client{
		HTTPDoer:      server.Client(),
		RetryPolicy:   retry.NewPolicy(retry.Before(10*time.Second).And(retry.TransientErr), retry.NewFixedWaiter(10*time.Millisecond)),
		TimeoutPolicy: timeout.Fixed(2 * time.Second),
	}
	e, err := cl.Do(script{}.plan(context.Background(), "GET", server, nil))
	if e.StatusCode() != http.StatusOK {
		panic(fmt.Sprintf("%s test server not ready: status %d, error %v", serverName(server), e.StatusCode(), err))
	}
}

func serverName(server *httptest.Server) string {
	switch server {
	case plainServer:
		return "http"
	case tlsServer:
		return "https"
	case h2Server:
		return "http2"
	}
	panic("unknown server")
}

// A script tells the test server how to answer. The zero value echoes
// the request body with status 200.
type script struct {
	status int
	delay  time.Duration // before the response headers
	drip   time.Duration // between response body bytes
	reply  string        // replaces the echo if not empty
}

func (s script) apply(p *request.Plan) *request.Plan {
	if s.status != 0 {
		p.Header.Set(scriptStatus, strconv.Itoa(s.status))
	}
	if s.delay > 0 {
		p.Header.Set(scriptDelay, s.delay.String())
	}
	if s.drip > 0 {
		p.Header.Set(scriptDrip, s.drip.String())
	}
	if s.reply != "" {
		p.Header.Set(scriptReply, s.reply)
	}
	return p
}

func (s script) plan(ctx context.Context, method string, server *httptest.Server, body interface{}) *request.Plan {
	p, err := request.NewPlanWithContext(ctx, method, server.URL, body)
	if err != nil {
		panic(err)
	}
	return s.apply(p)
}

// streamPlan uploads body through a FillFunc handing out at most chunk
// bytes per call.
func (s script) streamPlan(ctx context.Context, method string, server *httptest.Server, body []byte, chunk int) *request.Plan {
	p, err := request.NewStreamPlan(ctx, method, server.URL, func() request.FillFunc {
		return chunkedFill(body, chunk)
	})
	if err != nil {
		panic(err)
	}
	return s.apply(p)
}

func scriptHandler(w http.ResponseWriter, r *http.Request) {
	echo, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	if v := r.Header.Get(scriptStatus); v != "" {
		status, _ = strconv.Atoi(v)
	}
	delay, _ := time.ParseDuration(r.Header.Get(scriptDelay))
	drip, _ := time.ParseDuration(r.Header.Get(scriptDrip))
	if v := r.Header.Get(scriptReply); v != "" {
		echo = []byte(v)
	}

	w.Header().Set("Content-Length", strconv.Itoa(len(echo)))
	time.Sleep(delay)
	w.WriteHeader(status)
	f := w.(http.Flusher)
	f.Flush()
	if drip == 0 {
		_, _ = w.Write(echo)
		return
	}
	for i := range echo {
		if _, err = w.Write(echo[i : i+1]); err != nil {
			return
		}
		f.Flush()
		time.Sleep(drip)
	}
}

func chunkedFill(b []byte, n int) request.FillFunc {
	return func(p []byte) int {
		if len(p) > n {
			p = p[:n]
		}
		c := copy(p, b)
		b = b[c:]
		return c
	}
}
