// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// template supplies the protocol fields every attempt request shares.
var template, _ = http.NewRequest("GET", "", nil)

const (
	nilCtxMsg  = "httptask/request: nil context"
	nilFillMsg = "httptask/request: nil body fill constructor"
)

// A Plan describes one logical HTTP request. A client carries it out
// with one http.Request per attempt, so every part of the plan,
// including its body, must be reusable for a retry.
//
// The body is either buffered in Body or streamed through BodyFill.
//
// The plan's context bounds the whole execution: every attempt, every
// event handler and every retry wait. Canceling it cancels the
// execution; its deadline is the plan timeout.
type Plan struct {
	// Method is the HTTP method. The constructors turn "" into GET.
	Method string

	// URL is the URL to request. Its Host is the server connected to.
	URL *urlpkg.URL

	// Header holds the request header fields.
	Header http.Header

	// Body is the buffered request body, sent as is on every attempt.
	// It is ignored when BodyFill is set.
	Body []byte

	// BodyFill streams the request body. It is called once per
	// attempt, and once more whenever the transport needs to replay
	// the body, for example to follow a 307 redirect. Each FillFunc it
	// returns must produce the body from the beginning.
	//
	// A BodyFill that cannot produce the body again should return
	// FailFill, so the attempt fails instead of sending a short body.
	BodyFill func() FillFunc

	// ContentLength is the length of a streamed body, or zero if it is
	// not known in advance. A known length lets the transport detect a
	// FillFunc that ends early. ContentLength is only used with
	// BodyFill.
	ContentLength int64

	// TransferEncoding, Close and Host have the same meaning as the
	// http.Request fields of the same name.
	TransferEncoding []string
	Close            bool
	Host             string

	ctx context.Context
}

// NewPlan is NewPlanWithContext with the background context.
func NewPlan(method, url string, body interface{}) (*Plan, error) {
	return NewPlanWithContext(context.Background(), method, url, body)
}

// NewPlanWithContext returns a plan with a buffered body. body is
// converted with BodyBytes, so it may be nil, a string, a []byte, a
// FillFunc, or a reader that is read to the end now.
//
// To send a large body without buffering it, use NewStreamPlan.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}) (*Plan, error) {
	p, err := newPlan(ctx, method, url)
	if err != nil {
		return nil, err
	}

	if p.Body, err = BodyBytes(body); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStreamPlan returns a plan whose body is streamed from the
// FillFunc values newFill returns, one per attempt.
//
// For example, to upload a file without reading it into memory:
//
//	p, err := request.NewStreamPlan(ctx, "PUT", url, func() request.FillFunc {
//		f, err := os.Open(name)
//		if err != nil {
//			return request.FailFill()
//		}
//		return request.ReaderFill(f)
//	})
func NewStreamPlan(ctx context.Context, method, url string, newFill func() FillFunc) (*Plan, error) {
	if newFill == nil {
		return nil, errors.New(nilFillMsg)
	}

	p, err := newPlan(ctx, method, url)
	if err != nil {
		return nil, err
	}

	p.BodyFill = newFill
	return p, nil
}

func newPlan(ctx context.Context, method, url string) (*Plan, error) {
	switch {
	case ctx == nil:
		return nil, errors.New(nilCtxMsg)
	case method == "":
		method = "GET"
	case !validMethod(method):
		return nil, fmt.Errorf("httptask/request: invalid method %q", method)
	}

	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	// An empty port is dropped, per RFC 3986 section 6.2.3.
	u.Host = strings.TrimSuffix(u.Host, ":")

	return &Plan{
		ctx:    ctx,
		Method: method,
		URL:    u,
		Header: make(http.Header),
		Host:   u.Host,
	}, nil
}

// Context returns the plan's context, or the background context if it
// has none. Change it with WithContext.
func (p *Plan) Context() context.Context {
	if p.ctx == nil {
		return context.Background()
	}
	return p.ctx
}

// WithContext returns a shallow copy of p whose context is ctx. ctx
// must not be nil.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}

	p2 := *p
	p2.ctx = ctx
	return &p2
}

// Streamed reports whether the plan's body comes from BodyFill.
func (p *Plan) Streamed() bool {
	return p.BodyFill != nil
}

// AddCookie appends c's name and value to the plan's single Cookie
// header. Other cookie attributes are dropped.
func (p *Plan) AddCookie(c *http.Cookie) {
	s := (&http.Cookie{Name: c.Name, Value: c.Value}).String()
	if h := p.Header.Get("Cookie"); h != "" {
		s = h + "; " + s
	}
	p.Header.Set("Cookie", s)
}

// SetBasicAuth sets the Authorization header for HTTP Basic
// Authentication. The credentials are sent unencrypted.
func (p *Plan) SetBasicAuth(username, password string) {
	creds := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	p.Header.Set("Authorization", "Basic "+creds)
}

// ToRequest returns the http.Request for one attempt of the plan, with
// context ctx.
//
// A streamed plan gets a fresh, opened Stream as its body and a GetBody
// which opens another fresh Stream. A buffered plan gets a reader over
// Body.
func (p *Plan) ToRequest(ctx context.Context) *http.Request {
	r := template.WithContext(ctx)
	r.Method = p.Method
	r.URL = p.URL
	r.Header = p.Header
	r.TransferEncoding = p.TransferEncoding
	r.Close = p.Close
	r.Host = p.Host

	if p.Streamed() {
		r.Body = p.openStream()
		r.GetBody = func() (io.ReadCloser, error) {
			return p.openStream(), nil
		}
		r.ContentLength = p.ContentLength
	} else if len(p.Body) > 0 {
		body := p.Body
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	return r
}

func (p *Plan) openStream() *Stream {
	s := NewStream(p.BodyFill())
	// A new stream is never closed, so Open cannot fail.
	_ = s.Open()
	return s
}

// validMethod reports whether method is an RFC 7230 token.
func validMethod(method string) bool {
	return strings.IndexFunc(method, func(r rune) bool {
		return !httpguts.IsTokenRune(r)
	}) == -1
}
