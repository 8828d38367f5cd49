// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httptask

import (
	"context"
	"net/url"

	"github.com/gogama/httptask/request"
)

// A Doer executes a request plan to completion and returns the final
// execution, with its error if the last attempt failed. Client is the
// reference Doer; other implementations should keep its contract.
//
// Inflate turns any Doer into an Executor.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// A Getter executes a GET plan for a URL.
type Getter interface {
	Get(url string) (*request.Execution, error)
}

// A Header executes a HEAD plan for a URL.
type Header interface {
	Head(url string) (*request.Execution, error)
}

// A Poster executes a POST plan with a buffered body. body may be nil
// or any type request.BodyBytes accepts.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Execution, error)
}

// A FormPoster executes a POST plan whose body is data, URL-encoded.
type FormPoster interface {
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// A StreamPoster executes a POST plan whose body is streamed from the
// FillFunc values newFill returns, one per attempt.
type StreamPoster interface {
	PostStream(url, contentType string, newFill func() request.FillFunc) (*request.Execution, error)
}

// A Starter executes a request plan in the background and returns the
// Task, which can be waited on or canceled from any goroutine.
type Starter interface {
	Start(p *request.Plan) *Task
}

// An IdleCloser closes idle keep-alive connections, leaving those in
// use alone. Implementations without connection pooling may do
// nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// An Executor offers the whole synchronous surface of Client.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
	StreamPoster
	IdleCloser
}

// Get executes a GET plan for url on d.
func Get(d Doer, url string) (*request.Execution, error) {
	return doPlan(d, "GET", url, nil, "")
}

// Head executes a HEAD plan for url on d.
func Head(d Doer, url string) (*request.Execution, error) {
	return doPlan(d, "HEAD", url, nil, "")
}

// Post executes a POST plan for url on d, with body buffered by
// request.BodyBytes and the given Content-Type. To avoid buffering a
// large body, use PostStream.
func Post(d Doer, url, contentType string, body interface{}) (*request.Execution, error) {
	return doPlan(d, "POST", url, body, contentType)
}

// PostForm executes a POST plan for url on d whose body is data,
// URL-encoded, with Content-Type application/x-www-form-urlencoded.
func PostForm(d Doer, url string, data url.Values) (*request.Execution, error) {
	return Post(d, url, "application/x-www-form-urlencoded", data.Encode())
}

// PostStream executes a POST plan for url on d whose body is streamed
// from the FillFunc values newFill returns, one per attempt, with the
// given Content-Type.
func PostStream(d Doer, url, contentType string, newFill func() request.FillFunc) (*request.Execution, error) {
	p, err := request.NewStreamPlan(context.Background(), "POST", url, newFill)
	if err != nil {
		return nil, err
	}
	p.Header.Set("Content-Type", contentType)
	return d.Do(p)
}

func doPlan(d Doer, method, url string, body interface{}, contentType string) (*request.Execution, error) {
	p, err := request.NewPlan(method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		p.Header.Set("Content-Type", contentType)
	}
	return d.Do(p)
}

// Inflate returns d as an Executor, wrapping it if it is not one
// already. d must not be nil.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("httptask: nil doer")
	}
	if e, ok := d.(Executor); ok {
		return e
	}
	return inflated{d}
}

type inflated struct {
	Doer
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(i.Doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(i.Doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(i.Doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(i.Doer, url, data)
}

func (i inflated) PostStream(url, contentType string, newFill func() request.FillFunc) (*request.Execution, error) {
	return PostStream(i.Doer, url, contentType, newFill)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.Doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
