// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package tracing traces httptask request attempts with OpenTelemetry.
//
// Install the tracing handlers into a client's handler group and every
// request attempt is wrapped in a client span, with the trace context
// propagated to the server in the request headers:
//
//	handlers := &httptask.HandlerGroup{}
//	tracing.Install(handlers, otel.Tracer("my-service"))
//	client := &httptask.Client{Handlers: handlers}
package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/gogama/httptask"
	"github.com/gogama/httptask/request"
)

// SpanName is the name given to every attempt span.
const SpanName = "httptask.attempt"

type spanKey struct{}

// A Tracer is the set of event handlers which trace request attempts.
type Tracer struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// Install adds attempt tracing handlers to g, using tr to start spans
// and the global OpenTelemetry propagator to inject the trace context.
// If tr is nil, a no-op tracer is used.
func Install(g *httptask.HandlerGroup, tr trace.Tracer) *Tracer {
	if tr == nil {
		tr = noop.NewTracerProvider().Tracer("")
	}

	t := &Tracer{
		tracer:     tr,
		propagator: otel.GetTextMapPropagator(),
	}
	g.PushBack(httptask.BeforeAttempt, httptask.HandlerFunc(t.beforeAttempt))
	g.PushBack(httptask.AfterAttempt, httptask.HandlerFunc(t.afterAttempt))
	return t
}

func (t *Tracer) beforeAttempt(_ httptask.Event, e *request.Execution) {
	r := e.Request
	ctx, span := t.tracer.Start(r.Context(), SpanName, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.request.method", r.Method),
		attribute.String("url.full", r.URL.String()),
		attribute.Int("httptask.attempt", e.Attempt),
		attribute.Bool("httptask.streamed", e.Plan.Streamed()),
	)

	r = r.WithContext(ctx)
	r.Header = r.Header.Clone()
	t.propagator.Inject(ctx, propagation.HeaderCarrier(r.Header))
	e.Request = r
	e.SetValue(spanKey{}, span)
}

func (t *Tracer) afterAttempt(_ httptask.Event, e *request.Execution) {
	span, ok := e.Value(spanKey{}).(trace.Span)
	if !ok {
		return
	}
	e.SetValue(spanKey{}, nil)
	defer span.End()

	span.SetAttributes(attribute.String("httptask.state", e.State().String()))
	if e.Response != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", e.Response.StatusCode))
	}
	switch {
	case e.Err != nil:
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	case e.StatusCode() >= 500:
		span.SetStatus(codes.Error, "")
	}
	if e.Timeout() {
		span.SetAttributes(attribute.Bool("httptask.timeout", true))
	}
}
