// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// A FillFunc produces the next chunk of a streamed request body.
//
// It writes up to len(p) bytes into p and returns the number of bytes
// written. A return value of zero means the body is finished. A
// FillFunc must never return a negative value or a value greater than
// len(p). It is never called with an empty p, and it is never called
// again once it has returned zero.
//
// A FillFunc may block, for example while reading a file or waiting on
// a generator. It has no cancellation hook of its own: to abandon an
// upload, cancel the request, which causes the transport to close the
// stream.
type FillFunc func(p []byte) int

var (
	// ErrStreamNotOpen is returned by Stream.Read if the stream was
	// never opened.
	ErrStreamNotOpen = errors.New("httptask/request: stream not open")
	// ErrStreamClosed is returned by Stream.Open and Stream.Read after
	// the stream has been closed.
	ErrStreamClosed = errors.New("httptask/request: stream closed")
	// ErrFillContract is returned by Stream.Read if the FillFunc
	// returns a negative count or a count larger than the buffer.
	ErrFillContract = errors.New("httptask/request: fill function contract violated")
)

type streamState int

const (
	notOpened streamState = iota
	opened
	atEnd
	closed
)

// A Stream adapts a FillFunc into the io.ReadCloser a transport reads a
// request body from. It never buffers the body: each Read calls the
// FillFunc exactly once with the caller's buffer.
//
// The stream must be opened before it is read. Once the FillFunc
// reports the end of the body, or the stream is closed, the FillFunc is
// released.
//
// Read must not be called concurrently with itself, but Close may be
// called at any time from any goroutine, including while a Read is
// blocked inside the FillFunc.
type Stream struct {
	lock  sync.Mutex
	fill  FillFunc
	state streamState
	err   error
}

// NewStream returns a new unopened stream that produces its data by
// calling fill.
func NewStream(fill FillFunc) *Stream {
	if fill == nil {
		panic("httptask/request: nil fill function")
	}

	return &Stream{fill: fill}
}

// Open marks the stream ready for reading. Opening an open stream, or
// one which has reached its end, does nothing. Opening a closed stream
// returns ErrStreamClosed.
func (s *Stream) Open() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	switch s.state {
	case notOpened:
		s.state = opened
		if s.err == ErrStreamNotOpen {
			s.err = nil
		}
	case closed:
		return ErrStreamClosed
	}
	return nil
}

// Read calls the FillFunc once to fill p and returns the count it
// reports.
//
// When the FillFunc reports the end of the body, Read returns 0 and
// io.EOF, and so does every later Read without calling the FillFunc.
// A Read with an empty p returns 0 and no error without calling the
// FillFunc.
func (s *Stream) Read(p []byte) (int, error) {
	s.lock.Lock()
	switch s.state {
	case notOpened:
		s.err = ErrStreamNotOpen
		s.lock.Unlock()
		return 0, ErrStreamNotOpen
	case atEnd:
		s.lock.Unlock()
		return 0, io.EOF
	case closed:
		s.lock.Unlock()
		return 0, ErrStreamClosed
	}
	if s.err != nil {
		err := s.err
		s.lock.Unlock()
		return 0, err
	}
	if len(p) == 0 {
		s.lock.Unlock()
		return 0, nil
	}
	fill := s.fill
	s.lock.Unlock()

	n := fill(p)

	s.lock.Lock()
	defer s.lock.Unlock()

	if n < 0 || n > len(p) {
		s.err = fmt.Errorf("%w: returned %d for buffer of %d", ErrFillContract, n, len(p))
		s.fill = nil
		return 0, s.err
	}

	if s.state == closed {
		// Closed while fill was running; the bytes are still valid.
		return n, nil
	}

	if n == 0 {
		s.state = atEnd
		s.fill = nil
		return 0, io.EOF
	}

	return n, nil
}

// Close releases the FillFunc if the stream still holds it. Close is
// idempotent and always returns nil. Closing a stream which has reached
// its end changes nothing.
func (s *Stream) Close() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.state != atEnd {
		s.state = closed
	}
	s.fill = nil
	return nil
}

// AtEnd reports whether the FillFunc has reported the end of the body.
func (s *Stream) AtEnd() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.state == atEnd
}

// Err returns the error, if any, recorded by the stream: ErrStreamNotOpen
// after a Read before Open (cleared by Open), or an error wrapping
// ErrFillContract.
func (s *Stream) Err() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.err
}

// BytesFill returns a FillFunc which produces the contents of b.
func BytesFill(b []byte) FillFunc {
	return func(p []byte) int {
		n := copy(p, b)
		b = b[n:]
		return n
	}
}

// FailFill returns a FillFunc which breaks the fill contract on its
// first call, so the attempt sending it fails with ErrFillContract.
// Return it from a plan's BodyFill when the body cannot be produced
// again, for example when a one-shot source is already used up or a
// file can no longer be opened.
func FailFill() FillFunc {
	return func([]byte) int {
		return -1
	}
}

// maxEmptyReads is how many reads in a row ReaderFill lets return no
// data and no error before giving up on the reader.
const maxEmptyReads = 100

// ReaderFill returns a FillFunc which produces the contents of r. If r
// is also an io.Closer, it is closed when the body ends.
//
// A FillFunc cannot report errors, so a read error other than io.EOF
// ends the body early, and so does a reader which returns no data and
// no error too many times in a row. Set the plan's ContentLength when
// the length is known so the transport detects the short body and
// fails the attempt.
func ReaderFill(r io.Reader) FillFunc {
	return func(p []byte) int {
		for empty := 0; ; empty++ {
			n, err := r.Read(p)
			if n > 0 {
				return n
			}
			if err != nil || empty >= maxEmptyReads-1 {
				if c, ok := r.(io.Closer); ok {
					_ = c.Close()
				}
				return 0
			}
		}
	}
}
