// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"io"
	"strconv"
	"syscall"
)

// A Category says whether an error is transient, meaning a retry of
// the attempt it ended has a fair chance of success, and if so why.
// Not is the only non-transient category.
type Category int

const (
	// Not is any error that is not transient, and the nil error.
	Not Category = iota

	// Timeout is a client-side timeout: an error with a Timeout method
	// reporting true, anywhere in its chain. The server may be briefly
	// slow, or a later attempt may be given longer.
	Timeout

	// ConnRefused is syscall.ECONNREFUSED. The port may be closed only
	// while the service restarts.
	ConnRefused

	// ConnReset is syscall.ECONNRESET, a TCP RST on an open connection.
	// It is typical of a server shut down mid-response or of a load
	// balancer, and retries usually succeed.
	ConnReset

	// UnexpectedEOF is io.ErrUnexpectedEOF: the connection closed before
	// a whole message went through, for example a keep-alive connection
	// dropped while a streamed body was being sent, or a truncated
	// response body.
	UnexpectedEOF
)

var categoryNames = [...]string{
	Not:           "Not",
	Timeout:       "Timeout",
	ConnRefused:   "ConnRefused",
	ConnReset:     "ConnReset",
	UnexpectedEOF: "UnexpectedEOF",
}

func (cat Category) String() string {
	if cat < 0 || int(cat) >= len(categoryNames) {
		return "Category(" + strconv.Itoa(int(cat)) + ")"
	}
	return categoryNames[cat]
}

// Categorize returns the category of err, checking the categories in
// declaration order against every error in err's chain. Temporary
// methods are ignored. An error wrapping context.Canceled is always
// Not.
func Categorize(err error) Category {
	if err == nil || errors.Is(err, context.Canceled) {
		return Not
	}

	var t interface{ Timeout() bool }
	var errno syscall.Errno
	switch {
	case errors.As(err, &t) && t.Timeout():
		return Timeout
	case errors.As(err, &errno) && errno == syscall.ECONNRESET:
		return ConnReset
	case errors.As(err, &errno) && errno == syscall.ECONNREFUSED:
		return ConnRefused
	case errors.Is(err, io.ErrUnexpectedEOF):
		return UnexpectedEOF
	default:
		return Not
	}
}
