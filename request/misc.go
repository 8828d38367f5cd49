// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
)

const badBodyTypeMsg = "httptask/request: invalid type (for body use nil, " +
	"string, []byte, FillFunc, io.Reader or io.ReadCloser)"

// BodyBytes buffers a body given as nil, a string, a []byte, a
// FillFunc, an io.Reader or an io.ReadCloser. A []byte is returned as
// is. A FillFunc is drained through a Stream. A reader is read to the
// end, then closed if it is an io.ReadCloser. Any error, including an
// unsupported type, yields a nil slice.
//
// To send a large body without buffering it, use NewStreamPlan.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(x), nil
	case []byte:
		return x, nil
	case FillFunc:
		s := NewStream(x)
		_ = s.Open()
		return BodyBytes(s)
	case io.ReadCloser:
		b, err := io.ReadAll(x)
		if cerr := x.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, err
		}
		return b, nil
	case io.Reader:
		return BodyBytes(io.NopCloser(x))
	default:
		return nil, errors.New(badBodyTypeMsg)
	}
}
