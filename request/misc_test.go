// Copyright 2021 The httptask Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBodyBytes(t *testing.T) {
	raw := []byte("payload")

	t.Run("accepted", func(t *testing.T) {
		for name, body := range map[string]interface{}{
			"string":     "payload",
			"bytes":      raw,
			"reader":     strings.NewReader("payload"),
			"readcloser": io.NopCloser(bytes.NewReader(raw)),
			"fill":       BytesFill(raw),
			"chunked":    ReaderFill(io.NopCloser(io.LimitReader(strings.NewReader("payload!!"), 7))),
		} {
			b, err := BodyBytes(body)
			assert.NoError(t, err, name)
			assert.Equal(t, raw, b, name)
		}
	})

	t.Run("nil", func(t *testing.T) {
		b, err := BodyBytes(nil)
		assert.NoError(t, err)
		assert.Nil(t, b)
	})

	t.Run("bytes not copied", func(t *testing.T) {
		b, _ := BodyBytes(raw)
		assert.Same(t, &raw[0], &b[0])
	})

	t.Run("unsupported", func(t *testing.T) {
		for _, body := range []interface{}{3.5, struct{}{}, []string{"a"}} {
			b, err := BodyBytes(body)
			assert.Nil(t, b)
			assert.EqualError(t, err, badBodyTypeMsg)
		}
	})

	t.Run("fill breaks contract", func(t *testing.T) {
		b, err := BodyBytes(FillFunc(func([]byte) int { return -2 }))
		assert.Nil(t, b)
		assert.ErrorIs(t, err, ErrFillContract)
	})

	t.Run("read fails", func(t *testing.T) {
		diskErr := errors.New("read /var/spool/x: input/output error")
		m := &mockReadCloser{}
		m.Test(t)
		m.On("Read", mock.Anything).Return(4, diskErr).Once()
		m.On("Close").Return(nil).Once()

		b, err := BodyBytes(m)

		m.AssertExpectations(t)
		assert.Nil(t, b)
		assert.Same(t, diskErr, err)
	})

	t.Run("close fails", func(t *testing.T) {
		closeErr := errors.New("close: bad file descriptor")
		m := &mockReadCloser{}
		m.Test(t)
		m.On("Read", mock.Anything).Return(0, io.EOF).Once()
		m.On("Close").Return(closeErr).Once()

		b, err := BodyBytes(m)

		m.AssertExpectations(t)
		assert.Nil(t, b)
		assert.Same(t, closeErr, err)
	})
}

type mockReadCloser struct {
	mock.Mock
}

func (m *mockReadCloser) Read(p []byte) (int, error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *mockReadCloser) Close() error {
	return m.Called().Error(0)
}
