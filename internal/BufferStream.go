/*
Copyright 2011-2026 Frederic Langlet
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
you may obtain a copy of the License at

                http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package internal

import (
	"bytes"
	"errors"
	"io"
)

// BufferStream a closable read/write stream of bytes backed by a bytes.Buffer.
// A BufferStream can fragment the data it hands out: each Read returns at
// most the configured number of bytes, which exercises the resumable paths
// of the codec sessions.
type BufferStream struct {
	buf      *bytes.Buffer
	closed   bool
	fragment func() int
}

// NewBufferStream creates a new instance of BufferStream
func NewBufferStream(args ...[]byte) *BufferStream {
	this := &BufferStream{}

	if len(args) == 1 {
		this.buf = bytes.NewBuffer(args[0])
	} else {
		this.buf = bytes.NewBuffer(make([]byte, 0))
	}

	return this
}

// NewFragmentingStream creates a BufferStream over data whose reads return
// at most fragment() bytes each. fragment must return a positive value.
func NewFragmentingStream(data []byte, fragment func() int) *BufferStream {
	this := NewBufferStream(data)
	this.fragment = fragment
	return this
}

// Write returns an error if the stream is closed, otherwise writes the given
// data to the internal buffer (growing the buffer as needed).
// Returns the number of bytes written.
func (this *BufferStream) Write(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	return this.buf.Write(b)
}

// Read returns an error if the stream is closed, otherwise reads data from
// the internal buffer at the read offset position.
// Returns the number of bytes read or (0, io.EOF) when no more data remains.
func (this *BufferStream) Read(b []byte) (int, error) {
	if this.closed == true {
		return 0, errors.New("Stream closed")
	}

	if this.fragment != nil && len(b) > 0 {
		if n := this.fragment(); n < len(b) {
			b = b[:n]
		}
	}

	n, err := this.buf.Read(b)

	if err == nil && this.buf.Len() == 0 && this.fragment != nil {
		// Report the end of data with the last bytes, like some readers do
		err = io.EOF
	}

	return n, err
}

// Close makes the stream unavailable for future reads or writes.
func (this *BufferStream) Close() error {
	this.closed = true
	return nil
}

// Len returns the number of unread bytes in the stream
func (this *BufferStream) Len() int {
	return this.buf.Len()
}

// Bytes returns the unread bytes of the stream
func (this *BufferStream) Bytes() []byte {
	return this.buf.Bytes()
}

// Closed returns true once Close has been called
func (this *BufferStream) Closed() bool {
	return this.closed
}
