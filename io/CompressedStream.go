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

// Package io provides an io.WriteCloser that compresses into a chameleon
// stream and an io.ReadCloser that decompresses one. Both drive a single
// resumable session and notify listeners of compression events.
package io

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/memory"
	"github.com/flanglet/chameleon-go/stream"
)

const (
	_STREAM_DEFAULT_BUFFER_SIZE = 256 * 1024
	_STREAM_MIN_BUFFER_SIZE     = 1024
)

// Writer a compressed output stream. Data written to the Writer is encoded
// and forwarded to the underlying stream. Close must be called to write the
// end of the stream.
type Writer struct {
	os        io.WriteCloser
	session   *stream.Encoder
	buf       []byte
	listeners []chameleon.Listener
	closed    int32
	started   bool
	written   uint64
}

// NewWriter creates a Writer that compresses with the given mode and block
// type. Returns ERR_UNSUPPORTED_MODE if mode has no kernel.
func NewWriter(os io.WriteCloser, mode chameleon.CompressionMode, bt chameleon.BlockType) (*Writer, error) {
	return NewWriterWithBufferSize(os, mode, bt, _STREAM_DEFAULT_BUFFER_SIZE)
}

// NewWriterWithBufferSize creates a Writer that forwards output to os in
// pieces of at most bufferSize bytes
func NewWriterWithBufferSize(os io.WriteCloser, mode chameleon.CompressionMode, bt chameleon.BlockType, bufferSize int) (*Writer, error) {
	if os == nil {
		return nil, chameleon.NewError("Invalid null output stream parameter", chameleon.ERR_CREATE_FILE)
	}

	if bufferSize < _STREAM_MIN_BUFFER_SIZE {
		return nil, chameleon.Errorf(chameleon.ERR_INVALID_PARAM,
			"Invalid buffer size parameter (must be at least %d)", _STREAM_MIN_BUFFER_SIZE)
	}

	session, err := stream.NewEncoder(mode, bt)

	if err != nil {
		return nil, err
	}

	this := &Writer{}
	this.os = os
	this.session = session
	this.buf = make([]byte, bufferSize)
	this.listeners = make([]chameleon.Listener, 0)
	return this, nil
}

// AddListener adds an event listener to this output stream.
// Returns true if the listener has been added.
func (this *Writer) AddListener(bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this output stream.
// Returns true if the listener has been removed.
func (this *Writer) RemoveListener(bl chameleon.Listener) bool {
	return removeListener(&this.listeners, bl)
}

// Write compresses len(block) bytes from block. It returns the number of
// bytes consumed from block and any error encountered that caused the
// write to stop early.
func (this *Writer) Write(block []byte) (int, error) {
	if atomic.LoadInt32(&this.closed) == 1 {
		return 0, chameleon.NewError("Stream closed", chameleon.ERR_WRITE_FILE)
	}

	this.start()
	in := memory.NewView(block)

	for {
		out := memory.NewView(this.buf)
		status, err := this.session.Process(in, out, false)

		if werr := this.flushOutput(out); werr != nil {
			return in.Position(), werr
		}

		if err != nil {
			return in.Position(), err
		}

		if status == chameleon.STALL_ON_INPUT {
			if in.Remaining() > 0 {
				return in.Position(), chameleon.Errorf(chameleon.ERR_WRITE_FILE,
					"Short write: %d of %d bytes consumed", in.Position(), len(block))
			}

			return in.Position(), nil
		}
	}
}

// Close ends the stream: the last block and the footer are written, then
// the underlying stream is closed. Idempotent.
func (this *Writer) Close() error {
	if atomic.SwapInt32(&this.closed, 1) == 1 {
		return nil
	}

	this.start()

	for {
		out := memory.NewView(this.buf)
		status, err := this.session.Process(nil, out, true)

		if werr := this.flushOutput(out); werr != nil {
			return werr
		}

		if err != nil {
			return err
		}

		if status == chameleon.READY {
			break
		}
	}

	for {
		out := memory.NewView(this.buf)
		status, err := this.session.Finish(out)

		if werr := this.flushOutput(out); werr != nil {
			return werr
		}

		if err != nil {
			return err
		}

		if status == chameleon.READY {
			break
		}
	}

	if len(this.listeners) > 0 {
		evt := chameleon.NewEventWithHash(chameleon.EVT_COMPRESSION_END, int64(this.written),
			this.session.Checksum(), time.Now())
		notifyListeners(this.listeners, evt)
	}

	this.buf = make([]byte, 0)

	if err := this.os.Close(); err != nil {
		return chameleon.NewError(err.Error(), chameleon.ERR_WRITE_FILE)
	}

	return nil
}

// GetWritten returns the number of bytes written so far to the underlying stream
func (this *Writer) GetWritten() uint64 {
	return this.written
}

// GetRead returns the number of uncompressed bytes consumed so far
func (this *Writer) GetRead() uint64 {
	return this.session.TotalRead()
}

// Blocks returns the number of blocks written so far
func (this *Writer) Blocks() int {
	return this.session.Blocks()
}

func (this *Writer) start() {
	if this.started == true {
		return
	}

	this.started = true

	if len(this.listeners) > 0 {
		evt := chameleon.NewEvent(chameleon.EVT_COMPRESSION_START, 0, time.Now())
		notifyListeners(this.listeners, evt)
	}
}

func (this *Writer) flushOutput(out *memory.View) error {
	if out.Position() == 0 {
		return nil
	}

	n, err := this.os.Write(out.Bytes())
	this.written += uint64(n)

	if err != nil {
		return chameleon.NewError(err.Error(), chameleon.ERR_WRITE_FILE)
	}

	if n != out.Position() {
		return chameleon.Errorf(chameleon.ERR_WRITE_FILE, "Short write: %d bytes out of %d", n, out.Position())
	}

	return nil
}

// Reader a compressed input stream. Data read from the Reader is decoded
// from the underlying stream. The stream footer is verified before io.EOF
// is returned. Data following the footer is reported as ERR_MALFORMED_BLOCK.
type Reader struct {
	is          io.ReadCloser
	session     *stream.Decoder
	ibuf        []byte
	in          *memory.View
	obuf        []byte
	curIdx      int
	maxIdx      int
	eof         bool
	initialized bool
	finished    bool
	started     bool
	listeners   []chameleon.Listener
	closed      int32
}

// NewReader creates a Reader. The stream header is read on the first call
// to Read.
func NewReader(is io.ReadCloser) (*Reader, error) {
	return NewReaderWithBufferSize(is, _STREAM_DEFAULT_BUFFER_SIZE)
}

// NewReaderWithBufferSize creates a Reader that reads the underlying stream
// in pieces of at most bufferSize bytes
func NewReaderWithBufferSize(is io.ReadCloser, bufferSize int) (*Reader, error) {
	if is == nil {
		return nil, chameleon.NewError("Invalid null input stream parameter", chameleon.ERR_OPEN_FILE)
	}

	if bufferSize < _STREAM_MIN_BUFFER_SIZE {
		return nil, chameleon.Errorf(chameleon.ERR_INVALID_PARAM,
			"Invalid buffer size parameter (must be at least %d)", _STREAM_MIN_BUFFER_SIZE)
	}

	this := &Reader{}
	this.is = is
	this.session = stream.NewDecoder()
	this.ibuf = make([]byte, bufferSize)
	this.in = memory.NewView(nil)
	this.obuf = make([]byte, bufferSize)
	this.listeners = make([]chameleon.Listener, 0)
	return this, nil
}

// AddListener adds an event listener to this input stream.
// Returns true if the listener has been added.
func (this *Reader) AddListener(bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this input stream.
// Returns true if the listener has been removed.
func (this *Reader) RemoveListener(bl chameleon.Listener) bool {
	return removeListener(&this.listeners, bl)
}

// Header returns the stream header. Only valid after the first Read.
func (this *Reader) Header() stream.Header {
	return this.session.Header()
}

// Read decodes up to len(block) bytes into block. It returns the number of
// bytes read (0 <= n <= len(block)) and any error encountered. io.EOF is
// returned once the footer has been read and verified.
func (this *Reader) Read(block []byte) (int, error) {
	if atomic.LoadInt32(&this.closed) == 1 {
		return 0, chameleon.NewError("Stream closed", chameleon.ERR_READ_FILE)
	}

	startChunk := 0
	remaining := len(block)

	for remaining > 0 {
		if this.curIdx < this.maxIdx {
			lenChunk := copy(block[startChunk:], this.obuf[this.curIdx:this.maxIdx])
			this.curIdx += lenChunk
			startChunk += lenChunk
			remaining -= lenChunk
			continue
		}

		if this.finished == true {
			if remaining == len(block) {
				return 0, io.EOF
			}

			break
		}

		// Buffer empty, time to decode
		var err error

		if this.maxIdx, err = this.fill(); err != nil {
			return len(block) - remaining, err
		}

		this.curIdx = 0
	}

	return len(block) - remaining, nil
}

// Decode into the output buffer. Returns 0 only at the end of the stream.
func (this *Reader) fill() (int, error) {
	if this.started == false {
		this.started = true

		if len(this.listeners) > 0 {
			evt := chameleon.NewEvent(chameleon.EVT_DECOMPRESSION_START, 0, time.Now())
			notifyListeners(this.listeners, evt)
		}
	}

	out := memory.NewView(this.obuf)

	for out.Position() == 0 && this.finished == false {
		if this.in.Remaining() == 0 && this.eof == false {
			if err := this.readInput(); err != nil {
				return 0, err
			}
		}

		if this.initialized == false {
			status, err := this.session.Init(this.in, this.eof)

			if err != nil {
				return 0, err
			}

			if status != chameleon.READY {
				continue
			}

			this.initialized = true
			this.notifyHeader()
		}

		status, err := this.session.Process(this.in, out, this.eof)

		if err != nil {
			return out.Position(), err
		}

		if status != chameleon.READY {
			continue
		}

		status, err = this.session.Finish(this.in, this.eof)

		if err != nil {
			return out.Position(), err
		}

		if status == chameleon.READY {
			if err := this.checkTrailingData(); err != nil {
				return out.Position(), err
			}

			this.finished = true

			if len(this.listeners) > 0 {
				footer := this.session.Footer()
				evt := chameleon.NewEventWithHash(chameleon.EVT_AFTER_FOOTER_DECODING, int64(footer.Length),
					footer.Checksum, time.Now())
				notifyListeners(this.listeners, evt)
				evt = chameleon.NewEvent(chameleon.EVT_DECOMPRESSION_END, int64(this.session.TotalRead()), time.Now())
				notifyListeners(this.listeners, evt)
			}
		}
	}

	return out.Position(), nil
}

// The footer ends the stream: anything after it is an error
func (this *Reader) checkTrailingData() error {
	for this.in.Remaining() == 0 && this.eof == false {
		if err := this.readInput(); err != nil {
			return err
		}
	}

	if n := this.in.Remaining(); n > 0 {
		return chameleon.Errorf(chameleon.ERR_MALFORMED_BLOCK, "Unexpected data after the stream footer (%d bytes)", n)
	}

	return nil
}

func (this *Reader) readInput() error {
	n, err := this.is.Read(this.ibuf)
	this.in.Reset(this.ibuf[:n])

	if err == io.EOF {
		this.eof = true
		return nil
	}

	if err != nil {
		return chameleon.NewError(err.Error(), chameleon.ERR_READ_FILE)
	}

	return nil
}

func (this *Reader) notifyHeader() {
	if len(this.listeners) == 0 {
		return
	}

	h := this.session.Header()
	msg := fmt.Sprintf("{ \"type\":\"%s\", \"version\":\"%d.%d.%d\", \"mode\":\"%s\", \"blockType\":\"%s\" }",
		"AFTER_HEADER_DECODING", h.Major, h.Minor, h.Revision, h.Mode, h.BlockType)
	evt := chameleon.NewEventFromString(chameleon.EVT_AFTER_HEADER_DECODING, msg, time.Now())
	notifyListeners(this.listeners, evt)
}

// Close releases resources and closes the underlying stream.
// Close makes the stream unavailable for further reads. Idempotent.
func (this *Reader) Close() error {
	if atomic.SwapInt32(&this.closed, 1) == 1 {
		return nil
	}

	this.maxIdx = 0
	this.obuf = make([]byte, 0)
	this.ibuf = make([]byte, 0)

	if err := this.is.Close(); err != nil {
		return chameleon.NewError(err.Error(), chameleon.ERR_READ_FILE)
	}

	return nil
}

// GetRead returns the number of compressed bytes consumed so far
func (this *Reader) GetRead() uint64 {
	return this.session.TotalRead()
}

// GetWritten returns the number of decompressed bytes produced so far
func (this *Reader) GetWritten() uint64 {
	return this.session.TotalWritten()
}

func removeListener(listeners *[]chameleon.Listener, bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	for i, e := range *listeners {
		if e == bl {
			*listeners = append((*listeners)[:i], (*listeners)[i+1:]...)
			return true
		}
	}

	return false
}

func notifyListeners(listeners []chameleon.Listener, evt *chameleon.Event) {
	defer func() {
		//lint:ignore SA9003 ignore panics in listeners
		if r := recover(); r != nil {
			// Ignore panics in listeners
		}
	}()

	for _, bl := range listeners {
		bl.ProcessEvent(evt)
	}
}
