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

// Package chameleon defines the top level types shared by the chameleon
// streaming codec: processing status, error codes, stream format constants
// and compression events.
//
// The codec itself is split in sub-folders: memory (buffer views and the
// input bridge), kernel (the Chameleon and copy kernels), block (block
// framing) and stream (encode and decode sessions). The io package wraps
// sessions into an io.Writer and an io.Reader.
package chameleon

import (
	"fmt"
)

const (
	ERR_MISSING_PARAM    = 1
	ERR_MALFORMED_HEADER = 2
	ERR_UNSUPPORTED_MODE = 3
	ERR_INVALID_STATE    = 4
	ERR_TRUNCATED_STREAM = 5
	ERR_MALFORMED_BLOCK  = 6
	ERR_CRC_CHECK        = 7
	ERR_INVALID_PARAM    = 8
	ERR_OVERWRITE_FILE   = 9
	ERR_CREATE_FILE      = 10
	ERR_OPEN_FILE        = 11
	ERR_READ_FILE        = 12
	ERR_WRITE_FILE       = 13
	ERR_UNKNOWN          = 127
)

// Status is the outcome of one call into a resumable encoder or decoder.
// Stalls are not errors: the caller supplies more input (or drains the
// output) and calls again with the same session.
type Status int

const (
	READY           Status = 0
	STALL_ON_INPUT  Status = 1
	STALL_ON_OUTPUT Status = 2
	ERROR           Status = 3
)

// String returns the name of the status
func (this Status) String() string {
	switch this {
	case READY:
		return "READY"
	case STALL_ON_INPUT:
		return "STALL_ON_INPUT"
	case STALL_ON_OUTPUT:
		return "STALL_ON_OUTPUT"
	case ERROR:
		return "ERROR"
	}

	return fmt.Sprintf("Status(%d)", int(this))
}

// CompressionMode selects the kernel applied to block payloads
type CompressionMode uint8

const (
	MODE_COPY      CompressionMode = 0
	MODE_CHAMELEON CompressionMode = 1
	MODE_RESERVED  CompressionMode = 2
)

// String returns the name of the compression mode
func (this CompressionMode) String() string {
	switch this {
	case MODE_COPY:
		return "COPY"
	case MODE_CHAMELEON:
		return "CHAMELEON"
	case MODE_RESERVED:
		return "RESERVED"
	}

	return fmt.Sprintf("MODE(%d)", uint8(this))
}

// BlockType fixes the block payload capacity and the block trailer layout
type BlockType uint8

const (
	BLOCK_DEFAULT  BlockType = 0 // no trailer
	BLOCK_CHECKSUM BlockType = 1 // 64 bit hash of the decoded block in trailer
)

// String returns the name of the block type
func (this BlockType) String() string {
	switch this {
	case BLOCK_DEFAULT:
		return "DEFAULT"
	case BLOCK_CHECKSUM:
		return "CHECKSUM"
	}

	return fmt.Sprintf("BLOCK(%d)", uint8(this))
}

// Stream format
const (
	STREAM_MAGIC         = 0x43484D4C // "CHML"
	FORMAT_MAJOR_VERSION = 1
	FORMAT_MINOR_VERSION = 0
	FORMAT_REVISION      = 0
	HEADER_SIZE          = 12
	FOOTER_SIZE          = 16
	BLOCK_HEADER_SIZE    = 5
	BLOCK_LAST_FLAG      = 0x01
	BLOCK_PAYLOAD_SIZE   = 64 * 1024
	CHECKSUM_SEED        = uint64(STREAM_MAGIC)
)

// BlockTrailerSize returns the size in bytes of the trailer written after
// each block payload. Returns -1 for unknown block types.
func BlockTrailerSize(bt BlockType) int {
	switch bt {
	case BLOCK_DEFAULT:
		return 0
	case BLOCK_CHECKSUM:
		return 8
	}

	return -1
}

// BlockPayloadSize returns the maximum encoded payload of a block.
// Returns -1 for unknown block types.
func BlockPayloadSize(bt BlockType) int {
	switch bt {
	case BLOCK_DEFAULT, BLOCK_CHECKSUM:
		return BLOCK_PAYLOAD_SIZE
	}

	return -1
}

// Error an extended error containing a message and a code value
type Error struct {
	msg  string
	code int
}

// NewError creates a new Error with the given message and code
func NewError(msg string, code int) *Error {
	return &Error{msg: msg, code: code}
}

// Errorf creates a new Error with a formatted message
func Errorf(code int, format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...), code: code}
}

// Error returns the underlying error
func (this Error) Error() string {
	return fmt.Sprintf("%v (code %v)", this.msg, this.code)
}

// Message returns the message string associated with the error
func (this Error) Message() string {
	return this.msg
}

// ErrorCode returns the code value associated with the error
func (this Error) ErrorCode() int {
	return this.code
}

// ErrorCode extracts the code of an *Error, ERR_UNKNOWN for other non nil
// errors and 0 for nil.
func ErrorCode(err error) int {
	if err == nil {
		return 0
	}

	if e, ok := err.(*Error); ok {
		return e.code
	}

	if e, ok := err.(Error); ok {
		return e.code
	}

	return ERR_UNKNOWN
}
