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

// Package stream implements encode and decode sessions. A session owns the
// stream header and footer and drives the block layer across the whole
// stream. Sessions are resumable: Process and Finish return a stall status
// when they need more input or more output space, and the caller calls
// again with fresh buffers.
//
// Stream layout: [header (12 bytes)] [blocks ...] [footer (16 bytes)]
//
// A session must not be used by several goroutines at the same time.
// Distinct sessions share nothing.
package stream

import (
	"encoding/binary"

	chameleon "github.com/flanglet/chameleon-go"
)

// Header the stream header
type Header struct {
	Major     uint8
	Minor     uint8
	Revision  uint8
	Mode      chameleon.CompressionMode
	BlockType chameleon.BlockType
}

// NewHeader creates a header with the current format version
func NewHeader(mode chameleon.CompressionMode, bt chameleon.BlockType) Header {
	return Header{
		Major:     chameleon.FORMAT_MAJOR_VERSION,
		Minor:     chameleon.FORMAT_MINOR_VERSION,
		Revision:  chameleon.FORMAT_REVISION,
		Mode:      mode,
		BlockType: bt,
	}
}

// Bytes serializes the header
func (this Header) Bytes() []byte {
	buf := make([]byte, chameleon.HEADER_SIZE)
	binary.BigEndian.PutUint32(buf[0:4], chameleon.STREAM_MAGIC)
	buf[4] = this.Major
	buf[5] = this.Minor
	buf[6] = this.Revision
	buf[7] = byte(this.Mode)
	buf[8] = byte(this.BlockType)
	return buf
}

// ParseHeader reads a header. The compression mode is not validated here.
func ParseHeader(buf []byte) (Header, error) {
	var h Header

	if len(buf) < chameleon.HEADER_SIZE {
		return h, chameleon.Errorf(chameleon.ERR_MALFORMED_HEADER, "Truncated stream header: %d bytes", len(buf))
	}

	if magic := binary.BigEndian.Uint32(buf[0:4]); magic != chameleon.STREAM_MAGIC {
		return h, chameleon.Errorf(chameleon.ERR_MALFORMED_HEADER, "Invalid stream type: %08x", magic)
	}

	h.Major = buf[4]
	h.Minor = buf[5]
	h.Revision = buf[6]
	h.Mode = chameleon.CompressionMode(buf[7])
	h.BlockType = chameleon.BlockType(buf[8])

	if h.Major != chameleon.FORMAT_MAJOR_VERSION {
		return h, chameleon.Errorf(chameleon.ERR_MALFORMED_HEADER, "Unsupported stream format version: %d.%d.%d",
			h.Major, h.Minor, h.Revision)
	}

	if chameleon.BlockPayloadSize(h.BlockType) < 0 {
		return h, chameleon.Errorf(chameleon.ERR_MALFORMED_HEADER, "Invalid block type: %d", buf[8])
	}

	return h, nil
}

// Footer the stream footer
type Footer struct {
	Length   uint64 // total decoded bytes
	Checksum uint64 // hash of all decoded bytes
}

// Bytes serializes the footer
func (this Footer) Bytes() []byte {
	buf := make([]byte, chameleon.FOOTER_SIZE)
	binary.LittleEndian.PutUint64(buf[0:8], this.Length)
	binary.LittleEndian.PutUint64(buf[8:16], this.Checksum)
	return buf
}

// ParseFooter reads a footer
func ParseFooter(buf []byte) (Footer, error) {
	if len(buf) < chameleon.FOOTER_SIZE {
		return Footer{}, chameleon.Errorf(chameleon.ERR_TRUNCATED_STREAM, "Truncated stream footer: %d bytes", len(buf))
	}

	return Footer{
		Length:   binary.LittleEndian.Uint64(buf[0:8]),
		Checksum: binary.LittleEndian.Uint64(buf[8:16]),
	}, nil
}
