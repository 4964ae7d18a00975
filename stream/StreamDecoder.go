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

package stream

import (
	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/block"
	"github.com/flanglet/chameleon-go/hash"
	"github.com/flanglet/chameleon-go/memory"
)

// Decoder session states
const (
	_READ_HEADER  = 0
	_READ_BLOCKS  = 1
	_READ_FOOTER  = 2
	_DEC_FINISHED = 3
)

// Decoder a decode session
type Decoder struct {
	header       Header
	footer       Footer
	process      int
	block        *block.Decoder
	in           *memory.Teleport
	digest       *hash.XXHash64
	totalRead    uint64
	totalWritten uint64
	err          error
}

// NewDecoder creates a decode session. The stream header is read by the
// first calls to Process.
func NewDecoder() *Decoder {
	this := &Decoder{}
	this.digest = hash.NewXXHash64(chameleon.CHECKSUM_SEED)
	this.in = memory.NewTeleport()
	this.process = _READ_HEADER
	return this
}

// Init reads the stream header from in and creates the block decoder.
// Returns STALL_ON_INPUT if the header is not complete yet (unless flush is
// set), ERR_MALFORMED_HEADER for an invalid header and ERR_UNSUPPORTED_MODE
// for an unknown compression mode. Calling Init is optional: Process reads
// the header if needed.
func (this *Decoder) Init(in *memory.View, flush bool) (chameleon.Status, error) {
	if this.err != nil {
		return chameleon.ERROR, this.err
	}

	if this.process != _READ_HEADER {
		return chameleon.READY, nil
	}

	if in == nil {
		in = memory.NewView(nil)
	}

	before := in.Position()
	this.in.Bind(in)
	status, err := this.readHeader(flush)
	this.totalRead += uint64(in.Position() - before)

	if err != nil {
		this.err = err
		return chameleon.ERROR, err
	}

	return status, nil
}

// Header returns the stream header. Only valid once the header has been read.
func (this *Decoder) Header() Header {
	return this.header
}

// Footer returns the stream footer. Only valid after Finish returned READY.
func (this *Decoder) Footer() Footer {
	return this.footer
}

// TotalRead returns the number of bytes consumed so far
func (this *Decoder) TotalRead() uint64 {
	return this.totalRead
}

// TotalWritten returns the number of bytes produced so far
func (this *Decoder) TotalWritten() uint64 {
	return this.totalWritten
}

// Blocks returns the number of blocks decoded so far
func (this *Decoder) Blocks() int {
	if this.block == nil {
		return 0
	}

	return this.block.Blocks()
}

// Process decodes bytes from in to out. flush means that no more input will
// be supplied after in: running out of input is then reported as
// ERR_TRUNCATED_STREAM. Returns READY once the last block has been decoded;
// the footer is then read by Finish.
//
// Decoding a chunk needs CHUNK_SIZE (4) bytes of room in out: with less, a
// Chameleon stream returns STALL_ON_OUTPUT and makes no progress until a
// larger output buffer is supplied.
func (this *Decoder) Process(in, out *memory.View, flush bool) (chameleon.Status, error) {
	if this.err != nil {
		return chameleon.ERROR, this.err
	}

	if in == nil {
		in = memory.NewView(nil)
	}

	inBefore, outBefore := in.Position(), out.Position()
	this.in.Bind(in)
	status, err := this.run(out, flush)
	this.totalRead += uint64(in.Position() - inBefore)
	this.totalWritten += uint64(out.Position() - outBefore)

	if err != nil {
		this.err = err
		return chameleon.ERROR, err
	}

	return status, nil
}

func (this *Decoder) run(out *memory.View, flush bool) (chameleon.Status, error) {
	for {
		switch this.process {
		case _READ_HEADER:
			if status, err := this.readHeader(flush); status != chameleon.READY {
				return status, err
			}

		case _READ_BLOCKS:
			status, err := this.block.Process(this.in, out)

			if err != nil {
				return chameleon.ERROR, err
			}

			switch status {
			case chameleon.READY:
				this.process = _READ_FOOTER
				return chameleon.READY, nil

			case chameleon.STALL_ON_INPUT:
				if flush == true {
					return chameleon.ERROR, chameleon.NewError("Truncated stream: input ended inside a block",
						chameleon.ERR_TRUNCATED_STREAM)
				}
			}

			return status, nil

		case _READ_FOOTER:
			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Cannot process data in decoder state %d", this.process)
		}
	}
}

func (this *Decoder) readHeader(flush bool) (chameleon.Status, error) {
	b, ok := this.in.Read(chameleon.HEADER_SIZE)

	if ok == false {
		if flush == true {
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_MALFORMED_HEADER,
				"Truncated stream header: %d bytes", this.in.Available())
		}

		return chameleon.STALL_ON_INPUT, nil
	}

	header, err := ParseHeader(b)

	if err != nil {
		return chameleon.ERROR, err
	}

	if this.block, err = block.NewDecoder(header.Mode, header.BlockType, this.digest); err != nil {
		return chameleon.ERROR, err
	}

	this.header = header
	this.process = _READ_BLOCKS
	return chameleon.READY, nil
}

// Finish reads and verifies the stream footer. Only valid after Process
// returned READY. Returns STALL_ON_INPUT if the footer is not complete yet
// (unless flush is set, then ERR_TRUNCATED_STREAM). Bytes following the
// footer are left unread in in.
func (this *Decoder) Finish(in *memory.View, flush bool) (chameleon.Status, error) {
	if this.err != nil {
		return chameleon.ERROR, this.err
	}

	switch this.process {
	case _READ_FOOTER:

	case _DEC_FINISHED:
		return chameleon.READY, nil

	default:
		this.err = chameleon.NewError("Cannot finish stream: the last block has not been decoded",
			chameleon.ERR_INVALID_STATE)
		return chameleon.ERROR, this.err
	}

	if in == nil {
		in = memory.NewView(nil)
	}

	before := in.Position()
	this.in.Bind(in)
	b, ok := this.in.Read(chameleon.FOOTER_SIZE)
	this.totalRead += uint64(in.Position() - before)

	if ok == false {
		if flush == true {
			this.err = chameleon.Errorf(chameleon.ERR_TRUNCATED_STREAM, "Truncated stream footer: %d bytes",
				this.in.Available())
			return chameleon.ERROR, this.err
		}

		return chameleon.STALL_ON_INPUT, nil
	}

	footer, err := ParseFooter(b)

	if err != nil {
		this.err = err
		return chameleon.ERROR, err
	}

	if footer.Length != this.digest.Written() {
		this.err = chameleon.Errorf(chameleon.ERR_CRC_CHECK, "Stream length mismatch: expected %d, found %d",
			footer.Length, this.digest.Written())
		return chameleon.ERROR, this.err
	}

	if found := this.digest.Sum64(); found != footer.Checksum {
		this.err = chameleon.Errorf(chameleon.ERR_CRC_CHECK, "Stream checksum mismatch: expected %016x, found %016x",
			footer.Checksum, found)
		return chameleon.ERROR, this.err
	}

	this.footer = footer
	this.process = _DEC_FINISHED
	return chameleon.READY, nil
}

// Finished returns true once the footer has been read and verified
func (this *Decoder) Finished() bool {
	return this.process == _DEC_FINISHED
}
