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

// Encoder session states
const (
	_WRITE_HEADER = 0
	_WRITE_BLOCKS = 1
	_WRITE_FOOTER = 2
	_DRAIN_FOOTER = 3
	_ENC_FINISHED = 4
)

// Encoder an encode session
type Encoder struct {
	header       Header
	process      int
	block        *block.Encoder
	in           *memory.Teleport
	digest       *hash.XXHash64
	pending      []byte
	totalRead    uint64
	totalWritten uint64
	err          error
}

// NewEncoder creates an encode session. Fails with ERR_UNSUPPORTED_MODE
// if the compression mode has no kernel.
func NewEncoder(mode chameleon.CompressionMode, bt chameleon.BlockType) (*Encoder, error) {
	this := &Encoder{}
	this.digest = hash.NewXXHash64(chameleon.CHECKSUM_SEED)
	var err error

	if this.block, err = block.NewEncoder(mode, bt, this.digest); err != nil {
		return nil, err
	}

	this.header = NewHeader(mode, bt)
	this.in = memory.NewTeleport()
	this.pending = this.header.Bytes()
	this.process = _WRITE_HEADER
	return this, nil
}

// Header returns the stream header
func (this *Encoder) Header() Header {
	return this.header
}

// TotalRead returns the number of bytes consumed so far
func (this *Encoder) TotalRead() uint64 {
	return this.totalRead
}

// TotalWritten returns the number of bytes produced so far
func (this *Encoder) TotalWritten() uint64 {
	return this.totalWritten
}

// Blocks returns the number of blocks sealed so far
func (this *Encoder) Blocks() int {
	return this.block.Blocks()
}

// Checksum returns the hash of the input consumed so far
func (this *Encoder) Checksum() uint64 {
	return this.digest.Sum64()
}

// Process encodes bytes from in to out. flush means that no more input
// will be supplied after in. Returns READY once all input has been encoded
// (flush must be set); the session then waits for Finish.
func (this *Encoder) Process(in, out *memory.View, flush bool) (chameleon.Status, error) {
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

func (this *Encoder) run(out *memory.View, flush bool) (chameleon.Status, error) {
	for {
		switch this.process {
		case _WRITE_HEADER:
			if this.drain(out) == false {
				return chameleon.STALL_ON_OUTPUT, nil
			}

			this.process = _WRITE_BLOCKS

		case _WRITE_BLOCKS:
			status, err := this.block.Process(this.in, out, flush)

			if err != nil {
				return chameleon.ERROR, err
			}

			if status != chameleon.READY {
				return status, nil
			}

			this.process = _WRITE_FOOTER
			return chameleon.READY, nil

		case _WRITE_FOOTER:
			if this.in.Available() > 0 {
				return chameleon.ERROR, chameleon.NewError("Input received after the end of the stream",
					chameleon.ERR_INVALID_STATE)
			}

			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Cannot process data in encoder state %d", this.process)
		}
	}
}

// Finish writes the stream footer. Only valid after Process returned READY.
func (this *Encoder) Finish(out *memory.View) (chameleon.Status, error) {
	if this.err != nil {
		return chameleon.ERROR, this.err
	}

	switch this.process {
	case _WRITE_FOOTER:
		footer := Footer{Length: this.digest.Written(), Checksum: this.digest.Sum64()}
		this.pending = footer.Bytes()
		this.process = _DRAIN_FOOTER

	case _DRAIN_FOOTER:

	case _ENC_FINISHED:
		return chameleon.READY, nil

	default:
		this.err = chameleon.NewError("Cannot finish stream: all blocks have not been written",
			chameleon.ERR_INVALID_STATE)
		return chameleon.ERROR, this.err
	}

	before := out.Position()
	done := this.drain(out)
	this.totalWritten += uint64(out.Position() - before)

	if done == false {
		return chameleon.STALL_ON_OUTPUT, nil
	}

	this.process = _ENC_FINISHED
	return chameleon.READY, nil
}

// Copy pending header or footer bytes. Returns true when nothing is left.
func (this *Encoder) drain(out *memory.View) bool {
	n := out.Write(this.pending)
	this.pending = this.pending[n:]
	return len(this.pending) == 0
}
