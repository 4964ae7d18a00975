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

// Package block frames kernel payloads into blocks.
//
// Block layout: [flags (1 byte)] [decoded length (4 bytes LE)] [payload]
// [trailer]. Flag bit 0 marks the last block of the stream. The trailer is
// empty for BLOCK_DEFAULT and holds the 64 bit hash of the decoded block
// bytes for BLOCK_CHECKSUM.
package block

import (
	"encoding/binary"
	"io"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/hash"
	"github.com/flanglet/chameleon-go/kernel"
	"github.com/flanglet/chameleon-go/memory"
)

// Block encoder resumption points
const (
	_ENCODE_PREPARE_BLOCK = 0
	_ENCODE_KERNEL        = 1
	_ENCODE_DRAIN_BLOCK   = 2
	_ENCODE_DONE          = 3
)

// Encoder stages one block at a time in a work buffer: the kernel fills
// the payload, the header and trailer are written once the block is sealed,
// then the block is drained to the caller output.
type Encoder struct {
	kernel      kernel.Encoder
	blockType   chameleon.BlockType
	buf         []byte
	payload     *memory.View
	trailerSize int
	process     int
	drainPos    int
	drainEnd    int
	last        bool
	digest      *hash.XXHash64
	observer    io.Writer
	blocks      int
}

// NewEncoder creates a block encoder. Every input byte consumed by the
// kernel is also written to streamObserver (may be nil).
func NewEncoder(mode chameleon.CompressionMode, bt chameleon.BlockType, streamObserver io.Writer) (*Encoder, error) {
	k, err := kernel.NewEncoder(mode)

	if err != nil {
		return nil, err
	}

	payloadSize := chameleon.BlockPayloadSize(bt)
	trailerSize := chameleon.BlockTrailerSize(bt)

	if payloadSize < 0 || trailerSize < 0 {
		return nil, chameleon.Errorf(chameleon.ERR_INVALID_PARAM, "Unknown block type: %d", uint8(bt))
	}

	this := &Encoder{}
	this.kernel = k
	this.blockType = bt
	this.trailerSize = trailerSize
	this.buf = make([]byte, chameleon.BLOCK_HEADER_SIZE+payloadSize+trailerSize)
	this.payload = memory.NewView(nil)
	this.digest = hash.NewXXHash64(chameleon.CHECKSUM_SEED)
	this.observer = this.digest

	if streamObserver != nil {
		this.observer = io.MultiWriter(this.digest, streamObserver)
	}

	this.process = _ENCODE_PREPARE_BLOCK
	return this, nil
}

// Kernel returns the payload encoder
func (this *Encoder) Kernel() kernel.Encoder {
	return this.kernel
}

// Blocks returns the number of blocks sealed so far
func (this *Encoder) Blocks() int {
	return this.blocks
}

// Process encodes input from in into blocks drained to out. Returns READY
// once flush has been requested and the last block has been fully drained.
func (this *Encoder) Process(in *memory.Teleport, out *memory.View, flush bool) (chameleon.Status, error) {
	in.SetObserver(this.observer)
	defer in.SetObserver(nil)

	for {
		switch this.process {
		case _ENCODE_PREPARE_BLOCK:
			end := len(this.buf) - this.trailerSize
			this.payload.Reset(this.buf[chameleon.BLOCK_HEADER_SIZE:end])
			this.kernel.Prepare()
			this.digest.Reset()
			this.process = _ENCODE_KERNEL

		case _ENCODE_KERNEL:
			status, err := this.kernel.Encode(in, this.payload, flush)

			if err != nil {
				return chameleon.ERROR, err
			}

			switch status {
			case chameleon.STALL_ON_INPUT:
				return status, nil

			case chameleon.STALL_ON_OUTPUT:
				this.seal(false)

			case chameleon.READY:
				this.seal(true)

			default:
				return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
					"Unexpected kernel status: %v", status)
			}

		case _ENCODE_DRAIN_BLOCK:
			this.drainPos += out.Write(this.buf[this.drainPos:this.drainEnd])

			if this.drainPos < this.drainEnd {
				return chameleon.STALL_ON_OUTPUT, nil
			}

			if this.last == true {
				this.process = _ENCODE_DONE
				return chameleon.READY, nil
			}

			this.process = _ENCODE_PREPARE_BLOCK

		case _ENCODE_DONE:
			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Invalid block encoder state: %d", this.process)
		}
	}
}

// Write the block header and trailer around the payload
func (this *Encoder) seal(last bool) {
	length := this.payload.Position()
	flags := byte(0)

	if last == true {
		flags |= chameleon.BLOCK_LAST_FLAG
	}

	this.buf[0] = flags
	binary.LittleEndian.PutUint32(this.buf[1:chameleon.BLOCK_HEADER_SIZE], uint32(this.digest.Written()))
	end := chameleon.BLOCK_HEADER_SIZE + length

	if this.blockType == chameleon.BLOCK_CHECKSUM {
		binary.LittleEndian.PutUint64(this.buf[end:end+8], this.digest.Sum64())
	}

	this.last = last
	this.drainPos = 0
	this.drainEnd = end + this.trailerSize
	this.blocks++
	this.process = _ENCODE_DRAIN_BLOCK
}
