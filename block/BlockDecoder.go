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

package block

import (
	"encoding/binary"
	"io"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/hash"
	"github.com/flanglet/chameleon-go/kernel"
	"github.com/flanglet/chameleon-go/memory"
)

// Block decoder resumption points
const (
	_DECODE_READ_BLOCK_HEADER  = 0
	_DECODE_KERNEL             = 1
	_DECODE_READ_BLOCK_TRAILER = 2
	_DECODE_DONE               = 3
)

// Decoder reads blocks and runs the payload decoder on them
type Decoder struct {
	kernel      kernel.Decoder
	mode        chameleon.CompressionMode
	blockType   chameleon.BlockType
	trailerSize int
	maxLength   int
	process     int
	last        bool
	digest      *hash.XXHash64
	observer    io.Writer
	blocks      int
}

// NewDecoder creates a block decoder. Every decoded byte is also written
// to streamObserver (may be nil).
func NewDecoder(mode chameleon.CompressionMode, bt chameleon.BlockType, streamObserver io.Writer) (*Decoder, error) {
	k, err := kernel.NewDecoder(mode)

	if err != nil {
		return nil, err
	}

	payloadSize := chameleon.BlockPayloadSize(bt)
	trailerSize := chameleon.BlockTrailerSize(bt)

	if payloadSize < 0 || trailerSize < 0 {
		return nil, chameleon.Errorf(chameleon.ERR_INVALID_PARAM, "Unknown block type: %d", uint8(bt))
	}

	this := &Decoder{}
	this.kernel = k
	this.mode = mode
	this.blockType = bt
	this.trailerSize = trailerSize
	this.maxLength = payloadSize

	// A predicted chunk takes 2 bytes: at most twice the payload size
	if mode == chameleon.MODE_CHAMELEON {
		this.maxLength = 2 * payloadSize
	}

	this.digest = hash.NewXXHash64(chameleon.CHECKSUM_SEED)
	this.observer = this.digest

	if streamObserver != nil {
		this.observer = io.MultiWriter(this.digest, streamObserver)
	}

	this.process = _DECODE_READ_BLOCK_HEADER
	return this, nil
}

// Blocks returns the number of blocks fully decoded so far
func (this *Decoder) Blocks() int {
	return this.blocks
}

// Process decodes blocks from in into out. Returns READY once the trailer
// of the last block has been read.
func (this *Decoder) Process(in *memory.Teleport, out *memory.View) (chameleon.Status, error) {
	for {
		switch this.process {
		case _DECODE_READ_BLOCK_HEADER:
			b, ok := in.Read(chameleon.BLOCK_HEADER_SIZE)

			if ok == false {
				return chameleon.STALL_ON_INPUT, nil
			}

			flags := b[0]
			length := binary.LittleEndian.Uint32(b[1:])

			if flags&^chameleon.BLOCK_LAST_FLAG != 0 {
				return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_MALFORMED_BLOCK,
					"Invalid block flags: 0x%02x", flags)
			}

			if uint64(length) > uint64(this.maxLength) {
				return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_MALFORMED_BLOCK,
					"Invalid block length: %d (max %d)", length, this.maxLength)
			}

			this.last = flags&chameleon.BLOCK_LAST_FLAG != 0

			// Trailing bytes only exist in the last block
			if this.last == false && this.mode == chameleon.MODE_CHAMELEON && length%kernel.CHUNK_SIZE != 0 {
				return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_MALFORMED_BLOCK,
					"Invalid length for a non final block: %d", length)
			}

			this.kernel.Prepare(int(length))
			this.digest.Reset()
			this.process = _DECODE_KERNEL

		case _DECODE_KERNEL:
			before := out.Position()
			status, err := this.kernel.Decode(in, out)
			this.observer.Write(out.Since(before))

			if err != nil {
				return chameleon.ERROR, err
			}

			if status != chameleon.READY {
				return status, nil
			}

			this.process = _DECODE_READ_BLOCK_TRAILER

		case _DECODE_READ_BLOCK_TRAILER:
			if this.trailerSize > 0 {
				b, ok := in.Read(this.trailerSize)

				if ok == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				if this.blockType == chameleon.BLOCK_CHECKSUM {
					expected := binary.LittleEndian.Uint64(b)

					if found := this.digest.Sum64(); found != expected {
						return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_CRC_CHECK,
							"Corrupted block %d: checksum mismatch (expected %016x, found %016x)",
							this.blocks, expected, found)
					}
				}
			}

			this.blocks++

			if this.last == true {
				this.process = _DECODE_DONE
				return chameleon.READY, nil
			}

			this.process = _DECODE_READ_BLOCK_HEADER

		case _DECODE_DONE:
			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Invalid block decoder state: %d", this.process)
		}
	}
}
