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

package kernel

import (
	"encoding/binary"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/memory"
)

// Chameleon is a hash based kernel. Input is processed in 4 byte chunks.
// Each chunk is hashed into a single entry table that remembers the last
// chunk seen for that hash. If the table predicts the chunk, only the 16 bit
// hash is emitted, otherwise the chunk is emitted as is and becomes the
// prediction. One flag bit per chunk (1 for a prediction hit) is packed,
// least significant bit first, in a 64 bit signature that precedes the
// chunks it describes.
//
// Payload layout: [signature (8 bytes LE)] [for each flag: 2 byte LE hash
// or 4 literal bytes] ... [0 to 3 trailing bytes, last block only]

const (
	CHAMELEON_HASH_BITS       = 16
	CHAMELEON_HASH_MULTIPLIER = uint32(0x9D6EF916)
	CHAMELEON_TABLE_SIZE      = 1 << CHAMELEON_HASH_BITS
	CHUNK_SIZE                = 4
	HASH_SIZE                 = 2
	SIGNATURE_SIZE            = 8
	SIGNATURE_WIDTH           = 64
	MAX_GROUP_SIZE            = SIGNATURE_SIZE + SIGNATURE_WIDTH*CHUNK_SIZE
)

func chameleonHash(chunk uint32) uint16 {
	return uint16((chunk * CHAMELEON_HASH_MULTIPLIER) >> (32 - CHAMELEON_HASH_BITS))
}

// Encoder resumption points
const (
	_ENCODE_PREPARE_NEW_BLOCK     = 0
	_ENCODE_CHECK_SIGNATURE_STATE = 1
	_ENCODE_READ_CHUNK            = 2
	_ENCODE_FINISHED              = 3
)

// ChameleonEncoder the Chameleon kernel encoder
type ChameleonEncoder struct {
	table     []uint32
	signature uint64
	slot      []byte // reserved signature bytes, nil if no group is open
	shift     uint
	process   int
	hits      uint64
	literals  uint64
}

// NewChameleonEncoder creates a new instance of ChameleonEncoder
func NewChameleonEncoder() *ChameleonEncoder {
	this := &ChameleonEncoder{}
	this.table = make([]uint32, CHAMELEON_TABLE_SIZE)
	this.process = _ENCODE_PREPARE_NEW_BLOCK
	return this
}

// Prepare starts a new block
func (this *ChameleonEncoder) Prepare() {
	this.process = _ENCODE_PREPARE_NEW_BLOCK
}

// Hits returns the number of chunks predicted by the table so far
func (this *ChameleonEncoder) Hits() uint64 {
	return this.hits
}

// Literals returns the number of chunks emitted as literals so far
func (this *ChameleonEncoder) Literals() uint64 {
	return this.literals
}

// Encode runs the kernel until input is exhausted, the block is full or,
// if flush is set, the trailing bytes have been stored.
func (this *ChameleonEncoder) Encode(in *memory.Teleport, out *memory.View, flush bool) (chameleon.Status, error) {
	for {
		switch this.process {
		case _ENCODE_PREPARE_NEW_BLOCK:
			this.slot = nil
			this.signature = 0
			this.shift = 0
			this.process = _ENCODE_CHECK_SIGNATURE_STATE

		case _ENCODE_CHECK_SIGNATURE_STATE:
			if this.slot != nil && this.shift == SIGNATURE_WIDTH {
				this.closeSignature()
			}

			if this.slot == nil {
				// Only open a group when a chunk is there to fill it
				if in.Available() < CHUNK_SIZE {
					if flush == false {
						// Fails, staging the partial chunk out of the caller buffer
						in.Read(CHUNK_SIZE)
						return chameleon.STALL_ON_INPUT, nil
					}

					return this.finish(in, out)
				}

				if out.Remaining() < MAX_GROUP_SIZE {
					return chameleon.STALL_ON_OUTPUT, nil
				}

				this.slot = out.Reserve(SIGNATURE_SIZE)
				this.signature = 0
				this.shift = 0
			}

			this.process = _ENCODE_READ_CHUNK

		case _ENCODE_READ_CHUNK:
			chunk, ok := in.Read(CHUNK_SIZE)

			if ok == false {
				if flush == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				return this.finish(in, out)
			}

			this.encodeChunk(chunk, out)
			this.process = _ENCODE_CHECK_SIGNATURE_STATE

		case _ENCODE_FINISHED:
			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Invalid Chameleon encoder state: %d", this.process)
		}
	}
}

// Fewer than CHUNK_SIZE bytes remain and no more input will come: close
// the open group and store the trailing bytes as is.
func (this *ChameleonEncoder) finish(in *memory.Teleport, out *memory.View) (chameleon.Status, error) {
	if this.slot != nil {
		this.closeSignature()
	}

	remaining := in.Available()

	if out.Remaining() < remaining {
		this.process = _ENCODE_CHECK_SIGNATURE_STATE
		return chameleon.STALL_ON_OUTPUT, nil
	}

	in.CopyTo(out, remaining)
	this.process = _ENCODE_FINISHED
	return chameleon.READY, nil
}

func (this *ChameleonEncoder) encodeChunk(chunk []byte, out *memory.View) {
	value := binary.LittleEndian.Uint32(chunk)
	h := chameleonHash(value)

	if this.table[h] == value {
		this.signature |= uint64(1) << this.shift
		binary.LittleEndian.PutUint16(out.Reserve(HASH_SIZE), h)
		this.hits++
	} else {
		out.Write(chunk)
		this.table[h] = value
		this.literals++
	}

	this.shift++
}

func (this *ChameleonEncoder) closeSignature() {
	binary.LittleEndian.PutUint64(this.slot, this.signature)
	this.slot = nil
}

func (this *ChameleonEncoder) sealed() {}

// Decoder resumption points
const (
	_DECODE_PREPARE_NEW_BLOCK     = 0
	_DECODE_CHECK_SIGNATURE_STATE = 1
	_DECODE_READ_CHUNK            = 2
	_DECODE_READ_TAIL             = 3
	_DECODE_FINISHED              = 4
)

// ChameleonDecoder the Chameleon kernel decoder. Its table receives the
// same updates, in the same order, as the encoder table.
type ChameleonDecoder struct {
	table     []uint32
	signature uint64
	shift     uint
	chunks    int
	tail      int
	process   int
}

// NewChameleonDecoder creates a new instance of ChameleonDecoder
func NewChameleonDecoder() *ChameleonDecoder {
	this := &ChameleonDecoder{}
	this.table = make([]uint32, CHAMELEON_TABLE_SIZE)
	this.process = _DECODE_FINISHED
	return this
}

// Prepare starts a block that decodes to decodedLength bytes
func (this *ChameleonDecoder) Prepare(decodedLength int) {
	this.chunks = decodedLength / CHUNK_SIZE
	this.tail = decodedLength & (CHUNK_SIZE - 1)
	this.process = _DECODE_PREPARE_NEW_BLOCK
}

// Decode runs the kernel until input is exhausted, output is full or the
// block has been fully decoded.
func (this *ChameleonDecoder) Decode(in *memory.Teleport, out *memory.View) (chameleon.Status, error) {
	for {
		switch this.process {
		case _DECODE_PREPARE_NEW_BLOCK:
			this.shift = SIGNATURE_WIDTH
			this.process = _DECODE_CHECK_SIGNATURE_STATE

		case _DECODE_CHECK_SIGNATURE_STATE:
			if this.chunks == 0 {
				this.process = _DECODE_READ_TAIL
				continue
			}

			if this.shift == SIGNATURE_WIDTH {
				b, ok := in.Read(SIGNATURE_SIZE)

				if ok == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				this.signature = binary.LittleEndian.Uint64(b)
				this.shift = 0

				// Flags past the last chunk of the block must be clear
				if this.chunks < SIGNATURE_WIDTH && this.signature>>uint(this.chunks) != 0 {
					return chameleon.ERROR, chameleon.NewError("Invalid signature: flags set past the end of the block",
						chameleon.ERR_MALFORMED_BLOCK)
				}
			}

			this.process = _DECODE_READ_CHUNK

		case _DECODE_READ_CHUNK:
			if out.Remaining() < CHUNK_SIZE {
				return chameleon.STALL_ON_OUTPUT, nil
			}

			if (this.signature>>this.shift)&1 == 1 {
				b, ok := in.Read(HASH_SIZE)

				if ok == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				value := this.table[binary.LittleEndian.Uint16(b)]
				binary.LittleEndian.PutUint32(out.Reserve(CHUNK_SIZE), value)
			} else {
				b, ok := in.Read(CHUNK_SIZE)

				if ok == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				value := binary.LittleEndian.Uint32(b)
				this.table[chameleonHash(value)] = value
				out.Write(b)
			}

			this.shift++
			this.chunks--
			this.process = _DECODE_CHECK_SIGNATURE_STATE

		case _DECODE_READ_TAIL:
			if this.tail > 0 {
				if out.Remaining() < this.tail {
					return chameleon.STALL_ON_OUTPUT, nil
				}

				b, ok := in.Read(this.tail)

				if ok == false {
					return chameleon.STALL_ON_INPUT, nil
				}

				out.Write(b)
				this.tail = 0
			}

			this.process = _DECODE_FINISHED

		case _DECODE_FINISHED:
			return chameleon.READY, nil

		default:
			return chameleon.ERROR, chameleon.Errorf(chameleon.ERR_INVALID_STATE,
				"Invalid Chameleon decoder state: %d", this.process)
		}
	}
}

func (this *ChameleonDecoder) sealed() {}
