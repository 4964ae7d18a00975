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

// Package hash provides the 64 bit checksum used in block trailers and in
// the stream footer.
package hash

import (
	"encoding/binary"
	"math/bits"
)

// XXHash64 is an extremely fast hash algorithm. It was written by Yann Collet.
// Port to Go from the original source code: https://github.com/Cyan4973/xxHash
//
// This version is streaming: data can be written in pieces of any size and
// the digest is the same as for a single write of the concatenated data.

const (
	_XXHASH_PRIME64_1 = uint64(0x9E3779B185EBCA87)
	_XXHASH_PRIME64_2 = uint64(0xC2B2AE3D27D4EB4F)
	_XXHASH_PRIME64_3 = uint64(0x165667B19E3779F9)
	_XXHASH_PRIME64_4 = uint64(0x85EBCA77C2B2AE63)
	_XXHASH_PRIME64_5 = uint64(0x27D4EB2F165667C5)
	_XXHASH_STRIPE    = 32
)

// XXHash64 streaming hash state
type XXHash64 struct {
	seed  uint64
	v1    uint64
	v2    uint64
	v3    uint64
	v4    uint64
	total uint64
	mem   [_XXHASH_STRIPE]byte
	size  int
}

// NewXXHash64 creates a new instance of XXHash64
func NewXXHash64(seed uint64) *XXHash64 {
	this := &XXHash64{}
	this.SetSeed(seed)
	return this
}

// SetSeed sets the hash seed and resets the state
func (this *XXHash64) SetSeed(seed uint64) {
	this.seed = seed
	this.Reset()
}

// Reset discards all data written so far
func (this *XXHash64) Reset() {
	this.v1 = this.seed + _XXHASH_PRIME64_1 + _XXHASH_PRIME64_2
	this.v2 = this.seed + _XXHASH_PRIME64_2
	this.v3 = this.seed
	this.v4 = this.seed - _XXHASH_PRIME64_1
	this.total = 0
	this.size = 0
}

// Written returns the number of bytes hashed since the last reset
func (this *XXHash64) Written() uint64 {
	return this.total
}

// Write adds data to the running hash. It never fails.
func (this *XXHash64) Write(data []byte) (int, error) {
	n := len(data)
	this.total += uint64(n)

	if this.size+n < _XXHASH_STRIPE {
		this.size += copy(this.mem[this.size:], data)
		return n, nil
	}

	if this.size > 0 {
		k := copy(this.mem[this.size:], data)
		this.stripe(this.mem[:])
		data = data[k:]
		this.size = 0
	}

	for len(data) >= _XXHASH_STRIPE {
		this.stripe(data[:_XXHASH_STRIPE])
		data = data[_XXHASH_STRIPE:]
	}

	this.size = copy(this.mem[:], data)
	return n, nil
}

func (this *XXHash64) stripe(buf []byte) {
	this.v1 = xxHash64Round(this.v1, binary.LittleEndian.Uint64(buf[0:8]))
	this.v2 = xxHash64Round(this.v2, binary.LittleEndian.Uint64(buf[8:16]))
	this.v3 = xxHash64Round(this.v3, binary.LittleEndian.Uint64(buf[16:24]))
	this.v4 = xxHash64Round(this.v4, binary.LittleEndian.Uint64(buf[24:32]))
}

// Sum64 returns the hash of all data written since the last reset.
// The state is not modified.
func (this *XXHash64) Sum64() uint64 {
	var h64 uint64

	if this.total >= _XXHASH_STRIPE {
		h64 = bits.RotateLeft64(this.v1, 1) + bits.RotateLeft64(this.v2, 7) +
			bits.RotateLeft64(this.v3, 12) + bits.RotateLeft64(this.v4, 18)
		h64 = xxHash64MergeRound(h64, this.v1)
		h64 = xxHash64MergeRound(h64, this.v2)
		h64 = xxHash64MergeRound(h64, this.v3)
		h64 = xxHash64MergeRound(h64, this.v4)
	} else {
		h64 = this.seed + _XXHASH_PRIME64_5
	}

	h64 += this.total
	data := this.mem[:this.size]
	n := 0

	for n+8 <= len(data) {
		h64 ^= xxHash64Round(0, binary.LittleEndian.Uint64(data[n:n+8]))
		h64 = bits.RotateLeft64(h64, 27)*_XXHASH_PRIME64_1 + _XXHASH_PRIME64_4
		n += 8
	}

	for n+4 <= len(data) {
		h64 ^= uint64(binary.LittleEndian.Uint32(data[n:n+4])) * _XXHASH_PRIME64_1
		h64 = bits.RotateLeft64(h64, 23)*_XXHASH_PRIME64_2 + _XXHASH_PRIME64_3
		n += 4
	}

	for n < len(data) {
		h64 ^= uint64(data[n]) * _XXHASH_PRIME64_5
		h64 = bits.RotateLeft64(h64, 11) * _XXHASH_PRIME64_1
		n++
	}

	h64 ^= h64 >> 33
	h64 *= _XXHASH_PRIME64_2
	h64 ^= h64 >> 29
	h64 *= _XXHASH_PRIME64_3
	return h64 ^ (h64 >> 32)
}

// Hash returns the hash of data with the current seed. The streaming
// state is left untouched.
func (this *XXHash64) Hash(data []byte) uint64 {
	h := NewXXHash64(this.seed)
	h.Write(data)
	return h.Sum64()
}

func xxHash64Round(acc, val uint64) uint64 {
	acc += val * _XXHASH_PRIME64_2
	return bits.RotateLeft64(acc, 31) * _XXHASH_PRIME64_1
}

func xxHash64MergeRound(acc, val uint64) uint64 {
	acc ^= xxHash64Round(0, val)
	return acc*_XXHASH_PRIME64_1 + _XXHASH_PRIME64_4
}
