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
	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/memory"
)

// CopyEncoder stores input bytes unmodified
type CopyEncoder struct {
}

// NewCopyEncoder creates a new instance of CopyEncoder
func NewCopyEncoder() *CopyEncoder {
	return &CopyEncoder{}
}

// Prepare does nothing, there is no per block state
func (this *CopyEncoder) Prepare() {
}

// Encode moves as many bytes as possible from in to out
func (this *CopyEncoder) Encode(in *memory.Teleport, out *memory.View, flush bool) (chameleon.Status, error) {
	for {
		if in.Available() == 0 {
			if flush == true {
				return chameleon.READY, nil
			}

			return chameleon.STALL_ON_INPUT, nil
		}

		if out.Remaining() == 0 {
			return chameleon.STALL_ON_OUTPUT, nil
		}

		in.CopyTo(out, out.Remaining())
	}
}

func (this *CopyEncoder) sealed() {}

// CopyDecoder restores bytes stored by CopyEncoder
type CopyDecoder struct {
	remaining int
}

// NewCopyDecoder creates a new instance of CopyDecoder
func NewCopyDecoder() *CopyDecoder {
	return &CopyDecoder{}
}

// Prepare starts a block of decodedLength bytes
func (this *CopyDecoder) Prepare(decodedLength int) {
	this.remaining = decodedLength
}

// Decode moves up to the remaining block bytes from in to out
func (this *CopyDecoder) Decode(in *memory.Teleport, out *memory.View) (chameleon.Status, error) {
	for this.remaining > 0 {
		if out.Remaining() == 0 {
			return chameleon.STALL_ON_OUTPUT, nil
		}

		if in.Available() == 0 {
			return chameleon.STALL_ON_INPUT, nil
		}

		this.remaining -= in.CopyTo(out, this.remaining)
	}

	return chameleon.READY, nil
}

func (this *CopyDecoder) sealed() {}
