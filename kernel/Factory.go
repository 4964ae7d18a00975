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

// Package kernel contains the compression kernels applied to block
// payloads. Kernels are resumable state machines: every call returns as
// soon as input runs out or output is full, and the next call resumes at
// the exact point where processing stopped.
package kernel

import (
	"fmt"
	"strings"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/memory"
)

// Encoder is a block payload encoder. The set of implementations is
// closed: CopyEncoder and ChameleonEncoder.
type Encoder interface {
	// Prepare starts a new block. Kernel memory (hash table) is kept.
	Prepare()

	// Encode consumes input from in and writes the block payload to out.
	// Returns STALL_ON_INPUT when more input is needed, STALL_ON_OUTPUT
	// when out cannot hold the next step (the block is full), READY when
	// flush is set and all input has been consumed.
	Encode(in *memory.Teleport, out *memory.View, flush bool) (chameleon.Status, error)

	sealed()
}

// Decoder is a block payload decoder. The set of implementations is
// closed: CopyDecoder and ChameleonDecoder.
type Decoder interface {
	// Prepare starts a new block that decodes to decodedLength bytes
	Prepare(decodedLength int)

	// Decode consumes the block payload from in and writes the decoded
	// bytes to out. Returns READY once decodedLength bytes have been written.
	Decode(in *memory.Teleport, out *memory.View) (chameleon.Status, error)

	sealed()
}

// NewEncoder creates the payload encoder for the given compression mode
func NewEncoder(mode chameleon.CompressionMode) (Encoder, error) {
	switch mode {
	case chameleon.MODE_COPY:
		return NewCopyEncoder(), nil

	case chameleon.MODE_CHAMELEON:
		return NewChameleonEncoder(), nil

	case chameleon.MODE_RESERVED:
		return nil, chameleon.NewError("Compression mode RESERVED is not implemented", chameleon.ERR_UNSUPPORTED_MODE)

	default:
		return nil, chameleon.Errorf(chameleon.ERR_UNSUPPORTED_MODE, "Unknown compression mode: %d", uint8(mode))
	}
}

// NewDecoder creates the payload decoder for the given compression mode
func NewDecoder(mode chameleon.CompressionMode) (Decoder, error) {
	switch mode {
	case chameleon.MODE_COPY:
		return NewCopyDecoder(), nil

	case chameleon.MODE_CHAMELEON:
		return NewChameleonDecoder(), nil

	case chameleon.MODE_RESERVED:
		return nil, chameleon.NewError("Compression mode RESERVED is not implemented", chameleon.ERR_UNSUPPORTED_MODE)

	default:
		return nil, chameleon.Errorf(chameleon.ERR_UNSUPPORTED_MODE, "Unknown compression mode: %d", uint8(mode))
	}
}

// GetType returns the compression mode with the given name
func GetType(name string) (chameleon.CompressionMode, error) {
	switch strings.ToUpper(name) {
	case "COPY", "NONE":
		return chameleon.MODE_COPY, nil

	case "CHAMELEON":
		return chameleon.MODE_CHAMELEON, nil

	default:
		return 0, fmt.Errorf("Unknown compression mode: '%s'", name)
	}
}

// GetName returns the name of the compression mode
func GetName(mode chameleon.CompressionMode) (string, error) {
	switch mode {
	case chameleon.MODE_COPY:
		return "COPY", nil

	case chameleon.MODE_CHAMELEON:
		return "CHAMELEON", nil

	default:
		return "", fmt.Errorf("Unknown compression mode: '%d'", uint8(mode))
	}
}
