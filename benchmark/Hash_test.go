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

package benchmark

import (
	"testing"

	"github.com/flanglet/chameleon-go/hash"
)

func BenchmarkXXHash64(b *testing.B) {
	buffer := make([]byte, 1024*1024)

	for i := range buffer {
		buffer[i] = byte(i * i)
	}

	h := hash.NewXXHash64(0)
	b.SetBytes(int64(len(buffer)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		h.SetSeed(uint64(i))
		h.Hash(buffer)
	}
}

// Small writes as done by the block layer for each chunk
func BenchmarkXXHash64Streaming(b *testing.B) {
	buffer := make([]byte, 1024*1024)

	for i := range buffer {
		buffer[i] = byte(i * i)
	}

	h := hash.NewXXHash64(0)
	expected := h.Hash(buffer)
	b.SetBytes(int64(len(buffer)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		h.Reset()

		for n := 0; n < len(buffer); n += 4 {
			h.Write(buffer[n : n+4])
		}

		if h.Sum64() != expected {
			b.Fatalf("Incorrect result for streaming XXHash64")
		}
	}
}
