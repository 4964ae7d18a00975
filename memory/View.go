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

// Package memory provides bounds checked views over caller owned byte
// regions and the bridge used to read fixed size units out of input that
// arrives in arbitrary fragments.
package memory

// View is a window over a borrowed byte region. Bytes before the position
// have been consumed (input) or produced (output). A View never reads or
// writes outside of [position, capacity).
type View struct {
	data []byte
	pos  int
}

// NewView creates a View starting at position 0 over buf
func NewView(buf []byte) *View {
	return &View{data: buf}
}

// Reset rebinds the view to a new region and rewinds it
func (this *View) Reset(buf []byte) {
	this.data = buf
	this.pos = 0
}

// Position returns the number of bytes consumed or produced so far
func (this *View) Position() int {
	return this.pos
}

// Capacity returns the size of the underlying region
func (this *View) Capacity() int {
	return len(this.data)
}

// Remaining returns the number of bytes between position and capacity
func (this *View) Remaining() int {
	return len(this.data) - this.pos
}

// Bytes returns the consumed (or produced) part of the region
func (this *View) Bytes() []byte {
	return this.data[:this.pos]
}

// Since returns the bytes between an earlier position and the current one
func (this *View) Since(off int) []byte {
	return this.data[off:this.pos]
}

// Take returns the next n bytes and advances the position.
// Returns nil if fewer than n bytes remain, the position is then unchanged.
func (this *View) Take(n int) []byte {
	if n < 0 || n > len(this.data)-this.pos {
		return nil
	}

	b := this.data[this.pos : this.pos+n : this.pos+n]
	this.pos += n
	return b
}

// Write copies as much of p as fits and returns the number of bytes copied
func (this *View) Write(p []byte) int {
	n := copy(this.data[this.pos:], p)
	this.pos += n
	return n
}

// Reserve skips n bytes and returns them so that they can be filled in
// later. Returns nil if fewer than n bytes remain.
func (this *View) Reserve(n int) []byte {
	return this.Take(n)
}
