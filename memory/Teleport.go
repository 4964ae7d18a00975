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

package memory

import (
	"io"
)

// MAX_UNIT_SIZE is the largest unit that can be requested from a Teleport
const MAX_UNIT_SIZE = 16

// Teleport reads fixed size units from input that is supplied one caller
// buffer at a time. A unit straddling two buffers is staged in a small
// scratch region and assembled once; units fully inside a caller buffer are
// returned without copy.
//
// Every byte handed out by Read or CopyTo is reported once, in stream
// order, to the observer if one is set.
type Teleport struct {
	in       *View
	scratch  [MAX_UNIT_SIZE]byte
	staged   int
	observer io.Writer
}

// NewTeleport creates a Teleport with no input bound
func NewTeleport() *Teleport {
	return &Teleport{in: NewView(nil)}
}

// Bind attaches the caller buffer for the current call
func (this *Teleport) Bind(in *View) {
	if in == nil {
		in = NewView(nil)
	}

	this.in = in
}

// SetObserver sets the writer notified of every byte handed out
func (this *Teleport) SetObserver(w io.Writer) {
	this.observer = w
}

// Available returns the number of staged bytes plus the bytes remaining in
// the bound caller buffer
func (this *Teleport) Available() int {
	return this.staged + this.in.Remaining()
}

// Staged returns the number of bytes waiting in the scratch region
func (this *Teleport) Staged() int {
	return this.staged
}

// Read returns n contiguous bytes, or false if they are not available yet.
// In the latter case all available bytes are staged so that the caller
// buffer can be discarded. The returned slice is only valid until the next
// call. n must be in [1..MAX_UNIT_SIZE] and must not change between a
// failed Read and its retry.
func (this *Teleport) Read(n int) ([]byte, bool) {
	if this.staged == 0 {
		if b := this.in.Take(n); b != nil {
			this.notify(b)
			return b, true
		}
	} else if this.staged+this.in.Remaining() >= n {
		copy(this.scratch[this.staged:n], this.in.Take(n-this.staged))
		this.staged = 0
		this.notify(this.scratch[:n])
		return this.scratch[:n], true
	}

	this.staged += copy(this.scratch[this.staged:n], this.in.Take(this.in.Remaining()))
	return nil, false
}

// CopyTo moves at most max bytes (staged first, then from the caller buffer)
// into out. Returns the number of bytes moved.
func (this *Teleport) CopyTo(out *View, max int) int {
	if max > out.Remaining() {
		max = out.Remaining()
	}

	n := 0

	if this.staged > 0 && max > 0 {
		k := this.staged

		if k > max {
			k = max
		}

		out.Write(this.scratch[:k])
		this.notify(this.scratch[:k])
		copy(this.scratch[:], this.scratch[k:this.staged])
		this.staged -= k
		n += k
	}

	if k := max - n; k > 0 {
		if k > this.in.Remaining() {
			k = this.in.Remaining()
		}

		b := this.in.Take(k)
		out.Write(b)
		this.notify(b)
		n += k
	}

	return n
}

func (this *Teleport) notify(b []byte) {
	if this.observer != nil && len(b) > 0 {
		this.observer.Write(b)
	}
}
