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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestViewBounds(t *testing.T) {
	v := NewView(make([]byte, 6))
	require.Equal(t, 6, v.Remaining())
	require.Equal(t, 4, v.Write([]byte("abcd")))
	require.Equal(t, 2, v.Write([]byte("efgh")))
	require.Equal(t, 0, v.Remaining())
	require.Equal(t, []byte("abcdef"), v.Bytes())
	require.Nil(t, v.Take(1))
	require.Equal(t, 6, v.Position())

	v.Reset([]byte("0123456789"))
	require.Equal(t, []byte("012"), v.Take(3))
	require.Nil(t, v.Take(8))
	require.Equal(t, 3, v.Position())
	slot := v.Reserve(2)
	require.Len(t, slot, 2)
	require.Equal(t, []byte("34"), v.Since(3))
}

func TestViewReserveBackfill(t *testing.T) {
	buf := make([]byte, 8)
	v := NewView(buf)
	slot := v.Reserve(2)
	v.Write([]byte("xyz"))
	copy(slot, "ab")
	require.Equal(t, []byte("abxyz"), v.Bytes())
}

func TestTeleportNoCopy(t *testing.T) {
	tp := NewTeleport()
	src := []byte("abcdefgh")
	tp.Bind(NewView(src))
	b, ok := tp.Read(4)
	require.True(t, ok)
	require.Equal(t, []byte("abcd"), b)
	// Unit returned in place
	require.Same(t, &src[0], &b[0])
}

func TestTeleportStraddle(t *testing.T) {
	tp := NewTeleport()
	var seen bytes.Buffer
	tp.SetObserver(&seen)

	tp.Bind(NewView([]byte("ab")))
	_, ok := tp.Read(4)
	require.False(t, ok)
	require.Equal(t, 2, tp.Staged())
	require.Equal(t, 2, tp.Available())
	require.Equal(t, 0, seen.Len())

	tp.Bind(NewView([]byte("c")))
	_, ok = tp.Read(4)
	require.False(t, ok)
	require.Equal(t, 3, tp.Staged())

	in := NewView([]byte("defg"))
	tp.Bind(in)
	b, ok := tp.Read(4)
	require.True(t, ok)
	require.Equal(t, []byte("abcd"), b)
	require.Equal(t, 0, tp.Staged())
	require.Equal(t, 1, in.Position())

	b, ok = tp.Read(2)
	require.True(t, ok)
	require.Equal(t, []byte("ef"), b)
	require.Equal(t, "abcdef", seen.String())
}

func TestTeleportCopyTo(t *testing.T) {
	tp := NewTeleport()
	var seen bytes.Buffer
	tp.SetObserver(&seen)
	tp.Bind(NewView([]byte("xyz")))
	_, ok := tp.Read(8)
	require.False(t, ok)

	tp.Bind(NewView([]byte("0123456789")))
	out := NewView(make([]byte, 5))
	require.Equal(t, 2, tp.CopyTo(out, 2))
	require.Equal(t, 1, tp.Staged())
	require.Equal(t, 3, tp.CopyTo(out, 100))
	require.Equal(t, []byte("xyz01"), out.Bytes())
	require.Equal(t, 8, tp.Available())
	require.Equal(t, "xyz01", seen.String())
}

func TestTeleportByteByByte(t *testing.T) {
	src := []byte("The quick brown fox jumps over the lazy dog")
	tp := NewTeleport()
	var got []byte

	for i := range src {
		tp.Bind(NewView(src[i : i+1]))

		if b, ok := tp.Read(4); ok {
			got = append(got, b...)
		}
	}

	require.Equal(t, src[:len(src)&-4], got)
	require.Equal(t, len(src)&3, tp.Staged())
}
