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

package stream

import (
	"bytes"
	"math/rand"
	"sync"
	"testing"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/memory"
	"github.com/stretchr/testify/require"
)

// splitter returns the size of the next fragment
type splitter func() int

func unlimited() int {
	return 1 << 30
}

func randomSplit(rng *rand.Rand, min, max int) splitter {
	return func() int {
		return min + rng.Intn(max-min+1)
	}
}

type fragments struct {
	data  []byte
	next  splitter
	view  *memory.View
	empty bool
}

func newFragments(data []byte, next splitter) *fragments {
	return &fragments{data: data, next: next, view: memory.NewView(nil)}
}

// current returns the view to pass to the session, refilled when consumed,
// and whether it is the last one
func (this *fragments) current() (*memory.View, bool) {
	if this.view.Remaining() == 0 && len(this.data) > 0 {
		n := this.next()

		if n > len(this.data) {
			n = len(this.data)
		}

		this.view = memory.NewView(this.data[:n])
		this.data = this.data[n:]
	}

	return this.view, len(this.data) == 0
}

func encode(t *testing.T, src []byte, mode chameleon.CompressionMode, bt chameleon.BlockType, inSplit, outSplit splitter) []byte {
	enc, err := NewEncoder(mode, bt)
	require.NoError(t, err)
	input := newFragments(src, inSplit)
	var res bytes.Buffer
	buf := make([]byte, 1<<17)

	for {
		in, last := input.current()
		n := outSplit()

		if n > len(buf) {
			n = len(buf)
		}

		out := memory.NewView(buf[:n])
		status, err := enc.Process(in, out, last)
		require.NoError(t, err)
		res.Write(out.Bytes())

		if status == chameleon.READY {
			break
		}

		if status == chameleon.STALL_ON_INPUT {
			require.Equal(t, 0, in.Remaining())
			require.False(t, last)
		}
	}

	for {
		n := outSplit()

		if n > len(buf) {
			n = len(buf)
		}

		out := memory.NewView(buf[:n])
		status, err := enc.Finish(out)
		require.NoError(t, err)
		res.Write(out.Bytes())

		if status == chameleon.READY {
			break
		}

		require.Equal(t, chameleon.STALL_ON_OUTPUT, status)
	}

	require.Equal(t, uint64(len(src)), enc.TotalRead())
	require.Equal(t, uint64(res.Len()), enc.TotalWritten())
	return res.Bytes()
}

func decode(data []byte, inSplit, outSplit splitter) ([]byte, *Decoder, error) {
	dec := NewDecoder()
	input := newFragments(data, inSplit)
	var res bytes.Buffer
	buf := make([]byte, 1<<17)

	for {
		in, last := input.current()
		n := outSplit()

		if n > len(buf) {
			n = len(buf)
		}

		out := memory.NewView(buf[:n])
		status, err := dec.Process(in, out, last)
		res.Write(out.Bytes())

		if err != nil {
			return res.Bytes(), dec, err
		}

		if status == chameleon.READY {
			break
		}
	}

	for {
		in, last := input.current()
		status, err := dec.Finish(in, last)

		if err != nil {
			return res.Bytes(), dec, err
		}

		if status == chameleon.READY {
			break
		}
	}

	return res.Bytes(), dec, nil
}

func testInput(rng *rand.Rand, length int) []byte {
	res := make([]byte, length)

	for i := range res {
		// Mix of repetitive and random regions
		if (i>>12)&1 == 0 {
			res[i] = byte(rng.Intn(4))
		} else {
			res[i] = byte(rng.Intn(256))
		}
	}

	return res
}

var (
	allModes      = []chameleon.CompressionMode{chameleon.MODE_COPY, chameleon.MODE_CHAMELEON}
	allBlockTypes = []chameleon.BlockType{chameleon.BLOCK_DEFAULT, chameleon.BLOCK_CHECKSUM}
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, length := range []int{0, 1, 3, 4, 5, 255, 256, 257, 1000, 65536, 200000, 300001} {
		src := testInput(rng, length)

		for _, mode := range allModes {
			for _, bt := range allBlockTypes {
				encoded := encode(t, src, mode, bt, unlimited, unlimited)
				decoded, dec, err := decode(encoded, unlimited, unlimited)
				require.NoError(t, err, "length=%d mode=%v type=%v", length, mode, bt)
				require.Len(t, decoded, len(src))
				require.True(t, bytes.Equal(src, decoded), "length=%d mode=%v type=%v", length, mode, bt)
				require.Equal(t, uint64(len(encoded)), dec.TotalRead())
				require.Equal(t, uint64(len(src)), dec.TotalWritten())
				require.Equal(t, uint64(len(src)), dec.Footer().Length)
				require.Equal(t, mode, dec.Header().Mode)
				require.Equal(t, bt, dec.Header().BlockType)
				require.True(t, dec.Finished())
			}
		}
	}
}

func TestMultipleBlocks(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	src := make([]byte, 3*chameleon.BLOCK_PAYLOAD_SIZE+100)
	rng.Read(src)
	enc, err := NewEncoder(chameleon.MODE_CHAMELEON, chameleon.BLOCK_CHECKSUM)
	require.NoError(t, err)
	out := memory.NewView(make([]byte, 2*len(src)))
	status, err := enc.Process(memory.NewView(src), out, true)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	status, err = enc.Finish(out)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	// Random data does not compress: the payload limit splits it
	require.GreaterOrEqual(t, enc.Blocks(), 4)

	decoded, dec, err := decode(out.Bytes(), unlimited, unlimited)
	require.NoError(t, err)
	require.Equal(t, src, decoded)
	require.Equal(t, enc.Blocks(), dec.Blocks())
}

func TestFragmentationInvariance(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	for _, length := range []int{0, 2, 17, 1023, 70000, 140003} {
		src := testInput(rng, length)

		for _, mode := range allModes {
			for _, bt := range allBlockTypes {
				expected := encode(t, src, mode, bt, unlimited, unlimited)

				for test := 0; test < 4; test++ {
					inMax := 1 + rng.Intn(300)
					outMax := 1 + rng.Intn(300)
					encoded := encode(t, src, mode, bt, randomSplit(rng, 1, inMax), randomSplit(rng, 1, outMax))
					require.Equal(t, expected, encoded, "length=%d mode=%v type=%v", length, mode, bt)

					// Decoding needs room for one chunk per call
					decoded, _, err := decode(encoded, randomSplit(rng, 1, inMax), randomSplit(rng, 4, 4+outMax))
					require.NoError(t, err)
					require.Len(t, decoded, len(src))
					require.True(t, bytes.Equal(src, decoded), "length=%d mode=%v type=%v", length, mode, bt)
				}
			}
		}
	}
}

func TestByteByByte(t *testing.T) {
	src := testInput(rand.New(rand.NewSource(4)), 5000)
	enc, err := NewEncoder(chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT)
	require.NoError(t, err)
	out := memory.NewView(make([]byte, 2*len(src)+100))

	for i := range src {
		status, err := enc.Process(memory.NewView(src[i:i+1]), out, false)
		require.NoError(t, err)
		require.Equal(t, chameleon.STALL_ON_INPUT, status)
	}

	status, err := enc.Process(nil, out, true)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	status, err = enc.Finish(out)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	encoded := out.Bytes()

	dec := NewDecoder()
	res := memory.NewView(make([]byte, len(src)))
	i := 0

	for ; i < len(encoded); i++ {
		status, err = dec.Process(memory.NewView(encoded[i:i+1]), res, false)
		require.NoError(t, err)

		if status == chameleon.READY {
			break
		}

		require.Equal(t, chameleon.STALL_ON_INPUT, status)
	}

	require.Equal(t, chameleon.READY, status)
	require.Equal(t, src, res.Bytes())
	i++

	for ; i < len(encoded); i++ {
		status, err = dec.Finish(memory.NewView(encoded[i:i+1]), false)
		require.NoError(t, err)
	}

	require.Equal(t, chameleon.READY, status)
	require.True(t, dec.Finished())
}

func TestPartialChunkAcrossCalls(t *testing.T) {
	for _, mode := range allModes {
		enc, err := NewEncoder(mode, chameleon.BLOCK_CHECKSUM)
		require.NoError(t, err)
		out := memory.NewView(make([]byte, 256))
		first := memory.NewView([]byte{1, 2})
		status, err := enc.Process(first, out, false)
		require.NoError(t, err)
		require.Equal(t, chameleon.STALL_ON_INPUT, status)
		require.Equal(t, 0, first.Remaining())
		require.Equal(t, uint64(2), enc.TotalRead())

		status, err = enc.Process(memory.NewView([]byte{3, 4, 5, 6}), out, true)
		require.NoError(t, err)
		require.Equal(t, chameleon.READY, status)
		status, err = enc.Finish(out)
		require.NoError(t, err)
		require.Equal(t, chameleon.READY, status)

		decoded, _, err := decode(out.Bytes(), unlimited, unlimited)
		require.NoError(t, err)
		require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, decoded, "mode=%v", mode)
	}
}

func TestDataAfterFooter(t *testing.T) {
	src := testInput(rand.New(rand.NewSource(8)), 100)
	encoded := encode(t, src, chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	dec := NewDecoder()
	in := memory.NewView(append(append([]byte{}, encoded...), 0xAA, 0xBB, 0xCC))
	out := memory.NewView(make([]byte, len(src)))
	status, err := dec.Process(in, out, false)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	status, err = dec.Finish(in, true)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	require.Equal(t, 3, in.Remaining())
	require.Equal(t, uint64(len(encoded)), dec.TotalRead())
}

func TestDecoderOutputRoom(t *testing.T) {
	src := bytes.Repeat([]byte("room"), 50)
	encoded := encode(t, src, chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	dec := NewDecoder()
	in := memory.NewView(encoded)

	// Less than one chunk of room: no progress
	for i := 0; i < 10; i++ {
		out := memory.NewView(make([]byte, 3))
		status, err := dec.Process(in, out, false)
		require.NoError(t, err)
		require.Equal(t, chameleon.STALL_ON_OUTPUT, status)
		require.Equal(t, 0, out.Position())
	}

	var res bytes.Buffer
	status := chameleon.STALL_ON_OUTPUT

	for status != chameleon.READY {
		out := memory.NewView(make([]byte, 4))
		var err error
		status, err = dec.Process(in, out, false)
		require.NoError(t, err)
		res.Write(out.Bytes())
	}

	require.Equal(t, src, res.Bytes())
}

func TestRepeatedChunks(t *testing.T) {
	src := bytes.Repeat([]byte("AAAA"), 10)
	encoded := encode(t, src, chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	payload := len(encoded) - chameleon.HEADER_SIZE - chameleon.BLOCK_HEADER_SIZE - chameleon.FOOTER_SIZE
	require.Less(t, payload, len(src))
	// Signature, one literal, nine 2 byte references
	require.Equal(t, 8+4+9*2, payload)

	decoded, _, err := decode(encoded, unlimited, unlimited)
	require.NoError(t, err)
	require.Equal(t, src, decoded)
}

func TestEmptyInput(t *testing.T) {
	for _, mode := range allModes {
		encoded := encode(t, nil, mode, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
		require.Len(t, encoded, chameleon.HEADER_SIZE+chameleon.BLOCK_HEADER_SIZE+chameleon.FOOTER_SIZE)
		require.Equal(t, []byte{chameleon.BLOCK_LAST_FLAG, 0, 0, 0, 0},
			encoded[chameleon.HEADER_SIZE:chameleon.HEADER_SIZE+chameleon.BLOCK_HEADER_SIZE])

		decoded, _, err := decode(encoded, unlimited, unlimited)
		require.NoError(t, err)
		require.Empty(t, decoded)
	}
}

func TestUnsupportedMode(t *testing.T) {
	_, err := NewEncoder(chameleon.MODE_RESERVED, chameleon.BLOCK_DEFAULT)
	require.Equal(t, chameleon.ERR_UNSUPPORTED_MODE, chameleon.ErrorCode(err))

	header := NewHeader(chameleon.MODE_RESERVED, chameleon.BLOCK_DEFAULT).Bytes()
	dec := NewDecoder()
	status, err := dec.Init(memory.NewView(header), false)
	require.Equal(t, chameleon.ERROR, status)
	require.Equal(t, chameleon.ERR_UNSUPPORTED_MODE, chameleon.ErrorCode(err))

	// Errors are terminal
	status, err = dec.Process(memory.NewView(header), memory.NewView(make([]byte, 16)), true)
	require.Equal(t, chameleon.ERROR, status)
	require.Equal(t, chameleon.ERR_UNSUPPORTED_MODE, chameleon.ErrorCode(err))
}

func TestMalformedHeader(t *testing.T) {
	good := NewHeader(chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT).Bytes()

	dec := NewDecoder()
	status, err := dec.Init(memory.NewView(good[:7]), false)
	require.NoError(t, err)
	require.Equal(t, chameleon.STALL_ON_INPUT, status)
	status, err = dec.Init(memory.NewView(good[7:]), false)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	require.Equal(t, chameleon.MODE_CHAMELEON, dec.Header().Mode)

	_, err = NewDecoder().Process(memory.NewView(good[:5]), memory.NewView(nil), true)
	require.Equal(t, chameleon.ERR_MALFORMED_HEADER, chameleon.ErrorCode(err))

	bad := append([]byte{}, good...)
	bad[0] = 'X'
	_, err = NewDecoder().Init(memory.NewView(bad), true)
	require.Equal(t, chameleon.ERR_MALFORMED_HEADER, chameleon.ErrorCode(err))

	bad = append([]byte{}, good...)
	bad[4] = chameleon.FORMAT_MAJOR_VERSION + 1
	_, err = NewDecoder().Init(memory.NewView(bad), true)
	require.Equal(t, chameleon.ERR_MALFORMED_HEADER, chameleon.ErrorCode(err))

	bad = append([]byte{}, good...)
	bad[8] = 9
	_, err = NewDecoder().Init(memory.NewView(bad), true)
	require.Equal(t, chameleon.ERR_MALFORMED_HEADER, chameleon.ErrorCode(err))
}

func TestFinishBeforeReady(t *testing.T) {
	enc, err := NewEncoder(chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT)
	require.NoError(t, err)
	out := memory.NewView(make([]byte, 1024))
	status, err := enc.Process(memory.NewView([]byte("abcdefgh")), out, false)
	require.NoError(t, err)
	require.Equal(t, chameleon.STALL_ON_INPUT, status)
	status, err = enc.Finish(out)
	require.Equal(t, chameleon.ERROR, status)
	require.Equal(t, chameleon.ERR_INVALID_STATE, chameleon.ErrorCode(err))

	encoded := encode(t, []byte("abcdefgh"), chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	dec := NewDecoder()
	status, err = dec.Process(memory.NewView(encoded[:20]), memory.NewView(make([]byte, 64)), false)
	require.NoError(t, err)
	require.Equal(t, chameleon.STALL_ON_INPUT, status)
	status, err = dec.Finish(memory.NewView(encoded[20:]), true)
	require.Equal(t, chameleon.ERROR, status)
	require.Equal(t, chameleon.ERR_INVALID_STATE, chameleon.ErrorCode(err))
}

func TestInputAfterEnd(t *testing.T) {
	enc, err := NewEncoder(chameleon.MODE_COPY, chameleon.BLOCK_DEFAULT)
	require.NoError(t, err)
	out := memory.NewView(make([]byte, 1024))
	status, err := enc.Process(memory.NewView([]byte("abc")), out, true)
	require.NoError(t, err)
	require.Equal(t, chameleon.READY, status)
	status, err = enc.Process(memory.NewView([]byte("def")), out, true)
	require.Equal(t, chameleon.ERROR, status)
	require.Equal(t, chameleon.ERR_INVALID_STATE, chameleon.ErrorCode(err))
}

func TestTruncatedStream(t *testing.T) {
	src := testInput(rand.New(rand.NewSource(5)), 1000)

	for _, mode := range allModes {
		encoded := encode(t, src, mode, chameleon.BLOCK_CHECKSUM, unlimited, unlimited)

		// Cut inside the block
		_, _, err := decode(encoded[:len(encoded)-chameleon.FOOTER_SIZE-10], unlimited, unlimited)
		require.Equal(t, chameleon.ERR_TRUNCATED_STREAM, chameleon.ErrorCode(err))

		// Cut inside the footer
		decoded, _, err := decode(encoded[:len(encoded)-5], unlimited, unlimited)
		require.Equal(t, chameleon.ERR_TRUNCATED_STREAM, chameleon.ErrorCode(err))
		require.Equal(t, src, decoded)
	}
}

func TestCorruptedData(t *testing.T) {
	src := testInput(rand.New(rand.NewSource(6)), 1000)
	// Copy payload starts right after the block header
	at := chameleon.HEADER_SIZE + chameleon.BLOCK_HEADER_SIZE + 100

	encoded := encode(t, src, chameleon.MODE_COPY, chameleon.BLOCK_CHECKSUM, unlimited, unlimited)
	encoded[at] ^= 0x55
	_, _, err := decode(encoded, unlimited, unlimited)
	require.Equal(t, chameleon.ERR_CRC_CHECK, chameleon.ErrorCode(err))

	// Without block checksums, the footer catches it
	encoded = encode(t, src, chameleon.MODE_COPY, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	encoded[at] ^= 0x55
	decoded, dec, err := decode(encoded, unlimited, unlimited)
	require.Equal(t, chameleon.ERR_CRC_CHECK, chameleon.ErrorCode(err))
	require.NotEqual(t, src, decoded)
	require.False(t, dec.Finished())

	// Invalid block flags
	encoded = encode(t, src, chameleon.MODE_CHAMELEON, chameleon.BLOCK_DEFAULT, unlimited, unlimited)
	encoded[chameleon.HEADER_SIZE] = 0x80
	_, _, err = decode(encoded, unlimited, unlimited)
	require.Equal(t, chameleon.ERR_MALFORMED_BLOCK, chameleon.ErrorCode(err))
}

func TestConcurrentSessions(t *testing.T) {
	var wg sync.WaitGroup
	errs := make([]error, 8)
	results := make([]bool, 8)

	for i := range errs {
		wg.Add(1)

		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(100 + id)))
			src := testInput(rng, 50000+id*1000)
			enc, err := NewEncoder(chameleon.MODE_CHAMELEON, chameleon.BLOCK_CHECKSUM)

			if err != nil {
				errs[id] = err
				return
			}

			out := memory.NewView(make([]byte, 2*len(src)+1024))

			if _, err = enc.Process(memory.NewView(src), out, true); err != nil {
				errs[id] = err
				return
			}

			if _, err = enc.Finish(out); err != nil {
				errs[id] = err
				return
			}

			dec := NewDecoder()
			res := memory.NewView(make([]byte, len(src)))
			in := memory.NewView(out.Bytes())

			if _, err = dec.Process(in, res, true); err != nil {
				errs[id] = err
				return
			}

			_, errs[id] = dec.Finish(in, true)
			results[id] = bytes.Equal(src, res.Bytes())
		}(i)
	}

	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		require.True(t, results[i])
	}
}
