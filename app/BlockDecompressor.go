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

package main

import (
	"errors"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	chameleon "github.com/flanglet/chameleon-go"
	cio "github.com/flanglet/chameleon-go/io"
)

// BlockDecompressor decompresses chameleon streams from files, directories
// or STDIN. Inputs are processed sequentially, one session per input.
type BlockDecompressor struct {
	opts      *Options
	listeners []chameleon.Listener
}

// NewBlockDecompressor creates a new instance of BlockDecompressor
func NewBlockDecompressor(opts *Options) (*BlockDecompressor, error) {
	if opts == nil {
		return nil, chameleon.NewError("Invalid null options parameter", chameleon.ERR_MISSING_PARAM)
	}

	this := &BlockDecompressor{}
	this.opts = opts
	this.listeners = make([]chameleon.Listener, 0)

	if opts.Verbosity > 2 {
		this.AddListener(NewInfoPrinter(logger))
	}

	return this, nil
}

// AddListener adds an event listener to this decompressor.
// Returns true if the listener has been added.
func (this *BlockDecompressor) AddListener(bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this decompressor.
// Returns true if the listener has been removed.
func (this *BlockDecompressor) RemoveListener(bl chameleon.Listener) bool {
	return removeListener(&this.listeners, bl)
}

// Decompress processes all inputs. Returns the exit code and the total
// number of bytes decoded.
func (this *BlockDecompressor) Decompress() (int, uint64) {
	before := time.Now()
	targets, code := resolveTargets(this.opts, _DECOMPRESSED_EXTENSION, true)

	if code != 0 {
		return code, 0
	}

	if len(targets) > 1 {
		logger.Info("Files to decompress", "count", len(targets))
	}

	read := uint64(0)
	decoded := uint64(0)

	for _, t := range targets {
		task := fileDecompressTask{
			inputName:  t.input,
			outputName: t.output,
			overwrite:  this.opts.Force,
			listeners:  this.listeners,
		}

		res, r, d, _ := task.call()
		read += r
		decoded += d

		if res != 0 {
			return res, decoded
		}
	}

	if len(targets) > 1 {
		logger.Info("Total decompression",
			"time", time.Since(before).Round(time.Millisecond),
			"input", humanize.IBytes(read),
			"output", humanize.IBytes(decoded))
	}

	return 0, decoded
}

type fileDecompressTask struct {
	inputName  string
	outputName string
	overwrite  bool
	listeners  []chameleon.Listener
}

// call decompresses one input. Returns the exit code, the number of bytes
// read and the number of bytes decoded.
func (this *fileDecompressTask) call() (int, uint64, uint64, error) {
	logger.Debug("Decompressing", "input", this.inputName, "output", this.outputName)
	input, err := openInput(this.inputName)

	if err != nil {
		logger.Error("Cannot open input file", "input", this.inputName, "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	cis, err := cio.NewReader(input)

	if err != nil {
		input.Close()
		logger.Error("Cannot create compressed stream", "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	defer cis.Close()

	for _, bl := range this.listeners {
		cis.AddListener(bl)
	}

	output, err := openOutput(this.outputName, this.inputName, this.overwrite)

	if err != nil {
		logger.Error("Cannot open output file", "output", this.outputName, "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	defer output.Close()
	before := time.Now()
	buffer := make([]byte, _DEFAULT_BUFFER_SIZE)
	decoded := uint64(0)

	for {
		n, err := cis.Read(buffer)

		if n > 0 {
			if _, werr := output.Write(buffer[0:n]); werr != nil {
				logger.Error("Failed to write decompressed data", "output", this.outputName, "error", werr)
				return chameleon.ERR_WRITE_FILE, cis.GetRead(), decoded, werr
			}

			decoded += uint64(n)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			logger.Error("Failed to decompress", "input", this.inputName, "error", err)
			return chameleon.ErrorCode(err), cis.GetRead(), decoded, err
		}
	}

	if err := output.Close(); err != nil {
		logger.Error("Failed to close output", "output", this.outputName, "error", err)
		return chameleon.ERR_WRITE_FILE, cis.GetRead(), decoded, err
	}

	delta := time.Since(before)
	logger.Info("Decompressed",
		"input", this.inputName,
		"from", humanize.IBytes(cis.GetRead()),
		"to", humanize.IBytes(decoded),
		"time", delta.Round(time.Millisecond))
	logger.Debug("Decompression details",
		"mode", cis.Header().Mode,
		"blockType", cis.Header().BlockType,
		"throughput", formatThroughput(decoded, delta))
	return 0, cis.GetRead(), decoded, nil
}
