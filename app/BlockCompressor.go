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
	"bufio"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/internal"
	cio "github.com/flanglet/chameleon-go/io"
)

// BlockCompressor compresses files, directories or STDIN into chameleon
// streams. Inputs are processed sequentially, one session per input.
type BlockCompressor struct {
	opts      *Options
	mode      chameleon.CompressionMode
	blockType chameleon.BlockType
	listeners []chameleon.Listener
}

// NewBlockCompressor creates a new instance of BlockCompressor
func NewBlockCompressor(opts *Options) (*BlockCompressor, error) {
	mode, err := opts.CompressionMode()

	if err != nil {
		return nil, err
	}

	this := &BlockCompressor{}
	this.opts = opts
	this.mode = mode
	this.blockType = opts.BlockType()
	this.listeners = make([]chameleon.Listener, 0)

	if opts.Verbosity > 2 {
		this.AddListener(NewInfoPrinter(logger))
	}

	return this, nil
}

// AddListener adds an event listener to this compressor.
// Returns true if the listener has been added.
func (this *BlockCompressor) AddListener(bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	this.listeners = append(this.listeners, bl)
	return true
}

// RemoveListener removes an event listener from this compressor.
// Returns true if the listener has been removed.
func (this *BlockCompressor) RemoveListener(bl chameleon.Listener) bool {
	return removeListener(&this.listeners, bl)
}

// Compress processes all inputs. Returns the exit code and the total
// number of bytes written.
func (this *BlockCompressor) Compress() (int, uint64) {
	before := time.Now()
	targets, code := resolveTargets(this.opts, _COMPRESSED_EXTENSION, false)

	if code != 0 {
		return code, 0
	}

	if len(targets) > 1 {
		logger.Info("Files to compress", "count", len(targets))
	}

	logger.Debug("Options", "mode", this.mode, "blockType", this.blockType, "skip", this.opts.Skip,
		"overwrite", this.opts.Force)

	read := uint64(0)
	written := uint64(0)

	for _, t := range targets {
		task := fileCompressTask{
			inputName:  t.input,
			outputName: t.output,
			mode:       this.mode,
			blockType:  this.blockType,
			skip:       this.opts.Skip,
			overwrite:  this.opts.Force,
			listeners:  this.listeners,
		}

		res, r, w, _ := task.call()
		read += r
		written += w

		if res != 0 {
			return res, written
		}
	}

	if len(targets) > 1 {
		logger.Info("Total compression",
			"time", time.Since(before).Round(time.Millisecond),
			"input", humanize.IBytes(read),
			"output", humanize.IBytes(written),
			"ratio", formatRatio(written, read))
	}

	return 0, written
}

type fileCompressTask struct {
	inputName  string
	outputName string
	mode       chameleon.CompressionMode
	blockType  chameleon.BlockType
	skip       bool
	overwrite  bool
	listeners  []chameleon.Listener
}

// call compresses one input. Returns the exit code, the number of bytes
// read and the number of bytes written.
func (this *fileCompressTask) call() (int, uint64, uint64, error) {
	logger.Debug("Compressing", "input", this.inputName, "output", this.outputName)
	input, err := openInput(this.inputName)

	if err != nil {
		logger.Error("Cannot open input file", "input", this.inputName, "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	defer input.Close()
	reader := bufio.NewReaderSize(input, _DEFAULT_BUFFER_SIZE)
	mode := this.mode

	if this.skip == true && mode != chameleon.MODE_COPY {
		// Peek fails on short inputs, which have no magic anyway
		header, _ := reader.Peek(4)

		if magic := internal.GetMagicType(header); internal.IsDataCompressed(magic) {
			logger.Info("Input already compressed, storing it", "input", this.inputName,
				"format", internal.MagicName(magic))
			mode = chameleon.MODE_COPY
		}
	}

	output, err := openOutput(this.outputName, this.inputName, this.overwrite)

	if err != nil {
		logger.Error("Cannot open output file", "output", this.outputName, "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	cos, err := cio.NewWriter(output, mode, this.blockType)

	if err != nil {
		output.Close()
		logger.Error("Cannot create compressed stream", "error", err)
		return chameleon.ErrorCode(err), 0, 0, err
	}

	for _, bl := range this.listeners {
		cos.AddListener(bl)
	}

	before := time.Now()
	buffer := make([]byte, _DEFAULT_BUFFER_SIZE)
	read := uint64(0)

	for {
		n, err := reader.Read(buffer)

		if n > 0 {
			if _, werr := cos.Write(buffer[0:n]); werr != nil {
				cos.Close()
				logger.Error("Failed to compress", "input", this.inputName, "error", werr)
				return chameleon.ErrorCode(werr), read, cos.GetWritten(), werr
			}

			read += uint64(n)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			cos.Close()
			logger.Error("Failed to read input", "input", this.inputName, "error", err)
			return chameleon.ERR_READ_FILE, read, cos.GetWritten(), err
		}
	}

	// Close writes the last block and the footer
	if err := cos.Close(); err != nil {
		logger.Error("Failed to close output", "output", this.outputName, "error", err)
		return chameleon.ErrorCode(err), read, cos.GetWritten(), err
	}

	delta := time.Since(before)
	written := cos.GetWritten()
	logger.Info("Compressed",
		"input", this.inputName,
		"from", humanize.IBytes(read),
		"to", humanize.IBytes(written),
		"ratio", formatRatio(written, read),
		"time", delta.Round(time.Millisecond))
	logger.Debug("Compression details",
		"mode", mode,
		"blocks", humanize.Comma(int64(cos.Blocks())),
		"throughput", formatThroughput(read, delta))
	return 0, read, written, nil
}

type target struct {
	input  string
	output string
}

// resolveTargets lists the inputs and derives the output name of each.
// Without explicit output, extension is appended to (or, when stripping,
// removed from) the input name.
func resolveTargets(opts *Options, extension string, strip bool) ([]target, int) {
	deriveName := func(name string) string {
		if strip == true {
			if strings.HasSuffix(name, _COMPRESSED_EXTENSION) && len(name) > len(_COMPRESSED_EXTENSION) {
				return name[:len(name)-len(_COMPRESSED_EXTENSION)]
			}

			return name + _DECOMPRESSED_EXTENSION
		}

		return name + extension
	}

	specialOutput := strings.EqualFold(opts.Output, _NONE) || strings.EqualFold(opts.Output, _STDOUT)

	if strings.EqualFold(opts.Input, _STDIN) {
		output := opts.Output

		if len(output) == 0 {
			output = _STDOUT
		}

		return []target{{input: _STDIN, output: output}}, 0
	}

	fi, err := os.Stat(opts.Input)

	if err != nil {
		logger.Error("Cannot access input", "input", opts.Input, "error", err)
		return nil, chameleon.ERR_OPEN_FILE
	}

	files, err := internal.CreateFileList(opts.Input, nil, opts.Recursive, opts.NoLinks, opts.NoDotFiles)

	if err != nil {
		logger.Error("Cannot list input files", "input", opts.Input, "error", err)
		return nil, chameleon.ERR_OPEN_FILE
	}

	if len(files) == 0 {
		logger.Error("Cannot open input file", "input", opts.Input)
		return nil, chameleon.ERR_OPEN_FILE
	}

	internal.SortFiles(files, false)
	targets := make([]target, 0, len(files))

	if fi.IsDir() == false {
		output := opts.Output

		if len(output) == 0 {
			output = deriveName(files[0].FullPath)
		} else if specialOutput == false {
			if ofi, err := os.Stat(output); err == nil && ofi.IsDir() {
				logger.Error("Output must be a file (or NONE or STDOUT)", "output", output)
				return nil, chameleon.ERR_CREATE_FILE
			}
		}

		return append(targets, target{input: files[0].FullPath, output: output}), 0
	}

	if len(opts.Output) > 0 && specialOutput == false {
		if ofi, err := os.Stat(opts.Output); err != nil || ofi.IsDir() == false {
			logger.Error("Output must be an existing directory (or NONE or STDOUT)", "output", opts.Output)
			return nil, chameleon.ERR_CREATE_FILE
		}
	}

	for _, f := range files {
		output := opts.Output

		if len(output) == 0 {
			output = deriveName(f.FullPath)
		} else if specialOutput == false {
			rel, err := filepath.Rel(opts.Input, f.FullPath)

			if err != nil {
				rel = f.Name
			}

			output = deriveName(filepath.Join(opts.Output, rel))
		}

		targets = append(targets, target{input: f.FullPath, output: output})
	}

	return targets, 0
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error {
	return nil
}

func openInput(name string) (io.ReadCloser, error) {
	if strings.EqualFold(name, _STDIN) {
		return io.NopCloser(os.Stdin), nil
	}

	f, err := os.Open(name)

	if err != nil {
		return nil, chameleon.NewError(err.Error(), chameleon.ERR_OPEN_FILE)
	}

	return f, nil
}

// openOutput creates the output file. An existing file is only replaced
// if overwrite is set, and never when it is the input itself.
func openOutput(name, inputName string, overwrite bool) (io.WriteCloser, error) {
	if strings.EqualFold(name, _NONE) {
		return nopWriteCloser{io.Discard}, nil
	}

	if strings.EqualFold(name, _STDOUT) {
		return nopWriteCloser{os.Stdout}, nil
	}

	if _, err := os.Stat(name); err == nil {
		if overwrite == false {
			return nil, chameleon.Errorf(chameleon.ERR_OVERWRITE_FILE,
				"File '%s' exists and the 'force' command line option has not been provided", name)
		}

		path1, _ := filepath.Abs(inputName)
		path2, _ := filepath.Abs(name)

		if path1 == path2 {
			return nil, chameleon.NewError("The input and output files must be different", chameleon.ERR_CREATE_FILE)
		}
	}

	f, err := os.Create(name)

	if err != nil {
		// Attempt to create the full folder hierarchy to file
		if err = os.MkdirAll(filepath.Dir(name), os.ModePerm); err == nil {
			f, err = os.Create(name)
		}
	}

	if err != nil {
		return nil, chameleon.NewError(err.Error(), chameleon.ERR_CREATE_FILE)
	}

	return f, nil
}

func formatRatio(compressed, uncompressed uint64) string {
	if uncompressed == 0 {
		return "n/a"
	}

	return humanize.FtoaWithDigits(100*float64(compressed)/float64(uncompressed), 2) + "%"
}

func formatThroughput(size uint64, delta time.Duration) string {
	if delta <= 0 {
		return "n/a"
	}

	return humanize.IBytes(uint64(float64(size)/delta.Seconds())) + "/s"
}

func removeListener(listeners *[]chameleon.Listener, bl chameleon.Listener) bool {
	if bl == nil {
		return false
	}

	for i, e := range *listeners {
		if e == bl {
			*listeners = append((*listeners)[:i], (*listeners)[i+1:]...)
			return true
		}
	}

	return false
}
