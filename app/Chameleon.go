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
	"fmt"
	"io"
	"log/slog"
	"os"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/spf13/pflag"
)

const (
	_APP_VERSION            = "1.0"
	_APP_HEADER             = "Chameleon " + _APP_VERSION + " (c) Frederic Langlet"
	_STDIN                  = "STDIN"
	_STDOUT                 = "STDOUT"
	_NONE                   = "NONE"
	_COMPRESSED_EXTENSION   = ".chm"
	_DECOMPRESSED_EXTENSION = ".bak"
	_DEFAULT_BUFFER_SIZE    = 256 * 1024

	// Level of the per event records (verbosity 3)
	_LEVEL_TRACE = slog.LevelDebug - 4
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// Options the command line options, config file values included
type Options struct {
	Config
	Compress   bool
	Decompress bool
	Input      string
	Output     string
	ConfigFile string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) (code int) {
	opts, code := parseCommandLine(args, stderr)

	if opts == nil {
		return code
	}

	logger = newLogger(stderr, opts.Verbosity)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("An unexpected error occurred", "error", r)
			code = chameleon.ERR_UNKNOWN
		}
	}()

	if opts.Compress == true {
		bc, err := NewBlockCompressor(opts)

		if err != nil {
			logger.Error("Failed to create block compressor", "error", err)
			return chameleon.ErrorCode(err)
		}

		code, _ = bc.Compress()
		return code
	}

	bd, err := NewBlockDecompressor(opts)

	if err != nil {
		logger.Error("Failed to create block decompressor", "error", err)
		return chameleon.ErrorCode(err)
	}

	code, _ = bd.Decompress()
	return code
}

// Verbosity 0 only shows errors, 1 one line per file, 2 detailed
// statistics and 3 adds every codec event.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelInfo

	switch {
	case verbosity <= 0:
		level = slog.LevelError
	case verbosity == 2:
		level = slog.LevelDebug
	case verbosity >= 3:
		level = _LEVEL_TRACE
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// parseCommandLine returns nil and an exit code when there is nothing to
// run (help requested or invalid arguments)
func parseCommandLine(args []string, stderr io.Writer) (*Options, int) {
	opts := &Options{}
	defaults := DefaultConfig()
	var mode string
	var help, version bool

	flagSet := pflag.NewFlagSet("chameleon", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.BoolVarP(&opts.Compress, "compress", "c", false, "compress the input")
	flagSet.BoolVarP(&opts.Decompress, "decompress", "d", false, "decompress the input")
	flagSet.StringVarP(&opts.Input, "input", "i", _STDIN, "input file or directory, or STDIN")
	flagSet.StringVarP(&opts.Output, "output", "o", "", "output file or directory, STDOUT or NONE")
	flagSet.StringVarP(&mode, "mode", "m", defaults.Mode, "compression mode: copy or chameleon")
	flagSet.BoolVarP(&opts.Checksum, "checksum", "x", defaults.Checksum, "add a checksum to every block")
	flagSet.BoolVarP(&opts.Skip, "skip", "s", defaults.Skip, "store already compressed inputs with the copy mode")
	flagSet.BoolVarP(&opts.Force, "force", "f", defaults.Force, "overwrite existing output files")
	flagSet.BoolVarP(&opts.Recursive, "recursive", "r", defaults.Recursive, "walk input directories recursively")
	flagSet.IntVarP(&opts.Verbosity, "verbose", "v", defaults.Verbosity, "verbosity level [0..3]")
	flagSet.BoolVar(&opts.NoLinks, "no-links", defaults.NoLinks, "ignore symbolic links")
	flagSet.BoolVar(&opts.NoDotFiles, "no-dot-files", defaults.NoDotFiles, "ignore files whose name starts with a dot")
	flagSet.StringVar(&opts.ConfigFile, "config", "", "YAML file with default option values")
	flagSet.BoolVarP(&help, "help", "h", false, "show help")
	flagSet.BoolVar(&version, "version", false, "show version")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet, stderr)
			return nil, 0
		}

		fmt.Fprintf(stderr, "%v\n", err)
		return nil, chameleon.ERR_INVALID_PARAM
	}

	if help == true {
		printHelp(flagSet, stderr)
		return nil, 0
	}

	if version == true {
		fmt.Fprintln(stderr, _APP_HEADER)
		return nil, 0
	}

	if flagSet.NArg() > 0 {
		fmt.Fprintf(stderr, "Unexpected argument: %s\n", flagSet.Arg(0))
		return nil, chameleon.ERR_INVALID_PARAM
	}

	if opts.ConfigFile != "" {
		cfg, err := LoadConfig(opts.ConfigFile)

		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return nil, chameleon.ErrorCode(err)
		}

		// Command line flags win over file values
		if flagSet.Changed("mode") == false {
			mode = cfg.Mode
		}

		if flagSet.Changed("checksum") == false {
			opts.Checksum = cfg.Checksum
		}

		if flagSet.Changed("skip") == false {
			opts.Skip = cfg.Skip
		}

		if flagSet.Changed("force") == false {
			opts.Force = cfg.Force
		}

		if flagSet.Changed("recursive") == false {
			opts.Recursive = cfg.Recursive
		}

		if flagSet.Changed("verbose") == false {
			opts.Verbosity = cfg.Verbosity
		}

		if flagSet.Changed("no-links") == false {
			opts.NoLinks = cfg.NoLinks
		}

		if flagSet.Changed("no-dot-files") == false {
			opts.NoDotFiles = cfg.NoDotFiles
		}
	}

	opts.Mode = mode

	if opts.Compress == opts.Decompress {
		if opts.Compress == true {
			fmt.Fprintln(stderr, "Only one of --compress and --decompress can be provided")
			return nil, chameleon.ERR_INVALID_PARAM
		}

		fmt.Fprintln(stderr, "Missing arguments: try --help or -h")
		return nil, chameleon.ERR_MISSING_PARAM
	}

	if err := opts.Validate(); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return nil, chameleon.ErrorCode(err)
	}

	return opts, 0
}

func printHelp(flagSet *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `%s

Streaming block compressor based on the Chameleon hash kernel.

Usage:
  chameleon --compress [flags]
  chameleon --decompress [flags]

Examples:
  chameleon -c -i foo.txt -o foo.txt.chm -x
  chameleon -c -i docs -r -s -v 2
  chameleon -d -i foo.txt.chm -o STDOUT

Flags:
`, _APP_HEADER)
	flagSet.SetOutput(w)
	flagSet.PrintDefaults()
}
