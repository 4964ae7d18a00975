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
	"os"

	chameleon "github.com/flanglet/chameleon-go"
	"github.com/flanglet/chameleon-go/kernel"
	"gopkg.in/yaml.v3"
)

// Config holds the defaults read from the YAML file given with --config.
// Command line flags override these values.
type Config struct {
	// Mode is the compression mode: copy or chameleon.
	Mode string `yaml:"mode"`

	// Checksum adds a 64 bit hash of the decoded data after each block.
	Checksum bool `yaml:"checksum"`

	// Skip stores already compressed inputs with the copy mode.
	Skip bool `yaml:"skip"`

	// Force overwrites existing output files.
	Force bool `yaml:"force"`

	// Recursive walks input directories recursively.
	Recursive bool `yaml:"recursive"`

	// Verbosity is the log level, from 0 (errors only) to 3.
	Verbosity int `yaml:"verbosity"`

	// NoLinks ignores symbolic links when listing input files.
	NoLinks bool `yaml:"no_links"`

	// NoDotFiles ignores files whose name starts with a dot.
	NoDotFiles bool `yaml:"no_dot_files"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	return &Config{
		Mode:      "chameleon",
		Recursive: true,
		Verbosity: 1,
	}
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their default value.
func LoadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, chameleon.Errorf(chameleon.ERR_OPEN_FILE, "Cannot read config file %s: %v", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, chameleon.Errorf(chameleon.ERR_INVALID_PARAM, "Cannot parse config file %s: %v", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the configuration values
func (c *Config) Validate() error {
	if _, err := c.CompressionMode(); err != nil {
		return err
	}

	if c.Verbosity < 0 || c.Verbosity > 3 {
		return chameleon.Errorf(chameleon.ERR_INVALID_PARAM, "Invalid verbosity level: %d (must be in [0..3])", c.Verbosity)
	}

	return nil
}

// CompressionMode returns the codec mode selected by the Mode field
func (c *Config) CompressionMode() (chameleon.CompressionMode, error) {
	mode, err := kernel.GetType(c.Mode)

	if err != nil {
		return mode, chameleon.NewError(fmt.Sprintf("Invalid compression mode: '%s'", c.Mode), chameleon.ERR_INVALID_PARAM)
	}

	return mode, nil
}

// BlockType returns the block type selected by the Checksum field
func (c *Config) BlockType() chameleon.BlockType {
	if c.Checksum == true {
		return chameleon.BLOCK_CHECKSUM
	}

	return chameleon.BLOCK_DEFAULT
}
