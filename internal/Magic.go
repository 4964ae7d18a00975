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

package internal

import (
	"encoding/binary"
)

// Magic values read big-endian from the first 4 bytes of a file
const (
	NO_MAGIC        = 0
	CHAMELEON_MAGIC = 0x43484D4C // "CHML"
	JPG_MAGIC       = 0xFFD8FFE0
	GIF_MAGIC       = 0x47494638
	PNG_MAGIC       = 0x89504E47
	ZIP_MAGIC       = 0x504B0304 // Works for jar & office docs
	LZMA_MAGIC      = 0x377ABCAF // Works for 7z  37 7A BC AF 27 1C
	ZSTD_MAGIC      = 0x28B52FFD
	LZ4_MAGIC       = 0x04224D18 // LZ4 frame, 04 22 4D 18
	S2_MAGIC        = 0xFF060000 // snappy/s2 framed stream identifier chunk
	BROTLI_MAGIC    = 0x81CFB2CE
	XZ_MAGIC        = 0xFD377A58 // FD 37 7A 58 5A 00
	RAR_MAGIC       = 0x52617221 // 42 61 72 21 1A 07 00
	KNZ_MAGIC       = 0x4B414E5A
	FLAC_MAGIC      = 0x664C6143

	BZIP2_MAGIC   = 0x425A68
	MP3_ID3_MAGIC = 0x494433

	GZIP_MAGIC = 0x1F8B
)

var (
	_KEYS32 = []uint{
		CHAMELEON_MAGIC, GIF_MAGIC, PNG_MAGIC, ZIP_MAGIC, LZMA_MAGIC, ZSTD_MAGIC,
		LZ4_MAGIC, S2_MAGIC, BROTLI_MAGIC, XZ_MAGIC, RAR_MAGIC, KNZ_MAGIC, FLAC_MAGIC,
	}

	_KEYS24 = []uint{BZIP2_MAGIC, MP3_ID3_MAGIC}

	_KEYS16 = []uint{GZIP_MAGIC}

	_MAGIC_NAMES = map[uint]string{
		CHAMELEON_MAGIC: "chameleon",
		JPG_MAGIC:       "jpeg",
		GIF_MAGIC:       "gif",
		PNG_MAGIC:       "png",
		ZIP_MAGIC:       "zip",
		LZMA_MAGIC:      "7z",
		ZSTD_MAGIC:      "zstd",
		LZ4_MAGIC:       "lz4",
		S2_MAGIC:        "s2",
		BROTLI_MAGIC:    "brotli",
		XZ_MAGIC:        "xz",
		RAR_MAGIC:       "rar",
		KNZ_MAGIC:       "kanzi",
		FLAC_MAGIC:      "flac",
		BZIP2_MAGIC:     "bzip2",
		MP3_ID3_MAGIC:   "mp3",
		GZIP_MAGIC:      "gzip",
	}
)

// GetMagicType checks the first bytes of the slice against a list of
// known magic values. Returns NO_MAGIC if none matches.
func GetMagicType(src []byte) uint {
	if len(src) < 4 {
		return NO_MAGIC
	}

	key := uint(binary.BigEndian.Uint32(src))

	if (key & ^uint(0x0F)) == JPG_MAGIC {
		return JPG_MAGIC
	}

	for _, k := range _KEYS32 {
		if key == k {
			return key
		}
	}

	for _, k := range _KEYS24 {
		if key>>8 == k {
			return k
		}
	}

	for _, k := range _KEYS16 {
		if key>>16 == k {
			return k
		}
	}

	return NO_MAGIC
}

// MagicName returns a short name for the magic value, "unknown" if none
func MagicName(magic uint) string {
	if name, ok := _MAGIC_NAMES[magic]; ok {
		return name
	}

	return "unknown"
}

// IsDataCompressed returns true if the provided magic parameter corresponds
// to a known compressed data type. Such data gains nothing from the
// Chameleon kernel.
func IsDataCompressed(magic uint) bool {
	return magic != NO_MAGIC
}
