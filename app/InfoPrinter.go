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
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	chameleon "github.com/flanglet/chameleon-go"
)

// InfoPrinter a Listener that logs every codec event (verbose mode)
type InfoPrinter struct {
	logger *slog.Logger
	lock   sync.Mutex
	start  map[int]int64 // start time (ns) per start event type
}

// NewInfoPrinter creates a new instance of InfoPrinter
func NewInfoPrinter(logger *slog.Logger) *InfoPrinter {
	this := &InfoPrinter{}
	this.logger = logger
	this.start = make(map[int]int64)
	return this
}

// ProcessEvent receives an event and writes a log record
func (this *InfoPrinter) ProcessEvent(evt *chameleon.Event) {
	this.lock.Lock()
	defer this.lock.Unlock()
	attrs := make([]any, 0, 8)

	switch evt.Type() {
	case chameleon.EVT_COMPRESSION_START, chameleon.EVT_DECOMPRESSION_START:
		this.start[evt.Type()] = evt.Time().UnixNano()
		attrs = append(attrs, "event", eventName(evt.Type()))

	case chameleon.EVT_COMPRESSION_END, chameleon.EVT_DECOMPRESSION_END:
		attrs = append(attrs, "event", eventName(evt.Type()), "size", humanize.IBytes(uint64(evt.Size())))

		// END = START + 2
		if t0, ok := this.start[evt.Type()-2]; ok {
			attrs = append(attrs, "elapsedMs", (evt.Time().UnixNano()-t0)/1000000)
		}

	case chameleon.EVT_AFTER_HEADER_DECODING:
		attrs = append(attrs, "event", eventName(evt.Type()), "header", evt.String())

	default:
		attrs = append(attrs, "event", eventName(evt.Type()), "size", humanize.Comma(evt.Size()))
	}

	if h, ok := evt.Hash(); ok {
		attrs = append(attrs, "hash", fmt.Sprintf("%016x", h))
	}

	this.logger.Log(context.Background(), _LEVEL_TRACE, "Event", attrs...)
}

func eventName(t int) string {
	switch t {
	case chameleon.EVT_COMPRESSION_START:
		return "COMPRESSION_START"
	case chameleon.EVT_DECOMPRESSION_START:
		return "DECOMPRESSION_START"
	case chameleon.EVT_COMPRESSION_END:
		return "COMPRESSION_END"
	case chameleon.EVT_DECOMPRESSION_END:
		return "DECOMPRESSION_END"
	case chameleon.EVT_AFTER_HEADER_DECODING:
		return "AFTER_HEADER_DECODING"
	case chameleon.EVT_AFTER_FOOTER_DECODING:
		return "AFTER_FOOTER_DECODING"
	}

	return "UNKNOWN"
}
