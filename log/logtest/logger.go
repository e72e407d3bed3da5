/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ssgreg/logf"

	"github.com/acronis/charai-gateway/log"
)

type entryWriter struct {
	sync.Mutex
	encoder logf.Encoder
	output  io.Writer
}

//nolint:gocritic
func (ew *entryWriter) WriteEntry(e logf.Entry) {
	ew.Lock()
	defer ew.Unlock()

	var buf logf.Buffer
	if err := ew.encoder.Encode(&buf, e); err != nil {
		_, _ = fmt.Fprint(ew.output, err)
		return
	}
	_, _ = ew.output.Write(buf.Data)
}

// NewLogger returns a synchronous JSON logger writing to stderr at debug level.
// It is slow and must be used only in tests.
func NewLogger() log.FieldLogger {
	return NewLoggerWithWriter(os.Stderr)
}

// NewLoggerWithWriter is like NewLogger but writes entries to w.
func NewLoggerWithWriter(w io.Writer) log.FieldLogger {
	if w == nil {
		w = os.Stderr
	}
	ew := &entryWriter{
		encoder: logf.NewJSONEncoder(logf.JSONEncoderConfig{EncodeTime: logf.RFC3339NanoTimeEncoder}),
		output:  w,
	}
	return &log.LogfAdapter{Logger: logf.NewLogger(logf.LevelDebug, ew)}
}
