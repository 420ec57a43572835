// Package wire decodes the backend's chunked event-stream framing: blank-line
// delimited frames whose significant lines carry a "data:" prefixed JSON
// payload. The decoder is tolerant of frames split at arbitrary byte offsets
// across chunks and of malformed payload lines.
package wire

import (
	"bytes"
	"encoding/json"
	"regexp"
)

const dataPrefix = "data:"

// frameDelim matches one or more newline pairs, tolerating carriage returns.
var frameDelim = regexp.MustCompile(`(\r?\n){2,}`)

// lineDelim splits a single frame into lines.
var lineDelim = regexp.MustCompile(`\r?\n`)

// Decoder accumulates stream chunks and yields the JSON payloads of each
// complete frame. The trailing, possibly-incomplete frame is carried over
// between feeds. The zero value is ready to use.
type Decoder struct {
	rest []byte
}

// Feed appends one chunk of the incoming stream and returns the payloads of
// every frame completed by it, in stream order. Lines without the data prefix
// and payloads that are not valid JSON are dropped without affecting the rest
// of the frame or the stream.
func (d *Decoder) Feed(chunk []byte) [][]byte {
	buf := append(d.rest, chunk...)

	parts := frameDelim.Split(string(buf), -1)
	// The final part is the unterminated remainder, which may be empty.
	d.rest = []byte(parts[len(parts)-1])

	var payloads [][]byte
	for _, frame := range parts[:len(parts)-1] {
		payloads = append(payloads, parseFrame([]byte(frame))...)
	}
	return payloads
}

// Close force-flushes the carried remainder by appending a synthetic frame
// delimiter, so a final frame lacking a trailing blank line is not lost.
func (d *Decoder) Close() [][]byte {
	if len(d.rest) == 0 {
		return nil
	}
	payloads := d.Feed([]byte("\n\n"))
	d.rest = nil
	return payloads
}

// parseFrame extracts the JSON payloads of one complete frame.
func parseFrame(frame []byte) [][]byte {
	var payloads [][]byte
	for _, line := range lineDelim.Split(string(frame), -1) {
		raw, ok := bytes.CutPrefix([]byte(line), []byte(dataPrefix))
		if !ok {
			continue
		}
		raw = bytes.TrimLeft(raw, " \t")
		if !json.Valid(raw) {
			continue
		}
		payloads = append(payloads, raw)
	}
	return payloads
}
