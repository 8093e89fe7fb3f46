// Package sse carries the player change feed over server-sent events.
package sse

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// EventConnected is the first frame written on every stream
const EventConnected = "connected"

// maxLineSize bounds a single SSE line on the reading side
const maxLineSize = 1 << 20

// Format encodes one SSE frame
func Format(eventName string, data []byte) []byte {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(eventName)
	b.WriteString("\n")
	// SSE requires each line of data to be prefixed with "data: "
	for _, line := range splitLines(string(data)) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return []byte(b.String())
}

// splitLines splits a string into lines, handling various line endings
func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// Event is one parsed SSE frame
type Event struct {
	Name string
	Data string
}

// Reader parses SSE frames from a stream
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader creates a Reader over r
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next named event. Comment lines and unnamed frames are
// skipped. It returns io.EOF when the stream ends cleanly.
func (r *Reader) Next() (Event, error) {
	var current string
	var dataLines []string

	for r.scanner.Scan() {
		line := r.scanner.Text()

		switch {
		case strings.HasPrefix(line, ":"):
			// keepalive comment
		case strings.HasPrefix(line, "event:"):
			current = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "":
			if current != "" {
				return Event{Name: current, Data: strings.Join(dataLines, "\n")}, nil
			}
			current = ""
			dataLines = nil
		}
	}

	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if current != "" {
		return Event{}, errors.New("sse: stream ended mid-event")
	}
	return Event{}, io.EOF
}
