package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

type StreamMode string

const (
	StreamInstant    StreamMode = "instant"
	StreamTypewriter StreamMode = "typewriter"
	StreamQuiet      StreamMode = "quiet"
)

// StreamWriter renders generated tokens to stdout. Instant flushes each token
// as it arrives, typewriter flushes character by character, and quiet holds
// everything until Flush.
type StreamWriter struct {
	mode        StreamMode
	buffer      *bufio.Writer
	accumulator strings.Builder
}

func NewStreamWriter(mode StreamMode) *StreamWriter {
	switch mode {
	case StreamInstant, StreamTypewriter, StreamQuiet:
	default:
		mode = StreamInstant
	}
	return &StreamWriter{
		mode:   mode,
		buffer: bufio.NewWriterSize(os.Stdout, 4096),
	}
}

// Write handles a single token.
func (w *StreamWriter) Write(token string) {
	w.accumulator.WriteString(token)

	switch w.mode {
	case StreamInstant:
		_, _ = w.buffer.WriteString(token)
		_ = w.buffer.Flush()
	case StreamTypewriter:
		for _, r := range token {
			_, _ = w.buffer.WriteRune(r)
			_ = w.buffer.Flush()
		}
	case StreamQuiet:
		// held until Flush
	}
}

// Flush writes anything held back and returns the full accumulated text.
func (w *StreamWriter) Flush() string {
	text := w.accumulator.String()
	if w.mode == StreamQuiet {
		fmt.Print(text)
	}
	_ = w.buffer.Flush()
	return text
}
