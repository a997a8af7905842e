package sse

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
)

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// MaxLineSize bounds a single buffered line.
	MaxLineSize = 1 << 20
)

// ErrLineTooLong is reported when a line grows past MaxLineSize without a
// terminating newline.
var ErrLineTooLong = errors.New("sse: line exceeds maximum size")

// Event is produced by the Decoder: either a parsed Chunk or the end of the
// stream.
type Event struct {
	Chunk Chunk
	Done  bool
}

type outcome int

const (
	outcomeSkip outcome = iota
	outcomeChunk
	outcomeDone
	outcomeRetry
)

// Decoder turns raw SSE bytes into events. Feed it network chunks as they
// arrive and call Flush once the stream has ended. A Decoder is not safe for
// concurrent use.
type Decoder struct {
	// Logger receives skipped-payload diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	buf      []byte
	retrying bool
	done     bool
	err      error
}

// NewDecoder creates a Decoder that logs to log. A nil logger falls back to
// slog.Default().
func NewDecoder(log *slog.Logger) *Decoder {
	return &Decoder{Logger: log}
}

// Done reports whether the [DONE] sentinel has been seen.
func (d *Decoder) Done() bool { return d.done }

// Err returns the first fatal decoding error.
func (d *Decoder) Err() error { return d.err }

// Buffered returns the number of bytes waiting for a newline.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Feed appends p to the buffer and returns the events for every complete
// line. Bytes fed after [DONE] are ignored.
func (d *Decoder) Feed(p []byte) []Event {
	if d.done || d.err != nil || len(p) == 0 {
		return nil
	}

	d.buf = append(d.buf, p...)
	events := d.drain(false)

	if !d.done && len(d.buf) > MaxLineSize && bytes.IndexByte(d.buf, '\n') < 0 {
		d.err = ErrLineTooLong
	}

	return events
}

// Flush processes whatever is left in the buffer after the stream ended,
// including a final line without a trailing newline. Parse failures are
// skipped.
func (d *Decoder) Flush() []Event {
	if d.done || d.err != nil {
		return nil
	}
	events := d.drain(true)
	d.buf = nil
	return events
}

func (d *Decoder) drain(final bool) []Event {
	var events []Event

	for !d.done && len(d.buf) > 0 {
		line, rest, ok := cutLine(d.buf)
		if !ok {
			if !final {
				break
			}
			line, rest = d.buf, nil
		}

		ev, out := d.parseLine(line, final)
		if out == outcomeRetry {
			// Leave the line at the head of the buffer so it is parsed
			// again once more bytes arrive.
			d.retrying = true
			break
		}

		d.buf = rest
		d.retrying = false

		switch out {
		case outcomeChunk:
			events = append(events, ev)
		case outcomeDone:
			d.done = true
			d.buf = nil
			events = append(events, Event{Done: true})
		}
	}

	if len(d.buf) == 0 {
		d.buf = d.buf[:0]
	}

	return events
}

func (d *Decoder) parseLine(line []byte, final bool) (Event, outcome) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 || line[0] == ':' {
		return Event{}, outcomeSkip
	}
	if !bytes.HasPrefix(line, []byte(dataPrefix)) {
		return Event{}, outcomeSkip
	}

	payload := bytes.TrimSpace(line[len(dataPrefix):])
	if len(payload) == 0 {
		return Event{}, outcomeSkip
	}
	if string(payload) == doneSentinel {
		return Event{}, outcomeDone
	}

	var c Chunk
	err := json.Unmarshal(payload, &c)
	if err == nil {
		return Event{Chunk: c}, outcomeChunk
	}

	switch {
	case final:
		d.logger().Debug("sse: dropping unparsable payload at flush", "error", err, "bytes", len(payload))
	case isIncomplete(err) && !d.retrying:
		return Event{}, outcomeRetry
	default:
		d.logger().Warn("sse: skipping malformed payload", "error", err, "bytes", len(payload))
	}

	return Event{}, outcomeSkip
}

func (d *Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// cutLine splits b at the first newline.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	i := bytes.IndexByte(b, '\n')
	if i < 0 {
		return nil, b, false
	}
	return b[:i], b[i+1:], true
}

// isIncomplete reports whether err means the JSON input ended early, which is
// what a payload truncated mid-chunk looks like.
func isIncomplete(err error) bool {
	var se *json.SyntaxError
	return errors.As(err, &se) && se.Error() == "unexpected end of JSON input"
}
