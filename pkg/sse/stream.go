package sse

import (
	"errors"
	"io"
	"log/slog"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const readSize = 32 * 1024

// Stream iterates over the chunks of an SSE response body. It is finite and
// not restartable:
//
//	for s.Next() {
//		delta := s.Current().Delta()
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	body    io.ReadCloser
	r       io.Reader
	dec     *Decoder
	buf     []byte
	pending []Chunk
	cur     Chunk
	ended   bool
	err     error
}

// NewStream wraps body. Bytes are passed through a streaming UTF-8 decoder
// so characters split across reads survive intact and invalid sequences are
// replaced with U+FFFD.
func NewStream(body io.ReadCloser, log *slog.Logger) *Stream {
	return &Stream{
		body: body,
		r:    transform.NewReader(body, unicode.UTF8.NewDecoder()),
		dec:  NewDecoder(log),
		buf:  make([]byte, readSize),
	}
}

// Next advances to the next chunk, reading from the body as needed. It
// returns false when the stream is exhausted, [DONE] was received, or an
// error occurred.
func (s *Stream) Next() bool {
	for {
		if len(s.pending) > 0 {
			s.cur = s.pending[0]
			s.pending = s.pending[1:]
			return true
		}
		if s.ended {
			return false
		}

		n, err := s.r.Read(s.buf)
		if n > 0 {
			s.collect(s.dec.Feed(s.buf[:n]))
			if decErr := s.dec.Err(); decErr != nil {
				s.err = decErr
				s.ended = true
				continue
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if n := s.dec.Buffered(); n > 0 {
					s.dec.logger().Debug("sse: body ended without a trailing newline", "bytes", n)
				}
				s.collect(s.dec.Flush())
			} else {
				s.err = err
			}
			s.ended = true
		}
	}
}

func (s *Stream) collect(events []Event) {
	for _, ev := range events {
		if ev.Done {
			s.ended = true
			return
		}
		s.pending = append(s.pending, ev.Chunk)
	}
}

// Current returns the chunk produced by the last successful call to Next.
func (s *Stream) Current() Chunk { return s.cur }

// Done reports whether the stream was terminated by the [DONE] sentinel.
func (s *Stream) Done() bool { return s.dec.Done() }

// Err returns the error that stopped iteration, if any.
func (s *Stream) Err() error { return s.err }

// Close closes the underlying body.
func (s *Stream) Close() error {
	return s.body.Close()
}
