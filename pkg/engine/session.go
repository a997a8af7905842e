package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/germanamz/ares/pkg/assembler"
	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/chat"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"
	"github.com/germanamz/ares/pkg/transport"
)

var (
	// ErrBusy is returned when Send is called while another Send is active.
	ErrBusy = errors.New("engine: another send is already active")
	// ErrEmptyMessage is returned when there is neither text nor an attachment
	// to send.
	ErrEmptyMessage = errors.New("engine: nothing to send")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("engine: session closed")
)

// SendError describes a failed send after the session has dealt with it.
type SendError struct {
	Kind transport.Kind
	// RolledBack is true when the optimistic user message was removed.
	RolledBack bool
	// Text is the text of the user message, for restoring the input box.
	Text string
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("engine: send (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Session represents one conversation with the gateway. It owns the chat,
// the pending attachments and the loading flag. Only one Send may be active
// at a time. All methods are safe for concurrent use.
type Session struct {
	id       string
	streamer transport.Streamer
	events   *EventBus
	log      *slog.Logger

	mu          sync.Mutex
	chat        chat.Chat
	attachments []attachment.File
	active      bool
	closed      bool
	cancel      context.CancelFunc
	gen         uint64
}

// NewSession creates a session that streams replies through streamer and
// publishes its activity on events. A nil events bus gets a private one.
func NewSession(id string, streamer transport.Streamer, events *EventBus, log *slog.Logger) *Session {
	if events == nil {
		events = NewEventBus()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		id:       id,
		streamer: streamer,
		events:   events,
		log:      log.With("session", id),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the bus the session publishes on.
func (s *Session) Events() *EventBus { return s.events }

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chat.Messages()
}

// Loading reports whether a send is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}

// Attach queues a file for the next send.
func (s *Session) Attach(f attachment.File) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attachments = append(s.attachments, f)
}

// Attachments returns the files queued for the next send.
func (s *Session) Attachments() []attachment.File {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.attachments)
}

// ClearAttachments drops every queued file.
func (s *Session) ClearAttachments() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attachments = nil
}

// Send appends a user message built from text, the queued attachments and
// files, then streams the assistant's reply into the conversation. It
// returns the assistant message, which is the zero Message when the reply
// was empty.
//
// If the request fails before any delta arrives, the user message is
// removed again. Once deltas have been applied nothing is rolled back. After
// cancellation (ctx, Cancel, Reset or Close) the conversation is left as it
// was at that moment.
func (s *Session) Send(ctx context.Context, text string, files ...attachment.File) (message.Message, error) {
	ctx, t, err := s.begin(ctx, text, files)
	if err != nil {
		return message.Message{}, err
	}
	defer s.release()

	s.publish(EventMessageAdded, t.user)
	s.publish(EventStreamStart, nil)

	asm := assembler.New(&s.chat, func(m message.Message) {
		s.publish(EventDelta, m)
	})

	finish, err := s.stream(ctx, t, asm)

	if ctx.Err() != nil {
		s.log.Info("send cancelled", "deltas", asm.Applied())
		s.publish(EventStreamEnd, StreamEnd{Deltas: asm.Applied(), Cancelled: true})
		return message.Message{}, fmt.Errorf("engine: send: %w", ctx.Err())
	}

	if err != nil {
		sendErr := &SendError{Kind: transport.Classify(err), Text: text, Err: err}
		if asm.Applied() == 0 {
			sendErr.RolledBack = s.rollback(t)
		}

		s.log.Warn("send failed", "kind", sendErr.Kind.String(), "deltas", asm.Applied(), "rolled_back", sendErr.RolledBack, "error", err)
		if sendErr.RolledBack {
			s.publish(EventRollback, t.user)
		}
		s.publish(EventError, sendErr)
		s.publish(EventStreamEnd, StreamEnd{Deltas: asm.Applied(), Err: sendErr})
		return message.Message{}, sendErr
	}

	s.log.Debug("send complete", "deltas", asm.Applied(), "finish_reason", finish)
	s.publish(EventStreamEnd, StreamEnd{Deltas: asm.Applied(), FinishReason: finish})

	if asm.Applied() == 0 {
		return message.Message{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	last, _ := s.chat.Last()
	return last, nil
}

// turn is the bookkeeping of one Send.
type turn struct {
	gen      uint64
	rollback int
	user     message.Message
	history  []message.Message
}

// begin validates the request, marks the session active and appends the
// optimistic user message.
func (s *Session) begin(ctx context.Context, text string, files []attachment.File) (context.Context, turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, turn{}, ErrClosed
	}
	if s.active {
		return nil, turn{}, ErrBusy
	}

	pending := append(slices.Clone(s.attachments), files...)
	if strings.TrimSpace(text) == "" && len(pending) == 0 {
		return nil, turn{}, ErrEmptyMessage
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.active = true
	s.gen++

	t := turn{gen: s.gen, rollback: s.chat.Len()}
	t.user = message.NewText(role.User, text)
	if len(pending) > 0 {
		t.user = message.New(role.User, attachment.Parts(text, pending)...)
	}

	s.chat.Append(t.user)
	s.attachments = nil
	t.history = s.chat.Messages()

	return ctx, t, nil
}

// stream reads the reply and applies every delta under the session lock. It
// returns the last finish reason seen.
func (s *Session) stream(ctx context.Context, t turn, asm *assembler.Assembler) (string, error) {
	st, err := s.streamer.Stream(ctx, t.history)
	if err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()

	var finish string
	for st.Next() {
		chunk := st.Current()
		if fr := chunk.FinishReason(); fr != "" {
			finish = fr
		}
		delta := chunk.Delta()
		if delta == "" {
			continue
		}

		s.mu.Lock()
		if ctx.Err() != nil || s.gen != t.gen {
			s.mu.Unlock()
			return finish, ctx.Err()
		}
		err := asm.Apply(delta)
		s.mu.Unlock()

		if err != nil {
			return finish, err
		}
	}

	return finish, st.Err()
}

func (s *Session) rollback(t turn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != t.gen {
		return false
	}
	s.chat.Truncate(t.rollback)
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.active = false
}

// Cancel stops the in-flight send, if any. No delta is applied after Cancel
// returns.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
}

// Reset cancels any in-flight send and starts a fresh conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.chat.Reset()
	s.attachments = nil
}

// Close cancels any in-flight send and rejects further sends.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	s.closed = true
}

func (s *Session) publish(kind EventKind, data any) {
	s.events.Publish(Event{
		Kind:      kind,
		SessionID: s.id,
		Timestamp: time.Now(),
		Data:      data,
	})
}
