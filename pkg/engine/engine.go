package engine

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/transport"
	"github.com/google/uuid"
)

// Engine assembles the client-side components from configuration and hands
// out sessions.
type Engine struct {
	cfg      Config
	events   *EventBus
	streamer transport.Streamer
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStreamer replaces the HTTP transport built from the config.
func WithStreamer(s transport.Streamer) Option {
	return func(e *Engine) { e.streamer = s }
}

// WithLogger sets the logger used by the engine and its sessions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an Engine from the given configuration. Unless a streamer is
// supplied, it builds a transport.Client for the configured gateway.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		events:   NewEventBus(),
		log:      slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.streamer == nil {
		client := transport.New(
			strings.TrimRight(cfg.Client.BaseURL, "/"),
			cfg.Client.Token,
			transport.NewHTTPClient(cfg.Client.Timeout),
		)
		client.Logger = e.log
		e.streamer = client
	}

	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config { return e.cfg }

// Events returns the engine's event bus.
func (e *Engine) Events() *EventBus { return e.events }

// NewSession creates a new conversation.
func (e *Engine) NewSession() *Session {
	id := uuid.NewString()
	s := NewSession(id, e.streamer, e.events, e.log)

	e.mu.Lock()
	e.sessions[id] = s
	e.mu.Unlock()

	return s
}

// LoadAttachment reads a file for sending, honoring the configured size
// limit.
func (e *Engine) LoadAttachment(path string) (attachment.File, error) {
	return attachment.Load(path, e.cfg.Client.MaxAttachmentBytes)
}

// Close cancels every session's in-flight send and closes the sessions.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, s := range e.sessions {
		s.Close()
		delete(e.sessions, id)
	}
	return nil
}
