package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"
	"github.com/germanamz/ares/pkg/transport"
)

const (
	// ChatPath is the route clients post conversations to.
	ChatPath = "/functions/chat"
	// HealthPath answers liveness probes.
	HealthPath = "/healthz"

	// maxUpstreamErrorBody caps how much of a failed upstream body is logged.
	maxUpstreamErrorBody = 4 << 10
	copyBufferSize       = 32 << 10
)

// Config describes the upstream and the request limits of a Handler.
type Config struct {
	UpstreamURL  string
	APIKey       string //nolint:gosec // configuration field, not a hardcoded secret
	Model        string
	Errors       ErrorMessages
	MaxBodyBytes int64 // DefaultMaxBodyBytes when zero.
	MaxMessages  int   // DefaultMaxMessages when zero.
}

// Handler serves the chat route and the health check.
type Handler struct {
	cfg      Config
	prompt   *Prompt
	upstream *transport.Client
	log      *slog.Logger
	mux      *http.ServeMux
	root     http.Handler
}

// NewHandler creates a Handler. A nil prompt means DefaultSystemPrompt, a
// nil client means http.DefaultClient semantics without a timeout, since
// replies stream for as long as the model talks.
func NewHandler(cfg Config, prompt *Prompt, client *http.Client, log *slog.Logger) *Handler {
	if prompt == nil {
		prompt = NewPrompt("")
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	cfg.Errors = cfg.Errors.withDefaults()

	h := &Handler{
		cfg:    cfg,
		prompt: prompt,
		upstream: &transport.Client{
			BaseURL: cfg.UpstreamURL,
			Auth:    transport.Auth{Key: cfg.APIKey},
			HTTP:    client,
			Logger:  log,
		},
		log: log,
		mux: http.NewServeMux(),
	}

	h.mux.HandleFunc("POST "+ChatPath, h.chat)
	h.mux.HandleFunc("GET "+HealthPath, h.health)
	h.root = CORS()(h.mux)

	return h
}

// ServeHTTP answers preflight requests, then routes. Every response carries
// the CORS headers.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

type chatRequest struct {
	Messages []message.Message `json:"messages"`
}

type upstreamRequest struct {
	Model    string            `json:"model"`
	Messages []message.Message `json:"messages"`
	Stream   bool              `json:"stream"`
}

// UpstreamMessages returns the conversation sent upstream: the system prompt
// followed by msgs.
func UpstreamMessages(system string, msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs)+1)
	out = append(out, message.NewText(role.System, system))
	return append(out, msgs...)
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.With("request_id", RequestIDFrom(ctx))

	if h.cfg.APIKey == "" {
		log.Error("upstream api key is not configured")
		writeError(w, http.StatusInternalServerError, "LOVABLE_API_KEY is not configured")
		return
	}

	req, err := h.decode(w, r)
	if err != nil {
		log.Warn("rejected chat request", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.upstream.Post(ctx, upstreamRequest{
		Model:    h.cfg.Model,
		Messages: UpstreamMessages(h.prompt.Get(), req.Messages),
		Stream:   true,
	})
	if err != nil {
		log.Error("upstream request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		log.Warn("upstream rate limited")
		writeError(w, http.StatusTooManyRequests, h.cfg.Errors.RateLimited)
		return
	case resp.StatusCode == http.StatusPaymentRequired:
		log.Warn("upstream payment required")
		writeError(w, http.StatusPaymentRequired, h.cfg.Errors.PaymentRequired)
		return
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamErrorBody))
		log.Error("upstream error", "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
		writeError(w, http.StatusInternalServerError, h.cfg.Errors.Upstream)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	n, err := pipe(w, resp.Body)
	if err != nil {
		log.Warn("stream relay interrupted", "bytes", n, "error", err)
		return
	}
	log.Debug("stream relayed", "bytes", n)
}

// decode reads and checks the client's request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (chatRequest, error) {
	var req chatRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return req, fmt.Errorf("request body exceeds %d bytes", tooBig.Limit)
		}
		return req, fmt.Errorf("invalid request body: %w", err)
	}

	if len(req.Messages) == 0 {
		return req, errors.New("messages must not be empty")
	}
	if len(req.Messages) > h.cfg.MaxMessages {
		return req, fmt.Errorf("too many messages: %d > %d", len(req.Messages), h.cfg.MaxMessages)
	}
	for i, m := range req.Messages {
		if !m.Role.ClientSendable() {
			return req, fmt.Errorf("message %d: role %q is not allowed", i, m.Role)
		}
	}

	return req, nil
}

// pipe copies src to w, flushing the headers first and then after every
// read so events reach the client as soon as the upstream emits them.
func pipe(w http.ResponseWriter, src io.Reader) (int64, error) {
	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return 0, err
	}
	buf := make([]byte, copyBufferSize)

	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			written, werr := w.Write(buf[:n])
			total += int64(written)
			if werr != nil {
				return total, werr
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return total, ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
