// Package gateway is the HTTP proxy between chat clients and the upstream
// chat-completions API. It prepends the configured system prompt to the
// client's conversation, always requests a streamed reply and pipes the
// upstream event stream back untouched. Upstream failures are mapped onto
// small JSON error bodies the client knows how to display.
package gateway
