// Package transport talks to the chat gateway over HTTP. It posts the
// conversation as JSON and hands back an [sse.Stream] over the response body,
// turning non-2xx answers into typed errors before any decoding starts.
package transport
