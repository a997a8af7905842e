// Package sse decodes the Server-Sent Events stream returned by the chat
// gateway into chat-completion chunks.
//
// [Decoder] is push-based and works on raw network chunks, so it can be
// driven by any read loop. [Stream] wraps an HTTP response body with a
// Next/Current/Err/Close iterator on top of a Decoder.
package sse
