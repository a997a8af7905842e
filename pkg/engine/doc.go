// Package engine is the composition root of the chat client. It loads
// configuration, builds the gateway transport and hands out Sessions, each of
// which owns one conversation. Frontends drive a Session and observe its
// activity through an EventBus; they never touch the chat or the transport
// directly.
package engine
