// Package chats provides the data model for an Ares conversation.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/ares/pkg/chats/role]: conversation roles (system, user, assistant)
//   - [github.com/germanamz/ares/pkg/chats/content]: content parts (text, image_url)
//   - [github.com/germanamz/ares/pkg/chats/message]: messages with plain-text or multi-part content
//   - [github.com/germanamz/ares/pkg/chats/chat]: mutable conversation container
//
// No transport code is included. chats is a foundation layer shared by the
// client session and the gateway proxy.
package chats
