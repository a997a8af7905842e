// Package role defines the sender roles used in a conversation.
package role

// Role represents the sender of a message in a conversation.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case System, User, Assistant:
		return true
	}
	return false
}

// ClientSendable reports whether a client may send a message with this role.
// System messages are injected by the gateway only.
func (r Role) ClientSendable() bool {
	return r == User || r == Assistant
}

// String returns the underlying string value of the role.
func (r Role) String() string {
	return string(r)
}
