package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry of the conversation view. It is never modified
// once appended.
type Message struct {
	Role    Role
	Content string
}

// FormattedReply pairs an assistant reply with its HTML rendering.
type FormattedReply struct {
	RawText string
	HTML    string
}
