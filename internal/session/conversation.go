// Package session holds the client-side view-model of a chat: the ordered
// message list, the draft input and the loading and listening flags.
package session

import (
	"errors"
	"strings"

	"chat-relay/internal/domain"
	"chat-relay/internal/markup"
)

var (
	ErrEmptyInput = errors.New("session: input is empty")
	ErrBusy       = errors.New("session: a reply is still pending")
	ErrNotPending = errors.New("session: no reply is pending")
)

// Conversation is owned by a single UI loop and is not safe for concurrent
// use. Messages are append-only.
type Conversation struct {
	messages  []domain.Message
	input     string
	loading   bool
	listening bool
	lastErr   error
}

func New() *Conversation {
	return &Conversation{}
}

// Messages returns a copy of the conversation in submission order.
func (c *Conversation) Messages() []domain.Message {
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Input() string     { return c.input }
func (c *Conversation) SetInput(s string) { c.input = s }
func (c *Conversation) Loading() bool     { return c.loading }
func (c *Conversation) Listening() bool   { return c.listening }
func (c *Conversation) Err() error        { return c.lastErr }

// Submit moves the draft into the message list and marks a reply as pending.
// It returns the text to send upstream.
func (c *Conversation) Submit() (string, error) {
	if c.loading {
		return "", ErrBusy
	}
	if strings.TrimSpace(c.input) == "" {
		return "", ErrEmptyInput
	}
	text := c.input
	c.messages = append(c.messages, domain.Message{Role: domain.RoleUser, Content: text})
	c.input = ""
	c.loading = true
	c.lastErr = nil
	return text, nil
}

// Receive appends the assistant reply for the pending request.
func (c *Conversation) Receive(reply string) (domain.FormattedReply, error) {
	if !c.loading {
		return domain.FormattedReply{}, ErrNotPending
	}
	c.messages = append(c.messages, domain.Message{Role: domain.RoleAssistant, Content: reply})
	c.loading = false
	return markup.Reply(reply), nil
}

// Fail ends the pending request without a reply.
func (c *Conversation) Fail(err error) {
	c.loading = false
	c.lastErr = err
}

func (c *Conversation) StartListening() { c.listening = true }
func (c *Conversation) StopListening()  { c.listening = false }

// ApplyTranscript replaces the draft with the latest recognised text.
func (c *Conversation) ApplyTranscript(t Transcript) {
	c.input = t.Text
	if t.Final {
		c.listening = false
	}
}

// Replies formats every assistant message, oldest first.
func (c *Conversation) Replies() []domain.FormattedReply {
	var out []domain.FormattedReply
	for _, m := range c.messages {
		if m.Role == domain.RoleAssistant {
			out = append(out, markup.Reply(m.Content))
		}
	}
	return out
}
