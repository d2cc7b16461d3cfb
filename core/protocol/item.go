// Package protocol defines the conversation item value types shared by every
// subsystem of the flow engine. Items are plain values; packages that hold
// item slices across API boundaries return defensive copies.
package protocol

import "slices"

// Role identifies the sender of a conversation item.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ItemType distinguishes ordinary messages from reasoning markers.
// Reasoning markers carry model reasoning summaries and must travel with the
// assistant item they precede, or the history becomes invalid for replay.
type ItemType string

const (
	ItemMessage   ItemType = "message"
	ItemReasoning ItemType = "reasoning"
)

// Item represents a single turn in a conversation: a role tag and a content
// payload. Items are immutable once appended to a history.
//
// Reasoning markers have Type == ItemReasoning and no role; all other items
// are messages. An omitted Type means ItemMessage.
type Item struct {
	Type    ItemType `json:"type,omitempty"`
	Role    Role     `json:"role,omitempty"`
	Content string   `json:"content"`
}

// NewItem creates a message Item with the given role and content.
//
// Example:
//
//	item := protocol.NewItem(protocol.RoleUser, "Hello, world!")
func NewItem(role Role, content string) Item {
	return Item{Type: ItemMessage, Role: role, Content: content}
}

// NewReasoning creates a reasoning marker item.
func NewReasoning(content string) Item {
	return Item{Type: ItemReasoning, Content: content}
}

// IsMessage reports whether the item is an ordinary message.
// An empty Type counts as a message for compatibility with stored histories
// that predate the Type field.
func (it Item) IsMessage() bool {
	return it.Type == ItemMessage || it.Type == ""
}

// IsReasoning reports whether the item is a reasoning marker.
func (it Item) IsReasoning() bool {
	return it.Type == ItemReasoning
}

// IsAssistantOutput reports whether the item is an assistant message with
// non-empty content. Scope persistence scans for the last such item.
func (it Item) IsAssistantOutput() bool {
	return it.IsMessage() && it.Role == RoleAssistant && it.Content != ""
}

// CloneItems returns a copy of the given item slice. Items themselves are
// values, so a shallow slice clone is a full copy.
func CloneItems(items []Item) []Item {
	return slices.Clone(items)
}
