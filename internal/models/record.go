// Package models defines core data structures for records, tags, and search.
package models

import "time"

// Record is one catalogued conversation turn-pair: what the user asked, what
// the assistant answered, plus user-editable notes and tags.
type Record struct {
	ID             int64                  `json:"id"`
	Platform       string                 `json:"platform"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	UserText       string                 `json:"user_message"`
	ResponseText   string                 `json:"ai_response"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	Notes          string                 `json:"notes"`
	Tags           []string               `json:"tags"`
}

// RecordInput is the input for cataloguing a new record. Only Platform,
// UserText, and ResponseText are required; a zero Timestamp means "now".
type RecordInput struct {
	Platform       string                 `json:"platform"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp,omitempty"`
	UserText       string                 `json:"user_message"`
	ResponseText   string                 `json:"ai_response"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}
