package models

import "time"

// DeletedPlaceholder replaces the text of a soft-deleted message. The
// original text is not recoverable afterwards.
const DeletedPlaceholder = "Mensaje eliminado"

// Message represents a chat message, ordered by timestamp ascending.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	ChatID    string    `bson:"chatId" json:"chat_id"`
	SenderID  string    `bson:"senderId" json:"sender_id"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`

	IsDeleted bool `bson:"isDeleted" json:"is_deleted"`
	IsEdited  bool `bson:"isEdited" json:"is_edited"`
	// IsExpired marks that the edit/delete grace window has already been
	// armed for this message, so reopening the chat cannot restart it.
	IsExpired bool `bson:"isExpired" json:"is_expired"`
}

// ChatEvent is broadcast through websockets.
type ChatEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID string   `json:"message_id,omitempty"`
}
