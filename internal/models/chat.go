package models

import "time"

// GeneralChatID is the fixed document id of the single group chat.
const GeneralChatID = "general"

// Chat represents a conversation: exactly one group chat plus at most one
// private chat per unordered pair of users.
type Chat struct {
	ID        string   `bson:"_id" json:"id"`
	IsGroup   bool     `bson:"isGroup" json:"is_group"`
	Name      string   `bson:"name,omitempty" json:"name,omitempty"`
	MemberIDs []string `bson:"memberIds" json:"member_ids"`

	LastMessageTimestamp time.Time `bson:"lastMessageTimestamp" json:"last_message_timestamp"`
	LastMessageBy        string    `bson:"lastMessageBy,omitempty" json:"last_message_by,omitempty"`
	LastMessageText      string    `bson:"lastMessageText,omitempty" json:"last_message_text,omitempty"`

	// ClearRequestBy collects users who asked an admin to purge this chat.
	// Meaningful only for private chats.
	ClearRequestBy []string `bson:"clearRequestBy" json:"clear_request_by"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
}

// HasMember reports whether the user belongs to the chat.
func (c Chat) HasMember(userID string) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// PartnerOf returns the other member of a private chat.
func (c Chat) PartnerOf(userID string) string {
	for _, id := range c.MemberIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// UserChatState tracks when a user last opened a chat, for unread
// computation.
type UserChatState struct {
	UserID            string    `bson:"userId" json:"user_id"`
	ChatID            string    `bson:"chatId" json:"chat_id"`
	LastReadTimestamp time.Time `bson:"lastReadTimestamp" json:"last_read_timestamp"`
}

// UnreadState reports the unread flag for one chat, keyed "general" for the
// group chat or by the partner's user id for private chats.
type UnreadState struct {
	Key    string `json:"key"`
	ChatID string `json:"chat_id"`
	Unread bool   `json:"unread"`
}
