package chat

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"geofriends-service/internal/models"
	"geofriends-service/internal/repositories"
)

var (
	ErrNotMember          = errors.New("not a chat member")
	ErrNotSender          = errors.New("only the sender may modify a message")
	ErrEditWindowClosed   = errors.New("edit window closed")
	ErrDeleteWindowClosed = errors.New("delete window closed")
	ErrGroupClearRequest  = errors.New("cannot request clearing of the group chat")
	ErrSelfChat           = errors.New("cannot open a chat with yourself")
	ErrEmptyText          = errors.New("message text is empty")
)

// Broadcaster fans chat events out to connected clients.
type Broadcaster interface {
	BroadcastChatEvent(chatID string, event models.ChatEvent)
}

// Engine owns the chat lifecycle: message send/edit/delete with grace
// windows, the two-tier clear workflow, membership resync of the group chat,
// and unread computation.
type Engine struct {
	users    repositories.UserRepository
	chats    repositories.ChatRepository
	messages repositories.MessageRepository
	states   repositories.StateRepository
	settings repositories.SettingsRepository

	windows     *Windows
	broadcaster Broadcaster
	now         func() time.Time
}

// NewEngine builds an Engine. broadcaster may be nil.
func NewEngine(
	users repositories.UserRepository,
	chats repositories.ChatRepository,
	messages repositories.MessageRepository,
	states repositories.StateRepository,
	settings repositories.SettingsRepository,
	windows *Windows,
	broadcaster Broadcaster,
) *Engine {
	return &Engine{
		users:       users,
		chats:       chats,
		messages:    messages,
		states:      states,
		settings:    settings,
		windows:     windows,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

// Windows exposes the countdown registry for wiring its ticker.
func (e *Engine) Windows() *Windows {
	return e.windows
}

// GeneralChat returns the single group chat, creating it on first access and
// resynchronizing its membership with the current approved-user set.
func (e *Engine) GeneralChat(ctx context.Context) (models.Chat, error) {
	approved, err := e.users.ListApproved(ctx)
	if err != nil {
		return models.Chat{}, err
	}
	memberIDs := make([]string, 0, len(approved))
	for _, u := range approved {
		memberIDs = append(memberIDs, u.ID)
	}

	chat, err := e.chats.GetChat(ctx, models.GeneralChatID)
	if errors.Is(err, repositories.ErrChatNotFound) {
		return e.chats.CreateGeneral(ctx, memberIDs)
	}
	if err != nil {
		return models.Chat{}, err
	}

	updates := map[string]any{}
	if chat.LastMessageTimestamp.IsZero() {
		chat.LastMessageTimestamp = e.now().UTC()
		updates["lastMessageTimestamp"] = chat.LastMessageTimestamp
	}
	if chat.ClearRequestBy == nil {
		chat.ClearRequestBy = []string{}
		updates["clearRequestBy"] = chat.ClearRequestBy
	}
	if !sameMembers(chat.MemberIDs, memberIDs) {
		chat.MemberIDs = memberIDs
		updates["memberIds"] = memberIDs
	}
	if len(updates) > 0 {
		if err := e.chats.UpdateFields(ctx, chat.ID, updates); err != nil {
			return models.Chat{}, err
		}
	}
	return chat, nil
}

// PrivateChat returns the chat between the two users, creating it if absent.
func (e *Engine) PrivateChat(ctx context.Context, userID, partnerID string) (models.Chat, error) {
	if userID == partnerID {
		return models.Chat{}, ErrSelfChat
	}
	if _, err := e.users.GetByID(ctx, partnerID); err != nil {
		return models.Chat{}, err
	}
	return e.chats.GetOrCreatePrivate(ctx, userID, partnerID)
}

// OpenChat returns the chat's messages for a member, marks the chat read,
// and arms the caller's edit/delete countdowns for their latest non-deleted
// message if its window has not been consumed yet. Re-opening a chat or
// receiving the same snapshot again never restarts a window.
func (e *Engine) OpenChat(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	chat, err := e.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasMember(userID) {
		return nil, ErrNotMember
	}

	msgs, err := e.messages.List(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// Switching chats abandons any countdown armed elsewhere.
	e.windows.Abandon(userID, chatID)

	if last := latestOwnMessage(msgs, userID); last != nil && !last.IsExpired {
		timings, err := e.settings.GetTimings(ctx)
		if err != nil {
			return nil, err
		}
		if err := e.messages.MarkExpired(ctx, last.ID); err != nil {
			return nil, err
		}
		e.windows.Arm(userID, chatID, last.ID, timings.EditMessageTime, timings.DeleteMessageTime)
	}

	if err := e.states.MarkRead(ctx, userID, chatID, e.now().UTC()); err != nil {
		return nil, err
	}
	return msgs, nil
}

// SendMessage appends a message and updates the chat's denormalized summary.
// It is a silent no-op when the sender's chat access is disabled or the text
// is blank. Returns the message and whether anything was sent.
func (e *Engine) SendMessage(ctx context.Context, chatID, senderID, text string) (models.Message, bool, error) {
	sender, err := e.users.GetByID(ctx, senderID)
	if err != nil {
		return models.Message{}, false, err
	}
	if !sender.ChatEnabled || strings.TrimSpace(text) == "" {
		return models.Message{}, false, nil
	}

	chat, err := e.chats.GetChat(ctx, chatID)
	if err != nil {
		return models.Message{}, false, err
	}
	if !chat.HasMember(senderID) {
		return models.Message{}, false, ErrNotMember
	}

	msg, err := e.messages.Create(ctx, chatID, senderID, text)
	if err != nil {
		return models.Message{}, false, err
	}

	// Summary update is a separate write: eventually consistent within the
	// same logical operation, not atomic with the insert.
	err = e.chats.UpdateFields(ctx, chatID, map[string]any{
		"lastMessageTimestamp": msg.Timestamp,
		"lastMessageBy":        senderID,
		"lastMessageText":      msg.Text,
	})
	if err != nil {
		return models.Message{}, false, err
	}

	// The new message becomes the sender's countdown target; any in-flight
	// window for the previous message is abandoned.
	timings, err := e.settings.GetTimings(ctx)
	if err != nil {
		return models.Message{}, false, err
	}
	if err := e.messages.MarkExpired(ctx, msg.ID); err != nil {
		return models.Message{}, false, err
	}
	e.windows.Arm(senderID, chatID, msg.ID, timings.EditMessageTime, timings.DeleteMessageTime)

	e.broadcast(chatID, models.ChatEvent{Type: "message", Message: &msg})
	return msg, true, nil
}

// EditMessage rewrites a message while the sender's edit window is open.
func (e *Engine) EditMessage(ctx context.Context, chatID, messageID, userID, newText string) error {
	if strings.TrimSpace(newText) == "" {
		return ErrEmptyText
	}
	msg, err := e.messages.Get(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return ErrNotSender
	}
	if !e.windows.CanEdit(userID, chatID, messageID) {
		return ErrEditWindowClosed
	}
	if err := e.messages.SetText(ctx, messageID, newText, true); err != nil {
		return err
	}
	msg.Text = newText
	msg.IsEdited = true
	e.broadcast(chatID, models.ChatEvent{Type: "edited", Message: &msg})
	return nil
}

// DeleteMessage soft-deletes a message while the sender's delete window is
// open. The row is retained with the fixed placeholder text.
func (e *Engine) DeleteMessage(ctx context.Context, chatID, messageID, userID string) error {
	msg, err := e.messages.Get(ctx, chatID, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return ErrNotSender
	}
	if !e.windows.CanDelete(userID, chatID, messageID) {
		return ErrDeleteWindowClosed
	}
	if err := e.messages.SoftDelete(ctx, messageID); err != nil {
		return err
	}
	// A deleted message cannot be edited afterwards.
	e.windows.Drop(userID)
	e.broadcast(chatID, models.ChatEvent{Type: "deleted", MessageID: messageID})
	return nil
}

// RequestClear records a member's request for an admin to purge a private
// chat. The group chat never accepts clear requests. Requesting twice is
// idempotent.
func (e *Engine) RequestClear(ctx context.Context, chatID, userID string) error {
	chat, err := e.chats.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.IsGroup {
		return ErrGroupClearRequest
	}
	if !chat.HasMember(userID) {
		return ErrNotMember
	}
	return e.chats.AddClearRequest(ctx, chatID, userID)
}

// Purge executes the admin-tier clear: every message is deleted atomically
// with the chat update. A vanished chat is a no-op.
func (e *Engine) Purge(ctx context.Context, chatID string) error {
	if err := e.chats.DeleteRecursively(ctx, chatID); err != nil {
		return err
	}
	e.broadcast(chatID, models.ChatEvent{Type: "cleared"})
	return nil
}

// ClearRequests lists chats with pending clear requests, for the admin view.
func (e *Engine) ClearRequests(ctx context.Context) ([]models.Chat, error) {
	return e.chats.ListClearRequested(ctx)
}

// MarkRead upserts the user's last-read timestamp for the chat.
func (e *Engine) MarkRead(ctx context.Context, userID, chatID string) error {
	return e.states.MarkRead(ctx, userID, chatID, e.now().UTC())
}

// UnreadStates computes the unread flag for every chat the user belongs to.
// The result is derived purely from current state, so repeated evaluation
// with the same inputs is idempotent.
func (e *Engine) UnreadStates(ctx context.Context, userID string) ([]models.UnreadState, error) {
	chats, err := e.chats.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	states := make([]models.UnreadState, 0, len(chats))
	for _, chat := range chats {
		key := models.GeneralChatID
		if !chat.IsGroup {
			key = chat.PartnerOf(userID)
		}

		unread := false
		if chat.LastMessageBy != userID && !chat.LastMessageTimestamp.IsZero() {
			state, err := e.states.Get(ctx, userID, chat.ID)
			if err != nil {
				return nil, err
			}
			unread = chat.LastMessageTimestamp.After(state.LastReadTimestamp)
		}
		states = append(states, models.UnreadState{Key: key, ChatID: chat.ID, Unread: unread})
	}
	return states, nil
}

func (e *Engine) broadcast(chatID string, event models.ChatEvent) {
	if e.broadcaster != nil {
		e.broadcaster.BroadcastChatEvent(chatID, event)
	}
}

func latestOwnMessage(msgs []models.Message, userID string) *models.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].SenderID == userID && !msgs[i].IsDeleted {
			return &msgs[i]
		}
	}
	return nil
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
