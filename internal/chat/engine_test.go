package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"geofriends-service/internal/mocks"
	"geofriends-service/internal/models"
	"geofriends-service/internal/repositories"
)

type engineFixture struct {
	users    *mocks.UserRepositoryMock
	chats    *mocks.ChatRepositoryMock
	messages *mocks.MessageRepositoryMock
	states   *mocks.StateRepositoryMock
	settings *mocks.SettingsRepositoryMock
	engine   *Engine
}

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		users:    new(mocks.UserRepositoryMock),
		chats:    new(mocks.ChatRepositoryMock),
		messages: new(mocks.MessageRepositoryMock),
		states:   new(mocks.StateRepositoryMock),
		settings: new(mocks.SettingsRepositoryMock),
	}
	f.engine = NewEngine(f.users, f.chats, f.messages, f.states, f.settings, NewWindows(), nil)
	return f
}

func (f *engineFixture) assertExpectations(t *testing.T) {
	f.users.AssertExpectations(t)
	f.chats.AssertExpectations(t)
	f.messages.AssertExpectations(t)
	f.states.AssertExpectations(t)
	f.settings.AssertExpectations(t)
}

func timings(edit, del int) models.TimingSettings {
	return models.TimingSettings{
		EditMessageTime:   edit,
		DeleteMessageTime: del,
		GPSInactiveTime:   60,
		GPSQueryTimeout:   10000,
	}
}

func TestSendMessageDisabledSenderIsSilentNoop(t *testing.T) {
	f := newEngineFixture()
	f.users.On("GetByID", mock.Anything, "u1").Return(models.User{ID: "u1", ChatEnabled: false}, nil).Once()

	_, sent, err := f.engine.SendMessage(context.Background(), "general", "u1", "hola")
	require.NoError(t, err)
	assert.False(t, sent)
	f.assertExpectations(t)
}

func TestSendMessageBlankTextIsSilentNoop(t *testing.T) {
	f := newEngineFixture()
	f.users.On("GetByID", mock.Anything, "u1").Return(models.User{ID: "u1", ChatEnabled: true}, nil).Once()

	_, sent, err := f.engine.SendMessage(context.Background(), "general", "u1", "   ")
	require.NoError(t, err)
	assert.False(t, sent)
	f.assertExpectations(t)
}

func TestSendMessageUpdatesSummaryAndArmsWindow(t *testing.T) {
	f := newEngineFixture()
	now := time.Now().UTC()
	msg := models.Message{ID: "m1", ChatID: "general", SenderID: "u1", Text: "hola", Timestamp: now}

	f.users.On("GetByID", mock.Anything, "u1").Return(models.User{ID: "u1", ChatEnabled: true}, nil).Once()
	f.chats.On("GetChat", mock.Anything, "general").Return(models.Chat{ID: "general", IsGroup: true, MemberIDs: []string{"u1", "u2"}}, nil).Once()
	f.messages.On("Create", mock.Anything, "general", "u1", "hola").Return(msg, nil).Once()
	f.chats.On("UpdateFields", mock.Anything, "general", map[string]any{
		"lastMessageTimestamp": now,
		"lastMessageBy":        "u1",
		"lastMessageText":      "hola",
	}).Return(nil).Once()
	f.settings.On("GetTimings", mock.Anything).Return(timings(30, 60), nil).Once()
	f.messages.On("MarkExpired", mock.Anything, "m1").Return(nil).Once()

	got, sent, err := f.engine.SendMessage(context.Background(), "general", "u1", "hola")
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, "m1", got.ID)

	assert.True(t, f.engine.Windows().CanEdit("u1", "general", "m1"))
	assert.True(t, f.engine.Windows().CanDelete("u1", "general", "m1"))
	f.assertExpectations(t)
}

func TestSendMessageNonMemberRejected(t *testing.T) {
	f := newEngineFixture()
	f.users.On("GetByID", mock.Anything, "u3").Return(models.User{ID: "u3", ChatEnabled: true}, nil).Once()
	f.chats.On("GetChat", mock.Anything, "priv:a:b").Return(models.Chat{ID: "priv:a:b", MemberIDs: []string{"a", "b"}}, nil).Once()

	_, _, err := f.engine.SendMessage(context.Background(), "priv:a:b", "u3", "hola")
	assert.ErrorIs(t, err, ErrNotMember)
	f.assertExpectations(t)
}

// Scenario: editMessageTime=10. An edit 5 seconds in succeeds; at 11 seconds
// the window has closed.
func TestEditWindowScenario(t *testing.T) {
	f := newEngineFixture()
	now := time.Now().UTC()
	msg := models.Message{ID: "m1", ChatID: "priv:a:b", SenderID: "a", Text: "hola", Timestamp: now}

	f.users.On("GetByID", mock.Anything, "a").Return(models.User{ID: "a", ChatEnabled: true}, nil).Once()
	f.chats.On("GetChat", mock.Anything, "priv:a:b").Return(models.Chat{ID: "priv:a:b", MemberIDs: []string{"a", "b"}}, nil).Once()
	f.messages.On("Create", mock.Anything, "priv:a:b", "a", "hola").Return(msg, nil).Once()
	f.chats.On("UpdateFields", mock.Anything, "priv:a:b", mock.Anything).Return(nil).Once()
	f.settings.On("GetTimings", mock.Anything).Return(timings(10, 10), nil).Once()
	f.messages.On("MarkExpired", mock.Anything, "m1").Return(nil).Once()

	_, sent, err := f.engine.SendMessage(context.Background(), "priv:a:b", "a", "hola")
	require.NoError(t, err)
	require.True(t, sent)

	for i := 0; i < 5; i++ {
		f.engine.Windows().Tick()
	}

	f.messages.On("Get", mock.Anything, "priv:a:b", "m1").Return(msg, nil).Twice()
	f.messages.On("SetText", mock.Anything, "m1", "hola editado", true).Return(nil).Once()
	require.NoError(t, f.engine.EditMessage(context.Background(), "priv:a:b", "m1", "a", "hola editado"))

	for i := 0; i < 6; i++ {
		f.engine.Windows().Tick()
	}

	err = f.engine.EditMessage(context.Background(), "priv:a:b", "m1", "a", "otra vez")
	assert.ErrorIs(t, err, ErrEditWindowClosed)
	f.assertExpectations(t)
}

func TestEditMessageOnlySender(t *testing.T) {
	f := newEngineFixture()
	msg := models.Message{ID: "m1", ChatID: "general", SenderID: "a"}
	f.messages.On("Get", mock.Anything, "general", "m1").Return(msg, nil).Once()

	err := f.engine.EditMessage(context.Background(), "general", "m1", "b", "hacked")
	assert.ErrorIs(t, err, ErrNotSender)
	f.assertExpectations(t)
}

func TestEditMessageEmptyTextRejected(t *testing.T) {
	f := newEngineFixture()
	err := f.engine.EditMessage(context.Background(), "general", "m1", "a", "  ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestDeleteMessageSoftDeletesWithinWindow(t *testing.T) {
	f := newEngineFixture()
	msg := models.Message{ID: "m1", ChatID: "general", SenderID: "a", Text: "hola"}
	f.engine.Windows().Arm("a", "general", "m1", 30, 60)

	f.messages.On("Get", mock.Anything, "general", "m1").Return(msg, nil).Once()
	f.messages.On("SoftDelete", mock.Anything, "m1").Return(nil).Once()

	require.NoError(t, f.engine.DeleteMessage(context.Background(), "general", "m1", "a"))

	// A deleted message cannot be edited afterwards.
	assert.False(t, f.engine.Windows().CanEdit("a", "general", "m1"))
	f.assertExpectations(t)
}

func TestDeleteMessageOutsideWindowRejected(t *testing.T) {
	f := newEngineFixture()
	msg := models.Message{ID: "m1", ChatID: "general", SenderID: "a"}
	f.messages.On("Get", mock.Anything, "general", "m1").Return(msg, nil).Once()

	err := f.engine.DeleteMessage(context.Background(), "general", "m1", "a")
	assert.ErrorIs(t, err, ErrDeleteWindowClosed)
	f.assertExpectations(t)
}

func TestRequestClearGroupChatRejected(t *testing.T) {
	f := newEngineFixture()
	f.chats.On("GetChat", mock.Anything, "general").Return(models.Chat{ID: "general", IsGroup: true, MemberIDs: []string{"a"}}, nil).Once()

	err := f.engine.RequestClear(context.Background(), "general", "a")
	assert.ErrorIs(t, err, ErrGroupClearRequest)
	f.assertExpectations(t)
}

func TestRequestClearPrivateChat(t *testing.T) {
	f := newEngineFixture()
	f.chats.On("GetChat", mock.Anything, "priv:a:b").Return(models.Chat{ID: "priv:a:b", MemberIDs: []string{"a", "b"}}, nil).Once()
	f.chats.On("AddClearRequest", mock.Anything, "priv:a:b", "a").Return(nil).Once()

	require.NoError(t, f.engine.RequestClear(context.Background(), "priv:a:b", "a"))
	f.assertExpectations(t)
}

func TestRequestClearNonMemberRejected(t *testing.T) {
	f := newEngineFixture()
	f.chats.On("GetChat", mock.Anything, "priv:a:b").Return(models.Chat{ID: "priv:a:b", MemberIDs: []string{"a", "b"}}, nil).Once()

	err := f.engine.RequestClear(context.Background(), "priv:a:b", "c")
	assert.ErrorIs(t, err, ErrNotMember)
	f.assertExpectations(t)
}

func TestPurgeDelegatesToRecursiveDelete(t *testing.T) {
	f := newEngineFixture()
	f.chats.On("DeleteRecursively", mock.Anything, "priv:a:b").Return(nil).Once()

	require.NoError(t, f.engine.Purge(context.Background(), "priv:a:b"))
	f.assertExpectations(t)
}

func TestOpenChatNonMemberRejected(t *testing.T) {
	f := newEngineFixture()
	f.chats.On("GetChat", mock.Anything, "priv:a:b").Return(models.Chat{ID: "priv:a:b", MemberIDs: []string{"a", "b"}}, nil).Once()

	_, err := f.engine.OpenChat(context.Background(), "priv:a:b", "c")
	assert.ErrorIs(t, err, ErrNotMember)
	f.assertExpectations(t)
}

func TestOpenChatArmsLatestOwnMessageOnce(t *testing.T) {
	f := newEngineFixture()
	msgs := []models.Message{
		{ID: "m1", ChatID: "general", SenderID: "a", Text: "uno"},
		{ID: "m2", ChatID: "general", SenderID: "b", Text: "dos"},
		{ID: "m3", ChatID: "general", SenderID: "a", Text: "tres"},
	}
	chatDoc := models.Chat{ID: "general", IsGroup: true, MemberIDs: []string{"a", "b"}}

	f.chats.On("GetChat", mock.Anything, "general").Return(chatDoc, nil).Once()
	f.messages.On("List", mock.Anything, "general").Return(msgs, nil).Once()
	f.settings.On("GetTimings", mock.Anything).Return(timings(30, 60), nil).Once()
	f.messages.On("MarkExpired", mock.Anything, "m3").Return(nil).Once()
	f.states.On("MarkRead", mock.Anything, "a", "general", mock.Anything).Return(nil).Once()

	got, err := f.engine.OpenChat(context.Background(), "general", "a")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.True(t, f.engine.Windows().CanEdit("a", "general", "m3"))

	// Re-opening after the window was consumed must not rearm: the snapshot
	// now carries isExpired=true for m3.
	f.engine.Windows().Drop("a")
	expired := append([]models.Message(nil), msgs...)
	expired[2].IsExpired = true

	f.chats.On("GetChat", mock.Anything, "general").Return(chatDoc, nil).Once()
	f.messages.On("List", mock.Anything, "general").Return(expired, nil).Once()
	f.states.On("MarkRead", mock.Anything, "a", "general", mock.Anything).Return(nil).Once()

	_, err = f.engine.OpenChat(context.Background(), "general", "a")
	require.NoError(t, err)
	assert.False(t, f.engine.Windows().CanEdit("a", "general", "m3"))
	f.assertExpectations(t)
}

func TestUnreadStates(t *testing.T) {
	f := newEngineFixture()
	now := time.Now().UTC()
	chats := []models.Chat{
		{ID: "general", IsGroup: true, MemberIDs: []string{"a", "b"}, LastMessageBy: "b", LastMessageTimestamp: now},
		{ID: "priv:a:b", MemberIDs: []string{"a", "b"}, LastMessageBy: "a", LastMessageTimestamp: now},
		{ID: "priv:a:c", MemberIDs: []string{"a", "c"}, LastMessageBy: "c", LastMessageTimestamp: now.Add(-time.Hour)},
	}

	f.chats.On("ListForUser", mock.Anything, "a").Return(chats, nil).Once()
	// Never opened the general chat.
	f.states.On("Get", mock.Anything, "a", "general").Return(models.UserChatState{}, nil).Once()
	// Read priv:a:c after its last message.
	f.states.On("Get", mock.Anything, "a", "priv:a:c").Return(models.UserChatState{LastReadTimestamp: now}, nil).Once()

	states, err := f.engine.UnreadStates(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, states, 3)

	byKey := map[string]models.UnreadState{}
	for _, s := range states {
		byKey[s.Key] = s
	}
	assert.True(t, byKey["general"].Unread)
	// Own last message never reads as unread.
	assert.False(t, byKey["b"].Unread)
	assert.False(t, byKey["c"].Unread)
	f.assertExpectations(t)
}

func TestUnreadStatesAfterGroupPurge(t *testing.T) {
	f := newEngineFixture()
	now := time.Now().UTC()
	// A purge resets the sender to empty and stamps the notice with a fresh
	// timestamp; a member who has not reopened the chat still sees it unread.
	chats := []models.Chat{
		{ID: "general", IsGroup: true, MemberIDs: []string{"a", "b"}, LastMessageBy: "", LastMessageTimestamp: now},
	}

	f.chats.On("ListForUser", mock.Anything, "a").Return(chats, nil).Once()
	f.states.On("Get", mock.Anything, "a", "general").Return(models.UserChatState{LastReadTimestamp: now.Add(-time.Hour)}, nil).Once()

	states, err := f.engine.UnreadStates(context.Background(), "a")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.True(t, states[0].Unread)
	f.assertExpectations(t)
}

func TestGeneralChatResyncsMembership(t *testing.T) {
	f := newEngineFixture()
	approved := []models.User{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	existing := models.Chat{
		ID:                   models.GeneralChatID,
		IsGroup:              true,
		MemberIDs:            []string{"a", "b"},
		LastMessageTimestamp: time.Now().UTC(),
		ClearRequestBy:       []string{},
	}

	f.users.On("ListApproved", mock.Anything).Return(approved, nil).Once()
	f.chats.On("GetChat", mock.Anything, models.GeneralChatID).Return(existing, nil).Once()
	f.chats.On("UpdateFields", mock.Anything, models.GeneralChatID, map[string]any{
		"memberIds": []string{"a", "b", "c"},
	}).Return(nil).Once()

	chatDoc, err := f.engine.GeneralChat(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, chatDoc.MemberIDs)
	f.assertExpectations(t)
}

func TestGeneralChatCreatedOnFirstAccess(t *testing.T) {
	f := newEngineFixture()
	approved := []models.User{{ID: "a"}}
	created := models.Chat{ID: models.GeneralChatID, IsGroup: true, MemberIDs: []string{"a"}}

	f.users.On("ListApproved", mock.Anything).Return(approved, nil).Once()
	f.chats.On("GetChat", mock.Anything, models.GeneralChatID).Return(models.Chat{}, repositories.ErrChatNotFound).Once()
	f.chats.On("CreateGeneral", mock.Anything, []string{"a"}).Return(created, nil).Once()

	chatDoc, err := f.engine.GeneralChat(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.GeneralChatID, chatDoc.ID)
	f.assertExpectations(t)
}

func TestPrivateChatSelfRejected(t *testing.T) {
	f := newEngineFixture()
	_, err := f.engine.PrivateChat(context.Background(), "a", "a")
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestPrivateChatUnknownPartnerRejected(t *testing.T) {
	f := newEngineFixture()
	f.users.On("GetByID", mock.Anything, "ghost").Return(models.User{}, repositories.ErrUserNotFound).Once()

	_, err := f.engine.PrivateChat(context.Background(), "a", "ghost")
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
	f.assertExpectations(t)
}
