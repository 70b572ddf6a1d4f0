package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"geofriends-service/internal/models"
)

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Create(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepositoryMock) GetByID(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmail(ctx context.Context, email string) (models.User, error) {
	args := m.Called(ctx, email)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetByEmailAndToken(ctx context.Context, email, token string) (models.User, error) {
	args := m.Called(ctx, email, token)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) FindAdmin(ctx context.Context) (models.User, error) {
	args := m.Called(ctx)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) ListApproved(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) ListAll(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

func (m *UserRepositoryMock) UpdateFields(ctx context.Context, userID string, fields map[string]any) error {
	args := m.Called(ctx, userID, fields)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetPresence(ctx context.Context, userID string, online bool, location *models.Location) error {
	args := m.Called(ctx, userID, online, location)
	return args.Error(0)
}

func (m *UserRepositoryMock) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) CreateGeneral(ctx context.Context, memberIDs []string) (models.Chat, error) {
	args := m.Called(ctx, memberIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetOrCreatePrivate(ctx context.Context, userA, userB string) (models.Chat, error) {
	args := m.Called(ctx, userA, userB)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) UpdateFields(ctx context.Context, chatID string, fields map[string]any) error {
	args := m.Called(ctx, chatID, fields)
	return args.Error(0)
}

func (m *ChatRepositoryMock) AddClearRequest(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *ChatRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) ListClearRequested(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatRepositoryMock) DeleteRecursively(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, chatID, senderID, text string) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) List(ctx context.Context, chatID string) ([]models.Message, error) {
	args := m.Called(ctx, chatID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) Get(ctx context.Context, chatID, messageID string) (models.Message, error) {
	args := m.Called(ctx, chatID, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SetText(ctx context.Context, messageID, newText string, edited bool) error {
	args := m.Called(ctx, messageID, newText, edited)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SoftDelete(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkExpired(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type StateRepositoryMock struct {
	mock.Mock
}

func (m *StateRepositoryMock) MarkRead(ctx context.Context, userID, chatID string, at time.Time) error {
	args := m.Called(ctx, userID, chatID, at)
	return args.Error(0)
}

func (m *StateRepositoryMock) Get(ctx context.Context, userID, chatID string) (models.UserChatState, error) {
	args := m.Called(ctx, userID, chatID)
	var state models.UserChatState
	if val := args.Get(0); val != nil {
		state = val.(models.UserChatState)
	}
	return state, args.Error(1)
}

type SettingsRepositoryMock struct {
	mock.Mock
}

func (m *SettingsRepositoryMock) GetBranding(ctx context.Context) (models.BrandingSettings, error) {
	args := m.Called(ctx)
	var settings models.BrandingSettings
	if val := args.Get(0); val != nil {
		settings = val.(models.BrandingSettings)
	}
	return settings, args.Error(1)
}

func (m *SettingsRepositoryMock) UpdateBranding(ctx context.Context, settings models.BrandingSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *SettingsRepositoryMock) GetTimings(ctx context.Context) (models.TimingSettings, error) {
	args := m.Called(ctx)
	var settings models.TimingSettings
	if val := args.Get(0); val != nil {
		settings = val.(models.TimingSettings)
	}
	return settings, args.Error(1)
}

func (m *SettingsRepositoryMock) UpdateTimings(ctx context.Context, settings models.TimingSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

type MailerMock struct {
	mock.Mock
}

func (m *MailerMock) SendVerificationEmail(to, token string) error {
	args := m.Called(to, token)
	return args.Error(0)
}

func (m *MailerMock) SendSupportEmail(adminEmail, userEmail, userName, message string) error {
	args := m.Called(adminEmail, userEmail, userName, message)
	return args.Error(0)
}
