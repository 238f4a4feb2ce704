package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockChatRepository) CreateWsToken(userId int, token string, expiresAt time.Time) error {
	args := m.Called(userId, token, expiresAt)
	return args.Error(0)
}
func (m *MockChatRepository) ValidateWsToken(token string, userId int) (bool, error) {
	args := m.Called(token, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) DeleteExpiredWsTokens() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockChatRepository) IsChatroomMember(userId, chatroomId int) (bool, error) {
	args := m.Called(userId, chatroomId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) GetChatroom(chatroomId int) (Chatroom, error) {
	args := m.Called(chatroomId)
	return args.Get(0).(Chatroom), args.Error(1)
}
func (m *MockChatRepository) GetGroupForCreator(chatroomId, userId int) (Chatroom, error) {
	args := m.Called(chatroomId, userId)
	return args.Get(0).(Chatroom), args.Error(1)
}
func (m *MockChatRepository) GetActiveMemberIds(chatroomId int) ([]int, error) {
	args := m.Called(chatroomId)
	return args.Get(0).([]int), args.Error(1)
}
func (m *MockChatRepository) CountActiveMembers(chatroomId int) (int, error) {
	args := m.Called(chatroomId)
	return args.Int(0), args.Error(1)
}
func (m *MockChatRepository) LeaveChatroom(userId, chatroomId, newAdminId int) error {
	args := m.Called(userId, chatroomId, newAdminId)
	return args.Error(0)
}
func (m *MockChatRepository) CreateMessageWithUnread(chatroomId, userId int, content string) (Message, error) {
	args := m.Called(chatroomId, userId, content)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockChatRepository) GetOldestUnread(userId, chatroomId int) (int, int, error) {
	args := m.Called(userId, chatroomId)
	return args.Int(0), args.Int(1), args.Error(2)
}
func (m *MockChatRepository) GetRecentMessages(userId, chatroomId, limit int) ([]MessageWithUser, error) {
	args := m.Called(userId, chatroomId, limit)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) GetMessagesFromUnread(userId, chatroomId, oldestUnreadId, beforeLimit int) ([]MessageWithUser, error) {
	args := m.Called(userId, chatroomId, oldestUnreadId, beforeLimit)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) GetMessagesAround(userId, chatroomId, targetMessageId, limit int) ([]MessageWithUser, error) {
	args := m.Called(userId, chatroomId, targetMessageId, limit)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) GetMessagesBefore(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error) {
	args := m.Called(userId, chatroomId, referenceMessageId, limit)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) GetMessagesAfter(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error) {
	args := m.Called(userId, chatroomId, referenceMessageId, limit)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) GetUnreadFlags(userId int, messageIds []int) (map[int]bool, error) {
	args := m.Called(userId, messageIds)
	return args.Get(0).(map[int]bool), args.Error(1)
}
func (m *MockChatRepository) GetSyncMessages(chatroomId, lastMessageId, userId int) ([]MessageWithUser, error) {
	args := m.Called(chatroomId, lastMessageId, userId)
	return args.Get(0).([]MessageWithUser), args.Error(1)
}
func (m *MockChatRepository) MarkMessagesAsRead(userId, chatroomId int) error {
	args := m.Called(userId, chatroomId)
	return args.Error(0)
}
func (m *MockChatRepository) GetUnreadCounts(userId, currentChatroomId int) ([]ChatroomUnread, error) {
	args := m.Called(userId, currentChatroomId)
	return args.Get(0).([]ChatroomUnread), args.Error(1)
}
func (m *MockChatRepository) GetChatroomList(userId int) ([]ChatroomSummary, error) {
	args := m.Called(userId)
	return args.Get(0).([]ChatroomSummary), args.Error(1)
}
func (m *MockChatRepository) CreateGroup(params CreateGroupParams) (CreateGroupResult, error) {
	args := m.Called(params)
	return args.Get(0).(CreateGroupResult), args.Error(1)
}
func (m *MockChatRepository) UpdateGroupSettings(params UpdateGroupSettingsParams) (map[int]Message, error) {
	args := m.Called(params)
	return args.Get(0).(map[int]Message), args.Error(1)
}
func (m *MockChatRepository) HasMessageAccess(messageId, userId int) (bool, error) {
	args := m.Called(messageId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) IsMessageStarred(messageId, userId int) (bool, error) {
	args := m.Called(messageId, userId)
	return args.Bool(0), args.Error(1)
}
func (m *MockChatRepository) StarMessage(messageId, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
func (m *MockChatRepository) UnstarMessage(messageId, userId int) error {
	args := m.Called(messageId, userId)
	return args.Error(0)
}
func (m *MockChatRepository) ListStarredMessages(userId int) ([]StarredMessageDetail, error) {
	args := m.Called(userId)
	return args.Get(0).([]StarredMessageDetail), args.Error(1)
}
func (m *MockChatRepository) ClearChatroomHistory(userId, chatroomId int) error {
	args := m.Called(userId, chatroomId)
	return args.Error(0)
}
