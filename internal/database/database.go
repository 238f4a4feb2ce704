package database

import "time"

// ChatRepository is the transactional query contract the chat core
// reads and writes through. Message ids are assigned by the store on
// insert and strictly increase with insertion order; every pagination
// and unread computation relies on that.
type ChatRepository interface {
	Ping() error

	// Accounts.
	CreateAccount(params CreateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)

	// Realtime auth tokens.
	CreateWsToken(userId int, token string, expiresAt time.Time) error
	ValidateWsToken(token string, userId int) (bool, error)
	DeleteExpiredWsTokens() error

	// Membership authority.
	IsChatroomMember(userId, chatroomId int) (bool, error)
	GetChatroom(chatroomId int) (Chatroom, error)
	GetGroupForCreator(chatroomId, userId int) (Chatroom, error)
	GetActiveMemberIds(chatroomId int) ([]int, error)
	CountActiveMembers(chatroomId int) (int, error)
	LeaveChatroom(userId, chatroomId, newAdminId int) error

	// Message pipeline.
	CreateMessageWithUnread(chatroomId, userId int, content string) (Message, error)

	// History windows. All exclude messages at-or-before the caller's
	// deletion watermark and system messages addressed to other users.
	GetOldestUnread(userId, chatroomId int) (oldestUnreadId, unreadCount int, err error)
	GetRecentMessages(userId, chatroomId, limit int) ([]MessageWithUser, error)
	GetMessagesFromUnread(userId, chatroomId, oldestUnreadId, beforeLimit int) ([]MessageWithUser, error)
	GetMessagesAround(userId, chatroomId, targetMessageId, limit int) ([]MessageWithUser, error)
	GetMessagesBefore(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error)
	GetMessagesAfter(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error)
	GetUnreadFlags(userId int, messageIds []int) (map[int]bool, error)
	GetSyncMessages(chatroomId, lastMessageId, userId int) ([]MessageWithUser, error)

	// Read tracking.
	MarkMessagesAsRead(userId, chatroomId int) error
	GetUnreadCounts(userId, currentChatroomId int) ([]ChatroomUnread, error)
	GetChatroomList(userId int) ([]ChatroomSummary, error)

	// Group lifecycle.
	CreateGroup(params CreateGroupParams) (CreateGroupResult, error)
	UpdateGroupSettings(params UpdateGroupSettingsParams) (map[int]Message, error)

	// Stars.
	HasMessageAccess(messageId, userId int) (bool, error)
	IsMessageStarred(messageId, userId int) (bool, error)
	StarMessage(messageId, userId int) error
	UnstarMessage(messageId, userId int) error
	ListStarredMessages(userId int) ([]StarredMessageDetail, error)

	// Deletion watermark.
	ClearChatroomHistory(userId, chatroomId int) error
}
