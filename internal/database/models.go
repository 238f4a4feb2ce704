package database

import (
	"database/sql"
	"time"
)

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Chatroom struct {
	Id          int
	Name        string
	Description string
	CreatedBy   int
	IsGroup     bool
	CreatedAt   time.Time
}

type Membership struct {
	Id         int
	ChatroomId int
	UserId     int
	IsActive   bool
}

type Message struct {
	Id         int
	ChatroomId int
	UserId     int
	Content    string
	IsSystem   bool
	CreatedAt  time.Time
}

// MessageWithUser is a message row joined with its author's username,
// the shape every history query returns.
type MessageWithUser struct {
	Message
	Username string
}

type WsToken struct {
	Id        int
	UserId    int
	Token     string
	ExpiresAt time.Time
}

type StarredMessage struct {
	Id        int
	MessageId int
	UserId    int
	StarredAt time.Time
	DeletedAt sql.NullTime
}

type StarredMessageDetail struct {
	Id           int
	Username     string
	UserId       int
	Content      string
	CreatedAt    time.Time
	ChatroomName string
	ChatroomId   int
}

type ChatroomSummary struct {
	Id            int
	Name          string
	Description   string
	IsGroup       bool
	CreatedBy     int
	CreatorName   string
	MemberCount   int
	UnreadCount   int
	LatestMessage sql.NullString
}

type ChatroomUnread struct {
	Id          int
	Name        string
	IsGroup     bool
	UnreadCount int
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

// CreateGroupParams carries everything the group-creation transaction
// inserts: the room, one active membership per member id (creator
// included), and one personalized system message per member, keyed by
// recipient user id.
type CreateGroupParams struct {
	Name           string
	CreatorId      int
	MemberIds      []int
	SystemMessages map[int]string
}

type CreateGroupResult struct {
	Chatroom       Chatroom
	CreatorName    string
	MemberCount    int
	SystemMessages map[int]Message
}

// UpdateGroupSettingsParams carries the settings-update transaction:
// the new room row values plus one personalized system message per
// active member, keyed by recipient user id.
type UpdateGroupSettingsParams struct {
	ChatroomId     int
	Name           string
	Description    string
	SystemMessages map[int]string
}
