package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Message struct {
	Id         int       `json:"id"`
	ChatroomId int       `json:"chatroom_id"`
	UserId     int       `json:"user_id"`
	Username   string    `json:"username"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	IsUnread   bool      `json:"is_unread"`
	IsSystem   bool      `json:"is_system"`
}

// SystemMessage is the personalized room-lifecycle message a single
// recipient sees. One logical event produces one row per member, each
// addressed via its user id.
type SystemMessage struct {
	Id        int       `json:"id,omitempty"`
	Type      string    `json:"type"`
	IsSystem  bool      `json:"is_system"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatroomSummary is one row of the caller's chatroom list.
type ChatroomSummary struct {
	Id            int    `json:"id"`
	Name          string `json:"name"`
	IsGroup       bool   `json:"is_group"`
	MemberCount   int    `json:"member_count"`
	UnreadCount   int    `json:"unread_count"`
	LatestMessage string `json:"latest_message"`
	CreatedBy     int    `json:"created_by"`
	CreatorName   string `json:"creator_name"`
}

type ChatroomUnread struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	IsGroup     bool   `json:"is_group"`
	UnreadCount int    `json:"unread_count"`
}

type GroupSettings struct {
	Id          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type StarredMessage struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	UserId       int       `json:"user_id"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	ChatroomName string    `json:"chatroom_name"`
	ChatroomId   int       `json:"chatroom_id"`
}
