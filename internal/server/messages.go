package server

import (
	"time"

	"github.com/mtsang/chatwire/internal/types"
)

// ClientFrame is the flat JSON frame clients send. Type selects the
// handler; the remaining fields are type-specific.
type ClientFrame struct {
	Type               string `json:"type"`
	Token              string `json:"token,omitempty"`
	UserId             int    `json:"user_id,omitempty"`
	ChatroomId         int    `json:"chatroom_id,omitempty"`
	Message            string `json:"message,omitempty"`
	TargetMessageId    int    `json:"target_message_id,omitempty"`
	Direction          string `json:"direction,omitempty"`
	ReferenceMessageId int    `json:"reference_message_id,omitempty"`
	LastMessageId      int    `json:"last_message_id,omitempty"`
	Name               string `json:"name,omitempty"`
	Description        string `json:"description,omitempty"`
	Members            []int  `json:"members,omitempty"`
	CurrentChatroomId  int    `json:"current_chatroom_id,omitempty"`
	Timestamp          int64  `json:"timestamp,omitempty"`
}

type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func errorFrame(message string) *ErrorFrame {
	return &ErrorFrame{Type: "error", Message: message}
}

type AuthResponse struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type JoinResponse struct {
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	RoomName   string `json:"room_name"`
	ChatroomId int    `json:"chatroom_id"`
}

type LeaveResponse struct {
	Type       string `json:"type"`
	Success    bool   `json:"success"`
	ChatroomId int    `json:"chatroom_id"`
}

// MessageEvent is a pushed chat message, also the element type of the
// sync response.
type MessageEvent struct {
	Type       string    `json:"type"`
	Id         int       `json:"id"`
	ChatroomId int       `json:"chatroom_id"`
	UserId     int       `json:"user_id"`
	Username   string    `json:"username"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
	IsSystem   bool      `json:"is_system"`
}

type HistoryResponse struct {
	Type            string          `json:"type"`
	ChatroomId      int             `json:"chatroom_id"`
	Messages        []types.Message `json:"messages"`
	TargetMessageId int             `json:"target_message_id,omitempty"`
	// HasMoreMessages is a row-count heuristic: true when the window
	// met its page cap, which can report a spurious true when exactly
	// cap rows exist.
	HasMoreMessages bool `json:"has_more_messages"`
	OldestUnreadId  int  `json:"oldest_unread_id,omitempty"`
	UnreadCount     int  `json:"unread_count"`
}

type LoadedMessagesResponse struct {
	Type            string          `json:"type"`
	Direction       string          `json:"direction"`
	ChatroomId      int             `json:"chatroom_id"`
	Messages        []types.Message `json:"messages"`
	HasMoreMessages bool            `json:"has_more_messages"`
	ShouldScroll    bool            `json:"should_scroll"`
}

type MarkReadResponse struct {
	Type       string `json:"type"`
	ChatroomId int    `json:"chatroom_id"`
	Success    bool   `json:"success"`
}

type UnreadCountsResponse struct {
	Type      string                 `json:"type"`
	Chatrooms []types.ChatroomUnread `json:"chatrooms"`
}

type ChatroomListResponse struct {
	Type      string                  `json:"type"`
	Chatrooms []types.ChatroomSummary `json:"chatrooms"`
}

type SyncResponse struct {
	Type     string         `json:"type"`
	Messages []MessageEvent `json:"messages"`
}

type GroupCreatedResponse struct {
	Type          string                `json:"type"`
	Success       bool                  `json:"success"`
	Chatroom      types.ChatroomSummary `json:"chatroom"`
	SystemMessage types.SystemMessage   `json:"system_message"`
}

type NewGroupNotification struct {
	Type          string                `json:"type"`
	Chatroom      types.ChatroomSummary `json:"chatroom"`
	SystemMessage types.SystemMessage   `json:"system_message"`
}

type GroupSettingsUpdatedResponse struct {
	Type               string               `json:"type"`
	Success            bool                 `json:"success"`
	ChatroomId         int                  `json:"chatroom_id"`
	Message            string               `json:"message,omitempty"`
	Settings           types.GroupSettings  `json:"settings"`
	SystemMessage      *types.SystemMessage `json:"system_message,omitempty"`
	NameChanged        bool                 `json:"name_changed"`
	DescriptionChanged bool                 `json:"description_changed"`
	ChangedByUserId    int                  `json:"changed_by_user_id"`
}
