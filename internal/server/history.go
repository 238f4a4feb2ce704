package server

import (
	"fmt"

	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/types"
)

const (
	// historyPageCap bounds each side of a history window and doubles
	// as the has_more threshold for history responses.
	historyPageCap = 25
	// recentPageCap is the window size when the user has nothing
	// unread in the room.
	recentPageCap = 50
	// loadPageCap bounds a directional load_messages page.
	loadPageCap = 50
)

func (cs *ChatServer) handleHistory(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 {
		c.queueMessage(errorFrame("Chatroom ID is required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	if !cs.requireMember(c, userId, frame.ChatroomId) {
		return
	}

	cs.sendHistory(c, userId, frame.ChatroomId, frame.TargetMessageId)
}

// sendHistory serves the initial history window for a room. With a
// target id it returns up to historyPageCap messages either side of
// the target; otherwise it anchors on the caller's oldest unread
// message, falling back to the most recent recentPageCap messages
// when nothing is unread. Rows arrive from the repository already in
// ascending id order.
func (cs *ChatServer) sendHistory(c *Client, userId, chatroomId, targetMessageId int) {
	var (
		rows           []database.MessageWithUser
		oldestUnreadId int
		unreadCount    int
		err            error
	)

	if targetMessageId != 0 {
		rows, err = cs.db.GetMessagesAround(userId, chatroomId, targetMessageId, historyPageCap)
	} else {
		oldestUnreadId, unreadCount, err = cs.db.GetOldestUnread(userId, chatroomId)
		if err == nil {
			if oldestUnreadId != 0 {
				rows, err = cs.db.GetMessagesFromUnread(userId, chatroomId, oldestUnreadId, historyPageCap)
			} else {
				rows, err = cs.db.GetRecentMessages(userId, chatroomId, recentPageCap)
			}
		}
	}
	if err != nil {
		cs.log.Println("history query:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	messages, err := cs.annotateUnread(userId, rows)
	if err != nil {
		cs.log.Println("GetUnreadFlags:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	c.queueMessage(&HistoryResponse{
		Type:            "history",
		ChatroomId:      chatroomId,
		Messages:        messages,
		TargetMessageId: targetMessageId,
		HasMoreMessages: len(rows) >= historyPageCap,
		OldestUnreadId:  oldestUnreadId,
		UnreadCount:     unreadCount,
	})
}

func (cs *ChatServer) handleLoadMessages(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 || frame.Direction == "" || frame.ReferenceMessageId == 0 {
		c.queueMessage(errorFrame("Chatroom ID, direction, and reference message ID are required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	if !cs.requireMember(c, userId, frame.ChatroomId) {
		return
	}

	var (
		rows []database.MessageWithUser
		err  error
	)
	if frame.Direction == "older" {
		rows, err = cs.db.GetMessagesBefore(userId, frame.ChatroomId, frame.ReferenceMessageId, loadPageCap)
	} else {
		rows, err = cs.db.GetMessagesAfter(userId, frame.ChatroomId, frame.ReferenceMessageId, loadPageCap)
	}
	if err != nil {
		cs.log.Println("load messages:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	// Explicitly paged messages are always reported as read.
	messages := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row, false))
	}

	c.queueMessage(&LoadedMessagesResponse{
		Type:            "loaded_messages",
		Direction:       frame.Direction,
		ChatroomId:      frame.ChatroomId,
		Messages:        messages,
		HasMoreMessages: len(rows) >= loadPageCap,
		ShouldScroll:    frame.Direction == "newer" && len(rows) > 0,
	})
}

// handleSync returns the caller's own messages newer than the given
// id. Malformed frames are dropped without an error response so a
// reconnect loop never triggers client-side alerts.
func (cs *ChatServer) handleSync(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 || frame.LastMessageId == 0 {
		return
	}

	userId, ok := cs.sessions.UserFor(c)
	if !ok {
		return
	}

	rows, err := cs.db.GetSyncMessages(frame.ChatroomId, frame.LastMessageId, userId)
	if err != nil {
		cs.log.Println("GetSyncMessages:", err)
		return
	}

	if len(rows) == 0 {
		return
	}

	events := make([]MessageEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, MessageEvent{
			Type:       "message",
			Id:         row.Id,
			ChatroomId: row.ChatroomId,
			UserId:     row.UserId,
			Username:   row.Username,
			Message:    row.Content,
			CreatedAt:  row.CreatedAt,
			IsSystem:   row.IsSystem,
		})
	}

	c.queueMessage(&SyncResponse{Type: "sync", Messages: events})
}

func (cs *ChatServer) handleMarkMessagesAsRead(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 {
		c.queueMessage(errorFrame("Chatroom ID is required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	if err := cs.db.MarkMessagesAsRead(userId, frame.ChatroomId); err != nil {
		cs.log.Println("MarkMessagesAsRead:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	c.queueMessage(&MarkReadResponse{
		Type:       "messages_marked_as_read",
		ChatroomId: frame.ChatroomId,
		Success:    true,
	})
}

func (cs *ChatServer) handleGetUnreadCounts(c *Client, frame *ClientFrame) {
	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	rows, err := cs.db.GetUnreadCounts(userId, frame.CurrentChatroomId)
	if err != nil {
		cs.log.Println("GetUnreadCounts:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	chatrooms := make([]types.ChatroomUnread, 0, len(rows))
	for _, row := range rows {
		chatrooms = append(chatrooms, types.ChatroomUnread{
			Id:          row.Id,
			Name:        row.Name,
			IsGroup:     row.IsGroup,
			UnreadCount: row.UnreadCount,
		})
	}

	c.queueMessage(&UnreadCountsResponse{Type: "get_unread_counts", Chatrooms: chatrooms})
}

func (cs *ChatServer) handleUpdateChatroomList(c *Client, frame *ClientFrame) {
	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	rows, err := cs.db.GetChatroomList(userId)
	if err != nil {
		cs.log.Println("GetChatroomList:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	chatrooms := make([]types.ChatroomSummary, 0, len(rows))
	for _, row := range rows {
		chatrooms = append(chatrooms, summarizeChatroom(row, userId))
	}

	c.queueMessage(&ChatroomListResponse{Type: "update_chatroom_list", Chatrooms: chatrooms})
}

// summarizeChatroom converts a chatroom list row, synthesizing the
// group-creation placeholder when the room has no visible messages
// yet.
func summarizeChatroom(row database.ChatroomSummary, userId int) types.ChatroomSummary {
	latest := row.LatestMessage.String
	if !row.LatestMessage.Valid && row.IsGroup {
		if row.CreatedBy == userId {
			latest = "You created the group"
		} else {
			latest = fmt.Sprintf("%s added you%s to the group",
				row.CreatorName, othersSuffix(row.MemberCount-2))
		}
	}

	return types.ChatroomSummary{
		Id:            row.Id,
		Name:          row.Name,
		IsGroup:       row.IsGroup,
		MemberCount:   row.MemberCount,
		UnreadCount:   row.UnreadCount,
		LatestMessage: latest,
		CreatedBy:     row.CreatedBy,
		CreatorName:   row.CreatorName,
	}
}

// othersSuffix renders the " and N others" fragment of a group
// system message, empty when there is nobody else to count.
func othersSuffix(othersCount int) string {
	if othersCount > 0 {
		return fmt.Sprintf(" and %d others", othersCount)
	}
	return ""
}

// annotateUnread converts history rows and flags each as unread when
// the caller holds an unresolved unread marker for it.
func (cs *ChatServer) annotateUnread(userId int, rows []database.MessageWithUser) ([]types.Message, error) {
	if len(rows) == 0 {
		return []types.Message{}, nil
	}

	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Id)
	}

	flags, err := cs.db.GetUnreadFlags(userId, ids)
	if err != nil {
		return nil, err
	}

	messages := make([]types.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, toMessage(row, flags[row.Id]))
	}

	return messages, nil
}

func toMessage(row database.MessageWithUser, isUnread bool) types.Message {
	return types.Message{
		Id:         row.Id,
		ChatroomId: row.ChatroomId,
		UserId:     row.UserId,
		Username:   row.Username,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt,
		IsUnread:   isUnread,
		IsSystem:   row.IsSystem,
	}
}
