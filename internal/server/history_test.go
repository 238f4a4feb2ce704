package server

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/stats"
	"github.com/mtsang/chatwire/internal/types"
	"github.com/stretchr/testify/assert"
)

func messageRows(chatroomId int, ids ...int) []database.MessageWithUser {
	rows := make([]database.MessageWithUser, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, database.MessageWithUser{
			Message: database.Message{
				Id:         id,
				ChatroomId: chatroomId,
				UserId:     1,
				Content:    fmt.Sprintf("message %d", id),
				CreatedAt:  time.Unix(int64(id), 0),
			},
			Username: "alice",
		})
	}
	return rows
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func messageIds(messages []types.Message) []int {
	ids := make([]int, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.Id)
	}
	return ids
}

func TestHandleHistory(t *testing.T) {
	t.Run("anchors on oldest unread", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("IsChatroomMember", 1, 10).Return(true, nil).Once()
		db.On("GetOldestUnread", 1, 10).Return(5, 3, nil).Once()
		db.On("GetMessagesFromUnread", 1, 10, 5, 25).
			Return(messageRows(10, 3, 4, 5, 6, 7), nil).Once()
		db.On("GetUnreadFlags", 1, []int{3, 4, 5, 6, 7}).
			Return(map[int]bool{5: true, 6: true, 7: true}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleHistory(c, &ClientFrame{Type: "history", ChatroomId: 10})

		resp, ok := nextMessage(t, c).(*HistoryResponse)
		assert.True(t, ok, "expected a history response")
		assert.Equal(t, "history", resp.Type)
		assert.Equal(t, 10, resp.ChatroomId)
		assert.Equal(t, []int{3, 4, 5, 6, 7}, messageIds(resp.Messages), "expected ascending id order")
		assert.Equal(t, 5, resp.OldestUnreadId)
		assert.Equal(t, 3, resp.UnreadCount)
		assert.False(t, resp.HasMoreMessages)

		assert.False(t, resp.Messages[0].IsUnread)
		assert.False(t, resp.Messages[1].IsUnread)
		assert.True(t, resp.Messages[2].IsUnread, "expected messages from the unread anchor to be flagged")
		assert.True(t, resp.Messages[4].IsUnread)
	})

	t.Run("falls back to recent window when nothing unread", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("IsChatroomMember", 1, 10).Return(true, nil).Once()
		db.On("GetOldestUnread", 1, 10).Return(0, 0, nil).Once()
		db.On("GetRecentMessages", 1, 10, 50).Return(messageRows(10, 8, 9, 10), nil).Once()
		db.On("GetUnreadFlags", 1, []int{8, 9, 10}).Return(map[int]bool{}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleHistory(c, &ClientFrame{Type: "history", ChatroomId: 10})

		resp := nextMessage(t, c).(*HistoryResponse)
		assert.Equal(t, []int{8, 9, 10}, messageIds(resp.Messages))
		assert.Zero(t, resp.OldestUnreadId)
		assert.Zero(t, resp.UnreadCount)
		assert.False(t, resp.HasMoreMessages)
	})

	t.Run("target window echoes the target id", func(t *testing.T) {
		ids := make([]int, 0, 51)
		for id := 475; id <= 525; id++ {
			ids = append(ids, id)
		}

		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("IsChatroomMember", 1, 10).Return(true, nil).Once()
		db.On("GetMessagesAround", 1, 10, 500, 25).Return(messageRows(10, ids...), nil).Once()
		db.On("GetUnreadFlags", 1, ids).Return(map[int]bool{}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleHistory(c, &ClientFrame{Type: "history", ChatroomId: 10, TargetMessageId: 500})

		resp := nextMessage(t, c).(*HistoryResponse)
		assert.Equal(t, 500, resp.TargetMessageId)
		assert.Equal(t, ids, messageIds(resp.Messages), "expected ascending id order around the target")
		assert.True(t, resp.HasMoreMessages, "expected has_more when the window met the page cap")
	})

	t.Run("missing chatroom id", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleHistory(c, &ClientFrame{Type: "history"})

		assert.Equal(t, errorFrame("Chatroom ID is required"), nextMessage(t, c))
	})
}

func TestHandleLoadMessages(t *testing.T) {
	t.Run("older page at the room's lowest id is empty", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("IsChatroomMember", 1, 10).Return(true, nil).Once()
		db.On("GetMessagesBefore", 1, 10, 1, 50).Return([]database.MessageWithUser{}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleLoadMessages(c, &ClientFrame{
			Type:               "load_messages",
			ChatroomId:         10,
			Direction:          "older",
			ReferenceMessageId: 1,
		})

		resp := nextMessage(t, c).(*LoadedMessagesResponse)
		assert.Equal(t, "loaded_messages", resp.Type)
		assert.Equal(t, "older", resp.Direction)
		assert.Empty(t, resp.Messages)
		assert.False(t, resp.HasMoreMessages)
		assert.False(t, resp.ShouldScroll)
	})

	t.Run("newer page scrolls and reports read", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("IsChatroomMember", 1, 10).Return(true, nil).Once()
		db.On("GetMessagesAfter", 1, 10, 7, 50).Return(messageRows(10, 8, 9), nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleLoadMessages(c, &ClientFrame{
			Type:               "load_messages",
			ChatroomId:         10,
			Direction:          "newer",
			ReferenceMessageId: 7,
		})

		resp := nextMessage(t, c).(*LoadedMessagesResponse)
		assert.Equal(t, []int{8, 9}, messageIds(resp.Messages))
		assert.True(t, resp.ShouldScroll)
		for _, m := range resp.Messages {
			assert.False(t, m.IsUnread, "explicitly paged messages are always read")
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleLoadMessages(c, &ClientFrame{Type: "load_messages", ChatroomId: 10, Direction: "older"})

		assert.Equal(t, errorFrame("Chatroom ID, direction, and reference message ID are required"), nextMessage(t, c))
	})
}

func TestHandleSync(t *testing.T) {
	t.Run("returns only the caller's own newer messages", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetSyncMessages", 10, 90, 1).Return(messageRows(10, 95, 96), nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleSync(c, &ClientFrame{Type: "sync", ChatroomId: 10, LastMessageId: 90})

		resp := nextMessage(t, c).(*SyncResponse)
		assert.Equal(t, "sync", resp.Type)
		assert.Len(t, resp.Messages, 2)
		assert.Equal(t, 95, resp.Messages[0].Id)
		assert.Equal(t, 96, resp.Messages[1].Id)
	})

	t.Run("nothing new sends nothing", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("GetSyncMessages", 10, 90, 1).Return([]database.MessageWithUser{}, nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleSync(c, &ClientFrame{Type: "sync", ChatroomId: 10, LastMessageId: 90})

		assertNoMessage(t, c)
	})

	t.Run("malformed frames are dropped silently", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleSync(c, &ClientFrame{Type: "sync", ChatroomId: 10})
		cs.handleSync(c, &ClientFrame{Type: "sync", LastMessageId: 90})

		assertNoMessage(t, c)
	})
}

func TestHandleMarkMessagesAsRead(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db := &database.MockChatRepository{}
		defer db.AssertExpectations(t)
		db.On("MarkMessagesAsRead", 1, 10).Return(nil).Once()

		cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleMarkMessagesAsRead(c, &ClientFrame{Type: "mark_messages_as_read", ChatroomId: 10})

		assert.Equal(t, &MarkReadResponse{
			Type:       "messages_marked_as_read",
			ChatroomId: 10,
			Success:    true,
		}, nextMessage(t, c))
	})

	t.Run("missing chatroom id", func(t *testing.T) {
		cs := newTestChatServer(t, &database.MockChatRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs)
		cs.sessions.Register(1, c)

		cs.handleMarkMessagesAsRead(c, &ClientFrame{Type: "mark_messages_as_read"})

		assert.Equal(t, errorFrame("Chatroom ID is required"), nextMessage(t, c))
	})
}

func TestHandleGetUnreadCounts(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("GetUnreadCounts", 1, 10).Return([]database.ChatroomUnread{
		{Id: 10, Name: "general", UnreadCount: 0},
		{Id: 11, Name: "team", IsGroup: true, UnreadCount: 4},
	}, nil).Once()

	cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs)
	cs.sessions.Register(1, c)

	cs.handleGetUnreadCounts(c, &ClientFrame{Type: "get_unread_counts", CurrentChatroomId: 10})

	assert.Equal(t, &UnreadCountsResponse{
		Type: "get_unread_counts",
		Chatrooms: []types.ChatroomUnread{
			{Id: 10, Name: "general", UnreadCount: 0},
			{Id: 11, Name: "team", IsGroup: true, UnreadCount: 4},
		},
	}, nextMessage(t, c))
}

func TestHandleUpdateChatroomList(t *testing.T) {
	db := &database.MockChatRepository{}
	defer db.AssertExpectations(t)
	db.On("GetChatroomList", 2).Return([]database.ChatroomSummary{
		{
			Id: 10, Name: "general", MemberCount: 2,
			LatestMessage: nullString("hello"),
		},
		{
			// group created by this user, no messages yet
			Id: 11, Name: "mine", IsGroup: true, MemberCount: 3,
			CreatedBy: 2, CreatorName: "bob",
		},
		{
			// group created by someone else, no messages yet
			Id: 12, Name: "theirs", IsGroup: true, MemberCount: 4,
			CreatedBy: 1, CreatorName: "alice", UnreadCount: 1,
		},
		{
			// two-member group: no "and N others" suffix
			Id: 13, Name: "pair", IsGroup: true, MemberCount: 2,
			CreatedBy: 1, CreatorName: "alice",
		},
	}, nil).Once()

	cs := newTestChatServer(t, db, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs)
	cs.sessions.Register(2, c)

	cs.handleUpdateChatroomList(c, &ClientFrame{Type: "update_chatroom_list"})

	resp := nextMessage(t, c).(*ChatroomListResponse)
	assert.Equal(t, "update_chatroom_list", resp.Type)
	assert.Len(t, resp.Chatrooms, 4)
	assert.Equal(t, "hello", resp.Chatrooms[0].LatestMessage)
	assert.Equal(t, "You created the group", resp.Chatrooms[1].LatestMessage)
	assert.Equal(t, "alice added you and 2 others to the group", resp.Chatrooms[2].LatestMessage)
	assert.Equal(t, "alice added you to the group", resp.Chatrooms[3].LatestMessage)
}
