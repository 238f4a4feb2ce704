package server

// Frame handlers for authentication, room residency, and the message
// pipeline. Every handler authorizes before it mutates and reports
// failures as error frames without closing the connection.

func (cs *ChatServer) handleAuth(c *Client, frame *ClientFrame) {
	if frame.Token == "" || frame.UserId == 0 {
		c.queueMessage(errorFrame("authentication failed"))
		return
	}

	valid, err := cs.db.ValidateWsToken(frame.Token, frame.UserId)
	if err != nil {
		cs.log.Println("ValidateWsToken:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	if !valid {
		c.queueMessage(errorFrame("Invalid or expired token"))
		return
	}

	_, reauth := cs.sessions.UserFor(c)
	if evicted := cs.sessions.Register(frame.UserId, c); evicted != nil {
		cs.log.Printf("evicting previous connection for user %d", frame.UserId)
		cs.stats.Decr("NumSessions")
	}
	if !reauth {
		cs.stats.Incr("NumSessions")
	}

	c.queueMessage(&AuthResponse{Type: "auth", Status: "success"})

	// Lazy sweep: auth traffic keeps the token table from growing
	// without a dedicated scheduler.
	if err := cs.db.DeleteExpiredWsTokens(); err != nil {
		cs.log.Println("DeleteExpiredWsTokens:", err)
	}
}

func (cs *ChatServer) handleJoin(c *Client, frame *ClientFrame) {
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

	room, err := cs.db.GetChatroom(frame.ChatroomId)
	if err != nil {
		cs.log.Println("GetChatroom:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	c.queueMessage(&JoinResponse{
		Type:       "join",
		Success:    true,
		RoomName:   room.Name,
		ChatroomId: room.Id,
	})

	// Joining a room implies wanting its history.
	cs.sendHistory(c, userId, frame.ChatroomId, 0)
}

func (cs *ChatServer) handleLeave(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 {
		c.queueMessage(errorFrame("Chatroom ID is required"))
		return
	}

	if _, ok := cs.authedUser(c); !ok {
		return
	}

	// Presence-only: durable departure goes through the HTTP leave
	// endpoint.
	c.queueMessage(&LeaveResponse{
		Type:       "leave",
		Success:    true,
		ChatroomId: frame.ChatroomId,
	})
}

// handleChat runs the send pipeline: authorize, persist the message
// and its unread fan-out, then push to every member with a live
// session. Persistence commits before any push, so a failed push never
// loses the message.
func (cs *ChatServer) handleChat(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 || frame.Message == "" {
		c.queueMessage(errorFrame("Chatroom ID and message are required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	if !cs.requireMember(c, userId, frame.ChatroomId) {
		return
	}

	msg, err := cs.db.CreateMessageWithUnread(frame.ChatroomId, userId, frame.Message)
	if err != nil {
		cs.log.Println("CreateMessageWithUnread:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	author, err := cs.db.GetAccountById(userId)
	if err != nil {
		cs.log.Println("GetAccountById:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return
	}

	event := &MessageEvent{
		Type:       "message",
		Id:         msg.Id,
		ChatroomId: msg.ChatroomId,
		UserId:     msg.UserId,
		Username:   author.Username,
		Message:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}

	cs.stats.Incr("MessagesSent")
	cs.pushToMembers(frame.ChatroomId, func(memberId int) any { return event })
}

// requireMember enforces the room membership predicate. The rejection
// wording never reveals whether the room exists.
func (cs *ChatServer) requireMember(c *Client, userId, chatroomId int) bool {
	member, err := cs.db.IsChatroomMember(userId, chatroomId)
	if err != nil {
		cs.log.Println("IsChatroomMember:", err)
		c.queueMessage(errorFrame("An error occurred while processing your request"))
		return false
	}

	if !member {
		c.queueMessage(errorFrame("You are not a member of this chatroom"))
		return false
	}

	return true
}

// pushToMembers delivers a per-member payload to every active member
// of the room with a live session. Delivery is best effort; members
// without a connection catch up through history on next connect.
func (cs *ChatServer) pushToMembers(chatroomId int, payload func(memberId int) any) {
	memberIds, err := cs.db.GetActiveMemberIds(chatroomId)
	if err != nil {
		cs.log.Println("GetActiveMemberIds:", err)
		return
	}

	for _, memberId := range memberIds {
		mc, ok := cs.sessions.Lookup(memberId)
		if !ok {
			continue
		}

		if p := payload(memberId); p != nil {
			mc.queueMessage(p)
			cs.stats.Incr("FanoutPushes")
		}
	}
}
