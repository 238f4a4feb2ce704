package database

import (
	"database/sql"
	"errors"
)

// CreateMessageWithUnread persists a chat message and its unread
// fan-out in one transaction: the message row plus one unread marker
// for every other active member of the room. The returned message
// carries the store-assigned id.
func (db *PgChatRepository) CreateMessageWithUnread(chatroomId, userId int, content string) (Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Message{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO messages (chatroom_id, user_id, content, is_system, created_at) "+
			"VALUES ($1, $2, $3, FALSE, NOW()) "+
			"RETURNING id, chatroom_id, user_id, content, is_system, created_at",
		chatroomId,
		userId,
		content,
	)

	var msg Message
	err = res.Scan(
		&msg.Id,
		&msg.ChatroomId,
		&msg.UserId,
		&msg.Content,
		&msg.IsSystem,
		&msg.CreatedAt,
	)
	if err != nil {
		return Message{}, err
	}

	_, err = tx.Exec(
		"INSERT INTO unread_messages (message_id, user_id, chatroom_id, is_read) "+
			"SELECT $1, cm.user_id, $2, FALSE FROM chatroom_members cm "+
			"WHERE cm.chatroom_id = $2 AND cm.user_id != $3 AND cm.is_active = TRUE",
		msg.Id,
		chatroomId,
		userId,
	)
	if err != nil {
		return Message{}, err
	}

	if err = tx.Commit(); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// MarkMessagesAsRead backfills any missing unread markers for messages
// authored by others, then flips every unread marker to read.
// Calling it again is a no-op.
func (db *PgChatRepository) MarkMessagesAsRead(userId, chatroomId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"INSERT INTO unread_messages (message_id, user_id, chatroom_id, is_read) "+
			"SELECT m.id, $1, m.chatroom_id, FALSE FROM messages m "+
			"WHERE m.chatroom_id = $2 AND m.user_id != $1 "+
			"ON CONFLICT (message_id, user_id) DO NOTHING",
		userId,
		chatroomId,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"UPDATE unread_messages SET is_read = TRUE "+
			"WHERE chatroom_id = $1 AND user_id = $2 AND is_read = FALSE",
		chatroomId,
		userId,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgChatRepository) CreateGroup(params CreateGroupParams) (CreateGroupResult, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return CreateGroupResult{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO chatrooms (name, created_by, is_group, created_at) "+
			"VALUES ($1, $2, TRUE, NOW()) "+
			"RETURNING id, name, COALESCE(description, ''), created_by, is_group, created_at",
		params.Name,
		params.CreatorId,
	)

	var result CreateGroupResult
	err = res.Scan(
		&result.Chatroom.Id,
		&result.Chatroom.Name,
		&result.Chatroom.Description,
		&result.Chatroom.CreatedBy,
		&result.Chatroom.IsGroup,
		&result.Chatroom.CreatedAt,
	)
	if err != nil {
		return CreateGroupResult{}, err
	}

	for _, memberId := range params.MemberIds {
		_, err = tx.Exec(
			"INSERT INTO chatroom_members (chatroom_id, user_id, is_active) VALUES ($1, $2, TRUE)",
			result.Chatroom.Id,
			memberId,
		)
		if err != nil {
			return CreateGroupResult{}, err
		}
	}

	result.SystemMessages, err = insertSystemMessages(tx, result.Chatroom.Id, params.SystemMessages)
	if err != nil {
		return CreateGroupResult{}, err
	}

	err = tx.QueryRow("SELECT username FROM users WHERE id = $1", params.CreatorId).
		Scan(&result.CreatorName)
	if err != nil {
		return CreateGroupResult{}, err
	}

	if err = tx.Commit(); err != nil {
		return CreateGroupResult{}, err
	}

	result.MemberCount = len(params.MemberIds)
	return result, nil
}

// UpdateGroupSettings rewrites the room row and inserts one
// personalized system message per active member, all in one
// transaction. Returns the inserted message rows keyed by recipient.
func (db *PgChatRepository) UpdateGroupSettings(params UpdateGroupSettingsParams) (map[int]Message, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"UPDATE chatrooms SET name = $2, description = $3 WHERE id = $1",
		params.ChatroomId,
		params.Name,
		params.Description,
	)
	if err != nil {
		return nil, err
	}

	messages, err := insertSystemMessages(tx, params.ChatroomId, params.SystemMessages)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return messages, nil
}

// LeaveChatroom flips the user's membership inactive. Leaving is
// group-only; a departing creator must hand ownership to another
// active member unless they are the last one.
func (db *PgChatRepository) LeaveChatroom(userId, chatroomId, newAdminId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRow(
		"SELECT 1 FROM chatroom_members "+
			"WHERE chatroom_id = $1 AND user_id = $2 AND is_active = TRUE LIMIT 1",
		chatroomId,
		userId,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotMember
		}
		return err
	}

	var isGroup bool
	var createdBy int
	err = tx.QueryRow(
		"SELECT is_group, created_by FROM chatrooms WHERE id = $1",
		chatroomId,
	).Scan(&isGroup, &createdBy)
	if err != nil {
		return err
	}

	if !isGroup {
		err = ErrNotGroupChat
		return err
	}

	var activeCount int
	err = tx.QueryRow(
		"SELECT COUNT(*) FROM chatroom_members WHERE chatroom_id = $1 AND is_active = TRUE",
		chatroomId,
	).Scan(&activeCount)
	if err != nil {
		return err
	}

	if createdBy == userId && activeCount > 1 {
		if newAdminId == 0 {
			err = ErrAdminRequired
			return err
		}

		err = tx.QueryRow(
			"SELECT 1 FROM chatroom_members "+
				"WHERE chatroom_id = $1 AND user_id = $2 AND is_active = TRUE LIMIT 1",
			chatroomId,
			newAdminId,
		).Scan(&one)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = ErrInvalidAdmin
			}
			return err
		}

		_, err = tx.Exec(
			"UPDATE chatrooms SET created_by = $1 WHERE id = $2",
			newAdminId,
			chatroomId,
		)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(
		"UPDATE chatroom_members SET is_active = FALSE WHERE chatroom_id = $1 AND user_id = $2",
		chatroomId,
		userId,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ClearChatroomHistory sets the caller's deletion watermark to now and
// drops their unread markers for the room. Messages at or before the
// watermark disappear from every listing for this user only.
func (db *PgChatRepository) ClearChatroomHistory(userId, chatroomId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(
		"INSERT INTO deleted_messages (user_id, chatroom_id, deleted_at) VALUES ($1, $2, NOW()) "+
			"ON CONFLICT (user_id, chatroom_id) DO UPDATE SET deleted_at = NOW()",
		userId,
		chatroomId,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		"DELETE FROM unread_messages WHERE chatroom_id = $1 AND user_id = $2",
		chatroomId,
		userId,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func insertSystemMessages(tx *sql.Tx, chatroomId int, contents map[int]string) (map[int]Message, error) {
	messages := make(map[int]Message, len(contents))
	for recipientId, content := range contents {
		res := tx.QueryRow(
			"INSERT INTO messages (chatroom_id, user_id, content, is_system, created_at) "+
				"VALUES ($1, $2, $3, TRUE, NOW()) "+
				"RETURNING id, chatroom_id, user_id, content, is_system, created_at",
			chatroomId,
			recipientId,
			content,
		)

		var msg Message
		err := res.Scan(
			&msg.Id,
			&msg.ChatroomId,
			&msg.UserId,
			&msg.Content,
			&msg.IsSystem,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		messages[recipientId] = msg
	}

	return messages, nil
}
