package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
)

var (
	ErrNotMember     = errors.New("user is not an active member of this chatroom")
	ErrNotGroupChat  = errors.New("cannot leave a direct chat")
	ErrAdminRequired = errors.New("a new admin must be selected")
	ErrInvalidAdmin  = errors.New("selected user is not an active member")
)

// messageColumns is the select list shared by every history query.
const messageColumns = "m.id, m.chatroom_id, m.user_id, m.content, m.is_system, m.created_at, u.username"

// visibleMessages joins each message with its author and the caller's
// deletion watermark. Callers append the watermark and system-message
// predicates with the matching placeholder numbers.
const visibleMessages = "FROM messages m " +
	"JOIN users u ON m.user_id = u.id " +
	"LEFT JOIN deleted_messages dm ON m.chatroom_id = dm.chatroom_id AND dm.user_id = $1 "

func (db *PgChatRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgChatRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, created_at, updated_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, created_at, updated_at FROM users "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgChatRepository) CreateWsToken(userId int, token string, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO ws_tokens (user_id, token, expires_at) VALUES ($1, $2, $3)",
		userId,
		token,
		expiresAt,
	)

	return err
}

func (db *PgChatRepository) ValidateWsToken(token string, userId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM ws_tokens WHERE token = $1 AND user_id = $2 AND expires_at > NOW() LIMIT 1",
		token,
		userId,
	)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (db *PgChatRepository) DeleteExpiredWsTokens() error {
	_, err := db.conn.Exec("DELETE FROM ws_tokens WHERE expires_at <= NOW()")
	return err
}

func (db *PgChatRepository) IsChatroomMember(userId, chatroomId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM chatroom_members "+
			"WHERE user_id = $1 AND chatroom_id = $2 AND is_active = TRUE LIMIT 1",
		userId,
		chatroomId,
	)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (db *PgChatRepository) GetChatroom(chatroomId int) (Chatroom, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, COALESCE(description, ''), created_by, is_group, created_at "+
			"FROM chatrooms WHERE id = $1 LIMIT 1",
		chatroomId,
	)

	var c Chatroom
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.Description,
		&c.CreatedBy,
		&c.IsGroup,
		&c.CreatedAt,
	)

	return c, err
}

// GetGroupForCreator returns the group chatroom only when userId is
// both an active member and its creator. sql.ErrNoRows covers "not
// found" and "not authorized" alike so neither case leaks.
func (db *PgChatRepository) GetGroupForCreator(chatroomId, userId int) (Chatroom, error) {
	row := db.conn.QueryRow(
		"SELECT c.id, c.name, COALESCE(c.description, ''), c.created_by, c.is_group, c.created_at "+
			"FROM chatrooms c "+
			"JOIN chatroom_members cm ON c.id = cm.chatroom_id "+
			"WHERE c.id = $1 AND cm.user_id = $2 AND cm.is_active = TRUE "+
			"AND c.is_group = TRUE AND c.created_by = $2 LIMIT 1",
		chatroomId,
		userId,
	)

	var c Chatroom
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.Description,
		&c.CreatedBy,
		&c.IsGroup,
		&c.CreatedAt,
	)

	return c, err
}

func (db *PgChatRepository) GetActiveMemberIds(chatroomId int) ([]int, error) {
	rows, err := db.conn.Query(
		"SELECT user_id FROM chatroom_members WHERE chatroom_id = $1 AND is_active = TRUE",
		chatroomId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (db *PgChatRepository) CountActiveMembers(chatroomId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM chatroom_members WHERE chatroom_id = $1 AND is_active = TRUE",
		chatroomId,
	)

	var count int
	err := row.Scan(&count)
	return count, err
}

func (db *PgChatRepository) GetOldestUnread(userId, chatroomId int) (int, int, error) {
	row := db.conn.QueryRow(
		"SELECT MIN(m.id), COUNT(*) FROM messages m "+
			"JOIN unread_messages um ON m.id = um.message_id AND um.user_id = $1 "+
			"WHERE m.chatroom_id = $2 AND um.is_read = FALSE "+
			"AND (m.is_system = FALSE OR m.user_id = $1)",
		userId,
		chatroomId,
	)

	var oldest sql.NullInt64
	var count int
	if err := row.Scan(&oldest, &count); err != nil {
		return 0, 0, err
	}

	return int(oldest.Int64), count, nil
}

func (db *PgChatRepository) GetRecentMessages(userId, chatroomId, limit int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT id, chatroom_id, user_id, content, is_system, created_at, username FROM ("+
			"SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id DESC LIMIT $3"+
			") w ORDER BY id ASC",
		userId,
		chatroomId,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

// GetMessagesFromUnread returns up to beforeLimit messages strictly
// before the oldest unread id plus every visible message from that id
// onward, in ascending id order.
func (db *PgChatRepository) GetMessagesFromUnread(userId, chatroomId, oldestUnreadId, beforeLimit int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"(SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id < $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id DESC LIMIT $4) "+
			"UNION ALL "+
			"(SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id >= $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1)) "+
			"ORDER BY id ASC",
		userId,
		chatroomId,
		oldestUnreadId,
		beforeLimit,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

// GetMessagesAround returns up to limit messages either side of the
// target plus the target itself, in ascending id order.
func (db *PgChatRepository) GetMessagesAround(userId, chatroomId, targetMessageId, limit int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"(SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id < $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id DESC LIMIT $4) "+
			"UNION ALL "+
			"(SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id = $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1)) "+
			"UNION ALL "+
			"(SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id > $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id ASC LIMIT $4) "+
			"ORDER BY id ASC",
		userId,
		chatroomId,
		targetMessageId,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

func (db *PgChatRepository) GetMessagesBefore(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT id, chatroom_id, user_id, content, is_system, created_at, username FROM ("+
			"SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id < $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id DESC LIMIT $4"+
			") w ORDER BY id ASC",
		userId,
		chatroomId,
		referenceMessageId,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

func (db *PgChatRepository) GetMessagesAfter(userId, chatroomId, referenceMessageId, limit int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" "+visibleMessages+
			"WHERE m.chatroom_id = $2 AND m.id > $3 "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"AND (m.is_system = FALSE OR m.user_id = $1) "+
			"ORDER BY m.id ASC LIMIT $4",
		userId,
		chatroomId,
		referenceMessageId,
		limit,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

// GetUnreadFlags reports which of the given message ids are unread for
// the user: an unread marker row exists and is_read is false.
func (db *PgChatRepository) GetUnreadFlags(userId int, messageIds []int) (map[int]bool, error) {
	rows, err := db.conn.Query(
		"SELECT message_id FROM unread_messages "+
			"WHERE user_id = $1 AND is_read = FALSE AND message_id = ANY($2)",
		userId,
		pq.Array(messageIds),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	unread := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		unread[id] = true
	}

	return unread, rows.Err()
}

// GetSyncMessages returns only the requesting user's own messages
// newer than lastMessageId. The author filter is a preserved quirk of
// the protocol contract, not an oversight here.
func (db *PgChatRepository) GetSyncMessages(chatroomId, lastMessageId, userId int) ([]MessageWithUser, error) {
	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN users u ON m.user_id = u.id "+
			"WHERE m.chatroom_id = $1 AND m.id > $2 AND m.user_id = $3 "+
			"ORDER BY m.id ASC",
		chatroomId,
		lastMessageId,
		userId,
	)
	if err != nil {
		return nil, err
	}

	return scanMessages(rows)
}

func (db *PgChatRepository) GetUnreadCounts(userId, currentChatroomId int) ([]ChatroomUnread, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.name, c.is_group, "+
			"CASE WHEN c.id = $1 THEN 0 ELSE COUNT(DISTINCT um.id) END AS unread_count "+
			"FROM chatroom_members cm "+
			"JOIN chatrooms c ON cm.chatroom_id = c.id "+
			"LEFT JOIN unread_messages um ON cm.chatroom_id = um.chatroom_id "+
			"AND cm.user_id = um.user_id AND um.is_read = FALSE "+
			"WHERE cm.user_id = $2 AND cm.is_active = TRUE "+
			"GROUP BY c.id, c.name, c.is_group "+
			"ORDER BY c.name",
		currentChatroomId,
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []ChatroomUnread
	for rows.Next() {
		var cu ChatroomUnread
		if err := rows.Scan(&cu.Id, &cu.Name, &cu.IsGroup, &cu.UnreadCount); err != nil {
			return nil, err
		}

		counts = append(counts, cu)
	}

	return counts, rows.Err()
}

func (db *PgChatRepository) GetChatroomList(userId int) ([]ChatroomSummary, error) {
	rows, err := db.conn.Query(
		"SELECT c.id, c.name, COALESCE(c.description, ''), c.is_group, c.created_by, u.username, "+
			"(SELECT COUNT(*) FROM chatroom_members WHERE chatroom_id = c.id AND is_active = TRUE) AS member_count, "+
			"(SELECT COUNT(*) FROM unread_messages um "+
			"WHERE um.chatroom_id = c.id AND um.user_id = $1 AND um.is_read = FALSE) AS unread_count, "+
			"(SELECT m.content FROM messages m "+
			"LEFT JOIN deleted_messages dm ON m.chatroom_id = dm.chatroom_id AND dm.user_id = $1 "+
			"WHERE m.chatroom_id = c.id "+
			"AND (dm.deleted_at IS NULL OR m.created_at > dm.deleted_at) "+
			"ORDER BY m.id DESC LIMIT 1) AS latest_message "+
			"FROM chatroom_members cm "+
			"JOIN chatrooms c ON cm.chatroom_id = c.id "+
			"JOIN users u ON c.created_by = u.id "+
			"WHERE cm.user_id = $1 AND cm.is_active = TRUE "+
			"ORDER BY c.name",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ChatroomSummary
	for rows.Next() {
		var s ChatroomSummary
		err := rows.Scan(
			&s.Id,
			&s.Name,
			&s.Description,
			&s.IsGroup,
			&s.CreatedBy,
			&s.CreatorName,
			&s.MemberCount,
			&s.UnreadCount,
			&s.LatestMessage,
		)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

func (db *PgChatRepository) HasMessageAccess(messageId, userId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM messages m "+
			"JOIN chatroom_members cm ON m.chatroom_id = cm.chatroom_id "+
			"WHERE m.id = $1 AND cm.user_id = $2 AND cm.is_active = TRUE LIMIT 1",
		messageId,
		userId,
	)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (db *PgChatRepository) IsMessageStarred(messageId, userId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT 1 FROM starred_messages "+
			"WHERE message_id = $1 AND user_id = $2 AND deleted_at IS NULL LIMIT 1",
		messageId,
		userId,
	)

	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// StarMessage revives a previously soft-deleted star for the same
// (message, user) pair instead of inserting a duplicate row.
func (db *PgChatRepository) StarMessage(messageId, userId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO starred_messages (message_id, user_id, starred_at) VALUES ($1, $2, NOW()) "+
			"ON CONFLICT (message_id, user_id) DO UPDATE SET deleted_at = NULL",
		messageId,
		userId,
	)

	return err
}

func (db *PgChatRepository) UnstarMessage(messageId, userId int) error {
	_, err := db.conn.Exec(
		"UPDATE starred_messages SET deleted_at = NOW() "+
			"WHERE message_id = $1 AND user_id = $2 AND deleted_at IS NULL",
		messageId,
		userId,
	)

	return err
}

func (db *PgChatRepository) ListStarredMessages(userId int) ([]StarredMessageDetail, error) {
	rows, err := db.conn.Query(
		"SELECT m.id, u.username, u.id, m.content, m.created_at, c.name, c.id "+
			"FROM starred_messages sm "+
			"JOIN messages m ON sm.message_id = m.id "+
			"JOIN users u ON m.user_id = u.id "+
			"JOIN chatrooms c ON m.chatroom_id = c.id "+
			"JOIN chatroom_members cm ON m.chatroom_id = cm.chatroom_id AND cm.user_id = $1 "+
			"WHERE sm.user_id = $1 AND sm.deleted_at IS NULL AND cm.is_active = TRUE "+
			"ORDER BY sm.starred_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var starred []StarredMessageDetail
	for rows.Next() {
		var s StarredMessageDetail
		err := rows.Scan(
			&s.Id,
			&s.Username,
			&s.UserId,
			&s.Content,
			&s.CreatedAt,
			&s.ChatroomName,
			&s.ChatroomId,
		)
		if err != nil {
			return nil, err
		}

		starred = append(starred, s)
	}

	return starred, rows.Err()
}

func scanMessages(rows *sql.Rows) ([]MessageWithUser, error) {
	defer rows.Close()

	var messages []MessageWithUser
	for rows.Next() {
		var m MessageWithUser
		err := rows.Scan(
			&m.Id,
			&m.ChatroomId,
			&m.UserId,
			&m.Content,
			&m.IsSystem,
			&m.CreatedAt,
			&m.Username,
		)
		if err != nil {
			return nil, err
		}

		messages = append(messages, m)
	}

	return messages, rows.Err()
}
