package server

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/types"
)

const (
	maxGroupNameLen        = 30
	maxGroupDescriptionLen = 255
)

// handleCreateGroup creates a group room, memberships, and one
// personalized system message per member in a single transaction,
// then pushes a notification to every invited member with a live
// session.
func (cs *ChatServer) handleCreateGroup(c *Client, frame *ClientFrame) {
	if frame.Name == "" || len(frame.Members) == 0 {
		c.queueMessage(errorFrame("Group name and members are required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	creator, err := cs.db.GetAccountById(userId)
	if err != nil {
		cs.log.Println("GetAccountById:", err)
		c.queueMessage(errorFrame("Failed to create group"))
		return
	}

	// The creator is always a member; drop them and any duplicates
	// from the invite list.
	seen := map[int]struct{}{userId: {}}
	others := make([]int, 0, len(frame.Members))
	for _, memberId := range frame.Members {
		if _, dup := seen[memberId]; dup {
			continue
		}
		seen[memberId] = struct{}{}
		others = append(others, memberId)
	}

	creatorMessage := "You created the group"
	memberMessage := fmt.Sprintf("%s added you%s to the group",
		creator.Username, othersSuffix(len(others)-1))

	systemMessages := map[int]string{userId: creatorMessage}
	for _, memberId := range others {
		systemMessages[memberId] = memberMessage
	}

	result, err := cs.db.CreateGroup(database.CreateGroupParams{
		Name:           frame.Name,
		CreatorId:      userId,
		MemberIds:      append([]int{userId}, others...),
		SystemMessages: systemMessages,
	})
	if err != nil {
		cs.log.Println("CreateGroup:", err)
		c.queueMessage(errorFrame("Failed to create group"))
		return
	}

	summary := types.ChatroomSummary{
		Id:            result.Chatroom.Id,
		Name:          result.Chatroom.Name,
		IsGroup:       true,
		MemberCount:   result.MemberCount,
		LatestMessage: creatorMessage,
		CreatedBy:     userId,
		CreatorName:   result.CreatorName,
	}

	c.queueMessage(&GroupCreatedResponse{
		Type:          "group_created",
		Success:       true,
		Chatroom:      summary,
		SystemMessage: systemMessageFor(result.SystemMessages[userId]),
	})

	for _, memberId := range others {
		mc, connected := cs.sessions.Lookup(memberId)
		if !connected {
			continue
		}

		memberSummary := summary
		memberSummary.LatestMessage = memberMessage

		mc.queueMessage(&NewGroupNotification{
			Type:          "new_group_notification",
			Chatroom:      memberSummary,
			SystemMessage: systemMessageFor(result.SystemMessages[memberId]),
		})
		cs.stats.Incr("FanoutPushes")
	}
}

// handleUpdateGroupSettings rewrites a group's name/description.
// Only the room's creator may update it, and "not found" is
// indistinguishable from "not authorized" in the rejection. A request
// that changes nothing short-circuits without inserting system
// messages or broadcasting.
func (cs *ChatServer) handleUpdateGroupSettings(c *Client, frame *ClientFrame) {
	if frame.ChatroomId == 0 || frame.Name == "" {
		c.queueMessage(errorFrame("Chatroom ID and name are required"))
		return
	}

	userId, ok := cs.authedUser(c)
	if !ok {
		return
	}

	name := strings.TrimSpace(frame.Name)
	description := strings.TrimSpace(frame.Description)

	if name == "" {
		c.queueMessage(errorFrame("Group name is required"))
		return
	}
	if len(name) > maxGroupNameLen {
		c.queueMessage(errorFrame("Group name is too long (maximum 30 characters)"))
		return
	}
	if len(description) > maxGroupDescriptionLen {
		c.queueMessage(errorFrame("Description is too long (maximum 255 characters)"))
		return
	}

	room, err := cs.db.GetGroupForCreator(frame.ChatroomId, userId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.queueMessage(errorFrame("Chatroom not found or you are not authorized to update settings"))
			return
		}
		cs.log.Println("GetGroupForCreator:", err)
		c.queueMessage(errorFrame("Failed to update group settings"))
		return
	}

	nameChanged := room.Name != name
	descriptionChanged := room.Description != description

	settings := types.GroupSettings{
		Id:          frame.ChatroomId,
		Name:        name,
		Description: description,
	}

	if !nameChanged && !descriptionChanged {
		c.queueMessage(&GroupSettingsUpdatedResponse{
			Type:            "group_settings_updated",
			Success:         true,
			ChatroomId:      frame.ChatroomId,
			Message:         "No changes detected",
			Settings:        settings,
			ChangedByUserId: userId,
		})
		return
	}

	actor, err := cs.db.GetAccountById(userId)
	if err != nil {
		cs.log.Println("GetAccountById:", err)
		c.queueMessage(errorFrame("Failed to update group settings"))
		return
	}

	memberIds, err := cs.db.GetActiveMemberIds(frame.ChatroomId)
	if err != nil {
		cs.log.Println("GetActiveMemberIds:", err)
		c.queueMessage(errorFrame("Failed to update group settings"))
		return
	}

	systemMessages := make(map[int]string, len(memberIds))
	for _, memberId := range memberIds {
		systemMessages[memberId] = settingsChangeMessage(
			memberId == userId, actor.Username, name, nameChanged, descriptionChanged)
	}

	inserted, err := cs.db.UpdateGroupSettings(database.UpdateGroupSettingsParams{
		ChatroomId:     frame.ChatroomId,
		Name:           name,
		Description:    description,
		SystemMessages: systemMessages,
	})
	if err != nil {
		cs.log.Println("UpdateGroupSettings:", err)
		c.queueMessage(errorFrame("Failed to update group settings"))
		return
	}

	for _, memberId := range memberIds {
		mc, connected := cs.sessions.Lookup(memberId)
		if !connected {
			continue
		}

		sm := systemMessageFor(inserted[memberId])
		mc.queueMessage(&GroupSettingsUpdatedResponse{
			Type:               "group_settings_updated",
			Success:            true,
			ChatroomId:         frame.ChatroomId,
			Settings:           settings,
			SystemMessage:      &sm,
			NameChanged:        nameChanged,
			DescriptionChanged: descriptionChanged,
			ChangedByUserId:    userId,
		})
		cs.stats.Incr("FanoutPushes")
	}
}

// settingsChangeMessage renders the personalized settings-update
// text: first person for the actor, third person for everyone else,
// with wording that names only what actually changed.
func settingsChangeMessage(self bool, actorName, groupName string, nameChanged, descriptionChanged bool) string {
	subject := actorName
	if self {
		subject = "You"
	}

	switch {
	case nameChanged && descriptionChanged:
		return fmt.Sprintf("%s updated group name to %s and description", subject, groupName)
	case nameChanged:
		return fmt.Sprintf("%s updated group name to %s", subject, groupName)
	default:
		return fmt.Sprintf("%s updated group description", subject)
	}
}

func systemMessageFor(row database.Message) types.SystemMessage {
	return types.SystemMessage{
		Id:        row.Id,
		Type:      "system",
		IsSystem:  true,
		Content:   row.Content,
		CreatedAt: row.CreatedAt,
	}
}
