package server

import (
	"context"
	"log"
	"sync"

	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/stats"
)

// ChatServer owns every live connection and the session registry, and
// executes each inbound frame to completion on the connection's reader
// goroutine. Frames from different connections run concurrently; the
// database's transactions are the only mutual-exclusion boundary for
// durable state.
type ChatServer struct {
	log         *log.Logger
	db          database.ChatRepository
	stats       stats.StatsProvider
	sessions    *SessionRegistry
	clients     map[*Client]struct{}
	clientsLock sync.Mutex
}

func NewChatServer(logger *log.Logger, db database.ChatRepository, statsProvider stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:      logger,
		db:       db,
		stats:    statsProvider,
		sessions: NewSessionRegistry(),
		clients:  make(map[*Client]struct{}),
	}

	cs.stats.RegisterMetric("NumConnections")
	cs.stats.RegisterMetric("NumSessions")
	cs.stats.RegisterMetric("MessagesSent")
	cs.stats.RegisterMetric("FanoutPushes")

	return cs, nil
}

// RegisterClient tracks a freshly upgraded connection. The connection
// remains unauthenticated until its auth frame succeeds.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	cs.clients[c] = struct{}{}
	cs.stats.Incr("NumConnections")
}

func (cs *ChatServer) removeClient(c *Client) {
	if _, ok := cs.sessions.UnregisterClient(c); ok {
		cs.stats.Decr("NumSessions")
	}

	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c]; ok {
		delete(cs.clients, c)
		cs.stats.Decr("NumConnections")
	}
}

// dispatch routes one inbound frame. Handler errors never close the
// connection; they surface as error frames to the sender only.
func (cs *ChatServer) dispatch(c *Client, frame *ClientFrame) {
	switch frame.Type {
	case "auth":
		cs.handleAuth(c, frame)
	case "join":
		cs.handleJoin(c, frame)
	case "leave":
		cs.handleLeave(c, frame)
	case "message":
		cs.handleChat(c, frame)
	case "history":
		cs.handleHistory(c, frame)
	case "sync":
		cs.handleSync(c, frame)
	case "mark_messages_as_read":
		cs.handleMarkMessagesAsRead(c, frame)
	case "get_unread_counts":
		cs.handleGetUnreadCounts(c, frame)
	case "update_chatroom_list":
		cs.handleUpdateChatroomList(c, frame)
	case "load_messages":
		cs.handleLoadMessages(c, frame)
	case "create_group":
		cs.handleCreateGroup(c, frame)
	case "update_group_settings":
		cs.handleUpdateGroupSettings(c, frame)
	case "ping", "pong":
		// Heartbeat only; the read deadline was refreshed by the read
		// itself.
	default:
		c.queueMessage(errorFrame("Unknown message type"))
	}
}

// authedUser resolves the sender's identity, rejecting the frame when
// the connection has no session.
func (cs *ChatServer) authedUser(c *Client) (int, bool) {
	userId, ok := cs.sessions.UserFor(c)
	if !ok {
		c.queueMessage(errorFrame("Not authenticated"))
		return 0, false
	}

	return userId, true
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("closing client connections")

	cs.clientsLock.Lock()
	clients := make([]*Client, 0, len(cs.clients))
	for c := range cs.clients {
		clients = append(clients, c)
	}
	cs.clientsLock.Unlock()

	for _, c := range clients {
		c.stopClient()
	}

	return ctx.Err()
}
