package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mtsang/chatwire/internal/database"
	"github.com/mtsang/chatwire/internal/server"
	"github.com/mtsang/chatwire/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type WsTokenResponse struct {
	Token string `json:"token"`
}

type StarRequest struct {
	MessageId int    `json:"message_id"`
	Action    string `json:"action"`
}

type StarResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Starred   bool   `json:"starred"`
	UpdateUi  bool   `json:"update_ui,omitempty"`
	MessageId int    `json:"message_id,omitempty"`
}

type StarredListResponse struct {
	Success  bool                   `json:"success"`
	Messages []types.StarredMessage `json:"messages"`
}

type ChatroomActionRequest struct {
	ChatroomId int `json:"chatroom_id"`
	NewAdminId int `json:"new_admin_id,omitempty"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check failed:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Username:     newUser.Username,
		EmailAddress: newUser.EmailAddress,
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	})
}

func (s *ChatApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		EmailAddress: dbUser.EmailAddress,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	})
}

func (s *ChatApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *ChatApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

// wsToken issues a short-lived opaque token the realtime endpoint
// accepts in its auth frame. Tokens are single-user, not single-use,
// and stay valid until expiry.
func (s *ChatApp) wsToken(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token := uuid.NewString() + uuid.NewString()
	expiresAt := time.Now().Add(s.wsTokenTTL)

	if err := s.db.CreateWsToken(userId, token, expiresAt); err != nil {
		s.log.Println("create ws token:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, WsTokenResponse{Token: token})
}

func (s *ChatApp) starMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req StarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.MessageId == 0 {
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "Invalid message ID"})
		return
	}

	hasAccess, err := s.db.HasMessageAccess(req.MessageId, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !hasAccess {
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "Message not found or access denied"})
		return
	}

	starred, err := s.db.IsMessageStarred(req.MessageId, userId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	switch req.Action {
	case "star":
		if starred {
			s.writeJson(w, http.StatusOK, StatusResponse{Message: "Message is already starred"})
			return
		}

		if err := s.db.StarMessage(req.MessageId, userId); err != nil {
			s.log.Println("star message:", err)
			s.writeJson(w, http.StatusOK, StatusResponse{Message: "Failed to star message"})
			return
		}

		s.writeJson(w, http.StatusOK, StarResponse{Success: true, Starred: true})
	case "unstar", "delete":
		if !starred {
			s.writeJson(w, http.StatusOK, StatusResponse{Message: "Message is not starred"})
			return
		}

		if err := s.db.UnstarMessage(req.MessageId, userId); err != nil {
			s.log.Println("unstar message:", err)
			s.writeJson(w, http.StatusOK, StatusResponse{Message: "Failed to unstar message"})
			return
		}

		s.writeJson(w, http.StatusOK, StarResponse{
			Success:   true,
			Starred:   false,
			UpdateUi:  true,
			MessageId: req.MessageId,
		})
	default:
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "Invalid action"})
	}
}

// getStarredMessages returns the caller's starred list, or a single
// starred check when a message_id query parameter is present.
func (s *ChatApp) getStarredMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if messageIdStr := r.URL.Query().Get("message_id"); messageIdStr != "" {
		messageId, err := strconv.Atoi(messageIdStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		starred, err := s.db.IsMessageStarred(messageId, userId)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, StarResponse{Success: true, Starred: starred})
		return
	}

	rows, err := s.db.ListStarredMessages(userId)
	if err != nil {
		s.log.Println("list starred messages:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messages := make([]types.StarredMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, types.StarredMessage{
			Id:           row.Id,
			Username:     row.Username,
			UserId:       row.UserId,
			Content:      row.Content,
			Timestamp:    row.CreatedAt,
			ChatroomName: row.ChatroomName,
			ChatroomId:   row.ChatroomId,
		})
	}

	s.writeJson(w, http.StatusOK, StarredListResponse{Success: true, Messages: messages})
}

// clearHistory moves the caller's deletion watermark for the room to
// now. Messages stay in place for everyone else.
func (s *ChatApp) clearHistory(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ChatroomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatroomId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	member, err := s.db.IsChatroomMember(userId, req.ChatroomId)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}
	if !member {
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "You are not an active member of this chatroom"})
		return
	}

	if err := s.db.ClearChatroomHistory(userId, req.ChatroomId); err != nil {
		s.log.Println("clear chatroom history:", err)
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "Failed to delete chatroom history"})
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Success: true, Message: "Chatroom history deleted"})
}

func (s *ChatApp) leaveChatroom(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req ChatroomActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.ChatroomId == 0 {
		s.writeJson(w, http.StatusOK, StatusResponse{Message: "Invalid chatroom ID"})
		return
	}

	if err := s.db.LeaveChatroom(userId, req.ChatroomId, req.NewAdminId); err != nil {
		var msg string
		switch {
		case errors.Is(err, database.ErrNotMember):
			msg = "You are not a member of this chatroom"
		case errors.Is(err, database.ErrNotGroupChat):
			msg = "Cannot leave a direct chat"
		case errors.Is(err, database.ErrAdminRequired):
			msg = "Please select a new admin"
		case errors.Is(err, database.ErrInvalidAdmin):
			msg = "Selected user is not an active member"
		default:
			s.log.Println("leave chatroom:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, StatusResponse{Message: msg})
		return
	}

	s.writeJson(w, http.StatusOK, StatusResponse{Success: true})
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
