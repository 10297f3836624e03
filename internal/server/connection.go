package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/auth"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn        *websocket.Conn
	send        chan *Message
	playerID    string
	sessionID   string
	logger      *log.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	mu          sync.RWMutex
	closeOnce   sync.Once
	scheduler   *engine.Scheduler
	hub         *engine.Hub
	validator   auth.Validator
	unsubscribe func()
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, scheduler *engine.Scheduler, hub *engine.Hub, validator auth.Validator) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:      conn,
		send:      make(chan *Message, 256),
		logger:    logger.WithPrefix("conn"),
		ctx:       ctx,
		cancel:    cancel,
		scheduler: scheduler,
		hub:       hub,
		validator: validator,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.unsubscribe != nil {
			c.unsubscribe()
			c.unsubscribe = nil
		}
		c.mu.Unlock()
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close() // Ignore close errors
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetSession associates this connection with a session
func (c *Connection) SetSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionID = sessionID
}

// GetSession returns the associated session ID
func (c *Connection) GetSession() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }() // Ignore close errors during cleanup

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Ignore close errors during cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join room data")
			return
		}
		c.handleJoinRoom(data)

	case MessageTypeLeaveRoom:
		var data LeaveRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave room data")
			return
		}
		c.handleLeaveRoom(data)

	case MessageTypeClaimBingo:
		var data ClaimBingoData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse claim data")
			return
		}
		c.handleClaim(data)

	case MessageTypeListRooms:
		c.handleListRooms()

	case MessageTypeListSessions:
		var data ListSessionsData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				c.sendError("invalid_message", "Failed to parse list sessions data")
				return
			}
		}
		c.handleListSessions(data)

	case MessageTypeSubscribe:
		c.handleSubscribe()

	case MessageTypePauseSession:
		var data PauseSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse pause data")
			return
		}
		c.handlePause(data)

	case MessageTypeForceEnd:
		var data ForceEndData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse force end data")
			return
		}
		c.handleForceEnd(data)

	case MessageTypeCloseRoom:
		var data CloseRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse close room data")
			return
		}
		c.handleCloseRoom(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg) // Ignore send errors during error handling
}

func (c *Connection) handleAuth(data AuthData) {
	c.logger.Info("Auth request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_auth", "Player name required")
		return
	}

	playerID := data.PlayerName
	if c.validator != nil {
		identity, err := c.validator.Validate(c.ctx, data.Token)
		switch {
		case errors.Is(err, auth.ErrInvalidToken):
			c.sendError("invalid_auth", "Token rejected")
			return
		case errors.Is(err, auth.ErrUnavailable):
			c.sendError("auth_unavailable", "Authentication service unavailable")
			return
		case err != nil:
			c.sendError("auth_unavailable", err.Error())
			return
		}
		// A nil identity means auth is disabled; keep the supplied name
		if identity != nil && identity.PlayerID != "" {
			playerID = identity.PlayerID
		}
	}

	c.SetPlayer(playerID)

	response, _ := NewMessage(MessageTypeAuthResponse, AuthResponseData{
		Success:  true,
		PlayerID: playerID,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleJoinRoom(data JoinRoomData) {
	c.logger.Info("Join room request", "roomId", data.RoomID, "player", c.GetPlayer())

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	sessionID, err := c.scheduler.Join(c.ctx, data.RoomID, playerName)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
	c.SetSession(sessionID)

	card, err := c.scheduler.Card(sessionID, playerName)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeRoomJoined, RoomJoinedData{
		RoomID:    data.RoomID,
		SessionID: sessionID,
		Card:      card,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleLeaveRoom(data LeaveRoomData) {
	c.logger.Info("Leave room request", "sessionId", data.SessionID, "player", c.GetPlayer())

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	if err := c.scheduler.Leave(data.SessionID, playerName); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}
	c.SetSession("")

	response, _ := NewMessage(MessageTypeRoomLeft, RoomLeftData{SessionID: data.SessionID})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleClaim(data ClaimBingoData) {
	c.logger.Info("Claim request", "sessionId", data.SessionID, "player", c.GetPlayer())

	playerName := c.GetPlayer()
	if playerName == "" {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	if err := c.scheduler.Claim(data.SessionID, playerName); err != nil {
		c.sendError("claim_rejected", err.Error())
		return
	}
	// No response needed - the session publishes its terminal snapshot
}

func (c *Connection) handleListRooms() {
	rooms := c.scheduler.Rooms()
	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, RoomInfoFromConfig(room))
	}

	response, _ := NewMessage(MessageTypeRoomList, RoomListData{Rooms: infos})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleListSessions(data ListSessionsData) {
	response, _ := NewMessage(MessageTypeSessionList, SessionListData{
		Sessions: c.scheduler.List(data.RoomID),
	})
	_ = c.SendMessage(response) // Ignore send errors
}

// handleSubscribe streams session snapshots to the client until the
// connection closes. Subscribing twice is a no-op.
func (c *Connection) handleSubscribe() {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return
	}
	snapshots, cancel := c.hub.Subscribe(64)
	c.unsubscribe = cancel
	c.mu.Unlock()

	go func() {
		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				msgType := MessageTypeSessionState
				if snap.Status.Terminal() {
					msgType = MessageTypeSessionEnd
				}
				msg, err := NewMessage(msgType, snap)
				if err != nil {
					c.logger.Error("Failed to encode snapshot", "error", err)
					continue
				}
				_ = c.SendMessage(msg) // Ignore send errors
			case <-c.ctx.Done():
				return
			}
		}
	}()
}

func (c *Connection) handlePause(data PauseSessionData) {
	c.logger.Info("Pause request", "sessionId", data.SessionID, "paused", data.Paused, "player", c.GetPlayer())

	if err := c.scheduler.Pause(data.SessionID, data.Paused); err != nil {
		c.sendError("pause_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypePauseAck, PauseAckData{
		SessionID: data.SessionID,
		Paused:    data.Paused,
	})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleForceEnd(data ForceEndData) {
	c.logger.Info("Force end request", "sessionId", data.SessionID, "reason", data.Reason, "player", c.GetPlayer())

	if err := c.scheduler.ForceEnd(data.SessionID, data.Reason); err != nil {
		c.sendError("force_end_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeForceEndAck, ForceEndAckData{SessionID: data.SessionID})
	_ = c.SendMessage(response) // Ignore send errors
}

func (c *Connection) handleCloseRoom(data CloseRoomData) {
	c.logger.Info("Close room request", "roomId", data.RoomID, "player", c.GetPlayer())

	if err := c.scheduler.CloseRoom(data.RoomID); err != nil {
		c.sendError("close_room_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeRoomClosed, RoomClosedData{RoomID: data.RoomID})
	_ = c.SendMessage(response) // Ignore send errors
}
