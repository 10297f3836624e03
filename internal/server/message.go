package server

import (
	"encoding/json"
	"time"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	PlayerName string `json:"playerName"`
	Token      string `json:"token,omitempty"`
}

type JoinRoomData struct {
	RoomID string `json:"roomId"`
}

type LeaveRoomData struct {
	SessionID string `json:"sessionId"`
}

type ClaimBingoData struct {
	SessionID string `json:"sessionId"`
}

type ListSessionsData struct {
	RoomID string `json:"roomId,omitempty"`
}

type PauseSessionData struct {
	SessionID string `json:"sessionId"`
	Paused    bool   `json:"paused"`
}

type ForceEndData struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

type CloseRoomData struct {
	RoomID string `json:"roomId"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success  bool   `json:"success"`
	PlayerID string `json:"playerId,omitempty"`
	Error    string `json:"error,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RoomInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Stake      int64    `json:"stake"`
	MaxPlayers int      `json:"maxPlayers"`
	MinPlayers int      `json:"minPlayers"`
	Patterns   []string `json:"patterns,omitempty"`
	Enabled    bool     `json:"enabled"`
}

type RoomListData struct {
	Rooms []RoomInfo `json:"rooms"`
}

type RoomJoinedData struct {
	RoomID    string `json:"roomId"`
	SessionID string `json:"sessionId"`
	Card      []int  `json:"card"` // row-major, 0 is the free center
}

type RoomLeftData struct {
	SessionID string `json:"sessionId"`
}

type SessionListData struct {
	Sessions []engine.SessionSnapshot `json:"sessions"`
}

type PauseAckData struct {
	SessionID string `json:"sessionId"`
	Paused    bool   `json:"paused"`
}

type ForceEndAckData struct {
	SessionID string `json:"sessionId"`
}

type RoomClosedData struct {
	RoomID string `json:"roomId"`
}

// RoomInfoFromConfig converts a configured room for the wire.
func RoomInfoFromConfig(room config.RoomConfig) RoomInfo {
	return RoomInfo{
		ID:         room.ID,
		Name:       room.Name,
		Stake:      room.Stake,
		MaxPlayers: room.MaxPlayers,
		MinPlayers: room.MinPlayers,
		Patterns:   room.Patterns,
		Enabled:    room.IsEnabled(),
	}
}
