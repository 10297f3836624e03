package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeAuth         MessageType = "auth"
	MessageTypeJoinRoom     MessageType = "join_room"
	MessageTypeLeaveRoom    MessageType = "leave_room"
	MessageTypeClaimBingo   MessageType = "claim_bingo"
	MessageTypeListRooms    MessageType = "list_rooms"
	MessageTypeListSessions MessageType = "list_sessions"
	MessageTypeSubscribe    MessageType = "subscribe"
	MessageTypePauseSession MessageType = "pause_session"
	MessageTypeForceEnd     MessageType = "force_end_session"
	MessageTypeCloseRoom    MessageType = "close_room"

	// Server to client messages
	MessageTypeError        MessageType = "error"
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeRoomJoined   MessageType = "room_joined"
	MessageTypeRoomLeft     MessageType = "room_left"
	MessageTypeRoomList     MessageType = "room_list"
	MessageTypeSessionList  MessageType = "session_list"
	MessageTypeSessionState MessageType = "session_state"
	MessageTypeSessionEnd   MessageType = "session_end"
	MessageTypePauseAck     MessageType = "pause_ack"
	MessageTypeForceEndAck  MessageType = "force_end_ack"
	MessageTypeRoomClosed   MessageType = "room_closed"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
