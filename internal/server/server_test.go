package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/auth"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/config"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/randutil"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/store"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/wallet"
)

const testPort = 19411

func startTestServer(t *testing.T, port int, validator auth.Validator) *Server {
	t.Helper()

	cfg := &config.Config{
		Rooms: []config.RoomConfig{
			{ID: "lobby", Name: "Lobby", Stake: 10, MaxPlayers: 4, MinPlayers: 2, CountdownSeconds: 60, DrawIntervalMs: 60_000},
		},
	}
	hub := engine.NewHub()
	sched := engine.NewScheduler(cfg, engine.SchedulerDeps{
		Clock:      quartz.NewReal(),
		Logger:     zerolog.Nop(),
		Store:      store.NewMemory(),
		Wallet:     wallet.NewMock(zerolog.Nop(), 1000),
		Commission: config.StaticCommission(1000),
		Monitor:    hub,
		CardRNG:    randutil.New(3),
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = sched.Run(ctx) }()

	logger := log.New(io.Discard)
	srv := NewServer(fmt.Sprintf("127.0.0.1:%d", port), logger, sched, hub)
	if validator != nil {
		srv.SetAuthValidator(validator)
	}
	go func() { _ = srv.Start() }()
	t.Cleanup(func() { _ = srv.Stop() })

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "server never became healthy")

	return srv
}

func dialTestServer(t *testing.T, port int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws", port), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType MessageType, data interface{}) {
	t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

// readUntil discards messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want MessageType) *Message {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for time.Now().Before(deadline) {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return &msg
		}
		if msg.Type == MessageTypeError {
			t.Fatalf("got error message while waiting for %s: %s", want, string(msg.Data))
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestServerPlayerFlow(t *testing.T) {
	startTestServer(t, testPort, nil)
	conn := dialTestServer(t, testPort)

	// join before auth is rejected
	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: "lobby"})
	var errMsg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&errMsg))
	require.Equal(t, MessageTypeError, errMsg.Type)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, "not_authenticated", errData.Code)

	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "alice"})
	authMsg := readUntil(t, conn, MessageTypeAuthResponse)
	var authResp AuthResponseData
	require.NoError(t, json.Unmarshal(authMsg.Data, &authResp))
	require.True(t, authResp.Success)
	assert.Equal(t, "alice", authResp.PlayerID)

	sendMessage(t, conn, MessageTypeListRooms, struct{}{})
	listMsg := readUntil(t, conn, MessageTypeRoomList)
	var rooms RoomListData
	require.NoError(t, json.Unmarshal(listMsg.Data, &rooms))
	require.Len(t, rooms.Rooms, 1)
	assert.Equal(t, "lobby", rooms.Rooms[0].ID)
	assert.True(t, rooms.Rooms[0].Enabled)

	sendMessage(t, conn, MessageTypeSubscribe, struct{}{})
	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: "lobby"})
	joinMsg := readUntil(t, conn, MessageTypeRoomJoined)
	var joined RoomJoinedData
	require.NoError(t, json.Unmarshal(joinMsg.Data, &joined))
	require.NotEmpty(t, joined.SessionID)
	assert.Len(t, joined.Card, 25)

	// the subscription streams the session state after the join
	stateMsg := readUntil(t, conn, MessageTypeSessionState)
	var snap engine.SessionSnapshot
	require.NoError(t, json.Unmarshal(stateMsg.Data, &snap))
	assert.Equal(t, "lobby", snap.RoomID)

	sendMessage(t, conn, MessageTypeListSessions, ListSessionsData{RoomID: "lobby"})
	sessMsg := readUntil(t, conn, MessageTypeSessionList)
	var sessions SessionListData
	require.NoError(t, json.Unmarshal(sessMsg.Data, &sessions))
	require.NotEmpty(t, sessions.Sessions)

	sendMessage(t, conn, MessageTypeLeaveRoom, LeaveRoomData{SessionID: joined.SessionID})
	readUntil(t, conn, MessageTypeRoomLeft)
}

func TestServerAdminFlow(t *testing.T) {
	startTestServer(t, testPort+1, nil)
	conn := dialTestServer(t, testPort+1)

	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "admin"})
	readUntil(t, conn, MessageTypeAuthResponse)

	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: "lobby"})
	joinMsg := readUntil(t, conn, MessageTypeRoomJoined)
	var joined RoomJoinedData
	require.NoError(t, json.Unmarshal(joinMsg.Data, &joined))

	sendMessage(t, conn, MessageTypeSubscribe, struct{}{})
	sendMessage(t, conn, MessageTypePauseSession, PauseSessionData{SessionID: joined.SessionID, Paused: true})
	ackMsg := readUntil(t, conn, MessageTypePauseAck)
	var ack PauseAckData
	require.NoError(t, json.Unmarshal(ackMsg.Data, &ack))
	assert.True(t, ack.Paused)

	sendMessage(t, conn, MessageTypeForceEnd, ForceEndData{SessionID: joined.SessionID, Reason: "maintenance"})
	readUntil(t, conn, MessageTypeForceEndAck)

	endMsg := readUntil(t, conn, MessageTypeSessionEnd)
	var snap engine.SessionSnapshot
	require.NoError(t, json.Unmarshal(endMsg.Data, &snap))
	assert.Equal(t, engine.StatusCancelled, snap.Status)
	assert.Equal(t, "maintenance", snap.Reason)

	sendMessage(t, conn, MessageTypeCloseRoom, CloseRoomData{RoomID: "lobby"})
	closedMsg := readUntil(t, conn, MessageTypeRoomClosed)
	var closed RoomClosedData
	require.NoError(t, json.Unmarshal(closedMsg.Data, &closed))
	assert.Equal(t, "lobby", closed.RoomID)

	// joins into the closed room are turned away
	sendMessage(t, conn, MessageTypeJoinRoom, JoinRoomData{RoomID: "lobby"})
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type != MessageTypeError {
			continue // snapshot traffic from the subscription
		}
		var errData ErrorData
		require.NoError(t, json.Unmarshal(msg.Data, &errData))
		assert.Equal(t, "join_failed", errData.Code)
		break
	}
}

type stubValidator struct {
	identities map[string]*auth.Identity
}

func (v *stubValidator) Validate(ctx context.Context, token string) (*auth.Identity, error) {
	identity, ok := v.identities[token]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return identity, nil
}

func TestServerTokenAuth(t *testing.T) {
	validator := &stubValidator{identities: map[string]*auth.Identity{
		"secret": {PlayerID: "player-7", DisplayName: "Bob"},
	}}
	startTestServer(t, testPort+2, validator)
	conn := dialTestServer(t, testPort+2)

	// a bad token is rejected
	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "bob", Token: "wrong"})
	var errMsg Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, conn.ReadJSON(&errMsg))
	require.Equal(t, MessageTypeError, errMsg.Type)
	var errData ErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &errData))
	assert.Equal(t, "invalid_auth", errData.Code)

	// the validated identity overrides the supplied name
	sendMessage(t, conn, MessageTypeAuth, AuthData{PlayerName: "bob", Token: "secret"})
	authMsg := readUntil(t, conn, MessageTypeAuthResponse)
	var authResp AuthResponseData
	require.NoError(t, json.Unmarshal(authMsg.Data, &authResp))
	require.True(t, authResp.Success)
	assert.Equal(t, "player-7", authResp.PlayerID)
}
