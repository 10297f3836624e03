// Package server exposes the game engine over WebSocket: room browsing,
// joining, claims, snapshot streaming and admin controls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/firaghost/YegnaBingoBot-sub002/internal/auth"
	"github.com/firaghost/YegnaBingoBot-sub002/internal/engine"
)

// Server represents the WebSocket server
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	scheduler   *engine.Scheduler
	hub         *engine.Hub
	validator   auth.Validator
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger, scheduler *engine.Scheduler, hub *engine.Hub) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
		scheduler:   scheduler,
		hub:         hub,
	}

	// Dedicated mux so multiple server instances can coexist in tests
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	return s
}

// SetAuthValidator configures token validation for new connections.
// Must be called before Start. When unset, any non-empty player name
// is accepted.
func (s *Server) SetAuthValidator(v auth.Validator) {
	s.validator = v
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	go s.run()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown closes every client connection and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close() // Ignore close errors during shutdown
	}
	s.mu.Unlock()

	return s.httpServer.Shutdown(ctx)
}

// Stop stops the WebSocket server
func (s *Server) Stop() error {
	return s.Shutdown(context.Background())
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", len(s.connections))

		case conn := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.connections[conn]; ok {
				delete(s.connections, conn)

				// Free the player's seat if their round hasn't started
				playerID := conn.GetPlayer()
				sessionID := conn.GetSession()
				if playerID != "" && sessionID != "" {
					s.logger.Info("Cleaning up disconnected player", "player", playerID, "session", sessionID)
					_ = s.scheduler.Leave(sessionID, playerID) // Ignore errors during cleanup
				}

				_ = conn.Close() // Ignore close errors during unregistration
			}
			s.mu.Unlock()
			s.logger.Info("Client disconnected", "total", len(s.connections))

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.scheduler, s.hub, s.validator)
	s.register <- client
	client.Start()

	// Connection cleanup is handled by the connection itself
	go func() {
		<-client.ctx.Done()
		s.unregister <- client
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK") // Ignore write errors for health check
}
