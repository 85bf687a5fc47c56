package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/dante-control/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// DefaultInterval is how often the registry is checked for changes
	DefaultInterval = time.Second
)

// Config holds the feed server configuration
type Config struct {
	Addr     string        // listen address, e.g. "127.0.0.1:8080"
	Interval time.Duration // change check period (default: DefaultInterval)
}

// Server streams registry snapshots to websocket clients
type Server struct {
	source   Source
	config   Config
	upgrader websocket.Upgrader

	httpServer *http.Server
	listener   net.Listener

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     chan struct{}
	closeOnce   sync.Once
}

// New creates a feed server for source
func New(source Source, config Config) *Server {
	if config.Interval <= 0 {
		config.Interval = DefaultInterval
	}
	return &Server{
		source: source,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		activeConns: make(map[string]*websocket.Conn),
		closing:     make(chan struct{}),
	}
}

// Handler returns the HTTP routes: /ws streams snapshots, /devices returns
// the current snapshot once.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/devices", s.handleDevices)
	return mux
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Monitor feed listening",
		zap.String("addr", listener.Addr().String()),
		zap.Duration("interval", s.config.Interval),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Monitor feed stopped", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the listening address, or "" before Start
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the listener and sends a close frame to every feed client.
// Connections still open when ctx expires are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closeOnce.Do(func() { close(s.closing) })
	s.mu.Unlock()
	logging.Info("Monitor feed stopping", zap.Int("active_connections", s.ActiveConnections()))

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Monitor feed shutdown timeout, forcing close")
		s.mu.Lock()
		for addr, conn := range s.activeConns {
			logging.Debug("Closing feed connection", zap.String("remote_addr", addr))
			_ = conn.Close()
		}
		s.mu.Unlock()
	}
	return err
}

// ActiveConnections returns the number of connected feed clients
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) snapshot() Snapshot {
	gen := s.source.Generation()
	return BuildSnapshot(s.source.All(), gen, time.Now())
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		logging.Warn("Failed to write device snapshot",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// hijacked connections are invisible to http.Server.Shutdown, so they
	// join wg before the upgrade and are refused once closing is closed
	s.mu.Lock()
	select {
	case <-s.closing:
		s.mu.Unlock()
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	s.wg.Add(1)
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.wg.Done()
		logging.Warn("Failed to upgrade to WebSocket",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	remoteAddr := r.RemoteAddr
	s.mu.Lock()
	s.activeConns[remoteAddr] = conn
	s.mu.Unlock()

	logging.LogConnection(remoteAddr, "feed_connected")
	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.LogConnection(remoteAddr, "feed_closed")
		s.wg.Done()
	}()

	gone := make(chan struct{})
	go readPump(conn, gone)

	if err := s.writePump(conn, gone); err != nil {
		logging.Debug("Feed write ended",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
	}
}

// readPump discards client messages and closes gone when the peer leaves
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump sends a snapshot on connect and again whenever the registry
// generation changes
func (s *Server) writePump(conn *websocket.Conn, gone <-chan struct{}) error {
	check := time.NewTicker(s.config.Interval)
	defer check.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	sent := false
	var lastGen uint64
	for {
		if gen := s.source.Generation(); !sent || gen != lastGen {
			snap := BuildSnapshot(s.source.All(), gen, time.Now())
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				return err
			}
			sent = true
			lastGen = gen
		}

		select {
		case <-check.C:
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		case <-gone:
			return nil
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return nil
		}
	}
}
