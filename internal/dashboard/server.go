// Package dashboard serves a read-only live view of the issue cache: an HTTP
// endpoint for the current issue list and a websocket feed that pushes a
// fresh snapshot whenever the canonical JSONL file changes on disk.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/steveyegge/lb/internal/config"
	"github.com/steveyegge/lb/internal/store"
	"github.com/steveyegge/lb/internal/types"
)

// MessageType tags a websocket broadcast.
type MessageType string

const (
	// MessageTypeSnapshot carries the full issue list after a change.
	MessageTypeSnapshot MessageType = "snapshot"

	// MessageTypeStats carries aggregate counts only.
	MessageTypeStats MessageType = "stats"
)

// Message is one websocket broadcast frame.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Stats aggregates the cache for the stats frame and /health.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"in_progress"`
	Closed     int `json:"closed"`
	Blocked    int `json:"blocked"`
	Outbox     int `json:"outbox"`
}

// Server owns the HTTP listener, the websocket clients, and the snapshot
// watcher.
type Server struct {
	cfg   *config.Config
	store *store.Store
	addr  string

	listener net.Listener
	server   *http.Server

	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	broadcast chan Message

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *log.Logger
}

// New builds a dashboard server bound to addr, reading from st.
func New(cfg *config.Config, st *store.Store, addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:       cfg,
		store:     st,
		addr:      addr,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 64),
		ctx:       ctx,
		cancel:    cancel,
		log:       logger,
	}
}

// Start binds the listener and launches the broadcast and watcher loops.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/issues", s.handleIssues)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go s.watchSnapshot()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Printf("dashboard: %v", err)
		}
	}()
	return nil
}

// Stop closes every client and shuts the listener down.
func (s *Server) Stop() error {
	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	s.wg.Wait()
	return nil
}

// Addr returns the bound address, usable after Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the number of connected websocket clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcast queues a frame for every connected client. Frames are dropped
// when the channel is full; clients always get a fresh snapshot on the next
// change.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
	default:
		s.log.Println("dashboard: broadcast queue full, dropping frame")
	}
}

func (s *Server) broadcastLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now().UTC()
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Printf("dashboard: encoding frame: %v", err)
				continue
			}

			// Snapshot the client set first so slow writers never hold the lock.
			s.clientsMu.RLock()
			conns := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				conns = append(conns, conn)
			}
			s.clientsMu.RUnlock()

			for _, conn := range conns {
				if err := s.writeFrame(conn, data); err != nil {
					s.removeClient(conn)
				}
			}
		}
	}
}

// snapshotMessage reads the cache and packages the full issue list.
func (s *Server) snapshotMessage() (Message, error) {
	issues, err := s.store.AllIssues()
	if err != nil {
		return Message{}, err
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MessageTypeSnapshot, Timestamp: time.Now().UTC(), Data: data}, nil
}

func (s *Server) stats() (*Stats, error) {
	issues, err := s.store.AllIssues()
	if err != nil {
		return nil, err
	}
	blocked, err := s.store.BlockedSet()
	if err != nil {
		return nil, err
	}
	outbox, err := s.store.CountOutbox()
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(issues), Outbox: outbox}
	for _, issue := range issues {
		switch issue.Status {
		case types.StatusInProgress:
			stats.InProgress++
		case types.StatusClosed:
			stats.Closed++
		default:
			stats.Open++
		}
		if issue.Status != types.StatusClosed && blocked[issue.ID] {
			stats.Blocked++
		}
	}
	return stats, nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Printf("dashboard: websocket accept: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()

	// New clients get the current state immediately.
	if msg, err := s.snapshotMessage(); err == nil {
		if data, err := json.Marshal(msg); err == nil {
			_ = s.writeFrame(conn, data)
		}
	}

	go s.readLoop(conn)
}

func (s *Server) writeFrame(conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}

// readLoop drains client frames so pings work; client input is ignored.
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)
	for {
		if _, _, err := conn.Read(s.ctx); err != nil {
			return
		}
	}
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, exists := s.clients[conn]
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	if exists {
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

func (s *Server) handleIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.AllIssues()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(issues)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
		"stats":   stats,
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>lb dashboard</title></head>
<body>
  <h1>lb dashboard</h1>
  <p>Issue list: <a href="/issues">/issues</a></p>
  <p>Health: <a href="/health">/health</a></p>
  <p>Live feed: <code>ws://%s/ws</code> (snapshot on every cache change)</p>
</body>
</html>`, r.Host)
}
