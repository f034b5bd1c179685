package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"PosLedger/app/database"

	"github.com/gorilla/websocket"
	"github.com/grandcat/zeroconf"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	TypeChange       MessageType = "change"
	TypeNotification MessageType = "notification"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeAuthResponse MessageType = "auth_response"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID          string
	Connection  *websocket.Conn
	Send        chan []byte
	Server      *Server
	ConnectedAt time.Time
	RemoteAddr  string
}

// Server is the device's network surface: the REST API, a WebSocket feed of
// committed data changes, and an mDNS announcement so other devices on the
// LAN can find it. Change events come from the local store's observer bus, so
// every committed write reaches connected clients whether it originated here
// or arrived through sync.
type Server struct {
	clients    map[string]*Client
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	upgrader   websocket.Upgrader
	mu         sync.RWMutex

	addr     string
	local    *database.LocalDB
	handlers *RESTHandlers

	httpServer   *http.Server
	mdnsServer   *zeroconf.Server
	enableMDNS   bool
	unsubscribes []func()
	done         chan struct{}
}

// NewServer creates the network server
func NewServer(addr string, local *database.LocalDB, handlers *RESTHandlers, enableMDNS bool) *Server {
	return &Server{
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		addr:       addr,
		local:      local,
		handlers:   handlers,
		enableMDNS: enableMDNS,
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Local network app; clients connect from other devices.
				return true
			},
		},
	}
}

// Start runs the hub, subscribes to data changes and serves HTTP. Blocks
// until Stop is called or the listener fails.
func (s *Server) Start() error {
	go s.run()
	s.subscribeChanges()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.handlers.Register(mux)

	if s.enableMDNS {
		go s.startMDNS()
	}

	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: mux,
	}

	log.Printf("Server starting on %s", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// subscribeChanges forwards committed data changes to connected clients
func (s *Server) subscribeChanges() {
	for _, collection := range database.SyncedCollections {
		unsub := s.local.Subscribe(collection, func(event database.Event) {
			data, err := json.Marshal(event)
			if err != nil {
				return
			}
			s.BroadcastMessage(Message{
				Type:      TypeChange,
				Timestamp: time.Now(),
				Data:      data,
			})
		})
		s.unsubscribes = append(s.unsubscribes, unsub)
	}
}

// startMDNS announces the server via mDNS/Zeroconf so other devices on the
// network can discover it without configuration.
func (s *Server) startMDNS() {
	portStr := s.addr
	if idx := strings.LastIndex(portStr, ":"); idx >= 0 {
		portStr = portStr[idx+1:]
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("mDNS: Invalid address %s: %v", s.addr, err)
		return
	}

	server, err := zeroconf.Register(
		"PosLedger Server",
		"_posledger._tcp",
		"local.",
		port,
		[]string{"version=2.0"},
		nil,
	)
	if err != nil {
		log.Printf("mDNS: Failed to register service: %v", err)
		return
	}

	s.mdnsServer = server
	log.Println("mDNS: Server announced on _posledger._tcp.local")
}

// Stop shuts everything down: mDNS, change subscriptions, client connections
// and the HTTP listener.
func (s *Server) Stop() {
	close(s.done)

	if s.mdnsServer != nil {
		s.mdnsServer.Shutdown()
		log.Println("mDNS: Service announcement stopped")
	}

	for _, unsub := range s.unsubscribes {
		unsub()
	}
	s.unsubscribes = nil

	s.mu.Lock()
	for _, client := range s.clients {
		close(client.Send)
		client.Connection.Close()
	}
	s.clients = make(map[string]*Client)
	s.mu.Unlock()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// run handles the main hub loop
func (s *Server) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case client := <-s.register:
			s.mu.Lock()
			s.clients[client.ID] = client
			s.mu.Unlock()
			log.Printf("Client connected: %s from %s", client.ID, client.RemoteAddr)
			s.sendWelcome(client)

		case client := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[client.ID]; ok {
				delete(s.clients, client.ID)
				s.mu.Unlock()
				s.closeClientSend(client)
				log.Printf("Client disconnected: %s", client.ID)
			} else {
				s.mu.Unlock()
			}

		case message := <-s.broadcast:
			s.mu.Lock()
			for id, client := range s.clients {
				select {
				case client.Send <- message:
				default:
					// Client buffer is full, disconnect
					delete(s.clients, id)
					s.closeClientSend(client)
				}
			}
			s.mu.Unlock()

		case <-ticker.C:
			s.sendHeartbeat()

		case <-s.done:
			return
		}
	}
}

func (s *Server) closeClientSend(client *Client) {
	go func(c *Client) {
		defer func() {
			if r := recover(); r != nil {
				// Channel already closed, ignore
			}
		}()
		close(c.Send)
	}(client)
}

// handleWebSocket handles WebSocket connection upgrades. The feed requires a
// valid session token, same as the REST API.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	if _, ok := s.handlers.users.Validate(token); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		ID:          generateClientID(),
		Connection:  conn,
		Send:        make(chan []byte, 256),
		Server:      s,
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	s.register <- client

	go client.writePump()
	go client.readPump()
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	response := map[string]interface{}{
		"status":  "healthy",
		"clients": clientCount,
		"time":    time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// readPump handles reading messages from the client
func (c *Client) readPump() {
	defer func() {
		c.Server.unregister <- c
		c.Connection.Close()
	}()

	c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Connection.SetPongHandler(func(string) error {
		c.Connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, messageBytes, err := c.Connection.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var message Message
		if err := json.Unmarshal(messageBytes, &message); err != nil {
			log.Printf("Error parsing message: %v", err)
			continue
		}
		c.handleMessage(&message)
	}
}

// writePump handles writing messages to the client
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Connection.WriteMessage(websocket.TextMessage, message)

		case <-ticker.C:
			c.Connection.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage handles incoming messages from clients. The feed is
// read-mostly; clients only send heartbeats.
func (c *Client) handleMessage(message *Message) {
	switch message.Type {
	case TypeHeartbeat:
		c.sendMessage(Message{
			Type:      TypeHeartbeat,
			Timestamp: time.Now(),
			Data:      json.RawMessage(`{"status":"alive"}`),
		})
	default:
		log.Printf("Unknown message type from client %s: %s", c.ID, message.Type)
	}
}

// sendMessage sends a message to the client
func (c *Client) sendMessage(message Message) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	select {
	case c.Send <- data:
		return nil
	default:
		return fmt.Errorf("client send channel is full")
	}
}

// BroadcastMessage broadcasts a message to all connected clients
func (s *Server) BroadcastMessage(message Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	select {
	case s.broadcast <- data:
	case <-s.done:
	}
}

// sendHeartbeat sends heartbeat to all clients
func (s *Server) sendHeartbeat() {
	message := Message{
		Type:      TypeHeartbeat,
		Timestamp: time.Now(),
		Data:      json.RawMessage(`{"ping":"pong"}`),
	}
	data, err := json.Marshal(message)
	if err != nil {
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		select {
		case client.Send <- data:
		default:
			log.Printf("Failed to send heartbeat to client %s", client.ID)
		}
	}
}

// sendWelcome confirms the connection to a new client
func (s *Server) sendWelcome(client *Client) {
	data, _ := json.Marshal(map[string]interface{}{
		"success":   true,
		"client_id": client.ID,
	})
	client.sendMessage(Message{
		Type:      TypeAuthResponse,
		Timestamp: time.Now(),
		Data:      data,
	})
}

// GetConnectedClients returns the connected client list
func (s *Server) GetConnectedClients() []map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]map[string]interface{}, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, map[string]interface{}{
			"id":           client.ID,
			"connected_at": client.ConnectedAt.Format(time.RFC3339),
			"remote_addr":  client.RemoteAddr,
		})
	}
	return clients
}

func generateClientID() string {
	return fmt.Sprintf("%d-%d", time.Now().Unix(), time.Now().Nanosecond())
}
