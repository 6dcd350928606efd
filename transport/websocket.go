// Package transport publishes session events to remote observers.
package transport

import (
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/richinsley/dancecurve/session"
)

// Message is the JSON envelope written to clients.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Event types.
const (
	TypeProgress     = "progress"
	TypeFrameRate    = "fps"
	TypeLevel        = "level"
	TypeFinished     = "finished"
	TypeTrackAdded   = "track_added"
	TypeTrackRemoved = "track_removed"
	TypeDiagnostic   = "diagnostic"
)

// WebSocket broadcasts messages to every client connected on /ws. Messages
// are queued and dropped when the queue is full so Send never blocks the
// render loop.
type WebSocket struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan Message
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
}

// NewWebSocket creates a publisher for addr. Call Start to listen.
func NewWebSocket(addr string) *WebSocket {
	ws := &WebSocket{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // observers are local tools
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 256),
		done:      make(chan struct{}),
	}
	go ws.handleBroadcasts()
	return ws
}

// Handler serves the websocket endpoint.
func (ws *WebSocket) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ws.handleWebSocket)
	return mux
}

// Start listens on the configured address and serves in the background.
// Bind errors are returned.
func (ws *WebSocket) Start() error {
	ln, err := net.Listen("tcp", ws.addr)
	if err != nil {
		return err
	}
	ws.server = &http.Server{Handler: ws.Handler()}
	go func() {
		glog.Infof("WebSocket: serving events on ws://%s/ws", ln.Addr())
		if err := ws.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			glog.Errorf("WebSocket: server error: %v", err)
		}
	}()
	return nil
}

func (ws *WebSocket) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("WebSocket: upgrade error: %v", err)
		return
	}

	ws.clientsMu.Lock()
	ws.clients[conn] = true
	n := len(ws.clients)
	ws.clientsMu.Unlock()
	glog.Infof("WebSocket: client connected, total: %d", n)

	// Clients never send anything; a read error means they went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.drop(conn)
				return
			}
		}
	}()
}

func (ws *WebSocket) drop(conn *websocket.Conn) {
	ws.clientsMu.Lock()
	_, ok := ws.clients[conn]
	delete(ws.clients, conn)
	n := len(ws.clients)
	ws.clientsMu.Unlock()
	if ok {
		conn.Close()
		glog.Infof("WebSocket: client disconnected, total: %d", n)
	}
}

func (ws *WebSocket) handleBroadcasts() {
	for {
		select {
		case <-ws.done:
			return
		case msg := <-ws.broadcast:
			ws.clientsMu.Lock()
			for client := range ws.clients {
				if err := client.WriteJSON(msg); err != nil {
					glog.Warningf("WebSocket: error sending to client: %v", err)
					client.Close()
					delete(ws.clients, client)
				}
			}
			ws.clientsMu.Unlock()
		}
	}
}

// Clients is the number of connected clients.
func (ws *WebSocket) Clients() int {
	ws.clientsMu.Lock()
	defer ws.clientsMu.Unlock()
	return len(ws.clients)
}

// Send queues msg for every client. It reports false when the queue was
// full and the message was dropped.
func (ws *WebSocket) Send(msg Message) bool {
	select {
	case ws.broadcast <- msg:
		return true
	default:
		return false
	}
}

// Attach forwards every event of ev. The returned func detaches.
func (ws *WebSocket) Attach(ev *session.Events) (detach func()) {
	send := func(typ string) func(any) {
		return func(v any) { ws.Send(Message{Type: typ, Data: v}) }
	}
	unsubs := []func(){
		ev.Progress.Subscribe(func(p float64) { send(TypeProgress)(p) }),
		ev.FrameRate.Subscribe(func(r float64) { send(TypeFrameRate)(r) }),
		ev.Level.Subscribe(func(l session.Level) { send(TypeLevel)(l) }),
		ev.Finished.Subscribe(func(path string) { send(TypeFinished)(path) }),
		ev.TrackAdded.Subscribe(func(path string) { send(TypeTrackAdded)(path) }),
		ev.TrackRemoved.Subscribe(func(path string) { send(TypeTrackRemoved)(path) }),
		ev.Diagnostic.Subscribe(func(d session.Diagnostic) { send(TypeDiagnostic)(d) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// Close disconnects every client and stops the server.
func (ws *WebSocket) Close() error {
	glog.Info("WebSocket: closing server")
	ws.closeOnce.Do(func() { close(ws.done) })

	ws.clientsMu.Lock()
	for client := range ws.clients {
		client.Close()
	}
	clear(ws.clients)
	ws.clientsMu.Unlock()

	if ws.server != nil {
		return ws.server.Close()
	}
	return nil
}
