package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans job updates out to the websocket listeners of each job.
// Listeners are per-job; detaching one job never touches another.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*websocket.Conn]bool),
	}
}

// HandleJobSocket upgrades the connection and keeps it subscribed until
// the client goes away or the job is detached.
func (h *Hub) HandleJobSocket(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		http.Error(w, "Missing jobId", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*websocket.Conn]bool)
	}
	h.subscribers[jobID][conn] = true
	count := len(h.subscribers[jobID])
	h.mu.Unlock()
	log.Printf("📡 [Progress] Listener joined job %s (listeners: %d)", jobID, count)

	// read loop exists only to detect the client leaving
	go func() {
		defer h.remove(jobID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("⚠️  [Progress] Listener error on job %s: %v", jobID, err)
				}
				return
			}
		}
	}()
}

// Publish sends an update to every listener of the job. Dead connections
// are dropped as they fail.
func (h *Hub) Publish(jobID string, payload any) {
	message, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ [Progress] Failed to marshal update for job %s: %v", jobID, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subscribers[jobID] {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			conn.Close()
			delete(h.subscribers[jobID], conn)
		}
	}
}

// Detach closes every listener of the job. The job itself is untouched.
func (h *Hub) Detach(jobID string) {
	h.mu.Lock()
	conns := h.subscribers[jobID]
	delete(h.subscribers, jobID)
	h.mu.Unlock()

	for conn := range conns {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "dismissed"))
		conn.Close()
	}
	if len(conns) > 0 {
		log.Printf("👋 [Progress] Detached %d listener(s) from job %s", len(conns), jobID)
	}
}

func (h *Hub) remove(jobID string, conn *websocket.Conn) {
	h.mu.Lock()
	if subs, ok := h.subscribers[jobID]; ok {
		delete(subs, conn)
		if len(subs) == 0 {
			delete(h.subscribers, jobID)
		}
	}
	h.mu.Unlock()
	conn.Close()
}
