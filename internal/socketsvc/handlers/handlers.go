package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/socketsvc/ws"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	upgrader websocket.Upgrader
	ws       *ws.Ws
	port     string
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func NewHandler(s *ws.Ws, port string, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	h := &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		ws:   s,
		port: port,
	}
	return h
}

// HandleWebSocket upgrades an authenticated request and starts reading
// client messages for it.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, conn, id.ID)

	log.WithFields(log.Fields{"socket_id": socketId, "user_id": id.ID}).Info("new websocket connection")

	go h.handleConnection(conn, socketId)
}

func (h *Handler) handleConnection(conn *websocket.Conn, socketId string) {
	defer func() {
		log.Infof("Closing WebSocket connection: %s", socketId)
		h.ws.HandleDisconnect(socketId)
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			}
			return
		}

		message := &comm.WSMessage{}
		if err := json.Unmarshal(raw, message); err != nil {
			log.Errorf("Failed to unmarshal message from socket %s: %v", socketId, err)
			h.sendErrorToClient(socketId, "invalid message format")
			continue
		}

		log.Debugf("Received message from socket %s: type=%s", socketId, message.Type)
		h.ws.SocketMessage(socketId, message)
	}
}

func (h *Handler) sendErrorToClient(socketId string, errorMsg string) {
	client, ok := h.ws.GetConnection(socketId)
	if !ok {
		return
	}
	data, _ := json.Marshal(comm.ErrorData{Error: errorMsg})
	if err := client.WriteJSON(comm.WSMessage{Type: comm.TypeError, Data: data, SocketId: socketId}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)
	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.CreateResponse(w, Response{
		Message: "socket service is running at port " + h.port,
		Code:    http.StatusOK,
	})
}
