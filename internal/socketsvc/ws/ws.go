package ws

import (
	"encoding/json"
	"sync"

	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Publisher forwards socket requests to tourneysvc.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Client is one websocket connection. gorilla allows a single concurrent
// writer, so every write goes through WriteJSON.
type Client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	UserId int64
}

func (c *Client) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

type Ws struct {
	connMap  sync.Map // to keep track of socket connection with socketId
	watchMap sync.Map // socketId -> watched tournament id, 0 for all
	Broker   Publisher
}

func NewWs() *Ws {
	return &Ws{}
}

// handle socket message from web clients
func (s *Ws) SocketMessage(socketId string, message *comm.WSMessage) {
	switch message.Type {
	case comm.TypeWatch:
		s.handleWatch(socketId, message)
	case comm.TypeUnwatch:
		s.watchMap.Delete(socketId)
	case comm.TypeGetBalance, comm.TypeGetTournament:
		s.forward(socketId, message)
	default:
		log.Warnf("unknown event received: %s", message.Type)
		s.sendError(socketId, "unknown message type")
	}
}

func (s *Ws) handleWatch(socketId string, msg *comm.WSMessage) {
	var req comm.WatchRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil || req.TournamentID < 0 {
		log.Errorf("Error: invalid watch payload from %s", socketId)
		s.sendError(socketId, "invalid watch payload")
		return
	}
	s.watchMap.Store(socketId, req.TournamentID)
	log.Debugf("socket %s watching tournament %d", socketId, req.TournamentID)
}

// forward stamps the request with the authenticated user so clients cannot
// ask on behalf of someone else.
func (s *Ws) forward(socketId string, msg *comm.WSMessage) {
	client, ok := s.GetConnection(socketId)
	if !ok {
		return
	}

	var req comm.UserRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			s.sendError(socketId, "invalid payload")
			return
		}
	}
	req.UserID = client.UserId

	data, err := json.Marshal(req)
	if err != nil {
		log.Errorf("Failed to marshal request: %v", err)
		return
	}

	bytes, err := json.Marshal(comm.WSMessage{Type: msg.Type, Data: data, SocketId: socketId})
	if err != nil {
		log.Errorf("Failed to marshal WSMessage for NATS: %v", err)
		return
	}

	if err := s.Broker.Publish(comm.SubjectRequests, bytes); err != nil {
		log.Errorf("Failed to publish to NATS topic %s: %v", comm.SubjectRequests, err)
		s.sendError(socketId, "service unavailable")
	}
}

func (s *Ws) sendError(socketId, text string) {
	client, ok := s.GetConnection(socketId)
	if !ok {
		return
	}
	data, _ := json.Marshal(comm.ErrorData{Error: text})
	if err := client.WriteJSON(comm.WSMessage{Type: comm.TypeError, Data: data, SocketId: socketId}); err != nil {
		log.Errorf("Failed to send error message to client: %v", err)
	}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn, userId int64) {
	s.connMap.Store(socketId, &Client{conn: conn, UserId: userId})
}

func (s *Ws) GetConnection(socketId string) (*Client, bool) {
	client, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return client.(*Client), true
}

// GetWatchers returns the sockets watching tournamentId or all tournaments.
func (s *Ws) GetWatchers(tournamentId int64) []string {
	var sockets []string
	s.watchMap.Range(func(key, value interface{}) bool {
		if watched := value.(int64); watched == 0 || watched == tournamentId {
			sockets = append(sockets, key.(string))
		}
		return true // continue iterating
	})
	return sockets
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.watchMap.Delete(socketId)
}
