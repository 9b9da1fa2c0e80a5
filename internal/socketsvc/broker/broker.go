package broker

import (
	"encoding/json"

	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/socketsvc/ws"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

type Broker struct {
	Conn          *nats.Conn
	GetConnection func(string) (*ws.Client, bool)
	GetWatchers   func(int64) []string
}

func NewBroker(conn *nats.Conn, fncGetConnection func(string) (*ws.Client, bool), fncGetWatchers func(int64) []string) *Broker {
	return &Broker{
		Conn:          conn,
		GetConnection: fncGetConnection,
		GetWatchers:   fncGetWatchers,
	}
}

// consume message from tourney service
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

// publish message to tourney service
func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.Dispatch(msgNats.Data)
}

// Dispatch routes a message from tourneysvc. Replies carry the socket they
// answer; lifecycle events go to every watcher of the tournament.
func (b *Broker) Dispatch(raw []byte) {
	message := &comm.WSMessage{}
	if err := json.Unmarshal(raw, message); err != nil {
		log.Errorf("Error %s", err)
		return
	}

	if message.SocketId != "" {
		b.sendMessage(message.SocketId, message)
		return
	}

	switch message.Type {
	case comm.EventTournamentCreated, comm.EventParticipantJoined, comm.EventTournamentEnded,
		comm.EventKillReward, comm.EventTournamentClosed:
		var ev comm.TournamentEvent
		if err := json.Unmarshal(message.Data, &ev); err != nil {
			log.Errorf("Error malformed event %s: %s", message.Type, err)
			return
		}
		for _, socketId := range b.GetWatchers(ev.TournamentID) {
			b.sendMessage(socketId, message)
		}
	default:
		log.Errorf("Unknown message %s", message.Type)
	}
}

// send socket message to the web client
func (b *Broker) sendMessage(socketId string, m *comm.WSMessage) {
	if client, ok := b.GetConnection(socketId); ok {
		if err := client.WriteJSON(m); err != nil {
			log.Errorf("Error writing to socket %s: %s", socketId, err)
		}
	}
}
