package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Broker struct {
	pub            Publisher
	clock          clockwork.Clock
	BalanceService *service.BalanceService
	QueryService   *service.QueryService
}

func NewBroker(pub Publisher, clock clockwork.Clock, balanceService *service.BalanceService, queryService *service.QueryService) *Broker {
	return &Broker{
		pub:            pub,
		clock:          clock,
		BalanceService: balanceService,
		QueryService:   queryService,
	}
}

// Notify publishes a committed lifecycle event for socketsvc to fan out.
func (b *Broker) Notify(ev comm.TournamentEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = b.clock.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Errorf("[Notify] unable to marshal event %s: %s", ev.Type, err)
		return
	}
	b.send(ev.Type, data, "")
}

// handles request coming from socket
func (b *Broker) handleMessage(msgNat *nats.Msg) {
	msg := &comm.WSMessage{}
	if err := json.Unmarshal(msgNat.Data, msg); err != nil {
		log.Errorf("Error nats message %s", err)
		return
	}

	var request comm.UserRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil || request.UserID == 0 {
		log.Errorf("Error malformed %s request from socket %s", msg.Type, msg.SocketId)
		b.replyError("malformed request", msg.SocketId)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case comm.TypeGetBalance:
		balance, err := b.BalanceService.Balance(ctx, request.UserID)
		if err != nil {
			log.Errorf("Error [BalanceService.Balance] %s", err)
			b.replyError(errorText(err), msg.SocketId)
			return
		}
		b.reply(comm.TypeBalanceResp, comm.PlayerData{
			UserId:  request.UserID,
			Balance: balance.StringFixed(2),
		}, msg.SocketId)
	case comm.TypeGetTournament:
		view, err := b.QueryService.GetForUser(ctx, request.UserID, request.TournamentID)
		if err != nil {
			log.Errorf("Error [QueryService.GetForUser] %s", err)
			b.replyError(errorText(err), msg.SocketId)
			return
		}
		b.reply(comm.TypeTournamentResp, view, msg.SocketId)
	default:
		log.Errorf("Unknown message %s", msg.Type)
		b.replyError("unknown message type", msg.SocketId)
	}
}

// errorText keeps infrastructure details off the socket.
func errorText(err error) string {
	if models.IsDomainError(err) {
		return err.Error()
	}
	return "internal error"
}

func (b *Broker) reply(msgType string, v any, socketId string) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Errorf("[reply] unable to marshal %s for %s: %s", msgType, socketId, err)
		return
	}
	b.send(msgType, data, socketId)
}

func (b *Broker) replyError(text, socketId string) {
	b.reply(comm.TypeError, comm.ErrorData{Error: text}, socketId)
}

func (b *Broker) send(msgType string, data json.RawMessage, socketId string) {
	msg := &comm.WSMessage{
		Type:     msgType,
		Data:     data,
		SocketId: socketId,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Error %s", err)
		return
	}

	b.Publish(comm.SubjectEvents, payload)
}

// consume requests from socket service (Queue)
func (b *Broker) QueueSubscribeRequests(nc *nats.Conn, queueGroup string) (*nats.Subscription, error) {
	sub, err := nc.QueueSubscribe(comm.SubjectRequests, queueGroup, b.handleMessage)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.pub.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
