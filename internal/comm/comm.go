package comm

import (
	"encoding/json"
	"time"
)

// NATS subjects shared by tourneysvc and socketsvc.
const (
	SubjectEvents   = "tourney.events"   // tourneysvc -> socketsvc
	SubjectRequests = "tourney.requests" // socketsvc -> tourneysvc
)

// Tournament event types published after a lifecycle change commits.
const (
	EventTournamentCreated = "tournament-created"
	EventParticipantJoined = "participant-joined"
	EventTournamentEnded   = "tournament-ended"
	EventKillReward        = "kill-reward"
	EventTournamentClosed  = "tournament-closed"
)

// Socket request and response types.
const (
	TypeWatch          = "watch"
	TypeUnwatch        = "unwatch"
	TypeGetBalance     = "get-balance"
	TypeBalanceResp    = "balance-resp"
	TypeGetTournament  = "get-tournament"
	TypeTournamentResp = "tournament-resp"
	TypeError          = "error"
)

type WSMessage struct {
	Type     string          `json:"type"` // e.g. "watch", "get-balance"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// TournamentEvent is the payload of every lifecycle event. Amount is a
// decimal string so clients never see float rounding.
type TournamentEvent struct {
	Type         string    `json:"type"`
	TournamentID int64     `json:"tournament_id"`
	UserID       int64     `json:"user_id,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	Count        int       `json:"count,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// WatchRequest subscribes a socket to one tournament, or to all when 0.
type WatchRequest struct {
	TournamentID int64 `json:"tournament_id"`
}

// UserRequest is what socketsvc forwards for an authenticated socket.
type UserRequest struct {
	UserID       int64 `json:"user_id"`
	TournamentID int64 `json:"tournament_id,omitempty"`
}

type PlayerData struct {
	UserId  int64  `json:"user_id"`
	Balance string `json:"balance"`
}

type ErrorData struct {
	Error string `json:"error"`
}
