package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game is one of the titles tournaments can be hosted for.
type Game string

const (
	GamePUBG     Game = "PUBG"
	GameFreeFire Game = "FREEFIRE"
)

// Games lists the supported games in display order.
func Games() []Game {
	return []Game{GamePUBG, GameFreeFire}
}

// Valid reports whether g is a supported game.
func (g Game) Valid() bool {
	switch g {
	case GamePUBG, GameFreeFire:
		return true
	}
	return false
}

// Status is derived from (is_ended, scheduled_at, now), it is never stored.
type Status string

const (
	StatusOpen   Status = "open"   // accepting entries
	StatusClosed Status = "closed" // scheduled time passed, waiting for the admin to end it
	StatusEnded  Status = "ended"
)

const (
	MaxNameLength        = 50
	MaxDescriptionLength = 255
	MaxKills             = 1000 // per award
)

type Tournament struct {
	ID                  int64           `json:"id"`
	AdminID             int64           `json:"admin_id"`
	Game                Game            `json:"game"`
	Name                string          `json:"name"`
	Description         string          `json:"description"`
	RoomID              string          `json:"room_id"`
	RoomPassword        string          `json:"room_password"`
	EntryFee            decimal.Decimal `json:"entry_fee"`
	Prize               decimal.Decimal `json:"prize"`
	PerKillPrize        decimal.Decimal `json:"per_kill_prize"`
	MaxParticipants     int             `json:"max_participants"`
	CurrentParticipants int             `json:"current_participants"`
	ScheduledAt         time.Time       `json:"scheduled_at"`
	IsEnded             bool            `json:"is_ended"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// Status is the single predicate every operation uses to decide what is allowed.
func (t *Tournament) Status(now time.Time) Status {
	switch {
	case t.IsEnded:
		return StatusEnded
	case t.ScheduledAt.After(now):
		return StatusOpen
	default:
		return StatusClosed
	}
}

// HideRoom clears the room credentials, for users who have not joined.
func (t *Tournament) HideRoom() {
	t.RoomID = ""
	t.RoomPassword = ""
}

func (t *Tournament) IsFull() bool {
	return t.CurrentParticipants >= t.MaxParticipants
}

// TournamentSpec is the input of tournament creation.
type TournamentSpec struct {
	Game            Game            `json:"game"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	RoomID          string          `json:"room_id"`
	RoomPassword    string          `json:"room_password"`
	EntryFee        decimal.Decimal `json:"entry_fee"`
	Prize           decimal.Decimal `json:"prize"`
	PerKillPrize    decimal.Decimal `json:"per_kill_prize"`
	MaxParticipants int             `json:"max_participants"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
}

// TournamentUpdate is a partial edit. A nil field was not supplied; a pointer
// to the zero value (e.g. an empty description) clears it.
type TournamentUpdate struct {
	Game            *Game            `json:"game,omitempty"`
	Name            *string          `json:"name,omitempty"`
	Description     *string          `json:"description,omitempty"`
	EntryFee        *decimal.Decimal `json:"entry_fee,omitempty"`
	Prize           *decimal.Decimal `json:"prize,omitempty"`
	PerKillPrize    *decimal.Decimal `json:"per_kill_prize,omitempty"`
	MaxParticipants *int             `json:"max_participants,omitempty"`
	ScheduledAt     *time.Time       `json:"scheduled_at,omitempty"`
}

func (u TournamentUpdate) Empty() bool {
	return u.Game == nil && u.Name == nil && u.Description == nil && u.EntryFee == nil &&
		u.Prize == nil && u.PerKillPrize == nil && u.MaxParticipants == nil && u.ScheduledAt == nil
}

// Apply copies the supplied fields onto t.
func (u TournamentUpdate) Apply(t *Tournament) {
	if u.Game != nil {
		t.Game = *u.Game
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.EntryFee != nil {
		t.EntryFee = *u.EntryFee
	}
	if u.Prize != nil {
		t.Prize = *u.Prize
	}
	if u.PerKillPrize != nil {
		t.PerKillPrize = *u.PerKillPrize
	}
	if u.MaxParticipants != nil {
		t.MaxParticipants = *u.MaxParticipants
	}
	if u.ScheduledAt != nil {
		t.ScheduledAt = *u.ScheduledAt
	}
}

// TournamentFilter narrows tournament listings. Zero values mean "any".
type TournamentFilter struct {
	AdminID        int64
	Game           Game
	Ended          *bool
	ScheduledAfter time.Time // exclusive
	ScheduledUntil time.Time // inclusive
}

// TournamentView is what a user sees for a single tournament.
type TournamentView struct {
	Tournament      *Tournament `json:"tournament"`
	Status          Status      `json:"status"`
	HasParticipated bool        `json:"has_participated"`
	Winnings        []*Winning  `json:"winnings,omitempty"`
}
