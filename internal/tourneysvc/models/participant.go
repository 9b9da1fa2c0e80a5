package models

import "time"

type Participant struct {
	ID           int64     `json:"id"`            // Primary key
	TournamentID int64     `json:"tournament_id"` // FK to tournaments(id)
	UserID       int64     `json:"user_id"`       // FK to users(id)
	InGameName   string    `json:"in_game_name"`
	InGameID     string    `json:"in_game_id"`
	Level        int       `json:"level"`
	JoinedAt     time.Time `json:"joined_at"`
}

// PlayerIdentity is the game-side identity a user registers with.
type PlayerIdentity struct {
	InGameName string `json:"in_game_name"`
	InGameID   string `json:"in_game_id"`
	Level      int    `json:"level"`
}

// ParticipantDetail is a roster line: the join row plus the user it belongs to.
type ParticipantDetail struct {
	Participant
	Name  string `json:"name"`
	Email string `json:"email"`
}
