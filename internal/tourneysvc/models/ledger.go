package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(14,2).
const MoneyScale = 2

// MaxAmount is the first value a money column cannot hold.
var MaxAmount = decimal.New(1, 12)

type WinningType string

const (
	WinningPrize WinningType = "winnings"
	WinningKill  WinningType = "kill"
)

// Winning is an append-only payout record.
type Winning struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	TournamentID int64           `json:"tournament_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         WinningType     `json:"type"`
	CreatedAt    time.Time       `json:"created_at"`
}

// HistoryType describes what caused a history entry.
type HistoryType string

const (
	HistoryDeposit            HistoryType = "deposit"
	HistoryWithdrawal         HistoryType = "withdrawal"
	HistoryTournamentEntry    HistoryType = "tournament_entry"
	HistoryTournamentWinnings HistoryType = "tournament_winnings"
	HistoryKillReward         HistoryType = "kill_reward"
	HistoryAdjustment         HistoryType = "adjustment"
	HistoryRejection          HistoryType = "rejection"
)

type BalanceEffect string

const (
	EffectIncrease BalanceEffect = "increase"
	EffectDecrease BalanceEffect = "decrease"
	EffectNone     BalanceEffect = "none"
)

const (
	HistoryStatusCompleted = "completed"
	HistoryStatusRejected  = "rejected"
)

// History is the append-only audit trail: one row per balance change.
type History struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Type          HistoryType     `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceEffect BalanceEffect   `json:"balance_effect"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Status        string          `json:"status"`
	Message       string          `json:"message"`
	ReferenceID   int64           `json:"reference_id"` // tournament, deposit or withdrawal id
	CreatedAt     time.Time       `json:"created_at"`
}
