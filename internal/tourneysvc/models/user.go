package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents the users table in the database.
type User struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	IsVerified   bool            `json:"is_verified"`
	Balance      decimal.Decimal `json:"balance"` // never negative, see users_balance_non_negative
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
