package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FundingStatus string

const (
	FundingPending  FundingStatus = "pending"
	FundingApproved FundingStatus = "approved"
	FundingRejected FundingStatus = "rejected"
)

type Deposit struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_ref"` // unique, external payment reference
	UpiID          string          `json:"upi_id"`
	Status         FundingStatus   `json:"status"`
	ReviewedBy     int64           `json:"reviewed_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type Withdrawal struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	UpiID      string          `json:"upi_id"`
	Status     FundingStatus   `json:"status"`
	ReviewedBy int64           `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// FundingFilter narrows deposit and withdrawal listings. Zero values mean "any".
type FundingFilter struct {
	UserID int64
	Status FundingStatus
}
