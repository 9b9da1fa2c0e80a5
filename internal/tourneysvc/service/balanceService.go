package service

import (
	"context"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// Entry describes one balance movement and the history line that records it.
type Entry struct {
	UserID      int64
	Amount      decimal.Decimal
	Reason      models.HistoryType
	Message     string
	ReferenceID int64
}

type BalanceService struct {
	store store.Store
}

func NewBalanceService(st store.Store) *BalanceService {
	return &BalanceService{store: st}
}

func (s *BalanceService) Debit(ctx context.Context, e Entry) (*models.History, error) {
	var h *models.History
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		h, err = debitTx(ctx, q, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *BalanceService) Credit(ctx context.Context, e Entry) (*models.History, error) {
	var h *models.History
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		h, err = creditTx(ctx, q, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Adjust applies a signed admin correction.
func (s *BalanceService) Adjust(ctx context.Context, adminID, userID int64, delta decimal.Decimal, message string) (*models.History, error) {
	if adminID <= 0 {
		return nil, fmt.Errorf("%w: invalid admin id", models.ErrValidation)
	}
	if delta.IsZero() {
		return nil, fmt.Errorf("%w: adjustment must be non-zero", models.ErrValidation)
	}

	e := Entry{
		UserID:  userID,
		Amount:  delta.Abs(),
		Reason:  models.HistoryAdjustment,
		Message: message,
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Balance adjusted by admin %d", adminID)
	}

	var h *models.History
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		if delta.IsNegative() {
			h, err = debitTx(ctx, q, e)
		} else {
			h, err = creditTx(ctx, q, e)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID, "delta": delta.String()}).Info("balance adjusted")
	return h, nil
}

func (s *BalanceService) Balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	u, err := s.store.Reader().GetUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return u.Balance, nil
}

func (s *BalanceService) History(ctx context.Context, userID int64) ([]*models.History, error) {
	if _, err := s.store.Reader().GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Reader().ListHistory(ctx, userID)
}

// debitTx locks the user row, checks funds and writes the debit with its
// history line inside the caller's transaction.
func debitTx(ctx context.Context, q store.Queries, e Entry) (*models.History, error) {
	if err := validateAmount("amount", e.Amount); err != nil {
		return nil, err
	}

	u, err := q.GetUserForUpdate(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	if u.Balance.LessThan(e.Amount) {
		return nil, fmt.Errorf("%w: balance %s is below %s", models.ErrInsufficientFunds, u.Balance, e.Amount)
	}

	balance, err := q.AdjustBalance(ctx, e.UserID, e.Amount.Neg())
	if err != nil {
		return nil, err
	}
	return recordTx(ctx, q, e, models.EffectDecrease, balance, models.HistoryStatusCompleted)
}

func creditTx(ctx context.Context, q store.Queries, e Entry) (*models.History, error) {
	if err := validateAmount("amount", e.Amount); err != nil {
		return nil, err
	}

	if _, err := q.GetUserForUpdate(ctx, e.UserID); err != nil {
		return nil, err
	}

	balance, err := q.AdjustBalance(ctx, e.UserID, e.Amount)
	if err != nil {
		return nil, err
	}
	return recordTx(ctx, q, e, models.EffectIncrease, balance, models.HistoryStatusCompleted)
}

// rejectionTx records a refused funding request. The balance is untouched.
func rejectionTx(ctx context.Context, q store.Queries, e Entry) (*models.History, error) {
	u, err := q.GetUserForUpdate(ctx, e.UserID)
	if err != nil {
		return nil, err
	}
	e.Reason = models.HistoryRejection
	return recordTx(ctx, q, e, models.EffectNone, u.Balance, models.HistoryStatusRejected)
}

func recordTx(ctx context.Context, q store.Queries, e Entry, effect models.BalanceEffect, balance decimal.Decimal, status string) (*models.History, error) {
	h := &models.History{
		UserID:        e.UserID,
		Type:          e.Reason,
		Amount:        e.Amount,
		BalanceEffect: effect,
		BalanceAfter:  balance,
		Status:        status,
		Message:       e.Message,
		ReferenceID:   e.ReferenceID,
	}
	if err := q.CreateHistory(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}
