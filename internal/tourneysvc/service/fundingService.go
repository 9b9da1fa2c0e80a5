package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// FundingService records deposit and withdrawal requests and applies their
// balance effect once an admin reviews them.
type FundingService struct {
	store store.Store
}

func NewFundingService(st store.Store) *FundingService {
	return &FundingService{store: st}
}

func (s *FundingService) RequestDeposit(ctx context.Context, userID int64, amount decimal.Decimal, transactionRef, upiID string) (*models.Deposit, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(transactionRef) == "" {
		return nil, fmt.Errorf("%w: transaction reference is required", models.ErrValidation)
	}

	d := &models.Deposit{
		UserID:         userID,
		Amount:         amount,
		TransactionRef: strings.TrimSpace(transactionRef),
		UpiID:          upiID,
		Status:         models.FundingPending,
	}
	err := s.store.InTx(ctx, func(q store.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		return q.CreateDeposit(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// RequestWithdrawal holds no funds; the balance is checked again on approval.
func (s *FundingService) RequestWithdrawal(ctx context.Context, userID int64, amount decimal.Decimal, upiID string) (*models.Withdrawal, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", models.ErrValidation)
	}
	if err := validateAmount("amount", amount); err != nil {
		return nil, err
	}

	w := &models.Withdrawal{
		UserID: userID,
		Amount: amount,
		UpiID:  upiID,
		Status: models.FundingPending,
	}
	err := s.store.InTx(ctx, func(q store.Queries) error {
		u, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if u.Balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s is below %s", models.ErrInsufficientFunds, u.Balance, amount)
		}
		pending, err := q.CountPendingWithdrawals(ctx, userID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return fmt.Errorf("%w: a withdrawal is already pending", models.ErrConflict)
		}
		return q.CreateWithdrawal(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListDeposits returns deposits matching f, oldest first.
func (s *FundingService) ListDeposits(ctx context.Context, f models.FundingFilter) ([]*models.Deposit, error) {
	return s.store.Reader().ListDeposits(ctx, f)
}

func (s *FundingService) ListWithdrawals(ctx context.Context, f models.FundingFilter) ([]*models.Withdrawal, error) {
	return s.store.Reader().ListWithdrawals(ctx, f)
}

func (s *FundingService) ReviewDeposit(ctx context.Context, adminID, depositID int64, approve bool) (*models.Deposit, error) {
	var d *models.Deposit
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		d, err = q.GetDepositForUpdate(ctx, depositID)
		if err != nil {
			return err
		}
		if d.Status != models.FundingPending {
			return fmt.Errorf("%w: deposit %d is %s", models.ErrInvalidState, d.ID, d.Status)
		}

		e := Entry{UserID: d.UserID, Amount: d.Amount, Reason: models.HistoryDeposit, ReferenceID: d.ID}
		if approve {
			e.Message = fmt.Sprintf("Deposit %s approved", d.TransactionRef)
			_, err = creditTx(ctx, q, e)
			d.Status = models.FundingApproved
		} else {
			e.Message = fmt.Sprintf("Deposit %s rejected", d.TransactionRef)
			_, err = rejectionTx(ctx, q, e)
			d.Status = models.FundingRejected
		}
		if err != nil {
			return err
		}
		d.ReviewedBy = adminID
		return q.UpdateDepositStatus(ctx, d.ID, d.Status, adminID)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"deposit_id": depositID, "admin_id": adminID, "status": d.Status}).Info("deposit reviewed")
	return d, nil
}

func (s *FundingService) ReviewWithdrawal(ctx context.Context, adminID, withdrawalID int64, approve bool) (*models.Withdrawal, error) {
	var w *models.Withdrawal
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		w, err = q.GetWithdrawalForUpdate(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if w.Status != models.FundingPending {
			return fmt.Errorf("%w: withdrawal %d is %s", models.ErrInvalidState, w.ID, w.Status)
		}

		e := Entry{UserID: w.UserID, Amount: w.Amount, Reason: models.HistoryWithdrawal, ReferenceID: w.ID}
		if approve {
			e.Message = "Withdrawal approved"
			_, err = debitTx(ctx, q, e)
			w.Status = models.FundingApproved
		} else {
			e.Message = "Withdrawal rejected"
			_, err = rejectionTx(ctx, q, e)
			w.Status = models.FundingRejected
		}
		if err != nil {
			return err
		}
		w.ReviewedBy = adminID
		return q.UpdateWithdrawalStatus(ctx, w.ID, w.Status, adminID)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"withdrawal_id": withdrawalID, "admin_id": adminID, "status": w.Status}).Info("withdrawal reviewed")
	return w, nil
}
