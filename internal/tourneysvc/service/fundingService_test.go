package service

import (
	"context"
	"testing"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/stretchr/testify/require"
)

func TestDepositReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "0")

	d, err := f.funding.RequestDeposit(ctx, u, dec("100"), "TX-1", "u@upi")
	require.NoError(t, err)
	require.Equal(t, models.FundingPending, d.Status)
	f.requireBalance(t, u, "0")

	_, err = f.funding.RequestDeposit(ctx, u, dec("50"), "TX-1", "u@upi")
	require.ErrorIs(t, err, models.ErrDuplicateEntry)

	_, err = f.funding.RequestDeposit(ctx, u, dec("0"), "TX-2", "u@upi")
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.funding.RequestDeposit(ctx, 999, dec("10"), "TX-3", "x@upi")
	require.ErrorIs(t, err, models.ErrNotFound)

	d, err = f.funding.ReviewDeposit(ctx, adminID, d.ID, true)
	require.NoError(t, err)
	require.Equal(t, models.FundingApproved, d.Status)
	require.Equal(t, adminID, d.ReviewedBy)
	f.requireBalance(t, u, "100")

	_, err = f.funding.ReviewDeposit(ctx, adminID, d.ID, true)
	require.ErrorIs(t, err, models.ErrInvalidState)
	f.requireBalance(t, u, "100")

	_, err = f.funding.ReviewDeposit(ctx, adminID, 4040, true)
	require.ErrorIs(t, err, models.ErrNotFound)

	rejected, err := f.funding.RequestDeposit(ctx, u, dec("30"), "TX-4", "u@upi")
	require.NoError(t, err)
	rejected, err = f.funding.ReviewDeposit(ctx, adminID, rejected.ID, false)
	require.NoError(t, err)
	require.Equal(t, models.FundingRejected, rejected.Status)
	f.requireBalance(t, u, "100")

	history, err := f.balance.History(ctx, u)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, models.HistoryRejection, history[0].Type)
	require.Equal(t, models.EffectNone, history[0].BalanceEffect)
	require.Equal(t, models.HistoryStatusRejected, history[0].Status)
}

func TestWithdrawalReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "80")

	_, err := f.funding.RequestWithdrawal(ctx, u, dec("81"), "u@upi")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	w, err := f.funding.RequestWithdrawal(ctx, u, dec("60"), "u@upi")
	require.NoError(t, err)

	_, err = f.funding.RequestWithdrawal(ctx, u, dec("10"), "u@upi")
	require.ErrorIs(t, err, models.ErrConflict)

	// funds spent between request and review
	_, err = f.balance.Debit(ctx, Entry{UserID: u, Amount: dec("30"), Reason: models.HistoryAdjustment})
	require.NoError(t, err)

	_, err = f.funding.ReviewWithdrawal(ctx, adminID, w.ID, true)
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	f.requireBalance(t, u, "50")

	w, err = f.funding.ReviewWithdrawal(ctx, adminID, w.ID, false)
	require.NoError(t, err)
	require.Equal(t, models.FundingRejected, w.Status)
	f.requireBalance(t, u, "50")

	w, err = f.funding.RequestWithdrawal(ctx, u, dec("50"), "u@upi")
	require.NoError(t, err)
	w, err = f.funding.ReviewWithdrawal(ctx, adminID, w.ID, true)
	require.NoError(t, err)
	require.Equal(t, models.FundingApproved, w.Status)
	f.requireBalance(t, u, "0")
}

func TestFundingAmountPrecision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "50")

	_, err := f.funding.RequestDeposit(ctx, u, dec("10.001"), "TX-P", "u@upi")
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.funding.RequestWithdrawal(ctx, u, dec("0.009"), "u@upi")
	require.ErrorIs(t, err, models.ErrValidation)
	require.Zero(t, f.store.Counts()["deposits"])
	require.Zero(t, f.store.Counts()["withdrawals"])
}

func TestListFundingRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "a", "100")
	b := f.user(t, "b", "100")

	d1, err := f.funding.RequestDeposit(ctx, a, dec("10"), "TX-A1", "a@upi")
	require.NoError(t, err)
	d2, err := f.funding.RequestDeposit(ctx, b, dec("20"), "TX-B1", "b@upi")
	require.NoError(t, err)
	_, err = f.funding.ReviewDeposit(ctx, adminID, d1.ID, true)
	require.NoError(t, err)

	pending, err := f.funding.ListDeposits(ctx, models.FundingFilter{Status: models.FundingPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, d2.ID, pending[0].ID)

	mine, err := f.funding.ListDeposits(ctx, models.FundingFilter{UserID: a})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, models.FundingApproved, mine[0].Status)

	all, err := f.funding.ListDeposits(ctx, models.FundingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Less(t, all[0].ID, all[1].ID)

	w, err := f.funding.RequestWithdrawal(ctx, b, dec("5"), "b@upi")
	require.NoError(t, err)
	withdrawals, err := f.funding.ListWithdrawals(ctx, models.FundingFilter{Status: models.FundingPending})
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Equal(t, w.ID, withdrawals[0].ID)

	withdrawals, err = f.funding.ListWithdrawals(ctx, models.FundingFilter{UserID: a})
	require.NoError(t, err)
	require.Empty(t, withdrawals)
}
