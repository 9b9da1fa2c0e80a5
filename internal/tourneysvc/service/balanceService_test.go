package service

import (
	"context"
	"math/rand"
	"testing"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDebitAndCredit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "40")

	h, err := f.balance.Debit(ctx, Entry{UserID: u, Amount: dec("15.25"), Reason: models.HistoryWithdrawal, Message: "cash out"})
	require.NoError(t, err)
	require.Equal(t, models.EffectDecrease, h.BalanceEffect)
	require.True(t, dec("24.75").Equal(h.BalanceAfter))

	_, err = f.balance.Debit(ctx, Entry{UserID: u, Amount: dec("24.76"), Reason: models.HistoryWithdrawal})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	f.requireBalance(t, u, "24.75")

	h, err = f.balance.Credit(ctx, Entry{UserID: u, Amount: dec("0.25"), Reason: models.HistoryDeposit})
	require.NoError(t, err)
	require.Equal(t, models.EffectIncrease, h.BalanceEffect)
	f.requireBalance(t, u, "25")

	_, err = f.balance.Credit(ctx, Entry{UserID: u, Amount: dec("-1"), Reason: models.HistoryDeposit})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.balance.Credit(ctx, Entry{UserID: 999, Amount: dec("1"), Reason: models.HistoryDeposit})
	require.ErrorIs(t, err, models.ErrNotFound)

	bal, err := f.balance.Balance(ctx, u)
	require.NoError(t, err)
	require.True(t, dec("25").Equal(bal))

	history, err := f.balance.History(ctx, u)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// newest first
	require.Equal(t, models.HistoryDeposit, history[0].Type)
}

func TestAdjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "10")

	h, err := f.balance.Adjust(ctx, adminID, u, dec("-4"), "")
	require.NoError(t, err)
	require.Equal(t, models.HistoryAdjustment, h.Type)
	require.True(t, dec("4").Equal(h.Amount))
	require.NotEmpty(t, h.Message)
	f.requireBalance(t, u, "6")

	_, err = f.balance.Adjust(ctx, adminID, u, dec("-7"), "")
	require.ErrorIs(t, err, models.ErrInsufficientFunds)

	_, err = f.balance.Adjust(ctx, adminID, u, decimal.Zero, "")
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.balance.Adjust(ctx, 0, u, dec("1"), "")
	require.ErrorIs(t, err, models.ErrValidation)
}

// TestRandomOperationsKeepInvariants drives a seeded random mix of
// debits, credits, joins and ends and checks the ledger after every step.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	users := make([]int64, 6)
	for i := range users {
		users[i] = f.user(t, string(rune('a'+i)), "50")
	}
	tournaments := make([]int64, 4)
	for i := range tournaments {
		tournaments[i] = f.tournament(t, decimal.NewFromInt(int64(rng.Intn(40))).String(), "100", "5", 1+rng.Intn(3))
	}
	amount := func() decimal.Decimal { return decimal.NewFromInt(int64(rng.Intn(60))) }

	for step := 0; step < 400; step++ {
		u := users[rng.Intn(len(users))]
		tid := tournaments[rng.Intn(len(tournaments))]

		var err error
		switch rng.Intn(5) {
		case 0:
			_, err = f.balance.Debit(ctx, Entry{UserID: u, Amount: amount(), Reason: models.HistoryWithdrawal})
		case 1:
			_, err = f.balance.Credit(ctx, Entry{UserID: u, Amount: amount(), Reason: models.HistoryDeposit})
		case 2, 3:
			_, err = f.admission.Participate(ctx, tid, u, models.PlayerIdentity{})
		case 4:
			_, err = f.lifecycle.End(ctx, adminID, tid, u)
		}
		if err != nil {
			require.True(t, models.IsDomainError(err), "step %d: %v", step, err)
		}

		for _, id := range users {
			require.False(t, f.store.Balance(id).IsNegative(), "step %d: user %d went negative", step, id)
		}
		for _, id := range tournaments {
			tour, err := f.query.GetByID(ctx, adminID, id)
			require.NoError(t, err)
			require.GreaterOrEqual(t, tour.CurrentParticipants, 0)
			require.LessOrEqual(t, tour.CurrentParticipants, tour.MaxParticipants)
		}
	}

	// every balance change left exactly one history line
	for _, id := range users {
		history, err := f.balance.History(ctx, id)
		require.NoError(t, err)
		total := dec("50")
		for _, h := range history {
			switch h.BalanceEffect {
			case models.EffectIncrease:
				total = total.Add(h.Amount)
			case models.EffectDecrease:
				total = total.Sub(h.Amount)
			}
		}
		require.True(t, total.Equal(f.store.Balance(id)), "user %d: history sums to %s, balance %s", id, total, f.store.Balance(id))
	}
}

func TestAmountsMustFitMoneyColumn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "10")

	_, err := f.balance.Credit(ctx, Entry{UserID: u, Amount: dec("0.004"), Reason: models.HistoryAdjustment})
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.balance.Debit(ctx, Entry{UserID: u, Amount: dec("0.001"), Reason: models.HistoryAdjustment})
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.balance.Adjust(ctx, adminID, u, dec("-0.005"), "")
	require.ErrorIs(t, err, models.ErrValidation)
	_, err = f.balance.Credit(ctx, Entry{UserID: u, Amount: models.MaxAmount, Reason: models.HistoryAdjustment})
	require.ErrorIs(t, err, models.ErrValidation)
	f.requireBalance(t, u, "10")

	// trailing zeros are fine
	_, err = f.balance.Credit(ctx, Entry{UserID: u, Amount: dec("0.500"), Reason: models.HistoryAdjustment})
	require.NoError(t, err)
	f.requireBalance(t, u, "10.5")

	history, err := f.balance.History(ctx, u)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestBalanceOverflowIsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "999999999999")

	_, err := f.balance.Credit(ctx, Entry{UserID: u, Amount: dec("1"), Reason: models.HistoryAdjustment})
	require.ErrorIs(t, err, models.ErrValidation)
	f.requireBalance(t, u, "999999999999")
}
