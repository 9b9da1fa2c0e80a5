package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store/storetest"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 7

var epoch = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

type fixture struct {
	store     *storetest.MemStore
	clock     *clockwork.FakeClock
	balance   *BalanceService
	admission *AdmissionService
	lifecycle *LifecycleService
	query     *QueryService
	funding   *FundingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	st := storetest.NewMemStore(clock)
	return &fixture{
		store:     st,
		clock:     clock,
		balance:   NewBalanceService(st),
		admission: NewAdmissionService(st, clock),
		lifecycle: NewLifecycleService(st, clock),
		query:     NewQueryService(st, clock),
		funding:   NewFundingService(st),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (f *fixture) user(t *testing.T, name, balance string) int64 {
	t.Helper()
	return f.store.AddUser(name, name+"@example.com", dec(balance)).ID
}

func (f *fixture) spec(fee, prize, perKill string, capacity int) models.TournamentSpec {
	return models.TournamentSpec{
		Game:            models.GamePUBG,
		Name:            "Sunday Squads",
		Description:     "erangel, tpp",
		RoomID:          "room-1",
		RoomPassword:    "secret",
		EntryFee:        dec(fee),
		Prize:           dec(prize),
		PerKillPrize:    dec(perKill),
		MaxParticipants: capacity,
		ScheduledAt:     f.clock.Now().Add(time.Hour),
	}
}

func (f *fixture) tournament(t *testing.T, fee, prize, perKill string, capacity int) int64 {
	t.Helper()
	id, err := f.lifecycle.Create(context.Background(), adminID, f.spec(fee, prize, perKill, capacity))
	require.NoError(t, err)
	return id
}

func (f *fixture) join(t *testing.T, tournamentID, userID int64) {
	t.Helper()
	_, err := f.admission.Participate(context.Background(), tournamentID, userID, models.PlayerIdentity{InGameName: "p", InGameID: "1"})
	require.NoError(t, err)
}

func (f *fixture) requireBalance(t *testing.T, userID int64, want string) {
	t.Helper()
	require.True(t, dec(want).Equal(f.store.Balance(userID)), "balance: want %s, got %s", want, f.store.Balance(userID))
}

func TestScenarioAdmissionEndAndKills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tid := f.tournament(t, "50", "1000", "20", 2)
	a := f.user(t, "a", "100")
	b := f.user(t, "b", "30")
	c := f.user(t, "c", "100")
	d := f.user(t, "d", "100")

	// A
	f.join(t, tid, a)
	f.requireBalance(t, a, "50")

	_, err := f.admission.Participate(ctx, tid, b, models.PlayerIdentity{})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	f.requireBalance(t, b, "30")

	tour, err := f.query.GetByID(ctx, adminID, tid)
	require.NoError(t, err)
	require.Equal(t, 1, tour.CurrentParticipants)

	f.join(t, tid, c)
	f.requireBalance(t, c, "50")

	_, err = f.admission.Participate(ctx, tid, d, models.PlayerIdentity{})
	require.ErrorIs(t, err, models.ErrCapacity)
	f.requireBalance(t, d, "100")

	tour, err = f.query.GetByID(ctx, adminID, tid)
	require.NoError(t, err)
	require.Equal(t, 2, tour.CurrentParticipants)

	// B
	ended, err := f.lifecycle.End(ctx, adminID, tid, a)
	require.NoError(t, err)
	require.True(t, ended.IsEnded)
	f.requireBalance(t, a, "1050")

	winnings, err := f.query.ListWinnings(ctx, adminID, tid)
	require.NoError(t, err)
	require.Len(t, winnings, 1)
	require.Equal(t, models.WinningPrize, winnings[0].Type)
	require.True(t, dec("1000").Equal(winnings[0].Amount))

	history, err := f.balance.History(ctx, a)
	require.NoError(t, err)
	prizeLines := 0
	for _, h := range history {
		if h.Type == models.HistoryTournamentWinnings {
			prizeLines++
			require.Equal(t, models.EffectIncrease, h.BalanceEffect)
			require.Equal(t, tid, h.ReferenceID)
			require.True(t, dec("1050").Equal(h.BalanceAfter))
		}
	}
	require.Equal(t, 1, prizeLines)

	// C
	_, err = f.lifecycle.End(ctx, adminID, tid, a)
	require.ErrorIs(t, err, models.ErrInvalidState)
	f.requireBalance(t, a, "1050")

	// D
	w, err := f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: a, Kills: 3})
	require.NoError(t, err)
	require.Equal(t, models.WinningKill, w.Type)
	require.True(t, dec("60").Equal(w.Amount))
	f.requireBalance(t, a, "1110")

	winnings, err = f.query.ListWinnings(ctx, adminID, tid)
	require.NoError(t, err)
	require.Len(t, winnings, 2)

	// E
	name := "renamed"
	_, err = f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{Name: &name})
	require.ErrorIs(t, err, models.ErrInvalidState)
}
