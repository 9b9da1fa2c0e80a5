package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		admin  int64
		mutate func(s *models.TournamentSpec)
	}{
		{"unknown game", adminID, func(s *models.TournamentSpec) { s.Game = "CHESS" }},
		{"empty name", adminID, func(s *models.TournamentSpec) { s.Name = "   " }},
		{"long name", adminID, func(s *models.TournamentSpec) { s.Name = strings.Repeat("x", models.MaxNameLength+1) }},
		{"long description", adminID, func(s *models.TournamentSpec) { s.Description = strings.Repeat("x", models.MaxDescriptionLength+1) }},
		{"negative fee", adminID, func(s *models.TournamentSpec) { s.EntryFee = dec("-1") }},
		{"negative prize", adminID, func(s *models.TournamentSpec) { s.Prize = dec("-0.01") }},
		{"negative per kill", adminID, func(s *models.TournamentSpec) { s.PerKillPrize = dec("-5") }},
		{"zero capacity", adminID, func(s *models.TournamentSpec) { s.MaxParticipants = 0 }},
		{"scheduled now", adminID, func(s *models.TournamentSpec) { s.ScheduledAt = epoch }},
		{"scheduled in past", adminID, func(s *models.TournamentSpec) { s.ScheduledAt = epoch.Add(-time.Minute) }},
		{"no admin", 0, func(s *models.TournamentSpec) {}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := f.spec("10", "100", "5", 4)
			tc.mutate(&spec)
			_, err := f.lifecycle.Create(ctx, tc.admin, spec)
			require.ErrorIs(t, err, models.ErrValidation)
		})
	}
	require.Zero(t, f.store.Counts()["tournaments"])
}

func TestCreateStartsOpenAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	spec := f.spec("0", "0", "0", 1)
	spec.Game = models.GameFreeFire
	id, err := f.lifecycle.Create(ctx, adminID, spec)
	require.NoError(t, err)

	tour, err := f.query.GetByID(ctx, adminID, id)
	require.NoError(t, err)
	require.Equal(t, 0, tour.CurrentParticipants)
	require.False(t, tour.IsEnded)
	require.Equal(t, models.StatusOpen, tour.Status(f.clock.Now()))
}

func TestUpdateRoomInfo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "10", "0", 2)

	roomID := "room-42"
	tour, err := f.lifecycle.UpdateRoomInfo(ctx, adminID, tid, &roomID, nil)
	require.NoError(t, err)
	require.Equal(t, "room-42", tour.RoomID)
	require.Equal(t, "secret", tour.RoomPassword)

	pass := "hunter2"
	tour, err = f.lifecycle.UpdateRoomInfo(ctx, adminID, tid, nil, &pass)
	require.NoError(t, err)
	require.Equal(t, "room-42", tour.RoomID)
	require.Equal(t, "hunter2", tour.RoomPassword)

	_, err = f.lifecycle.UpdateRoomInfo(ctx, adminID+1, tid, &roomID, nil)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.lifecycle.UpdateRoomInfo(ctx, adminID, tid, nil, nil)
	require.ErrorIs(t, err, models.ErrValidation)

	// room info may still change after the entry window closed
	f.clock.Advance(2 * time.Hour)
	_, err = f.lifecycle.UpdateRoomInfo(ctx, adminID, tid, &roomID, &pass)
	require.NoError(t, err)
}

func TestUpdateRoomInfoAfterEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "10", "0", 2)
	u := f.user(t, "u", "0")
	f.join(t, tid, u)
	_, err := f.lifecycle.End(ctx, adminID, tid, u)
	require.NoError(t, err)

	roomID := "late"
	_, err = f.lifecycle.UpdateRoomInfo(ctx, adminID, tid, &roomID, nil)
	require.ErrorIs(t, err, models.ErrInvalidState)
}

func TestEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "10", "100", "5", 3)
	f.join(t, tid, f.user(t, "a", "10"))
	f.join(t, tid, f.user(t, "b", "10"))

	t.Run("partial update keeps other fields", func(t *testing.T) {
		desc := ""
		fee := dec("15")
		tour, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{Description: &desc, EntryFee: &fee})
		require.NoError(t, err)
		require.Equal(t, "", tour.Description)
		require.True(t, fee.Equal(tour.EntryFee))
		require.Equal(t, "Sunday Squads", tour.Name)
		require.Equal(t, 3, tour.MaxParticipants)
	})

	t.Run("capacity below participant count", func(t *testing.T) {
		one := 1
		_, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{MaxParticipants: &one})
		require.ErrorIs(t, err, models.ErrCapacity)
	})

	t.Run("capacity equal to participant count", func(t *testing.T) {
		two := 2
		tour, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{MaxParticipants: &two})
		require.NoError(t, err)
		require.Equal(t, 2, tour.MaxParticipants)
	})

	t.Run("empty update", func(t *testing.T) {
		_, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{})
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("invalid supplied value", func(t *testing.T) {
		game := models.Game("CHESS")
		_, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{Game: &game})
		require.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("other admin", func(t *testing.T) {
		name := "mine"
		_, err := f.lifecycle.Edit(ctx, adminID+1, tid, models.TournamentUpdate{Name: &name})
		require.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := f.tournament(t, "0", "0", "0", 2)
	require.ErrorIs(t, f.lifecycle.Delete(ctx, adminID+1, empty), models.ErrNotFound)
	require.NoError(t, f.lifecycle.Delete(ctx, adminID, empty))
	_, err := f.query.GetByID(ctx, adminID, empty)
	require.ErrorIs(t, err, models.ErrNotFound)

	joined := f.tournament(t, "0", "0", "0", 2)
	f.join(t, joined, f.user(t, "u", "0"))
	require.ErrorIs(t, f.lifecycle.Delete(ctx, adminID, joined), models.ErrConflict)
	_, err = f.query.GetByID(ctx, adminID, joined)
	require.NoError(t, err)
}

func TestEndPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "100", "0", 2)
	member := f.user(t, "member", "0")
	outsider := f.user(t, "outsider", "0")
	f.join(t, tid, member)

	_, err := f.lifecycle.End(ctx, adminID+1, tid, member)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.lifecycle.End(ctx, adminID, 9999, member)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.lifecycle.End(ctx, adminID, tid, outsider)
	require.ErrorIs(t, err, models.ErrNotParticipant)
	f.requireBalance(t, outsider, "0")

	tour, err := f.query.GetByID(ctx, adminID, tid)
	require.NoError(t, err)
	require.False(t, tour.IsEnded)
}

// failingCredit fails every balance increase, as a store fault part way
// through End would.
type failingCredit struct {
	store.Queries
}

var errStoreFault = errors.New("store fault")

func (q failingCredit) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsPositive() {
		return decimal.Zero, errStoreFault
	}
	return q.Queries.AdjustBalance(ctx, userID, delta)
}

func TestEndRollsBackOnCreditFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "10", "500", "0", 2)
	winner := f.user(t, "w", "10")
	f.join(t, tid, winner)

	before := f.store.Counts()
	f.store.WrapTx = func(q store.Queries) store.Queries { return failingCredit{q} }

	_, err := f.lifecycle.End(ctx, adminID, tid, winner)
	require.ErrorIs(t, err, errStoreFault)
	require.False(t, models.IsDomainError(err))

	f.store.WrapTx = nil
	require.Equal(t, before, f.store.Counts())
	f.requireBalance(t, winner, "0")

	tour, err := f.query.GetByID(ctx, adminID, tid)
	require.NoError(t, err)
	require.False(t, tour.IsEnded)

	// the tournament can still be ended once the fault clears
	_, err = f.lifecycle.End(ctx, adminID, tid, winner)
	require.NoError(t, err)
	f.requireBalance(t, winner, "500")
}

func TestConcurrentEndPaysOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "250", "0", 2)
	winner := f.user(t, "w", "0")
	f.join(t, tid, winner)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		invalid   int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.lifecycle.End(ctx, adminID, tid, winner)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrInvalidState):
				invalid++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Equal(t, callers-1, invalid)
	f.requireBalance(t, winner, "250")
	require.Equal(t, 1, f.store.Counts()["winnings"])
}

func TestAwardKillMoney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "0", "12.50", 4)
	u := f.user(t, "u", "0")
	outsider := f.user(t, "o", "0")
	f.join(t, tid, u)

	_, err := f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: -1})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: outsider, Kills: 2})
	require.ErrorIs(t, err, models.ErrNotParticipant)

	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID + 1, TournamentID: tid, UserID: u, Kills: 2})
	require.ErrorIs(t, err, models.ErrNotFound)

	w, err := f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: 0})
	require.NoError(t, err)
	require.True(t, w.Amount.IsZero())

	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: 2})
	require.NoError(t, err)
	f.requireBalance(t, u, "25")

	// without a key a repeated call pays again
	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: 2})
	require.NoError(t, err)
	f.requireBalance(t, u, "50")
}

func TestAwardKillMoneyIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "0", "10", 4)
	u := f.user(t, "u", "0")
	f.join(t, tid, u)

	award := KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: 4, IdempotencyKey: "match-1"}
	_, err := f.lifecycle.AwardKillMoney(ctx, award)
	require.NoError(t, err)

	_, err = f.lifecycle.AwardKillMoney(ctx, award)
	require.ErrorIs(t, err, models.ErrDuplicateEntry)
	f.requireBalance(t, u, "40")
	require.Equal(t, 1, f.store.Counts()["winnings"])

	award.IdempotencyKey = "match-2"
	_, err = f.lifecycle.AwardKillMoney(ctx, award)
	require.NoError(t, err)
	f.requireBalance(t, u, "80")
}

func TestAwardKillMoneyAfterEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "100", "5", 2)
	u := f.user(t, "u", "0")
	f.join(t, tid, u)
	_, err := f.lifecycle.End(ctx, adminID, tid, u)
	require.NoError(t, err)

	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: 1})
	require.NoError(t, err)
	f.requireBalance(t, u, "105")
}

func TestEditTrimsName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tid := f.tournament(t, "0", "0", "0", 3)

	padded := "  padded  "
	tour, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{Name: &padded})
	require.NoError(t, err)
	require.Equal(t, "padded", tour.Name)

	stored, err := f.query.GetByID(ctx, adminID, tid)
	require.NoError(t, err)
	require.Equal(t, "padded", stored.Name)

	blank := "   "
	_, err = f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{Name: &blank})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestMoneyPrecisionAndRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, fee := range []string{"1.234", "0.004", "1000000000000"} {
		s := f.spec(fee, "0", "0", 2)
		_, err := f.lifecycle.Create(ctx, adminID, s)
		require.ErrorIs(t, err, models.ErrValidation, fee)
	}

	tid := f.tournament(t, "0.10", "0", "0", 2)
	fee := dec("2.005")
	_, err := f.lifecycle.Edit(ctx, adminID, tid, models.TournamentUpdate{EntryFee: &fee})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestAwardKillMoneyBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "0")

	tid := f.tournament(t, "0", "0", "1", 2)
	f.join(t, tid, u)
	_, err := f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: models.MaxKills + 1})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: tid, UserID: u, Kills: models.MaxKills})
	require.NoError(t, err)
	f.requireBalance(t, u, "1000")

	// reward itself too large for a money column
	huge := f.tournament(t, "0", "0", "999999999999.99", 2)
	f.join(t, huge, u)
	_, err = f.lifecycle.AwardKillMoney(ctx, KillAward{AdminID: adminID, TournamentID: huge, UserID: u, Kills: 2})
	require.ErrorIs(t, err, models.ErrValidation)
	f.requireBalance(t, u, "1000")
	require.Equal(t, 1, f.store.Counts()["winnings"])
}
