package service

import (
	"context"
	"testing"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/stretchr/testify/require"
)

func TestAdminListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "u", "0")

	current := f.tournament(t, "0", "10", "0", 3)
	done := f.tournament(t, "0", "10", "0", 3)
	f.join(t, done, u)
	_, err := f.lifecycle.End(ctx, adminID, done, u)
	require.NoError(t, err)

	foreign, err := f.lifecycle.Create(ctx, adminID+1, f.spec("0", "0", "0", 3))
	require.NoError(t, err)

	all, err := f.query.ListAll(ctx, adminID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{current, done}, tournamentIDs(all))

	cur, err := f.query.ListCurrent(ctx, adminID)
	require.NoError(t, err)
	require.Equal(t, []int64{current}, tournamentIDs(cur))

	hist, err := f.query.ListHistory(ctx, adminID)
	require.NoError(t, err)
	require.Equal(t, []int64{done}, tournamentIDs(hist))

	_, err = f.query.GetByID(ctx, adminID, foreign)
	require.ErrorIs(t, err, models.ErrNotFound)

	roster, err := f.query.ListParticipants(ctx, adminID, done)
	require.NoError(t, err)
	require.Len(t, roster, 1)
	require.Equal(t, u, roster[0].UserID)
	require.Equal(t, "u@example.com", roster[0].Email)

	_, err = f.query.ListParticipants(ctx, adminID+1, done)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	member := f.user(t, "member", "0")
	stranger := f.user(t, "stranger", "0")
	tid := f.tournament(t, "0", "10", "0", 3)
	f.join(t, tid, member)

	view, err := f.query.GetForUser(ctx, member, tid)
	require.NoError(t, err)
	require.True(t, view.HasParticipated)
	require.Equal(t, models.StatusOpen, view.Status)
	require.Equal(t, "secret", view.Tournament.RoomPassword)
	require.Nil(t, view.Winnings)

	view, err = f.query.GetForUser(ctx, stranger, tid)
	require.NoError(t, err)
	require.False(t, view.HasParticipated)
	require.Empty(t, view.Tournament.RoomID)
	require.Empty(t, view.Tournament.RoomPassword)

	f.clock.Advance(2 * time.Hour)
	view, err = f.query.GetForUser(ctx, stranger, tid)
	require.NoError(t, err)
	require.Equal(t, models.StatusClosed, view.Status)

	_, err = f.lifecycle.End(ctx, adminID, tid, member)
	require.NoError(t, err)
	view, err = f.query.GetForUser(ctx, member, tid)
	require.NoError(t, err)
	require.Equal(t, models.StatusEnded, view.Status)
	require.Len(t, view.Winnings, 1)

	upcoming, err := f.query.ListParticipated(ctx, member, false)
	require.NoError(t, err)
	require.Empty(t, upcoming)
	past, err := f.query.ListParticipated(ctx, member, true)
	require.NoError(t, err)
	require.Equal(t, []int64{tid}, tournamentIDs(past))
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	b := f.user(t, "b", "5")
	a := f.user(t, "a", "0")

	users, err := f.query.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, b, users[0].ID)
	require.Equal(t, a, users[1].ID)
	require.True(t, dec("5").Equal(users[0].Balance))
}
