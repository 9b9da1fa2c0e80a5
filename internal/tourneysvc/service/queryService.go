package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/jonboulle/clockwork"
)

// QueryService serves read-only projections. Nothing here opens a transaction.
type QueryService struct {
	store store.Store
	clock clockwork.Clock
}

func NewQueryService(st store.Store, clock clockwork.Clock) *QueryService {
	return &QueryService{store: st, clock: clock}
}

func (s *QueryService) ListAll(ctx context.Context, adminID int64) ([]*models.Tournament, error) {
	return s.store.Reader().ListTournaments(ctx, models.TournamentFilter{AdminID: adminID})
}

// ListCurrent returns the admin's tournaments that have not ended.
func (s *QueryService) ListCurrent(ctx context.Context, adminID int64) ([]*models.Tournament, error) {
	ended := false
	return s.store.Reader().ListTournaments(ctx, models.TournamentFilter{AdminID: adminID, Ended: &ended})
}

func (s *QueryService) ListHistory(ctx context.Context, adminID int64) ([]*models.Tournament, error) {
	ended := true
	return s.store.Reader().ListTournaments(ctx, models.TournamentFilter{AdminID: adminID, Ended: &ended})
}

func (s *QueryService) GetByID(ctx context.Context, adminID, tournamentID int64) (*models.Tournament, error) {
	return owned(ctx, s.store.Reader(), adminID, tournamentID)
}

func (s *QueryService) ListParticipants(ctx context.Context, adminID, tournamentID int64) ([]*models.ParticipantDetail, error) {
	q := s.store.Reader()
	if _, err := owned(ctx, q, adminID, tournamentID); err != nil {
		return nil, err
	}
	return q.ListParticipants(ctx, tournamentID)
}

func (s *QueryService) ListWinnings(ctx context.Context, adminID, tournamentID int64) ([]*models.Winning, error) {
	q := s.store.Reader()
	if _, err := owned(ctx, q, adminID, tournamentID); err != nil {
		return nil, err
	}
	return q.ListWinnings(ctx, tournamentID)
}

// ListParticipated returns the tournaments the user joined, split by ended.
func (s *QueryService) ListParticipated(ctx context.Context, userID int64, ended bool) ([]*models.Tournament, error) {
	return s.store.Reader().ListUserTournaments(ctx, userID, ended)
}

// GetForUser hides the room credentials from users who have not joined.
func (s *QueryService) GetForUser(ctx context.Context, userID, tournamentID int64) (*models.TournamentView, error) {
	q := s.store.Reader()
	t, err := q.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	joined, err := q.ParticipantExists(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}

	view := &models.TournamentView{
		Tournament:      t,
		Status:          t.Status(s.clock.Now()),
		HasParticipated: joined,
	}
	if !joined {
		t.HideRoom()
	}
	if t.IsEnded {
		if view.Winnings, err = q.ListWinnings(ctx, tournamentID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// ListUsers is the admin user roster.
func (s *QueryService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.Reader().ListUsers(ctx)
}

func owned(ctx context.Context, q store.Queries, adminID, tournamentID int64) (*models.Tournament, error) {
	t, err := q.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.AdminID != adminID {
		return nil, fmt.Errorf("%w: tournament %d", models.ErrNotFound, tournamentID)
	}
	return t, nil
}

// ListEntryClosed returns tournaments whose entry window closed in (after, until].
func (s *QueryService) ListEntryClosed(ctx context.Context, after, until time.Time) ([]*models.Tournament, error) {
	ended := false
	return s.store.Reader().ListTournaments(ctx, models.TournamentFilter{
		Ended:          &ended,
		ScheduledAfter: after,
		ScheduledUntil: until,
	})
}
