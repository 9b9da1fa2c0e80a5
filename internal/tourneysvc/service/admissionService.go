package service

import (
	"context"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// AdmissionService decides whether a user may join a tournament and performs the join.
type AdmissionService struct {
	store store.Store
	clock clockwork.Clock
}

func NewAdmissionService(st store.Store, clock clockwork.Clock) *AdmissionService {
	return &AdmissionService{store: st, clock: clock}
}

// Participate debits the entry fee and registers the user in one transaction.
// Every check runs under the tournament row lock, so concurrent joins at the
// capacity boundary or from the same user are decided one at a time.
func (s *AdmissionService) Participate(ctx context.Context, tournamentID, userID int64, player models.PlayerIdentity) (*models.Participant, error) {
	if player.Level < 0 {
		return nil, fmt.Errorf("%w: level must not be negative", models.ErrValidation)
	}

	var participant *models.Participant
	err := s.store.InTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournamentForUpdate(ctx, tournamentID)
		if err != nil {
			return err
		}
		if status := t.Status(s.clock.Now()); status != models.StatusOpen {
			return fmt.Errorf("%w: tournament %d is %s", models.ErrInvalidState, t.ID, status)
		}

		joined, err := q.ParticipantExists(ctx, t.ID, userID)
		if err != nil {
			return err
		}
		if joined {
			return fmt.Errorf("%w: user has already joined this tournament", models.ErrDuplicateEntry)
		}

		// recount rows rather than trusting the stored counter
		if t.CurrentParticipants, err = q.CountParticipants(ctx, t.ID); err != nil {
			return err
		}
		if t.IsFull() {
			return fmt.Errorf("%w: tournament %d is full", models.ErrCapacity, t.ID)
		}

		if _, err := debitTx(ctx, q, Entry{
			UserID:      userID,
			Amount:      t.EntryFee,
			Reason:      models.HistoryTournamentEntry,
			Message:     fmt.Sprintf("Entry fee for tournament %s", t.Name),
			ReferenceID: t.ID,
		}); err != nil {
			return err
		}

		participant = &models.Participant{
			TournamentID: t.ID,
			UserID:       userID,
			InGameName:   player.InGameName,
			InGameID:     player.InGameID,
			Level:        player.Level,
		}
		if err := q.CreateParticipant(ctx, participant); err != nil {
			return err
		}
		return q.IncrementParticipants(ctx, t.ID)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"tournament_id": tournamentID, "user_id": userID}).Info("participant joined")
	return participant, nil
}

func (s *AdmissionService) IsParticipated(ctx context.Context, tournamentID, userID int64) (bool, error) {
	return s.store.Reader().ParticipantExists(ctx, tournamentID, userID)
}

// ListEligibleByGame returns open tournaments of game the user has not joined,
// without their room credentials.
func (s *AdmissionService) ListEligibleByGame(ctx context.Context, userID int64, game models.Game) ([]*models.Tournament, error) {
	if !game.Valid() {
		return nil, fmt.Errorf("%w: unknown game %q", models.ErrValidation, game)
	}
	ts, err := s.store.Reader().ListEligibleTournaments(ctx, userID, game, s.clock.Now())
	if err != nil {
		return nil, err
	}
	// none of these were joined by userID
	for _, t := range ts {
		t.HideRoom()
	}
	return ts, nil
}
