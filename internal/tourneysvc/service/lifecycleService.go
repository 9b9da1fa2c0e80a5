package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// KillAward is the input of AwardKillMoney. IdempotencyKey is optional; when
// set, a replay of the same key pays nothing.
type KillAward struct {
	AdminID        int64
	TournamentID   int64
	UserID         int64
	Kills          int
	IdempotencyKey string
}

// LifecycleService governs a tournament from creation to its terminal end.
type LifecycleService struct {
	store store.Store
	clock clockwork.Clock
}

func NewLifecycleService(st store.Store, clock clockwork.Clock) *LifecycleService {
	return &LifecycleService{store: st, clock: clock}
}

func (s *LifecycleService) Create(ctx context.Context, adminID int64, spec models.TournamentSpec) (int64, error) {
	if adminID <= 0 {
		return 0, fmt.Errorf("%w: invalid admin id", models.ErrValidation)
	}
	if err := validateGame(spec.Game); err != nil {
		return 0, err
	}
	if err := validateName(spec.Name); err != nil {
		return 0, err
	}
	if err := validateDescription(spec.Description); err != nil {
		return 0, err
	}
	for field, amount := range map[string]decimal.Decimal{
		"entry_fee":      spec.EntryFee,
		"prize":          spec.Prize,
		"per_kill_prize": spec.PerKillPrize,
	} {
		if err := validateAmount(field, amount); err != nil {
			return 0, err
		}
	}
	if err := validateCapacity(spec.MaxParticipants); err != nil {
		return 0, err
	}
	if err := s.validateSchedule(spec.ScheduledAt); err != nil {
		return 0, err
	}

	t := &models.Tournament{
		AdminID:         adminID,
		Game:            spec.Game,
		Name:            strings.TrimSpace(spec.Name),
		Description:     spec.Description,
		RoomID:          spec.RoomID,
		RoomPassword:    spec.RoomPassword,
		EntryFee:        spec.EntryFee,
		Prize:           spec.Prize,
		PerKillPrize:    spec.PerKillPrize,
		MaxParticipants: spec.MaxParticipants,
		ScheduledAt:     spec.ScheduledAt,
	}
	err := s.store.InTx(ctx, func(q store.Queries) error {
		return q.CreateTournament(ctx, t)
	})
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"tournament_id": t.ID, "admin_id": adminID, "game": t.Game}).Info("tournament created")
	return t.ID, nil
}

// UpdateRoomInfo sets the room credentials. A nil roomPassword leaves it unchanged.
func (s *LifecycleService) UpdateRoomInfo(ctx context.Context, adminID, tournamentID int64, roomID, roomPassword *string) (*models.Tournament, error) {
	if roomID == nil && roomPassword == nil {
		return nil, fmt.Errorf("%w: nothing to update", models.ErrValidation)
	}

	var t *models.Tournament
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		t, err = ownedForUpdate(ctx, q, adminID, tournamentID)
		if err != nil {
			return err
		}
		if t.IsEnded {
			return fmt.Errorf("%w: tournament %d has ended", models.ErrInvalidState, t.ID)
		}
		if roomID != nil {
			t.RoomID = *roomID
		}
		if roomPassword != nil {
			t.RoomPassword = *roomPassword
		}
		return q.UpdateTournament(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Edit applies the supplied fields of u.
func (s *LifecycleService) Edit(ctx context.Context, adminID, tournamentID int64, u models.TournamentUpdate) (*models.Tournament, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if err := s.validateUpdate(u); err != nil {
		return nil, err
	}

	var t *models.Tournament
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		t, err = ownedForUpdate(ctx, q, adminID, tournamentID)
		if err != nil {
			return err
		}
		if t.IsEnded {
			return fmt.Errorf("%w: tournament %d has ended", models.ErrInvalidState, t.ID)
		}
		if u.MaxParticipants != nil {
			count, err := q.CountParticipants(ctx, t.ID)
			if err != nil {
				return err
			}
			if *u.MaxParticipants < count {
				return fmt.Errorf("%w: tournament %d already has %d participants", models.ErrCapacity, t.ID, count)
			}
		}
		u.Apply(t)
		return q.UpdateTournament(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a tournament nobody has joined.
func (s *LifecycleService) Delete(ctx context.Context, adminID, tournamentID int64) error {
	return s.store.InTx(ctx, func(q store.Queries) error {
		t, err := ownedForUpdate(ctx, q, adminID, tournamentID)
		if err != nil {
			return err
		}
		count, err := q.CountParticipants(ctx, t.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: tournament %d has participants", models.ErrConflict, t.ID)
		}
		return q.DeleteTournament(ctx, t.ID)
	})
}

// End pays the prize to winnerUserID and marks the tournament ended. The
// winning, the history line, the credit and the flag commit together.
func (s *LifecycleService) End(ctx context.Context, adminID, tournamentID, winnerUserID int64) (*models.Tournament, error) {
	var t *models.Tournament
	err := s.store.InTx(ctx, func(q store.Queries) error {
		var err error
		t, err = ownedForUpdate(ctx, q, adminID, tournamentID)
		if err != nil {
			return err
		}
		if t.IsEnded {
			return fmt.Errorf("%w: tournament %d already ended", models.ErrInvalidState, t.ID)
		}
		if err := requireParticipant(ctx, q, t.ID, winnerUserID); err != nil {
			return err
		}

		if err := q.CreateWinning(ctx, &models.Winning{
			UserID:       winnerUserID,
			TournamentID: t.ID,
			Amount:       t.Prize,
			Type:         models.WinningPrize,
		}); err != nil {
			return err
		}
		if _, err := creditTx(ctx, q, Entry{
			UserID:      winnerUserID,
			Amount:      t.Prize,
			Reason:      models.HistoryTournamentWinnings,
			Message:     fmt.Sprintf("Prize for winning tournament %s", t.Name),
			ReferenceID: t.ID,
		}); err != nil {
			return err
		}
		if err := q.MarkTournamentEnded(ctx, t.ID); err != nil {
			return err
		}
		t.IsEnded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"tournament_id": tournamentID,
		"winner":        winnerUserID,
		"prize":         t.Prize.String(),
	}).Info("tournament ended")
	return t, nil
}

// AwardKillMoney credits per_kill_prize × kills to a participant. It is
// allowed after the tournament ended.
func (s *LifecycleService) AwardKillMoney(ctx context.Context, award KillAward) (*models.Winning, error) {
	if award.Kills < 0 || award.Kills > models.MaxKills {
		return nil, fmt.Errorf("%w: kills must be 0 to %d", models.ErrValidation, models.MaxKills)
	}

	var w *models.Winning
	err := s.store.InTx(ctx, func(q store.Queries) error {
		t, err := ownedForUpdate(ctx, q, award.AdminID, award.TournamentID)
		if err != nil {
			return err
		}
		if err := requireParticipant(ctx, q, t.ID, award.UserID); err != nil {
			return err
		}
		if award.IdempotencyKey != "" {
			key := fmt.Sprintf("kill:%d:%d:%s", t.ID, award.UserID, award.IdempotencyKey)
			if err := q.ClaimPayoutKey(ctx, key); err != nil {
				return err
			}
		}

		reward := t.PerKillPrize.Mul(decimal.NewFromInt(int64(award.Kills)))
		w = &models.Winning{
			UserID:       award.UserID,
			TournamentID: t.ID,
			Amount:       reward,
			Type:         models.WinningKill,
		}
		if err := q.CreateWinning(ctx, w); err != nil {
			return err
		}
		_, err = creditTx(ctx, q, Entry{
			UserID:      award.UserID,
			Amount:      reward,
			Reason:      models.HistoryKillReward,
			Message:     fmt.Sprintf("Kill reward for %d kills in tournament %s", award.Kills, t.Name),
			ReferenceID: t.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"tournament_id": award.TournamentID,
		"user_id":       award.UserID,
		"kills":         award.Kills,
		"reward":        w.Amount.String(),
	}).Info("kill reward paid")
	return w, nil
}

// ownedForUpdate locks the tournament and hides tournaments of other admins
// behind ErrNotFound.
func ownedForUpdate(ctx context.Context, q store.Queries, adminID, tournamentID int64) (*models.Tournament, error) {
	t, err := q.GetTournamentForUpdate(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.AdminID != adminID {
		return nil, fmt.Errorf("%w: tournament %d", models.ErrNotFound, tournamentID)
	}
	return t, nil
}

func requireParticipant(ctx context.Context, q store.Queries, tournamentID, userID int64) error {
	ok, err := q.ParticipantExists(ctx, tournamentID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %d in tournament %d", models.ErrNotParticipant, userID, tournamentID)
	}
	return nil
}

func (s *LifecycleService) validateSchedule(at time.Time) error {
	if !at.After(s.clock.Now()) {
		return fmt.Errorf("%w: scheduled_at must be in the future", models.ErrValidation)
	}
	return nil
}

func (s *LifecycleService) validateUpdate(u models.TournamentUpdate) error {
	if u.Empty() {
		return fmt.Errorf("%w: nothing to update", models.ErrValidation)
	}
	var errs []error
	if u.Game != nil {
		errs = append(errs, validateGame(*u.Game))
	}
	if u.Name != nil {
		errs = append(errs, validateName(*u.Name))
	}
	if u.Description != nil {
		errs = append(errs, validateDescription(*u.Description))
	}
	if u.EntryFee != nil {
		errs = append(errs, validateAmount("entry_fee", *u.EntryFee))
	}
	if u.Prize != nil {
		errs = append(errs, validateAmount("prize", *u.Prize))
	}
	if u.PerKillPrize != nil {
		errs = append(errs, validateAmount("per_kill_prize", *u.PerKillPrize))
	}
	if u.MaxParticipants != nil {
		errs = append(errs, validateCapacity(*u.MaxParticipants))
	}
	if u.ScheduledAt != nil {
		errs = append(errs, s.validateSchedule(*u.ScheduledAt))
	}
	return errors.Join(errs...)
}

func validateGame(g models.Game) error {
	if !g.Valid() {
		return fmt.Errorf("%w: unknown game %q", models.ErrValidation, g)
	}
	return nil
}

func validateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 || n > models.MaxNameLength {
		return fmt.Errorf("%w: name must be 1 to %d characters", models.ErrValidation, models.MaxNameLength)
	}
	return nil
}

func validateDescription(desc string) error {
	if utf8.RuneCountInString(desc) > models.MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", models.ErrValidation, models.MaxDescriptionLength)
	}
	return nil
}

// validateAmount admits what a NUMERIC(14,2) column stores exactly.
func validateAmount(field string, amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return fmt.Errorf("%w: %s must not be negative", models.ErrValidation, field)
	case !amount.Equal(amount.Round(models.MoneyScale)):
		return fmt.Errorf("%w: %s has more than %d decimal places", models.ErrValidation, field, models.MoneyScale)
	case amount.GreaterThanOrEqual(models.MaxAmount):
		return fmt.Errorf("%w: %s is out of range", models.ErrValidation, field)
	}
	return nil
}

func validateCapacity(capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("%w: max_participants must be positive", models.ErrValidation)
	}
	return nil
}
