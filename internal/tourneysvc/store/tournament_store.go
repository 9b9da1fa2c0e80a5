package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
)

// current_participants is always projected from the participant rows so the
// reported count cannot drift from the roster.
const tournamentColumns = `
	t.id, t.admin_id, t.game, t.name, t.description, t.room_id, t.room_password,
	t.entry_fee, t.prize, t.per_kill_prize, t.max_participants,
	(SELECT COUNT(*) FROM tournament_participants p WHERE p.tournament_id = t.id),
	t.scheduled_at, t.is_ended, t.created_at, t.updated_at`

func scanTournament(row scanner) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(
		&t.ID,
		&t.AdminID,
		&t.Game,
		&t.Name,
		&t.Description,
		&t.RoomID,
		&t.RoomPassword,
		&t.EntryFee,
		&t.Prize,
		&t.PerKillPrize,
		&t.MaxParticipants,
		&t.CurrentParticipants,
		&t.ScheduledAt,
		&t.IsEnded,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (q *queries) collectTournaments(ctx context.Context, query string, args ...any) ([]*models.Tournament, error) {
	rows, err := q.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return tournaments, nil
}

func (q *queries) CreateTournament(ctx context.Context, t *models.Tournament) error {
	const query = `
		INSERT INTO tournaments (
			admin_id, game, name, description, room_id, room_password,
			entry_fee, prize, per_kill_prize, max_participants, current_participants,
			scheduled_at, is_ended
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, false)
		RETURNING id, created_at, updated_at
	`
	err := q.db.QueryRow(ctx, query,
		t.AdminID, t.Game, t.Name, t.Description, t.RoomID, t.RoomPassword,
		t.EntryFee, t.Prize, t.PerKillPrize, t.MaxParticipants, t.ScheduledAt,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create tournament: %w", mapPgError(err))
	}
	t.CurrentParticipants = 0
	t.IsEnded = false
	return nil
}

func (q *queries) GetTournament(ctx context.Context, id int64) (*models.Tournament, error) {
	t, err := scanTournament(q.db.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments t WHERE t.id = $1`, id))
	if err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return t, nil
}

func (q *queries) GetTournamentForUpdate(ctx context.Context, id int64) (*models.Tournament, error) {
	t, err := scanTournament(q.db.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments t WHERE t.id = $1 FOR UPDATE OF t`, id))
	if err != nil {
		return nil, notFound(err, "tournament", id)
	}
	return t, nil
}

func (q *queries) UpdateTournament(ctx context.Context, t *models.Tournament) error {
	const query = `
		UPDATE tournaments
		SET game = $2, name = $3, description = $4, room_id = $5, room_password = $6,
			entry_fee = $7, prize = $8, per_kill_prize = $9, max_participants = $10,
			scheduled_at = $11, updated_at = now()
		WHERE id = $1 AND is_ended = false
		RETURNING updated_at
	`
	err := q.db.QueryRow(ctx, query,
		t.ID, t.Game, t.Name, t.Description, t.RoomID, t.RoomPassword,
		t.EntryFee, t.Prize, t.PerKillPrize, t.MaxParticipants, t.ScheduledAt,
	).Scan(&t.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("%w: tournament %d has ended", models.ErrInvalidState, t.ID)
		}
		return fmt.Errorf("could not update tournament %d: %w", t.ID, mapPgError(err))
	}
	return nil
}

func (q *queries) IncrementParticipants(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE tournaments
		SET current_participants = current_participants + 1, updated_at = now()
		WHERE id = $1 AND current_participants < max_participants
	`, id)
	if err != nil {
		return fmt.Errorf("could not increment participants: %w", mapPgError(err))
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: tournament %d is full", models.ErrCapacity, id)
	}
	return nil
}

func (q *queries) MarkTournamentEnded(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE tournaments
		SET is_ended = true, updated_at = now()
		WHERE id = $1 AND is_ended = false
	`, id)
	if err != nil {
		return fmt.Errorf("could not end tournament: %w", mapPgError(err))
	}
	// No row updated means another request ended it first
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%w: tournament %d already ended", models.ErrInvalidState, id)
	}
	return nil
}

func (q *queries) DeleteTournament(ctx context.Context, id int64) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM tournaments WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: tournament %d has participants", models.ErrConflict, id)
		}
		return fmt.Errorf("could not delete tournament: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: tournament %d", models.ErrNotFound, id)
	}
	return nil
}

func (q *queries) ListTournaments(ctx context.Context, f models.TournamentFilter) ([]*models.Tournament, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.AdminID != 0 {
		where = append(where, "t.admin_id = "+arg(f.AdminID))
	}
	if f.Game != "" {
		where = append(where, "t.game = "+arg(f.Game))
	}
	if f.Ended != nil {
		where = append(where, "t.is_ended = "+arg(*f.Ended))
	}
	if !f.ScheduledAfter.IsZero() {
		where = append(where, "t.scheduled_at > "+arg(f.ScheduledAfter))
	}
	if !f.ScheduledUntil.IsZero() {
		where = append(where, "t.scheduled_at <= "+arg(f.ScheduledUntil))
	}

	query := `SELECT ` + tournamentColumns + ` FROM tournaments t`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.scheduled_at, t.id"

	return q.collectTournaments(ctx, query, args...)
}

// ListEligibleTournaments is a single anti-join, so a tournament joined
// concurrently is never reported by a stale post-filter.
func (q *queries) ListEligibleTournaments(ctx context.Context, userID int64, game models.Game, now time.Time) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.game = $2
		  AND t.is_ended = false
		  AND t.scheduled_at > $3
		  AND NOT EXISTS (
			SELECT 1 FROM tournament_participants tp
			WHERE tp.tournament_id = t.id AND tp.user_id = $1
		  )
		ORDER BY t.scheduled_at, t.id
	`
	return q.collectTournaments(ctx, query, userID, game, now)
}

func (q *queries) ListUserTournaments(ctx context.Context, userID int64, ended bool) ([]*models.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments t
		JOIN tournament_participants tp ON tp.tournament_id = t.id
		WHERE tp.user_id = $1 AND t.is_ended = $2
		ORDER BY t.scheduled_at, t.id
	`
	return q.collectTournaments(ctx, query, userID, ended)
}
