package store

import (
	"context"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
)

func (q *queries) CreateParticipant(ctx context.Context, p *models.Participant) error {
	const query = `
		INSERT INTO tournament_participants (tournament_id, user_id, in_game_name, in_game_id, level)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, joined_at
	`
	err := q.db.QueryRow(ctx, query, p.TournamentID, p.UserID, p.InGameName, p.InGameID, p.Level).
		Scan(&p.ID, &p.JoinedAt)
	if err != nil {
		return fmt.Errorf("could not add participant: %w", mapPgError(err))
	}
	return nil
}

func (q *queries) ParticipantExists(ctx context.Context, tournamentID, userID int64) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM tournament_participants WHERE tournament_id = $1 AND user_id = $2
		)
	`, tournamentID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check participant: %w", err)
	}
	return exists, nil
}

func (q *queries) CountParticipants(ctx context.Context, tournamentID int64) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`, tournamentID).
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}

func (q *queries) ListParticipants(ctx context.Context, tournamentID int64) ([]*models.ParticipantDetail, error) {
	rows, err := q.db.Query(ctx, `
		SELECT tp.id, tp.tournament_id, tp.user_id, tp.in_game_name, tp.in_game_id, tp.level, tp.joined_at,
			u.name, u.email
		FROM tournament_participants tp
		JOIN users u ON u.id = tp.user_id
		WHERE tp.tournament_id = $1
		ORDER BY tp.joined_at, tp.id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.ParticipantDetail
	for rows.Next() {
		p := &models.ParticipantDetail{}
		if err := rows.Scan(
			&p.ID,
			&p.TournamentID,
			&p.UserID,
			&p.InGameName,
			&p.InGameID,
			&p.Level,
			&p.JoinedAt,
			&p.Name,
			&p.Email,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return participants, nil
}
