package store

import (
	"context"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
)

func (q *queries) CreateWinning(ctx context.Context, w *models.Winning) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO winnings (user_id, tournament_id, amount, type)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, w.UserID, w.TournamentID, w.Amount, w.Type).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record winning: %w", mapPgError(err))
	}
	return nil
}

func (q *queries) ListWinnings(ctx context.Context, tournamentID int64) ([]*models.Winning, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, tournament_id, amount, type, created_at
		FROM winnings
		WHERE tournament_id = $1
		ORDER BY id
	`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winnings: %w", err)
	}
	defer rows.Close()

	var winnings []*models.Winning
	for rows.Next() {
		w := &models.Winning{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.TournamentID, &w.Amount, &w.Type, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan winning: %w", err)
		}
		winnings = append(winnings, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return winnings, nil
}

func (q *queries) CreateHistory(ctx context.Context, h *models.History) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO history (user_id, type, amount, balance_effect, balance_after, status, message, reference_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, h.UserID, h.Type, h.Amount, h.BalanceEffect, h.BalanceAfter, h.Status, h.Message, h.ReferenceID).
		Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return fmt.Errorf("could not record history: %w", mapPgError(err))
	}
	return nil
}

func (q *queries) ListHistory(ctx context.Context, userID int64) ([]*models.History, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, type, amount, balance_effect, balance_after, status, message, reference_id, created_at
		FROM history
		WHERE user_id = $1
		ORDER BY id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*models.History
	for rows.Next() {
		h := &models.History{}
		if err := rows.Scan(
			&h.ID,
			&h.UserID,
			&h.Type,
			&h.Amount,
			&h.BalanceEffect,
			&h.BalanceAfter,
			&h.Status,
			&h.Message,
			&h.ReferenceID,
			&h.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		entries = append(entries, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return entries, nil
}

func (q *queries) ClaimPayoutKey(ctx context.Context, key string) error {
	if _, err := q.db.Exec(ctx, `INSERT INTO payout_keys (key) VALUES ($1)`, key); err != nil {
		return fmt.Errorf("could not claim payout key: %w", mapPgError(err))
	}
	return nil
}
