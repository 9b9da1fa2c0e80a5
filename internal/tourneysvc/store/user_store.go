package store

import (
	"context"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/shopspring/decimal"
)

const userColumns = `id, name, email, password_hash, is_verified, balance, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsVerified,
		&u.Balance,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (q *queries) GetUser(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

func (q *queries) GetUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return u, nil
}

// AdjustBalance is a single conditional update; users_balance_non_negative
// rejects any debit that would overdraw.
func (q *queries) AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.db.QueryRow(ctx, `
		UPDATE users
		SET balance = balance + $2, updated_at = now()
		WHERE id = $1
		RETURNING balance
	`, userID, delta).Scan(&balance)
	if err != nil {
		if isNoRows(err) {
			return decimal.Zero, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
		}
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", mapPgError(err))
	}
	return balance, nil
}

func (q *queries) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
