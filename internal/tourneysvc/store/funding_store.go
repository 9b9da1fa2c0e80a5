package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
)

func (q *queries) CreateDeposit(ctx context.Context, d *models.Deposit) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO deposits (user_id, amount, transaction_ref, upi_id, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, d.UserID, d.Amount, d.TransactionRef, d.UpiID, d.Status).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create deposit: %w", mapPgError(err))
	}
	return nil
}

func (q *queries) GetDepositForUpdate(ctx context.Context, id int64) (*models.Deposit, error) {
	d := &models.Deposit{}
	err := q.db.QueryRow(ctx, `
		SELECT id, user_id, amount, transaction_ref, upi_id, status, COALESCE(reviewed_by, 0), created_at, updated_at
		FROM deposits
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&d.ID, &d.UserID, &d.Amount, &d.TransactionRef, &d.UpiID, &d.Status, &d.ReviewedBy, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "deposit", id)
	}
	return d, nil
}

func (q *queries) UpdateDepositStatus(ctx context.Context, id int64, status models.FundingStatus, reviewedBy int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE deposits SET status = $2, reviewed_by = $3, updated_at = now()
		WHERE id = $1
	`, id, status, reviewedBy)
	if err != nil {
		return fmt.Errorf("could not update deposit: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: deposit %d", models.ErrNotFound, id)
	}
	return nil
}

func (q *queries) CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO withdrawals (user_id, amount, upi_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, w.UserID, w.Amount, w.UpiID, w.Status).Scan(&w.ID, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("could not create withdrawal: %w", mapPgError(err))
	}
	return nil
}

func (q *queries) GetWithdrawalForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	w := &models.Withdrawal{}
	err := q.db.QueryRow(ctx, `
		SELECT id, user_id, amount, upi_id, status, COALESCE(reviewed_by, 0), created_at, updated_at
		FROM withdrawals
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&w.ID, &w.UserID, &w.Amount, &w.UpiID, &w.Status, &w.ReviewedBy, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "withdrawal", id)
	}
	return w, nil
}

func (q *queries) UpdateWithdrawalStatus(ctx context.Context, id int64, status models.FundingStatus, reviewedBy int64) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE withdrawals SET status = $2, reviewed_by = $3, updated_at = now()
		WHERE id = $1
	`, id, status, reviewedBy)
	if err != nil {
		return fmt.Errorf("could not update withdrawal: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, id)
	}
	return nil
}

func (q *queries) CountPendingWithdrawals(ctx context.Context, userID int64) (int, error) {
	var count int
	err := q.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM withdrawals WHERE user_id = $1 AND status = 'pending'
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count withdrawals: %w", err)
	}
	return count, nil
}

// fundingWhere builds the WHERE clause shared by the funding listings.
func fundingWhere(f models.FundingFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

func (q *queries) ListDeposits(ctx context.Context, f models.FundingFilter) ([]*models.Deposit, error) {
	where, args := fundingWhere(f)
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, amount, transaction_ref, upi_id, status, COALESCE(reviewed_by, 0), created_at, updated_at
		FROM deposits`+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deposits: %w", err)
	}
	defer rows.Close()

	var deposits []*models.Deposit
	for rows.Next() {
		d := &models.Deposit{}
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.TransactionRef, &d.UpiID, &d.Status, &d.ReviewedBy, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deposit: %w", err)
		}
		deposits = append(deposits, d)
	}
	return deposits, rows.Err()
}

func (q *queries) ListWithdrawals(ctx context.Context, f models.FundingFilter) ([]*models.Withdrawal, error) {
	where, args := fundingWhere(f)
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, amount, upi_id, status, COALESCE(reviewed_by, 0), created_at, updated_at
		FROM withdrawals`+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		w := &models.Withdrawal{}
		if err := rows.Scan(&w.ID, &w.UserID, &w.Amount, &w.UpiID, &w.Status, &w.ReviewedBy, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, rows.Err()
}
