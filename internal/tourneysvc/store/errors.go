package store

import (
	"errors"
	"fmt"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// postgres error codes the store translates into domain errors
const (
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// mapPgError turns constraint violations into domain errors. The constraints
// are the last line of defence, so their names decide the kind.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case "unique_tournament_user":
			return fmt.Errorf("%w: user has already joined this tournament", models.ErrDuplicateEntry)
		case "payout_keys_pkey":
			return fmt.Errorf("%w: payout already applied", models.ErrDuplicateEntry)
		case "deposits_transaction_ref_key":
			return fmt.Errorf("%w: transaction reference already used", models.ErrDuplicateEntry)
		}
		return fmt.Errorf("%w: %s", models.ErrDuplicateEntry, pgErr.ConstraintName)
	case pgCheckViolation:
		switch pgErr.ConstraintName {
		case "users_balance_non_negative":
			return fmt.Errorf("%w: balance cannot go below zero", models.ErrInsufficientFunds)
		case "tournaments_capacity":
			return fmt.Errorf("%w: tournament is full", models.ErrCapacity)
		}
		return fmt.Errorf("%w: %s", models.ErrValidation, pgErr.ConstraintName)
	case pgForeignKeyViolation:
		return fmt.Errorf("%w: invalid reference: %s", models.ErrNotFound, pgErr.ConstraintName)
	case pgNumericOutOfRange:
		return fmt.Errorf("%w: amount out of range", models.ErrValidation)
	}
	return err
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func notFound(err error, what string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %d", models.ErrNotFound, what, id)
	}
	return fmt.Errorf("failed to get %s %d: %w", what, id, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
