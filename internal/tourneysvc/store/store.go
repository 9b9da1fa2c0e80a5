package store

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Queries is every read and write the engine issues against the ledger store.
// The same set is available on the pool (Store.Reader) and inside a
// transaction (Store.InTx).
type Queries interface {
	CreateTournament(ctx context.Context, t *models.Tournament) error
	GetTournament(ctx context.Context, id int64) (*models.Tournament, error)
	// GetTournamentForUpdate locks the tournament row until the transaction ends.
	GetTournamentForUpdate(ctx context.Context, id int64) (*models.Tournament, error)
	UpdateTournament(ctx context.Context, t *models.Tournament) error
	// IncrementParticipants fails with models.ErrCapacity when the tournament is full.
	IncrementParticipants(ctx context.Context, id int64) error
	// MarkTournamentEnded fails with models.ErrInvalidState when it already ended.
	MarkTournamentEnded(ctx context.Context, id int64) error
	DeleteTournament(ctx context.Context, id int64) error
	ListTournaments(ctx context.Context, f models.TournamentFilter) ([]*models.Tournament, error)
	ListEligibleTournaments(ctx context.Context, userID int64, game models.Game, now time.Time) ([]*models.Tournament, error)
	ListUserTournaments(ctx context.Context, userID int64, ended bool) ([]*models.Tournament, error)

	// CreateParticipant fails with models.ErrDuplicateEntry when the pair already exists.
	CreateParticipant(ctx context.Context, p *models.Participant) error
	ParticipantExists(ctx context.Context, tournamentID, userID int64) (bool, error)
	CountParticipants(ctx context.Context, tournamentID int64) (int, error)
	ListParticipants(ctx context.Context, tournamentID int64) ([]*models.ParticipantDetail, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserForUpdate(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	// AdjustBalance adds delta to the user's balance and returns the new balance.
	// A result below zero fails with models.ErrInsufficientFunds.
	AdjustBalance(ctx context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error)

	CreateWinning(ctx context.Context, w *models.Winning) error
	ListWinnings(ctx context.Context, tournamentID int64) ([]*models.Winning, error)
	CreateHistory(ctx context.Context, h *models.History) error
	ListHistory(ctx context.Context, userID int64) ([]*models.History, error)
	// ClaimPayoutKey fails with models.ErrDuplicateEntry when key was claimed before.
	ClaimPayoutKey(ctx context.Context, key string) error

	CreateDeposit(ctx context.Context, d *models.Deposit) error
	GetDepositForUpdate(ctx context.Context, id int64) (*models.Deposit, error)
	UpdateDepositStatus(ctx context.Context, id int64, status models.FundingStatus, reviewedBy int64) error
	CreateWithdrawal(ctx context.Context, w *models.Withdrawal) error
	GetWithdrawalForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error)
	UpdateWithdrawalStatus(ctx context.Context, id int64, status models.FundingStatus, reviewedBy int64) error
	CountPendingWithdrawals(ctx context.Context, userID int64) (int, error)
	ListDeposits(ctx context.Context, f models.FundingFilter) ([]*models.Deposit, error)
	ListWithdrawals(ctx context.Context, f models.FundingFilter) ([]*models.Withdrawal, error)
}

// Store is the transactional ledger store.
type Store interface {
	// InTx runs fn inside a single transaction. Any error returned by fn, or
	// by the commit, rolls back every write fn made.
	InTx(ctx context.Context, fn func(q Queries) error) error
	// Reader returns queries that run outside any transaction.
	Reader() Queries
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

type PgStore struct {
	db *pgxpool.Pool
}

func NewPgStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Reader() Queries {
	return &queries{db: s.db}
}

func (s *PgStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapPgError(err))
	}
	return nil
}

// queries implements Queries over either the pool or an open transaction.
type queries struct {
	db dbtx
}
