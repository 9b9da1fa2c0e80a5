// Package storetest provides an in-memory store.Store for service and
// handler tests. It enforces the same constraints as the postgres schema.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/store"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// MemStore serializes transactions behind a mutex. Each transaction works on
// a copy of the data that replaces the committed state only when fn succeeds.
type MemStore struct {
	mu    sync.Mutex
	data  *memData
	clock clockwork.Clock

	// WrapTx, when set, wraps the queries handed to every InTx callback.
	// Tests use it to inject faults part way through a transaction.
	WrapTx func(q store.Queries) store.Queries
}

var _ store.Store = (*MemStore)(nil)

func NewMemStore(clock clockwork.Clock) *MemStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemStore{data: newMemData(), clock: clock}
}

func (s *MemStore) InTx(ctx context.Context, fn func(q store.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	var q store.Queries = &memQueries{data: work, clock: s.clock}
	if s.WrapTx != nil {
		q = s.WrapTx(q)
	}
	if err := fn(q); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Reader returns queries over a snapshot of the committed state.
func (s *MemStore) Reader() store.Queries {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memQueries{data: s.data.clone(), clock: s.clock}
}

// AddUser seeds a user with an opening balance.
func (s *MemStore) AddUser(name, email string, balance decimal.Decimal) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	u := &models.User{
		ID:         s.data.next(),
		Name:       name,
		Email:      email,
		IsVerified: true,
		Balance:    balance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.data.users[u.ID] = u
	cp := *u
	return &cp
}

// Balance returns the committed balance of a user, or zero when unknown.
func (s *MemStore) Balance(userID int64) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.data.users[userID]; ok {
		return u.Balance
	}
	return decimal.Zero
}

// Counts reports committed row counts per table, for atomicity assertions.
func (s *MemStore) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"tournaments":  len(s.data.tournaments),
		"participants": len(s.data.participants),
		"winnings":     len(s.data.winnings),
		"history":      len(s.data.history),
		"deposits":     len(s.data.deposits),
		"withdrawals":  len(s.data.withdrawals),
		"payout_keys":  len(s.data.payoutKeys),
	}
}

type memData struct {
	seq          int64
	users        map[int64]*models.User
	tournaments  map[int64]*models.Tournament
	participants []*models.Participant
	winnings     []*models.Winning
	history      []*models.History
	payoutKeys   map[string]struct{}
	deposits     map[int64]*models.Deposit
	withdrawals  map[int64]*models.Withdrawal
}

func newMemData() *memData {
	return &memData{
		users:       map[int64]*models.User{},
		tournaments: map[int64]*models.Tournament{},
		payoutKeys:  map[string]struct{}{},
		deposits:    map[int64]*models.Deposit{},
		withdrawals: map[int64]*models.Withdrawal{},
	}
}

func (d *memData) next() int64 {
	d.seq++
	return d.seq
}

func (d *memData) clone() *memData {
	c := newMemData()
	c.seq = d.seq
	for id, u := range d.users {
		cp := *u
		c.users[id] = &cp
	}
	for id, t := range d.tournaments {
		cp := *t
		c.tournaments[id] = &cp
	}
	for _, p := range d.participants {
		cp := *p
		c.participants = append(c.participants, &cp)
	}
	for _, w := range d.winnings {
		cp := *w
		c.winnings = append(c.winnings, &cp)
	}
	for _, h := range d.history {
		cp := *h
		c.history = append(c.history, &cp)
	}
	for k := range d.payoutKeys {
		c.payoutKeys[k] = struct{}{}
	}
	for id, dep := range d.deposits {
		cp := *dep
		c.deposits[id] = &cp
	}
	for id, w := range d.withdrawals {
		cp := *w
		c.withdrawals[id] = &cp
	}
	return c
}

type memQueries struct {
	data  *memData
	clock clockwork.Clock
}

func (q *memQueries) countParticipants(tournamentID int64) int {
	n := 0
	for _, p := range q.data.participants {
		if p.TournamentID == tournamentID {
			n++
		}
	}
	return n
}

func (q *memQueries) hasParticipant(tournamentID, userID int64) bool {
	for _, p := range q.data.participants {
		if p.TournamentID == tournamentID && p.UserID == userID {
			return true
		}
	}
	return false
}

// view copies a tournament with its participant count projected, as the
// postgres listing queries do.
func (q *memQueries) view(t *models.Tournament) *models.Tournament {
	cp := *t
	cp.CurrentParticipants = q.countParticipants(t.ID)
	return &cp
}

func sortTournaments(ts []*models.Tournament) []*models.Tournament {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].ScheduledAt.Equal(ts[j].ScheduledAt) {
			return ts[i].ID < ts[j].ID
		}
		return ts[i].ScheduledAt.Before(ts[j].ScheduledAt)
	})
	return ts
}

func (q *memQueries) CreateTournament(_ context.Context, t *models.Tournament) error {
	if t.MaxParticipants <= 0 || t.EntryFee.IsNegative() || t.Prize.IsNegative() || t.PerKillPrize.IsNegative() {
		return fmt.Errorf("%w: tournament constraints", models.ErrValidation)
	}
	now := q.clock.Now()
	t.ID = q.data.next()
	t.CurrentParticipants = 0
	t.IsEnded = false
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	q.data.tournaments[t.ID] = &cp
	return nil
}

func (q *memQueries) GetTournament(_ context.Context, id int64) (*models.Tournament, error) {
	t, ok := q.data.tournaments[id]
	if !ok {
		return nil, fmt.Errorf("%w: tournament %d", models.ErrNotFound, id)
	}
	return q.view(t), nil
}

func (q *memQueries) GetTournamentForUpdate(ctx context.Context, id int64) (*models.Tournament, error) {
	return q.GetTournament(ctx, id)
}

func (q *memQueries) UpdateTournament(_ context.Context, t *models.Tournament) error {
	stored, ok := q.data.tournaments[t.ID]
	if !ok {
		return fmt.Errorf("%w: tournament %d", models.ErrNotFound, t.ID)
	}
	if stored.IsEnded {
		return fmt.Errorf("%w: tournament %d has ended", models.ErrInvalidState, t.ID)
	}
	if t.MaxParticipants < stored.CurrentParticipants {
		return fmt.Errorf("%w: tournament is full", models.ErrCapacity)
	}
	stored.Game = t.Game
	stored.Name = t.Name
	stored.Description = t.Description
	stored.RoomID = t.RoomID
	stored.RoomPassword = t.RoomPassword
	stored.EntryFee = t.EntryFee
	stored.Prize = t.Prize
	stored.PerKillPrize = t.PerKillPrize
	stored.MaxParticipants = t.MaxParticipants
	stored.ScheduledAt = t.ScheduledAt
	stored.UpdatedAt = q.clock.Now()
	t.UpdatedAt = stored.UpdatedAt
	return nil
}

func (q *memQueries) IncrementParticipants(_ context.Context, id int64) error {
	t, ok := q.data.tournaments[id]
	if !ok || t.CurrentParticipants >= t.MaxParticipants {
		return fmt.Errorf("%w: tournament %d is full", models.ErrCapacity, id)
	}
	t.CurrentParticipants++
	t.UpdatedAt = q.clock.Now()
	return nil
}

func (q *memQueries) MarkTournamentEnded(_ context.Context, id int64) error {
	t, ok := q.data.tournaments[id]
	if !ok || t.IsEnded {
		return fmt.Errorf("%w: tournament %d already ended", models.ErrInvalidState, id)
	}
	t.IsEnded = true
	t.UpdatedAt = q.clock.Now()
	return nil
}

func (q *memQueries) DeleteTournament(_ context.Context, id int64) error {
	if _, ok := q.data.tournaments[id]; !ok {
		return fmt.Errorf("%w: tournament %d", models.ErrNotFound, id)
	}
	if q.countParticipants(id) > 0 {
		return fmt.Errorf("%w: tournament %d has participants", models.ErrConflict, id)
	}
	delete(q.data.tournaments, id)
	return nil
}

func (q *memQueries) ListTournaments(_ context.Context, f models.TournamentFilter) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range q.data.tournaments {
		if f.AdminID != 0 && t.AdminID != f.AdminID {
			continue
		}
		if f.Game != "" && t.Game != f.Game {
			continue
		}
		if f.Ended != nil && t.IsEnded != *f.Ended {
			continue
		}
		if !f.ScheduledAfter.IsZero() && !t.ScheduledAt.After(f.ScheduledAfter) {
			continue
		}
		if !f.ScheduledUntil.IsZero() && t.ScheduledAt.After(f.ScheduledUntil) {
			continue
		}
		out = append(out, q.view(t))
	}
	return sortTournaments(out), nil
}

func (q *memQueries) ListEligibleTournaments(_ context.Context, userID int64, game models.Game, now time.Time) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range q.data.tournaments {
		if t.Game != game || t.IsEnded || !t.ScheduledAt.After(now) || q.hasParticipant(t.ID, userID) {
			continue
		}
		out = append(out, q.view(t))
	}
	return sortTournaments(out), nil
}

func (q *memQueries) ListUserTournaments(_ context.Context, userID int64, ended bool) ([]*models.Tournament, error) {
	var out []*models.Tournament
	for _, t := range q.data.tournaments {
		if t.IsEnded != ended || !q.hasParticipant(t.ID, userID) {
			continue
		}
		out = append(out, q.view(t))
	}
	return sortTournaments(out), nil
}

func (q *memQueries) CreateParticipant(_ context.Context, p *models.Participant) error {
	if _, ok := q.data.tournaments[p.TournamentID]; !ok {
		return fmt.Errorf("%w: invalid reference: tournament %d", models.ErrNotFound, p.TournamentID)
	}
	if _, ok := q.data.users[p.UserID]; !ok {
		return fmt.Errorf("%w: invalid reference: user %d", models.ErrNotFound, p.UserID)
	}
	if q.hasParticipant(p.TournamentID, p.UserID) {
		return fmt.Errorf("%w: user has already joined this tournament", models.ErrDuplicateEntry)
	}
	p.ID = q.data.next()
	p.JoinedAt = q.clock.Now()
	cp := *p
	q.data.participants = append(q.data.participants, &cp)
	return nil
}

func (q *memQueries) ParticipantExists(_ context.Context, tournamentID, userID int64) (bool, error) {
	return q.hasParticipant(tournamentID, userID), nil
}

func (q *memQueries) CountParticipants(_ context.Context, tournamentID int64) (int, error) {
	return q.countParticipants(tournamentID), nil
}

func (q *memQueries) ListParticipants(_ context.Context, tournamentID int64) ([]*models.ParticipantDetail, error) {
	var out []*models.ParticipantDetail
	for _, p := range q.data.participants {
		if p.TournamentID != tournamentID {
			continue
		}
		d := &models.ParticipantDetail{Participant: *p}
		if u, ok := q.data.users[p.UserID]; ok {
			d.Name = u.Name
			d.Email = u.Email
		}
		out = append(out, d)
	}
	return out, nil
}

func (q *memQueries) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := q.data.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	cp := *u
	return &cp, nil
}

func (q *memQueries) GetUserForUpdate(ctx context.Context, id int64) (*models.User, error) {
	return q.GetUser(ctx, id)
}

func (q *memQueries) AdjustBalance(_ context.Context, userID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	u, ok := q.data.users[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %d", models.ErrNotFound, userID)
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: balance cannot go below zero", models.ErrInsufficientFunds)
	}
	if next.GreaterThanOrEqual(models.MaxAmount) {
		return decimal.Zero, fmt.Errorf("%w: amount out of range", models.ErrValidation)
	}
	u.Balance = next
	u.UpdatedAt = q.clock.Now()
	return next, nil
}

func (q *memQueries) CreateWinning(_ context.Context, w *models.Winning) error {
	if _, ok := q.data.users[w.UserID]; !ok {
		return fmt.Errorf("%w: invalid reference: user %d", models.ErrNotFound, w.UserID)
	}
	w.ID = q.data.next()
	w.CreatedAt = q.clock.Now()
	cp := *w
	q.data.winnings = append(q.data.winnings, &cp)
	return nil
}

func (q *memQueries) ListWinnings(_ context.Context, tournamentID int64) ([]*models.Winning, error) {
	var out []*models.Winning
	for _, w := range q.data.winnings {
		if w.TournamentID == tournamentID {
			cp := *w
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (q *memQueries) CreateHistory(_ context.Context, h *models.History) error {
	if _, ok := q.data.users[h.UserID]; !ok {
		return fmt.Errorf("%w: invalid reference: user %d", models.ErrNotFound, h.UserID)
	}
	h.ID = q.data.next()
	h.CreatedAt = q.clock.Now()
	cp := *h
	q.data.history = append(q.data.history, &cp)
	return nil
}

func (q *memQueries) ListHistory(_ context.Context, userID int64) ([]*models.History, error) {
	var out []*models.History
	for i := len(q.data.history) - 1; i >= 0; i-- {
		if h := q.data.history[i]; h.UserID == userID {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (q *memQueries) ClaimPayoutKey(_ context.Context, key string) error {
	if _, ok := q.data.payoutKeys[key]; ok {
		return fmt.Errorf("%w: payout already applied", models.ErrDuplicateEntry)
	}
	q.data.payoutKeys[key] = struct{}{}
	return nil
}

func (q *memQueries) CreateDeposit(_ context.Context, d *models.Deposit) error {
	for _, existing := range q.data.deposits {
		if existing.TransactionRef == d.TransactionRef {
			return fmt.Errorf("%w: transaction reference already used", models.ErrDuplicateEntry)
		}
	}
	now := q.clock.Now()
	d.ID = q.data.next()
	d.CreatedAt = now
	d.UpdatedAt = now
	cp := *d
	q.data.deposits[d.ID] = &cp
	return nil
}

func (q *memQueries) GetDepositForUpdate(_ context.Context, id int64) (*models.Deposit, error) {
	d, ok := q.data.deposits[id]
	if !ok {
		return nil, fmt.Errorf("%w: deposit %d", models.ErrNotFound, id)
	}
	cp := *d
	return &cp, nil
}

func (q *memQueries) UpdateDepositStatus(_ context.Context, id int64, status models.FundingStatus, reviewedBy int64) error {
	d, ok := q.data.deposits[id]
	if !ok {
		return fmt.Errorf("%w: deposit %d", models.ErrNotFound, id)
	}
	d.Status = status
	d.ReviewedBy = reviewedBy
	d.UpdatedAt = q.clock.Now()
	return nil
}

func (q *memQueries) CreateWithdrawal(_ context.Context, w *models.Withdrawal) error {
	now := q.clock.Now()
	w.ID = q.data.next()
	w.CreatedAt = now
	w.UpdatedAt = now
	cp := *w
	q.data.withdrawals[w.ID] = &cp
	return nil
}

func (q *memQueries) GetWithdrawalForUpdate(_ context.Context, id int64) (*models.Withdrawal, error) {
	w, ok := q.data.withdrawals[id]
	if !ok {
		return nil, fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, id)
	}
	cp := *w
	return &cp, nil
}

func (q *memQueries) UpdateWithdrawalStatus(_ context.Context, id int64, status models.FundingStatus, reviewedBy int64) error {
	w, ok := q.data.withdrawals[id]
	if !ok {
		return fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, id)
	}
	w.Status = status
	w.ReviewedBy = reviewedBy
	w.UpdatedAt = q.clock.Now()
	return nil
}

func (q *memQueries) CountPendingWithdrawals(_ context.Context, userID int64) (int, error) {
	n := 0
	for _, w := range q.data.withdrawals {
		if w.UserID == userID && w.Status == models.FundingPending {
			n++
		}
	}
	return n, nil
}

func (q *memQueries) ListUsers(_ context.Context) ([]*models.User, error) {
	out := make([]*models.User, 0, len(q.data.users))
	for _, u := range q.data.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchFunding(f models.FundingFilter, userID int64, status models.FundingStatus) bool {
	return (f.UserID == 0 || f.UserID == userID) && (f.Status == "" || f.Status == status)
}

func (q *memQueries) ListDeposits(_ context.Context, f models.FundingFilter) ([]*models.Deposit, error) {
	var out []*models.Deposit
	for _, d := range q.data.deposits {
		if matchFunding(f, d.UserID, d.Status) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *memQueries) ListWithdrawals(_ context.Context, f models.FundingFilter) ([]*models.Withdrawal, error) {
	var out []*models.Withdrawal
	for _, w := range q.data.withdrawals {
		if matchFunding(f, w.UserID, w.Status) {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
