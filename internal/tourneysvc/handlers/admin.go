package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/shopspring/decimal"
)

type createTournamentRequest struct {
	Game            models.Game     `json:"game" validate:"required,oneof=PUBG FREEFIRE"`
	Name            string          `json:"name" validate:"required,max=50"`
	Description     string          `json:"description" validate:"max=255"`
	RoomID          string          `json:"room_id" validate:"max=100"`
	RoomPassword    string          `json:"room_password" validate:"max=100"`
	EntryFee        decimal.Decimal `json:"entry_fee"`
	Prize           decimal.Decimal `json:"prize"`
	PerKillPrize    decimal.Decimal `json:"per_kill_prize"`
	MaxParticipants int             `json:"max_participants" validate:"required,gt=0"`
	ScheduledAt     time.Time       `json:"scheduled_at" validate:"required"`
}

type editTournamentRequest struct {
	Game            *models.Game     `json:"game" validate:"omitempty,oneof=PUBG FREEFIRE"`
	Name            *string          `json:"name" validate:"omitempty,max=50"`
	Description     *string          `json:"description" validate:"omitempty,max=255"`
	EntryFee        *decimal.Decimal `json:"entry_fee"`
	Prize           *decimal.Decimal `json:"prize"`
	PerKillPrize    *decimal.Decimal `json:"per_kill_prize"`
	MaxParticipants *int             `json:"max_participants" validate:"omitempty,gt=0"`
	ScheduledAt     *time.Time       `json:"scheduled_at"`
}

type roomRequest struct {
	RoomID       *string `json:"room_id" validate:"omitempty,max=100"`
	RoomPassword *string `json:"room_password" validate:"omitempty,max=100"`
}

type endRequest struct {
	WinnerUserID int64 `json:"winner_user_id" validate:"required,gt=0"`
}

type killRequest struct {
	UserID         int64  `json:"user_id" validate:"required,gt=0"`
	Kills          int    `json:"kills" validate:"gte=0,lte=1000"`
	IdempotencyKey string `json:"idempotency_key" validate:"max=100"`
}

type adjustRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message" validate:"max=255"`
}

func admin(r *http.Request) int64 {
	id, _ := auth.FromContext(r.Context())
	return id.ID
}

func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.svc.Lifecycle.Create(r.Context(), admin(r), models.TournamentSpec{
		Game:            req.Game,
		Name:            req.Name,
		Description:     req.Description,
		RoomID:          req.RoomID,
		RoomPassword:    req.RoomPassword,
		EntryFee:        req.EntryFee,
		Prize:           req.Prize,
		PerKillPrize:    req.PerKillPrize,
		MaxParticipants: req.MaxParticipants,
		ScheduledAt:     req.ScheduledAt,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.notify(comm.TournamentEvent{Type: comm.EventTournamentCreated, TournamentID: id})
	h.ok(w, http.StatusCreated, "tournament created", map[string]int64{"id": id})
}

func (h *Handler) ListAllTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Query.ListAll(r.Context(), admin(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "tournaments", list)
}

func (h *Handler) ListCurrentTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Query.ListCurrent(r.Context(), admin(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "current tournaments", list)
}

func (h *Handler) ListTournamentHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Query.ListHistory(r.Context(), admin(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "ended tournaments", list)
}

func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.svc.Query.GetByID(r.Context(), admin(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "tournament", t)
}

func (h *Handler) EditTournament(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req editTournamentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.svc.Lifecycle.Edit(r.Context(), admin(r), id, models.TournamentUpdate{
		Game:            req.Game,
		Name:            req.Name,
		Description:     req.Description,
		EntryFee:        req.EntryFee,
		Prize:           req.Prize,
		PerKillPrize:    req.PerKillPrize,
		MaxParticipants: req.MaxParticipants,
		ScheduledAt:     req.ScheduledAt,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "tournament updated", t)
}

func (h *Handler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.svc.Lifecycle.Delete(r.Context(), admin(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "tournament deleted", nil)
}

func (h *Handler) UpdateRoomInfo(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req roomRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	t, err := h.svc.Lifecycle.UpdateRoomInfo(r.Context(), admin(r), id, req.RoomID, req.RoomPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "room info updated", t)
}

func (h *Handler) EndTournament(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req endRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	t, err := h.svc.Lifecycle.End(r.Context(), admin(r), id, req.WinnerUserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.notify(comm.TournamentEvent{
		Type:         comm.EventTournamentEnded,
		TournamentID: t.ID,
		UserID:       req.WinnerUserID,
		Amount:       t.Prize.StringFixed(2),
	})
	h.ok(w, http.StatusOK, "tournament ended", t)
}

func (h *Handler) AwardKillMoney(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req killRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	win, err := h.svc.Lifecycle.AwardKillMoney(r.Context(), service.KillAward{
		AdminID:        admin(r),
		TournamentID:   id,
		UserID:         req.UserID,
		Kills:          req.Kills,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.notify(comm.TournamentEvent{
		Type:         comm.EventKillReward,
		TournamentID: id,
		UserID:       req.UserID,
		Amount:       win.Amount.StringFixed(2),
		Count:        req.Kills,
	})
	h.ok(w, http.StatusOK, "kill reward paid", win)
}

func (h *Handler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Query.ListParticipants(r.Context(), admin(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "participants", list)
}

func (h *Handler) ListWinnings(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Query.ListWinnings(r.Context(), admin(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "winnings", list)
}

func (h *Handler) ReviewDeposit(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		d, err := h.svc.Funding.ReviewDeposit(r.Context(), admin(r), id, approve)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.ok(w, http.StatusOK, "deposit "+string(d.Status), d)
	}
}

func (h *Handler) ReviewWithdrawal(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "id")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		wd, err := h.svc.Funding.ReviewWithdrawal(r.Context(), admin(r), id, approve)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.ok(w, http.StatusOK, "withdrawal "+string(wd.Status), wd)
	}
}

func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req adjustRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	entry, err := h.svc.Balance.Adjust(r.Context(), admin(r), userID, req.Amount, req.Message)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "balance adjusted", entry)
}

// fundingFilter reads ?status=pending|approved|rejected|all. Empty falls back to def.
func fundingFilter(r *http.Request, def models.FundingStatus) (models.FundingFilter, error) {
	status := models.FundingStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = def
	case "all":
		status = ""
	case models.FundingPending, models.FundingApproved, models.FundingRejected:
	default:
		return models.FundingFilter{}, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	return models.FundingFilter{Status: status}, nil
}

// ListDeposits defaults to the pending queue.
func (h *Handler) ListDeposits(w http.ResponseWriter, r *http.Request) {
	f, err := fundingFilter(r, models.FundingPending)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Funding.ListDeposits(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "deposits", list)
}

func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	f, err := fundingFilter(r, models.FundingPending)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	list, err := h.svc.Funding.ListWithdrawals(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "withdrawals", list)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Query.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "users", list)
}
