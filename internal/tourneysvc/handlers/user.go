package handlers

import (
	"net/http"
	"strings"

	"github.com/avvvet/tourney-services/internal/auth"
	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

type participateRequest struct {
	InGameName string `json:"in_game_name" validate:"required,max=100"`
	InGameID   string `json:"in_game_id" validate:"required,max=100"`
	Level      int    `json:"level" validate:"gte=0"`
}

type depositRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	TransactionRef string          `json:"transaction_ref" validate:"required,max=100"`
	UpiID          string          `json:"upi_id" validate:"required,max=100"`
}

type withdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
	UpiID  string          `json:"upi_id" validate:"required,max=100"`
}

func user(r *http.Request) int64 {
	id, _ := auth.FromContext(r.Context())
	return id.ID
}

// ListParticipated lists joined tournaments; ?ended=true for past ones.
func (h *Handler) ListParticipated(w http.ResponseWriter, r *http.Request) {
	ended := r.URL.Query().Get("ended") == "true"
	list, err := h.svc.Query.ListParticipated(r.Context(), user(r), ended)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "participated tournaments", list)
}

func (h *Handler) ListEligibleByGame(w http.ResponseWriter, r *http.Request) {
	game := models.Game(strings.ToUpper(chi.URLParam(r, "game")))
	list, err := h.svc.Admission.ListEligibleByGame(r.Context(), user(r), game)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "open tournaments", list)
}

func (h *Handler) GetTournamentForUser(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view, err := h.svc.Query.GetForUser(r.Context(), user(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "tournament", view)
}

func (h *Handler) IsParticipated(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	joined, err := h.svc.Admission.IsParticipated(r.Context(), id, user(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "participation", map[string]bool{"participated": joined})
}

func (h *Handler) Participate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req participateRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.svc.Admission.Participate(r.Context(), id, user(r), models.PlayerIdentity{
		InGameName: req.InGameName,
		InGameID:   req.InGameID,
		Level:      req.Level,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.notify(comm.TournamentEvent{Type: comm.EventParticipantJoined, TournamentID: id, UserID: p.UserID})
	h.ok(w, http.StatusCreated, "joined tournament", p)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance.Balance(r.Context(), user(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "balance", map[string]string{"balance": balance.StringFixed(2)})
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Balance.History(r.Context(), user(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "history", entries)
}

func (h *Handler) RequestDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Funding.RequestDeposit(r.Context(), user(r), req.Amount, req.TransactionRef, req.UpiID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "deposit request submitted", d)
}

func (h *Handler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	wd, err := h.svc.Funding.RequestWithdrawal(r.Context(), user(r), req.Amount, req.UpiID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "withdrawal request submitted", wd)
}

func (h *Handler) ListMyDeposits(w http.ResponseWriter, r *http.Request) {
	f, err := fundingFilter(r, "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.UserID = user(r)
	list, err := h.svc.Funding.ListDeposits(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "deposits", list)
}

func (h *Handler) ListMyWithdrawals(w http.ResponseWriter, r *http.Request) {
	f, err := fundingFilter(r, "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	f.UserID = user(r)
	list, err := h.svc.Funding.ListWithdrawals(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "withdrawals", list)
}
