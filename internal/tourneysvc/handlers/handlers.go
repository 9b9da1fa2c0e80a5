package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/avvvet/tourney-services/internal/comm"
	"github.com/avvvet/tourney-services/internal/tourneysvc/models"
	"github.com/avvvet/tourney-services/internal/tourneysvc/service"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

// Notifier receives lifecycle events once their transaction committed.
type Notifier interface {
	Notify(ev comm.TournamentEvent)
}

type Services struct {
	Lifecycle *service.LifecycleService
	Admission *service.AdmissionService
	Balance   *service.BalanceService
	Query     *service.QueryService
	Funding   *service.FundingService
}

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	validate  *validator.Validate
	notifier  Notifier
	svc       Services
	port      string
}

func NewHandler(tokenAuth *jwtauth.JWTAuth, svc Services, notifier Notifier, port string) *Handler {
	return &Handler{
		tokenAuth: tokenAuth,
		validate:  validator.New(),
		notifier:  notifier,
		svc:       svc,
		port:      port,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

// statusFor maps a domain error kind to its HTTP status. Anything else is a
// server fault.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrNotParticipant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrDuplicateEntry),
		errors.Is(err, models.ErrCapacity),
		errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	rsp := Response{Code: code, Message: http.StatusText(code), Error: err.Error()}
	if code == http.StatusInternalServerError {
		log.WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Errorf("request failed: %v", err)
		rsp.Error = "internal error"
	}
	h.CreateResponse(w, rsp)
}

// decode reads a JSON body into v and checks its validate tags.
func (h *Handler) decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", models.ErrValidation, err)
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", models.ErrValidation, name)
	}
	return id, nil
}

func (h *Handler) notify(ev comm.TournamentEvent) {
	if h.notifier != nil {
		h.notifier.Notify(ev)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "tourney service is running at port "+h.port, nil)
}

func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "games", models.Games())
}
