package periods

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grundbok/grundbok/internal/auth"
	"github.com/grundbok/grundbok/internal/platform/httpx"
)

// Handler manages period lock endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	auth    *auth.Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authSvc *auth.Service) *Handler {
	return &Handler{logger: logger, service: service, auth: authSvc}
}

// MountRoutes registers period routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{year}", h.listPeriods)
	r.Post("/{year}/{month}/close", h.closePeriod)
	r.Post("/{year}/{month}/reopen", h.reopenPeriod)
}

type periodResponse struct {
	Year     int        `json:"year"`
	Month    int        `json:"month"`
	Status   string     `json:"status"`
	ClosedBy int64      `json:"closedBy,omitempty"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid year")
		return
	}
	list, err := h.service.List(r.Context(), year)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]periodResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPeriodResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusClosed)
}

func (h *Handler) reopenPeriod(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, StatusOpen)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target Status) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid year")
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid month")
		return
	}

	var p Period
	if target == StatusClosed {
		p, err = h.service.Close(r.Context(), year, month, user.ID)
	} else {
		p, err = h.service.Reopen(r.Context(), year, month, user.ID)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPeriodResponse(p))
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("period request", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toPeriodResponse(p Period) periodResponse {
	return periodResponse{
		Year:     p.Year,
		Month:    p.Month,
		Status:   string(p.Status),
		ClosedBy: p.ClosedBy,
		ClosedAt: p.ClosedAt,
	}
}
