package accounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/grundbok/grundbok/internal/auth"
	"github.com/grundbok/grundbok/internal/platform/httpx"
)

// Handler manages chart-of-accounts endpoints.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	auth      *auth.Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, authSvc *auth.Service) *Handler {
	return &Handler{logger: logger, repo: repo, auth: authSvc, validator: validator.New()}
}

// MountRoutes registers chart routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listAccounts)
	r.Post("/", h.createAccount)
	r.Get("/{number}", h.getAccount)
	r.Put("/{number}/active", h.setActive)
}

type accountResponse struct {
	ID     int64  `json:"id"`
	Number string `json:"number"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Active bool   `json:"active"`
}

type createAccountRequest struct {
	Number string `json:"number" validate:"required,numeric,len=4"`
	Name   string `json:"name" validate:"required,max=100"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": out})
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	a, err := h.repo.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("get account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(a))
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	a, err := h.repo.Create(r.Context(), Account{
		Number: req.Number,
		Name:   req.Name,
		Kind:   KindForNumber(req.Number),
		Active: true,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateNumber) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
			return
		}
		h.logger.Error("create account", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(a))
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.repo.SetActive(r.Context(), chi.URLParam(r, "number"), req.Active); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("set account active", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toAccountResponse(a Account) accountResponse {
	return accountResponse{ID: a.ID, Number: a.Number, Name: a.Name, Kind: string(a.Kind), Active: a.Active}
}
