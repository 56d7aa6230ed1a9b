package accounting

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/grundbok/grundbok/internal/auth"
	"github.com/grundbok/grundbok/internal/ledger"
	"github.com/grundbok/grundbok/internal/platform/httpx"
)

// Handler manages transaction endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      *auth.Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authSvc *auth.Service) *Handler {
	return &Handler{logger: logger, service: service, auth: authSvc, validator: validator.New()}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listTransactions)
	r.Post("/", h.createTransaction)
	r.Get("/{id}", h.getTransaction)
	r.Delete("/{id}", h.deleteTransaction)
}

type postingLine struct {
	Account     string `json:"account" validate:"required,numeric,len=4"`
	AccountName string `json:"accountName"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description"`
	SubjectName string `json:"subjectName"`
}

type createTransactionRequest struct {
	Date             string        `json:"date" validate:"required,datetime=2006-01-02"`
	Description      string        `json:"description" validate:"required,max=200"`
	Comment          string        `json:"comment" validate:"max=500"`
	Postings         []postingLine `json:"postings" validate:"required,min=1,dive"`
	SkipBalanceCheck bool          `json:"skipBalanceCheck"`
}

type entryResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"accountId"`
	Debit     string `json:"debit"`
	Credit    string `json:"credit"`
}

type transactionResponse struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Amount      string          `json:"amount"`
	Comment     string          `json:"comment,omitempty"`
	UserID      int64           `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
	Entries     []entryResponse `json:"entries,omitempty"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}

	var req createTransactionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	date, _ := time.Parse("2006-01-02", req.Date)
	postings, err := toPostings(req.Postings)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	id, err := h.service.CreateFromPostings(r.Context(), date, req.Description, req.Comment, user.ID, postings, CommitOptions{
		SkipBalanceCheck: req.SkipBalanceCheck,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction ID")
		return
	}
	tr, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTransactionResponse(tr, true))
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 2200 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "year query parameter required")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month query parameter required")
		return
	}
	transactions, err := h.service.List(r.Context(), year, month)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]transactionResponse, 0, len(transactions))
	for _, tr := range transactions {
		out = append(out, toTransactionResponse(tr, false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid transaction ID")
		return
	}
	if err := h.service.Delete(r.Context(), id, user.ID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrTransactionNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrPeriodClosed):
		httpx.Problem(w, http.StatusConflict, "Period Closed", err.Error())
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrNoPostings), errors.Is(err, ErrUnknownAccount):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("transaction request", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func toPostings(lines []postingLine) ([]ledger.Posting, error) {
	postings := make([]ledger.Posting, 0, len(lines))
	for _, line := range lines {
		debit, err := parseAmount(line.Debit)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(line.Credit)
		if err != nil {
			return nil, err
		}
		postings = append(postings, ledger.Posting{
			Account:     line.Account,
			AccountName: line.AccountName,
			Debit:       debit,
			Credit:      credit,
			Description: line.Description,
			SubjectName: line.SubjectName,
		})
	}
	return postings, nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func toTransactionResponse(tr Transaction, withEntries bool) transactionResponse {
	resp := transactionResponse{
		ID:          tr.ID,
		Date:        tr.Date.Format("2006-01-02"),
		Description: tr.Description,
		Amount:      tr.Amount.StringFixed(2),
		Comment:     tr.Comment,
		UserID:      tr.UserID,
		CreatedAt:   tr.CreatedAt,
	}
	if withEntries {
		resp.Entries = make([]entryResponse, 0, len(tr.Entries))
		for _, e := range tr.Entries {
			resp.Entries = append(resp.Entries, entryResponse{
				ID:        e.ID,
				AccountID: e.AccountID,
				Debit:     e.Debit.StringFixed(2),
				Credit:    e.Credit.StringFixed(2),
			})
		}
	}
	return resp
}
