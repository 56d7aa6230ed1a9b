package payroll

import (
	"context"
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

// RunEnqueuer schedules a payroll run for background posting.
type RunEnqueuer interface {
	EnqueuePayrollPost(ctx context.Context, year, month int, userID int64) (string, error)
}

// Handler manages payroll endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      *auth.Service
	enqueuer  RunEnqueuer
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authSvc *auth.Service, enqueuer RunEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, auth: authSvc, enqueuer: enqueuer, validator: validator.New()}
}

// MountRoutes registers payroll routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/row-types", h.listRowTypes)
	r.Get("/specs", h.listSpecs)
	r.Get("/specs/{employeeID}", h.getSpec)
	r.Put("/specs/{employeeID}", h.upsertSpec)
	r.Delete("/specs/{employeeID}", h.deleteSpec)
	r.Get("/runs/{year}/{month}/preview", h.previewRun)
	r.Post("/runs/{year}/{month}/post", h.postRun)
	r.Post("/runs/{year}/{month}/enqueue", h.enqueueRun)
}

type rowTypeResponse struct {
	Type          string `json:"type"`
	Label         string `json:"label"`
	Unit          string `json:"unit"`
	Mode          string `json:"mode"`
	Slot          string `json:"slot,omitempty"`
	Sign          string `json:"sign"`
	AddsToGross   bool   `json:"addsToGross"`
	DeductsDays   bool   `json:"deductsDays"`
	TaxExempt     bool   `json:"taxExempt"`
	Account       string `json:"account,omitempty"`
	ContraAccount string `json:"contraAccount,omitempty"`
}

func (h *Handler) listRowTypes(w http.ResponseWriter, r *http.Request) {
	defs := RowTypes()
	out := make([]rowTypeResponse, 0, len(defs))
	for _, def := range defs {
		resp := rowTypeResponse{
			Type:        string(def.Type),
			Label:       def.Label,
			Unit:        string(def.Unit),
			Mode:        string(def.Mode),
			Slot:        string(def.Slot),
			Sign:        string(def.Sign),
			AddsToGross: def.AddsToTaxableGross,
			DeductsDays: def.DeductsDays,
			TaxExempt:   def.TaxExempt,
		}
		if def.Account != nil {
			resp.Account = def.Account.Number
		}
		if def.Contra != nil {
			resp.ContraAccount = def.Contra.Number
		}
		out = append(out, resp)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rowTypes": out})
}

type extraRowRequest struct {
	Type     string `json:"type" validate:"required"`
	Quantity string `json:"quantity"`
	Rate     string `json:"rate"`
	Comment  string `json:"comment" validate:"max=200"`
}

type upsertSpecRequest struct {
	Year       int               `json:"year" validate:"required,min=1900,max=2200"`
	Month      int               `json:"month" validate:"required,min=1,max=12"`
	BaseSalary string            `json:"baseSalary" validate:"required"`
	Overtime   string            `json:"overtime"`
	ExtraRows  []extraRowRequest `json:"extraRows" validate:"dive"`
}

type extraRowResponse struct {
	Type           string `json:"type"`
	Quantity       string `json:"quantity"`
	Rate           string `json:"rate"`
	Comment        string `json:"comment,omitempty"`
	ComputedAmount string `json:"computedAmount"`
}

type specResponse struct {
	ID         int64              `json:"id"`
	EmployeeID int64              `json:"employeeId"`
	Year       int                `json:"year"`
	Month      int                `json:"month"`
	BaseSalary string             `json:"baseSalary"`
	Overtime   string             `json:"overtime"`
	ExtraRows  []extraRowResponse `json:"extraRows"`
	Gross      string             `json:"gross"`
	Tax        string             `json:"tax"`
	SocialFees string             `json:"socialFees"`
	Net        string             `json:"net"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

func (h *Handler) listSpecs(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, month, ok := periodQuery(w, r)
	if !ok {
		return
	}
	specs, err := h.service.ListSpecifications(r.Context(), year, month)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]specResponse, 0, len(specs))
	for _, spec := range specs {
		out = append(out, toSpecResponse(spec))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"specifications": out})
}

func (h *Handler) getSpec(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid employee ID")
		return
	}
	year, month, ok := periodQuery(w, r)
	if !ok {
		return
	}
	spec, err := h.service.GetSpecification(r.Context(), employeeID, year, month)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSpecResponse(spec))
}

func (h *Handler) upsertSpec(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid employee ID")
		return
	}
	var req upsertSpecRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	spec, err := toSpecification(employeeID, req)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	saved, err := h.service.UpsertSpecification(r.Context(), spec)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSpecResponse(saved))
}

func (h *Handler) deleteSpec(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	employeeID, err := strconv.ParseInt(chi.URLParam(r, "employeeID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid employee ID")
		return
	}
	year, month, ok := periodQuery(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteSpecification(r.Context(), employeeID, year, month); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Postings    []postingResponse `json:"postings"`
	TotalDebit  string            `json:"totalDebit"`
	TotalCredit string            `json:"totalCredit"`
	IsBalanced  bool              `json:"isBalanced"`
	Warnings    []string          `json:"warnings,omitempty"`
}

type postingResponse struct {
	Account     string `json:"account"`
	AccountName string `json:"accountName"`
	Debit       string `json:"debit"`
	Credit      string `json:"credit"`
	Description string `json:"description,omitempty"`
	SubjectName string `json:"subjectName,omitempty"`
}

func (h *Handler) previewRun(w http.ResponseWriter, r *http.Request) {
	if _, err := h.auth.CurrentUser(r.Context()); err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	summary, err := h.service.PreviewRun(r.Context(), year, month)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (h *Handler) postRun(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	year, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	id, err := h.service.PostRun(r.Context(), year, month, user.ID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"transactionId": id})
}

func (h *Handler) enqueueRun(w http.ResponseWriter, r *http.Request) {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
		return
	}
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "background posting not configured")
		return
	}
	year, month, ok := periodParams(w, r)
	if !ok {
		return
	}
	taskID, err := h.enqueuer.EnqueuePayrollPost(r.Context(), year, int(month), user.ID)
	if err != nil {
		h.logger.Error("enqueue payroll run", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"taskId": taskID})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrSpecNotFound), errors.Is(err, ErrEmployeeNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrUnknownRowType):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrRunUnbalanced), errors.Is(err, ErrTaxLookup):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("payroll request", slog.Any("error", err), slog.String("path", r.URL.Path))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func periodQuery(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 2200 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "year query parameter required")
		return 0, 0, false
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month query parameter required")
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func periodParams(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 2200 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid year")
		return 0, 0, false
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid month")
		return 0, 0, false
	}
	return year, time.Month(month), true
}

func toSpecification(employeeID int64, req upsertSpecRequest) (Specification, error) {
	baseSalary, err := decimal.NewFromString(req.BaseSalary)
	if err != nil {
		return Specification{}, err
	}
	overtime := decimal.Zero
	if req.Overtime != "" {
		if overtime, err = decimal.NewFromString(req.Overtime); err != nil {
			return Specification{}, err
		}
	}
	rows := make([]ExtraRow, 0, len(req.ExtraRows))
	for _, raw := range req.ExtraRows {
		row := ExtraRow{Type: RowType(raw.Type), Comment: raw.Comment, Quantity: decimal.Zero, Rate: decimal.Zero}
		if raw.Quantity != "" {
			if row.Quantity, err = decimal.NewFromString(raw.Quantity); err != nil {
				return Specification{}, err
			}
		}
		if raw.Rate != "" {
			if row.Rate, err = decimal.NewFromString(raw.Rate); err != nil {
				return Specification{}, err
			}
		}
		rows = append(rows, row)
	}
	return Specification{
		EmployeeID: employeeID,
		Year:       req.Year,
		Month:      time.Month(req.Month),
		BaseSalary: baseSalary,
		Overtime:   overtime,
		ExtraRows:  rows,
	}, nil
}

func toSpecResponse(spec Specification) specResponse {
	rows := make([]extraRowResponse, 0, len(spec.ExtraRows))
	for _, row := range spec.ExtraRows {
		rows = append(rows, extraRowResponse{
			Type:           string(row.Type),
			Quantity:       row.Quantity.String(),
			Rate:           row.Rate.String(),
			Comment:        row.Comment,
			ComputedAmount: row.ComputedAmount.StringFixed(2),
		})
	}
	return specResponse{
		ID:         spec.ID,
		EmployeeID: spec.EmployeeID,
		Year:       spec.Year,
		Month:      int(spec.Month),
		BaseSalary: spec.BaseSalary.StringFixed(2),
		Overtime:   spec.Overtime.StringFixed(2),
		ExtraRows:  rows,
		Gross:      spec.ComputedGross.StringFixed(2),
		Tax:        spec.ComputedTax.StringFixed(2),
		SocialFees: spec.ComputedSocialFees.StringFixed(2),
		Net:        spec.ComputedNet.StringFixed(2),
		UpdatedAt:  spec.UpdatedAt,
	}
}

func toSummaryResponse(summary ledger.Summary) summaryResponse {
	postings := make([]postingResponse, 0, len(summary.Postings))
	for _, p := range summary.Postings {
		postings = append(postings, postingResponse{
			Account:     p.Account,
			AccountName: p.AccountName,
			Debit:       p.Debit.StringFixed(2),
			Credit:      p.Credit.StringFixed(2),
			Description: p.Description,
			SubjectName: p.SubjectName,
		})
	}
	return summaryResponse{
		Postings:    postings,
		TotalDebit:  summary.TotalDebit.StringFixed(2),
		TotalCredit: summary.TotalCredit.StringFixed(2),
		IsBalanced:  summary.IsBalanced,
		Warnings:    summary.Warnings,
	}
}
