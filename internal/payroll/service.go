package payroll

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/grundbok/grundbok/internal/ledger"
)

// RepositoryPort abstracts payroll persistence.
type RepositoryPort interface {
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	ListEmployees(ctx context.Context) (map[int64]Employee, error)
	GetSpecification(ctx context.Context, employeeID int64, year int, month time.Month) (Specification, error)
	ListSpecifications(ctx context.Context, year int, month time.Month) ([]Specification, error)
	UpsertSpecification(ctx context.Context, spec Specification) (Specification, error)
	DeleteSpecification(ctx context.Context, employeeID int64, year int, month time.Month) error
}

// PostingStore commits a generated posting list atomically.
type PostingStore interface {
	CommitPostings(ctx context.Context, date time.Time, description, comment string, userID int64, postings []ledger.Posting) (int64, error)
}

// MetricsPort counts payroll run outcomes.
type MetricsPort interface {
	ObservePayrollRun(outcome string)
}

// Service orchestrates payroll specifications, run previews and posting.
type Service struct {
	repo      RepositoryPort
	engine    *TaxEngine
	generator *Generator
	cache     *ledger.Cache
	store     PostingStore
	metrics   MetricsPort
	logger    *slog.Logger
	preview   singleflight.Group
	now       func() time.Time
}

// NewService constructs the payroll service.
func NewService(repo RepositoryPort, engine *TaxEngine, generator *Generator, cache *ledger.Cache, store PostingStore, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		generator: generator,
		cache:     cache,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches run outcome counters.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

func (s *Service) observeRun(outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePayrollRun(outcome)
	}
}

// GetSpecification loads one employee's payroll for one period.
func (s *Service) GetSpecification(ctx context.Context, employeeID int64, year int, month time.Month) (Specification, error) {
	return s.repo.GetSpecification(ctx, employeeID, year, month)
}

// ListSpecifications returns every specification of one period.
func (s *Service) ListSpecifications(ctx context.Context, year int, month time.Month) ([]Specification, error) {
	return s.repo.ListSpecifications(ctx, year, month)
}

// UpsertSpecification recomputes every derived field from the source rows
// and persists the result. The cached Computed* columns exist for list
// display only; readers that post money always recompute.
func (s *Service) UpsertSpecification(ctx context.Context, spec Specification) (Specification, error) {
	if _, err := s.repo.GetEmployee(ctx, spec.EmployeeID); err != nil {
		return Specification{}, err
	}
	for _, row := range spec.ExtraRows {
		if _, err := Definition(row.Type); err != nil {
			return Specification{}, err
		}
	}

	spec.ExtraRows = RecomputeRows(spec.ExtraRows, spec.BaseSalary)
	agg := AggregatePayroll(spec.BaseSalary, spec.Overtime, spec.ExtraRows)
	gross := agg.CorrectedGross.Round(2)

	emp, err := s.repo.GetEmployee(ctx, spec.EmployeeID)
	if err != nil {
		return Specification{}, err
	}
	tax, err := s.engine.Withholding(emp.TaxTable, emp.TaxColumn, gross)
	if err != nil {
		return Specification{}, err
	}

	spec.ComputedGross = gross
	spec.ComputedTax = tax
	spec.ComputedSocialFees = s.engine.SocialFees(agg.SocialFeeBase)
	spec.ComputedNet = gross.Sub(tax).Add(agg.NetAdjustment.Round(2))
	spec.UpdatedAt = s.now()

	saved, err := s.repo.UpsertSpecification(ctx, spec)
	if err != nil {
		return Specification{}, err
	}
	s.bump(ctx)
	return saved, nil
}

// DeleteSpecification removes one employee's payroll from a period.
func (s *Service) DeleteSpecification(ctx context.Context, employeeID int64, year int, month time.Month) error {
	if err := s.repo.DeleteSpecification(ctx, employeeID, year, month); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// PreviewRun generates the posting summary of one period without touching
// storage. Results are served from the versioned cache; concurrent misses
// for the same period collapse into one generation.
func (s *Service) PreviewRun(ctx context.Context, year int, month time.Month) (ledger.Summary, error) {
	key, err := s.cache.BuildKey(ctx, "payroll", "preview", fmt.Sprintf("%d-%02d", year, int(month)))
	if err != nil {
		return ledger.Summary{}, err
	}
	result, err, _ := s.preview.Do(key, func() (any, error) {
		var summary ledger.Summary
		err := s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
			generated, err := s.generate(ctx, year, month)
			if err != nil {
				return nil, err
			}
			return generated, nil
		})
		return summary, err
	})
	if err != nil {
		return ledger.Summary{}, err
	}
	return result.(ledger.Summary), nil
}

// PostRun generates the period's postings and commits them as one atomic
// transaction dated on the period's last day. An unbalanced run is refused
// before any storage write.
func (s *Service) PostRun(ctx context.Context, year int, month time.Month, userID int64) (int64, error) {
	summary, err := s.generate(ctx, year, month)
	if err != nil {
		s.observeRun("failed")
		return 0, err
	}
	if len(summary.Postings) == 0 {
		s.observeRun("empty")
		return 0, ErrSpecNotFound
	}
	if !summary.IsBalanced {
		s.observeRun("unbalanced")
		s.logger.Warn("payroll run refused",
			slog.Int("year", year),
			slog.Int("month", int(month)),
			slog.String("total_debit", summary.TotalDebit.String()),
			slog.String("total_credit", summary.TotalCredit.String()),
			slog.Any("warnings", summary.Warnings))
		return 0, fmt.Errorf("%w: debit %s credit %s", ErrRunUnbalanced,
			summary.TotalDebit, summary.TotalCredit)
	}

	date := periodEnd(year, month)
	description := runDescription(year, month)
	id, err := s.store.CommitPostings(ctx, date, description, "", userID, summary.Postings)
	if err != nil {
		s.observeRun("failed")
		return 0, err
	}
	s.observeRun("posted")
	s.logger.Info("payroll run posted",
		slog.Int64("transaction_id", id),
		slog.Int("year", year),
		slog.Int("month", int(month)),
		slog.Int("lines", len(summary.Postings)))
	return id, nil
}

func (s *Service) generate(ctx context.Context, year int, month time.Month) (ledger.Summary, error) {
	specs, err := s.repo.ListSpecifications(ctx, year, month)
	if err != nil {
		return ledger.Summary{}, err
	}
	employees, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	return s.generator.Generate(specs, employees, runDescription(year, month)), nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("cache invalidation", slog.Any("error", err))
	}
}

func periodEnd(year int, month time.Month) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
}

func runDescription(year int, month time.Month) string {
	return fmt.Sprintf("Payroll %d-%02d", year, int(month))
}
