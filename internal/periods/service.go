package periods

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/grundbok/grundbok/internal/shared"
)

// RepositoryPort abstracts period lock persistence.
type RepositoryPort interface {
	List(ctx context.Context, year int) ([]Period, error)
	Get(ctx context.Context, year, month int) (Period, error)
	Upsert(ctx context.Context, p Period) error
}

// AuditPort records period administration events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service administers period locks.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the period service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns the lock rows of one year.
func (s *Service) List(ctx context.Context, year int) ([]Period, error) {
	if err := ValidatePeriod(year, 0); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, year)
}

// Close marks a period closed for postings. Month zero closes the year.
func (s *Service) Close(ctx context.Context, year, month int, actorID int64) (Period, error) {
	return s.transition(ctx, year, month, StatusClosed, actorID)
}

// Reopen lifts a period lock.
func (s *Service) Reopen(ctx context.Context, year, month int, actorID int64) (Period, error) {
	return s.transition(ctx, year, month, StatusOpen, actorID)
}

func (s *Service) transition(ctx context.Context, year, month int, target Status, actorID int64) (Period, error) {
	if err := ValidatePeriod(year, month); err != nil {
		return Period{}, err
	}
	current, err := s.repo.Get(ctx, year, month)
	if err != nil {
		return Period{}, err
	}
	if err := ValidateTransition(current.Status, target); err != nil {
		return Period{}, err
	}

	next := Period{Year: year, Month: month, Status: target}
	if target == StatusClosed {
		at := s.now()
		next.ClosedBy = actorID
		next.ClosedAt = &at
	}
	if err := s.repo.Upsert(ctx, next); err != nil {
		return Period{}, err
	}

	if s.audit != nil {
		action := "period.close"
		if target == StatusOpen {
			action = "period.reopen"
		}
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "period",
			EntityID: fmt.Sprintf("%d-%02d", year, month),
			At:       s.now(),
		})
	}
	s.logger.Info("period transition",
		slog.Int("year", year),
		slog.Int("month", month),
		slog.String("status", string(target)),
		slog.Int64("actor", actorID))
	return next, nil
}
