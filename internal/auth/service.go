package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/grundbok/grundbok/internal/shared"
)

// User is an authenticated bookkeeping user.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Repository loads user records.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// CurrentUser resolves the request's user from the session on the context.
// Callers that write postings must abort here before any computation.
func (s *Service) CurrentUser(ctx context.Context) (*User, error) {
	sess := shared.SessionFromContext(ctx)
	if sess.User() == 0 {
		return nil, shared.ErrUnauthenticated
	}
	user, err := s.repo.FindByID(ctx, sess.User())
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthenticated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrUnauthenticated
	}
	return user, nil
}
