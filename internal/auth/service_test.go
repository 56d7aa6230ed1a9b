package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/grundbok/grundbok/internal/shared"
)

type fakeRepo struct {
	users map[string]*User
}

func (r *fakeRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	if u, ok := r.users[email]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func testUser(t *testing.T, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{
		ID:           1,
		Email:        "anna@example.com",
		Name:         "Anna",
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func TestAuthenticate(t *testing.T) {
	user := testUser(t, "correct horse", true)
	svc := NewService(&fakeRepo{users: map[string]*User{user.Email: user}})

	got, err := svc.Authenticate(context.Background(), user.Email, "correct horse")
	require.NoError(t, err)
	require.Equal(t, int64(1), got.ID)

	_, err = svc.Authenticate(context.Background(), user.Email, "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	user := testUser(t, "correct horse", false)
	svc := NewService(&fakeRepo{users: map[string]*User{user.Email: user}})

	_, err := svc.Authenticate(context.Background(), user.Email, "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestCurrentUser(t *testing.T) {
	user := testUser(t, "pw", true)
	svc := NewService(&fakeRepo{users: map[string]*User{user.Email: user}})

	sess := &shared.Session{}
	sess.SetUser(1)
	ctx := shared.ContextWithSession(context.Background(), sess)

	got, err := svc.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, user.Email, got.Email)
}

func TestCurrentUserAnonymous(t *testing.T) {
	svc := NewService(&fakeRepo{users: map[string]*User{}})

	_, err := svc.CurrentUser(context.Background())
	require.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess := &shared.Session{}
	sess.SetUser(99)
	ctx := shared.ContextWithSession(context.Background(), sess)
	_, err = svc.CurrentUser(ctx)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}
