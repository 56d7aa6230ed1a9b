package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "grundbok_session", time.Hour, false)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == "grundbok_session" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	sm := testSessionManager(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Zero(t, sess.User())

	sess.SetUser(7)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)
	require.Equal(t, sess.ID, cookie.Value)
	require.True(t, cookie.HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, int64(7), reloaded.User())
}

func TestSessionDestroyExpiresCookie(t *testing.T) {
	ctx := context.Background()
	sm := testSessionManager(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser(7)

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := sessionCookie(t, rec)

	next := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	next.AddCookie(cookie)
	reloaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	sm.Destroy(reloaded)

	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec2, reloaded))
	expired := sessionCookie(t, rec2)
	require.Negative(t, expired.MaxAge)

	final := httptest.NewRequest(http.MethodGet, "/", nil)
	final.AddCookie(cookie)
	fresh, err := sm.Load(ctx, final)
	require.NoError(t, err)
	require.Zero(t, fresh.User())
}

func TestSessionUnknownCookieGetsFreshState(t *testing.T) {
	ctx := context.Background()
	sm := testSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "grundbok_session", Value: "stale-id"})
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Zero(t, sess.User())
	require.Equal(t, "stale-id", sess.ID)
}
