package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeSessions struct {
	user *AuthUser
	err  error
}

func (f fakeSessions) CurrentUser(r *http.Request) (*AuthUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.user == nil {
		return nil, errs.NewUnauthenticatedError()
	}
	return f.user, nil
}

func (f fakeSessions) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*AuthUser, error) {
	return f.user, nil
}

func (f fakeSessions) SignOut(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type fakeProjects map[uuid.UUID]*models.Project

func (f fakeProjects) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, errs.NewProjectNotFound()
}

type fakeAdmins map[uuid.UUID][]string

func (f fakeAdmins) IsAdmin(ctx context.Context, projectID uuid.UUID, userID string) (bool, error) {
	for _, id := range f[projectID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

type fakeUsers map[string]*models.User

func (f fakeUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f[strings.ToLower(email)]; ok {
		return u, nil
	}
	return nil, errs.NewUserNotFound()
}

func (f fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range f {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, errs.NewUserNotFound()
}

func newGuard(user *AuthUser) (*Guard, uuid.UUID) {
	projectID := uuid.New()
	projects := fakeProjects{projectID: {ID: projectID, Slug: "digital-mix"}}
	admins := fakeAdmins{projectID: {"admin-1"}}
	return NewGuard(fakeSessions{user: user}, projects, admins), projectID
}

func TestGuard_CurrentUser(t *testing.T) {
	g, _ := newGuard(nil)
	user, err := g.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, user)

	g, _ = newGuard(&AuthUser{ID: "admin-1"})
	user, err = g.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", user.ID)
}

func TestGuard_IsProjectAdmin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	g, projectID := newGuard(&AuthUser{ID: "admin-1"})
	ok, err := g.IsProjectAdmin(r, projectID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.IsProjectAdmin(r, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)

	g, projectID = newGuard(nil)
	ok, err = g.IsProjectAdmin(r, projectID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGuard_RequireAuth(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	g, _ := newGuard(nil)
	_, err := g.RequireAuth(r)
	assert.True(t, errs.IsUnauthenticated(err))
	assert.Equal(t, http.StatusUnauthorized, errs.StatusCode(err))

	g, _ = newGuard(&AuthUser{ID: "someone"})
	user, err := g.RequireAuth(r)
	require.NoError(t, err)
	assert.Equal(t, "someone", user.ID)
}

func TestGuard_RequireProjectAdmin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	t.Run("admin", func(t *testing.T) {
		g, projectID := newGuard(&AuthUser{ID: "admin-1"})
		user, err := g.RequireProjectAdmin(r, projectID)
		require.NoError(t, err)
		assert.Equal(t, "admin-1", user.ID)
	})

	t.Run("not signed in", func(t *testing.T) {
		g, projectID := newGuard(nil)
		_, err := g.RequireProjectAdmin(r, projectID)
		assert.True(t, errs.IsUnauthenticated(err))
		assert.Empty(t, errs.Code(err))
	})

	t.Run("unknown project", func(t *testing.T) {
		g, _ := newGuard(&AuthUser{ID: "admin-1"})
		_, err := g.RequireProjectAdmin(r, uuid.New())
		assert.True(t, errs.IsUnauthorized(err))
		assert.Equal(t, errs.ReasonNoProject, errs.Code(err))
	})

	t.Run("not an admin", func(t *testing.T) {
		g, projectID := newGuard(&AuthUser{ID: "intruder"})
		_, err := g.RequireProjectAdmin(r, projectID)
		assert.True(t, errs.IsUnauthorized(err))
		assert.Equal(t, errs.ReasonUnauthorized, errs.Code(err))
		assert.Equal(t, http.StatusForbidden, errs.StatusCode(err))
	})
}

func newLocal(t *testing.T) (*LocalProvider, *models.User) {
	t.Helper()
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	user := &models.User{ID: uuid.New(), Email: "admin@example.com", PasswordHash: hash}

	p, err := NewLocalProvider(fakeUsers{user.Email: user}, testSecret, time.Hour, true)
	require.NoError(t, err)
	return p, user
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestLocalProvider_SignInAndCurrentUser(t *testing.T) {
	p, user := newLocal(t)

	w := httptest.NewRecorder()
	signedIn, err := p.SignIn(context.Background(), w, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), signedIn.ID)

	cookie := sessionCookie(t, w)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)

	r := httptest.NewRequest(http.MethodGet, "/admin/me", nil)
	r.AddCookie(cookie)
	current, err := p.CurrentUser(r)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), current.ID)
	assert.Equal(t, "admin@example.com", current.Email)
}

func TestLocalProvider_BadCredentials(t *testing.T) {
	p, _ := newLocal(t)

	for _, tc := range []struct{ email, password string }{
		{"admin@example.com", "wrong"},
		{"nobody@example.com", "correct horse"},
		{"", ""},
	} {
		w := httptest.NewRecorder()
		_, err := p.SignIn(context.Background(), w, tc.email, tc.password)
		assert.ErrorIs(t, err, errs.ErrBadCredentials)
		assert.Empty(t, w.Result().Cookies())
	}
}

func TestLocalProvider_RejectsExpiredAndForgedSessions(t *testing.T) {
	p, _ := newLocal(t)

	w := httptest.NewRecorder()
	_, err := p.SignIn(context.Background(), w, "admin@example.com", "correct horse")
	require.NoError(t, err)
	cookie := sessionCookie(t, w)

	p.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	_, err = p.CurrentUser(r)
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	other, err := NewLocalProvider(fakeUsers{}, strings.Repeat("x", 32), time.Hour, false)
	require.NoError(t, err)
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	_, err = other.CurrentUser(r)
	assert.ErrorIs(t, err, errs.ErrInvalidSession)

	_, err = p.CurrentUser(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, errs.IsUnauthenticated(err))
}

func TestLocalProvider_SignOutClearsCookie(t *testing.T) {
	p, _ := newLocal(t)

	w := httptest.NewRecorder()
	require.NoError(t, p.SignOut(w, httptest.NewRequest(http.MethodPost, "/admin/logout", nil)))

	cookie := sessionCookie(t, w)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
}

func TestNewLocalProvider_RequiresSecret(t *testing.T) {
	_, err := NewLocalProvider(fakeUsers{}, "short", time.Hour, false)
	assert.Error(t, err)
}

func TestNewDescopeProvider_RequiresProjectID(t *testing.T) {
	_, err := NewDescopeProvider("")
	assert.Error(t, err)
}
