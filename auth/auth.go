// Package auth resolves the signed-in admin of a request and checks project membership.
package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

// AuthUser is the identity behind a valid session
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// SessionProvider is the identity backend. CurrentUser fails with errs.ErrUnauthenticated when the
// request carries no valid session.
type SessionProvider interface {
	CurrentUser(r *http.Request) (*AuthUser, error)
	SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*AuthUser, error)
	SignOut(w http.ResponseWriter, r *http.Request) error
}

type ProjectFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

type AdminChecker interface {
	IsAdmin(ctx context.Context, projectID uuid.UUID, userID string) (bool, error)
}

// Guard is the two-step check in front of every admin operation: a valid session, then admin
// membership in the project being changed.
type Guard struct {
	sessions SessionProvider
	projects ProjectFinder
	admins   AdminChecker
}

func NewGuard(sessions SessionProvider, projects ProjectFinder, admins AdminChecker) *Guard {
	return &Guard{sessions: sessions, projects: projects, admins: admins}
}

// Sessions exposes the provider for sign-in and sign-out
func (g *Guard) Sessions() SessionProvider {
	return g.sessions
}

// CurrentUser returns the signed-in user, or nil when there is none
func (g *Guard) CurrentUser(r *http.Request) (*AuthUser, error) {
	user, err := g.sessions.CurrentUser(r)
	if err != nil {
		if errs.IsUnauthenticated(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// IsProjectAdmin reports whether the signed-in user administers projectID. Anonymous requests are
// never admins.
func (g *Guard) IsProjectAdmin(r *http.Request, projectID uuid.UUID) (bool, error) {
	user, err := g.CurrentUser(r)
	if err != nil || user == nil {
		return false, err
	}
	return g.admins.IsAdmin(r.Context(), projectID, user.ID)
}

// RequireAuth returns the signed-in user or an unauthenticated error
func (g *Guard) RequireAuth(r *http.Request) (*AuthUser, error) {
	user, err := g.sessions.CurrentUser(r)
	if err != nil {
		if errs.IsUnauthenticated(err) {
			return nil, err
		}
		return nil, errs.NewInvalidSessionError(err)
	}
	if user == nil {
		return nil, errs.NewUnauthenticatedError()
	}
	return user, nil
}

// RequireProjectAdmin returns the signed-in user when they administer projectID. Failures carry a
// reason code: errs.ReasonNoProject for an unknown project, errs.ReasonUnauthorized otherwise.
func (g *Guard) RequireProjectAdmin(r *http.Request, projectID uuid.UUID) (*AuthUser, error) {
	user, err := g.RequireAuth(r)
	if err != nil {
		return nil, err
	}

	if _, err := g.projects.FindByID(r.Context(), projectID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.NewUnauthorizedError(errs.ReasonNoProject)
		}
		return nil, err
	}

	ok, err := g.admins.IsAdmin(r.Context(), projectID, user.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NewUnauthorizedError(errs.ReasonUnauthorized)
	}
	return user, nil
}
