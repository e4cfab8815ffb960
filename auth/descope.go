package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/descope/go-sdk/descope/client"

	"github.com/rpupo63/digital-mix-backend/errs"
)

// DescopeProvider delegates sessions to Descope. The user IDs it reports are Descope user IDs, which
// is what project_admins.user_id holds in that setup.
type DescopeProvider struct {
	client *client.DescopeClient
}

func NewDescopeProvider(projectID string) (*DescopeProvider, error) {
	if projectID == "" {
		return nil, errors.New("descope project ID is required")
	}
	descopeClient, err := client.NewWithConfig(&client.Config{ProjectID: projectID})
	if err != nil {
		return nil, err
	}
	return &DescopeProvider{client: descopeClient}, nil
}

func (p *DescopeProvider) CurrentUser(r *http.Request) (*AuthUser, error) {
	authorized, token, err := p.client.Auth.ValidateSessionWithRequest(r)
	if err != nil || !authorized || token == nil {
		if err != nil {
			return nil, errs.NewInvalidSessionError(err)
		}
		return nil, errs.NewUnauthenticatedError()
	}
	return &AuthUser{ID: token.ID}, nil
}

func (p *DescopeProvider) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*AuthUser, error) {
	if email == "" || password == "" {
		return nil, errs.NewBadCredentialsError()
	}
	info, err := p.client.Auth.Password().SignIn(ctx, email, password, w)
	if err != nil || info == nil || info.User == nil {
		return nil, errs.NewBadCredentialsError()
	}
	return &AuthUser{ID: info.User.UserID, Email: info.User.Email}, nil
}

func (p *DescopeProvider) SignOut(w http.ResponseWriter, r *http.Request) error {
	if err := p.client.Auth.Logout(r, w); err != nil {
		return errs.NewInternalErrorWithCause("sign out", err)
	}
	return nil
}
