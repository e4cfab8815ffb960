package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rpupo63/digital-mix-backend/errs"
	"github.com/rpupo63/digital-mix-backend/models"
)

// CookieName is the session cookie set by LocalProvider
const CookieName = "session"

const DefaultSessionTTL = 24 * time.Hour

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// LocalProvider signs admins in against the users table and keeps the session in an HS256 JWT
// cookie
type LocalProvider struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewLocalProvider(users UserStore, secret string, ttl time.Duration, secureCookie bool) (*LocalProvider, error) {
	if len(secret) < 32 {
		return nil, errors.New("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &LocalProvider{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secureCookie,
		now:    time.Now,
	}, nil
}

func (p *LocalProvider) CurrentUser(r *http.Request) (*AuthUser, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, errs.NewUnauthenticatedError()
	}

	var claims sessionClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, errs.NewInvalidSessionError(err)
	}
	if claims.Subject == "" {
		return nil, errs.NewInvalidSessionError(errors.New("session has no subject"))
	}

	return &AuthUser{ID: claims.Subject, Email: claims.Email}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, w http.ResponseWriter, email, password string) (*AuthUser, error) {
	if email == "" || password == "" {
		return nil, errs.NewBadCredentialsError()
	}

	user, err := p.users.FindByEmail(ctx, email)
	if err != nil {
		if errs.IsNotFound(err) {
			return nil, errs.NewBadCredentialsError()
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, errs.NewBadCredentialsError()
	}

	now := p.now()
	expires := now.Add(p.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return nil, errs.NewInternalErrorWithCause("sign session", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return &AuthUser{ID: user.ID.String(), Email: user.Email}, nil
}

func (p *LocalProvider) SignOut(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// HashPassword hashes a password for the users table
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errs.NewValidationError("password", "password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
