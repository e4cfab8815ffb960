package api

import (
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rpupo63/digital-mix-backend/auth"
	"github.com/rpupo63/digital-mix-backend/errs"
)

const (
	// AdminHomePath is where browsers land after signing in
	AdminHomePath = "/admin"

	reasonInvalidCredentials = "invalid_credentials"
)

type sessionHandler struct {
	responder Responder
	logger    zerolog.Logger
	guard     *auth.Guard
	limiter   *loginLimiter
}

func newSessionHandler(guard *auth.Guard, limiter *loginLimiter) sessionHandler {
	logger := log.With().Str("handlerName", "sessionHandler").Logger()

	return sessionHandler{
		responder: NewResponder(logger),
		logger:    logger,
		guard:     guard,
		limiter:   limiter,
	}
}

// LoginRequest carries the credentials of a sign-in
// @Description Sign-in credentials
type LoginRequest struct {
	Email    string `json:"email" example:"owner@digitalmix.hr"`
	Password string `json:"password"`
}

func readLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, error) {
	var req LoginRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		if err := decodeJSON(w, r, &req); err != nil {
			return req, err
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
		if err := r.ParseForm(); err != nil {
			return req, errs.NewMalformedPayloadError("form", err)
		}
		req.Email = r.PostForm.Get("email")
		req.Password = r.PostForm.Get("password")
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return req, errs.NewValidationError("email", "email is required")
	}
	if req.Password == "" {
		return req, errs.NewValidationError("password", "password is required")
	}
	return req, nil
}

// login signs a user in and sets the session cookie
// @Summary Sign in
// @Description Signs in with email and password. Browsers are redirected to the admin home, JSON clients receive the user.
// @Tags Session
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param credentials body LoginRequest true "Credentials"
// @Success 200 {object} Envelope{data=auth.AuthUser} "Signed-in user"
// @Success 303 "Redirect to the admin home"
// @Failure 400 {object} Envelope "Bad Request - Missing email or password"
// @Failure 401 {object} Envelope "Unauthorized - Invalid credentials"
// @Failure 429 {object} Envelope "Too Many Requests - Too many failed attempts"
// @Router /admin/login [post]
func (h sessionHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ok, retryAfter := h.limiter.Check(ip); !ok {
			h.logger.Warn().Str("ip", ip).Msg("sign-in throttled")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			h.fail(w, r, errs.NewTooManyAttemptsError(retryAfter))
			return
		}

		req, err := readLoginRequest(w, r)
		if err != nil {
			h.fail(w, r, err)
			return
		}

		user, err := h.guard.Sessions().SignIn(r.Context(), w, req.Email, req.Password)
		if err != nil {
			h.logger.Info().Str("email", req.Email).Str("ip", ip).Msg("sign-in rejected")
			if errs.StatusCode(err) < http.StatusInternalServerError {
				h.limiter.Record(ip)
			}
			h.fail(w, r, err)
			return
		}

		h.limiter.Reset(ip)
		h.logger.Info().Str("userID", user.ID).Msg("signed in")
		if wantsJSON(r) {
			h.responder.WriteJSON(w, user)
			return
		}
		http.Redirect(w, r, AdminHomePath, http.StatusSeeOther)
	}
}

// fail answers a rejected sign-in. Browsers go back to the login page, except for server-side
// failures which are reported as they are.
func (h sessionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) || errs.StatusCode(err) >= http.StatusInternalServerError {
		h.responder.WriteError(w, err)
		return
	}
	reason := reasonInvalidCredentials
	if errs.IsTooManyAttempts(err) {
		reason = errs.ReasonTooManyAttempts
	}
	http.Redirect(w, r, loginURL(reason), http.StatusSeeOther)
}

// logout clears the session
// @Summary Sign out
// @Tags Session
// @Produce json
// @Success 200 {object} Envelope "Signed out"
// @Success 303 "Redirect to the login page"
// @Router /admin/logout [post]
func (h sessionHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.guard.Sessions().SignOut(w, r); err != nil {
			h.logger.Warn().Err(err).Msg("sign-out failed")
		}

		if wantsJSON(r) {
			h.responder.WriteJSON(w, nil)
			return
		}
		http.Redirect(w, r, LoginPath, http.StatusSeeOther)
	}
}

// me returns the signed-in user
// @Summary Current user
// @Tags Session
// @Produce json
// @Success 200 {object} Envelope{data=auth.AuthUser} "Signed-in user"
// @Failure 401 {object} Envelope "Unauthorized - Not signed in"
// @Router /admin/me [get]
func (h sessionHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := ctxGetUser(r.Context())
		if !ok {
			h.responder.WriteError(w, errs.NewUnauthenticatedError())
			return
		}
		h.responder.WriteJSON(w, user)
	}
}
