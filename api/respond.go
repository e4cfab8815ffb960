package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rpupo63/digital-mix-backend/errs"
)

// maxJSONBodySize bounds JSON request bodies
const maxJSONBodySize = 1 << 20

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

// Envelope is the uniform result shape of every JSON response
// @Description Result envelope: data on success, error on failure
type Envelope struct {
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty" example:"post not found"`
	Success bool   `json:"success"`
	Field   string `json:"field,omitempty" example:"title"`
	Code    string `json:"code,omitempty" example:"unauthorized"`
	Details string `json:"details,omitempty" example:"title is required"`
}

func (r Responder) WriteJSON(w http.ResponseWriter, data any) {
	r.writeEnvelope(w, http.StatusOK, Envelope{Data: data, Success: true})
}

func (r Responder) WriteJSONStatus(w http.ResponseWriter, status int, data any) {
	r.writeEnvelope(w, status, Envelope{Data: data, Success: true})
}

func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	// For unexpected errors, log and return generic internal error
	if !errors.As(err, &apiErr) {
		r.logger.Error().Err(err).Msg("unexpected error")
		r.writeEnvelope(w, http.StatusInternalServerError, Envelope{Error: "Internal Server Error"})
		return
	}

	if apiErr.StatusCode >= http.StatusInternalServerError {
		r.logger.Error().Str("error", apiErr.GetFullError()).Int("status", apiErr.StatusCode).Msg("request failed")
	}

	r.writeEnvelope(w, apiErr.StatusCode, Envelope{
		Error:   apiErr.Message(),
		Field:   apiErr.Field,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

func (r Responder) writeEnvelope(w http.ResponseWriter, status int, body Envelope) {
	payload, err := json.Marshal(body)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields and oversized bodies
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errs.NewMaxBodySizeExceededError(maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errs.NewMalformedPayloadError("JSON", err)
		case strings.HasPrefix(err.Error(), "json: unknown field"):
			return errs.NewMalformedPayloadError("JSON", err)
		default:
			return errs.NewInvalidJSONError(err)
		}
	}
	return nil
}

// wantsJSON reports whether the client asked for JSON rather than a page
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
