package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Webhook asks an external renderer (e.g. a Next.js revalidation route) to regenerate a path.
// Each call posts {"path": ...} in its own goroutine and returns immediately.
type Webhook struct {
	url    string
	secret string
	client *http.Client
	logger zerolog.Logger
}

func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: log.With().Str("component", "revalidateWebhook").Logger(),
	}
}

func (h *Webhook) Invalidate(ctx context.Context, path string) {
	// the request outlives the caller's request context
	go h.send(context.WithoutCancel(ctx), path)
}

func (h *Webhook) send(ctx context.Context, path string) {
	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("error marshaling revalidate request")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		h.logger.Error().Err(err).Str("path", path).Msg("error building revalidate request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if h.secret != "" {
		req.Header.Set("X-Revalidate-Secret", h.secret)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", path).Msg("revalidate request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		h.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("revalidate endpoint returned non-2xx status")
		return
	}
	h.logger.Debug().Str("path", path).Msg("revalidated")
}
