package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MessagingGateway sends a rendered message to a phone number and returns the
// raw provider response body. Implementations must return an error on any
// non-successful provider outcome so the caller can retry.
type MessagingGateway interface {
	Send(ctx context.Context, phone, message string) (string, error)
}

// WhatsAppGateway talks to a Fonnte-style WhatsApp HTTP API: a single
// form-encoded POST with a token header.
type WhatsAppGateway struct {
	apiURL string
	token  string
	client *http.Client
}

func NewWhatsAppGateway(apiURL, token string) *WhatsAppGateway {
	return &WhatsAppGateway{
		apiURL: apiURL,
		token:  token,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (g *WhatsAppGateway) Send(ctx context.Context, phone, message string) (string, error) {
	form := url.Values{}
	form.Set("target", phone)
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return string(body), fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	return string(body), nil
}
