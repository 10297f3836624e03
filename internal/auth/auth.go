// Package auth provides optional external authentication for player
// connections. When no validator is configured the server accepts any
// player name, which is the expected mode for local play and simulations.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	// Callers may choose to fail open (allow) or fail closed (reject).
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity represents an authenticated player.
type Identity struct {
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate checks if a token is valid and returns the player identity.
	// Returns:
	//   - (*Identity, nil) if token is valid
	//   - (nil, ErrInvalidToken) if token is definitively invalid
	//   - (nil, ErrUnavailable) if auth service is unavailable
	//   - (nil, nil) if auth is disabled (NoopValidator only)
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPValidator validates tokens via HTTP callback to an external service.
type HTTPValidator struct {
	url    string
	client *http.Client
}

// NewHTTPValidator creates a validator that calls an external HTTP endpoint.
func NewHTTPValidator(url string) *HTTPValidator {
	return &HTTPValidator{
		url: url,
		client: &http.Client{
			Timeout: 500 * time.Millisecond, // Align with context timeout
		},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid       bool   `json:"valid"`
	PlayerID    string `json:"player_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	// Empty token is invalid when auth is enabled
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		// Network errors, timeouts, etc. = unavailable
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Success - decode response
	case http.StatusUnauthorized, http.StatusForbidden:
		// Definitive rejection
		return nil, ErrInvalidToken
	default:
		// Service issues and anything unexpected
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// Limit response body to 1MB to avoid pathological responses
	limitedReader := io.LimitReader(resp.Body, 1<<20)

	var authResp validateResponse
	if err := json.NewDecoder(limitedReader).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}

	if !authResp.Valid {
		return nil, ErrInvalidToken
	}

	return &Identity{
		PlayerID:    authResp.PlayerID,
		DisplayName: authResp.DisplayName,
	}, nil
}

// NoopValidator allows all connections without validation (dev mode).
type NoopValidator struct{}

// NewNoopValidator creates a validator that allows all connections.
func NewNoopValidator() *NoopValidator {
	return &NoopValidator{}
}

func (v *NoopValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	// No authentication - allow all connections
	return nil, nil
}
