// Package renter plays the rental side of the system: it rents available
// units to customers through the rental REST API and returns them when the
// ride is over.
package renter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-twin/internal/auth"
	"github.com/ukydev/fleet-twin/internal/config"
	"github.com/ukydev/fleet-twin/internal/models"
)

const (
	adminLoginPath = "/auth/login/server/admin"
	rentPath       = "/scooters/rent"
	stopPath       = "/scooters/stop"

	// tokens are refreshed this long before they expire
	refreshMargin = time.Minute
)

// ErrRequestFailed is returned for non-2xx answers from the rental API.
var ErrRequestFailed = errors.New("rental api request failed")

type tripRequest struct {
	UnitID string `json:"scooter_id"`
	UserID string `json:"user_id"`
	APIKey string `json:"api_key"`
}

// Client talks to the rental REST API as the admin account.
type Client struct {
	baseURL  string
	apiKey   string
	email    string
	password string
	http     *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewClient creates a client for cfg.APIURL.
func NewClient(cfg config.RenterConfig) *Client {
	return &Client{
		baseURL:  cfg.APIURL,
		apiKey:   cfg.APIKey,
		email:    cfg.Email,
		password: cfg.Password,
		http:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Login authenticates as admin and keeps the returned token.
func (c *Client) Login(ctx context.Context) error {
	var resp models.LoginResponse
	err := c.post(ctx, adminLoginPath, models.LoginRequest{
		Email:    c.email,
		Password: c.password,
		APIKey:   c.apiKey,
	}, "", &resp)
	if err != nil {
		return fmt.Errorf("admin login: %w", err)
	}
	if resp.Data.Token == "" {
		return fmt.Errorf("admin login: %w: empty token", ErrRequestFailed)
	}

	expires, err := auth.ExpiresAt(resp.Data.Token)
	if err != nil {
		log.WithError(err).Debug("Token carries no readable expiry")
	}

	c.mu.Lock()
	c.token = resp.Data.Token
	c.expires = expires
	c.mu.Unlock()

	log.WithField("expires", expires).Info("Logged in to rental API")
	return nil
}

func (c *Client) currentToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token, expires := c.token, c.expires
	c.mu.Unlock()

	if token != "" && (expires.IsZero() || time.Until(expires) > refreshMargin) {
		return token, nil
	}
	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, nil
}

// Rent starts a trip of userID on unitID.
func (c *Client) Rent(ctx context.Context, unitID, userID string) error {
	return c.trip(ctx, rentPath, unitID, userID)
}

// Stop ends the trip of userID on unitID.
func (c *Client) Stop(ctx context.Context, unitID, userID string) error {
	return c.trip(ctx, stopPath, unitID, userID)
}

func (c *Client) trip(ctx context.Context, path, unitID, userID string) error {
	token, err := c.currentToken(ctx)
	if err != nil {
		return err
	}
	return c.post(ctx, path, tripRequest{UnitID: unitID, UserID: userID, APIKey: c.apiKey}, token, nil)
}

func (c *Client) post(ctx context.Context, path string, body interface{}, token string, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("x-access-token", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
