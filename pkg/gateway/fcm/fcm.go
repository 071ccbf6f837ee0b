// Package fcm sends push notifications through Firebase Cloud
// Messaging's HTTP API.
package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/careloop/recovery-api/pkg/circuitbreaker"
	"github.com/careloop/recovery-api/pkg/logger"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

type Config struct {
	ServerKey string
	Endpoint  string
	Timeout   time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

// NewClient builds an FCM client. A missing server key yields a
// disabled client: configuration absence is a warning, not an error.
func NewClient(cfg Config, logger *logger.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ServerKey == "" {
		logger.Warn("FCM server key not configured, push channel unavailable")
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "fcm",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
		}),
		logger: logger,
	}
}

func (c *Client) Enabled() bool {
	return c.cfg.ServerKey != ""
}

type multicastRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    notification      `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send delivers a multicast push to the given device tokens and returns
// per-token success/failure counts. The send counts as failed overall
// only when zero tokens succeed.
func (c *Client) Send(ctx context.Context, title, body string, data map[string]string, tokens []string) (int, int, error) {
	if !c.Enabled() {
		return 0, len(tokens), fmt.Errorf("fcm not configured")
	}
	if len(tokens) == 0 {
		return 0, 0, fmt.Errorf("no device tokens")
	}

	payload, err := json.Marshal(multicastRequest{
		RegistrationIDs: tokens,
		Notification:    notification{Title: title, Body: body},
		Data:            data,
	})
	if err != nil {
		return 0, len(tokens), fmt.Errorf("failed to marshal fcm request: %w", err)
	}

	var result multicastResponse
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "key="+c.cfg.ServerKey)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("fcm request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("fcm returned status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return 0, len(tokens), err
	}

	if result.Failure > 0 {
		c.logger.Warn("FCM partial delivery", "failed", result.Failure, "total", len(tokens))
	}
	return result.Success, result.Failure, nil
}
