// Package twilio sends SMS through the Twilio REST API.
package twilio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careloop/recovery-api/pkg/circuitbreaker"
	"github.com/careloop/recovery-api/pkg/logger"
)

const defaultBaseURL = "https://api.twilio.com/2010-04-01"

type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Timeout    time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	cb     *circuitbreaker.CircuitBreaker
	logger *logger.Logger
}

// NewClient builds a Twilio client. All three credentials are required
// for the SMS channel to be available.
func NewClient(cfg Config, logger *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if !configured(cfg) {
		logger.Warn("Twilio credentials not configured, SMS channel unavailable")
	}

	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "twilio",
			MaxRequests: 5,
			Interval:    30 * time.Second,
			Timeout:     60 * time.Second,
		}),
		logger: logger,
	}
}

func configured(cfg Config) bool {
	return cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != ""
}

func (c *Client) Enabled() bool {
	return configured(c.cfg)
}

// Send delivers one SMS to the destination number.
func (c *Client) Send(ctx context.Context, to, body string) error {
	if !c.Enabled() {
		return fmt.Errorf("twilio not configured")
	}
	if to == "" {
		return fmt.Errorf("no destination phone number")
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.cfg.BaseURL, c.cfg.AccountSID)

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("twilio request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("twilio returned status %d", resp.StatusCode)
		}

		c.logger.Debug("SMS sent", "to", to)
		return nil
	})
}
