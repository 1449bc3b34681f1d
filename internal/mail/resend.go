// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DailyPuzzle Contributors

package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DefaultResendEndpoint is the Resend email API.
const DefaultResendEndpoint = "https://api.resend.com/emails"

// ResendConfig configures a Resend sender.
type ResendConfig struct {
	APIKey string
	From   string

	// Endpoint overrides DefaultResendEndpoint.
	Endpoint string

	// Client defaults to an http.Client with a 10s timeout.
	Client *http.Client

	// MaxRetries is the number of extra attempts after a 5xx, 429 or
	// transport error. Defaults to 2.
	MaxRetries uint64

	// BaseBackoff is the first retry delay. Defaults to 250ms.
	BaseBackoff time.Duration
}

// Resend delivers mail through the Resend HTTP API.
type Resend struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
	backoff  func() retry.Backoff
}

var _ Sender = (*Resend)(nil)

// NewResend validates cfg and returns a sender.
func NewResend(cfg ResendConfig) (*Resend, error) {
	if cfg.APIKey == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("resend api key is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("from address is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 250 * time.Millisecond
	}
	maxRetries, base := cfg.MaxRetries, cfg.BaseBackoff
	return &Resend{
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(base))
		},
	}, nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// Send posts msg to Resend, retrying transient failures.
func (r *Resend) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(resendRequest{
		From:    r.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").With("provider", "resend").Wrap(err)
	}

	attempts := 0
	err = retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempts++
		return r.post(ctx, body)
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("provider", "resend").
			With("attempts", attempts).
			Wrap(err)
	}
	return nil
}

func (r *Resend) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(oops.With("status", resp.StatusCode).Errorf("resend: %s", bytes.TrimSpace(detail)))
	default:
		return oops.With("status", resp.StatusCode).Errorf("resend rejected message: %s", bytes.TrimSpace(detail))
	}
}
