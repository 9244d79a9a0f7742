// Package whatsapp provides the Twilio-backed WhatsApp delivery client.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mkamau/pesabridge/internal/config"
	"github.com/mkamau/pesabridge/internal/domain"
)

// Client sends WhatsApp messages through the Twilio Messages API.
type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a delivery client bounded by the configured external
// timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.TwilioBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.ExternalTimeout,
		},
	}
}

type messageResponse struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Send delivers body to toNumber over WhatsApp from the configured sending
// number. Provider prefixes on toNumber are tolerated and normalized.
func (c *Client) Send(ctx context.Context, toNumber, body string) error {
	if c.cfg.TwilioAccountSID == "" || c.cfg.TwilioAuthToken == "" || c.cfg.TwilioWhatsAppNumber == "" {
		return domain.NewError(domain.ErrConfiguration, "twilio_credentials_missing", nil)
	}

	toNumber = strings.TrimPrefix(toNumber, "whatsapp:")

	form := url.Values{}
	form.Set("To", "whatsapp:"+toNumber)
	form.Set("From", "whatsapp:"+c.cfg.TwilioWhatsAppNumber)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.cfg.TwilioAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.NewError(domain.ErrDelivery, "build_request", err)
	}
	req.SetBasicAuth(c.cfg.TwilioAccountSID, c.cfg.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrDelivery, "send_request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var out messageResponse
		_ = json.NewDecoder(resp.Body).Decode(&out)
		reason := out.ErrorMessage
		if reason == "" {
			reason = resp.Status
		}
		return domain.NewError(domain.ErrDelivery, "send_rejected", fmt.Errorf("twilio: %s", reason))
	}
	return nil
}
