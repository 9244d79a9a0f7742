// Package daraja provides the Safaricom Daraja (M-Pesa) gateway client used
// to initiate STK push payments.
package daraja

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mkamau/pesabridge/internal/config"
	"github.com/mkamau/pesabridge/internal/domain"
)

const timestampLayout = "20060102150405"

// tokenRefreshSlack refreshes the cached token this long before the
// gateway-reported expiry.
const tokenRefreshSlack = 30 * time.Second

// Client talks to the Daraja OAuth and STK push endpoints.
type Client struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

// NewClient creates a Daraja client. Every call is bounded by the configured
// external timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(cfg.GatewayBaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.ExternalTimeout,
		},
		now: time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// stkPushRequest is the payment initiation payload.
type stkPushRequest struct {
	BusinessShortCode string  `json:"BusinessShortCode"`
	Password          string  `json:"Password"`
	Timestamp         string  `json:"Timestamp"`
	TransactionType   string  `json:"TransactionType"`
	Amount            float64 `json:"Amount"`
	PartyA            string  `json:"PartyA"`
	PartyB            string  `json:"PartyB"`
	PhoneNumber       string  `json:"PhoneNumber"`
	CallBackURL       string  `json:"CallBackURL"`
	AccountReference  string  `json:"AccountReference"`
	TransactionDesc   string  `json:"TransactionDesc"`
}

type stkPushResponse struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	MerchantRequestID   string `json:"MerchantRequestID"`
	ErrorMessage        string `json:"errorMessage"`
}

// AccessToken returns a bearer token for the gateway, reusing the cached one
// until shortly before expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.cfg.ConsumerKey == "" || c.cfg.ConsumerSecret == "" {
		return "", domain.NewError(domain.ErrConfiguration, "gateway_credentials_missing", nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	url := c.baseURL + "/oauth/v2/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", domain.NewError(domain.ErrGatewayAuth, "build_token_request", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+basic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domain.NewError(domain.ErrGatewayAuth, "token_request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domain.NewError(domain.ErrGatewayAuth, "token_status",
			fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", domain.NewError(domain.ErrGatewayAuth, "token_decode", err)
	}
	if tok.AccessToken == "" {
		return "", domain.NewError(domain.ErrGatewayAuth, "token_missing", nil)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(tokenLifetime(tok.ExpiresIn))
	return c.token, nil
}

func tokenLifetime(expiresIn string) time.Duration {
	var secs int
	if _, err := fmt.Sscanf(expiresIn, "%d", &secs); err != nil || secs <= 0 {
		// Daraja tokens live an hour; fall back to that when the field is
		// absent or unparseable.
		secs = 3600
	}
	d := time.Duration(secs) * time.Second
	if d > tokenRefreshSlack {
		d -= tokenRefreshSlack
	}
	return d
}

// Password derives the STK push password for a timestamp: the base64
// encoding of shortcode+passkey+timestamp. It binds each request to its
// submission second and is computed freshly per call.
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// InitiateSTKPush submits a payment prompt for phoneNumber. The phone number
// must already be in the gateway's international format. accountRef travels
// in the request's AccountReference field.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountRef string) (*domain.PaymentOutcome, error) {
	if !c.cfg.GatewayConfigured() {
		return nil, domain.NewError(domain.ErrConfiguration, "gateway_not_configured", nil)
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := c.now().Format(timestampLayout)
	payload := stkPushRequest{
		BusinessShortCode: c.cfg.ShortCode,
		Password:          Password(c.cfg.ShortCode, c.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerBuyGoodsOnline",
		Amount:            amount,
		PartyA:            phoneNumber,
		PartyB:            c.cfg.TillNumber,
		PhoneNumber:       phoneNumber,
		CallBackURL:       c.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   "Payment via WhatsApp",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewError(domain.ErrGatewayRequest, "encode_request", err)
	}

	url := c.baseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewError(domain.ErrGatewayRequest, "build_request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewError(domain.ErrGatewayRequest, "submit_request", err)
	}
	defer resp.Body.Close()

	var out stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewError(domain.ErrGatewayRequest, "decode_response", err)
	}

	if out.ResponseCode != "0" {
		reason := out.ErrorMessage
		if reason == "" {
			reason = out.ResponseDescription
		}
		if reason == "" {
			reason = "Unknown error"
		}
		return &domain.PaymentOutcome{Accepted: false, Reason: reason}, nil
	}

	return &domain.PaymentOutcome{Accepted: true, Token: out.CheckoutRequestID}, nil
}
