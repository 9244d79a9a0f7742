// Package config provides configuration for the pesabridge server.
package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// Config holds the full server configuration. It is loaded once at startup
// and passed by reference into every component that needs it.
type Config struct {
	// Server settings
	HTTPPort int `envconfig:"http_port" default:"8000"`

	// Database
	DatabaseURL string `envconfig:"database_url" default:"file:conversations.db?cache=shared&mode=rwc"`

	// M-Pesa (Daraja) gateway
	ConsumerKey    string `envconfig:"consumer_key"`
	ConsumerSecret string `envconfig:"consumer_secret"`
	ShortCode      string `envconfig:"short_code"`
	Passkey        string `envconfig:"passkey"`
	CallbackURL    string `envconfig:"callback_url"`
	TillNumber     string `envconfig:"till"`
	GatewayBaseURL string `envconfig:"gateway_base_url" default:"https://api.safaricom.co.ke"`
	CountryCode    string `envconfig:"country_code" default:"254"`

	// Twilio WhatsApp delivery
	TwilioAccountSID     string `envconfig:"twilio_account_sid"`
	TwilioAuthToken      string `envconfig:"twilio_auth_token"`
	TwilioWhatsAppNumber string `envconfig:"twilio_whatsapp_number"`
	TwilioBaseURL        string `envconfig:"twilio_base_url" default:"https://api.twilio.com"`

	// The fixed support endpoint customers are relayed to.
	FeedbackNumber string `envconfig:"number"`

	// Timeouts and lifetimes
	ExternalTimeout time.Duration `envconfig:"external_timeout" default:"15s"`
	ConversationTTL time.Duration `envconfig:"conversation_ttl" default:"72h"`

	// Payment policy
	MaxAmount float64 `envconfig:"max_amount" default:"150000"`
}

// Load reads configuration from the environment, consulting a .env file if
// one is present. Gateway and Twilio credentials are allowed to be empty at
// startup; operations that need them fail with a configuration error instead.
func Load() (*Config, error) {
	godotenv.Load()

	var c Config
	if err := envconfig.Process("pesabridge", &c); err != nil {
		return nil, errors.WithStack(err)
	}

	if c.FeedbackNumber == "" {
		return nil, errors.New("config: feedback number (PESABRIDGE_NUMBER) is required")
	}

	return &c, nil
}

// GatewayConfigured reports whether the Daraja credentials needed to initiate
// a payment are present.
func (c *Config) GatewayConfigured() bool {
	return c.ConsumerKey != "" && c.ConsumerSecret != "" && c.ShortCode != "" && c.Passkey != ""
}
