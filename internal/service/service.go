// Package service implements the conversation and payment correlation
// engine: message routing, the payment workflow, and callback correlation.
package service

import (
	"context"
	"log/slog"

	"github.com/mkamau/pesabridge/internal/config"
	"github.com/mkamau/pesabridge/internal/domain"
	"github.com/mkamau/pesabridge/policy"
)

// ConversationStore is the persistence surface the engine depends on.
type ConversationStore interface {
	Upsert(ctx context.Context, customerNumber, feedbackNumber string, amount *float64) (*domain.Conversation, error)
	Touch(ctx context.Context, phoneNumber string) error
	IsActive(ctx context.Context, phoneNumber string) (bool, error)
	PartnerOf(ctx context.Context, phoneNumber string) (string, error)
	CreatePendingPayment(ctx context.Context, p *domain.PendingPayment) error
	ConsumePendingPayment(ctx context.Context, token string) (*domain.PendingPayment, error)
}

// PaymentGateway initiates payment prompts; accessed through this narrow
// interface so the workflow stays independent of the wire client.
type PaymentGateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountRef string) (*domain.PaymentOutcome, error)
}

// Messenger delivers outbound chat messages.
type Messenger interface {
	Send(ctx context.Context, toNumber, body string) error
}

// PaymentPolicy decides whether a requested amount may proceed.
type PaymentPolicy interface {
	Evaluate(ctx context.Context, in policy.Input) (string, error)
}

// Service wires the engine's collaborators together.
type Service struct {
	store     ConversationStore
	gateway   PaymentGateway
	messenger Messenger
	policy    PaymentPolicy
	cfg       *config.Config
	logger    *slog.Logger
}

// New creates the engine service.
func New(store ConversationStore, gateway PaymentGateway, messenger Messenger, pol PaymentPolicy, cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		gateway:   gateway,
		messenger: messenger,
		policy:    pol,
		cfg:       cfg,
		logger:    logger,
	}
}
