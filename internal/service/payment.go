package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/mkamau/pesabridge/internal/domain"
	"github.com/mkamau/pesabridge/policy"
)

// InitiatePayment runs the payment workflow for a customer and amount: policy
// check, phone normalization, STK push, and on acceptance the conversation
// upsert plus the notification to the feedback endpoint.
//
// The conversation becomes relay-eligible at acceptance, before funds move;
// acceptance only means the prompt reached the device.
func (s *Service) InitiatePayment(ctx context.Context, customerNumber string, amount float64) (*domain.PaymentOutcome, error) {
	decision, err := s.policy.Evaluate(ctx, policy.Input{
		Amount:      amount,
		MaxAmount:   s.cfg.MaxAmount,
		PhoneNumber: customerNumber,
	})
	if err != nil {
		return nil, domain.NewError(domain.ErrValidation, "policy_evaluation", err)
	}
	if decision != "allow" {
		return nil, domain.NewError(domain.ErrValidation, "amount_blocked", nil)
	}

	msisdn := normalizeMSISDN(customerNumber, s.cfg.CountryCode)
	accountRef := uuid.NewString()

	outcome, err := s.gateway.InitiateSTKPush(ctx, msisdn, amount, accountRef)
	if err != nil {
		return nil, err
	}
	if !outcome.Accepted {
		s.logger.Warn("stk push rejected", "customer", customerNumber, "reason", outcome.Reason)
		return outcome, nil
	}

	token := outcome.Token
	if token == "" {
		token = accountRef
	}
	if err := s.store.CreatePendingPayment(ctx, &domain.PendingPayment{
		Token:          token,
		CustomerNumber: customerNumber,
		Amount:         amount,
	}); err != nil {
		return nil, err
	}

	if _, err := s.store.Upsert(ctx, customerNumber, s.cfg.FeedbackNumber, &amount); err != nil {
		return nil, err
	}
	s.logger.Info("payment initiated", "customer", customerNumber, "amount", amount, "token", token)

	if err := s.messenger.Send(ctx, s.cfg.FeedbackNumber, noticeNewPayment(amount)); err != nil {
		// The conversation is already open; a lost notification must not
		// fail the workflow.
		s.logger.Error("feedback notification failed", "err", err)
	}

	return outcome, nil
}

// normalizeMSISDN converts a phone number to the gateway's international
// format. A leading "+<country>" has its "+" stripped and a leading national
// "0" is replaced with the country code; anything else passes through
// unchanged.
func normalizeMSISDN(phoneNumber, countryCode string) string {
	switch {
	case strings.HasPrefix(phoneNumber, "+"+countryCode):
		return phoneNumber[1:]
	case strings.HasPrefix(phoneNumber, "0"):
		return countryCode + phoneNumber[1:]
	default:
		return phoneNumber
	}
}
