package service

import (
	"context"

	"github.com/mkamau/pesabridge/internal/domain"
)

// HandleCallback correlates the gateway's asynchronous payment result with
// its conversation, finalizes state, and notifies both parties. It always
// returns the fixed acknowledgment envelope so the gateway does not retry;
// internal failures are logged, never surfaced.
func (s *Service) HandleCallback(ctx context.Context, result domain.CallbackResult) domain.CallbackAck {
	ack := domain.CallbackAck{ResultCode: 0, ResultDesc: "Callback received successfully"}

	if !result.Success() {
		s.logger.Warn("callback reported failure", "result_code", result.ResultCode, "phone", result.PhoneNumber)
		return ack
	}

	customer, amount := s.correlate(ctx, result)
	if customer == "" {
		s.logger.Warn("callback not correlatable", "token", result.Token, "phone", result.PhoneNumber)
		return ack
	}

	if _, err := s.store.Upsert(ctx, customer, s.cfg.FeedbackNumber, amount); err != nil {
		s.logger.Error("callback conversation update failed", "customer", customer, "err", err)
		return ack
	}
	s.logger.Info("payment completed", "customer", customer, "receipt", result.ReceiptID)

	amountText := "unknown amount"
	if amount != nil {
		amountText = formatAmount(*amount)
	}
	receipt := result.ReceiptID
	if receipt == "" {
		receipt = domain.UnknownReceiptID
	}

	if err := s.messenger.Send(ctx, customer, confirmCustomer(amountText, receipt)); err != nil {
		s.logger.Error("customer confirmation failed", "customer", customer, "err", err)
	}
	if err := s.messenger.Send(ctx, s.cfg.FeedbackNumber, confirmFeedback(amountText, receipt, customer)); err != nil {
		s.logger.Error("feedback confirmation failed", "customer", customer, "err", err)
	}

	return ack
}

// correlate resolves the callback to a customer number: by correlation token
// first, falling back to the reported phone number when the gateway did not
// echo a known token. Returns the amount to record, preferring the callback's
// own figure over the initiation's.
func (s *Service) correlate(ctx context.Context, result domain.CallbackResult) (string, *float64) {
	amount := result.Amount

	pending, err := s.store.ConsumePendingPayment(ctx, result.Token)
	if err != nil {
		s.logger.Error("pending payment lookup failed", "token", result.Token, "err", err)
	} else if pending != nil {
		if amount == nil {
			amount = &pending.Amount
		}
		return pending.CustomerNumber, amount
	}

	if result.Correlatable() {
		return result.PhoneNumber, amount
	}
	return "", amount
}
