package service

import (
	"context"
	"errors"

	"github.com/mkamau/pesabridge/internal/domain"
)

// HandleMessage classifies one inbound chat message and returns the single
// reply owed to the sender. A forwardable message additionally produces one
// outbound relayed message to the partner.
func (s *Service) HandleMessage(ctx context.Context, sender, body string) string {
	cmd, err := domain.ParseCommand(body)
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) && de.Reason == "non_numeric_amount" {
			return replyInvalidAmount
		}
		return replyInvalidCommand
	}

	if cmd.Kind == domain.CommandPesaPayment {
		return s.handlePayment(ctx, sender, cmd.Amount)
	}

	active, err := s.store.IsActive(ctx, sender)
	if err != nil {
		s.logger.Error("active lookup failed", "sender", sender, "err", err)
		return replyInternalTrouble
	}
	if active {
		return s.forward(ctx, sender, body)
	}

	if sender == s.cfg.FeedbackNumber {
		return replyFeedbackIdle
	}
	return replyCustomerHelp
}

func (s *Service) handlePayment(ctx context.Context, sender string, amount float64) string {
	outcome, err := s.InitiatePayment(ctx, sender, amount)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.ErrValidation:
			return replyAmountBlocked(s.cfg.MaxAmount)
		case domain.ErrPersistence:
			s.logger.Error("payment persistence failure", "sender", sender, "err", err)
			return replyInternalTrouble
		default:
			s.logger.Error("payment workflow failed", "sender", sender, "err", err)
			return replyPaymentError
		}
	}
	if !outcome.Accepted {
		return replyPaymentFailed(outcome.Reason)
	}
	return replyPaymentPrompt(amount)
}

func (s *Service) forward(ctx context.Context, sender, body string) string {
	partner, err := s.store.PartnerOf(ctx, sender)
	if err != nil {
		s.logger.Error("partner lookup failed", "sender", sender, "err", err)
		return replyInternalTrouble
	}
	if partner == "" {
		return replyPartnerNotFound
	}

	if err := s.messenger.Send(ctx, partner, body); err != nil {
		s.logger.Error("forward delivery failed", "sender", sender, "partner", partner, "err", err)
		return replyForwardFailed
	}

	if err := s.store.Touch(ctx, sender); err != nil {
		// The message already went out; a failed activity bump is log-only.
		s.logger.Error("activity touch failed", "sender", sender, "err", err)
	}
	return replyForwarded
}
