package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkamau/pesabridge/internal/domain"
	"github.com/mkamau/pesabridge/policy"
)

func TestHandleMessageCommandCasingAndQuotes(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		body   string
		amount float64
	}{
		{"!dm pesa 250", 250},
		{"!DM PESA 250", 250},
		{"!Dm PeSa 99.5", 99.5},
		{`!dm pesa "300"`, 300},
		{"!dm pesa '300'", 300},
	}

	for _, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			gw := acceptedGateway("tok")
			svc, _ := newTestService(t, gw, &fakeMessenger{})

			reply := svc.HandleMessage(ctx, testCustomer, tc.body)
			assert.Equal(t, replyPaymentPrompt(tc.amount), reply)
			assert.Equal(t, 1, gw.calls)
			assert.Equal(t, tc.amount, gw.lastAmount)
		})
	}
}

func TestHandleMessageMalformedCommands(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		name  string
		body  string
		reply string
	}{
		{"non-numeric amount", "!dm pesa abc", replyInvalidAmount},
		{"missing amount", "!dm pesa", replyInvalidCommand},
		{"quoted garbage", `!dm pesa "abc"`, replyInvalidAmount},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			svc, _ := newTestService(t, gw, &fakeMessenger{})

			reply := svc.HandleMessage(ctx, testCustomer, tc.body)
			assert.Equal(t, tc.reply, reply)
			// No gateway call is made for malformed commands.
			assert.Equal(t, 0, gw.calls)
		})
	}
}

func TestHandleMessageBlockedAmounts(t *testing.T) {
	ctx := context.Background()

	for _, body := range []string{"!dm pesa 0", "!dm pesa -50", "!dm pesa 900000"} {
		t.Run(body, func(t *testing.T) {
			gw := &fakeGateway{}
			svc, db := newTestService(t, gw, &fakeMessenger{})

			reply := svc.HandleMessage(ctx, testCustomer, body)
			assert.Equal(t, replyAmountBlocked(150000), reply)
			assert.Equal(t, 0, gw.calls)

			conv, err := db.GetConversation(ctx, testCustomer, testFeedback)
			assert.NoError(t, err)
			assert.Nil(t, conv)
		})
	}
}

func TestHandleMessageGatewayRejection(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{outcome: &domain.PaymentOutcome{Accepted: false, Reason: "Insufficient balance"}}
	msgr := &fakeMessenger{}
	svc, db := newTestService(t, gw, msgr)

	reply := svc.HandleMessage(ctx, testCustomer, "!dm pesa 250")
	assert.Equal(t, replyPaymentFailed("Insufficient balance"), reply)

	// A rejected initiation must not open a conversation or notify anyone.
	conv, err := db.GetConversation(ctx, testCustomer, testFeedback)
	assert.NoError(t, err)
	assert.Nil(t, conv)
	assert.Empty(t, msgr.sent)
}

func TestHandleMessageGatewayError(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{err: domain.NewError(domain.ErrGatewayAuth, "token_request", errors.New("boom"))}
	svc, db := newTestService(t, gw, &fakeMessenger{})

	reply := svc.HandleMessage(ctx, testCustomer, "!dm pesa 250")
	assert.Equal(t, replyPaymentError, reply)

	conv, err := db.GetConversation(ctx, testCustomer, testFeedback)
	assert.NoError(t, err)
	assert.Nil(t, conv)
}

func TestHandleMessageForwardFailure(t *testing.T) {
	ctx := context.Background()
	msgr := &fakeMessenger{err: errors.New("twilio down")}
	svc, db := newTestService(t, &fakeGateway{}, msgr)

	if _, err := db.Upsert(ctx, testCustomer, testFeedback, nil); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	reply := svc.HandleMessage(ctx, testCustomer, "hello")
	assert.Equal(t, replyForwardFailed, reply)
}

// orphanStore reports the sender active but with no partner on record.
type orphanStore struct {
	ConversationStore
}

func (orphanStore) IsActive(context.Context, string) (bool, error) {
	return true, nil
}

func (orphanStore) PartnerOf(context.Context, string) (string, error) {
	return "", nil
}

func TestHandleMessagePartnerNotFound(t *testing.T) {
	ctx := context.Background()
	msgr := &fakeMessenger{}
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	svc := New(orphanStore{}, &fakeGateway{}, msgr, engine, testConfig(), slog.New(slog.DiscardHandler))

	reply := svc.HandleMessage(ctx, testCustomer, "hello")
	assert.Equal(t, replyPartnerNotFound, reply)
	assert.Empty(t, msgr.sent)
}

func TestHandleMessageHelpReplies(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeGateway{}, &fakeMessenger{})

	// A stranger gets pointed at the payment command.
	reply := svc.HandleMessage(ctx, "+254722999999", "hi there")
	assert.Equal(t, replyCustomerHelp, reply)

	// The feedback endpoint itself gets the idle notice.
	reply = svc.HandleMessage(ctx, testFeedback, "anyone?")
	assert.Equal(t, replyFeedbackIdle, reply)
}

func TestHandleMessageStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestService(t, &fakeGateway{}, &fakeMessenger{})

	db.Close()

	reply := svc.HandleMessage(ctx, testCustomer, "hello")
	assert.Equal(t, replyInternalTrouble, reply)
}

func TestNormalizeMSISDN(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+254711000001", "254711000001"},
		{"0711000001", "254711000001"},
		// Anything else passes through unchanged.
		{"254711000001", "254711000001"},
		{"711000001", "711000001"},
		{"+15551234567", "+15551234567"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeMSISDN(tc.in, "254"), "input %q", tc.in)
	}
}
