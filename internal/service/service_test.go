package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mkamau/pesabridge/internal/config"
	"github.com/mkamau/pesabridge/internal/domain"
	store "github.com/mkamau/pesabridge/internal/repository"
	"github.com/mkamau/pesabridge/policy"
)

const (
	testCustomer = "+254711000001"
	testFeedback = "+254700000000"
)

type sentMessage struct {
	To   string
	Body string
}

// fakeMessenger records outbound messages and optionally fails every send.
type fakeMessenger struct {
	sent []sentMessage
	err  error
}

func (m *fakeMessenger) Send(_ context.Context, toNumber, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{To: toNumber, Body: body})
	return nil
}

// fakeGateway returns a canned outcome and records the last request.
type fakeGateway struct {
	outcome *domain.PaymentOutcome
	err     error

	calls      int
	lastPhone  string
	lastAmount float64
	lastRef    string
}

func (g *fakeGateway) InitiateSTKPush(_ context.Context, phoneNumber string, amount float64, accountRef string) (*domain.PaymentOutcome, error) {
	g.calls++
	g.lastPhone = phoneNumber
	g.lastAmount = amount
	g.lastRef = accountRef
	if g.err != nil {
		return nil, g.err
	}
	return g.outcome, nil
}

func testConfig() *config.Config {
	return &config.Config{
		FeedbackNumber:  testFeedback,
		CountryCode:     "254",
		MaxAmount:       150000,
		ExternalTimeout: 5 * time.Second,
	}
}

func newTestService(t *testing.T, gw *fakeGateway, msgr *fakeMessenger) (*Service, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:", 0)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	logger := slog.New(slog.DiscardHandler)
	return New(db, gw, msgr, engine, testConfig(), logger), db
}

func acceptedGateway(token string) *fakeGateway {
	return &fakeGateway{outcome: &domain.PaymentOutcome{Accepted: true, Token: token}}
}

func floatPtr(f float64) *float64 { return &f }

// TestEndToEndScenario walks the full flow: payment command, gateway
// acceptance, asynchronous completion callback, then verbatim relaying.
func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	gw := acceptedGateway("ws_CO_1")
	msgr := &fakeMessenger{}
	svc, db := newTestService(t, gw, msgr)

	// Customer asks for a payment prompt.
	reply := svc.HandleMessage(ctx, testCustomer, "!dm pesa 250")
	if reply != replyPaymentPrompt(250) {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if gw.lastPhone != "254711000001" || gw.lastAmount != 250 {
		t.Fatalf("unexpected gateway request: %q %v", gw.lastPhone, gw.lastAmount)
	}

	conv, err := db.GetConversation(ctx, testCustomer, testFeedback)
	if err != nil || conv == nil {
		t.Fatalf("expected conversation, got %+v, %v", conv, err)
	}
	if !conv.Active || conv.PaymentAmount == nil || *conv.PaymentAmount != 250 {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if len(msgr.sent) != 1 || msgr.sent[0].To != testFeedback || msgr.sent[0].Body != noticeNewPayment(250) {
		t.Fatalf("expected feedback notice, got %+v", msgr.sent)
	}

	// Gateway reports completion, echoing the correlation token.
	msgr.sent = nil
	ack := svc.HandleCallback(ctx, domain.CallbackResult{
		Amount:      floatPtr(250),
		PhoneNumber: "254711000001",
		ReceiptID:   "QK12XYZ",
		ResultCode:  0,
		Token:       "ws_CO_1",
	})
	if ack.ResultCode != 0 {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	if len(msgr.sent) != 2 {
		t.Fatalf("expected 2 confirmations, got %+v", msgr.sent)
	}
	if msgr.sent[0].To != testCustomer || msgr.sent[0].Body != confirmCustomer("250", "QK12XYZ") {
		t.Fatalf("unexpected customer confirmation: %+v", msgr.sent[0])
	}
	if msgr.sent[1].To != testFeedback || msgr.sent[1].Body != confirmFeedback("250", "QK12XYZ", testCustomer) {
		t.Fatalf("unexpected feedback confirmation: %+v", msgr.sent[1])
	}

	// The customer is now relayed to the feedback endpoint verbatim.
	msgr.sent = nil
	reply = svc.HandleMessage(ctx, testCustomer, "hello")
	if reply != replyForwarded {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(msgr.sent) != 1 || msgr.sent[0].To != testFeedback || msgr.sent[0].Body != "hello" {
		t.Fatalf("expected verbatim relay, got %+v", msgr.sent)
	}

	// And the feedback endpoint is relayed back.
	msgr.sent = nil
	reply = svc.HandleMessage(ctx, testFeedback, "how can I help?")
	if reply != replyForwarded {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(msgr.sent) != 1 || msgr.sent[0].To != testCustomer || msgr.sent[0].Body != "how can I help?" {
		t.Fatalf("expected verbatim relay, got %+v", msgr.sent)
	}
}
