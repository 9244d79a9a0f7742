package domain

import (
	"strconv"
	"strings"
)

// CommandKind discriminates parsed inbound messages.
type CommandKind string

const (
	// CommandPesaPayment is a "!dm pesa <amount>" payment request.
	CommandPesaPayment CommandKind = "pesa_payment"
	// CommandUnrecognized is anything that is not a known command.
	CommandUnrecognized CommandKind = "unrecognized"
)

// Command is the parsed form of an inbound chat message.
type Command struct {
	Kind   CommandKind
	Amount float64
}

// IsPaymentAttempt reports whether the message starts with the payment
// command tokens, regardless of whether the operand parses. Callers use it
// to decide between a usage-error reply and the non-command branches.
func IsPaymentAttempt(body string) bool {
	fields := strings.Fields(body)
	return len(fields) >= 2 &&
		strings.EqualFold(fields[0], "!dm") &&
		strings.EqualFold(fields[1], "pesa")
}

// ParseCommand tokenizes an inbound message body and classifies it. The
// command tokens are matched case-insensitively; the amount operand has one
// layer of surrounding single or double quotes stripped before parsing.
// A payment attempt with a missing or non-numeric amount returns a
// validation error.
func ParseCommand(body string) (Command, error) {
	if !IsPaymentAttempt(body) {
		return Command{Kind: CommandUnrecognized}, nil
	}

	fields := strings.Fields(body)
	if len(fields) < 3 {
		return Command{}, NewError(ErrValidation, "missing_amount", nil)
	}

	raw := stripQuotes(fields[2])
	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Command{}, NewError(ErrValidation, "non_numeric_amount", err)
	}

	return Command{Kind: CommandPesaPayment, Amount: amount}, nil
}

// stripQuotes removes one layer of surrounding quotes so quoted amounts
// like "250" or '250' still parse.
func stripQuotes(s string) string {
	s = strings.TrimPrefix(strings.TrimSuffix(s, `"`), `"`)
	s = strings.TrimPrefix(strings.TrimSuffix(s, `'`), `'`)
	return s
}
