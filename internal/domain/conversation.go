// Package domain defines the core types shared across the pesabridge server.
package domain

import "time"

// Conversation is a relay session pairing one customer with the fixed
// feedback endpoint. The (CustomerNumber, FeedbackNumber) pair is the
// natural key; ID is a surrogate assigned on creation.
type Conversation struct {
	ID             string     `json:"id"`
	CustomerNumber string     `json:"customer_number"`
	FeedbackNumber string     `json:"feedback_number"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	PaymentAmount  *float64   `json:"payment_amount,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PendingPayment records an accepted payment initiation so the asynchronous
// gateway callback can be matched back to it by correlation token.
type PendingPayment struct {
	Token          string    `json:"token"`
	CustomerNumber string    `json:"customer_number"`
	Amount         float64   `json:"amount"`
	Completed      bool      `json:"completed"`
	CreatedAt      time.Time `json:"created_at"`
}
