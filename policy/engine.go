// Package policy evaluates payment requests against a rego policy before any
// gateway call is made.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Engine is the OPA payment policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.payment_policy.decision"),
		rego.Module("payment_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input describes a requested payment for evaluation.
type Input struct {
	Amount      float64 `json:"amount"`
	MaxAmount   float64 `json:"max_amount"`
	PhoneNumber string  `json:"phone_number"`
}

// Evaluate returns the policy decision for a requested payment: "allow" or
// "block". An empty result defaults to allow; the policy is expected to
// define its own default.
func (e *Engine) Evaluate(ctx context.Context, in Input) (string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return "allow", nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return s, nil
	}
	return "allow", nil
}

// DefaultPolicy blocks non-positive amounts and amounts over the configured
// cap.
const DefaultPolicy = `
package payment_policy

default decision = "allow"

decision = "block" {
	input.amount <= 0
}

decision = "block" {
	input.max_amount > 0
	input.amount > input.max_amount
}
`
