package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	cases := []struct {
		name     string
		input    Input
		decision string
	}{
		{"normal amount", Input{Amount: 250, MaxAmount: 150000}, "allow"},
		{"zero amount", Input{Amount: 0, MaxAmount: 150000}, "block"},
		{"negative amount", Input{Amount: -50, MaxAmount: 150000}, "block"},
		{"over cap", Input{Amount: 200000, MaxAmount: 150000}, "block"},
		{"at cap", Input{Amount: 150000, MaxAmount: 150000}, "allow"},
		{"cap disabled", Input{Amount: 200000, MaxAmount: 0}, "allow"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, err := engine.Evaluate(ctx, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.decision, decision)
		})
	}
}
