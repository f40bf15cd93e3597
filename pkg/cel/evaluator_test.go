package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePredicate(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	assert.NoError(t, e.ValidatePredicate("price != null && price > 100.0"))
	assert.NoError(t, e.ValidatePredicate(`vendor == "Acme"`))
	assert.NoError(t, e.ValidatePredicate(`"sale" in tags`))

	assert.Error(t, e.ValidatePredicate("price >"))
	assert.Error(t, e.ValidatePredicate(`"not a bool"`))
	assert.Error(t, e.ValidatePredicate("unknown_var > 1"))
}

func TestEvaluatePredicate(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)
	ctx := context.Background()

	vars := map[string]interface{}{
		"price":     150.0,
		"inventory": int64(3),
		"vendor":    "Acme",
		"tags":      []string{"handmade"},
	}

	tests := []struct {
		expr string
		want bool
	}{
		{"price > 100.0", true},
		{"price < 100.0", false},
		{"inventory < 5", true},
		{`vendor == "Acme"`, true},
		{`vendor == "Other"`, false},
		{`"handmade" in tags`, true},
		{`"sale" in tags`, false},
		{`price > 100.0 && inventory < 5 && vendor == "Acme"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := e.EvaluatePredicate(ctx, tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluatePredicate_NullGuards(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	vars := map[string]interface{}{
		"price":     nil,
		"inventory": nil,
		"vendor":    nil,
		"tags":      []string{},
	}

	got, err := e.EvaluatePredicate(context.Background(), "price != null && price > 100.0", vars)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = e.EvaluatePredicate(context.Background(), "vendor == null", vars)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluatePredicate_CompileErrors(t *testing.T) {
	e, err := NewEvaluator()
	require.NoError(t, err)

	_, err = e.EvaluatePredicate(context.Background(), "price >", map[string]interface{}{})
	assert.Error(t, err)
}
