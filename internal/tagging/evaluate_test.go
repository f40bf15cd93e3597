package tagging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwright/internal/rules"
	"tagwright/pkg/cel"
)

func newTestEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	celEvaluator, err := cel.NewEvaluator()
	require.NoError(t, err)
	return NewEvaluator(celEvaluator)
}

func rule(field rules.Field, op rules.Operator, value, tag string) rules.Rule {
	return rules.Rule{Field: field, Operator: op, Value: value, Tag: tag, Enabled: true}
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int64) *int64       { return &i }

func TestEvaluate_PriceComparisons(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(150)}

	tests := []struct {
		name    string
		rule    rules.Rule
		matches bool
	}{
		{"gt matches", rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"), true},
		{"gt boundary excluded", rule(rules.FieldPrice, rules.OpGreaterThan, "150", "premium"), false},
		{"lt matches", rule(rules.FieldPrice, rules.OpLessThan, "200", "budget"), true},
		{"lt excluded", rule(rules.FieldPrice, rules.OpLessThan, "150", "budget"), false},
		{"eq matches", rule(rules.FieldPrice, rules.OpEquals, "150", "exact"), true},
		{"eq excluded", rule(rules.FieldPrice, rules.OpEquals, "149.99", "exact"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := e.Evaluate(context.Background(), []rules.Rule{tt.rule}, record, nil)
			if tt.matches {
				require.Len(t, matches, 1)
				assert.Equal(t, tt.rule.Tag, matches[0].Tag)
			} else {
				assert.Empty(t, matches)
			}
		})
	}
}

func TestEvaluate_InventoryComparisons(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{TotalInventory: intPtr(5)}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldInventory, rules.OpLessThan, "10", "low-stock"),
		rule(rules.FieldInventory, rules.OpGreaterThan, "100", "overstocked"),
		rule(rules.FieldInventory, rules.OpEquals, "5", "exactly-five"),
	}, record, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, "low-stock", matches[0].Tag)
	assert.Equal(t, "exactly-five", matches[1].Tag)
}

func TestEvaluate_VendorEquality(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Vendor: strPtr("Acme")}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldVendor, rules.OpEquals, "Acme", "acme-product"),
		rule(rules.FieldVendor, rules.OpEquals, "acme", "acme-lower"),
		rule(rules.FieldVendor, rules.OpEquals, "Globex", "globex-product"),
	}, record, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, "acme-product", matches[0].Tag)
	assert.Equal(t, "acme-lower", matches[1].Tag)
}

func TestEvaluate_VendorIgnoresCaseAndWhitespace(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Vendor: strPtr("Acme ")}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldVendor, rules.OpEquals, "acme", "acme-product"),
		rule(rules.FieldVendor, rules.OpEquals, " ACME ", "acme-upper"),
	}, record, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, "acme-product", matches[0].Tag)
	assert.Equal(t, "acme-upper", matches[1].Tag)
}

func TestEvaluate_AbsentFieldNeverMatches(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "0", "any-price"),
		rule(rules.FieldInventory, rules.OpLessThan, "1000000", "any-stock"),
		rule(rules.FieldVendor, rules.OpEquals, "", "any-vendor"),
	}, record, nil)

	assert.Empty(t, matches)
}

func TestEvaluate_UnparseableStoredValueNeverMatches(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(100), TotalInventory: intPtr(5)}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "not-a-number", "broken"),
		rule(rules.FieldInventory, rules.OpEquals, "5.5", "broken"),
	}, record, nil)

	assert.Empty(t, matches)
}

func TestEvaluate_SkipsDisabledRules(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(150)}

	disabled := rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium")
	disabled.Enabled = false

	matches := e.Evaluate(context.Background(), []rules.Rule{disabled}, record, nil)
	assert.Empty(t, matches)
}

func TestEvaluate_PreservesRuleOrder(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(150), Vendor: strPtr("Acme")}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldVendor, rules.OpEquals, "Acme", "first"),
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "second"),
	}, record, nil)

	require.Len(t, matches, 2)
	assert.Equal(t, "first", matches[0].Tag)
	assert.Equal(t, "second", matches[1].Tag)
}

func TestEvaluate_ExpressionRule(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(150), TotalInventory: intPtr(2)}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldExpression, rules.OpEquals, "price != null && price > 100.0 && inventory < 5", "premium-low-stock"),
	}, record, nil)

	require.Len(t, matches, 1)
	assert.Equal(t, "premium-low-stock", matches[0].Tag)
}

func TestEvaluate_ExpressionSeesCurrentTags(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldExpression, rules.OpEquals, `"handmade" in tags`, "artisan"),
	}, record, []string{"handmade"})

	require.Len(t, matches, 1)
}

func TestEvaluate_BrokenExpressionNeverMatches(t *testing.T) {
	e := newTestEvaluator(t)
	record := ProductRecord{Price: floatPtr(150)}

	matches := e.Evaluate(context.Background(), []rules.Rule{
		rule(rules.FieldExpression, rules.OpEquals, "price >", "broken"),
		rule(rules.FieldExpression, rules.OpEquals, "price > 100.0", "works"),
	}, record, nil)

	require.Len(t, matches, 1)
	assert.Equal(t, "works", matches[0].Tag)
}
