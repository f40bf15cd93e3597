package tagging

import (
	"context"
	"strconv"
	"strings"

	"tagwright/internal/rules"
	"tagwright/pkg/cel"
)

// Evaluator decides which rule tags apply to a product record. Evaluation is
// total: a disabled rule, an unparseable stored value, or a failing
// expression all count as non-matches, never as errors.
type Evaluator struct {
	expressions *cel.Evaluator
}

func NewEvaluator(expressions *cel.Evaluator) *Evaluator {
	return &Evaluator{expressions: expressions}
}

// Match is one rule that fired against a record.
type Match struct {
	Rule rules.Rule
	Tag  string
}

// Evaluate runs every enabled rule against the record and returns the matches
// in rule order. currentTags is exposed to expression rules only; structured
// rules never read it.
func (e *Evaluator) Evaluate(ctx context.Context, ruleList []rules.Rule, record ProductRecord, currentTags []string) []Match {
	var matches []Match
	for _, rule := range ruleList {
		if !rule.Enabled {
			continue
		}
		if e.matches(ctx, rule, record, currentTags) {
			matches = append(matches, Match{Rule: rule, Tag: rule.Tag})
		}
	}
	return matches
}

func (e *Evaluator) matches(ctx context.Context, rule rules.Rule, record ProductRecord, currentTags []string) bool {
	switch rule.Field {
	case rules.FieldPrice:
		if record.Price == nil {
			return false
		}
		threshold, err := strconv.ParseFloat(rule.Value, 64)
		if err != nil {
			return false
		}
		return compareFloat(*record.Price, rule.Operator, threshold)

	case rules.FieldInventory:
		if record.TotalInventory == nil {
			return false
		}
		threshold, err := strconv.ParseInt(rule.Value, 10, 64)
		if err != nil {
			return false
		}
		return compareInt(*record.TotalInventory, rule.Operator, threshold)

	case rules.FieldVendor:
		if record.Vendor == nil || rule.Operator != rules.OpEquals {
			return false
		}
		// Vendor comparison ignores case and surrounding whitespace on
		// both sides.
		return strings.EqualFold(strings.TrimSpace(*record.Vendor), strings.TrimSpace(rule.Value))

	case rules.FieldExpression:
		if e.expressions == nil {
			return false
		}
		result, err := e.expressions.EvaluatePredicate(ctx, rule.Value, expressionVars(record, currentTags))
		if err != nil {
			return false
		}
		return result
	}

	return false
}

func compareFloat(actual float64, op rules.Operator, threshold float64) bool {
	switch op {
	case rules.OpGreaterThan:
		return actual > threshold
	case rules.OpLessThan:
		return actual < threshold
	case rules.OpEquals:
		return actual == threshold
	}
	return false
}

func compareInt(actual int64, op rules.Operator, threshold int64) bool {
	switch op {
	case rules.OpGreaterThan:
		return actual > threshold
	case rules.OpLessThan:
		return actual < threshold
	case rules.OpEquals:
		return actual == threshold
	}
	return false
}

func expressionVars(record ProductRecord, currentTags []string) map[string]interface{} {
	vars := map[string]interface{}{
		"price":     nil,
		"inventory": nil,
		"vendor":    nil,
		"tags":      currentTags,
	}
	if record.Price != nil {
		vars["price"] = *record.Price
	}
	if record.TotalInventory != nil {
		vars["inventory"] = *record.TotalInventory
	}
	if record.Vendor != nil {
		vars["vendor"] = *record.Vendor
	}
	if currentTags == nil {
		vars["tags"] = []string{}
	}
	return vars
}
