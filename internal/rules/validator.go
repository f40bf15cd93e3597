package rules

import (
	"fmt"
	"strconv"
	"strings"

	"tagwright/pkg/cel"
	apperrors "tagwright/pkg/errors"
)

// Validator rejects rule definitions that could never evaluate cleanly.
// Validation happens once at creation time; the webhook path trusts stored
// rules but still treats anything unparseable there as a non-match.
type Validator struct {
	celEvaluator *cel.Evaluator
}

func NewValidator(celEvaluator *cel.Evaluator) *Validator {
	return &Validator{celEvaluator: celEvaluator}
}

func (v *Validator) ValidateCreateRule(req *CreateRuleRequest) error {
	if !req.Field.Valid() {
		return apperrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("unknown field %q", req.Field))
	}
	if !req.Operator.Valid() {
		return apperrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("unknown operator %q", req.Operator))
	}
	if !req.Field.Allows(req.Operator) {
		return apperrors.ErrValidation.WithDetail("message",
			fmt.Sprintf("operator %q is not valid for field %q", req.Operator, req.Field))
	}

	if strings.TrimSpace(req.Tag) == "" {
		return apperrors.ErrValidation.WithDetail("message", "tag must not be empty")
	}

	switch req.Field {
	case FieldPrice:
		if _, err := strconv.ParseFloat(req.Value, 64); err != nil {
			return apperrors.ErrValidation.WithDetail("message",
				fmt.Sprintf("price rule value %q is not a number", req.Value))
		}
	case FieldInventory:
		if _, err := strconv.ParseInt(req.Value, 10, 64); err != nil {
			return apperrors.ErrValidation.WithDetail("message",
				fmt.Sprintf("inventory rule value %q is not an integer", req.Value))
		}
	case FieldVendor:
		if strings.TrimSpace(req.Value) == "" {
			return apperrors.ErrValidation.WithDetail("message", "vendor rule value must not be empty")
		}
	case FieldExpression:
		if v.celEvaluator == nil {
			return apperrors.ErrValidation.WithDetail("message", "expression rules are not enabled")
		}
		if err := v.celEvaluator.ValidatePredicate(req.Value); err != nil {
			return apperrors.ErrValidation.
				WithDetail("message", "invalid rule expression").
				WithCause(err)
		}
	}

	return nil
}
