package rules

import "time"

// Field names the product attribute a rule conditions on.
type Field string

const (
	FieldPrice     Field = "price"
	FieldInventory Field = "inventory"
	FieldVendor    Field = "vendor"
	// FieldExpression rules carry a CEL predicate in Value instead of a
	// field/operator comparison.
	FieldExpression Field = "expression"
)

// Operator is the comparison applied between the record field and the rule
// value.
type Operator string

const (
	OpGreaterThan Operator = "gt"
	OpLessThan    Operator = "lt"
	OpEquals      Operator = "eq"
)

func (f Field) Valid() bool {
	switch f {
	case FieldPrice, FieldInventory, FieldVendor, FieldExpression:
		return true
	}
	return false
}

func (o Operator) Valid() bool {
	switch o {
	case OpGreaterThan, OpLessThan, OpEquals:
		return true
	}
	return false
}

// Allows reports whether the operator is meaningful for the field. Numeric
// fields support all three comparisons; vendor only supports equality;
// expression rules ignore the operator and are stored with eq.
func (f Field) Allows(o Operator) bool {
	switch f {
	case FieldPrice, FieldInventory:
		return o.Valid()
	case FieldVendor, FieldExpression:
		return o == OpEquals
	}
	return false
}

// Rule is a shop-scoped tagging condition. Field, Operator, Value and Tag are
// immutable after creation; only Enabled changes.
type Rule struct {
	ID         string    `json:"id" db:"id"`
	ShopDomain string    `json:"shop_domain" db:"shop_domain"`
	Field      Field     `json:"field" db:"field"`
	Operator   Operator  `json:"operator" db:"operator"`
	Value      string    `json:"value" db:"value"`
	Tag        string    `json:"tag" db:"tag"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type CreateRuleRequest struct {
	Field    Field    `json:"field" binding:"required"`
	Operator Operator `json:"operator" binding:"required"`
	Value    string   `json:"value" binding:"required"`
	Tag      string   `json:"tag" binding:"required"`
	Enabled  *bool    `json:"enabled"`
}

type ToggleRuleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// AuditLog records one management mutation against a shop's rules.
type AuditLog struct {
	ID         string                 `json:"id" db:"id"`
	ShopDomain string                 `json:"shop_domain" db:"shop_domain"`
	RuleID     *string                `json:"rule_id,omitempty" db:"rule_id"`
	Action     string                 `json:"action" db:"action"`
	OldValue   map[string]interface{} `json:"old_value,omitempty" db:"old_value"`
	NewValue   map[string]interface{} `json:"new_value,omitempty" db:"new_value"`
	ChangedBy  string                 `json:"changed_by" db:"changed_by"`
	CreatedAt  time.Time              `json:"created_at" db:"created_at"`
}
