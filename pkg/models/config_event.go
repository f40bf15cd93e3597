package models

import "time"

// ConfigUpdateEvent announces a tag-rule change so consumers can drop cached
// rules for the affected shop.
type ConfigUpdateEvent struct {
	EventType  string    `json:"event_type"`
	ShopDomain string    `json:"shop_domain"`
	RuleID     string    `json:"rule_id,omitempty"`
	Action     string    `json:"action"`
	Timestamp  time.Time `json:"timestamp"`
	ChangedBy  string    `json:"changed_by,omitempty"`
}

const EventTypeTagRuleUpdated = "tag_rule_updated"

const (
	ActionCreate = "create"
	ActionToggle = "toggle"
	ActionDelete = "delete"
)
