package models

import (
	"encoding/json"
	"time"
)

// WebhookEnvelope is the wire format for product-changed notifications on the
// broker. Payload is kept raw so consumers decode it into their own types.
type WebhookEnvelope struct {
	ID         string          `json:"id"`
	ShopDomain string          `json:"shop_domain"`
	Topic      string          `json:"topic"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload"`
	Metadata   Metadata        `json:"metadata"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	// Attempt counts redeliveries seen by the producing edge, when known.
	Attempt int `json:"attempt,omitempty"`
}

const TopicProductsUpdate = "products/update"
