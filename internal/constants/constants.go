package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixRules = "rules:"
)

const (
	DefaultWebhookTopic = "product_webhooks"
	DefaultConfigTopic  = "tagging_config_events"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultAuditLimit = 100
	MaxAuditLimit     = 1000
)

const (
	DefaultRuleCacheTTL = 30 * time.Second
)

// ProductGIDPrefix namespaces numeric webhook product ids into the globally
// unique identifiers the Admin API expects.
const ProductGIDPrefix = "gid://shopify/Product/"
