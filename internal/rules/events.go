package rules

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"tagwright/internal/broker"
	"tagwright/internal/logger"
	"tagwright/pkg/models"
)

// ConfigEventProducer announces rule changes on the config topic so webhook
// workers can drop their cached rules for the shop. Publishing is best
// effort; a short cache TTL bounds staleness when the broker is down.
type ConfigEventProducer struct {
	producer broker.Producer
	topic    string
	logger   logger.Logger
}

func NewConfigEventProducer(producer broker.Producer, topic string, log logger.Logger) *ConfigEventProducer {
	return &ConfigEventProducer{
		producer: producer,
		topic:    topic,
		logger:   log,
	}
}

func (p *ConfigEventProducer) PublishRuleChange(ctx context.Context, shopDomain, ruleID, action, changedBy string) {
	event := models.ConfigUpdateEvent{
		EventType:  models.EventTypeTagRuleUpdated,
		ShopDomain: shopDomain,
		RuleID:     ruleID,
		Action:     action,
		Timestamp:  time.Now(),
		ChangedBy:  changedBy,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to marshal config event",
			"error", err,
			"shop", shopDomain,
		)
		return
	}

	envelope := models.WebhookEnvelope{
		ID:         uuid.New().String(),
		ShopDomain: shopDomain,
		Topic:      models.EventTypeTagRuleUpdated,
		Timestamp:  event.Timestamp,
		Payload:    payload,
	}

	if err := p.producer.Publish(ctx, p.topic, envelope); err != nil {
		p.logger.ErrorwCtx(ctx, "Failed to publish config event",
			"error", err,
			"shop", shopDomain,
			"rule_id", ruleID,
		)
	}
}

// RuleCacheInvalidator consumes config events and evicts the cached rule list
// for the affected shop.
type RuleCacheInvalidator struct {
	cache  *CachedStore
	logger logger.Logger
}

func NewRuleCacheInvalidator(cache *CachedStore, log logger.Logger) *RuleCacheInvalidator {
	return &RuleCacheInvalidator{cache: cache, logger: log}
}

func (i *RuleCacheInvalidator) Handle(ctx context.Context, msg models.WebhookEnvelope) error {
	var event models.ConfigUpdateEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		i.logger.WarnwCtx(ctx, "Skipping malformed config event",
			"error", err,
			"webhook_id", msg.ID,
		)
		return nil
	}

	if event.EventType != models.EventTypeTagRuleUpdated || event.ShopDomain == "" {
		return nil
	}

	i.cache.Invalidate(ctx, event.ShopDomain)
	i.logger.InfowCtx(ctx, "Invalidated cached rules",
		"shop", event.ShopDomain,
		"rule_id", event.RuleID,
		"action", event.Action,
	)

	return nil
}
