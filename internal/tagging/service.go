package tagging

import (
	"context"
	"errors"
	"time"

	"tagwright/internal/logger"
	"tagwright/internal/products"
	"tagwright/internal/rules"
	"tagwright/pkg/metrics"
	"tagwright/pkg/models"
)

// Service is the webhook-side engine: it turns one product-changed message
// into at most one tag mutation. Every failure past message delivery is
// absorbed so the message is acknowledged; a product that keeps its webhook
// in redelivery forever helps nobody, and the next change re-triggers
// evaluation anyway. Only context cancellation propagates, so in-flight work
// stops cleanly on shutdown.
type Service struct {
	store     rules.Store
	evaluator *Evaluator
	mutator   products.Mutator
	logger    logger.Logger
}

func NewService(store rules.Store, evaluator *Evaluator, mutator products.Mutator, log logger.Logger) *Service {
	return &Service{
		store:     store,
		evaluator: evaluator,
		mutator:   mutator,
		logger:    log,
	}
}

// HandleWebhook implements broker.HandlerFunc for the webhook topic.
func (s *Service) HandleWebhook(ctx context.Context, msg models.WebhookEnvelope) error {
	start := time.Now()
	outcome, err := s.process(ctx, msg)

	metrics.TaggingWebhooksTotal.WithLabelValues(outcome).Inc()
	metrics.ObserveTaggingDuration(time.Since(start), outcome)

	return err
}

func (s *Service) process(ctx context.Context, msg models.WebhookEnvelope) (string, error) {
	if msg.Topic != "" && msg.Topic != models.TopicProductsUpdate {
		s.logger.DebugwCtx(ctx, "Ignoring webhook topic", "topic", msg.Topic)
		return "ignored_topic", nil
	}

	ruleList, err := s.store.ListRules(ctx, msg.ShopDomain)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "canceled", err
		}
		s.logger.WarnwCtx(ctx, "Rule store unavailable, skipping webhook",
			"error", err,
			"shop", msg.ShopDomain,
		)
		return "rules_unavailable", nil
	}

	if !hasEnabledRules(ruleList) {
		return "no_rules", nil
	}

	gid, record, currentTags, err := MapPayload(msg.Payload)
	if err != nil {
		s.logger.WarnwCtx(ctx, "Skipping malformed product payload",
			"error", err,
			"shop", msg.ShopDomain,
		)
		return "malformed", nil
	}

	matches := s.evaluator.Evaluate(ctx, ruleList, record, currentTags)
	if len(matches) == 0 {
		return "no_match", nil
	}

	matchedTags := make([]string, 0, len(matches))
	for _, match := range matches {
		metrics.TaggingRuleMatchesTotal.WithLabelValues(string(match.Rule.Field)).Inc()
		matchedTags = append(matchedTags, match.Tag)
	}

	merged, changed := MergeTags(currentTags, matchedTags)
	if !changed {
		return "no_change", nil
	}

	userErrors, err := s.mutator.UpdateTags(ctx, msg.ShopDomain, gid, merged)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "canceled", err
		}
		s.logger.ErrorwCtx(ctx, "Tag mutation failed",
			"error", err,
			"shop", msg.ShopDomain,
			"product", gid,
			"tags", merged,
		)
		return "mutation_failed", nil
	}

	if len(userErrors) > 0 {
		// The API processed and rejected the request; a retry would be
		// rejected the same way.
		metrics.MutationUserErrorsTotal.Add(float64(len(userErrors)))
		for _, userError := range userErrors {
			s.logger.ErrorwCtx(ctx, "Tag mutation rejected",
				"shop", msg.ShopDomain,
				"product", gid,
				"field", userError.Field,
				"message", userError.Message,
			)
		}
		return "user_error", nil
	}

	s.logger.InfowCtx(ctx, "Applied tags",
		"shop", msg.ShopDomain,
		"product", gid,
		"matched", matchedTags,
		"tag_count", len(merged),
	)

	return "tagged", nil
}

func hasEnabledRules(ruleList []rules.Rule) bool {
	for _, rule := range ruleList {
		if rule.Enabled {
			return true
		}
	}
	return false
}
