package rules

import (
	"context"
	"errors"

	"tagwright/internal/logger"
	pkgerrors "tagwright/pkg/errors"
	"tagwright/pkg/models"
)

// Service is the management surface for a shop's tag rules.
type Service interface {
	ListRules(ctx context.Context, shopDomain string) ([]Rule, error)
	GetRule(ctx context.Context, shopDomain, id string) (*Rule, error)
	CreateRule(ctx context.Context, shopDomain string, req CreateRuleRequest) (*Rule, error)
	ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) (*Rule, error)
	DeleteRule(ctx context.Context, shopDomain, id string) error
	ListAuditLogs(ctx context.Context, shopDomain string, limit int) ([]AuditLog, error)
}

type service struct {
	store               Store
	validator           *Validator
	auditRepo           AuditRepository
	configEventProducer *ConfigEventProducer
	logger              logger.Logger
}

type ServiceOption func(*service)

func WithAudit(auditRepo AuditRepository) ServiceOption {
	return func(s *service) {
		s.auditRepo = auditRepo
	}
}

func WithConfigEvents(producer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = producer
	}
}

func NewService(store Store, validator *Validator, log logger.Logger, opts ...ServiceOption) Service {
	s := &service{
		store:     store,
		validator: validator,
		logger:    log,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) ListRules(ctx context.Context, shopDomain string) ([]Rule, error) {
	result, err := s.store.ListRules(ctx, shopDomain)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return result, nil
}

func (s *service) GetRule(ctx context.Context, shopDomain, id string) (*Rule, error) {
	rule, err := s.store.GetRule(ctx, shopDomain, id)
	if errors.Is(err, ErrRuleNotFound) {
		return nil, pkgerrors.ErrNotFound.WithDetail("rule_id", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rule, nil
}

func (s *service) CreateRule(ctx context.Context, shopDomain string, req CreateRuleRequest) (*Rule, error) {
	if err := s.validator.ValidateCreateRule(&req); err != nil {
		return nil, err
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	// Expression rules ignore the operator; normalize so storage is uniform.
	operator := req.Operator
	if req.Field == FieldExpression {
		operator = OpEquals
	}

	rule := &Rule{
		ShopDomain: shopDomain,
		Field:      req.Field,
		Operator:   operator,
		Value:      req.Value,
		Tag:        req.Tag,
		Enabled:    enabled,
	}

	if err := s.store.CreateRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.audit(ctx, shopDomain, rule.ID, models.ActionCreate, nil, ruleSnapshot(rule))
	s.publishConfigEvent(ctx, shopDomain, rule.ID, models.ActionCreate)

	return rule, nil
}

func (s *service) ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) (*Rule, error) {
	before, err := s.store.GetRule(ctx, shopDomain, id)
	if errors.Is(err, ErrRuleNotFound) {
		return nil, pkgerrors.ErrNotFound.WithDetail("rule_id", id)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if err := s.store.ToggleRule(ctx, shopDomain, id, enabled); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return nil, pkgerrors.ErrNotFound.WithDetail("rule_id", id)
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	after, err := s.store.GetRule(ctx, shopDomain, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.audit(ctx, shopDomain, id, models.ActionToggle, ruleSnapshot(before), ruleSnapshot(after))
	s.publishConfigEvent(ctx, shopDomain, id, models.ActionToggle)

	return after, nil
}

func (s *service) DeleteRule(ctx context.Context, shopDomain, id string) error {
	before, err := s.store.GetRule(ctx, shopDomain, id)
	if errors.Is(err, ErrRuleNotFound) {
		return pkgerrors.ErrNotFound.WithDetail("rule_id", id)
	}
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if err := s.store.DeleteRule(ctx, shopDomain, id); err != nil {
		if errors.Is(err, ErrRuleNotFound) {
			return pkgerrors.ErrNotFound.WithDetail("rule_id", id)
		}
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.audit(ctx, shopDomain, id, models.ActionDelete, ruleSnapshot(before), nil)
	s.publishConfigEvent(ctx, shopDomain, id, models.ActionDelete)

	return nil
}

func (s *service) ListAuditLogs(ctx context.Context, shopDomain string, limit int) ([]AuditLog, error) {
	if s.auditRepo == nil {
		return nil, nil
	}
	result, err := s.auditRepo.ListAuditLogs(ctx, shopDomain, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return result, nil
}

func (s *service) audit(ctx context.Context, shopDomain, ruleID, action string, oldValue, newValue map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}

	entry := &AuditLog{
		ShopDomain: shopDomain,
		RuleID:     &ruleID,
		Action:     action,
		OldValue:   oldValue,
		NewValue:   newValue,
		ChangedBy:  "management-api",
	}

	if err := s.auditRepo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to write audit log",
			"error", err,
			"shop", shopDomain,
			"rule_id", ruleID,
			"action", action,
		)
	}
}

func (s *service) publishConfigEvent(ctx context.Context, shopDomain, ruleID, action string) {
	if s.configEventProducer == nil {
		return
	}
	s.configEventProducer.PublishRuleChange(ctx, shopDomain, ruleID, action, "management-api")
}

func ruleSnapshot(rule *Rule) map[string]interface{} {
	if rule == nil {
		return nil
	}
	return map[string]interface{}{
		"field":    string(rule.Field),
		"operator": string(rule.Operator),
		"value":    rule.Value,
		"tag":      rule.Tag,
		"enabled":  rule.Enabled,
	}
}
