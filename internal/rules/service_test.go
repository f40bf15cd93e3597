package rules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwright/internal/logger"
	apperrors "tagwright/pkg/errors"
	"tagwright/pkg/models"
)

type memoryStore struct {
	rules map[string]*Rule
	order []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rules: make(map[string]*Rule)}
}

func (m *memoryStore) ListRules(ctx context.Context, shopDomain string) ([]Rule, error) {
	var result []Rule
	for _, id := range m.order {
		if rule := m.rules[id]; rule != nil && rule.ShopDomain == shopDomain {
			result = append(result, *rule)
		}
	}
	return result, nil
}

func (m *memoryStore) GetRule(ctx context.Context, shopDomain, id string) (*Rule, error) {
	rule, ok := m.rules[id]
	if !ok || rule.ShopDomain != shopDomain {
		return nil, ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (m *memoryStore) CreateRule(ctx context.Context, rule *Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	copied := *rule
	m.rules[rule.ID] = &copied
	m.order = append(m.order, rule.ID)
	return nil
}

func (m *memoryStore) ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) error {
	rule, ok := m.rules[id]
	if !ok || rule.ShopDomain != shopDomain {
		return ErrRuleNotFound
	}
	rule.Enabled = enabled
	rule.UpdatedAt = time.Now()
	return nil
}

func (m *memoryStore) DeleteRule(ctx context.Context, shopDomain, id string) error {
	rule, ok := m.rules[id]
	if !ok || rule.ShopDomain != shopDomain {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

type memoryAudit struct {
	entries []AuditLog
}

func (m *memoryAudit) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryAudit) ListAuditLogs(ctx context.Context, shopDomain string, limit int) ([]AuditLog, error) {
	var result []AuditLog
	for i := len(m.entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.entries[i].ShopDomain == shopDomain {
			result = append(result, m.entries[i])
		}
	}
	return result, nil
}

func newRuleService(t *testing.T, store Store, opts ...ServiceOption) Service {
	t.Helper()
	v := newTestValidator(t)
	return NewService(store, v, logger.NopLogger(), opts...)
}

const testShop = "shop.example.com"

func TestService_CreateRule(t *testing.T) {
	store := newMemoryStore()
	svc := newRuleService(t, store)

	rule, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldPrice,
		Operator: OpGreaterThan,
		Value:    "100",
		Tag:      "premium",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, testShop, rule.ShopDomain)
	assert.True(t, rule.Enabled)
	assert.False(t, rule.CreatedAt.IsZero())
}

func TestService_CreateRule_DisabledOnRequest(t *testing.T) {
	svc := newRuleService(t, newMemoryStore())

	enabled := false
	rule, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldVendor,
		Operator: OpEquals,
		Value:    "Acme",
		Tag:      "acme",
		Enabled:  &enabled,
	})
	require.NoError(t, err)
	assert.False(t, rule.Enabled)
}

func TestService_CreateRule_RejectsInvalid(t *testing.T) {
	svc := newRuleService(t, newMemoryStore())

	_, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldVendor,
		Operator: OpGreaterThan,
		Value:    "Acme",
		Tag:      "acme",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_CreateRule_NormalizesExpressionOperator(t *testing.T) {
	svc := newRuleService(t, newMemoryStore())

	rule, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldExpression,
		Operator: OpEquals,
		Value:    "price != null",
		Tag:      "priced",
	})
	require.NoError(t, err)
	assert.Equal(t, OpEquals, rule.Operator)
}

func TestService_ToggleRule(t *testing.T) {
	store := newMemoryStore()
	svc := newRuleService(t, store)

	created, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldPrice,
		Operator: OpGreaterThan,
		Value:    "100",
		Tag:      "premium",
	})
	require.NoError(t, err)

	toggled, err := svc.ToggleRule(context.Background(), testShop, created.ID, false)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	// Definition fields survive the toggle untouched.
	assert.Equal(t, created.Field, toggled.Field)
	assert.Equal(t, created.Value, toggled.Value)
	assert.Equal(t, created.Tag, toggled.Tag)
}

func TestService_ToggleRule_NotFound(t *testing.T) {
	svc := newRuleService(t, newMemoryStore())

	_, err := svc.ToggleRule(context.Background(), testShop, uuid.New().String(), true)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_ToggleRule_WrongShop(t *testing.T) {
	store := newMemoryStore()
	svc := newRuleService(t, store)

	created, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldPrice,
		Operator: OpGreaterThan,
		Value:    "100",
		Tag:      "premium",
	})
	require.NoError(t, err)

	_, err = svc.ToggleRule(context.Background(), "other.example.com", created.ID, false)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_DeleteRule(t *testing.T) {
	store := newMemoryStore()
	svc := newRuleService(t, store)

	created, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldPrice,
		Operator: OpGreaterThan,
		Value:    "100",
		Tag:      "premium",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(context.Background(), testShop, created.ID))

	_, err = svc.GetRule(context.Background(), testShop, created.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestService_AuditTrail(t *testing.T) {
	store := newMemoryStore()
	audit := &memoryAudit{}
	svc := newRuleService(t, store, WithAudit(audit))

	created, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field:    FieldPrice,
		Operator: OpGreaterThan,
		Value:    "100",
		Tag:      "premium",
	})
	require.NoError(t, err)

	_, err = svc.ToggleRule(context.Background(), testShop, created.ID, false)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteRule(context.Background(), testShop, created.ID))

	require.Len(t, audit.entries, 3)
	assert.Equal(t, models.ActionCreate, audit.entries[0].Action)
	assert.Equal(t, models.ActionToggle, audit.entries[1].Action)
	assert.Equal(t, models.ActionDelete, audit.entries[2].Action)

	assert.Nil(t, audit.entries[0].OldValue)
	assert.Equal(t, true, audit.entries[1].OldValue["enabled"])
	assert.Equal(t, false, audit.entries[1].NewValue["enabled"])
	assert.Nil(t, audit.entries[2].NewValue)
}

func TestService_ListRules_IncludesDisabled(t *testing.T) {
	store := newMemoryStore()
	svc := newRuleService(t, store)

	first, err := svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field: FieldPrice, Operator: OpGreaterThan, Value: "100", Tag: "premium",
	})
	require.NoError(t, err)
	_, err = svc.ToggleRule(context.Background(), testShop, first.ID, false)
	require.NoError(t, err)

	_, err = svc.CreateRule(context.Background(), testShop, CreateRuleRequest{
		Field: FieldVendor, Operator: OpEquals, Value: "Acme", Tag: "acme",
	})
	require.NoError(t, err)

	listed, err := svc.ListRules(context.Background(), testShop)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.False(t, listed[0].Enabled)
	assert.True(t, listed[1].Enabled)
}
