package tagging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagwright/internal/logger"
	"tagwright/internal/products"
	"tagwright/internal/rules"
	"tagwright/pkg/models"
)

type fakeStore struct {
	rules []rules.Rule
	err   error
	calls int
}

func (f *fakeStore) ListRules(ctx context.Context, shopDomain string) ([]rules.Rule, error) {
	f.calls++
	return f.rules, f.err
}

func (f *fakeStore) GetRule(ctx context.Context, shopDomain, id string) (*rules.Rule, error) {
	return nil, rules.ErrRuleNotFound
}

func (f *fakeStore) CreateRule(ctx context.Context, rule *rules.Rule) error { return nil }

func (f *fakeStore) ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) error {
	return nil
}

func (f *fakeStore) DeleteRule(ctx context.Context, shopDomain, id string) error { return nil }

type mutationCall struct {
	shopDomain string
	productGID string
	tags       []string
}

type fakeMutator struct {
	calls      []mutationCall
	userErrors []products.UserError
	err        error
}

func (f *fakeMutator) UpdateTags(ctx context.Context, shopDomain, productGID string, tags []string) ([]products.UserError, error) {
	f.calls = append(f.calls, mutationCall{shopDomain: shopDomain, productGID: productGID, tags: tags})
	return f.userErrors, f.err
}

func newTestService(t *testing.T, store rules.Store, mutator products.Mutator) *Service {
	t.Helper()
	return NewService(store, newTestEvaluator(t), mutator, logger.NopLogger())
}

func webhook(shop string, payload string) models.WebhookEnvelope {
	return models.WebhookEnvelope{
		ID:         "wh-1",
		ShopDomain: shop,
		Topic:      models.TopicProductsUpdate,
		Payload:    json.RawMessage(payload),
	}
}

func TestHandleWebhook_MatchAppliesTags(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"tags": "handmade",
		"variants": [{"price": "150.00", "inventory_quantity": 1}]
	}`))
	require.NoError(t, err)

	require.Len(t, mutator.calls, 1)
	call := mutator.calls[0]
	assert.Equal(t, "shop.example.com", call.shopDomain)
	assert.Equal(t, "gid://shopify/Product/42", call.productGID)
	assert.Equal(t, []string{"handmade", "premium"}, call.tags)
}

func TestHandleWebhook_MultipleMatchesSingleMutation(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
		rule(rules.FieldInventory, rules.OpLessThan, "5", "low-stock"),
		rule(rules.FieldVendor, rules.OpEquals, "Acme", "acme-product"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"vendor": "Acme",
		"variants": [{"price": "150.00", "inventory_quantity": 2}]
	}`))
	require.NoError(t, err)

	require.Len(t, mutator.calls, 1)
	assert.Equal(t, []string{"premium", "low-stock", "acme-product"}, mutator.calls[0].tags)
}

func TestHandleWebhook_NoRulesSkipsEverything(t *testing.T) {
	store := &fakeStore{}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{"id": 42}`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_OnlyDisabledRulesSkips(t *testing.T) {
	disabled := rule(rules.FieldPrice, rules.OpGreaterThan, "0", "everything")
	disabled.Enabled = false
	store := &fakeStore{rules: []rules.Rule{disabled}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"variants": [{"price": "10.00"}]
	}`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_NoMatchNoMutation(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "1000", "luxury"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"variants": [{"price": "9.99"}]
	}`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_TagAlreadyPresentNoMutation(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"tags": "premium, handmade",
		"variants": [{"price": "150.00"}]
	}`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_MalformedPayloadAcked(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `not json`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_RuleStoreFailureAcked(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{"id": 42}`))
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
}

func TestHandleWebhook_MutationFailureAcked(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{err: errors.New("upstream 502")}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"variants": [{"price": "150.00"}]
	}`))
	require.NoError(t, err)
	require.Len(t, mutator.calls, 1)
}

func TestHandleWebhook_UserErrorsAckedNotRetried(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{userErrors: []products.UserError{
		{Field: []string{"tags"}, Message: "tag is invalid"},
	}}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{
		"id": 42,
		"variants": [{"price": "150.00"}]
	}`))
	require.NoError(t, err)
	require.Len(t, mutator.calls, 1)
}

func TestHandleWebhook_IgnoresOtherTopics(t *testing.T) {
	store := &fakeStore{rules: []rules.Rule{
		rule(rules.FieldPrice, rules.OpGreaterThan, "100", "premium"),
	}}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	msg := webhook("shop.example.com", `{"id": 42, "variants": [{"price": "150.00"}]}`)
	msg.Topic = "orders/create"

	err := svc.HandleWebhook(context.Background(), msg)
	require.NoError(t, err)
	assert.Empty(t, mutator.calls)
	assert.Zero(t, store.calls)
}

func TestHandleWebhook_ContextCancellationPropagates(t *testing.T) {
	store := &fakeStore{err: context.Canceled}
	mutator := &fakeMutator{}
	svc := newTestService(t, store, mutator)

	err := svc.HandleWebhook(context.Background(), webhook("shop.example.com", `{"id": 42}`))
	assert.ErrorIs(t, err, context.Canceled)
}
