package products

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tagwright/internal/config"
	"tagwright/internal/constants"
	"tagwright/pkg/circuitbreaker"
	"tagwright/pkg/metrics"
)

// UserError is a business-level rejection from the Admin API. The request was
// delivered and processed; retrying it would fail the same way.
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// Mutator writes product tags. A non-nil error means the mutation may not
// have been applied (transport or server failure); user errors mean it was
// definitively rejected.
type Mutator interface {
	UpdateTags(ctx context.Context, shopDomain, productGID string, tags []string) ([]UserError, error)
}

// AdminClient talks to the commerce platform Admin GraphQL API. One client
// serves all shops; the shop domain selects the endpoint per call.
type AdminClient struct {
	httpClient *http.Client
	breaker    *circuitbreaker.Wrapper
	scheme     string
	apiVersion string
	token      string
}

type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

type productUpdateResponse struct {
	Data struct {
		ProductUpdate struct {
			Product *struct {
				ID string `json:"id"`
			} `json:"product"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"productUpdate"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const productUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id }
    userErrors { field message }
  }
}`

func NewAdminClient(cfg config.AdminAPIConfig, breaker *circuitbreaker.Wrapper) *AdminClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	return &AdminClient{
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		scheme:     scheme,
		apiVersion: cfg.APIVersion,
		token:      cfg.AccessToken,
	}
}

func (c *AdminClient) UpdateTags(ctx context.Context, shopDomain, productGID string, tags []string) ([]UserError, error) {
	start := time.Now()

	userErrors, err := c.doUpdate(ctx, shopDomain, productGID, tags)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case len(userErrors) > 0:
		status = "user_error"
	}
	metrics.TagMutationsTotal.WithLabelValues(status).Inc()
	metrics.ObserveMutationDuration(time.Since(start), status)

	return userErrors, err
}

func (c *AdminClient) doUpdate(ctx context.Context, shopDomain, productGID string, tags []string) ([]UserError, error) {
	body, err := json.Marshal(graphqlRequest{
		Query: productUpdateMutation,
		Variables: map[string]interface{}{
			"input": map[string]interface{}{
				"id":   productGID,
				"tags": tags,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal mutation: %w", err)
	}

	execute := func() (interface{}, error) {
		return c.post(ctx, shopDomain, body)
	}

	var raw interface{}
	if c.breaker != nil {
		raw, err = c.breaker.ExecuteWithContext(ctx, execute)
		c.breaker.RecordRequest(err == nil)
	} else {
		raw, err = execute()
	}
	if err != nil {
		return nil, err
	}

	response := raw.(*productUpdateResponse)
	if len(response.Errors) > 0 {
		return nil, fmt.Errorf("mutation rejected: %s", response.Errors[0].Message)
	}

	return response.Data.ProductUpdate.UserErrors, nil
}

func (c *AdminClient) post(ctx context.Context, shopDomain string, body []byte) (*productUpdateResponse, error) {
	url := fmt.Sprintf("%s://%s/admin/api/%s/graphql.json", c.scheme, shopDomain, c.apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("admin api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("admin api returned status %d", resp.StatusCode)
	}

	var response productUpdateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode admin api response: %w", err)
	}

	return &response, nil
}
