package rules

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tagwright/pkg/metrics"
)

// Store is the rule persistence boundary. ListRules returns disabled rules
// too, in creation order; callers that only want active rules filter
// themselves. Every operation that targets a single rule is scoped by both
// shop domain and rule id so no cross-tenant mutation is possible.
type Store interface {
	ListRules(ctx context.Context, shopDomain string) ([]Rule, error)
	GetRule(ctx context.Context, shopDomain, id string) (*Rule, error)
	CreateRule(ctx context.Context, rule *Rule) error
	ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) error
	DeleteRule(ctx context.Context, shopDomain, id string) error
}

var ErrRuleNotFound = errors.New("rule not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrRuleNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	metrics.RuleStoreQueriesTotal.WithLabelValues(operation, status).Inc()
	metrics.RuleStoreQueryDuration.WithLabelValues(operation).Observe(float64(time.Since(start).Milliseconds()))
}

func (s *PostgresStore) ListRules(ctx context.Context, shopDomain string) (result []Rule, err error) {
	start := time.Now()
	defer func() { observeQuery("list", start, err) }()

	query := `
		SELECT id, shop_domain, field, operator, value, tag, enabled, created_at, updated_at
		FROM tag_rules
		WHERE shop_domain = $1
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, shopDomain)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rule Rule
		if err := rows.Scan(
			&rule.ID,
			&rule.ShopDomain,
			&rule.Field,
			&rule.Operator,
			&rule.Value,
			&rule.Tag,
			&rule.Enabled,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		result = append(result, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func (s *PostgresStore) GetRule(ctx context.Context, shopDomain, id string) (_ *Rule, err error) {
	start := time.Now()
	defer func() { observeQuery("get", start, err) }()

	query := `
		SELECT id, shop_domain, field, operator, value, tag, enabled, created_at, updated_at
		FROM tag_rules
		WHERE shop_domain = $1 AND id = $2
	`

	row := s.db.QueryRowContext(ctx, query, shopDomain, id)

	var rule Rule
	err = row.Scan(
		&rule.ID,
		&rule.ShopDomain,
		&rule.Field,
		&rule.Operator,
		&rule.Value,
		&rule.Tag,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

func (s *PostgresStore) CreateRule(ctx context.Context, rule *Rule) (err error) {
	start := time.Now()
	defer func() { observeQuery("create", start, err) }()

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO tag_rules (id, shop_domain, field, operator, value, tag, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = s.db.ExecContext(ctx, query,
		rule.ID, rule.ShopDomain, rule.Field, rule.Operator,
		rule.Value, rule.Tag, rule.Enabled, rule.CreatedAt, rule.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

func (s *PostgresStore) ToggleRule(ctx context.Context, shopDomain, id string, enabled bool) (err error) {
	start := time.Now()
	defer func() { observeQuery("toggle", start, err) }()

	query := `
		UPDATE tag_rules
		SET enabled = $1, updated_at = $2
		WHERE shop_domain = $3 AND id = $4
	`

	res, err := s.db.ExecContext(ctx, query, enabled, time.Now(), shopDomain, id)
	if err != nil {
		return fmt.Errorf("failed to toggle rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (s *PostgresStore) DeleteRule(ctx context.Context, shopDomain, id string) (err error) {
	start := time.Now()
	defer func() { observeQuery("delete", start, err) }()

	query := `DELETE FROM tag_rules WHERE shop_domain = $1 AND id = $2`

	res, err := s.db.ExecContext(ctx, query, shopDomain, id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}

	return nil
}
