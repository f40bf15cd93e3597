package rules

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tagwright/internal/constants"
)

// AuditRepository persists the management change trail. Writes are best
// effort from the caller's perspective; a failed audit insert never rolls
// back the rule change it describes.
type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry *AuditLog) error
	ListAuditLogs(ctx context.Context, shopDomain string, limit int) ([]AuditLog, error)
}

type PostgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{db: db}
}

func (r *PostgresAuditRepository) CreateAuditLog(ctx context.Context, entry *AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	oldValue, err := marshalNullableJSON(entry.OldValue)
	if err != nil {
		return fmt.Errorf("failed to marshal old value: %w", err)
	}
	newValue, err := marshalNullableJSON(entry.NewValue)
	if err != nil {
		return fmt.Errorf("failed to marshal new value: %w", err)
	}

	query := `
		INSERT INTO tag_rule_audit (id, shop_domain, rule_id, action, old_value, new_value, changed_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID, entry.ShopDomain, entry.RuleID, entry.Action,
		oldValue, newValue, entry.ChangedBy, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

func (r *PostgresAuditRepository) ListAuditLogs(ctx context.Context, shopDomain string, limit int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = constants.DefaultAuditLimit
	}
	if limit > constants.MaxAuditLimit {
		limit = constants.MaxAuditLimit
	}

	query := `
		SELECT id, shop_domain, rule_id, action, old_value, new_value, changed_by, created_at
		FROM tag_rule_audit
		WHERE shop_domain = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, shopDomain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var result []AuditLog
	for rows.Next() {
		var entry AuditLog
		var oldValue, newValue []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.ShopDomain,
			&entry.RuleID,
			&entry.Action,
			&oldValue,
			&newValue,
			&entry.ChangedBy,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		if len(oldValue) > 0 {
			if err := json.Unmarshal(oldValue, &entry.OldValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal old value: %w", err)
			}
		}
		if len(newValue) > 0 {
			if err := json.Unmarshal(newValue, &entry.NewValue); err != nil {
				return nil, fmt.Errorf("failed to unmarshal new value: %w", err)
			}
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

func marshalNullableJSON(value map[string]interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return body, nil
}
