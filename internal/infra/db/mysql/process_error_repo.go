package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	domain "github.com/bryanwahyu/plateguard/internal/domain/mediaerrors"
)

type ProcessErrorRepository struct {
	db *sql.DB
}

func NewProcessErrorRepository(db *sql.DB) *ProcessErrorRepository {
	return &ProcessErrorRepository{db: db}
}

func (r *ProcessErrorRepository) Save(ctx context.Context, e *domain.ProcessError) error {
	const q = `
INSERT INTO media_process_errors
  (tenant_id, asset_id, engine, phase, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?)
`
	tenant := stringOrDash(e.TenantID)
	asset := stringOrDash(e.AssetID)
	engine := stringOrDash(e.Engine)
	phase := stringOrDash(e.Phase)
	msg := e.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	details := e.DetailsJSON
	if strings.TrimSpace(details) == "" {
		details = "{}"
	} else {
		// ensure valid json; if invalid, wrap as string field
		var js any
		if json.Unmarshal([]byte(details), &js) != nil {
			b, _ := json.Marshal(map[string]string{"raw": details})
			details = string(b)
		}
	}
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, tenant, asset, engine, phase, msg, details, created)
	return err
}

func (r *ProcessErrorRepository) ListByAsset(ctx context.Context, tenant string, assetID string, limit int) ([]*domain.ProcessError, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, tenant_id, asset_id, engine, phase, message, details_json, created_at
FROM media_process_errors
WHERE tenant_id = ? AND asset_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.ProcessError
	for rows.Next() {
		var e domain.ProcessError
		var created time.Time
		if err := rows.Scan(&e.ID, &e.TenantID, &e.AssetID, &e.Engine, &e.Phase, &e.Message, &e.DetailsJSON, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = created
		out = append(out, &e)
	}
	return out, rows.Err()
}
