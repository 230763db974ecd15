package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	domain "github.com/bryanwahyu/plateguard/internal/domain/detections"
)

type DetectionRepository struct{ db *sql.DB }

func NewDetectionRepository(db *sql.DB) *DetectionRepository { return &DetectionRepository{db: db} }

// SaveAll inserts detection rows in one statement
func (r *DetectionRepository) SaveAll(ctx context.Context, ds []*domain.Detection) error {
	if len(ds) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`
INSERT INTO media_detections
  (tenant_id, asset_id, frame_index, x, y, width, height, confidence, created_at)
VALUES `)
	args := make([]interface{}, 0, len(ds)*9)
	for i, d := range ds {
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 9
		sb.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		created := d.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		args = append(args,
			stringOrDash(d.TenantID), stringOrDash(d.AssetID), d.FrameIndex,
			d.X, d.Y, d.Width, d.Height, d.Confidence, created,
		)
	}
	_, err := r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

// ListByAsset returns stored regions ordered by frame
func (r *DetectionRepository) ListByAsset(ctx context.Context, tenant string, assetID string, limit int) ([]*domain.Detection, error) {
	if limit <= 0 {
		limit = 200
	}
	const q = `
SELECT id, tenant_id, asset_id, frame_index, x, y, width, height, confidence, created_at
FROM media_detections
WHERE tenant_id = $1 AND asset_id = $2
ORDER BY frame_index ASC, id ASC
LIMIT $3;`
	rows, err := r.db.QueryContext(ctx, q, tenant, assetID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Detection
	for rows.Next() {
		var d domain.Detection
		var created time.Time
		if err := rows.Scan(&d.ID, &d.TenantID, &d.AssetID, &d.FrameIndex,
			&d.X, &d.Y, &d.Width, &d.Height, &d.Confidence, &created); err != nil {
			return nil, err
		}
		d.CreatedAt = created
		out = append(out, &d)
	}
	return out, rows.Err()
}

// DeleteByAsset clears detections before a retry re-populates them
func (r *DetectionRepository) DeleteByAsset(ctx context.Context, tenant string, assetID string) error {
	const q = `DELETE FROM media_detections WHERE tenant_id = $1 AND asset_id = $2;`
	_, err := r.db.ExecContext(ctx, q, tenant, assetID)
	return err
}
