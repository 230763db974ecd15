package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

type MediaRepository struct{ db *sql.DB }

func NewMediaRepository(db *sql.DB) *MediaRepository { return &MediaRepository{db: db} }

const assetColumns = `id, tenant_id, uploaded_at, kind, file_name, content_type, size_bytes,
       engine, status, frames, regions, max_confidence,
       original_key, original_url, output_key, output_url, report_key, report_url,
       duration_ms, error_msg`

// Save insert/update Asset record
func (r *MediaRepository) Save(ctx context.Context, a *domain.Asset) error {
	const q = `
INSERT INTO media_assets
(id, tenant_id, uploaded_at, kind, file_name, content_type, size_bytes,
 engine, status, frames, regions, max_confidence,
 original_key, original_url, output_key, output_url, report_key, report_url,
 duration_ms, error_msg)
VALUES ($1,$2,$3,$4,$5,$6,$7,
        $8,$9,$10,$11,$12,
        $13,$14,$15,$16,$17,$18,
        $19,$20)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 frames = EXCLUDED.frames,
 regions = EXCLUDED.regions,
 max_confidence = EXCLUDED.max_confidence,
 output_key = EXCLUDED.output_key,
 output_url = EXCLUDED.output_url,
 report_key = EXCLUDED.report_key,
 report_url = EXCLUDED.report_url,
 duration_ms = EXCLUDED.duration_ms,
 error_msg = EXCLUDED.error_msg;`

	tenant := stringOrDash(a.TenantID)
	kind := stringOrDash(string(a.Kind))
	status := stringOrDash(string(a.Status))
	uploaded := a.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, tenant, uploaded, kind, a.FileName, a.ContentType, a.SizeBytes,
		a.Engine, status, a.Counts.Frames, a.Counts.Regions, a.Counts.MaxConfidence,
		a.OriginalKey, a.OriginalURL, a.OutputKey, a.OutputURL, a.ReportKey, a.ReportURL,
		a.DurationMS, a.Error,
	)
	return err
}

func scanAsset(row interface{ Scan(...any) error }) (*domain.Asset, error) {
	var a domain.Asset
	var frames, regions int
	var maxConf float64
	if err := row.Scan(
		&a.ID, &a.TenantID, &a.UploadedAt, &a.Kind, &a.FileName, &a.ContentType, &a.SizeBytes,
		&a.Engine, &a.Status, &frames, &regions, &maxConf,
		&a.OriginalKey, &a.OriginalURL, &a.OutputKey, &a.OutputURL, &a.ReportKey, &a.ReportURL,
		&a.DurationMS, &a.Error,
	); err != nil {
		return nil, err
	}
	a.Counts = domain.DetectionCounts{Frames: frames, Regions: regions, MaxConfidence: maxConf}
	return &a, nil
}

// Get by ID + Tenant
func (r *MediaRepository) Get(ctx context.Context, tenant string, id domain.AssetID) (*domain.Asset, error) {
	q := `SELECT ` + assetColumns + `
FROM media_assets
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	return scanAsset(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest assets per tenant
func (r *MediaRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Asset, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + assetColumns + `
FROM media_assets
WHERE tenant_id=$1 ORDER BY uploaded_at DESC
LIMIT $2;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateStatus sets status + error message for one asset
func (r *MediaRepository) UpdateStatus(ctx context.Context, tenant string, id domain.AssetID, status domain.Status, errMsg string) error {
	const q = `
UPDATE media_assets
SET status = $1, error_msg = $2
WHERE tenant_id = $3 AND id = $4;`
	_, err := r.db.ExecContext(ctx, q, status, errMsg, tenant, id)
	return err
}

// Summary counts uploads/redactions since N days
func (r *MediaRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)
	const q = `
SELECT COUNT(*) AS total_assets,
       COALESCE(SUM(CASE WHEN kind = 'photo' THEN 1 ELSE 0 END),0) AS photos,
       COALESCE(SUM(CASE WHEN kind = 'video' THEN 1 ELSE 0 END),0) AS videos,
       COALESCE(SUM(regions),0) AS regions
FROM media_assets
WHERE tenant_id=$1 AND uploaded_at >= $2;`
	var t, p, v, reg int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &p, &v, &reg); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, p, v, reg, nil
}

// Paginate with offset + limit
func (r *MediaRepository) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + assetColumns + `
FROM media_assets
WHERE tenant_id=$1`
	args := []interface{}{tenant}
	query, args = applyAssetFilters(query, args, filters)

	query += fmt.Sprintf("\nORDER BY uploaded_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying assets: %w", err)
	}
	defer rows.Close()

	var assets []*domain.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		assets = append(assets, a)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.Count(ctx, tenant, filters)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedResult{
		Data:       assets,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

// Count returns the total number of records matching the given filters
func (r *MediaRepository) Count(ctx context.Context, tenant string, filters map[string]interface{}) (int64, error) {
	query := "SELECT COUNT(*) FROM media_assets WHERE tenant_id = $1"
	args := []interface{}{tenant}
	query, args = applyAssetFilters(query, args, filters)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func applyAssetFilters(query string, args []interface{}, filters map[string]interface{}) (string, []interface{}) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "kind":
			query += fmt.Sprintf(" AND kind = $%d", len(args)+1)
			args = append(args, value)
		case "status":
			query += fmt.Sprintf(" AND status = $%d", len(args)+1)
			args = append(args, value)
		case "file_name":
			query += fmt.Sprintf(" AND file_name ILIKE $%d", len(args)+1)
			searchTerm, _ := value.(string)
			searchTerm = escapeLikePattern(searchTerm)
			args = append(args, "%"+searchTerm+"%")
		case "engine":
			query += fmt.Sprintf(" AND engine = $%d", len(args)+1)
			args = append(args, value)
		}
	}
	return query, args
}

func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
