package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

type MediaRepository struct {
	db *sql.DB
}

func NewMediaRepository(db *sql.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

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
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 frames=VALUES(frames), regions=VALUES(regions), max_confidence=VALUES(max_confidence),
 output_key=VALUES(output_key), output_url=VALUES(output_url),
 report_key=VALUES(report_key), report_url=VALUES(report_url),
 duration_ms=VALUES(duration_ms), error_msg=VALUES(error_msg);
`
	// Ensure non-nullable string fields have safe defaults
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
WHERE tenant_id=? AND id=? LIMIT 1;`
	return scanAsset(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest assets per tenant
func (r *MediaRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Asset, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + assetColumns + `
FROM media_assets
WHERE tenant_id=? ORDER BY uploaded_at DESC LIMIT ?;`
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

// UpdateStatus sets the status (and error message) for one asset
func (r *MediaRepository) UpdateStatus(ctx context.Context, tenant string, id domain.AssetID, status domain.Status, errMsg string) error {
	const q = `
UPDATE media_assets
SET status = ?, error_msg = ?
WHERE tenant_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, errMsg, tenant, id)
	return err
}

// Summary counts uploads/redactions since N days:
// total assets, photos, videos, redacted regions.
func (r *MediaRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_assets,
       COALESCE(SUM(kind = 'photo'),0) AS photos,
       COALESCE(SUM(kind = 'video'),0) AS videos,
       COALESCE(SUM(regions),0)        AS regions
FROM media_assets
WHERE tenant_id=? AND uploaded_at >= ?;
`
	var t, p, v, reg int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &p, &v, &reg); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, p, v, reg, nil
}

// Paginate with offset + limit (classic pagination)
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
WHERE tenant_id=?`

	args := []interface{}{tenant}
	query, args = applyAssetFilters(query, args, filters)

	query += "\nORDER BY uploaded_at DESC LIMIT ? OFFSET ?"
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
	query := "SELECT COUNT(*) FROM media_assets WHERE tenant_id = ?"
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
			query += " AND kind = ?"
			args = append(args, value)
		case "status":
			query += " AND status = ?"
			args = append(args, value)
		case "file_name":
			// Use LIKE with wildcards - escape to prevent SQL injection
			query += " AND file_name LIKE ?"
			searchTerm, _ := value.(string)
			searchTerm = escapeLikePattern(searchTerm)
			args = append(args, "%"+searchTerm+"%")
		case "engine":
			query += " AND engine = ?"
			args = append(args, value)
		}
	}
	return query, args
}
