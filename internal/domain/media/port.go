package media

import "time"
import "context"
import "io"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, a *Asset) error
	Get(ctx context.Context, tenant string, id AssetID) (*Asset, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*Asset, error)
	Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error)
	UpdateStatus(ctx context.Context, tenant string, id AssetID, status Status, errMsg string) error

	Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (PaginatedResult, error)
}

// Redactor port (interface untuk detection + redaction engine)
type Redactor interface {
	Redact(ctx context.Context, req RedactRequest) (RedactResult, error)
}

// ArtifactStore port (interface untuk penyimpanan media/artefak)
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	UploadAndCleanup(ctx context.Context, localPath, key string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Notifier port: status transitions pushed to connected clients.
type Notifier interface {
	Publish(ev StatusEvent)
}

// StatusEvent is what the Notifier carries.
type StatusEvent struct {
	TenantID string    `json:"tenant_id"`
	AssetID  AssetID   `json:"asset_id"`
	Status   Status    `json:"status"`
	At       time.Time `json:"at"`
}
