package detections

import (
	"context"
)

// Repository defines persistence for plate detections
type Repository interface {
	SaveAll(ctx context.Context, ds []*Detection) error
	ListByAsset(ctx context.Context, tenant string, assetID string, limit int) ([]*Detection, error)
	DeleteByAsset(ctx context.Context, tenant string, assetID string) error
}
