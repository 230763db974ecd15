package mediaerrors

import (
	"context"
)

// Repository defines persistence for processing errors
type Repository interface {
	Save(ctx context.Context, e *ProcessError) error
	ListByAsset(ctx context.Context, tenant string, assetID string, limit int) ([]*ProcessError, error)
}
