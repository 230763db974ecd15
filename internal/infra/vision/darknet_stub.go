//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"errors"

	"go.uber.org/zap"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

// DarknetRedactor stub for builds without OpenCV.
type DarknetRedactor struct {
	cfg Config
	log *zap.Logger
}

func NewDarknetRedactor(cfg Config, log *zap.Logger) (*DarknetRedactor, error) {
	return &DarknetRedactor{cfg: cfg, log: log}, nil
}

func (d *DarknetRedactor) Close() error { return nil }

// Redact returns an error when built without the gocv tag.
func (d *DarknetRedactor) Redact(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	_ = ctx
	_ = req
	return domain.RedactResult{}, errors.New("gocv build tag is not enabled")
}
