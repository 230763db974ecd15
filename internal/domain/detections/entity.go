package detections

import "time"

// Detection is one persisted plate region for an asset.
// FrameIndex is 0 for photos.
type Detection struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	AssetID    string    `json:"asset_id"`
	FrameIndex int       `json:"frame"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}
