package mediaerrors

import "time"

// ProcessError represents a persisted processing error entry
type ProcessError struct {
	ID          int64     `json:"id"`
	TenantID    string    `json:"tenant_id"`
	AssetID     string    `json:"asset_id"`
	Engine      string    `json:"engine,omitempty"`
	Phase       string    `json:"phase,omitempty"` // upload | redact | store | retry
	Message     string    `json:"message"`
	DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
	CreatedAt   time.Time `json:"created_at"`
}
