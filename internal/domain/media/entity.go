package media

import (
	"time"
)

// ID tipe untuk Asset
type AssetID string

// Kind enum
type Kind string

const (
	KindPhoto Kind = "photo"
	KindVideo Kind = "video"
)

// Status enum
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// Engine enum
type Engine string

const (
	EngineDarknet     Engine = "darknet"
	EngineRekognition Engine = "rekognition"
)

// DetectionCounts value object
type DetectionCounts struct {
	Frames        int     `json:"frames"`
	Regions       int     `json:"regions"`
	MaxConfidence float64 `json:"max_confidence"`
}

// Aggregate Root: Asset
type Asset struct {
	ID          AssetID         `json:"id"`
	TenantID    string          `json:"tenant_id"`
	UploadedAt  time.Time       `json:"uploaded_at"`
	Kind        Kind            `json:"kind"`
	FileName    string          `json:"file_name"`
	ContentType string          `json:"content_type,omitempty"`
	SizeBytes   int64           `json:"size_bytes"`
	Engine      Engine          `json:"engine"`
	Status      Status          `json:"status"`
	Counts      DetectionCounts `json:"counts"`
	OriginalKey string          `json:"original_key,omitempty"`
	OriginalURL string          `json:"original_url,omitempty"`
	OutputKey   string          `json:"output_key,omitempty"`
	OutputURL   string          `json:"output_url,omitempty"`
	ReportKey   string          `json:"report_key,omitempty"`
	ReportURL   string          `json:"report_url,omitempty"`
	DurationMS  int64           `json:"duration_ms"`
	Error       string          `json:"error,omitempty"`
}

// KindFromExt maps a lowercase file extension (with dot) to a media kind.
// Unknown extensions return an empty Kind.
func KindFromExt(ext string) Kind {
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return KindPhoto
	case ".mp4", ".avi", ".mov", ".mkv":
		return KindVideo
	}
	return ""
}

// Terminal reports whether the status cannot transition further
// (failed assets can still be retried explicitly).
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}
