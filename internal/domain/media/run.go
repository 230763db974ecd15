package media

// RedactRequest untuk Redactor
type RedactRequest struct {
	AssetID   AssetID
	Kind      Kind
	LocalPath string // original media on local disk
	OutputDir string // directory for the redacted artifact
}

// Region is a single detected plate bounding box on one frame.
type Region struct {
	FrameIndex int     `json:"frame"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// RedactResult hasil dari Redactor
type RedactResult struct {
	Counts          DetectionCounts
	Regions         []Region
	LocalOutputPath string
	OutputFormat    string // jpg | avi
	DurationMS      int64
}
