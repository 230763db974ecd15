package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
}

// ValidateMediaFileName checks the upload name has a supported extension
// and carries no traversal/shell junk
func ValidateMediaFileName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}

	dangerous := []string{"../", "..", "$(", "`", "&", "|", ";", "\n", "\r", "\x00"}
	for _, d := range dangerous {
		if strings.Contains(name, d) {
			return fmt.Errorf("invalid characters in file name")
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return fmt.Errorf("unsupported media extension: %s (allowed: jpg, jpeg, png, mp4, avi, mov, mkv)", ext)
	}
	return nil
}

// ValidateMediaKind checks an optional kind filter value
func ValidateMediaKind(kind string) error {
	if kind == "" {
		return nil // Optional field
	}
	switch strings.ToLower(kind) {
	case "photo", "video":
		return nil
	}
	return fmt.Errorf("invalid media kind: %s (allowed: photo, video)", kind)
}

// ValidateStatus checks an optional status filter value
func ValidateStatus(status string) error {
	if status == "" {
		return nil // Optional field
	}
	switch strings.ToLower(status) {
	case "pending", "processing", "done", "failed":
		return nil
	}
	return fmt.Errorf("invalid status: %s (allowed: pending, processing, done, failed)", status)
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}

	// Allow alphanumeric, dash, underscore (max 64 chars)
	pattern := `^[a-zA-Z0-9_-]{1,64}$`
	matched, _ := regexp.MatchString(pattern, tenant)
	if !matched {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}

	return nil
}

// ValidateAssetID validates asset ID format
func ValidateAssetID(assetID string) error {
	if assetID == "" {
		return fmt.Errorf("asset ID cannot be empty")
	}

	// UUID pattern with kind suffix: uuid-photo / uuid-video
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}-(photo|video)$`
	matched, _ := regexp.MatchString(pattern, assetID)
	if !matched {
		return fmt.Errorf("invalid asset ID format")
	}

	return nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates days parameter
func ValidateDays(days int) int {
	if days <= 0 {
		return 7 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
