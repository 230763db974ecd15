package middleware

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateMediaFileName(t *testing.T) {
	require.NoError(t, ValidateMediaFileName("plate.jpg"))
	require.NoError(t, ValidateMediaFileName("Dashcam Footage.MP4"))

	require.Error(t, ValidateMediaFileName(""))
	require.Error(t, ValidateMediaFileName("   "))
	require.Error(t, ValidateMediaFileName("../../etc/passwd.jpg"))
	require.Error(t, ValidateMediaFileName("a;rm -rf.jpg"))
	require.Error(t, ValidateMediaFileName("report.pdf"))
	require.Error(t, ValidateMediaFileName("noextension"))
}

func TestValidateMediaKind(t *testing.T) {
	require.NoError(t, ValidateMediaKind(""))
	require.NoError(t, ValidateMediaKind("photo"))
	require.NoError(t, ValidateMediaKind("VIDEO"))
	require.Error(t, ValidateMediaKind("audio"))
}

func TestValidateStatus(t *testing.T) {
	require.NoError(t, ValidateStatus(""))
	require.NoError(t, ValidateStatus("pending"))
	require.NoError(t, ValidateStatus("DONE"))
	require.Error(t, ValidateStatus("queued"))
}

func TestValidateTenantID(t *testing.T) {
	require.NoError(t, ValidateTenantID("acme"))
	require.NoError(t, ValidateTenantID("acme_fleet-01"))
	require.Error(t, ValidateTenantID(""))
	require.Error(t, ValidateTenantID("bad tenant"))
	require.Error(t, ValidateTenantID("tenant/../other"))
}

func TestValidateAssetID(t *testing.T) {
	require.NoError(t, ValidateAssetID("a1b2c3d4-e5f6-7890-abcd-ef1234567890-photo"))
	require.NoError(t, ValidateAssetID("a1b2c3d4-e5f6-7890-abcd-ef1234567890-video"))

	require.Error(t, ValidateAssetID(""))
	require.Error(t, ValidateAssetID("a1b2c3d4-e5f6-7890-abcd-ef1234567890"))
	require.Error(t, ValidateAssetID("a1b2c3d4-e5f6-7890-abcd-ef1234567890-audio"))
	require.Error(t, ValidateAssetID("not-an-id-photo"))
}

func TestSanitizeString(t *testing.T) {
	require.Equal(t, "hello", SanitizeString("hello\x00"))
	require.Equal(t, "a b", SanitizeString("  a b  "))
	require.Equal(t, "ab", SanitizeString("a\x01\x02b"))
}

func TestValidateLimit(t *testing.T) {
	require.Equal(t, 20, ValidateLimit(0))
	require.Equal(t, 20, ValidateLimit(-5))
	require.Equal(t, 50, ValidateLimit(50))
	require.Equal(t, 100, ValidateLimit(5000))
}

func TestValidateDays(t *testing.T) {
	require.Equal(t, 7, ValidateDays(0))
	require.Equal(t, 30, ValidateDays(30))
	require.Equal(t, 365, ValidateDays(9999))
}
