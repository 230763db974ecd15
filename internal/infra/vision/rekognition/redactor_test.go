package rekognition

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

func lineDetection(text string, left, top, width, height, conf float32) types.TextDetection {
	return types.TextDetection{
		DetectedText: aws.String(text),
		Type:         types.TextTypesLine,
		Confidence:   aws.Float32(conf),
		Geometry: &types.Geometry{
			BoundingBox: &types.BoundingBox{
				Left:   aws.Float32(left),
				Top:    aws.Float32(top),
				Width:  aws.Float32(width),
				Height: aws.Float32(height),
			},
		},
	}
}

func TestRedactRejectsVideo(t *testing.T) {
	r := NewRedactor(nil, zap.NewNop())
	_, err := r.Redact(context.Background(), domain.RedactRequest{
		AssetID:   "a1b2c3d4-e5f6-7890-abcd-ef1234567890-video",
		Kind:      domain.KindVideo,
		LocalPath: "clip.mp4",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "photos only")
}

func TestPlateRegionsConvertsBoundingBoxToPixels(t *testing.T) {
	dets := []types.TextDetection{
		lineDetection("B 1234 ABC", 0.1, 0.2, 0.3, 0.05, 97.5),
	}
	regions := plateRegions(dets, 1000, 1000)
	require.Len(t, regions, 1)
	require.Equal(t, 100, regions[0].X)
	require.Equal(t, 200, regions[0].Y)
	require.Equal(t, 300, regions[0].Width)
	require.Equal(t, 50, regions[0].Height)
	require.InDelta(t, 0.975, regions[0].Confidence, 1e-6)
	require.Equal(t, 0, regions[0].FrameIndex)
}

func TestPlateRegionsKeepsPlateLikeLinesOnly(t *testing.T) {
	word := lineDetection("B 1234 ABC", 0.1, 0.1, 0.2, 0.05, 90)
	word.Type = types.TextTypesWord

	noGeometry := types.TextDetection{
		DetectedText: aws.String("B 1234 ABC"),
		Type:         types.TextTypesLine,
		Confidence:   aws.Float32(90),
	}

	dets := []types.TextDetection{
		lineDetection("b 1234 abc", 0.1, 0.1, 0.2, 0.05, 90), // case-folded, kept
		lineDetection("SOME RANDOM STREET SIGN", 0.3, 0.3, 0.4, 0.1, 95),
		lineDetection("B 1234 ABC", 0.5, 0.5, 0, 0.05, 90), // zero width
		word,
		noGeometry,
		{Type: types.TextTypesLine}, // nil text
	}
	regions := plateRegions(dets, 800, 600)
	require.Len(t, regions, 1)
	require.Equal(t, 80, regions[0].X)
	require.Equal(t, 60, regions[0].Y)
}

func TestPlateRegexShapes(t *testing.T) {
	kept := []string{"B 1234 ABC", "AB-123-CD", "XYZ 12", "A1 2345"}
	for _, s := range kept {
		require.True(t, plateRegex.MatchString(s), "expected match: %q", s)
	}
	dropped := []string{"", "PARKING AREA LEVEL 2", "HELLO WORLD", "123456789012345"}
	for _, s := range dropped {
		require.False(t, plateRegex.MatchString(s), "expected no match: %q", s)
	}
}
