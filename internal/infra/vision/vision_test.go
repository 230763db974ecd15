package vision

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

func TestYoloRect(t *testing.T) {
	// centered box covering half the frame
	r := yoloRect(0.5, 0.5, 0.5, 0.5, 400, 200)
	require.Equal(t, image.Rect(100, 50, 300, 150), r)

	// box hugging the top-left corner may go negative before clamping
	r = yoloRect(0.0, 0.0, 0.2, 0.2, 100, 100)
	require.True(t, r.Min.X < 0)
	require.True(t, r.Min.Y < 0)
}

func TestClampRect(t *testing.T) {
	r := clampRect(image.Rect(-10, -10, 50, 50), 100, 100)
	require.Equal(t, image.Rect(0, 0, 50, 50), r)

	r = clampRect(image.Rect(80, 80, 150, 150), 100, 100)
	require.Equal(t, image.Rect(80, 80, 100, 100), r)

	// fully outside → empty
	r = clampRect(image.Rect(200, 200, 300, 300), 100, 100)
	require.True(t, r.Empty())
}

func TestOddKernel(t *testing.T) {
	require.Equal(t, 3, oddKernel(0))
	require.Equal(t, 3, oddKernel(2))
	require.Equal(t, 25, oddKernel(25))
	require.Equal(t, 25, oddKernel(24))
}

func TestCountsFor(t *testing.T) {
	regions := []domain.Region{
		{FrameIndex: 0, Confidence: 0.4},
		{FrameIndex: 1, Confidence: 0.9},
		{FrameIndex: 1, Confidence: 0.1},
	}
	counts := countsFor(42, regions)
	require.Equal(t, 42, counts.Frames)
	require.Equal(t, 3, counts.Regions)
	require.Equal(t, 0.9, counts.MaxConfidence)

	counts = countsFor(1, nil)
	require.Equal(t, 1, counts.Frames)
	require.Zero(t, counts.Regions)
	require.Zero(t, counts.MaxConfidence)
}

func TestArgmax(t *testing.T) {
	i, v := argmax([]float32{0.1, 0.7, 0.3})
	require.Equal(t, 1, i)
	require.Equal(t, float32(0.7), v)

	i, _ = argmax(nil)
	require.Equal(t, -1, i)
}
