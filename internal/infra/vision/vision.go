package vision

import (
	"image"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

// Config for the darknet engine. Defaults mirror the YOLO model this
// service was trained against (tiny confidence threshold, aggressive NMS).
type Config struct {
	ConfigPath   string
	WeightsPath  string
	Confidence   float64
	NMSThreshold float64
	InputSize    int
	BlurKernel   int
}

// yoloRect converts a YOLO center-format box (normalized 0..1) into a
// pixel rectangle on a frame of the given size.
func yoloRect(cx, cy, w, h float32, frameW, frameH int) image.Rectangle {
	fw := float32(frameW)
	fh := float32(frameH)
	width := w * fw
	height := h * fh
	x := int(cx*fw - width/2)
	y := int(cy*fh - height/2)
	return image.Rect(x, y, x+int(width), y+int(height))
}

// clampRect intersects the box with the frame bounds.
func clampRect(r image.Rectangle, frameW, frameH int) image.Rectangle {
	return r.Intersect(image.Rect(0, 0, frameW, frameH))
}

// oddKernel forces a valid Gaussian kernel size: odd, at least 3.
func oddKernel(k int) int {
	if k < 3 {
		return 3
	}
	if k%2 == 0 {
		return k + 1
	}
	return k
}

// countsFor folds per-frame regions into the asset-level counters.
func countsFor(frames int, regions []domain.Region) domain.DetectionCounts {
	counts := domain.DetectionCounts{Frames: frames, Regions: len(regions)}
	for _, r := range regions {
		if r.Confidence > counts.MaxConfidence {
			counts.MaxConfidence = r.Confidence
		}
	}
	return counts
}

// argmax returns the index and value of the largest score.
func argmax(scores []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, v := range scores {
		if best == -1 || v > bestVal {
			best = i
			bestVal = v
		}
	}
	return best, bestVal
}
