//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

// DarknetRedactor runs a YOLO darknet net over photos and videos and
// blurs every kept plate box. gocv.Net is not safe for concurrent
// Forward calls, so jobs serialize on mu.
type DarknetRedactor struct {
	cfg Config
	log *zap.Logger

	mu          sync.Mutex
	net         gocv.Net
	outputNames []string
}

func NewDarknetRedactor(cfg Config, log *zap.Logger) (*DarknetRedactor, error) {
	net := gocv.ReadNetFromDarknet(cfg.ConfigPath, cfg.WeightsPath)
	if net.Empty() {
		return nil, fmt.Errorf("darknet model not loaded (cfg=%s weights=%s)", cfg.ConfigPath, cfg.WeightsPath)
	}

	var names []string
	for _, idx := range net.GetUnconnectedOutLayers() {
		layer := net.GetLayer(idx)
		names = append(names, layer.GetName())
		layer.Close()
	}

	return &DarknetRedactor{cfg: cfg, log: log, net: net, outputNames: names}, nil
}

func (d *DarknetRedactor) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Redact implements the media.Redactor port.
func (d *DarknetRedactor) Redact(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	start := time.Now()

	var (
		res domain.RedactResult
		err error
	)
	switch req.Kind {
	case domain.KindPhoto:
		res, err = d.redactPhoto(ctx, req)
	case domain.KindVideo:
		res, err = d.redactVideo(ctx, req)
	default:
		return domain.RedactResult{}, fmt.Errorf("unsupported media kind: %s", req.Kind)
	}
	if err != nil {
		return domain.RedactResult{}, err
	}

	res.DurationMS = time.Since(start).Milliseconds()
	return res, nil
}

func (d *DarknetRedactor) redactPhoto(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	mat := gocv.IMRead(req.LocalPath, gocv.IMReadColor)
	if mat.Empty() {
		return domain.RedactResult{}, fmt.Errorf("could not decode image: %s", req.LocalPath)
	}
	defer mat.Close()

	regions := d.detectAndBlur(&mat, 0)

	outPath := filepath.Join(req.OutputDir, fmt.Sprintf("redacted-%s.jpg", req.AssetID))
	if ok := gocv.IMWrite(outPath, mat); !ok {
		return domain.RedactResult{}, fmt.Errorf("could not write redacted image: %s", outPath)
	}

	return domain.RedactResult{
		Counts:          countsFor(1, regions),
		Regions:         regions,
		LocalOutputPath: outPath,
		OutputFormat:    "jpg",
	}, nil
}

func (d *DarknetRedactor) redactVideo(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	cap, err := gocv.VideoCaptureFile(req.LocalPath)
	if err != nil {
		return domain.RedactResult{}, fmt.Errorf("could not open video: %w", err)
	}
	defer cap.Close()

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = 30
	}

	outPath := filepath.Join(req.OutputDir, fmt.Sprintf("redacted-%s.avi", req.AssetID))

	frame := gocv.NewMat()
	defer frame.Close()

	var writer *gocv.VideoWriter
	var regions []domain.Region
	frameIdx := 0

	for {
		select {
		case <-ctx.Done():
			if writer != nil {
				writer.Close()
			}
			return domain.RedactResult{}, ctx.Err()
		default:
		}

		if ok := cap.Read(&frame); !ok || frame.Empty() {
			break
		}

		if writer == nil {
			w, werr := gocv.VideoWriterFile(outPath, "MJPG", fps, frame.Cols(), frame.Rows(), true)
			if werr != nil {
				return domain.RedactResult{}, fmt.Errorf("could not open video writer: %w", werr)
			}
			writer = w
		}

		regions = append(regions, d.detectAndBlur(&frame, frameIdx)...)

		if err := writer.Write(frame); err != nil {
			writer.Close()
			return domain.RedactResult{}, fmt.Errorf("writing frame %d: %w", frameIdx, err)
		}
		frameIdx++
	}

	if writer == nil {
		return domain.RedactResult{}, fmt.Errorf("video has no readable frames: %s", req.LocalPath)
	}
	if err := writer.Close(); err != nil {
		return domain.RedactResult{}, err
	}

	return domain.RedactResult{
		Counts:          countsFor(frameIdx, regions),
		Regions:         regions,
		LocalOutputPath: outPath,
		OutputFormat:    "avi",
	}, nil
}

// detectAndBlur runs one forward pass and pastes a blurred copy over
// every kept box, in place.
func (d *DarknetRedactor) detectAndBlur(frame *gocv.Mat, frameIdx int) []domain.Region {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(*frame, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	outputs := d.net.ForwardLayers(d.outputNames)

	var boxes []image.Rectangle
	var confidences []float32
	for _, out := range outputs {
		data, err := out.DataPtrFloat32()
		if err != nil {
			out.Close()
			continue
		}
		cols := out.Cols()
		for r := 0; r < out.Rows(); r++ {
			row := data[r*cols : (r+1)*cols]
			_, conf := argmax(row[5:])
			if float64(conf) > d.cfg.Confidence {
				boxes = append(boxes, yoloRect(row[0], row[1], row[2], row[3], frame.Cols(), frame.Rows()))
				confidences = append(confidences, conf)
			}
		}
		out.Close()
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, float32(d.cfg.Confidence), float32(d.cfg.NMSThreshold))

	k := oddKernel(d.cfg.BlurKernel)
	var kept []domain.Region
	for _, i := range indices {
		rect := clampRect(boxes[i], frame.Cols(), frame.Rows())
		if rect.Empty() {
			continue
		}

		region := frame.Region(rect)
		blurred := gocv.NewMat()
		gocv.GaussianBlur(region, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)
		blurred.CopyTo(&region)
		blurred.Close()
		region.Close()

		kept = append(kept, domain.Region{
			FrameIndex: frameIdx,
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			Width:      rect.Dx(),
			Height:     rect.Dy(),
			Confidence: float64(confidences[i]),
		})
	}

	if len(kept) > 0 && d.log != nil {
		d.log.Debug("plates blurred",
			zap.Int("frame", frameIdx), zap.Int("regions", len(kept)))
	}
	return kept
}
