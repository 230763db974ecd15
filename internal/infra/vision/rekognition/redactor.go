package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

// plateRegex keeps text lines that look like a license plate. Loose on
// purpose: false positives only cost an extra filled box.
var plateRegex = regexp.MustCompile(`^[A-Z0-9]{1,3}[- ]?[A-Z0-9]{2,5}([- ][A-Z0-9]{1,3})?$`)

// Redactor detects plate-like text with AWS Rekognition and fills the
// regions. Photos only; Rekognition video analysis is asynchronous and
// out of scope for this engine.
type Redactor struct {
	client *rekognition.Client
	log    *zap.Logger
}

// NewClient builds a Rekognition client with static credentials.
func NewClient(ctx context.Context, region, accessKey, secretKey string) (*rekognition.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return nil, err
	}
	return rekognition.NewFromConfig(cfg), nil
}

func NewRedactor(client *rekognition.Client, log *zap.Logger) *Redactor {
	return &Redactor{client: client, log: log}
}

// Redact implements the media.Redactor port.
func (r *Redactor) Redact(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	if req.Kind != domain.KindPhoto {
		return domain.RedactResult{}, fmt.Errorf("rekognition engine supports photos only, got %s", req.Kind)
	}
	start := time.Now()

	data, err := os.ReadFile(req.LocalPath)
	if err != nil {
		return domain.RedactResult{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.RedactResult{}, fmt.Errorf("could not decode image: %w", err)
	}

	out, err := r.client.DetectText(ctx, &rekognition.DetectTextInput{
		Image: &types.Image{Bytes: data},
	})
	if err != nil {
		return domain.RedactResult{}, fmt.Errorf("rekognition DetectText: %w", err)
	}

	bounds := img.Bounds()
	regions := plateRegions(out.TextDetections, bounds.Dx(), bounds.Dy())

	// fill each region; blur needs OpenCV, fill is the portable transform
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Src)
	for _, reg := range regions {
		rect := image.Rect(reg.X, reg.Y, reg.X+reg.Width, reg.Y+reg.Height).
			Intersect(bounds)
		draw.Draw(dst, rect, image.Black, image.Point{}, draw.Src)
	}

	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	outPath := filepath.Join(req.OutputDir, fmt.Sprintf("redacted-%s%s", req.AssetID, ext))
	f, err := os.Create(outPath)
	if err != nil {
		return domain.RedactResult{}, err
	}
	if format == "png" {
		err = png.Encode(f, dst)
	} else {
		err = jpeg.Encode(f, dst, &jpeg.Options{Quality: 90})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outPath)
		return domain.RedactResult{}, err
	}

	counts := domain.DetectionCounts{Frames: 1, Regions: len(regions)}
	for _, reg := range regions {
		if reg.Confidence > counts.MaxConfidence {
			counts.MaxConfidence = reg.Confidence
		}
	}

	if r.log != nil {
		r.log.Info("rekognition redaction finished",
			zap.String("asset_id", string(req.AssetID)),
			zap.Int("regions", len(regions)))
	}

	return domain.RedactResult{
		Counts:          counts,
		Regions:         regions,
		LocalOutputPath: outPath,
		OutputFormat:    strings.TrimPrefix(ext, "."),
		DurationMS:      time.Since(start).Milliseconds(),
	}, nil
}

// plateRegions converts Rekognition line detections into pixel boxes,
// keeping only plate-looking text.
func plateRegions(dets []types.TextDetection, imgW, imgH int) []domain.Region {
	var out []domain.Region
	for _, td := range dets {
		if td.Type != types.TextTypesLine {
			continue
		}
		if td.DetectedText == nil || td.Geometry == nil || td.Geometry.BoundingBox == nil {
			continue
		}
		txt := strings.ToUpper(strings.TrimSpace(*td.DetectedText))
		if !plateRegex.MatchString(txt) {
			continue
		}
		bb := td.Geometry.BoundingBox
		x := int(aws.ToFloat32(bb.Left) * float32(imgW))
		y := int(aws.ToFloat32(bb.Top) * float32(imgH))
		w := int(aws.ToFloat32(bb.Width) * float32(imgW))
		h := int(aws.ToFloat32(bb.Height) * float32(imgH))
		if w <= 0 || h <= 0 {
			continue
		}
		conf := float64(aws.ToFloat32(td.Confidence)) / 100.0
		out = append(out, domain.Region{
			FrameIndex: 0,
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Confidence: conf,
		})
	}
	return out
}
