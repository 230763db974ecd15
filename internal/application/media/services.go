package media

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/plateguard/internal/domain/detections"
	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
	"github.com/bryanwahyu/plateguard/internal/domain/mediaerrors"
)

// maxStoredRegions caps detection rows per asset; counts stay exact.
const maxStoredRegions = 500

// ErrNotReady is returned when a download is requested before the
// asset reached status done.
var ErrNotReady = errors.New("asset is not processed yet")

// Service implements use-cases untuk media assets.
// Service is designed to be used concurrently and is thread-safe.
type Service struct {
	Repo       domain.Repository
	Detections detections.Repository
	Errors     mediaerrors.Repository
	Redactor   domain.Redactor
	Artifacts  domain.ArtifactStore
	Notifier   domain.Notifier
	Clock      Clock
	Log        *zap.Logger
	WorkDir    string
	Engine     domain.Engine
}

// Clock abstraction supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

//
// ==== USE CASES ====
//

// Command untuk upload media baru
type IngestCommand struct {
	TenantID    string
	FileName    string
	ContentType string
	Body        io.Reader
}

type ProcessResult struct {
	ID         string                 `json:"id"`
	Status     string                 `json:"status"`
	Counts     domain.DetectionCounts `json:"counts"`
	OutputURL  string                 `json:"output_url"`
	ReportURL  string                 `json:"report_url"`
	DurationMS int64                  `json:"duration_ms"`
}

// Ingest validates the upload, stores the original (locally and in the
// artifact store) and creates the asset in status pending. The returned
// localPath feeds ProcessUntilDone.
func (s *Service) Ingest(ctx context.Context, cmd IngestCommand) (*domain.Asset, string, error) {
	ext := strings.ToLower(filepath.Ext(cmd.FileName))
	kind := domain.KindFromExt(ext)
	if kind == "" {
		return nil, "", fmt.Errorf("unsupported media extension: %q", ext)
	}

	now := s.Clock.Now()
	id := fmt.Sprintf("%s-%s", uuid.New().String(), kind)

	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return nil, "", err
	}
	localPath := filepath.Join(s.WorkDir, fmt.Sprintf("original-%s%s", id, ext))
	f, err := os.Create(localPath)
	if err != nil {
		return nil, "", err
	}
	written, err := io.Copy(f, cmd.Body)
	f.Close()
	if err != nil {
		os.Remove(localPath)
		return nil, "", err
	}
	if written == 0 {
		os.Remove(localPath)
		return nil, "", fmt.Errorf("empty upload")
	}

	key := fmt.Sprintf("%s/original/%s%s", cmd.TenantID, id, ext)
	url, err := s.Artifacts.Upload(ctx, localPath, key)
	if err != nil {
		os.Remove(localPath)
		return nil, "", err
	}

	asset := &domain.Asset{
		ID:          domain.AssetID(id),
		TenantID:    cmd.TenantID,
		UploadedAt:  now,
		Kind:        kind,
		FileName:    filepath.Base(cmd.FileName),
		ContentType: cmd.ContentType,
		SizeBytes:   written,
		Engine:      s.Engine,
		Status:      domain.StatusPending,
		OriginalKey: key,
		OriginalURL: url,
	}
	if err := s.Repo.Save(ctx, asset); err != nil {
		os.Remove(localPath)
		return nil, "", err
	}

	s.notify(asset)
	return asset, localPath, nil
}

// ProcessUntilDone → jalanin redaction dengan context.Background()
// cocok dipanggil dari goroutine di router supaya gak kena context canceled
func (s *Service) ProcessUntilDone(tenant string, id domain.AssetID, localPath string) (ProcessResult, error) {
	return s.Process(context.Background(), tenant, id, localPath)
}

// Process jalankan redactor → upload artifacts → simpan detections + asset.
// localPath must point at the original media on local disk; it is removed
// when processing finishes.
func (s *Service) Process(ctx context.Context, tenant string, id domain.AssetID, localPath string) (ProcessResult, error) {
	defer os.Remove(localPath)

	asset, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return ProcessResult{ID: string(id), Status: string(domain.StatusFailed)}, err
	}

	asset.Status = domain.StatusProcessing
	asset.Error = ""
	if err := s.Repo.UpdateStatus(ctx, tenant, id, domain.StatusProcessing, ""); err != nil {
		return ProcessResult{ID: string(id), Status: string(domain.StatusFailed)}, err
	}
	s.notify(asset)

	res, err := s.Redactor.Redact(ctx, domain.RedactRequest{
		AssetID:   id,
		Kind:      asset.Kind,
		LocalPath: localPath,
		OutputDir: s.WorkDir,
	})
	if err != nil {
		return s.fail(ctx, asset, "redact", err)
	}

	// upload redacted artifact and clean up automatically
	outKey := fmt.Sprintf("%s/redacted/%s", tenant, filepath.Base(res.LocalOutputPath))
	outURL, err := s.Artifacts.UploadAndCleanup(ctx, res.LocalOutputPath, outKey)
	if err != nil {
		os.Remove(res.LocalOutputPath)
		return s.fail(ctx, asset, "store", err)
	}

	// detection report as a JSON artifact next to the output
	reportKey, reportURL, err := s.uploadReport(ctx, tenant, asset, res)
	if err != nil {
		return s.fail(ctx, asset, "store", err)
	}

	if err := s.saveDetections(ctx, tenant, id, res.Regions); err != nil {
		s.Log.Warn("saving detections failed",
			zap.String("asset_id", string(id)), zap.Error(err))
	}

	asset.Status = domain.StatusDone
	asset.Counts = res.Counts
	asset.OutputKey = outKey
	asset.OutputURL = outURL
	asset.ReportKey = reportKey
	asset.ReportURL = reportURL
	asset.DurationMS = res.DurationMS
	if err := s.Repo.Save(ctx, asset); err != nil {
		return ProcessResult{ID: string(id), Status: string(asset.Status)}, err
	}
	s.notify(asset)

	return ProcessResult{
		ID:         string(asset.ID),
		Status:     string(asset.Status),
		Counts:     asset.Counts,
		OutputURL:  asset.OutputURL,
		ReportURL:  asset.ReportURL,
		DurationMS: asset.DurationMS,
	}, nil
}

// Retry: jalankan ulang asset yang sudah ada (biasanya yang status failed).
// The original is pulled back from the artifact store.
func (s *Service) Retry(ctx context.Context, tenant string, id domain.AssetID) (ProcessResult, error) {
	existing, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return ProcessResult{}, err
	}
	if existing == nil {
		return ProcessResult{}, fmt.Errorf("asset not found: %s", id)
	}
	if existing.OriginalKey == "" {
		return ProcessResult{}, fmt.Errorf("asset %s has no stored original", id)
	}

	rc, err := s.Artifacts.Download(ctx, existing.OriginalKey)
	if err != nil {
		return ProcessResult{}, err
	}
	defer rc.Close()

	if err := os.MkdirAll(s.WorkDir, 0o755); err != nil {
		return ProcessResult{}, err
	}
	localPath := filepath.Join(s.WorkDir, fmt.Sprintf("retry-%s", filepath.Base(existing.OriginalKey)))
	f, err := os.Create(localPath)
	if err != nil {
		return ProcessResult{}, err
	}
	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		os.Remove(localPath)
		return ProcessResult{}, err
	}
	f.Close()

	if err := s.Detections.DeleteByAsset(ctx, tenant, string(id)); err != nil {
		s.Log.Warn("clearing previous detections failed",
			zap.String("asset_id", string(id)), zap.Error(err))
	}

	return s.Process(ctx, tenant, id, localPath)
}

// Archive streams a zip of the redacted outputs for the given assets,
// skipping anything that is not done yet.
func (s *Service) Archive(ctx context.Context, tenant string, ids []string, w io.Writer) (int, error) {
	zw := zip.NewWriter(w)
	added := 0
	for _, raw := range ids {
		id := domain.AssetID(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		asset, err := s.Repo.Get(ctx, tenant, id)
		if err != nil || asset == nil {
			continue
		}
		if asset.Status != domain.StatusDone || asset.OutputKey == "" {
			continue
		}
		rc, err := s.Artifacts.Download(ctx, asset.OutputKey)
		if err != nil {
			s.Log.Warn("archive: download failed",
				zap.String("asset_id", string(id)), zap.Error(err))
			continue
		}
		entry, err := zw.Create(filepath.Base(asset.OutputKey))
		if err != nil {
			rc.Close()
			zw.Close()
			return added, err
		}
		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			zw.Close()
			return added, err
		}
		rc.Close()
		added++
	}
	if err := zw.Close(); err != nil {
		return added, err
	}
	if added == 0 {
		return 0, fmt.Errorf("no redacted outputs for the requested assets")
	}
	return added, nil
}

// OpenOutput streams the redacted artifact for a done asset.
func (s *Service) OpenOutput(ctx context.Context, tenant string, id domain.AssetID) (io.ReadCloser, *domain.Asset, error) {
	asset, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, nil, err
	}
	if asset.Status != domain.StatusDone || asset.OutputKey == "" {
		return nil, asset, ErrNotReady
	}
	rc, err := s.Artifacts.Download(ctx, asset.OutputKey)
	if err != nil {
		return nil, asset, err
	}
	return rc, asset, nil
}

// Latest ambil N asset terakhir
func (s *Service) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Asset, error) {
	return s.Repo.Latest(ctx, tenant, limit)
}

// Get ambil 1 asset by id
func (s *Service) Get(ctx context.Context, tenant string, id domain.AssetID) (*domain.Asset, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// Paginate list assets with optional filters (kind, status, q)
func (s *Service) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	return s.Repo.Paginate(ctx, tenant, page, pageSize, filters)
}

// ListDetections returns stored plate regions for an asset
func (s *Service) ListDetections(ctx context.Context, tenant string, id domain.AssetID, limit int) ([]*detections.Detection, error) {
	return s.Detections.ListByAsset(ctx, tenant, string(id), limit)
}

// Summary rekap hasil processing N hari terakhir
func (s *Service) Summary(ctx context.Context, tenant string, sinceDays int) (map[string]any, error) {
	total, photos, videos, regions, err := s.Repo.Summary(ctx, tenant, sinceDays)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"total_assets":     total,
		"photos":           photos,
		"videos":           videos,
		"redacted_regions": regions,
	}, nil
}

//
// ==== internals ====
//

func (s *Service) fail(ctx context.Context, asset *domain.Asset, phase string, cause error) (ProcessResult, error) {
	_ = s.Repo.UpdateStatus(context.Background(), asset.TenantID, asset.ID, domain.StatusFailed, cause.Error())
	asset.Status = domain.StatusFailed
	asset.Error = cause.Error()
	s.notify(asset)

	if s.Errors != nil {
		details, _ := json.Marshal(map[string]string{"error": cause.Error()})
		_ = s.Errors.Save(context.Background(), &mediaerrors.ProcessError{
			TenantID:    asset.TenantID,
			AssetID:     string(asset.ID),
			Engine:      string(asset.Engine),
			Phase:       phase,
			Message:     cause.Error(),
			DetailsJSON: string(details),
			CreatedAt:   s.Clock.Now(),
		})
	}
	s.Log.Error("processing failed",
		zap.String("tenant", asset.TenantID),
		zap.String("asset_id", string(asset.ID)),
		zap.String("phase", phase),
		zap.Error(cause))
	return ProcessResult{ID: string(asset.ID), Status: string(domain.StatusFailed)}, cause
}

func (s *Service) uploadReport(ctx context.Context, tenant string, asset *domain.Asset, res domain.RedactResult) (string, string, error) {
	report := map[string]any{
		"asset_id":  asset.ID,
		"kind":      asset.Kind,
		"file_name": asset.FileName,
		"counts":    res.Counts,
		"regions":   res.Regions,
	}
	data, err := json.Marshal(report)
	if err != nil {
		return "", "", err
	}
	local := filepath.Join(s.WorkDir, fmt.Sprintf("report-%s.json", asset.ID))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", "", err
	}
	key := fmt.Sprintf("%s/reports/%s.json", tenant, asset.ID)
	url, err := s.Artifacts.UploadAndCleanup(ctx, local, key)
	if err != nil {
		os.Remove(local)
		return "", "", err
	}
	return key, url, nil
}

func (s *Service) saveDetections(ctx context.Context, tenant string, id domain.AssetID, regions []domain.Region) error {
	if len(regions) == 0 {
		return nil
	}
	if len(regions) > maxStoredRegions {
		regions = regions[:maxStoredRegions]
	}
	now := s.Clock.Now()
	rows := make([]*detections.Detection, 0, len(regions))
	for _, reg := range regions {
		rows = append(rows, &detections.Detection{
			TenantID:   tenant,
			AssetID:    string(id),
			FrameIndex: reg.FrameIndex,
			X:          reg.X,
			Y:          reg.Y,
			Width:      reg.Width,
			Height:     reg.Height,
			Confidence: reg.Confidence,
			CreatedAt:  now,
		})
	}
	return s.Detections.SaveAll(ctx, rows)
}

func (s *Service) notify(asset *domain.Asset) {
	if s.Notifier == nil {
		return
	}
	s.Notifier.Publish(domain.StatusEvent{
		TenantID: asset.TenantID,
		AssetID:  asset.ID,
		Status:   asset.Status,
		At:       s.Clock.Now(),
	})
}
