package media

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/plateguard/internal/domain/detections"
	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
	"github.com/bryanwahyu/plateguard/internal/domain/mediaerrors"
)

//
// ==== fakes ====
//

type fakeRepo struct {
	assets map[domain.AssetID]*domain.Asset
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{assets: map[domain.AssetID]*domain.Asset{}}
}

func (r *fakeRepo) Save(ctx context.Context, a *domain.Asset) error {
	cp := *a
	r.assets[a.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, tenant string, id domain.AssetID) (*domain.Asset, error) {
	a, ok := r.assets[id]
	if !ok || a.TenantID != tenant {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Asset, error) {
	var out []*domain.Asset
	for _, a := range r.assets {
		if a.TenantID == tenant {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	total, photos, videos, regions := 0, 0, 0, 0
	for _, a := range r.assets {
		if a.TenantID != tenant {
			continue
		}
		total++
		if a.Kind == domain.KindPhoto {
			photos++
		} else {
			videos++
		}
		regions += a.Counts.Regions
	}
	return total, photos, videos, regions, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, tenant string, id domain.AssetID, status domain.Status, errMsg string) error {
	a, ok := r.assets[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.Status = status
	a.Error = errMsg
	return nil
}

func (r *fakeRepo) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]interface{}) (domain.PaginatedResult, error) {
	list, _ := r.Latest(ctx, tenant, 0)
	return domain.PaginatedResult{Data: list, Page: page, PageSize: pageSize, Total: int64(len(list))}, nil
}

type fakeStore struct {
	objects map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (s *fakeStore) Upload(ctx context.Context, localPath, key string) (string, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", err
	}
	s.objects[key] = data
	return "https://store.local/" + key, nil
}

func (s *fakeStore) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := s.Upload(ctx, localPath, key)
	if err != nil {
		return "", err
	}
	os.Remove(localPath)
	return url, nil
}

func (s *fakeStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object not found: %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://store.local/presigned/" + key, nil
}

type fakeRedactor struct {
	regions []domain.Region
	frames  int
	err     error
}

func (f *fakeRedactor) Redact(ctx context.Context, req domain.RedactRequest) (domain.RedactResult, error) {
	if f.err != nil {
		return domain.RedactResult{}, f.err
	}
	out := filepath.Join(req.OutputDir, "redacted-"+string(req.AssetID)+".jpg")
	if err := os.WriteFile(out, []byte("redacted-bytes"), 0o644); err != nil {
		return domain.RedactResult{}, err
	}
	counts := domain.DetectionCounts{Frames: f.frames, Regions: len(f.regions)}
	for _, r := range f.regions {
		if r.Confidence > counts.MaxConfidence {
			counts.MaxConfidence = r.Confidence
		}
	}
	return domain.RedactResult{
		Counts:          counts,
		Regions:         f.regions,
		LocalOutputPath: out,
		OutputFormat:    "jpg",
		DurationMS:      12,
	}, nil
}

type fakeDetections struct {
	rows []*detections.Detection
}

func (f *fakeDetections) SaveAll(ctx context.Context, ds []*detections.Detection) error {
	f.rows = append(f.rows, ds...)
	return nil
}

func (f *fakeDetections) ListByAsset(ctx context.Context, tenant, assetID string, limit int) ([]*detections.Detection, error) {
	var out []*detections.Detection
	for _, d := range f.rows {
		if d.TenantID == tenant && d.AssetID == assetID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDetections) DeleteByAsset(ctx context.Context, tenant, assetID string) error {
	kept := f.rows[:0]
	for _, d := range f.rows {
		if d.AssetID != assetID {
			kept = append(kept, d)
		}
	}
	f.rows = kept
	return nil
}

type fakeErrors struct {
	saved []*mediaerrors.ProcessError
}

func (f *fakeErrors) Save(ctx context.Context, e *mediaerrors.ProcessError) error {
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeErrors) ListByAsset(ctx context.Context, tenant, assetID string, limit int) ([]*mediaerrors.ProcessError, error) {
	return f.saved, nil
}

type fakeNotifier struct {
	events []domain.StatusEvent
}

func (f *fakeNotifier) Publish(ev domain.StatusEvent) { f.events = append(f.events, ev) }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

//
// ==== helpers ====
//

type deps struct {
	repo       *fakeRepo
	store      *fakeStore
	redactor   *fakeRedactor
	detections *fakeDetections
	errs       *fakeErrors
	notifier   *fakeNotifier
}

func newTestService(t *testing.T) (*Service, *deps) {
	t.Helper()
	d := &deps{
		repo:       newFakeRepo(),
		store:      newFakeStore(),
		redactor:   &fakeRedactor{frames: 1},
		detections: &fakeDetections{},
		errs:       &fakeErrors{},
		notifier:   &fakeNotifier{},
	}
	svc := &Service{
		Repo:       d.repo,
		Detections: d.detections,
		Errors:     d.errs,
		Redactor:   d.redactor,
		Artifacts:  d.store,
		Notifier:   d.notifier,
		Clock:      fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Log:        zap.NewNop(),
		WorkDir:    t.TempDir(),
	}
	return svc, d
}

func ingestPhoto(t *testing.T, svc *Service, tenant string) (*domain.Asset, string) {
	t.Helper()
	asset, localPath, err := svc.Ingest(context.Background(), IngestCommand{
		TenantID:    tenant,
		FileName:    "car.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	return asset, localPath
}

//
// ==== tests ====
//

func TestIngestCreatesPendingAsset(t *testing.T) {
	svc, d := newTestService(t)

	asset, localPath, err := svc.Ingest(context.Background(), IngestCommand{
		TenantID:    "acme",
		FileName:    "uploads/car.jpg",
		ContentType: "image/jpeg",
		Body:        strings.NewReader("jpeg-bytes"),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, asset.Status)
	require.Equal(t, domain.KindPhoto, asset.Kind)
	require.Equal(t, "car.jpg", asset.FileName)
	require.Equal(t, int64(len("jpeg-bytes")), asset.SizeBytes)
	require.True(t, strings.HasSuffix(string(asset.ID), "-photo"))
	require.FileExists(t, localPath)

	// original landed in the store under the tenant prefix
	require.Contains(t, asset.OriginalKey, "acme/original/")
	require.Contains(t, d.store.objects, asset.OriginalKey)

	// persisted + announced
	stored, err := d.repo.Get(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, stored.Status)
	require.Len(t, d.notifier.events, 1)
	require.Equal(t, domain.StatusPending, d.notifier.events[0].Status)
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Ingest(context.Background(), IngestCommand{
		TenantID: "acme",
		FileName: "malware.exe",
		Body:     strings.NewReader("data"),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported media extension")
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.Ingest(context.Background(), IngestCommand{
		TenantID: "acme",
		FileName: "car.jpg",
		Body:     strings.NewReader(""),
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty upload")
}

func TestProcessHappyPath(t *testing.T) {
	svc, d := newTestService(t)
	d.redactor.frames = 1
	d.redactor.regions = []domain.Region{
		{FrameIndex: 0, X: 10, Y: 20, Width: 100, Height: 40, Confidence: 0.88},
	}

	asset, localPath := ingestPhoto(t, svc, "acme")
	result, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDone), result.Status)
	require.Equal(t, 1, result.Counts.Regions)
	require.Equal(t, 0.88, result.Counts.MaxConfidence)
	require.NotEmpty(t, result.OutputURL)
	require.NotEmpty(t, result.ReportURL)

	stored, err := d.repo.Get(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, stored.Status)
	require.Contains(t, stored.OutputKey, "acme/redacted/")
	require.Contains(t, stored.ReportKey, "acme/reports/")

	// artifacts stored, temp files cleaned
	require.Contains(t, d.store.objects, stored.OutputKey)
	require.Contains(t, d.store.objects, stored.ReportKey)
	require.NoFileExists(t, localPath)

	// detections persisted
	rows, err := d.detections.ListByAsset(context.Background(), "acme", string(asset.ID), 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 0.88, rows[0].Confidence)

	// pending → processing → done
	statuses := make([]domain.Status, 0, len(d.notifier.events))
	for _, ev := range d.notifier.events {
		statuses = append(statuses, ev.Status)
	}
	require.Equal(t, []domain.Status{
		domain.StatusPending, domain.StatusProcessing, domain.StatusDone,
	}, statuses)
}

func TestProcessZeroDetectionsIsStillDone(t *testing.T) {
	svc, d := newTestService(t)
	d.redactor.frames = 1
	d.redactor.regions = nil

	asset, localPath := ingestPhoto(t, svc, "acme")
	result, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDone), result.Status)
	require.Zero(t, result.Counts.Regions)

	rows, err := d.detections.ListByAsset(context.Background(), "acme", string(asset.ID), 100)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestProcessRedactorFailureMarksFailed(t *testing.T) {
	svc, d := newTestService(t)
	d.redactor.err = errors.New("model file missing")

	asset, localPath := ingestPhoto(t, svc, "acme")
	_, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.Error(t, err)

	stored, err := d.repo.Get(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusFailed, stored.Status)
	require.Contains(t, stored.Error, "model file missing")

	require.Len(t, d.errs.saved, 1)
	require.Equal(t, "redact", d.errs.saved[0].Phase)
	require.Equal(t, string(asset.ID), d.errs.saved[0].AssetID)
}

func TestRetryReprocessesFailedAsset(t *testing.T) {
	svc, d := newTestService(t)
	d.redactor.err = errors.New("boom")

	asset, localPath := ingestPhoto(t, svc, "acme")
	_, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.Error(t, err)

	// engine recovers, retry pulls the original back from the store
	d.redactor.err = nil
	d.redactor.frames = 1
	result, err := svc.Retry(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	require.Equal(t, string(domain.StatusDone), result.Status)

	stored, err := d.repo.Get(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusDone, stored.Status)
}

func TestOpenOutput(t *testing.T) {
	svc, _ := newTestService(t)

	asset, localPath := ingestPhoto(t, svc, "acme")

	// not processed yet → ErrNotReady
	_, _, err := svc.OpenOutput(context.Background(), "acme", asset.ID)
	require.ErrorIs(t, err, ErrNotReady)

	_, err = svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.NoError(t, err)

	rc, stored, err := svc.OpenOutput(context.Background(), "acme", asset.ID)
	require.NoError(t, err)
	defer rc.Close()
	require.Equal(t, domain.StatusDone, stored.Status)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "redacted-bytes", string(data))
}

func TestArchiveStreamsDoneAssetsOnly(t *testing.T) {
	svc, _ := newTestService(t)

	done, localPath := ingestPhoto(t, svc, "acme")
	_, err := svc.Process(context.Background(), "acme", done.ID, localPath)
	require.NoError(t, err)

	pending, _ := ingestPhoto(t, svc, "acme")

	var buf bytes.Buffer
	added, err := svc.Archive(context.Background(), "acme",
		[]string{string(done.ID), string(pending.ID), "missing-id"}, &buf)
	require.NoError(t, err)
	require.Equal(t, 1, added)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
}

func TestArchiveNoOutputsIsAnError(t *testing.T) {
	svc, _ := newTestService(t)
	var buf bytes.Buffer
	_, err := svc.Archive(context.Background(), "acme", []string{"nope"}, &buf)
	require.Error(t, err)
}

func TestSummary(t *testing.T) {
	svc, d := newTestService(t)
	d.redactor.frames = 1
	d.redactor.regions = []domain.Region{{Confidence: 0.5}, {Confidence: 0.6}}

	asset, localPath := ingestPhoto(t, svc, "acme")
	_, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.NoError(t, err)

	summary, err := svc.Summary(context.Background(), "acme", 7)
	require.NoError(t, err)
	require.Equal(t, 1, summary["total_assets"])
	require.Equal(t, 1, summary["photos"])
	require.Equal(t, 0, summary["videos"])
	require.Equal(t, 2, summary["redacted_regions"])
}

func TestSaveDetectionsCapsStoredRows(t *testing.T) {
	svc, d := newTestService(t)
	regions := make([]domain.Region, maxStoredRegions+50)
	for i := range regions {
		regions[i] = domain.Region{FrameIndex: i, Confidence: 0.4}
	}
	d.redactor.frames = len(regions)
	d.redactor.regions = regions

	asset, localPath := ingestPhoto(t, svc, "acme")
	result, err := svc.Process(context.Background(), "acme", asset.ID, localPath)
	require.NoError(t, err)

	// counts stay exact even though stored rows are capped
	require.Equal(t, maxStoredRegions+50, result.Counts.Regions)
	require.Len(t, d.detections.rows, maxStoredRegions)
}
