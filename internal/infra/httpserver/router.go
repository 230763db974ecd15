package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	appai "github.com/bryanwahyu/plateguard/internal/application/ai"
	appmedia "github.com/bryanwahyu/plateguard/internal/application/media"
	domai "github.com/bryanwahyu/plateguard/internal/domain/ai"
	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
	"github.com/bryanwahyu/plateguard/internal/infra/ws"
	"github.com/bryanwahyu/plateguard/internal/middleware"
)

type Router struct {
	mediaSvc       *appmedia.Service
	aiSvc          *appai.Service
	hub            *ws.Hub
	maxUploadBytes int64
	log            *zap.Logger
}

func NewRouter(mediaSvc *appmedia.Service, aiSvc *appai.Service, hub *ws.Hub, maxUploadBytes int64, log *zap.Logger) http.Handler {
	r := &Router{
		mediaSvc:       mediaSvc,
		aiSvc:          aiSvc,
		hub:            hub,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
	mux := chi.NewRouter()

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Post("/media", r.wrap(r.handleUpload))
		rt.Get("/media", r.wrap(r.handleList))
		rt.Get("/media/latest", r.wrap(r.handleLatest))
		rt.Get("/media/archive", r.wrap(r.handleArchive))
		rt.Get("/media/{id}", r.wrap(r.handleGet))
		rt.Get("/media/{id}/detections", r.wrap(r.handleDetections))
		rt.Get("/media/{id}/download", r.wrap(r.handleDownload))
		rt.Post("/media/{id}/retry", r.wrap(r.handleRetry))
		rt.Get("/summary", r.wrap(r.handleSummary))
		rt.Post("/ai/report", r.wrap(r.handleAIReport))
		rt.Get("/ai/report", r.wrap(r.handleAIReportList))
		rt.Get("/events", r.handleEvents)
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			if errors.Is(err, appmedia.ErrNotReady) {
				http.Error(w, "asset is not processed yet", http.StatusConflict)
				return
			}
			if errors.Is(err, domai.ErrQuotaExceeded) {
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// POST /v1/{tenant}/media
// Multipart form dengan field "file". The redaction itself runs in the
// background; the response only confirms the upload was accepted.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		return r.reject(w, err)
	}

	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		return r.reject(w, fmt.Errorf("invalid multipart body: %w", err))
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return r.reject(w, fmt.Errorf("missing file field: %w", err))
	}
	defer file.Close()

	if err := middleware.ValidateMediaFileName(header.Filename); err != nil {
		return r.reject(w, err)
	}

	asset, localPath, err := r.mediaSvc.Ingest(req.Context(), appmedia.IngestCommand{
		TenantID:    tenant,
		FileName:    middleware.SanitizeString(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		return r.reject(w, err)
	}

	// 🚀 Jalankan di background, biar jalan sampai selesai
	go func() {
		middleware.IncrementJobs()
		middleware.IncrementJobsRunning()
		defer middleware.DecrementJobsRunning()

		result, err := r.mediaSvc.ProcessUntilDone(tenant, asset.ID, localPath)
		if err != nil {
			middleware.IncrementJobsFailed()
			r.log.Error("background redaction failed",
				zap.String("tenant", tenant),
				zap.String("asset_id", string(asset.ID)),
				zap.Error(err))
			return
		}
		r.log.Info("redaction finished",
			zap.String("tenant", tenant),
			zap.String("asset_id", result.ID),
			zap.Int("regions", result.Counts.Regions),
			zap.Int64("duration_ms", result.DurationMS))
	}()

	// 🔙 langsung balikin respons ke client
	resp := map[string]any{
		"status":    "queued",
		"tenant":    tenant,
		"id":        asset.ID,
		"kind":      asset.Kind,
		"file_name": asset.FileName,
		"message":   "redaction started in background",
		"queuedAt":  time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(resp)
}

// GET /v1/{tenant}/media?page=&page_size=&kind=&status=&q=
func (r *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	q := req.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))

	if err := middleware.ValidateMediaKind(q.Get("kind")); err != nil {
		return r.reject(w, err)
	}
	if err := middleware.ValidateStatus(q.Get("status")); err != nil {
		return r.reject(w, err)
	}

	filters := map[string]interface{}{}
	if v := q.Get("kind"); v != "" {
		filters["kind"] = strings.ToLower(v)
	}
	if v := q.Get("status"); v != "" {
		filters["status"] = strings.ToLower(v)
	}
	if v := q.Get("q"); v != "" {
		filters["file_name"] = middleware.SanitizeString(v)
	}

	list, err := r.mediaSvc.Paginate(req.Context(), tenant, page, size, filters)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/media/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.mediaSvc.Latest(req.Context(), tenant, limit)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/media/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAssetID(id); err != nil {
		return r.reject(w, err)
	}

	asset, err := r.mediaSvc.Get(req.Context(), tenant, domain.AssetID(id))
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(asset)
}

// GET /v1/{tenant}/media/{id}/detections?limit=100
func (r *Router) handleDetections(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAssetID(id); err != nil {
		return r.reject(w, err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	list, err := r.mediaSvc.ListDetections(req.Context(), tenant, domain.AssetID(id), limit)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/media/{id}/download
// Streams the redacted artifact. 409 selama asset belum done.
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAssetID(id); err != nil {
		return r.reject(w, err)
	}

	rc, asset, err := r.mediaSvc.OpenOutput(req.Context(), tenant, domain.AssetID(id))
	if err != nil {
		return err
	}
	defer rc.Close()

	name := filepath.Base(asset.OutputKey)
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, err = io.Copy(w, rc)
	return err
}

// GET /v1/{tenant}/media/archive?ids=a,b,c
// Zip dari semua output redacted yang diminta.
func (r *Router) handleArchive(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	raw := req.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		return r.reject(w, fmt.Errorf("ids query parameter is required"))
	}
	ids := strings.Split(raw, ",")
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if err := middleware.ValidateAssetID(id); err != nil {
			return r.reject(w, fmt.Errorf("id %s: %w", id, err))
		}
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("redacted-%s.zip", tenant)))

	// headers are already out; an error mid-stream can only be logged
	if _, err := r.mediaSvc.Archive(req.Context(), tenant, ids, w); err != nil {
		r.log.Warn("archive stream failed",
			zap.String("tenant", tenant), zap.Error(err))
	}
	return nil
}

// POST /v1/{tenant}/media/{id}/retry
func (r *Router) handleRetry(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateAssetID(id); err != nil {
		return r.reject(w, err)
	}

	result, err := r.mediaSvc.Retry(req.Context(), tenant, domain.AssetID(id))
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(result)
}

// GET /v1/{tenant}/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	days = middleware.ValidateDays(days)

	summary, err := r.mediaSvc.Summary(req.Context(), tenant, days)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(summary)
}

// POST /v1/{tenant}/ai/report
// Body: {"media_id": "<id>"}
// Fetches the asset's detection report and runs AI review on it.
func (r *Router) handleAIReport(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	var body struct {
		MediaID string `json:"media_id"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return r.reject(w, err)
	}
	if body.MediaID == "" {
		return r.reject(w, fmt.Errorf("media_id is required"))
	}
	if err := middleware.ValidateAssetID(body.MediaID); err != nil {
		return r.reject(w, err)
	}

	asset, err := r.mediaSvc.Get(req.Context(), tenant, domain.AssetID(body.MediaID))
	if err != nil {
		return err
	}
	if asset == nil || asset.ReportKey == "" {
		return r.reject(w, fmt.Errorf("detection report not found for media_id: %s", body.MediaID))
	}

	a, err := r.aiSvc.AnalyzeAndStore(req.Context(), tenant, body.MediaID, asset.ReportKey, asset.ReportURL)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(a)
}

// GET /v1/{tenant}/ai/report?page=&page_size=
func (r *Router) handleAIReportList(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	list, err := r.aiSvc.ListAnalyses(req.Context(), tenant, page, size)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}

// GET /v1/{tenant}/events → websocket with status transitions
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	tenant := chi.URLParam(req, "tenant")
	if err := middleware.ValidateTenantID(tenant); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.hub.Handler(tenant, w, req)
}

// reject writes a 400 directly and swallows the error so wrap() does not
// turn validation problems into 500s.
func (r *Router) reject(w http.ResponseWriter, err error) error {
	http.Error(w, err.Error(), http.StatusBadRequest)
	return nil
}

