package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/bryanwahyu/plateguard/internal/domain/ai"
	"github.com/bryanwahyu/plateguard/internal/domain/analyst"
	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
	"github.com/bryanwahyu/plateguard/internal/infra/ai/prompt"
)

// Service runs AI review of redaction reports and stores the result.
// When no client is configured it falls back to the local summarizer.
type Service struct {
	Client    ai.Client
	Analyses  analyst.Repository
	Artifacts domain.ArtifactStore
}

func NewService(client ai.Client, analyses analyst.Repository, artifacts domain.ArtifactStore) *Service {
	return &Service{Client: client, Analyses: analyses, Artifacts: artifacts}
}

// AnalyzeAndStore fetches the report artifact, runs the analysis and
// persists it for later retrieval.
func (s *Service) AnalyzeAndStore(ctx context.Context, tenant, assetID, reportKey, reportURL string) (*analyst.Analysis, error) {
	if reportKey == "" {
		return nil, fmt.Errorf("asset %s has no detection report", assetID)
	}
	rc, err := s.Artifacts.Download(ctx, reportKey)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var result string
	if s.Client != nil {
		result, err = s.Client.Analyze(ctx, reportURL, string(data))
		if err != nil {
			return nil, err
		}
	} else {
		result = prompt.SummarizeReport(reportURL, string(data))
	}

	a := &analyst.Analysis{
		ID:        analyst.AnalysisID(uuid.New().String()),
		TenantID:  tenant,
		AssetID:   assetID,
		ReportURL: reportURL,
		Result:    result,
	}
	if err := s.Analyses.Save(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns a page of stored analyses for the tenant.
func (s *Service) ListAnalyses(ctx context.Context, tenant string, page, pageSize int) ([]*analyst.Analysis, error) {
	return s.Analyses.Paginate(ctx, tenant, page, pageSize)
}
