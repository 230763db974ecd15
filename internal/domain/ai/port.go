package ai

import "context"

type Client interface {
	Analyze(ctx context.Context, reportURL string, reportJSON string) (string, error)
}
