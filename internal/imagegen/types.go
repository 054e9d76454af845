package imagegen

import (
	"context"

	"studio/internal/domain"
	"studio/internal/media"
)

// OptimizeRequest carries one encoded product photo to the optimization
// capability together with the scene directive and optional product name.
type OptimizeRequest struct {
	Image       media.Encoded
	Scene       domain.Scene
	Description string
	RequestID   string
}

// Optimizer transforms a product photo into a marketing-ready image.
type Optimizer interface {
	Optimize(ctx context.Context, req OptimizeRequest) (media.Encoded, error)
}

// OptimizerFunc adapts a plain function to Optimizer.
type OptimizerFunc func(ctx context.Context, req OptimizeRequest) (media.Encoded, error)

func (f OptimizerFunc) Optimize(ctx context.Context, req OptimizeRequest) (media.Encoded, error) {
	return f(ctx, req)
}
