package port

import (
	"context"

	"cardlens/internal/domain"
)

// ModelInvoker abstracts a single multimodal inference call: a text prompt
// plus one or more images in, raw model text out.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string, images []domain.NormalizedImage) (string, error)
}
