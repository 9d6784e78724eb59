package port

import (
	"context"

	"cardlens/internal/domain"
)

// SideFile is one uploaded card side as received from the client.
type SideFile struct {
	Filename string
	Data     []byte
}

// Normalizer converts an uploaded file into raster images suitable for the
// inference call. For PDFs the returned slice holds one image per page in
// page order; for raster uploads it holds a single image.
type Normalizer interface {
	Normalize(ctx context.Context, file SideFile) ([]domain.NormalizedImage, error)
}
