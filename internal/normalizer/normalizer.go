package normalizer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"cardlens/internal/config"
	"cardlens/internal/domain"
	"cardlens/internal/port"
)

// jpegQuality is used when an image has to be re-encoded to fit the
// inference payload limit.
const jpegQuality = 85

// Service converts uploaded card files into payload-ready raster images.
type Service struct {
	cfg *config.UploadConfig
}

// New creates a normalizer Service.
func New(cfg *config.UploadConfig) *Service {
	return &Service{cfg: cfg}
}

var _ port.Normalizer = (*Service)(nil)

// Normalize converts one uploaded file into an ordered sequence of raster
// images. PDFs are rasterized page by page; raster uploads pass through,
// downscaled and re-encoded when they exceed the payload limits.
func (s *Service) Normalize(ctx context.Context, file port.SideFile) ([]domain.NormalizedImage, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	switch ext {
	case "pdf":
		return s.rasterizePDF(ctx, file.Data)
	case "png", "jpg", "jpeg":
		img, err := s.normalizeRaster(file.Data)
		if err != nil {
			return nil, err
		}
		return []domain.NormalizedImage{*img}, nil
	default:
		return nil, fmt.Errorf("%w: %q (allowed: pdf, png, jpg, jpeg)", domain.ErrUnsupportedFormat, ext)
	}
}

// Ready reports whether the external rasterizer is available. Used by the
// readiness probe.
func (s *Service) Ready() error {
	if _, err := exec.LookPath(s.cfg.PdftoppmPath); err != nil {
		return fmt.Errorf("pdf rasterizer %q not found: %w", s.cfg.PdftoppmPath, err)
	}
	return nil
}

// normalizeRaster decodes an uploaded image and bounds its size. Images
// already within limits pass through untouched.
func (s *Service) normalizeRaster(data []byte) (*domain.NormalizedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", domain.ErrConversion, err)
	}

	mediaType := "image/" + format
	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("%w: decoded format %q", domain.ErrUnsupportedFormat, format)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= s.cfg.MaxDimension && bounds.Dy() <= s.cfg.MaxDimension && len(data) <= s.cfg.MaxImageBytes {
		return &domain.NormalizedImage{Data: data, MediaType: mediaType}, nil
	}

	slog.Debug("downscaling oversized image",
		"width", bounds.Dx(), "height", bounds.Dy(), "bytes", len(data))
	return s.shrink(img)
}

// shrink scales an image down to the configured dimension cap and re-encodes
// it as JPEG, halving the target dimension until the encoded size fits.
func (s *Service) shrink(img image.Image) (*domain.NormalizedImage, error) {
	maxDim := s.cfg.MaxDimension
	for {
		scaled := scaleToFit(img, maxDim)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("%w: encoding jpeg: %v", domain.ErrConversion, err)
		}
		if buf.Len() <= s.cfg.MaxImageBytes || maxDim <= 256 {
			return &domain.NormalizedImage{Data: buf.Bytes(), MediaType: "image/jpeg"}, nil
		}
		maxDim /= 2
	}
}

// scaleToFit returns img scaled so that its longest edge is at most maxDim,
// preserving aspect ratio. Images already within the cap are returned as-is.
func scaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	var newW, newH int
	if w >= h {
		newW = maxDim
		newH = h * maxDim / w
	} else {
		newH = maxDim
		newW = w * maxDim / h
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}
