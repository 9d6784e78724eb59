package normalizer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"cardlens/internal/domain"
)

// rasterizePDF converts a PDF into one image per page, in page order. The
// PDF is validated with pdfcpu first, then rendered by the external
// pdftoppm process inside a temp dir that is removed on every exit path.
func (s *Service) rasterizePDF(ctx context.Context, data []byte) ([]domain.NormalizedImage, error) {
	pageCount, err := pdfPageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid pdf: %v", domain.ErrConversion, err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("%w: pdf has no pages", domain.ErrConversion)
	}
	if pageCount > s.cfg.PDFMaxPages {
		slog.Warn("pdf exceeds page cap, truncating", "pages", pageCount, "cap", s.cfg.PDFMaxPages)
		pageCount = s.cfg.PDFMaxPages
	}

	tempDir, err := os.MkdirTemp("", "cardlens-raster-*")
	if err != nil {
		return nil, fmt.Errorf("%w: creating temp dir: %v", domain.ErrConversion, err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	srcPath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("%w: writing temp pdf: %v", domain.ErrConversion, err)
	}

	outPrefix := filepath.Join(tempDir, "page")
	cmd := exec.CommandContext(ctx, s.cfg.PdftoppmPath,
		"-png",
		"-r", strconv.Itoa(s.cfg.PDFDPI),
		"-f", "1",
		"-l", strconv.Itoa(pageCount),
		srcPath, outPrefix,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: pdftoppm: %v: %s", domain.ErrConversion, err, strings.TrimSpace(stderr.String()))
	}

	paths, err := filepath.Glob(outPrefix + "-*.png")
	if err != nil || len(paths) == 0 {
		return nil, fmt.Errorf("%w: rasterizer produced no pages", domain.ErrConversion)
	}
	sortByPageSuffix(paths)

	images := make([]domain.NormalizedImage, 0, len(paths))
	for i, p := range paths {
		pageData, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: reading rasterized page: %v", domain.ErrConversion, err)
		}
		img, err := s.normalizeRaster(pageData)
		if err != nil {
			return nil, err
		}
		img.Page = i
		images = append(images, *img)
	}
	return images, nil
}

func pdfPageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(data), conf)
}

// sortByPageSuffix orders pdftoppm output files by their numeric page
// suffix ("page-1.png", "page-10.png" must not sort lexically).
func sortByPageSuffix(paths []string) {
	pageNum := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		idx := strings.LastIndex(base, "-")
		if idx < 0 {
			return 0
		}
		n, _ := strconv.Atoi(base[idx+1:])
		return n
	}
	sort.Slice(paths, func(i, j int) bool { return pageNum(paths[i]) < pageNum(paths[j]) })
}
