package service

import (
	"context"
	"fmt"
	"log/slog"

	"cardlens/internal/config"
	"cardlens/internal/domain"
	"cardlens/internal/parser"
	"cardlens/internal/port"
)

// ProcessInput is the DTO for one card submission: a required front side
// and an optional back side. SkipValidation bypasses the is-it-a-card gate.
type ProcessInput struct {
	Front          port.SideFile
	Back           *port.SideFile
	SkipValidation bool
}

// ProcessOutput carries the submission outcome. Warning is set when the
// optional back side failed and the result degraded to front-only.
type ProcessOutput struct {
	Validation *domain.ValidationStatus `json:"validation,omitempty"`
	Extraction *domain.ExtractionResult `json:"extraction,omitempty"`
	Warning    string                   `json:"warning,omitempty"`
}

// CardService defines the card extraction pipeline contract.
type CardService interface {
	Process(ctx context.Context, input ProcessInput) (*ProcessOutput, error)
}

type cardService struct {
	normalizer port.Normalizer
	invoker    port.ModelInvoker
	cfg        *config.PipelineConfig
}

// NewCardService creates a CardService wired to a normalizer and a model
// invoker.
func NewCardService(n port.Normalizer, m port.ModelInvoker, cfg *config.PipelineConfig) CardService {
	return &cardService{normalizer: n, invoker: m, cfg: cfg}
}

// Process runs the pipeline synchronously: normalize, infer (one call per
// side), parse, merge. A failure on the required front side aborts the
// submission; a failure on the optional back side degrades to front-only
// results with a warning.
func (s *cardService) Process(ctx context.Context, input ProcessInput) (*ProcessOutput, error) {
	frontImages, err := s.normalizer.Normalize(ctx, input.Front)
	if err != nil {
		return nil, domain.NewStageError(domain.StageNormalize, err)
	}

	if s.cfg.ValidationMode == "standalone" {
		return s.processStandalone(ctx, input, frontImages)
	}
	return s.processCombined(ctx, input, frontImages)
}

// processCombined classifies and extracts in a single model call per side.
func (s *cardService) processCombined(ctx context.Context, input ProcessInput, frontImages []domain.NormalizedImage) (*ProcessOutput, error) {
	out := &ProcessOutput{}

	front, err := s.invokeSide(ctx, frontImages)
	if err != nil {
		return nil, err
	}
	out.Validation = &front.Validation

	if !input.SkipValidation && !front.Validation.IsInsuranceCard {
		return out, notInsuranceCard(front.Validation.Reason)
	}

	out.Extraction = front.Extraction
	if out.Extraction == nil {
		// Model classified without extracting; keep the full schema with
		// sentinels rather than returning nothing.
		empty := &domain.ExtractionResult{}
		empty.ApplyDefaults()
		out.Extraction = empty
	}

	if input.Back != nil {
		s.mergeBack(ctx, out, *input.Back, s.extractBackCombined)
	}
	return out, nil
}

// processStandalone mirrors the original two-pass flow: a dedicated
// validation call on the front images, then extraction calls per side.
func (s *cardService) processStandalone(ctx context.Context, input ProcessInput, frontImages []domain.NormalizedImage) (*ProcessOutput, error) {
	out := &ProcessOutput{}

	if !input.SkipValidation {
		raw, err := s.invoker.Invoke(ctx, parser.BuildValidationPrompt(), frontImages)
		if err != nil {
			return nil, domain.NewStageError(domain.StageInfer, err)
		}
		status, err := parser.ParseValidation(raw)
		if err != nil {
			return nil, domain.NewStageError(domain.StageParse, err)
		}
		out.Validation = status
		if !status.IsInsuranceCard {
			return out, notInsuranceCard(status.Reason)
		}
	}

	extraction, err := s.extractSide(ctx, frontImages)
	if err != nil {
		return nil, err
	}
	out.Extraction = extraction

	if input.Back != nil {
		s.mergeBack(ctx, out, *input.Back, s.extractSide)
	}
	return out, nil
}

// mergeBack normalizes and extracts the optional back side and merges it
// into the output. Back-side failures never fail the submission.
func (s *cardService) mergeBack(
	ctx context.Context,
	out *ProcessOutput,
	back port.SideFile,
	extract func(context.Context, []domain.NormalizedImage) (*domain.ExtractionResult, error),
) {
	backImages, err := s.normalizer.Normalize(ctx, back)
	if err != nil {
		out.Warning = backWarning(domain.StageNormalize, err)
		slog.Warn("back side normalization failed, degrading to front-only", "error", err)
		return
	}

	extraction, err := extract(ctx, backImages)
	if err != nil {
		out.Warning = backWarning(domain.StageOf(err), err)
		slog.Warn("back side extraction failed, degrading to front-only", "error", err)
		return
	}

	out.Extraction = parser.Merge(out.Extraction, extraction)
}

// invokeSide runs one combined classify+extract call over a side's images.
func (s *cardService) invokeSide(ctx context.Context, images []domain.NormalizedImage) (*parser.SideResult, error) {
	raw, err := s.invoker.Invoke(ctx, parser.BuildCardPrompt(len(images)), images)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInfer, err)
	}
	side, err := parser.ParseSide(raw)
	if err != nil {
		return nil, domain.NewStageError(domain.StageParse, err)
	}
	return side, nil
}

// extractBackCombined adapts the combined call for back-side merging, where
// only the extraction matters.
func (s *cardService) extractBackCombined(ctx context.Context, images []domain.NormalizedImage) (*domain.ExtractionResult, error) {
	side, err := s.invokeSide(ctx, images)
	if err != nil {
		return nil, err
	}
	if side.Extraction == nil {
		return nil, domain.NewStageError(domain.StageParse, fmt.Errorf("%w: no extraction in response", domain.ErrParse))
	}
	return side.Extraction, nil
}

// extractSide runs one extraction-only call over a side's images.
func (s *cardService) extractSide(ctx context.Context, images []domain.NormalizedImage) (*domain.ExtractionResult, error) {
	raw, err := s.invoker.Invoke(ctx, parser.BuildExtractionPrompt(len(images)), images)
	if err != nil {
		return nil, domain.NewStageError(domain.StageInfer, err)
	}
	extraction, err := parser.ParseExtraction(raw)
	if err != nil {
		return nil, domain.NewStageError(domain.StageParse, err)
	}
	return extraction, nil
}

func notInsuranceCard(reason string) error {
	if reason == "" {
		return domain.ErrNotInsuranceCard
	}
	return fmt.Errorf("%w: %s", domain.ErrNotInsuranceCard, reason)
}

func backWarning(stage string, err error) string {
	if stage == "" {
		stage = "process"
	}
	return fmt.Sprintf("back side ignored (%s failed): %v", stage, err)
}
