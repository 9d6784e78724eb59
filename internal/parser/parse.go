// Package parser builds model prompts and parses model output into the
// fixed extraction schema.
package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"cardlens/internal/domain"
)

// SideResult is the parsed outcome of one model call for one card side.
type SideResult struct {
	Validation domain.ValidationStatus
	Extraction *domain.ExtractionResult
}

// ExtractJSON locates the JSON payload in raw model text. Two ordered
// attempts: strict decode of the whole text, then a constrained extraction
// pass (code fences, outermost braces). Fails with domain.ErrParse when
// neither yields a JSON object.
func ExtractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}

	if candidate, ok := fencedBlock(trimmed, "```json"); ok && json.Valid(candidate) {
		return candidate, nil
	}
	if candidate, ok := fencedBlock(trimmed, "```"); ok && json.Valid(candidate) {
		return candidate, nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := []byte(trimmed[start : end+1])
		if json.Valid(candidate) {
			return candidate, nil
		}
	}

	return nil, fmt.Errorf("%w: no JSON object in model output: %s", domain.ErrParse, truncate(text, 200))
}

func fencedBlock(text, fence string) ([]byte, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return nil, false
	}
	start += len(fence)
	end := strings.Index(text[start:], "```")
	if end < 0 {
		return nil, false
	}
	return []byte(strings.TrimSpace(text[start : start+end])), true
}

// ParseSide parses the response of a combined classify+extract call.
// A response missing the classification flag but carrying extraction fields
// is treated as a positive classification; models occasionally skip the
// preamble when the document is unambiguous.
func ParseSide(text string) (*SideResult, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	if _, hasFlag := probe["is_insurance_card"]; !hasFlag {
		result, err := decodeExtraction(payload)
		if err != nil {
			return nil, err
		}
		return &SideResult{
			Validation: domain.ValidationStatus{IsInsuranceCard: true},
			Extraction: result,
		}, nil
	}

	var combined struct {
		IsInsuranceCard bool            `json:"is_insurance_card"`
		Confidence      string          `json:"confidence"`
		Reason          string          `json:"reason"`
		Extraction      json.RawMessage `json:"extraction"`
	}
	if err := json.Unmarshal(payload, &combined); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	side := &SideResult{
		Validation: domain.ValidationStatus{
			IsInsuranceCard: combined.IsInsuranceCard,
			Confidence:      combined.Confidence,
			Reason:          combined.Reason,
		},
	}
	if len(combined.Extraction) > 0 && string(combined.Extraction) != "null" {
		result, err := decodeExtraction(combined.Extraction)
		if err != nil {
			return nil, err
		}
		side.Extraction = result
	}
	return side, nil
}

// ParseValidation parses a standalone validation response.
func ParseValidation(text string) (*domain.ValidationStatus, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	var status domain.ValidationStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	return &status, nil
}

// ParseExtraction parses an extraction-only response.
func ParseExtraction(text string) (*domain.ExtractionResult, error) {
	payload, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	return decodeExtraction(payload)
}

func decodeExtraction(payload []byte) (*domain.ExtractionResult, error) {
	var result domain.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	result.ApplyDefaults()
	return &result, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
