package parser

import "fmt"

// Prompt templates for insurance card processing. All builders are
// deterministic: identical inputs always produce identical payload text.

const validationPrompt = `You are an expert at identifying insurance cards.
Analyze this image and determine if it is an insurance card (health/medical insurance).

Look for these characteristics:
- Insurance company name/logo
- Member ID or Subscriber ID
- Group number
- Plan information
- Coverage details
- Medical insurance terminology

Respond ONLY with a JSON object in this exact format:
{
    "is_insurance_card": true or false,
    "confidence": "high" or "medium" or "low",
    "reason": "Brief explanation of your decision"
}`

const extractionBody = `Required fields to extract (if visible):
1. Insurance Company Name
2. Member/Patient Name
3. Member ID (or Subscriber ID or ID#)
4. Group Number (or Group ID or Group#)
5. Effective Date (or Start Date or End Date)

Also extract any additional useful information like:
- Plan Type (PPO, HMO, etc.)
- RxBin, RxPCN, RxGrp (pharmacy information)
- Copay information
- Contact phone numbers`

const extractionSchema = `{
    "insurance_company": "company name or null",
    "member_name": "name or null",
    "member_id": "ID or null",
    "group_number": "group number or null",
    "effective_date": "date or null",
    "additional_info": {
        "plan_type": "type or null",
        "pharmacy_info": {
            "rx_bin": "bin or null",
            "rx_pcn": "pcn or null",
            "rx_grp": "grp or null"
        }
    }
}`

// BuildValidationPrompt returns the standalone classification prompt.
func BuildValidationPrompt() string {
	return validationPrompt
}

// BuildExtractionPrompt returns the extraction-only prompt. When imageCount
// is greater than one the model is told it is looking at multiple images of
// the same card.
func BuildExtractionPrompt(imageCount int) string {
	prompt := `You are an expert at extracting information from insurance cards.
Extract all relevant information from this insurance card image.

` + extractionBody + `

Respond ONLY with a JSON object in this exact format:
` + extractionSchema + `

If a field is not visible or cannot be determined, use null.`
	return withMultiImageNote(prompt, imageCount)
}

// BuildCardPrompt returns the combined classify-then-extract prompt used in
// the default one-call-per-side flow.
func BuildCardPrompt(imageCount int) string {
	prompt := `You are an expert at reading insurance cards.

First, determine whether the provided image shows a health/medical insurance card.
Then, if it is an insurance card, extract all relevant information from it.

` + extractionBody + `

Respond ONLY with a JSON object in this exact format:
{
    "is_insurance_card": true or false,
    "confidence": "high" or "medium" or "low",
    "reason": "Brief explanation of your decision",
    "extraction": ` + extractionSchema + `
}

If the document is not an insurance card, set "extraction" to null.
If a field is not visible or cannot be determined, use null.`
	return withMultiImageNote(prompt, imageCount)
}

func withMultiImageNote(prompt string, imageCount int) string {
	if imageCount <= 1 {
		return prompt
	}
	return fmt.Sprintf(
		"%s\n\nNote: You are analyzing %d images of the same side of one insurance card (a multi-page scan). Combine information from all images.",
		prompt, imageCount,
	)
}
