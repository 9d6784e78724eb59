package parser

import "cardlens/internal/domain"

// Merge combines front and back extraction results field by field. A field
// is taken from whichever side read a real value; when both sides carry
// non-sentinel values the front side wins. Merging a result with itself is
// a no-op.
func Merge(front, back *domain.ExtractionResult) *domain.ExtractionResult {
	if front == nil && back == nil {
		return nil
	}
	if back == nil {
		return front
	}
	if front == nil {
		return back
	}

	merged := *front
	mergeField(&merged.InsuranceCompany, back.InsuranceCompany)
	mergeField(&merged.MemberName, back.MemberName)
	mergeField(&merged.MemberID, back.MemberID)
	mergeField(&merged.GroupNumber, back.GroupNumber)
	mergeField(&merged.EffectiveDate, back.EffectiveDate)
	mergeField(&merged.AdditionalInfo.PlanType, back.AdditionalInfo.PlanType)
	mergeField(&merged.AdditionalInfo.Pharmacy.RxBin, back.AdditionalInfo.Pharmacy.RxBin)
	mergeField(&merged.AdditionalInfo.Pharmacy.RxPCN, back.AdditionalInfo.Pharmacy.RxPCN)
	mergeField(&merged.AdditionalInfo.Pharmacy.RxGrp, back.AdditionalInfo.Pharmacy.RxGrp)

	merged.AdditionalInfo.Extra = mergeExtras(front.AdditionalInfo.Extra, back.AdditionalInfo.Extra)
	merged.AdditionalInfo.Pharmacy.Extra = mergeExtras(front.AdditionalInfo.Pharmacy.Extra, back.AdditionalInfo.Pharmacy.Extra)
	return &merged
}

// mergeField fills the front value from the back side only when the front
// side could not read the field.
func mergeField(frontVal *string, backVal string) {
	if !readable(*frontVal) && readable(backVal) {
		*frontVal = backVal
	}
}

func readable(v string) bool {
	return v != "" && v != domain.NotVisible
}

// mergeExtras unions two extra-field maps; on key collision the front side
// wins. The inputs are never mutated.
func mergeExtras(front, back map[string]any) map[string]any {
	if len(back) == 0 {
		return front
	}
	out := make(map[string]any, len(front)+len(back))
	for k, v := range back {
		out[k] = v
	}
	for k, v := range front {
		out[k] = v
	}
	return out
}
