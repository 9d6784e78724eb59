package domain

import (
	"encoding/json"
	"strings"
)

// NotVisible is the sentinel value for a field the model could not read.
const NotVisible = "Not visible"

// CardSide identifies which side of the card a file represents.
type CardSide string

const (
	SideFront CardSide = "front"
	SideBack  CardSide = "back"
)

// NormalizedImage is one raster image derived from an uploaded file,
// ready for transmission to the model.
type NormalizedImage struct {
	Data      []byte
	MediaType string // "image/png" or "image/jpeg"
	Page      int    // zero-based page index within the source file
}

// ValidationStatus is the model's classification of the submitted document.
type ValidationStatus struct {
	IsInsuranceCard bool   `json:"is_insurance_card"`
	Confidence      string `json:"confidence,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// PharmacyInfo holds the pharmacy identifiers from the card. Keys the model
// returns beyond the declared three are preserved in Extra.
type PharmacyInfo struct {
	RxBin string
	RxPCN string
	RxGrp string
	Extra map[string]any
}

// MarshalJSON emits the fixed rx_* keys plus any preserved extras.
func (p PharmacyInfo) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Extra)+3)
	for k, v := range p.Extra {
		m[k] = v
	}
	m["rx_bin"] = p.RxBin
	m["rx_pcn"] = p.RxPCN
	m["rx_grp"] = p.RxGrp
	return json.Marshal(m)
}

// UnmarshalJSON accepts key spelling variants the model is known to emit
// (RxBin, rxbin, rx_bin) and keeps unrecognized keys in Extra.
func (p *PharmacyInfo) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	p.RxBin = popString(m, "rxbin")
	p.RxPCN = popString(m, "rxpcn")
	p.RxGrp = popString(m, "rxgrp")
	p.Extra = remaining(m)
	return nil
}

// AdditionalInfo carries plan and pharmacy details plus any extra fields the
// model returned that are not part of the declared schema.
type AdditionalInfo struct {
	PlanType string
	Pharmacy PharmacyInfo
	Extra    map[string]any
}

func (a AdditionalInfo) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(a.Extra)+2)
	for k, v := range a.Extra {
		m[k] = v
	}
	m["plan_type"] = a.PlanType
	m["pharmacy_info"] = a.Pharmacy
	return json.Marshal(m)
}

func (a *AdditionalInfo) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	a.Extra = nil
	for k, raw := range m {
		switch normalizeKey(k) {
		case "plantype":
			a.PlanType = rawString(raw)
		case "pharmacyinfo", "pharmacy":
			if err := json.Unmarshal(raw, &a.Pharmacy); err != nil {
				// Non-object pharmacy info is kept as an extra rather than lost.
				a.setExtra(k, rawAny(raw))
			}
		default:
			a.setExtra(k, rawAny(raw))
		}
	}
	return nil
}

func (a *AdditionalInfo) setExtra(k string, v any) {
	if v == nil {
		return
	}
	if a.Extra == nil {
		a.Extra = make(map[string]any)
	}
	a.Extra[k] = v
}

// ExtractionResult is the fixed-schema output of a card extraction.
type ExtractionResult struct {
	InsuranceCompany string         `json:"insurance_company"`
	MemberName       string         `json:"member_name"`
	MemberID         string         `json:"member_id"`
	GroupNumber      string         `json:"group_number"`
	EffectiveDate    string         `json:"effective_date"`
	AdditionalInfo   AdditionalInfo `json:"additional_info"`
}

// UnmarshalJSON decodes the declared fields and folds any unknown top-level
// keys from the model into AdditionalInfo so nothing is dropped.
func (r *ExtractionResult) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*r = ExtractionResult{}
	for k, raw := range m {
		switch normalizeKey(k) {
		case "insurancecompany":
			r.InsuranceCompany = rawString(raw)
		case "membername":
			r.MemberName = rawString(raw)
		case "memberid":
			r.MemberID = rawString(raw)
		case "groupnumber":
			r.GroupNumber = rawString(raw)
		case "effectivedate":
			r.EffectiveDate = rawString(raw)
		case "additionalinfo":
			if err := json.Unmarshal(raw, &r.AdditionalInfo); err != nil {
				return err
			}
		default:
			r.AdditionalInfo.setExtra(k, rawAny(raw))
		}
	}
	return nil
}

// ApplyDefaults fills every declared field that is empty with the NotVisible
// sentinel, guaranteeing the full schema is present in the output.
func (r *ExtractionResult) ApplyDefaults() {
	fields := []*string{
		&r.InsuranceCompany,
		&r.MemberName,
		&r.MemberID,
		&r.GroupNumber,
		&r.EffectiveDate,
		&r.AdditionalInfo.PlanType,
		&r.AdditionalInfo.Pharmacy.RxBin,
		&r.AdditionalInfo.Pharmacy.RxPCN,
		&r.AdditionalInfo.Pharmacy.RxGrp,
	}
	for _, f := range fields {
		if *f == "" {
			*f = NotVisible
		}
	}
}

// normalizeKey lower-cases a JSON key and strips separators so spelling
// variants like "Member_ID" and "member id" compare equal.
func normalizeKey(k string) string {
	k = strings.ToLower(k)
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(k)
}

func popString(m map[string]any, canonical string) string {
	for k, v := range m {
		if normalizeKey(k) == canonical {
			delete(m, k)
			return asString(v)
		}
	}
	return ""
}

func remaining(m map[string]any) map[string]any {
	var out map[string]any
	for k, v := range m {
		if v == nil {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		out[k] = v
	}
	return out
}

func asString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

func rawString(raw json.RawMessage) string {
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return ""
	}
	return asString(*s)
}

func rawAny(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
