// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package qareport defines the QA report document produced by the checking
// stage and consumed by the correction, apply, and email stages. Reports
// arrive as loosely structured JSON (the checker merges free-form assistant
// output with deterministic flags); Parse is the single place that shape is
// validated into typed correction values.
package qareport

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/pdiddy/inis-qa/pkg/types"
)

// Kind names one recognized correction key in a report's corrections mapping.
type Kind string

const (
	KindTitle              Kind = "title"
	KindAbstract           Kind = "abstract"
	KindDescriptorDeletion Kind = "delete_descriptor"
	KindPublicationDate    Kind = "publication_date"
	KindRelatedIdentifiers Kind = "related_identifiers"
)

// parseOrder fixes the order corrections appear in Report.Corrections,
// independent of JSON key order.
var parseOrder = []Kind{
	KindTitle,
	KindAbstract,
	KindDescriptorDeletion,
	KindPublicationDate,
	KindRelatedIdentifiers,
}

// Correction is one recognized, typed correction instruction.
type Correction interface {
	Kind() Kind

	// Value renders the payload for summary listings.
	Value() string
}

// TitleCorrection replaces the record title.
type TitleCorrection struct {
	Title string
}

func (TitleCorrection) Kind() Kind      { return KindTitle }
func (c TitleCorrection) Value() string { return c.Title }

// AbstractCorrection replaces the record abstract.
type AbstractCorrection struct {
	Abstract string
}

func (AbstractCorrection) Kind() Kind      { return KindAbstract }
func (c AbstractCorrection) Value() string { return c.Abstract }

// DateCorrection replaces the publication date. The replacement value is
// not validated against any date format.
type DateCorrection struct {
	Date string
}

func (DateCorrection) Kind() Kind      { return KindPublicationDate }
func (c DateCorrection) Value() string { return c.Date }

// DescriptorDeletion removes descriptor terms. A single string in the
// report is normalized to a one-element list at parse time.
type DescriptorDeletion struct {
	Descriptors []string
}

func (DescriptorDeletion) Kind() Kind { return KindDescriptorDeletion }
func (c DescriptorDeletion) Value() string {
	data, _ := json.Marshal(c.Descriptors)
	return string(data)
}

// RelatedIdentifierAddition appends related identifiers. A single object
// in the report is normalized to a one-element list at parse time.
type RelatedIdentifierAddition struct {
	Identifiers []types.RelatedIdentifier
}

func (RelatedIdentifierAddition) Kind() Kind { return KindRelatedIdentifiers }
func (c RelatedIdentifierAddition) Value() string {
	data, _ := json.Marshal(c.Identifiers)
	return string(data)
}

// AffiliationCorrection is one old/recommended affiliation name pair.
type AffiliationCorrection struct {
	Old         string `json:"old_affiliation"`
	Recommended string `json:"recommended_affiliation"`
}

// OrgAuthorCorrection is one old/recommended organizational author name pair.
type OrgAuthorCorrection struct {
	Old         string `json:"old_organizational_author"`
	Recommended string `json:"recommended_organizational_author"`
}

// Report is the validated QA report for one record.
type Report struct {
	RecordID string

	TitleCorrected                   bool
	AbstractCorrected                bool
	DescriptorCorrected              bool
	DateCorrected                    bool
	AffiliationCorrectionRecommended bool

	// ScopeOK defaults to true when the report does not carry the flag.
	ScopeOK bool

	DuplicateByTitle          bool
	DuplicateByDOI            bool
	SuspiciousContent         bool
	HistoricalContextRequired bool

	// Corrections holds the recognized entries of the corrections mapping
	// in a fixed order.
	Corrections []Correction

	AffiliationCorrections          []AffiliationCorrection
	OrganizationalAuthorCorrections []OrgAuthorCorrection

	// Recommendations are free-text advisories for manual review.
	Recommendations []string

	// Error is set on reports the checker wrote when the assistant reply
	// was not valid JSON; RawPreview carries the reply's first bytes.
	Error      string
	RawPreview string
}

// Correction returns the report's correction of the given kind, if present.
func (r *Report) Correction(kind Kind) (Correction, bool) {
	for _, c := range r.Corrections {
		if c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

// HasApplicableCorrections reports whether the live applier has anything to
// change beyond the QA-checked marker: a title correction, or non-empty
// affiliation or organizational-author pair lists.
func (r *Report) HasApplicableCorrections() bool {
	if _, ok := r.Correction(KindTitle); ok {
		return true
	}
	return len(r.AffiliationCorrections) > 0 || len(r.OrganizationalAuthorCorrections) > 0
}

// CorrectionsMap renders the corrections mapping back to plain JSON values
// for run artifacts such as correction snapshots.
func (r *Report) CorrectionsMap() map[string]any {
	if len(r.Corrections) == 0 {
		return nil
	}
	out := make(map[string]any, len(r.Corrections))
	for _, c := range r.Corrections {
		switch v := c.(type) {
		case TitleCorrection:
			out[string(KindTitle)] = v.Title
		case AbstractCorrection:
			out[string(KindAbstract)] = v.Abstract
		case DateCorrection:
			out[string(KindPublicationDate)] = v.Date
		case DescriptorDeletion:
			out[string(KindDescriptorDeletion)] = v.Descriptors
		case RelatedIdentifierAddition:
			out[string(KindRelatedIdentifiers)] = v.Identifiers
		}
	}
	return out
}

// ErrNoRecordID marks a report that parsed as JSON but carries no record_id.
var ErrNoRecordID = errors.New("report has no record_id")

// rawReport mirrors the known top-level report fields. Unknown top-level
// keys are ignored: the checker merges arbitrary assistant output, and only
// the corrections mapping is held to a strict shape.
type rawReport struct {
	RecordID interface{} `json:"record_id"`

	TitleCorrected                   *bool `json:"title_corrected"`
	AbstractCorrected                *bool `json:"abstract_corrected"`
	DescriptorCorrected              *bool `json:"descriptor_corrected"`
	DateCorrected                    *bool `json:"date_corrected"`
	AffiliationCorrectionRecommended *bool `json:"affiliation_correction_recommended"`
	ScopeOK                          *bool `json:"scope_ok"`
	DuplicateByTitle                 *bool `json:"duplicate_by_title"`
	DuplicateByDOI                   *bool `json:"duplicate_by_doi"`
	SuspiciousContent                *bool `json:"suspicious_content"`
	HistoricalContextRequired        *bool `json:"historical_context_required"`

	Corrections                     map[string]json.RawMessage `json:"corrections"`
	AffiliationCorrections          []AffiliationCorrection    `json:"affiliation_corrections"`
	OrganizationalAuthorCorrections []OrgAuthorCorrection      `json:"organizational_author_corrections"`
	Recommendations                 []string                   `json:"recommendations"`

	Error      string `json:"error"`
	RawPreview string `json:"raw_preview"`
}

// Parse validates raw report JSON into a Report. An unrecognized
// corrections key or a payload of the wrong shape yields a parse error
// rather than a silent no-op. A missing record_id yields ErrNoRecordID
// alongside the otherwise-valid report, so aggregation callers can
// substitute an id derived from the file name.
func Parse(data []byte) (*Report, error) {
	var raw rawReport
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	recordID, _ := raw.RecordID.(string)

	r := &Report{
		RecordID:                         recordID,
		TitleCorrected:                   boolOr(raw.TitleCorrected, false),
		AbstractCorrected:                boolOr(raw.AbstractCorrected, false),
		DescriptorCorrected:              boolOr(raw.DescriptorCorrected, false),
		DateCorrected:                    boolOr(raw.DateCorrected, false),
		AffiliationCorrectionRecommended: boolOr(raw.AffiliationCorrectionRecommended, false),
		ScopeOK:                          boolOr(raw.ScopeOK, true),
		DuplicateByTitle:                 boolOr(raw.DuplicateByTitle, false),
		DuplicateByDOI:                   boolOr(raw.DuplicateByDOI, false),
		SuspiciousContent:                boolOr(raw.SuspiciousContent, false),
		HistoricalContextRequired:        boolOr(raw.HistoricalContextRequired, false),
		AffiliationCorrections:           raw.AffiliationCorrections,
		OrganizationalAuthorCorrections:  raw.OrganizationalAuthorCorrections,
		Recommendations:                  raw.Recommendations,
		Error:                            raw.Error,
		RawPreview:                       raw.RawPreview,
	}

	for key := range raw.Corrections {
		if !recognizedKind(Kind(key)) {
			return nil, fmt.Errorf("unrecognized correction %q", key)
		}
	}
	for _, kind := range parseOrder {
		payload, ok := raw.Corrections[string(kind)]
		if !ok {
			continue
		}
		c, err := parseCorrection(kind, payload)
		if err != nil {
			return nil, fmt.Errorf("correction %q: %w", kind, err)
		}
		r.Corrections = append(r.Corrections, c)
	}

	if recordID == "" {
		return r, ErrNoRecordID
	}
	return r, nil
}

// ParseFile reads and parses one report file.
func ParseFile(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}
	return Parse(data)
}

func recognizedKind(k Kind) bool {
	for _, known := range parseOrder {
		if k == known {
			return true
		}
	}
	return false
}

func parseCorrection(kind Kind, payload json.RawMessage) (Correction, error) {
	switch kind {
	case KindTitle:
		var title string
		if err := json.Unmarshal(payload, &title); err != nil {
			return nil, fmt.Errorf("expected string: %w", err)
		}
		return TitleCorrection{Title: title}, nil

	case KindAbstract:
		var abstract string
		if err := json.Unmarshal(payload, &abstract); err != nil {
			return nil, fmt.Errorf("expected string: %w", err)
		}
		return AbstractCorrection{Abstract: abstract}, nil

	case KindPublicationDate:
		var date string
		if err := json.Unmarshal(payload, &date); err != nil {
			return nil, fmt.Errorf("expected string: %w", err)
		}
		return DateCorrection{Date: date}, nil

	case KindDescriptorDeletion:
		// A bare string means a one-element list.
		var one string
		if err := json.Unmarshal(payload, &one); err == nil {
			return DescriptorDeletion{Descriptors: []string{one}}, nil
		}
		var many []string
		if err := json.Unmarshal(payload, &many); err != nil {
			return nil, fmt.Errorf("expected string or list of strings: %w", err)
		}
		return DescriptorDeletion{Descriptors: many}, nil

	case KindRelatedIdentifiers:
		// A bare object means a one-element list.
		var one types.RelatedIdentifier
		if err := strictObject(payload, &one); err == nil {
			return RelatedIdentifierAddition{Identifiers: []types.RelatedIdentifier{one}}, nil
		}
		var many []types.RelatedIdentifier
		if err := json.Unmarshal(payload, &many); err != nil {
			return nil, fmt.Errorf("expected identifier object or list: %w", err)
		}
		return RelatedIdentifierAddition{Identifiers: many}, nil
	}
	return nil, fmt.Errorf("unrecognized correction %q", kind)
}

// strictObject decodes payload into v only when payload is a JSON object.
func strictObject(payload json.RawMessage, v any) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
