// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "encoding/json"

// Custom field keys used by the INIS repository.
const (
	FieldQAChecked    = "iaea:qa_checked"
	FieldDescriptors  = "iaea:descriptors_cai_text"
	FieldLeadRecordID = "iaea:lead_record_id"
)

// Record is one bibliographic entry as served by the repository's records
// API. Sections the pipeline never touches are carried as raw JSON so a
// fetched draft can be written back without losing them.
type Record struct {
	// ID is the opaque record identifier assigned by the repository.
	ID string `json:"id,omitempty"`

	Metadata     Metadata     `json:"metadata"`
	CustomFields CustomFields `json:"custom_fields,omitempty"`

	Access json.RawMessage `json:"access,omitempty"`
	Files  json.RawMessage `json:"files,omitempty"`
	PIDs   json.RawMessage `json:"pids,omitempty"`
	Parent json.RawMessage `json:"parent,omitempty"`
}

// Metadata is the descriptive section of a record. Only the fields the QA
// pipeline reads or rewrites are typed; the rest round-trip as raw JSON.
type Metadata struct {
	// Title is the record title.
	Title string `json:"title,omitempty"`

	// Description is the abstract.
	Description string `json:"description,omitempty"`

	// PublicationDate is a date string in YYYY-MM-DD or YYYY-MM form.
	PublicationDate string `json:"publication_date,omitempty"`

	// Creators lists authors in source order.
	Creators []Creator `json:"creators,omitempty"`

	// Identifiers holds scheme-qualified identifiers (e.g. a DOI).
	Identifiers []Identifier `json:"identifiers,omitempty"`

	// RelatedIdentifiers links this record to related works.
	RelatedIdentifiers []RelatedIdentifier `json:"related_identifiers,omitempty"`

	ResourceType     json.RawMessage `json:"resource_type,omitempty"`
	Publisher        json.RawMessage `json:"publisher,omitempty"`
	Languages        json.RawMessage `json:"languages,omitempty"`
	Subjects         json.RawMessage `json:"subjects,omitempty"`
	Rights           json.RawMessage `json:"rights,omitempty"`
	Dates            json.RawMessage `json:"dates,omitempty"`
	AdditionalTitles json.RawMessage `json:"additional_titles,omitempty"`
}

// Creator is one author entry: a person or an organization, with
// affiliations.
type Creator struct {
	PersonOrOrg  PersonOrOrg     `json:"person_or_org"`
	Affiliations []Affiliation   `json:"affiliations,omitempty"`
	Role         json.RawMessage `json:"role,omitempty"`
}

// Creator types recognized by the repository.
const (
	CreatorPersonal       = "personal"
	CreatorOrganizational = "organizational"
)

// PersonOrOrg identifies a creator.
type PersonOrOrg struct {
	// Type is "personal" or "organizational".
	Type string `json:"type,omitempty"`

	// Name is the display name. For organizational creators this is the
	// organization name the QA pipeline may rewrite.
	Name string `json:"name,omitempty"`

	GivenName   string          `json:"given_name,omitempty"`
	FamilyName  string          `json:"family_name,omitempty"`
	Identifiers json.RawMessage `json:"identifiers,omitempty"`
}

// Affiliation is one affiliation entry on a creator.
type Affiliation struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Identifier is a scheme-qualified identifier such as a DOI.
type Identifier struct {
	Scheme     string `json:"scheme,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// RelatedIdentifier links a record to a related work.
type RelatedIdentifier struct {
	Identifier   string          `json:"identifier,omitempty"`
	Scheme       string          `json:"scheme,omitempty"`
	RelationType json.RawMessage `json:"relation_type,omitempty"`
	ResourceType json.RawMessage `json:"resource_type,omitempty"`
}

// DOI returns the record's DOI identifier, or "" if none is present.
func (m *Metadata) DOI() string {
	for _, id := range m.Identifiers {
		if id.Scheme == "doi" {
			return id.Identifier
		}
	}
	return ""
}

// CustomFields holds the repository's custom field section. It stays a map
// so fields outside the QA pipeline's interest survive a draft round-trip;
// the iaea:* fields the pipeline uses have typed accessors.
type CustomFields map[string]any

// EnsureCustomFields returns the record's custom field map, allocating it
// when the fetched record carried none.
func (r *Record) EnsureCustomFields() CustomFields {
	if r.CustomFields == nil {
		r.CustomFields = CustomFields{}
	}
	return r.CustomFields
}

// QAChecked reports whether the record is marked as QA checked.
func (cf CustomFields) QAChecked() bool {
	v, _ := cf[FieldQAChecked].(bool)
	return v
}

// SetQAChecked marks the record as QA checked.
func (cf CustomFields) SetQAChecked(v bool) {
	cf[FieldQAChecked] = v
}

// LeadRecordID returns the iaea:lead_record_id value, or "" if absent or
// not a string.
func (cf CustomFields) LeadRecordID() string {
	v, _ := cf[FieldLeadRecordID].(string)
	return v
}

// Descriptors returns the iaea:descriptors_cai_text list. JSON decoding
// leaves the entries as []any; both that form and []string are accepted.
func (cf CustomFields) Descriptors() []string {
	switch v := cf[FieldDescriptors].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SetDescriptors replaces the iaea:descriptors_cai_text list.
func (cf CustomFields) SetDescriptors(descriptors []string) {
	cf[FieldDescriptors] = descriptors
}

// Clone returns a deep copy of the record via a JSON round-trip, so
// corrections can be applied without touching the fetched original.
func (r *Record) Clone() (*Record, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var out Record
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
