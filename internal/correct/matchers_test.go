package correct

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/inis-qa/internal/qareport"
	"github.com/pdiddy/inis-qa/pkg/types"
)

func recordWithCreators() *types.Record {
	return &types.Record{
		ID: "abc12-def34",
		Metadata: types.Metadata{
			Title: "Old Title",
			Creators: []types.Creator{
				{
					PersonOrOrg: types.PersonOrOrg{Type: types.CreatorPersonal, Name: "Doe, Jane"},
					Affiliations: []types.Affiliation{
						{Name: "Old Institute"},
						{Name: "Other Lab"},
					},
				},
				{
					PersonOrOrg: types.PersonOrOrg{Type: types.CreatorPersonal, Name: "Roe, Sam"},
					Affiliations: []types.Affiliation{
						{Name: "Old Institute"},
					},
				},
				{
					PersonOrOrg: types.PersonOrOrg{Type: types.CreatorOrganizational, Name: "Old Agency"},
				},
			},
		},
		CustomFields: types.CustomFields{},
	}
}

func TestApplyAffiliationsRewritesEveryMatch(t *testing.T) {
	rec := recordWithCreators()
	pairs := []qareport.AffiliationCorrection{
		{Old: "Old Institute", Recommended: "New Institute"},
	}

	assert.Equal(t, 2, ApplyAffiliations(rec, pairs))
	assert.Equal(t, "New Institute", rec.Metadata.Creators[0].Affiliations[0].Name)
	assert.Equal(t, "Other Lab", rec.Metadata.Creators[0].Affiliations[1].Name)
	assert.Equal(t, "New Institute", rec.Metadata.Creators[1].Affiliations[0].Name)

	// No affiliation named exactly "Old Institute" remains.
	for _, creator := range rec.Metadata.Creators {
		for _, aff := range creator.Affiliations {
			assert.NotEqual(t, "Old Institute", aff.Name)
		}
	}
}

func TestApplyAffiliationsSkipsEmptyRecommendation(t *testing.T) {
	rec := recordWithCreators()
	pairs := []qareport.AffiliationCorrection{
		{Old: "Old Institute", Recommended: ""},
	}
	assert.Equal(t, 0, ApplyAffiliations(rec, pairs))
	assert.Equal(t, "Old Institute", rec.Metadata.Creators[0].Affiliations[0].Name)
}

func TestApplyOrgAuthorsScopedToOrganizationalCreators(t *testing.T) {
	rec := recordWithCreators()
	// "Old Agency" also appears as a personal creator name; only the
	// organizational one may change.
	rec.Metadata.Creators[0].PersonOrOrg.Name = "Old Agency"

	pairs := []qareport.OrgAuthorCorrection{
		{Old: "Old Agency", Recommended: "New Agency"},
	}
	assert.Equal(t, 1, ApplyOrgAuthors(rec, pairs))
	assert.Equal(t, "Old Agency", rec.Metadata.Creators[0].PersonOrOrg.Name)
	assert.Equal(t, "New Agency", rec.Metadata.Creators[2].PersonOrOrg.Name)
}

func TestApplyDescriptorDeletionsCaseInsensitiveIdempotent(t *testing.T) {
	rec := &types.Record{CustomFields: types.CustomFields{}}
	rec.CustomFields.SetDescriptors([]string{"REACTOR", "Fuel"})

	assert.Equal(t, 1, ApplyDescriptorDeletions(rec, []string{"Reactor"}))
	assert.Equal(t, []string{"Fuel"}, rec.CustomFields.Descriptors())

	// Re-applying the same deletion is a no-op.
	assert.Equal(t, 0, ApplyDescriptorDeletions(rec, []string{"Reactor"}))
	assert.Equal(t, []string{"Fuel"}, rec.CustomFields.Descriptors())
}

func TestApplyDescriptorDeletionsEmptyList(t *testing.T) {
	rec := &types.Record{CustomFields: types.CustomFields{}}
	assert.Equal(t, 0, ApplyDescriptorDeletions(rec, []string{"Anything"}))
}

func TestAddRelatedIdentifiersDeduplicates(t *testing.T) {
	rec := &types.Record{}
	add := []types.RelatedIdentifier{{Identifier: "10.1/x", Scheme: "doi"}}

	assert.Equal(t, 1, AddRelatedIdentifiers(rec, add))
	assert.Equal(t, 0, AddRelatedIdentifiers(rec, add))
	assert.Len(t, rec.Metadata.RelatedIdentifiers, 1)
}

func TestAddRelatedIdentifiersSkipsEmpty(t *testing.T) {
	rec := &types.Record{}
	assert.Equal(t, 0, AddRelatedIdentifiers(rec, []types.RelatedIdentifier{{Scheme: "doi"}}))
	assert.Empty(t, rec.Metadata.RelatedIdentifiers)
}

func TestSimpleOverwrites(t *testing.T) {
	rec := recordWithCreators()
	assert.Equal(t, 1, ApplyTitle(rec, "New Title"))
	assert.Equal(t, "New Title", rec.Metadata.Title)

	assert.Equal(t, 1, ApplyAbstract(rec, "New abstract."))
	assert.Equal(t, "New abstract.", rec.Metadata.Description)

	assert.Equal(t, 1, ApplyPublicationDate(rec, "2025-06"))
	assert.Equal(t, "2025-06", rec.Metadata.PublicationDate)
}

func TestMarkQAChecked(t *testing.T) {
	rec := &types.Record{CustomFields: types.CustomFields{}}
	MarkQAChecked(rec)
	assert.True(t, rec.CustomFields.QAChecked())
}
