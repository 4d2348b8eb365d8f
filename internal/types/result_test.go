package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *PipelineResult {
	acme := CompanyRecord{ID: CompanyID(CategoryStartup, "Acme"), Name: "Acme", Category: CategoryStartup}
	globex := CompanyRecord{ID: CompanyID(CategoryMNC, "Globex"), Name: "Globex", Category: CategoryMNC}
	return &PipelineResult{
		Companies: []CompanyRecord{acme, globex},
		Openings: []JobOpening{
			{ID: OpeningID(acme.ID), CompanyID: acme.ID, Title: "Data Scientist", Status: OpeningFound},
			{ID: OpeningID(globex.ID), CompanyID: globex.ID, Status: OpeningNotFound, Notes: NoRelevantOpenings},
		},
		Guides: []CommuteGuide{
			{OpeningID: OpeningID(acme.ID), CompanyID: acme.ID},
		},
	}
}

func TestCompanyAndOpeningIDs(t *testing.T) {
	assert.Equal(t, "product_based-zoho-corp", CompanyID(CategoryProductBased, "Zoho Corp."))
	assert.Equal(t, "opening-mnc-globex", OpeningID("mnc-globex"))
}

func TestCheckIntegrity_Valid(t *testing.T) {
	assert.NoError(t, sampleResult().CheckIntegrity(10))
}

func TestCheckIntegrity_UnknownCompany(t *testing.T) {
	r := sampleResult()
	r.Openings = append(r.Openings, JobOpening{ID: "opening-x", CompanyID: "startup-ghost", Status: OpeningNotFound})

	err := r.CheckIntegrity(10)
	var ie *IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Contains(t, ie.Problems[0], "startup-ghost")
}

func TestCheckIntegrity_GuideForNotFoundOpening(t *testing.T) {
	r := sampleResult()
	r.Guides = append(r.Guides, CommuteGuide{OpeningID: "opening-mnc-globex", CompanyID: "mnc-globex"})

	err := r.CheckIntegrity(10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status not_found")
}

func TestCheckIntegrity_CategoryCap(t *testing.T) {
	r := sampleResult()
	assert.NoError(t, r.CheckIntegrity(0), "zero disables the cap")
	r.Companies = append(r.Companies, CompanyRecord{ID: "startup-beta", Name: "Beta", Category: CategoryStartup})
	assert.Error(t, r.CheckIntegrity(1))
}

func TestPipelineResult_Lookups(t *testing.T) {
	r := sampleResult()

	found := r.FoundOpenings()
	require.Len(t, found, 1)
	assert.Equal(t, "Data Scientist", found[0].Title)

	_, ok := r.GuideFor(found[0].ID)
	assert.True(t, ok)
	_, ok = r.CompanyByID("mnc-globex")
	assert.True(t, ok)
	_, ok = r.OpeningByID("opening-none")
	assert.False(t, ok)
	assert.Len(t, r.CompaniesIn(CategoryProductBased), 0)
}

func TestCommuteGuide_MarkUnavailable(t *testing.T) {
	g := CommuteGuide{
		OpeningID:      "opening-a",
		CompanyID:      "a",
		Landmarks:      []Landmark{{Name: "Hitech City Metro", Kind: "metro", Distance: "1.2 km"}},
		TransitOptions: []TransitOption{{Mode: "metro", Fare: "INR 30", Duration: "20 min"}},
	}
	g.MarkUnavailable()

	assert.Equal(t, []string{SectionCabs, SectionOther}, g.Unavailable)
}

func TestJobOpening_Validate(t *testing.T) {
	found := JobOpening{ID: "opening-a", CompanyID: "a", Status: OpeningFound}
	assert.Error(t, found.Validate(), "found openings need a title")

	found.Title = "ML Engineer"
	found.ApplicationLink = "https://careers.example.com/ml"
	assert.NoError(t, found.Validate())

	notFound := JobOpening{ID: "opening-b", CompanyID: "b", Status: OpeningNotFound}
	assert.NoError(t, notFound.Validate())
}

func TestPipelineResult_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(sampleResult())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"query", "outcome", "companies", "openings", "guides"} {
		assert.Contains(t, raw, key)
	}
}
