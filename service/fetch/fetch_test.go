package fetch

import (
	"testing"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger/console"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	submissions map[string]*apiclient.Submissions
	documents   map[string][]byte
}

func (f *fakeClient) GetMutualFundTickers() ([]*apiclient.MutualFundRecord, error) {
	return nil, nil
}

func (f *fakeClient) GetCompanyTickers() ([]*apiclient.CompanyRecord, error) {
	return nil, nil
}

func (f *fakeClient) GetSubmissions(cik string) (*apiclient.Submissions, error) {
	subs, ok := f.submissions[cik]
	if !ok {
		return nil, apiclient.NotFoundErr
	}
	return subs, nil
}

func (f *fakeClient) ProbeCik(cik string) (string, error) {
	return "", apiclient.NotFoundErr
}

func (f *fakeClient) GetDocument(url string) ([]byte, error) {
	doc, ok := f.documents[url]
	if !ok {
		return nil, apiclient.NotFoundErr
	}
	return doc, nil
}

func TestLatestProspectus(t *testing.T) {
	url := "https://www.sec.gov/Archives/edgar/data/862084/000086208424000123/vusxx497k.htm"
	client := &fakeClient{
		submissions: map[string]*apiclient.Submissions{
			"0000862084": {
				Cik: "0000862084",
				Filings: []*prospectus.Filing{
					{
						AccessionNumber: "0000862084-23-000001",
						Form:            "485BPOS",
						FilingDate:      time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
						DocumentURL:     "https://www.sec.gov/old.htm",
					},
					{
						AccessionNumber: "0000862084-24-000123",
						Form:            "497K",
						FilingDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
						DocumentURL:     url,
					},
				},
			},
		},
		documents: map[string][]byte{
			url: []byte("<html><head><title>Vanguard Treasury Money Market Fund</title></head></html>"),
		},
	}

	s := New(client, console.New())
	p, err := s.LatestProspectus(&prospectus.Fund{Ticker: "VUSXX", Cik: "0000862084"})
	require.NoError(t, err)

	assert.Equal(t, "497K", p.Form)
	assert.Equal(t, "0000862084-24-000123", p.AccessionNumber)
	assert.Equal(t, prospectus.DocHTML, p.DocumentType)
	assert.Equal(t, "Vanguard Treasury Money Market Fund", p.Title)
	assert.Equal(t, url, p.SourceURL)
}

func TestLatestProspectusNoFilings(t *testing.T) {
	client := &fakeClient{
		submissions: map[string]*apiclient.Submissions{
			"0000862084": {Cik: "0000862084", Filings: []*prospectus.Filing{}},
		},
	}

	s := New(client, console.New())
	_, err := s.LatestProspectus(&prospectus.Fund{Ticker: "VUSXX", Cik: "0000862084"})
	assert.ErrorIs(t, err, NoProspectusErr)
}
