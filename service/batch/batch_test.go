package batch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket/folder"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger/console"
	"github.com/fundprospect/prospectus-pipeline/adapter/queue/buffer"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"github.com/fundprospect/prospectus-pipeline/service/discover"
	"github.com/fundprospect/prospectus-pipeline/service/fetch"
	"github.com/fundprospect/prospectus-pipeline/service/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	mfRecords   []*apiclient.MutualFundRecord
	submissions map[string]*apiclient.Submissions
	documents   map[string][]byte
}

func (f *fakeClient) GetMutualFundTickers() ([]*apiclient.MutualFundRecord, error) {
	return f.mfRecords, nil
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

func newTestClient() *fakeClient {
	url := "https://www.sec.gov/Archives/edgar/data/862084/000086208424000123/vusxx497k.htm"
	return &fakeClient{
		mfRecords: []*apiclient.MutualFundRecord{
			{Cik: "0000862084", SeriesId: "S000002979", ClassId: "C000008163", Symbol: "VUSXX"},
		},
		submissions: map[string]*apiclient.Submissions{
			"0000862084": {
				Cik: "0000862084",
				Filings: []*prospectus.Filing{
					{
						AccessionNumber: "0000862084-24-000123",
						Form:            "497K",
						FilingDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
						PrimaryDocument: "vusxx497k.htm",
						DocumentURL:     url,
					},
				},
			},
		},
		documents: map[string][]byte{
			url: []byte("<html><head><title>Vanguard Treasury</title></head></html>"),
		},
	}
}

func newService(t *testing.T, client *fakeClient) (*Service, bucket.Bucket, *store.Service) {
	b := folder.New(t.TempDir())
	l := console.New()
	st := store.New(b, nil, l)
	s := New(
		discover.New(client, l),
		fetch.New(client, l),
		st,
		client,
		b,
		buffer.New(),
		l,
	)
	return s, b, st
}

func TestProcessTickers(t *testing.T) {
	s, b, _ := newService(t, newTestClient())

	results, err := s.ProcessTickers([]string{"VUSXX", "bad!!", "AAPL", "ZZZZ"}, false, "test")
	require.NoError(t, err)
	require.Len(t, results, 4)

	byTicker := map[string]*prospectus.Result{}
	for _, r := range results {
		byTicker[r.Fund.Ticker] = r
	}

	vusxx := byTicker["VUSXX"]
	require.NotNil(t, vusxx)
	assert.True(t, vusxx.Success)
	assert.False(t, vusxx.Skipped)
	assert.Equal(t, "497K", vusxx.Form)
	assert.Equal(t, "VUSXX/VUSXX_497K_20240315_000086208424000123.html", vusxx.FilePath)
	assert.Equal(t, discover.ViaMutualFundList, vusxx.Fund.Discovery)

	assert.Equal(t, prospectus.CatInvalidSymbol, byTicker["bad!!"].ErrCategory)
	assert.False(t, byTicker["AAPL"].Success)
	assert.Equal(t, discover.NotAFundErr.Error(), byTicker["AAPL"].ErrMessage)
	assert.False(t, byTicker["ZZZZ"].Success)

	data, err := b.GetObject("test_batch_results.json")
	require.NoError(t, err)

	saved := struct {
		Kind       string `json:"batch_type"`
		Total      int    `json:"total_funds"`
		Successful int    `json:"successful_downloads"`
		Failed     int    `json:"failed_downloads"`
	}{}
	require.NoError(t, json.Unmarshal(data, &saved))
	assert.Equal(t, "test", saved.Kind)
	assert.Equal(t, 4, saved.Total)
	assert.Equal(t, 1, saved.Successful)
	assert.Equal(t, 3, saved.Failed)
}

func TestProcessTickersSkipsExisting(t *testing.T) {
	client := newTestClient()
	s, _, st := newService(t, client)

	key, err := st.Save(
		&prospectus.Fund{Ticker: "VUSXX", Cik: "0000862084"},
		&prospectus.Prospectus{
			Ticker:          "VUSXX",
			Cik:             "0000862084",
			AccessionNumber: "0000862084-24-000123",
			Form:            "497K",
			FilingDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			DocumentType:    prospectus.DocHTML,
			Content:         []byte("stored"),
		},
	)
	require.NoError(t, err)

	results, err := s.ProcessTickers([]string{"VUSXX"}, true, "test")
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, results[0].Skipped)
	assert.True(t, results[0].Success)
	assert.Equal(t, key, results[0].FilePath)
}

func TestVanguardTickers(t *testing.T) {
	client := newTestClient()
	client.mfRecords = []*apiclient.MutualFundRecord{
		{Cik: "0000862084", Symbol: "vusxx"},
		{Cik: "0000036405", Symbol: "VFIAX"},
		{Cik: "0000315700", Symbol: "SPAXX"},
		{Cik: "0000320193", Symbol: "AAPL"},
	}
	s, _, _ := newService(t, client)

	tickers, err := s.VanguardTickers()
	require.NoError(t, err)
	assert.Equal(t, []string{"VFIAX", "VUSXX"}, tickers)
}
