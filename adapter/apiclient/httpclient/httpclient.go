package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"go.uber.org/ratelimit"
)

type httpClient struct {
	client    *http.Client
	userAgent string
	limiter   ratelimit.Limiter
	filesBase string
	dataBase  string
}

// New builds an EDGAR client; reqPerSec must stay at or below the archive's
// published request cap
func New(userAgent string, reqPerSec int) *httpClient {
	if reqPerSec < 1 {
		reqPerSec = 1
	}
	return &httpClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: userAgent,
		limiter:   ratelimit.New(reqPerSec),
		filesBase: "https://www.sec.gov",
		dataBase:  "https://data.sec.gov",
	}
}

func (c *httpClient) GetMutualFundTickers() ([]*apiclient.MutualFundRecord, error) {

	data, err := c.get(c.filesBase + "/files/company_tickers_mf.json")
	if err != nil {
		return nil, err
	}

	res := &struct {
		Fields []string        `json:"fields"`
		Data   [][]interface{} `json:"data"`
	}{}
	err = json.Unmarshal(data, res)
	if err != nil {
		return nil, err
	}
	if len(res.Fields) < 4 {
		return nil, errors.New("Unexpected mutual fund ticker file structure")
	}

	records := []*apiclient.MutualFundRecord{}
	for _, row := range res.Data {
		if len(row) < 4 {
			continue
		}
		records = append(records, &apiclient.MutualFundRecord{
			Cik:      Zfill(toString(row[0])),
			SeriesId: toString(row[1]),
			ClassId:  toString(row[2]),
			Symbol:   toString(row[3]),
		})
	}

	return records, nil
}

func (c *httpClient) GetCompanyTickers() ([]*apiclient.CompanyRecord, error) {

	data, err := c.get(c.filesBase + "/files/company_tickers.json")
	if err != nil {
		return nil, err
	}

	res := map[string]struct {
		Cik    int64  `json:"cik_str"`
		Ticker string `json:"ticker"`
		Title  string `json:"title"`
	}{}
	err = json.Unmarshal(data, &res)
	if err != nil {
		return nil, err
	}

	// the file keys entries "0", "1", ... by descending market cap and
	// title searches depend on that ranking, so restore it after the map
	// decode scrambles it
	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})

	records := []*apiclient.CompanyRecord{}
	for _, k := range keys {
		v := res[k]
		records = append(records, &apiclient.CompanyRecord{
			Cik:    Zfill(fmt.Sprintf("%d", v.Cik)),
			Ticker: v.Ticker,
			Title:  v.Title,
		})
	}

	return records, nil
}

func (c *httpClient) GetSubmissions(cik string) (*apiclient.Submissions, error) {

	cik = Zfill(cik)
	data, err := c.get(fmt.Sprintf("%s/submissions/CIK%s.json", c.dataBase, cik))
	if err != nil {
		return nil, err
	}

	res := &submissionsResponse{}
	err = json.Unmarshal(data, res)
	if err != nil {
		return nil, err
	}
	if res.Filings.Recent == nil {
		return nil, errors.New("No recent filings in submissions data")
	}

	return &apiclient.Submissions{
		Cik:     cik,
		Name:    res.Name,
		Tickers: res.Tickers,
		Filings: res.Filings.Recent.transform(cik),
	}, nil
}

func (c *httpClient) ProbeCik(cik string) (string, error) {

	data, err := c.get(fmt.Sprintf("%s/api/xbrl/companyfacts/CIK%s.json", c.dataBase, Zfill(cik)))
	if err != nil {
		return "", err
	}

	res := &struct {
		EntityName string `json:"entityName"`
	}{}
	err = json.Unmarshal(data, res)
	if err != nil {
		return "", err
	}

	return res.EntityName, nil
}

// GetDocument downloads a filing document, retrying transient failures with
// capped exponential backoff
func (c *httpClient) GetDocument(url string) ([]byte, error) {

	var data []byte
	op := func() error {
		var err error
		data, err = c.get(url)
		if err == apiclient.NotFoundErr {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}

	return data, nil
}

type submissionsResponse struct {
	Name    string   `json:"name"`
	Cik     string   `json:"cik"`
	Tickers []string `json:"tickers"`
	Filings struct {
		Recent *filingData `json:"recent"`
	} `json:"filings"`
}

type filingData struct {
	Ids         []string `json:"accessionNumber"`
	FilingDates []string `json:"filingDate"`
	Forms       []string `json:"form"`
	PrimDocs    []string `json:"primaryDocument"`
}

func (d *filingData) transform(cik string) []*prospectus.Filing {

	filings := []*prospectus.Filing{}

	for i, form := range d.Forms {

		if !isProspectusForm(form) {
			continue
		}
		if i >= len(d.Ids) || i >= len(d.FilingDates) || i >= len(d.PrimDocs) {
			continue
		}

		// zero time when the archive hands back an unparseable date
		fd, err := time.Parse("2006-01-02", d.FilingDates[i])
		if err != nil {
			fd = time.Time{}
		}

		filings = append(filings, &prospectus.Filing{
			AccessionNumber: d.Ids[i],
			Form:            form,
			FilingDate:      fd,
			PrimaryDocument: d.PrimDocs[i],
			DocumentURL:     prospectus.DocumentURL(cik, d.Ids[i], d.PrimDocs[i]),
		})
	}

	return filings
}

func isProspectusForm(form string) bool {
	for _, p := range prospectus.FormPriority {
		if strings.HasPrefix(form, p) {
			return true
		}
	}
	return false
}

// Zfill pads a CIK to the 10 digits the data API expects
func Zfill(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}

// the ticker file mixes numeric and string cells in its rows
func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%.0f", val)
	default:
		return ""
	}
}

func (c *httpClient) get(url string) ([]byte, error) {

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Add("User-Agent", c.userAgent)
	req.Header.Add("Accept", "application/json, text/html, */*")
	req.Header.Add("Connection", "keep-alive")

	// block until the rate limiter hands out a slot
	c.limiter.Take()
	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, apiclient.NotFoundErr
	}
	if res.StatusCode == http.StatusTooManyRequests {
		return nil, apiclient.RateLimitedErr
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errors.New(fmt.Sprintf("Got status code '%s'", res.Status))
	}

	return io.ReadAll(res.Body)
}
