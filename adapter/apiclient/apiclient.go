package apiclient

import (
	"errors"

	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
)

// MutualFundRecord is one row of the mutual fund ticker file
type MutualFundRecord struct {
	Cik      string
	SeriesId string
	ClassId  string
	Symbol   string
}

// CompanyRecord is one entry of the company ticker file
type CompanyRecord struct {
	Cik    string
	Ticker string
	Title  string
}

// Submissions holds an issuer's recent prospectus filings
type Submissions struct {
	Cik     string
	Name    string
	Tickers []string
	Filings []*prospectus.Filing
}

type Client interface {
	GetMutualFundTickers() ([]*MutualFundRecord, error)
	GetCompanyTickers() ([]*CompanyRecord, error)
	GetSubmissions(cik string) (*Submissions, error)
	ProbeCik(cik string) (string, error)
	GetDocument(url string) ([]byte, error)
}

var NotFoundErr error = errors.New("Resource not found")
var RateLimitedErr error = errors.New("Rate limit exceeded")
