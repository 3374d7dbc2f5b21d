package discover

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
)

var NotDiscoveredErr error = errors.New("Could not discover fund information or CIK")
var NotAFundErr error = errors.New("Symbol is not a fund ticker")

// Discovery method labels carried on the resulting fund
const (
	ViaMutualFundList = "mutual_fund_list"
	ViaCompanyList    = "company_list"
	ViaDirectCik      = "direct_cik"
	ViaPattern        = "pattern"
	ViaSecSearch      = "sec_search"
)

type Service struct {
	client apiclient.Client
	logger logger.Logger

	// ticker files are fetched once and kept for the service lifetime
	mfRecords      []*apiclient.MutualFundRecord
	companyRecords []*apiclient.CompanyRecord
}

func New(client apiclient.Client, l logger.Logger) *Service {
	return &Service{client: client, logger: l}
}

// Discover resolves a ticker symbol to an issuer, trying each lookup
// strategy in order until one produces a fund
func (s *Service) Discover(ticker string) (*prospectus.Fund, error) {

	fund, err := s.fromMutualFundList(ticker)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Mutual fund list lookup for %s: %s", ticker, err.Error()))
	}
	if fund != nil {
		return fund, nil
	}

	fund, err = s.fromCompanyList(ticker)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Company list lookup for %s: %s", ticker, err.Error()))
	}
	if fund != nil {
		return fund, nil
	}

	fund, err = s.byDirectCik(ticker)
	if err != nil && err != apiclient.NotFoundErr {
		s.logger.Warn(fmt.Sprintf("Direct CIK lookup for %s: %s", ticker, err.Error()))
	}
	if fund != nil {
		return fund, nil
	}

	// symbols that are clearly stocks or junk never reach pattern matching
	if isLikelyStock(ticker) || isJunkSymbol(ticker) {
		return nil, NotAFundErr
	}

	fund, err = s.byPattern(ticker)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Pattern lookup for %s: %s", ticker, err.Error()))
	}
	if fund != nil {
		return fund, nil
	}

	fund, err = s.bySecSearch(ticker)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Provider search for %s: %s", ticker, err.Error()))
	}
	if fund != nil {
		return fund, nil
	}

	return nil, NotDiscoveredErr
}

func (s *Service) fromMutualFundList(ticker string) (*prospectus.Fund, error) {

	if s.mfRecords == nil {
		records, err := s.client.GetMutualFundTickers()
		if err != nil {
			return nil, err
		}
		s.mfRecords = records
	}

	for _, rec := range s.mfRecords {
		if !strings.EqualFold(rec.Symbol, ticker) {
			continue
		}

		provider := s.providerFromCik(rec.Cik)
		title := fmt.Sprintf("Fund %s", rec.Symbol)
		if len(provider) > 0 {
			title = fmt.Sprintf("%s %s", provider, rec.Symbol)
		}

		return &prospectus.Fund{
			Ticker:    strings.ToUpper(rec.Symbol),
			Cik:       rec.Cik,
			Title:     title,
			Type:      prospectus.FundMutual,
			Provider:  provider,
			SeriesId:  rec.SeriesId,
			ClassId:   rec.ClassId,
			Discovery: ViaMutualFundList,
		}, nil
	}

	return nil, nil
}

func (s *Service) fromCompanyList(ticker string) (*prospectus.Fund, error) {

	records, err := s.companyList()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if !strings.EqualFold(rec.Ticker, ticker) {
			continue
		}

		// a plain equity listing is only a fund when its title says so
		title := strings.ToUpper(rec.Title)
		if !strings.Contains(title, "ETF") &&
			!strings.Contains(title, "EXCHANGE TRADED") &&
			!strings.Contains(title, "INDEX FUND") {
			continue
		}

		return &prospectus.Fund{
			Ticker:    strings.ToUpper(rec.Ticker),
			Cik:       rec.Cik,
			Title:     rec.Title,
			Type:      prospectus.FundETF,
			Provider:  providerFromName(rec.Title),
			Discovery: ViaCompanyList,
		}, nil
	}

	return nil, nil
}

func (s *Service) byDirectCik(ticker string) (*prospectus.Fund, error) {

	if len(ticker) > 10 || !isDigits(ticker) {
		return nil, nil
	}

	name, err := s.client.ProbeCik(ticker)
	if err != nil {
		return nil, err
	}

	return &prospectus.Fund{
		Ticker:    ticker,
		Cik:       zfill(ticker),
		Title:     name,
		Provider:  providerFromName(name),
		Discovery: ViaDirectCik,
	}, nil
}

func (s *Service) byPattern(ticker string) (*prospectus.Fund, error) {

	provider, fundType := detectProvider(strings.ToUpper(ticker))
	if len(provider) < 1 {
		return nil, nil
	}

	cik, err := s.providerCik(provider)
	if err != nil {
		return nil, err
	}
	if len(cik) < 1 {
		return nil, nil
	}

	// a pattern hit is only trusted when the issuer actually filed for it
	ok, err := s.validateFund(ticker, cik)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Info(fmt.Sprintf(
			"%s matches the %s pattern but has no filings with that issuer", ticker, provider,
		))
		return nil, nil
	}

	return &prospectus.Fund{
		Ticker:    strings.ToUpper(ticker),
		Cik:       cik,
		Title:     fmt.Sprintf("%s %s", provider, strings.ToUpper(ticker)),
		Type:      fundType,
		Provider:  provider,
		Discovery: ViaPattern,
	}, nil
}

// searchProviders are the major fund issuers checked one by one when no
// other strategy resolves a ticker
var searchProviders = []string{
	"Vanguard", "SPDR", "iShares", "Invesco",
	"Fidelity", "Schwab", "ProShares", "ARK",
}

// bySecSearch walks the major providers and accepts the first one whose
// recent prospectus filings reference the ticker
func (s *Service) bySecSearch(ticker string) (*prospectus.Fund, error) {

	upper := strings.ToUpper(ticker)
	for _, provider := range searchProviders {

		cik, err := s.providerCik(provider)
		if err != nil {
			return nil, err
		}
		if len(cik) < 1 {
			continue
		}

		ok, err := s.validateFund(ticker, cik)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		return &prospectus.Fund{
			Ticker:    upper,
			Cik:       cik,
			Title:     fmt.Sprintf("%s %s", provider, upper),
			Type:      prospectus.FundETF,
			Provider:  provider,
			Discovery: ViaSecSearch,
		}, nil
	}

	return nil, nil
}

// validateFund checks the issuer's recent prospectus filings for a primary
// document referencing the ticker
func (s *Service) validateFund(ticker, cik string) (bool, error) {

	subs, err := s.client.GetSubmissions(cik)
	if err != nil {
		if err == apiclient.NotFoundErr {
			return false, nil
		}
		return false, err
	}

	upper := strings.ToUpper(ticker)
	for _, f := range subs.Filings {
		if strings.Contains(strings.ToUpper(f.PrimaryDocument), upper) {
			return true, nil
		}
	}

	return false, nil
}

/*
Helper functions
*/

func (s *Service) companyList() ([]*apiclient.CompanyRecord, error) {
	if s.companyRecords == nil {
		records, err := s.client.GetCompanyTickers()
		if err != nil {
			return nil, err
		}
		s.companyRecords = records
	}
	return s.companyRecords, nil
}

// providerCik resolves a provider name to an issuer CIK by searching the
// company ticker file titles
func (s *Service) providerCik(provider string) (string, error) {

	records, err := s.companyList()
	if err != nil {
		return "", err
	}

	for _, term := range providerSearchTerms(provider) {
		upper := strings.ToUpper(term)
		for _, rec := range records {
			if strings.Contains(strings.ToUpper(rec.Title), upper) {
				return rec.Cik, nil
			}
		}
	}

	return "", nil
}

func (s *Service) providerFromCik(cik string) string {
	name, err := s.client.ProbeCik(cik)
	if err != nil {
		return ""
	}
	return providerFromName(name)
}

var providerIndicators = []struct {
	indicator string
	provider  string
}{
	{"VANGUARD", "Vanguard"},
	{"STATE STREET", "SPDR"},
	{"SPDR", "SPDR"},
	{"BLACKROCK", "iShares"},
	{"ISHARES", "iShares"},
	{"INVESCO", "Invesco"},
	{"FIDELITY", "Fidelity"},
	{"SCHWAB", "Schwab"},
	{"PROSHARES", "ProShares"},
	{"ARK", "ARK"},
}

func providerFromName(name string) string {
	upper := strings.ToUpper(name)
	for _, p := range providerIndicators {
		if strings.Contains(upper, p.indicator) {
			return p.provider
		}
	}
	return ""
}

func providerSearchTerms(provider string) []string {
	switch provider {
	case "SPDR":
		return []string{"State Street", "SPDR"}
	case "iShares":
		return []string{"BlackRock", "iShares"}
	case "Schwab":
		return []string{"Schwab", "Charles Schwab"}
	case "ARK":
		return []string{"ARK Investment"}
	default:
		return []string{provider}
	}
}

var iSharesTickers = map[string]bool{
	"IWM": true, "EFA": true, "IEF": true, "IJH": true, "IJR": true, "TLT": true,
}

var vanguardEtfTickers = map[string]bool{
	"VTI": true, "VOO": true, "VEA": true, "BND": true,
}

// detectProvider keeps only ticker patterns reliable enough to act on
func detectProvider(symbol string) (string, string) {
	switch {
	case prospectus.IsVanguardTicker(symbol):
		return "Vanguard", prospectus.FundMutual
	case len(symbol) == 5 && strings.HasPrefix(symbol, "F") && strings.HasSuffix(symbol, "X"):
		return "Fidelity", prospectus.FundMutual
	case symbol == "SPY" || symbol == "GLD":
		return "SPDR", prospectus.FundETF
	case len(symbol) == 3 && strings.HasPrefix(symbol, "XL"):
		// sector ETF family
		return "SPDR", prospectus.FundETF
	case symbol == "QQQ" || symbol == "QQQM":
		return "Invesco", prospectus.FundETF
	case iSharesTickers[symbol]:
		return "iShares", prospectus.FundETF
	case vanguardEtfTickers[symbol]:
		return "Vanguard", prospectus.FundETF
	}
	return "", ""
}

var majorStocks = map[string]bool{
	"AAPL": true, "MSFT": true, "GOOGL": true, "GOOG": true, "AMZN": true,
	"TSLA": true, "META": true, "NVDA": true, "JPM": true, "JNJ": true,
	"V": true, "PG": true, "HD": true, "MA": true, "UNH": true, "DIS": true,
	"PYPL": true, "ADBE": true, "NFLX": true, "CRM": true, "TMO": true,
	"ABT": true, "COST": true, "PFE": true, "XOM": true, "KO": true,
	"PEP": true, "WMT": true,
}

func isLikelyStock(symbol string) bool {
	return majorStocks[strings.ToUpper(symbol)]
}

func isJunkSymbol(symbol string) bool {
	upper := strings.ToUpper(symbol)
	for _, p := range []string{"UNKNOWN", "RANDOM", "TEST", "FAKE", "INVALID", "SAMPLE"} {
		if strings.Contains(upper, p) {
			return true
		}
	}

	digits := 0
	for _, r := range upper {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits > 2
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func zfill(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}
