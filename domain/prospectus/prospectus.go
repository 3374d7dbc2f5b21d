package prospectus

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	DocHTML = "HTML"
	DocPDF  = "PDF"

	FundETF    = "ETF"
	FundMutual = "MUTUAL_FUND"
)

// Error categories used in batch results
const (
	CatInvalidSymbol   = "INVALID_SYMBOL"
	CatDiscoveryFailed = "DISCOVERY_FAILED"
	CatNoProspectus    = "NO_PROSPECTUS"
	CatNetworkError    = "NETWORK_ERROR"
	CatRateLimited     = "RATE_LIMITED"
	CatOther           = "OTHER"
)

// FormPriority lists prospectus form types from most to least preferred
var FormPriority = []string{"497K", "497", "N-1A", "485BPOS", "485APOS"}

type Fund struct {
	Ticker    string
	Cik       string
	Title     string
	Type      string
	Provider  string
	SeriesId  string
	ClassId   string
	Discovery string
}

type Filing struct {
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	PrimaryDocument string
	DocumentURL     string
}

type Prospectus struct {
	Ticker          string
	Cik             string
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	DocumentType    string
	Content         []byte
	SourceURL       string
	Title           string
}

type Result struct {
	Fund        Fund
	Success     bool
	Skipped     bool
	FilePath    string
	ErrMessage  string
	ErrCategory string
	FileSize    int
	FilingDate  time.Time
	Form        string
	Duration    time.Duration
}

var tickerChars = regexp.MustCompile(`^[A-Z0-9.\-]+$`)

var InvalidTickerErr error = errors.New("Invalid ticker symbol")

// NormalizeTicker uppercases and validates a fund ticker symbol
func NormalizeTicker(symbol string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(symbol))
	if len(t) < 1 || len(t) > 10 {
		return "", InvalidTickerErr
	}
	if !tickerChars.MatchString(t) {
		return "", InvalidTickerErr
	}
	if strings.HasPrefix(t, "-") || strings.HasPrefix(t, ".") ||
		strings.HasSuffix(t, "-") || strings.HasSuffix(t, ".") {
		return "", InvalidTickerErr
	}
	if strings.Contains(t, "--") || strings.Contains(t, "..") {
		return "", InvalidTickerErr
	}
	if isDigits(t) {
		return "", InvalidTickerErr
	}
	return t, nil
}

// SelectLatest picks the best prospectus filing by form priority, breaking
// ties within a form type by the most recent filing date
func SelectLatest(filings []*Filing) *Filing {
	if len(filings) < 1 {
		return nil
	}

	for _, form := range FormPriority {
		var best *Filing
		for _, f := range filings {
			if !strings.HasPrefix(f.Form, form) {
				continue
			}
			if best == nil || f.FilingDate.After(best.FilingDate) {
				best = f
			}
		}
		if best != nil {
			return best
		}
	}

	best := filings[0]
	for _, f := range filings {
		if f.FilingDate.After(best.FilingDate) {
			best = f
		}
	}
	return best
}

// DocumentURL builds the archive URL for a filing document
func DocumentURL(cik, accession, primaryDoc string) string {
	return fmt.Sprintf(
		"https://www.sec.gov/Archives/edgar/data/%s/%s/%s",
		strings.TrimLeft(cik, "0"),
		strings.Replace(accession, "-", "", -1),
		primaryDoc,
	)
}

// DocumentType derives HTML or PDF from the document URL
func DocumentType(url string) string {
	lower := strings.ToLower(url)
	if strings.HasSuffix(lower, ".pdf") {
		return DocPDF
	}
	return DocHTML
}

// Hash returns the hex encoded sha256 digest of the document content
func (p *Prospectus) Hash() string {
	sum := sha256.Sum256(p.Content)
	return hex.EncodeToString(sum[:])
}

// Filename builds the storage name TICKER_FORM_YYYYMMDD_ACCESSION.ext
func (p *Prospectus) Filename() string {
	form := p.Form
	if len(form) < 1 {
		form = "UNKNOWN"
	}

	id := strings.Replace(p.AccessionNumber, "-", "", -1)
	if len(id) < 1 {
		id = "hash_" + p.Hash()[:8]
	}

	ext := ".html"
	if p.DocumentType == DocPDF {
		ext = ".pdf"
	}

	name := fmt.Sprintf(
		"%s_%s_%s_%s%s",
		strings.ToUpper(p.Ticker),
		form,
		p.FilingDate.Format("20060102"),
		id,
		ext,
	)

	return sanitizeFilename(name)
}

// ExtractTitle pulls the document title out of an HTML prospectus
func ExtractTitle(data []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	title := strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	if len(title) > 200 {
		title = title[:200]
	}
	return title
}

// Categorize maps a failure message to an error category for reporting.
// Specific matches run before the broad cik/discover catch-all so wrapped
// fetch errors keep their own category.
func Categorize(msg string) string {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "invalid") || strings.Contains(m, "format"):
		return CatInvalidSymbol
	case strings.Contains(m, "no prospectus") || strings.Contains(m, "filings"):
		return CatNoProspectus
	case strings.Contains(m, "rate limit") || strings.Contains(m, "429"):
		return CatRateLimited
	case strings.Contains(m, "status code") || strings.Contains(m, "not found") ||
		strings.Contains(m, "network") || strings.Contains(m, "timeout") ||
		strings.Contains(m, "connection"):
		return CatNetworkError
	case strings.Contains(m, "cik") || strings.Contains(m, "discover") || strings.Contains(m, "not a fund"):
		return CatDiscoveryFailed
	}
	return CatOther
}

// IsVanguardTicker reports the V****X mutual fund share class pattern
func IsVanguardTicker(ticker string) bool {
	if len(ticker) != 5 {
		return false
	}
	return strings.HasPrefix(ticker, "V") && strings.HasSuffix(ticker, "X")
}

// FormatSize renders a byte count in human readable units
func FormatSize(size int64) string {
	val := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if val < 1024 {
			return fmt.Sprintf("%.1f %s", val, unit)
		}
		val /= 1024
	}
	return fmt.Sprintf("%.1f TB", val)
}

/*
Helper functions
*/

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func sanitizeFilename(name string) string {
	for _, c := range []string{"<", ">", ":", "\"", "/", "\\", "|", "?", "*"} {
		name = strings.Replace(name, c, "_", -1)
	}

	// collapse empty segments left by replaced characters
	parts := []string{}
	for _, p := range strings.Split(name, "_") {
		if len(p) > 0 {
			parts = append(parts, p)
		}
	}
	name = strings.Join(parts, "_")

	if len(name) > 200 {
		ext := ""
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			ext = name[idx:]
			name = name[:idx]
		}
		if len(name) > 190 {
			name = name[:190]
		}
		name = name + ext
	}

	return name
}
