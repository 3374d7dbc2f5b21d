package batch

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger"
	"github.com/fundprospect/prospectus-pipeline/adapter/queue"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"github.com/fundprospect/prospectus-pipeline/service/discover"
	"github.com/fundprospect/prospectus-pipeline/service/fetch"
	"github.com/fundprospect/prospectus-pipeline/service/store"
)

type Service struct {
	discover *discover.Service
	fetch    *fetch.Service
	store    *store.Service
	client   apiclient.Client
	bucket   bucket.Bucket
	queue    queue.Queue
	logger   logger.Logger
}

func New(
	d *discover.Service,
	f *fetch.Service,
	st *store.Service,
	c apiclient.Client,
	b bucket.Bucket,
	q queue.Queue,
	l logger.Logger,
) *Service {
	return &Service{discover: d, fetch: f, store: st, client: c, bucket: b, queue: q, logger: l}
}

// fundMessage extends the queue handoff with the time discovery took
type fundMessage struct {
	queue.FundMessage
	ElapsedMs int64 `json:"elapsedMs"`
}

// ProcessTickers runs discovery for every ticker, hands discovered funds to
// the retrieval stage through the queue and reports one result per ticker
func (s *Service) ProcessTickers(tickers []string, skipExisting bool, kind string) ([]*prospectus.Result, error) {

	s.logger.Info(fmt.Sprintf("Starting batch processing of %d funds", len(tickers)))
	results := []*prospectus.Result{}

	// stage one: discovery produces fund messages
	for i, t := range tickers {
		s.logger.Info(fmt.Sprintf("Processing fund %d/%d: %s", i+1, len(tickers), t))

		if res := s.discoverOne(t, skipExisting); res != nil {
			results = append(results, res)
		}
	}
	s.queue.Close()

	// stage two: retrieval drains the queue
	for {
		msg, err := s.queue.RecvMessage()
		if err != nil {
			break
		}
		results = append(results, s.fetchOne(msg))
	}

	s.logSummary(results)
	if err := s.saveResults(results, kind); err != nil {
		s.logger.Error(fmt.Sprintf("Saving batch results: %s", err.Error()))
	}

	return results, nil
}

// VanguardTickers lists every Vanguard mutual fund share class known to the
// fund ticker file
func (s *Service) VanguardTickers() ([]string, error) {

	records, err := s.client.GetMutualFundTickers()
	if err != nil {
		return nil, err
	}

	tickers := []string{}
	for _, rec := range records {
		if prospectus.IsVanguardTicker(strings.ToUpper(rec.Symbol)) {
			tickers = append(tickers, strings.ToUpper(rec.Symbol))
		}
	}
	sort.Strings(tickers)

	s.logger.Info(fmt.Sprintf("Found %d Vanguard mutual funds", len(tickers)))
	return tickers, nil
}

/*
Helper functions
*/

// discoverOne returns a terminal result, or nil when the fund was queued
func (s *Service) discoverOne(ticker string, skipExisting bool) *prospectus.Result {
	start := time.Now()

	norm, err := prospectus.NormalizeTicker(ticker)
	if err != nil {
		return failure(ticker, fmt.Sprintf("Invalid fund symbol format: %s", ticker), start)
	}

	if skipExisting {
		existing, err := s.store.Existing(norm)
		if err != nil {
			s.logger.Warn(fmt.Sprintf("Existing check for %s: %s", norm, err.Error()))
		}
		if len(existing) > 0 {
			s.logger.Info(fmt.Sprintf("Skipping %s, already stored as %s", norm, existing))
			return &prospectus.Result{
				Fund:     prospectus.Fund{Ticker: norm},
				Success:  true,
				Skipped:  true,
				FilePath: existing,
				Duration: time.Since(start),
			}
		}
	}

	fund, err := s.discover.Discover(norm)
	if err != nil {
		return failure(norm, err.Error(), start)
	}

	msg := &fundMessage{
		FundMessage: queue.FundMessage{
			Ticker:    fund.Ticker,
			Cik:       fund.Cik,
			Title:     fund.Title,
			Type:      fund.Type,
			Provider:  fund.Provider,
			SeriesId:  fund.SeriesId,
			ClassId:   fund.ClassId,
			Discovery: fund.Discovery,
		},
		ElapsedMs: time.Since(start).Milliseconds(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return failure(norm, err.Error(), start)
	}
	if err := s.queue.SendMessage(data); err != nil {
		return failure(norm, err.Error(), start)
	}

	return nil
}

func (s *Service) fetchOne(data []byte) *prospectus.Result {
	start := time.Now()

	msg := &fundMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return failure("", err.Error(), start)
	}

	fund := &prospectus.Fund{
		Ticker:    msg.Ticker,
		Cik:       msg.Cik,
		Title:     msg.Title,
		Type:      msg.Type,
		Provider:  msg.Provider,
		SeriesId:  msg.SeriesId,
		ClassId:   msg.ClassId,
		Discovery: msg.Discovery,
	}
	carried := time.Duration(msg.ElapsedMs) * time.Millisecond

	p, err := s.fetch.LatestProspectus(fund)
	if err != nil {
		res := failure(fund.Ticker, err.Error(), start)
		res.Fund = *fund
		res.Duration += carried
		return res
	}

	path, err := s.store.Save(fund, p)
	if err != nil {
		res := failure(fund.Ticker, err.Error(), start)
		res.Fund = *fund
		res.Duration += carried
		return res
	}

	s.logger.Info(fmt.Sprintf(
		"%s: success, %s (%s)", fund.Ticker, prospectus.FormatSize(int64(len(p.Content))), fund.Discovery,
	))

	return &prospectus.Result{
		Fund:       *fund,
		Success:    true,
		FilePath:   path,
		FileSize:   len(p.Content),
		FilingDate: p.FilingDate,
		Form:       p.Form,
		Duration:   time.Since(start) + carried,
	}
}

func failure(ticker, msg string, start time.Time) *prospectus.Result {
	return &prospectus.Result{
		Fund:        prospectus.Fund{Ticker: ticker},
		Success:     false,
		ErrMessage:  msg,
		ErrCategory: prospectus.Categorize(msg),
		Duration:    time.Since(start),
	}
}

func (s *Service) logSummary(results []*prospectus.Result) {

	var successful, skipped, failed, totalSize int
	methods := map[string]int{}
	categories := map[string]int{}

	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Success:
			successful++
			totalSize += r.FileSize
			method := r.Fund.Discovery
			if len(method) < 1 {
				method = "unknown"
			}
			methods[method]++
		default:
			failed++
			categories[r.ErrCategory]++
		}
	}

	s.logger.Info(fmt.Sprintf(
		"Batch done: %d funds, %d downloaded, %d skipped, %d failed, %s total",
		len(results), successful, skipped, failed, prospectus.FormatSize(int64(totalSize)),
	))
	for method, count := range methods {
		s.logger.Info(fmt.Sprintf("Discovery method %s: %d funds", method, count))
	}
	for category, count := range categories {
		s.logger.Info(fmt.Sprintf("Error category %s: %d funds", category, count))
	}
}

type resultRow struct {
	Ticker      string  `json:"ticker"`
	Title       string  `json:"title,omitempty"`
	Cik         string  `json:"cik,omitempty"`
	FundType    string  `json:"fund_type,omitempty"`
	Provider    string  `json:"provider,omitempty"`
	Success     bool    `json:"success"`
	Skipped     bool    `json:"skipped"`
	FilePath    string  `json:"file_path,omitempty"`
	ErrMessage  string  `json:"error_message,omitempty"`
	ErrCategory string  `json:"error_category,omitempty"`
	FileSize    int     `json:"file_size,omitempty"`
	FilingDate  string  `json:"filing_date,omitempty"`
	Form        string  `json:"form_type,omitempty"`
	Discovery   string  `json:"discovery_method,omitempty"`
	Seconds     float64 `json:"processing_time"`
}

func (s *Service) saveResults(results []*prospectus.Result, kind string) error {

	out := struct {
		Timestamp  string      `json:"processing_timestamp"`
		Kind       string      `json:"batch_type"`
		Total      int         `json:"total_funds"`
		Successful int         `json:"successful_downloads"`
		Skipped    int         `json:"skipped_funds"`
		Failed     int         `json:"failed_downloads"`
		Results    []resultRow `json:"results"`
	}{
		Timestamp: time.Now().Format(time.RFC3339),
		Kind:      kind,
	}

	for _, r := range results {
		row := resultRow{
			Ticker:      r.Fund.Ticker,
			Title:       r.Fund.Title,
			Cik:         r.Fund.Cik,
			FundType:    r.Fund.Type,
			Provider:    r.Fund.Provider,
			Success:     r.Success,
			Skipped:     r.Skipped,
			FilePath:    r.FilePath,
			ErrMessage:  r.ErrMessage,
			ErrCategory: r.ErrCategory,
			FileSize:    r.FileSize,
			Form:        r.Form,
			Discovery:   r.Fund.Discovery,
			Seconds:     r.Duration.Seconds(),
		}
		if !r.FilingDate.IsZero() {
			row.FilingDate = r.FilingDate.Format("2006-01-02")
		}

		out.Total++
		switch {
		case r.Skipped:
			out.Skipped++
		case r.Success:
			out.Successful++
		default:
			out.Failed++
		}
		out.Results = append(out.Results, row)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	return s.bucket.PutObject(fmt.Sprintf("%s_batch_results.json", kind), data)
}
