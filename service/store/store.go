package store

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
	"github.com/fundprospect/prospectus-pipeline/adapter/database"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
)

const summaryKey = "download_summary.json"

// the summary log keeps only the most recent entries
const summaryLimit = 1000

// Metadata is the sidecar written next to every stored document
type Metadata struct {
	Ticker       string `json:"fund_symbol"`
	FilingDate   string `json:"filing_date"`
	DocumentType string `json:"document_type"`
	SourceURL    string `json:"source_url"`
	FileSize     int    `json:"file_size"`
	Form         string `json:"form_type"`
	Cik          string `json:"cik"`
	Accession    string `json:"accession_number"`
	Title        string `json:"document_title,omitempty"`
	ContentHash  string `json:"content_hash"`
	Downloaded   string `json:"download_timestamp"`
	LocalPath    string `json:"local_file_path"`
}

type summaryEntry struct {
	Ticker     string `json:"fund_symbol"`
	FilingDate string `json:"filing_date"`
	Downloaded string `json:"download_timestamp"`
	Form       string `json:"form_type"`
	FilePath   string `json:"file_path"`
	FileSize   int    `json:"file_size"`
	Success    bool   `json:"success"`
}

type summaryLog struct {
	Downloads   []summaryEntry `json:"downloads"`
	LastUpdated string         `json:"last_updated"`
	Total       int            `json:"total_downloads"`
}

type Service struct {
	bucket bucket.Bucket
	db     database.Database
	logger logger.Logger
	now    func() time.Time
}

// New builds the store service; db may be nil when no catalog is configured
func New(b bucket.Bucket, db database.Database, l logger.Logger) *Service {
	return &Service{bucket: b, db: db, logger: l, now: time.Now}
}

// Save persists the document, its metadata sidecar, the summary log entry
// and, when a catalog is wired, the fund and download rows
func (s *Service) Save(fund *prospectus.Fund, p *prospectus.Prospectus) (string, error) {

	key := fmt.Sprintf("%s/%s", strings.ToUpper(p.Ticker), p.Filename())

	if err := s.bucket.PutObject(key, p.Content); err != nil {
		return "", fmt.Errorf("store document %s: %w", key, err)
	}
	s.logger.Info(fmt.Sprintf(
		"Saved prospectus to %s (%s)", key, prospectus.FormatSize(int64(len(p.Content))),
	))

	// metadata and summary failures never undo a stored document
	if err := s.saveMetadata(key, p); err != nil {
		s.logger.Error(fmt.Sprintf("Metadata for %s: %s", key, err.Error()))
	}
	if err := s.updateSummary(key, p); err != nil {
		s.logger.Error(fmt.Sprintf("Summary log: %s", err.Error()))
	}
	s.catalog(fund, p, key)

	return key, nil
}

// Existing returns the stored document key for a ticker, empty when none
func (s *Service) Existing(ticker string) (string, error) {

	keys, err := s.bucket.ListObjects(strings.ToUpper(ticker) + "/")
	if err != nil {
		return "", err
	}

	docs := []string{}
	for _, k := range keys {
		if strings.HasSuffix(k, ".meta.json") {
			continue
		}
		docs = append(docs, k)
	}
	if len(docs) < 1 {
		return "", nil
	}

	// newest by the filing date embedded in the filename, not by key order,
	// since the form type sorts ahead of the date
	sort.Strings(docs)
	best := docs[0]
	bestDate := filenameDate(best)
	for _, k := range docs[1:] {
		if d := filenameDate(k); d.After(bestDate) {
			best, bestDate = k, d
		}
	}
	return best, nil
}

// Metadata loads the sidecar for a stored document key
func (s *Service) Metadata(key string) (*Metadata, error) {

	data, err := s.bucket.GetObject(key + ".meta.json")
	if err != nil {
		return nil, err
	}

	meta := &Metadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, err
	}
	return meta, nil
}

/*
Helper functions
*/

// filenameDate recovers the filing date segment of TICKER_FORM_DATE_ACC keys
func filenameDate(key string) time.Time {
	base := key
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}

	for _, seg := range strings.Split(base, "_") {
		if len(seg) != 8 {
			continue
		}
		if d, err := time.Parse("20060102", seg); err == nil {
			return d
		}
	}
	return time.Time{}
}

func (s *Service) saveMetadata(key string, p *prospectus.Prospectus) error {

	meta := &Metadata{
		Ticker:       p.Ticker,
		FilingDate:   p.FilingDate.Format(time.RFC3339),
		DocumentType: p.DocumentType,
		SourceURL:    p.SourceURL,
		FileSize:     len(p.Content),
		Form:         p.Form,
		Cik:          p.Cik,
		Accession:    p.AccessionNumber,
		Title:        p.Title,
		ContentHash:  p.Hash(),
		Downloaded:   s.now().Format(time.RFC3339),
		LocalPath:    key,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	return s.bucket.PutObject(key+".meta.json", data)
}

func (s *Service) updateSummary(key string, p *prospectus.Prospectus) error {

	log := &summaryLog{}
	data, err := s.bucket.GetObject(summaryKey)
	if err == nil {
		if err := json.Unmarshal(data, log); err != nil {
			return err
		}
	} else if err != bucket.NotFoundErr {
		return err
	}

	log.Downloads = append(log.Downloads, summaryEntry{
		Ticker:     p.Ticker,
		FilingDate: p.FilingDate.Format(time.RFC3339),
		Downloaded: s.now().Format(time.RFC3339),
		Form:       p.Form,
		FilePath:   key,
		FileSize:   len(p.Content),
		Success:    true,
	})
	if len(log.Downloads) > summaryLimit {
		log.Downloads = log.Downloads[len(log.Downloads)-summaryLimit:]
	}
	log.LastUpdated = s.now().Format(time.RFC3339)
	log.Total = len(log.Downloads)

	data, err = json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}

	return s.bucket.PutObject(summaryKey, data)
}

func (s *Service) catalog(fund *prospectus.Fund, p *prospectus.Prospectus, key string) {

	if s.db == nil {
		return
	}

	err := s.db.InsertFund(fund)
	if err != nil && err != database.DuplicateErr {
		s.logger.Error(fmt.Sprintf("Catalog fund insert: %s", err.Error()))
	}

	err = s.db.InsertDownload(&database.Download{
		Ticker:          fund.Ticker,
		AccessionNumber: p.AccessionNumber,
		Form:            p.Form,
		FilingDate:      p.FilingDate,
		DocumentType:    p.DocumentType,
		FilePath:        key,
		FileSize:        len(p.Content),
		ContentHash:     p.Hash(),
		SourceURL:       p.SourceURL,
	})
	if err != nil && err != database.DuplicateErr {
		s.logger.Error(fmt.Sprintf("Catalog download insert: %s", err.Error()))
	}
}
