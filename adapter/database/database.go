package database

import (
	"errors"
	"time"

	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
)

// Download is one catalog row describing a stored prospectus document
type Download struct {
	Ticker          string
	AccessionNumber string
	Form            string
	FilingDate      time.Time
	DocumentType    string
	FilePath        string
	FileSize        int
	ContentHash     string
	SourceURL       string
}

type Database interface {
	Close() error
	CreateBaseTables() error
	InsertFund(fund *prospectus.Fund) error
	GetFunds() ([]*prospectus.Fund, error)
	InsertDownload(dl *Download) error
	GetDownloads(ticker string) ([]*Download, error)
}

var DuplicateErr error = errors.New("Duplicate key error")
var NotFoundErr error = errors.New("Key not found error")
