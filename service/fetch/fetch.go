package fetch

import (
	"errors"
	"fmt"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
)

var NoProspectusErr error = errors.New("No prospectus found in recent filings")

type Service struct {
	client apiclient.Client
	logger logger.Logger
}

func New(client apiclient.Client, l logger.Logger) *Service {
	return &Service{client: client, logger: l}
}

// LatestProspectus downloads the most recent prospectus document filed by
// the fund's issuer
func (s *Service) LatestProspectus(fund *prospectus.Fund) (*prospectus.Prospectus, error) {

	subs, err := s.client.GetSubmissions(fund.Cik)
	if err != nil {
		return nil, fmt.Errorf("submissions for CIK %s: %w", fund.Cik, err)
	}
	if len(subs.Filings) < 1 {
		return nil, NoProspectusErr
	}

	latest := prospectus.SelectLatest(subs.Filings)
	s.logger.Info(fmt.Sprintf(
		"Latest prospectus for %s: %s form %s filed %s",
		fund.Ticker, latest.AccessionNumber, latest.Form, latest.FilingDate.Format("2006-01-02"),
	))

	content, err := s.client.GetDocument(latest.DocumentURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", latest.DocumentURL, err)
	}

	docType := prospectus.DocumentType(latest.DocumentURL)

	p := &prospectus.Prospectus{
		Ticker:          fund.Ticker,
		Cik:             fund.Cik,
		AccessionNumber: latest.AccessionNumber,
		Form:            latest.Form,
		FilingDate:      latest.FilingDate,
		DocumentType:    docType,
		Content:         content,
		SourceURL:       latest.DocumentURL,
	}
	if docType == prospectus.DocHTML {
		p.Title = prospectus.ExtractTitle(content)
	}

	return p, nil
}
