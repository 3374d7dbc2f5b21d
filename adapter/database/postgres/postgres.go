package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/database"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresDB struct {
	conn *pgxpool.Pool
}

func New(host, port, name, user, pass string) (*postgresDB, error) {

	conn, err := pgxpool.New(
		context.Background(),
		fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, pass, host, port, name),
	)
	if err != nil {
		return nil, err
	}

	return &postgresDB{conn: conn}, nil
}

func (db *postgresDB) Close() error {
	db.conn.Close()
	return nil
}

func (db *postgresDB) CreateBaseTables() error {

	_, err := db.conn.Exec(context.Background(), `CREATE TABLE IF NOT EXISTS fund (
		ticker VARCHAR(10) PRIMARY KEY,
		cik VARCHAR(10) NOT NULL,
		title VARCHAR(200) DEFAULT NULL,
		fund_type VARCHAR(20) DEFAULT NULL,
		provider VARCHAR(50) DEFAULT NULL,
		series_id VARCHAR(20) DEFAULT NULL,
		class_id VARCHAR(20) DEFAULT NULL,
		discovery VARCHAR(50) DEFAULT NULL
	);`)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(context.Background(), `CREATE TABLE IF NOT EXISTS download (
		id UUID PRIMARY KEY,
		fund_ticker VARCHAR(10) REFERENCES fund(ticker) ON DELETE CASCADE,
		accession_number VARCHAR(25) NOT NULL,
		form VARCHAR(20) NOT NULL,
		filing_date TIMESTAMP DEFAULT NULL,
		document_type VARCHAR(10) NOT NULL,
		file_path VARCHAR(300) NOT NULL,
		file_size INTEGER NOT NULL,
		content_hash VARCHAR(64) NOT NULL,
		source_url VARCHAR(300) NOT NULL,
		downloaded_at TIMESTAMP NOT NULL DEFAULT NOW(),
		CONSTRAINT unique_ticker_accession UNIQUE(fund_ticker, accession_number)
	);`)
	if err != nil {
		return err
	}

	return nil
}

func (db *postgresDB) InsertFund(fund *prospectus.Fund) error {

	_, err := db.conn.Exec(
		context.Background(),
		`INSERT INTO fund (ticker, cik, title, fund_type, provider, series_id, class_id, discovery)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		fund.Ticker,
		fund.Cik,
		fund.Title,
		fund.Type,
		fund.Provider,
		fund.SeriesId,
		fund.ClassId,
		fund.Discovery,
	)

	return errorWrapper(err)
}

func (db *postgresDB) GetFunds() ([]*prospectus.Fund, error) {

	rows, err := db.conn.Query(
		context.Background(),
		`SELECT ticker, cik, title, fund_type, provider, series_id, class_id, discovery FROM fund;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	funds := []*prospectus.Fund{}
	for rows.Next() {
		f := &prospectus.Fund{}
		if err := rows.Scan(
			&f.Ticker, &f.Cik, &f.Title, &f.Type,
			&f.Provider, &f.SeriesId, &f.ClassId, &f.Discovery,
		); err != nil {
			return nil, err
		}
		funds = append(funds, f)
	}

	return funds, nil
}

func (db *postgresDB) InsertDownload(dl *database.Download) error {

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		context.Background(),
		`INSERT INTO download (id, fund_ticker, accession_number, form, filing_date,
			document_type, file_path, file_size, content_hash, source_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);`,
		id,
		dl.Ticker,
		dl.AccessionNumber,
		dl.Form,
		nullTime(dl.FilingDate),
		dl.DocumentType,
		dl.FilePath,
		dl.FileSize,
		dl.ContentHash,
		dl.SourceURL,
	)

	return errorWrapper(err)
}

func (db *postgresDB) GetDownloads(ticker string) ([]*database.Download, error) {

	rows, err := db.conn.Query(
		context.Background(),
		`SELECT fund_ticker, accession_number, form, COALESCE(filing_date, 'epoch'::timestamp),
			document_type, file_path, file_size, content_hash, source_url
			FROM download WHERE fund_ticker = $1 ORDER BY filing_date DESC NULLS LAST;`,
		ticker,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dls := []*database.Download{}
	for rows.Next() {
		dl := &database.Download{}
		if err := rows.Scan(
			&dl.Ticker, &dl.AccessionNumber, &dl.Form, &dl.FilingDate,
			&dl.DocumentType, &dl.FilePath, &dl.FileSize, &dl.ContentHash, &dl.SourceURL,
		); err != nil {
			return nil, err
		}
		dls = append(dls, dl)
	}

	return dls, nil
}

// Helper Functions

// to insert null into database timestamps
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Valid: true, Time: t}
}

// my error wrapper to use custom created error constants defined in database package
func errorWrapper(err error) error {

	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// SQL Error code for violated unique constraint
		if pgErr.Code == "23505" {
			return database.DuplicateErr
		}
	}

	return err
}
