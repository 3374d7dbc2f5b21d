package postgres

import (
	"log"
	"testing"
	"time"

	"github.com/fundprospect/prospectus-pipeline/adapter/database"
	"github.com/fundprospect/prospectus-pipeline/domain/prospectus"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

var db *postgresDB

func TestMain(m *testing.M) {
	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	// pulls an image, creates a container based on it and runs it
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16.3",
		Env: []string{
			"POSTGRES_PASSWORD=password123",
			"POSTGRES_USER=postgres",
			"POSTGRES_DB=postgres",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}

	resource.Expire(120) // Tell docker to hard kill the container in 120 seconds

	// exponential backoff-retry, because the application in the container might not be ready to accept connections yet
	pool.MaxWait = 120 * time.Second
	if err = pool.Retry(func() error {
		db, err = New("localhost", "5432", "postgres", "postgres", "password123")
		if err != nil {
			return err
		}
		return db.CreateBaseTables()
	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}()

	// run tests
	m.Run()
}

func TestInsertFund(t *testing.T) {
	fund := &prospectus.Fund{Ticker: "VUSXX", Cik: "0000862084", Title: "Vanguard VUSXX"}
	err := db.InsertFund(fund)
	if err != nil {
		t.Errorf(err.Error())
	}

	// insert again to check the duplicate error mapping
	err = db.InsertFund(fund)
	if err != database.DuplicateErr {
		t.Errorf("Got %v, want duplicate error", err)
	}

	funds, err := db.GetFunds()
	if err != nil {
		t.Errorf(err.Error())
		return
	}
	if len(funds) < 1 {
		t.Errorf("Got no funds, want at least one")
	}
}

func TestInsertDownload(t *testing.T) {
	err := db.InsertFund(&prospectus.Fund{Ticker: "VFIAX", Cik: "0000036405"})
	if err != nil && err != database.DuplicateErr {
		t.Fatalf(err.Error())
	}

	dl := &database.Download{
		Ticker:          "VFIAX",
		AccessionNumber: "0000036405-24-000001",
		Form:            "497K",
		FilingDate:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		DocumentType:    prospectus.DocHTML,
		FilePath:        "VFIAX/VFIAX_497K_20240315_000003640524000001.html",
		FileSize:        1024,
		ContentHash:     "abc123",
		SourceURL:       "https://www.sec.gov/Archives/edgar/data/36405/000003640524000001/doc.htm",
	}

	if err := db.InsertDownload(dl); err != nil {
		t.Fatalf(err.Error())
	}
	if err := db.InsertDownload(dl); err != database.DuplicateErr {
		t.Errorf("Got %v, want duplicate error", err)
	}

	dls, err := db.GetDownloads("VFIAX")
	if err != nil {
		t.Fatalf(err.Error())
	}
	if len(dls) != 1 {
		t.Errorf("Got %d downloads, want 1", len(dls))
		return
	}
	if dls[0].Form != "497K" {
		t.Errorf("Got form '%s', want '497K'", dls[0].Form)
	}
}
