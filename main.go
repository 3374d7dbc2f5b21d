package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/spf13/cobra"

	"github.com/fundprospect/prospectus-pipeline/adapter/apiclient/httpclient"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket/folder"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket/s3"
	"github.com/fundprospect/prospectus-pipeline/adapter/database"
	"github.com/fundprospect/prospectus-pipeline/adapter/database/postgres"
	"github.com/fundprospect/prospectus-pipeline/adapter/logger/zaplog"
	"github.com/fundprospect/prospectus-pipeline/adapter/queue/buffer"
	"github.com/fundprospect/prospectus-pipeline/config"
	"github.com/fundprospect/prospectus-pipeline/service/batch"
	"github.com/fundprospect/prospectus-pipeline/service/discover"
	"github.com/fundprospect/prospectus-pipeline/service/fetch"
	"github.com/fundprospect/prospectus-pipeline/service/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {

	var verbose bool
	var skipExisting bool

	root := &cobra.Command{
		Use:           "prospectus",
		Short:         "Download fund prospectuses from SEC EDGAR",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	fetchCmd := &cobra.Command{
		Use:   "fetch SYMBOL...",
		Short: "Download the latest prospectus for one or more fund tickers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()
			return a.process(args, skipExisting, "fetch")
		},
	}
	fetchCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip funds that already have a stored prospectus")

	var tickerFile string
	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Download prospectuses for every ticker in a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			tickers, err := readTickerFile(tickerFile)
			if err != nil {
				return err
			}
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()
			return a.process(tickers, skipExisting, "batch")
		},
	}
	batchCmd.Flags().StringVarP(&tickerFile, "file", "f", "", "path to a JSON ticker list")
	batchCmd.Flags().BoolVar(&skipExisting, "skip-existing", false, "skip funds that already have a stored prospectus")
	batchCmd.MarkFlagRequired("file")

	var maxFunds int
	vanguardCmd := &cobra.Command{
		Use:   "vanguard",
		Short: "Download prospectuses for all Vanguard mutual funds",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(verbose)
			if err != nil {
				return err
			}
			defer a.close()

			tickers, err := a.batch.VanguardTickers()
			if err != nil {
				return err
			}
			if maxFunds > 0 && len(tickers) > maxFunds {
				tickers = tickers[:maxFunds]
			}
			return a.process(tickers, skipExisting, "vanguard")
		},
	}
	vanguardCmd.Flags().IntVar(&maxFunds, "max", 0, "limit the number of funds processed")
	vanguardCmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "skip funds that already have a stored prospectus")

	initdbCmd := &cobra.Command{
		Use:   "initdb",
		Short: "Create the catalog tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if len(cfg.DbHost) < 1 {
				return fmt.Errorf("no catalog database configured, set DATABASE_HOST")
			}
			db, err := postgres.New(cfg.DbHost, cfg.DbPort, cfg.DbName, cfg.DbUser, cfg.DbPass)
			if err != nil {
				return err
			}
			defer db.Close()
			return db.CreateBaseTables()
		},
	}

	root.AddCommand(fetchCmd, batchCmd, vanguardCmd, initdbCmd)
	return root
}

type app struct {
	cfg    *config.Config
	logger *zaplog.Logger
	db     database.Database
	batch  *batch.Service
}

func newApp(verbose bool) (*app, error) {

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	l, err := zaplog.New(verbose || cfg.Verbose)
	if err != nil {
		return nil, err
	}

	client := httpclient.New(cfg.UserAgent, cfg.RequestsPerSec)

	var b bucket.Bucket
	if len(cfg.S3Bucket) > 0 {
		awsSession, err := session.NewSession(&aws.Config{Region: aws.String(cfg.S3Region)})
		if err != nil {
			return nil, err
		}
		b = s3.New(awsSession, cfg.S3Bucket)
	} else {
		b = folder.New(cfg.DataDir)
	}

	var db database.Database
	if len(cfg.DbHost) > 0 {
		db, err = postgres.New(cfg.DbHost, cfg.DbPort, cfg.DbName, cfg.DbUser, cfg.DbPass)
		if err != nil {
			return nil, err
		}
	}

	st := store.New(b, db, l)
	return &app{
		cfg:    cfg,
		logger: l,
		db:     db,
		batch: batch.New(
			discover.New(client, l),
			fetch.New(client, l),
			st,
			client,
			b,
			buffer.New(),
			l,
		),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	a.logger.Sync()
}

func (a *app) process(tickers []string, skipExisting bool, kind string) error {

	results, err := a.batch.ProcessTickers(tickers, skipExisting, kind)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d funds failed", failed, len(results))
	}
	return nil
}

/*
Helper functions
*/

// readTickerFile accepts a JSON array of symbols or an object with a
// tickers field
func readTickerFile(path string) ([]string, error) {

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tickers := []string{}
	if err := json.Unmarshal(data, &tickers); err == nil {
		return cleanTickers(tickers), nil
	}

	wrapped := struct {
		Tickers []string `json:"tickers"`
	}{}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("parse ticker file %s: %w", path, err)
	}
	return cleanTickers(wrapped.Tickers), nil
}

// invalid symbols stay in the list so the batch reports them as failures
func cleanTickers(raw []string) []string {
	tickers := []string{}
	for _, t := range raw {
		if trimmed := strings.TrimSpace(t); len(trimmed) > 0 {
			tickers = append(tickers, trimmed)
		}
	}
	return tickers
}
