package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"dappradar-scraper/config"
	"dappradar-scraper/crawler"
	"dappradar-scraper/models"
	"dappradar-scraper/obfuscator"
	"dappradar-scraper/scraper/dappradar"
	"dappradar-scraper/services"
	"dappradar-scraper/storage"
	"dappradar-scraper/utils"
)

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	logger *utils.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "dappradar-scraper",
		Short:         "Crawls the DappRadar API and exports the results to spreadsheets.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.logger = utils.NewLogger()
			a.cfg = config.Load()
			a.logger.SetDebug(a.cfg.Debug)
		},
	}

	root.AddCommand(
		a.crawlCmd("list", "Paginates every category listing into app_list", a.runList),
		a.crawlCmd("detail", "Fetches detail and chart documents for every listed dapp", a.runDetail),
		a.crawlCmd("overview", "Fetches the six industry overview charts", a.runOverview),
		a.exportCmd(),
		a.reportCmd(),
	)
	return root
}

func (a *app) crawlCmd(use, short string, run func(ctx context.Context, fresh bool) error) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{
		Use:   use + " [--fresh]",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), fresh)
		},
	}
	cmd.Flags().BoolVar(&fresh, "fresh", false, "ignore the stored map and crawl from scratch")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Writes spreadsheets from the stored crawl results",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "detail",
			Short: "Per-dapp daily metrics into one sheet",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.exportDetail(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "overview",
			Short: "Industry overview charts, one sheet per endpoint",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.exportOverview(cmd.Context())
			},
		},
	)
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Prints how much of the catalog the stores cover",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.report(cmd.Context(), cmd)
		},
	}
}

func (a *app) runList(ctx context.Context, fresh bool) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, err := obfuscator.NewChromeEngine(obfuscator.ChromeOptions{
		ScriptPath: a.cfg.EncryptJSPath,
		ChromeBin:  a.cfg.ChromeBin,
	})
	if err != nil {
		return initFailed("obfuscation unavailable: %w", err)
	}
	defer engine.Close()

	spider := dappradar.NewListingSpider(a.endpoints(), a.cfg.Categories, obfuscator.New(engine), store, fresh, a.logger)
	return a.crawl(ctx, spider)
}

func (a *app) runDetail(ctx context.Context, fresh bool) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	spider := dappradar.NewDetailSpider(a.endpoints(), services.NewCleaner(a.logger), store, fresh, a.logger)
	return a.crawl(ctx, spider)
}

func (a *app) runOverview(ctx context.Context, fresh bool) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return a.crawl(ctx, dappradar.NewOverviewSpider(a.endpoints(), store, fresh, a.logger))
}

func (a *app) endpoints() dappradar.Endpoints {
	return dappradar.NewEndpoints(a.cfg.BaseURL, a.cfg.Currency)
}

func (a *app) crawl(ctx context.Context, spider crawler.Spider) error {
	backend, err := crawler.NewCollyBackend(crawler.CollyOptions{
		Parallelism: a.cfg.MaxConcurrency,
		Delay:       a.cfg.RateLimit(),
		Timeout:     a.cfg.RequestTimeout(),
		Logger:      a.logger,
	})
	if err != nil {
		return initFailed("crawler: %w", err)
	}

	a.logger.Info("=== DappRadar %s crawl starting ===", spider.Name())
	a.logger.Info("Config — base: %s | concurrency: %d | rate: %dms | retries: %d",
		a.cfg.BaseURL, a.cfg.MaxConcurrency, a.cfg.RateLimitMs, a.cfg.MaxRetries)

	h := crawler.New(backend, crawler.Options{Retry: retryPolicy(a.cfg, a.logger), Logger: a.logger})
	err = h.Run(ctx, spider)
	backend.Wait()
	return err
}

func retryPolicy(cfg *config.Config, logger *utils.Logger) *utils.RetryConfig {
	return &utils.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		Logger:      logger,
	}
}

func (a *app) exportDetail(ctx context.Context) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()
	loc, writer, err := a.exportSetup()
	if err != nil {
		return err
	}

	records := storage.NewKeyed[models.DetailChartRecord]()
	if err := storage.LoadInto(ctx, store, storage.DetailDocument, records); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("export: no detail records stored, run the detail command first: %w", err)
		}
		return err
	}

	sheet := services.NewEntityExporter(a.logger, loc).Build(records.Snapshot())
	path := outputPath(a.cfg, "dappradar")
	if err := writer.Write(path, []storage.Sheet{sheet}); err != nil {
		return err
	}
	a.logger.Info("Per-dapp export: %d rows → %s", len(sheet.Rows), path)
	return nil
}

func (a *app) exportOverview(ctx context.Context) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()
	loc, writer, err := a.exportSetup()
	if err != nil {
		return err
	}

	charts := storage.NewKeyed[json.RawMessage]()
	if err := storage.LoadInto(ctx, store, storage.OverviewDocument, charts); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("export: no overview charts stored, run the overview command first: %w", err)
		}
		return err
	}

	sheets := services.NewOverviewExporter(a.logger, loc).Build(charts.Snapshot())
	path := outputPath(a.cfg, "dappradar_industry_overview")
	if err := writer.Write(path, sheets); err != nil {
		return err
	}
	a.logger.Info("Overview export: %d sheets → %s", len(sheets), path)
	return nil
}

func (a *app) exportSetup() (*time.Location, storage.SheetWriter, error) {
	loc, err := a.cfg.Location()
	if err != nil {
		return nil, nil, initFailed("config: EXPORT_TZ: %w", err)
	}
	writer, err := sheetWriter(a.cfg.ExportFormat)
	if err != nil {
		return nil, nil, initFailed("config: %w", err)
	}
	return loc, writer, nil
}

func (a *app) report(ctx context.Context, cmd *cobra.Command) error {
	store, err := openStore(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer store.Close()

	listing := storage.NewKeyed[json.RawMessage]()
	detail := storage.NewKeyed[models.DetailChartRecord]()
	overview := storage.NewKeyed[json.RawMessage]()
	for name, into := range map[string]json.Unmarshaler{
		storage.ListingDocument:  listing,
		storage.DetailDocument:   detail,
		storage.OverviewDocument: overview,
	} {
		if err := storage.LoadInto(ctx, store, name, into); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}

	svc := services.NewInsightService(a.logger)
	svc.Print(cmd.OutOrStdout(), svc.Generate(listing.Snapshot(), detail.Snapshot(), overview.Snapshot()))
	return nil
}

// openStore opens the document store selected by STORE_BACKEND.
func openStore(cfg *config.Config, logger *utils.Logger) (storage.DocumentStore, error) {
	var (
		store storage.DocumentStore
		err   error
	)
	switch cfg.StoreBackend {
	case "", "file":
		store, err = storage.NewFileStore(cfg.DataDir)
	case "sqlite":
		store, err = storage.NewSQLiteStore(cfg.SQLitePath)
	case "postgres":
		store, err = storage.NewPostgresStore(cfg.DSN(), logger)
	default:
		return nil, initFailed("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if err != nil {
		return nil, initFailed("store %s: %w", cfg.StoreBackend, err)
	}
	return store, nil
}

func sheetWriter(format string) (storage.SheetWriter, error) {
	switch format {
	case "", "xlsx":
		return storage.XLSXWriter{}, nil
	case "csv":
		return storage.CSVWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown EXPORT_FORMAT %q", format)
	}
}

func outputPath(cfg *config.Config, base string) string {
	ext := ".xlsx"
	if cfg.ExportFormat == "csv" {
		ext = ".csv"
	}
	return filepath.Join(cfg.OutputDir, base+ext)
}
