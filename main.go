package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cricauction-scraper/config"
	"cricauction-scraper/scraper/cricauction"
	"cricauction-scraper/services"
	"cricauction-scraper/storage"
	"cricauction-scraper/utils"
)

var (
	cfg    *config.Config
	logger = utils.NewLogger()

	noSync  bool
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "cricauction-scraper",
	Short: "Collects upcoming cricket auctions into a local history and a shared spreadsheet.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDebug(verbose || cfg.Debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("=== CricAuction scraper starting ===")
		logger.Info("Config | url: %s | store: %s | max pages: %d | headless: %t",
			cfg.ListingURL, cfg.StoreBackend, cfg.MaxPages, cfg.Headless)

		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		renderer, err := cricauction.NewChromeRenderer(cmd.Context(), cricauction.ChromeOptions{
			Headless: cfg.Headless,
			ExecPath: cfg.ChromeBin,
		}, logger)
		if err != nil {
			return fmt.Errorf("start browser: %w", err)
		}

		opts := cricauction.DefaultOptions()
		opts.URL = cfg.ListingURL
		opts.MaxPages = cfg.MaxPages
		opts.StagnantLimit = cfg.StagnantPageLimit
		opts.LoadTimeout = cfg.LoadTimeout
		opts.LoadAttempts = cfg.MaxRetries
		opts.PageChangeTimeout = cfg.PageChangeTimeout
		opts.PollInterval = cfg.PollInterval
		walker := cricauction.NewWalker(renderer, opts, logger)

		h := services.NewHarvester(walker, store, reconciler(), logger)
		res, err := h.Run(cmd.Context())
		if err != nil {
			return err
		}

		services.NewReport(os.Stdout).Print(res)
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Uploads every locally stored listing the shared spreadsheet is missing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		rec := reconciler()
		if rec == nil {
			return fmt.Errorf("sync: no usable remote credentials")
		}

		res, err := services.NewHarvester(nil, store, rec, logger).Backfill(cmd.Context())
		if err != nil {
			return err
		}
		services.NewReport(os.Stdout).Print(res)
		if res.SyncErr != nil {
			return res.SyncErr
		}
		return nil
	},
}

func init() {
	cfg = config.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "local store backend: csv, sqlite or postgres")
	flags.StringVar(&cfg.LocalCSV, "csv", cfg.LocalCSV, "path of the local CSV history")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.Flags().BoolVar(&cfg.Headless, "headless", cfg.Headless, "run the browser without a window")
	rootCmd.Flags().IntVar(&cfg.MaxPages, "max-pages", cfg.MaxPages, "maximum number of listing pages to scrape")
	rootCmd.Flags().BoolVar(&noSync, "no-sync", false, "skip the remote spreadsheet sync")

	rootCmd.AddCommand(syncCmd)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// openStore builds the configured local store.
func openStore(ctx context.Context) (storage.RowStore, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case config.BackendCSV:
		logger.Info("[store] Using CSV history at %s", cfg.LocalCSV)
		return storage.NewCSVStore(cfg.LocalCSV)
	case config.BackendSQLite:
		logger.Info("[store] Using SQLite history at %s", cfg.SQLitePath)
		return storage.NewSQLiteStore(cfg.SQLitePath)
	case config.BackendPostgres:
		logger.Info("[store] Using PostgreSQL history at %s:%s/%s", cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		return storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// reconciler resolves credentials once and returns nil when the run must
// stay local-only.
func reconciler() *services.Reconciler {
	if noSync {
		logger.Info("[sync] Disabled by --no-sync")
		return nil
	}

	switch creds := config.ResolveCredentials(os.Getenv).(type) {
	case config.GraphCredentials:
		sheet := storage.NewGraphSheet(storage.GraphOptions{
			TenantID:     creds.TenantID,
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			ShareLink:    cfg.ShareLink,
			Worksheet:    cfg.WorksheetName,
			MaxAttempts:  cfg.HTTPRetries,
		}, logger)
		return services.NewReconciler(sheet, logger)
	case config.PortalCredentials:
		logger.Warn("[sync] CB_EMAIL/CB_PASSWORD are site logins and cannot authorize the spreadsheet")
		logger.Warn("[sync] Set TENANT_ID, CLIENT_ID and CLIENT_SECRET to enable uploads; continuing local-only")
		return nil
	default:
		logger.Warn("[sync] No remote credentials found; continuing local-only")
		return nil
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("%v", err)
		stop()
		os.Exit(1)
	}
}
