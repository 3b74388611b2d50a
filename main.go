package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mars-scraper/browser"
	"mars-scraper/config"
	"mars-scraper/db"
	"mars-scraper/fetcher"
	"mars-scraper/notifier"
	"mars-scraper/scheduler"
	"mars-scraper/scraper"
	"mars-scraper/sheets"
	"mars-scraper/store"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error("mars-scraper failed", "err", err)
		stop()
		os.Exit(1)
	}
}

type flags struct {
	configPath string
	headless   bool
	browserBin string
	interval   time.Duration
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "mars-scraper",
		Short:         "Collect Mars news, images, facts and hemispheres",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runScraper(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "config.yaml", "Path to configuration file (defaults are used if it does not exist)")
	root.Flags().BoolVar(&f.headless, "headless", true, "Run the browser without a window")
	root.Flags().StringVar(&f.browserBin, "browser-bin", "", "Path to the Chrome/Chromium executable (or use BROWSER_BIN env var)")
	root.Flags().DurationVar(&f.interval, "interval", 0, "Repeat the scrape on this interval until interrupted (0 runs once)")

	root.AddCommand(&cobra.Command{
		Use:   "latest",
		Short: "Print the most recent run stored in Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return printLatest(cmd.Context(), cfg)
		},
	})

	return root
}

// loadConfig reads the config file if present and applies flags set on the command line
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg := config.GetDefaultConfig()
	if _, err := os.Stat(f.configPath); err == nil {
		cfg, err = config.LoadConfig(f.configPath)
		if err != nil {
			return nil, err
		}
	} else if cmd.Flags().Changed("config") {
		return nil, fmt.Errorf("config file %s: %w", f.configPath, err)
	} else {
		log.Debug("no config file, using defaults", "path", f.configPath)
	}

	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if f.browserBin != "" {
		cfg.Browser.Bin = f.browserBin
	}
	if cmd.Flags().Changed("interval") {
		cfg.Schedule.Interval = f.interval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)
	return cfg, nil
}

// runScraper wires stores and notifier, then runs once or on the schedule
func runScraper(ctx context.Context, cfg *config.Config) error {
	stores := store.Multi{store.NewLog(nil)}

	if cfg.Postgres.Enabled {
		database, err := db.NewDB(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer database.Close()
		stores = append(stores, database)
	}

	if cfg.Sheets.Enabled {
		writer, err := sheets.NewWriter(ctx, cfg.Sheets.SpreadsheetURL, cfg.Sheets.CredentialsPath)
		if err != nil {
			return err
		}
		stores = append(stores, writer)
	}

	var nt notifier.Notifier
	if cfg.Telegram.Enabled {
		tg, err := notifier.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return err
		}
		nt = tg
	}

	f := fetcher.NewCollyFetcher(cfg.Fetcher.UserAgent, cfg.Fetcher.Timeout)
	run := func(ctx context.Context) error {
		return runOnce(ctx, cfg, launchRod, f, stores, nt)
	}
	if cfg.Schedule.Interval > 0 {
		err := scheduler.NewScheduler(run, cfg.Schedule.Interval).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	return run(ctx)
}

// launchFunc opens the browser session for one run
type launchFunc func(ctx context.Context, opts browser.Options) (browser.Session, error)

func launchRod(ctx context.Context, opts browser.Options) (browser.Session, error) {
	s, err := browser.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// runOnce scrapes with a fresh browser session, stores and reports the result.
// The session is closed on every path once it has been launched.
func runOnce(ctx context.Context, cfg *config.Config, launch launchFunc, f fetcher.Fetcher, st store.Store, nt notifier.Notifier) error {
	session, err := launch(ctx, browser.Options{
		Headless:    cfg.Browser.Headless,
		Bin:         cfg.Browser.Bin,
		UserDataDir: cfg.Browser.UserDataDir,
		StepTimeout: cfg.Browser.StepTimeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("failed to close browser", "err", err)
		}
	}()

	m := scraper.NewMars(session, f, scraper.Targets{
		NewsURL:         cfg.URLs.News,
		GalleryURL:      cfg.URLs.Gallery,
		FactsURL:        cfg.URLs.Facts,
		HemispheresURL:  cfg.URLs.Hemispheres,
		FeaturedThumb:   cfg.Selectors.FeaturedThumb,
		HemisphereCount: cfg.Hemispheres.Count,
	})

	results, report := m.Scrape(ctx)
	scraper.WriteSummary(os.Stderr, report)

	if nt != nil {
		if err := nt.Notify(ctx, results, report); err != nil {
			log.Warn("failed to send notification", "err", err)
		}
	}

	if report.AllFailed() {
		return errors.New("every section failed, nothing stored")
	}
	if err := st.Store(ctx, results); err != nil {
		return fmt.Errorf("failed to store results: %w", err)
	}
	return nil
}

func printLatest(ctx context.Context, cfg *config.Config) error {
	if cfg.Postgres.URL == "" {
		return errors.New("no database configured (set postgres.url or DATABASE_URL)")
	}
	database, err := db.NewDB(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	run, results, err := database.LatestRun(ctx)
	if err != nil {
		return err
	}
	log.Info("latest run", "id", run.ID, "scraped_at", run.ScrapedAt)
	return store.NewLog(nil).Store(ctx, results)
}
