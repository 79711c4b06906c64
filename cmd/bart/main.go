// Command bart runs the broadcast review once, outside the server: it
// reconciles the chosen countries over a window, prints each summary and
// writes the per-country CSVs.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Priya8975/broadcast-review/internal/config"
	"github.com/Priya8975/broadcast-review/internal/domain"
	"github.com/Priya8975/broadcast-review/internal/engine"
	"github.com/Priya8975/broadcast-review/internal/reconcile"
	"github.com/Priya8975/broadcast-review/internal/report"
	"github.com/Priya8975/broadcast-review/internal/store"
)

type countryRun struct {
	report *domain.CountryReport
	csv    string
	err    error
}

func main() {
	var (
		countriesFlag = flag.String("countries", "", "comma-separated country codes (default: every country in the broadcast config)")
		startFlag     = flag.String("start", "", "window start, YYYY-MM-DD (default: previous full week)")
		endFlag       = flag.String("end", "", "window end, YYYY-MM-DD")
		outFlag       = flag.String("out", "", "reports directory (default: REPORTS_DIR)")
		storeFlag     = flag.Bool("store", false, "persist the run and its reports to DATABASE_URL")
		inspectFlag   = flag.String("inspect", "", "tab-separated cohort key prefix whose linked users are printed")
		refreshFlag   = flag.Bool("refresh", false, "ignore cached source data and broadcast config")
		parallelFlag  = flag.Int("parallel", 0, "countries reconciled at once (default: NUM_WORKERS)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(logger, options{
		countries: *countriesFlag,
		start:     *startFlag,
		end:       *endFlag,
		out:       *outFlag,
		store:     *storeFlag,
		inspect:   *inspectFlag,
		refresh:   *refreshFlag,
		parallel:  *parallelFlag,
	}); err != nil {
		logger.Error("broadcast review failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	countries string
	start     string
	end       string
	out       string
	store     bool
	inspect   string
	refresh   bool
	parallel  int
}

func parseWindow(start, end string, now time.Time) (domain.Window, error) {
	if start == "" && end == "" {
		return domain.WeeklyWindow(now), nil
	}
	if end == "" {
		end = start
	}
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return domain.Window{}, fmt.Errorf("parsing -start: %w", err)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return domain.Window{}, fmt.Errorf("parsing -end: %w", err)
	}
	if e.Before(s) {
		return domain.Window{}, fmt.Errorf("-end %s is before -start %s", end, start)
	}
	return domain.Window{Start: s, End: e}, nil
}

func parseCountries(s string) []string {
	if s == "" {
		return nil
	}
	return domain.NormalizeCountries(strings.Split(s, ","))
}

func run(logger *slog.Logger, opts options) error {
	cfg, err := config.LoadCLI()
	if err != nil {
		return err
	}
	if opts.out == "" {
		opts.out = cfg.ReportsDir
	}
	if opts.parallel <= 0 {
		opts.parallel = cfg.NumWorkers
	}

	window, err := parseWindow(opts.start, opts.end, time.Now())
	if err != nil {
		return err
	}

	var filter *reconcile.CohortFilter
	if opts.inspect != "" {
		f, err := reconcile.ParseCohortFilter(opts.inspect)
		if err != nil {
			return err
		}
		filter = &f
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisStore, err := store.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisStore.Close()

	configs := store.NewConfigLoader(cfg.BroadcastConfigURL, redisStore, cfg.CacheTTL)
	if opts.refresh {
		if err := configs.Invalidate(ctx); err != nil {
			return err
		}
	}
	table, err := configs.Load(ctx)
	if err != nil {
		return err
	}

	countries := parseCountries(opts.countries)
	if len(countries) == 0 {
		countries = table.Countries()
	}
	if len(countries) == 0 {
		return fmt.Errorf("no countries to run")
	}

	sources, closeSources, err := engine.OpenSources(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSources()

	fetcher := engine.NewFetcher(sources, redisStore,
		engine.NewCircuitBreaker(redisStore.Client(), logger),
		engine.NewRateLimiter(redisStore.Client(), logger),
		nil,
		engine.FetcherOptions{CacheTTL: cfg.CacheTTL, RateLimit: cfg.SourceRateLimit, Refresh: opts.refresh},
		logger,
	)

	var (
		pgStore *store.PostgresStore
		runID   string
	)
	if opts.store {
		if cfg.DatabaseURL == "" {
			return fmt.Errorf("-store needs DATABASE_URL")
		}
		pgStore, err = store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pgStore.Close()
		if err := pgStore.RunMigrations(ctx); err != nil {
			return err
		}
		stored, err := pgStore.CreateRun(ctx, window, countries)
		if err != nil {
			return err
		}
		runID = stored.ID
	}

	results := make([]countryRun, len(countries))
	var g errgroup.Group
	g.SetLimit(opts.parallel)
	for i, country := range countries {
		i, country := i, country
		g.Go(func() error {
			inputs := fetcher.FetchInputs(ctx, country, window, table)
			rep := reconcile.Reconcile(inputs)
			results[i].report = rep

			path, err := report.SaveCSV(opts.out, rep)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].csv = path

			if pgStore != nil {
				if _, err := pgStore.SaveCountryReport(ctx, runID, rep, nil); err != nil {
					results[i].err = err
				}
			}
			return nil
		})
	}
	g.Wait()

	failed := 0
	for i, country := range countries {
		if !printCountry(os.Stdout, country, results[i], filter) {
			failed++
		}
	}
	if runID != "" {
		fmt.Printf("stored as run %s\n", runID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d countries failed", failed, len(countries))
	}
	return nil
}

// printCountry writes one country's outcome and reports whether it succeeded.
func printCountry(w io.Writer, country string, r countryRun, filter *reconcile.CohortFilter) bool {
	if r.report == nil {
		fmt.Fprintf(w, "== %s: not run ==\n\n", country)
		return false
	}
	fmt.Fprintf(w, "== %s %s: %s ==\n", country, r.report.Window.Label(), r.report.Outcome)
	if r.err != nil {
		fmt.Fprintf(w, "error: %v\n\n", r.err)
		return false
	}

	report.WriteSummary(w, r.report)
	if r.csv != "" {
		fmt.Fprintf(w, "wrote %s (%d cohorts)\n", r.csv, len(r.report.Results.Rows))
	}

	if filter != nil {
		users := reconcile.FindCohortUsers(r.report.Linked, *filter)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "msisdn\tplatform\tserviceid\ttotal\tdelivered")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", u.MSISDN, u.Platform, u.ServiceID, u.TotalTransactions, u.DeliveredTransactions)
		}
		tw.Flush()
		fmt.Fprintf(w, "%d users in cohort\n", len(users))
	}
	fmt.Fprintln(w)
	return true
}
