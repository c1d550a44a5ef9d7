package main

import (
	"flag"
	"fmt"
	"os"

	"hunter-backend/config"
	"hunter-backend/runner"
	"hunter-backend/schedule"
	"hunter-backend/server"
	"hunter-backend/storage"
	"hunter-backend/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "run":
		cmdRun(cfg, logger, os.Args[2:])
	case "run-all":
		cmdRunAll(cfg, logger, os.Args[2:])
	case "schedule":
		cmdSchedule(cfg, logger)
	case "serve":
		cmdServe(cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  hunter-backend run <source> [--dry-run]   scrape one source (%s)
  hunter-backend run-all [--dry-run]        scrape all active sources
  hunter-backend schedule                   run daily on the cron schedule
  hunter-backend serve                      HTTP API + Apify webhook
`, "komornik|e_licytacje|olx|otodom|gratka|amw")
}

// cmdRun scrapes a single source.
func cmdRun(cfg *config.Config, logger *utils.Logger, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "crawl and report without writing to the database")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "run: missing source name")
		usage()
		os.Exit(2)
	}
	source, err := runner.ParseSource(fs.Arg(0))
	if err != nil {
		logger.Error("%v", err)
		os.Exit(2)
	}

	run, cleanup := buildRunner(cfg, logger, *dryRun)
	defer cleanup()

	res, err := run.Run(source, *dryRun)
	if err != nil {
		logger.Error("Run failed: %v", err)
		os.Exit(1)
	}
	reportAndExit(logger, []*runner.Result{res})
}

// cmdRunAll scrapes every active source.
func cmdRunAll(cfg *config.Config, logger *utils.Logger, args []string) {
	fs := flag.NewFlagSet("run-all", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "crawl and report without writing to the database")
	_ = fs.Parse(args)

	run, cleanup := buildRunner(cfg, logger, *dryRun)
	defer cleanup()

	results, err := run.RunAll(*dryRun)
	if err != nil {
		logger.Error("Run failed: %v", err)
		os.Exit(1)
	}
	reportAndExit(logger, results)
}

// cmdSchedule blocks on the cron timer.
func cmdSchedule(cfg *config.Config, logger *utils.Logger) {
	run, cleanup := buildRunner(cfg, logger, false)
	defer cleanup()

	sched, err := schedule.New(cfg, run, logger)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	sched.Start()
}

// cmdServe starts the HTTP API.
func cmdServe(cfg *config.Config, logger *utils.Logger) {
	run, cleanup := buildRunner(cfg, logger, false)
	defer cleanup()

	srv := server.New(cfg, run, logger)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server stopped: %v", err)
		os.Exit(1)
	}
}

// buildRunner connects storage unless this is a dry run, which needs no
// database at all.
func buildRunner(cfg *config.Config, logger *utils.Logger, dryRun bool) (*runner.Runner, func()) {
	if dryRun {
		return runner.New(cfg, nil, logger), func() {}
	}

	store, err := storage.NewPostgresStore(cfg.DSN(), logger)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	return runner.New(cfg, store, logger), func() { _ = store.Close() }
}

// reportAndExit prints per-source outcomes and exits non-zero if any source
// failed.
func reportAndExit(logger *utils.Logger, results []*runner.Result) {
	failed := false
	for _, res := range results {
		if res.Status == runner.StatusSuccess {
			logger.Info("[%s] OK — found %d, upserted %d", res.Source, res.Found, res.Upserted)
		} else {
			failed = true
			logger.Error("[%s] FAILED — %s", res.Source, res.Error)
		}
	}
	if failed {
		os.Exit(1)
	}
}
