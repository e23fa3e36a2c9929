package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"commuteatlas/aggregate"
	"commuteatlas/analysis"
	"commuteatlas/arcgis"
	"commuteatlas/geocode"
	"commuteatlas/mapper"
	"commuteatlas/match"
	"commuteatlas/rawstore"
	"commuteatlas/report"
	"commuteatlas/roster"
	"commuteatlas/runlog"
)

const (
	defaultTravelMode   = "Driving Distance"
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 200
	defaultWorkers      = 4
	defaultMinInterval  = 200 * time.Millisecond
	defaultScheduleAt   = "02:00"
	maxRunRetry         = 3
	runRetryBaseDelay   = 2 * time.Minute
	defaultCachePath    = "data/geocode_cache.json"
	defaultRunLogPath   = "data/runs.db"
)

type runConfig struct {
	creds        arcgis.Credentials
	rosterPath   string
	fieldsPath   string
	outPath      string
	travelMode   string
	pollInterval time.Duration
	maxPolls     int
	workers      int
	minInterval  time.Duration
	cachePath    string
	runLogPath   string
	archiveDir   string
}

type runResult struct {
	employees int
	matched   int
	flagged   int
	elapsed   time.Duration
}

func main() {
	var (
		rosterPath   = flag.String("roster", "", "Path to the employee roster CSV")
		fieldsPath   = flag.String("fields", "config.json", "Path to the roster field-mapping JSON")
		outPath      = flag.String("out", "data/commutes.csv", "Path for the output CSV")
		username     = flag.String("username", "", "ArcGIS username (or ARCGIS_USERNAME)")
		travelMode   = flag.String("travel-mode", defaultTravelMode, "Travel mode name for the routing analysis")
		pollInterval = flag.Duration("poll-interval", defaultPollInterval, "Delay between analysis job status polls")
		maxPolls     = flag.Int("max-polls", defaultMaxPolls, "Max analysis job status polls before giving up")
		workers      = flag.Int("geocode-workers", defaultWorkers, "Concurrent geocode batch requests")
		minInterval  = flag.Duration("min-interval", defaultMinInterval, "Minimum interval between service calls")
		cachePath    = flag.String("cache", defaultCachePath, "Geocode cache path (empty disables caching)")
		runLogPath   = flag.String("runlog", defaultRunLogPath, "Run history sqlite path (empty disables history)")
		archiveDir   = flag.String("archive-dir", "", "Directory for raw payload archives (empty disables)")
		logLevel     = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		schedule     = flag.Bool("schedule", false, "Run daily schedule loop")
		scheduleAt   = flag.String("schedule-at", defaultScheduleAt, "Daily run time (HH:MM, local time)")
	)
	flag.Parse()

	log, err := buildLogger(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	user := strings.TrimSpace(*username)
	if user == "" {
		user = strings.TrimSpace(os.Getenv("ARCGIS_USERNAME"))
	}
	password := os.Getenv("ARCGIS_PASSWORD")
	if user == "" || password == "" {
		fmt.Fprintln(os.Stderr, "missing credentials (set -username or ARCGIS_USERNAME, and ARCGIS_PASSWORD)")
		os.Exit(2)
	}
	if strings.TrimSpace(*rosterPath) == "" {
		fmt.Fprintln(os.Stderr, "missing roster path (set -roster)")
		os.Exit(2)
	}

	cfg := runConfig{
		creds:        arcgis.Credentials{Username: user, Password: password},
		rosterPath:   *rosterPath,
		fieldsPath:   *fieldsPath,
		outPath:      *outPath,
		travelMode:   *travelMode,
		pollInterval: *pollInterval,
		maxPolls:     *maxPolls,
		workers:      *workers,
		minInterval:  *minInterval,
		cachePath:    *cachePath,
		runLogPath:   *runLogPath,
		archiveDir:   *archiveDir,
	}
	applyDefaults(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *schedule {
		if err := scheduleDaily(ctx, log, cfg, *scheduleAt); err != nil {
			log.Error("schedule loop stopped", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	result, err := runOnce(ctx, log, cfg)
	if err != nil {
		log.Error("run failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Printf("employees=%d matched=%d flagged=%d elapsed=%s\n",
		result.employees, result.matched, result.flagged, result.elapsed.Round(time.Millisecond))
}

func buildLogger(level string) (*zap.Logger, error) {
	parsed, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = parsed
	return cfg.Build()
}

func applyDefaults(cfg *runConfig) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.travelMode) == "" {
		cfg.travelMode = defaultTravelMode
	}
	if cfg.pollInterval <= 0 {
		cfg.pollInterval = defaultPollInterval
	}
	if cfg.maxPolls < 1 {
		cfg.maxPolls = defaultMaxPolls
	}
	if cfg.workers < 1 {
		cfg.workers = defaultWorkers
	}
	if cfg.minInterval < 0 {
		cfg.minInterval = defaultMinInterval
	}
}

// runOnce wraps one execution with the run-history record.
func runOnce(ctx context.Context, log *zap.Logger, cfg runConfig) (runResult, error) {
	var runs *runlog.Store
	if strings.TrimSpace(cfg.runLogPath) != "" {
		store, err := runlog.Open(cfg.runLogPath)
		if err != nil {
			return runResult{}, eris.Wrap(err, "open run history")
		}
		defer store.Close()
		runs = store

		if history, err := store.List(5); err == nil {
			log.Debug("run history loaded", zap.Int("recent_runs", len(history)))
		}
	}

	var record *runlog.RunRecord
	if runs != nil {
		started, err := runs.Start()
		if err != nil {
			return runResult{}, eris.Wrap(err, "record run start")
		}
		record = started
		log = log.With(zap.String("run_id", record.ID))
	}

	result, summary, err := executeRun(ctx, log, cfg)
	if runs != nil {
		if finishErr := runs.Finish(record, err, summary.Metrics()); finishErr != nil {
			log.Warn("could not record run result", zap.Error(finishErr))
		}
	}
	return result, err
}

func executeRun(ctx context.Context, log *zap.Logger, cfg runConfig) (runResult, aggregate.Summary, error) {
	started := time.Now()

	fields, err := roster.LoadFieldMap(cfg.fieldsPath)
	if err != nil {
		return runResult{}, aggregate.Summary{}, err
	}
	employees, err := roster.Read(cfg.rosterPath, fields, log)
	if err != nil {
		return runResult{}, aggregate.Summary{}, err
	}
	if len(employees) == 0 {
		return runResult{}, aggregate.Summary{}, eris.New("roster has no usable rows")
	}
	log.Info("roster loaded", zap.Int("employees", len(employees)))

	opts := []arcgis.Option{arcgis.WithMinInterval(cfg.minInterval)}
	if strings.TrimSpace(cfg.archiveDir) != "" {
		archive := rawstore.NewFileStore(cfg.archiveDir)
		defer func() {
			if err := archive.Close(); err != nil {
				log.Warn("could not close payload archive", zap.Error(err))
			}
		}()
		opts = append(opts, arcgis.WithPayloadRecorder(archive))
	}
	client := arcgis.NewClient(opts...)

	token, err := client.GenerateToken(ctx, cfg.creds)
	if err != nil {
		return runResult{}, aggregate.Summary{}, eris.Wrap(err, "generate token")
	}

	cache, err := geocode.LoadCache(cfg.cachePath)
	if err != nil {
		return runResult{}, aggregate.Summary{}, eris.Wrap(err, "load geocode cache")
	}
	defer func() {
		if err := geocode.SaveCache(cfg.cachePath, cache); err != nil {
			log.Warn("could not save geocode cache", zap.Error(err))
		}
	}()

	resolver := geocode.NewResolver(client, cache, log, geocode.WithWorkers(cfg.workers))
	locations, preFlagged, err := resolver.Resolve(ctx, employees, token)
	if err != nil {
		return runResult{}, aggregate.Summary{}, eris.Wrap(err, "geocode roster")
	}
	log.Info("roster geocoded",
		zap.Int("locations", len(locations)),
		zap.Int("flagged", len(preFlagged)),
	)

	matched := match.NewMatcher(log).Match(locations)
	flagged := mergeFlagged(preFlagged, matched.Flagged)
	log.Info("locations matched",
		zap.Int("pairs", len(matched.Origins)),
		zap.Int("flagged", len(flagged)),
	)

	var features []arcgis.RouteFeature
	if len(matched.Origins) > 0 {
		analysisURL, err := client.AnalysisURL(ctx, token)
		if err != nil {
			return runResult{}, aggregate.Summary{}, eris.Wrap(err, "resolve analysis url")
		}
		travelMode, err := client.TravelMode(ctx, cfg.travelMode, token)
		if err != nil {
			return runResult{}, aggregate.Summary{}, eris.Wrapf(err, "resolve travel mode %q", cfg.travelMode)
		}

		runner := analysis.NewRunner(client, client, log,
			analysis.WithPollInterval(cfg.pollInterval),
			analysis.WithMaxPolls(cfg.maxPolls),
		)
		features, err = runner.Run(ctx, analysisURL,
			mapper.FeatureCollection(matched.Origins),
			mapper.FeatureCollection(matched.Destinations),
			travelMode, token, cfg.creds)
		if err != nil {
			return runResult{}, aggregate.Summary{}, err
		}
	} else {
		log.Warn("no matchable pairs, writing flagged-only output")
	}

	rows := report.NewBuilder(log).Build(features, flagged)
	if err := report.WriteCSV(cfg.outPath, rows); err != nil {
		return runResult{}, aggregate.Summary{}, err
	}

	agg := aggregate.NewSummaryAggregator()
	for _, row := range rows {
		agg.Add(row)
	}
	summary := agg.Result()
	log.Info("run complete",
		zap.String("out", cfg.outPath),
		zap.Int("employees", summary.Employees),
		zap.Int("matched", summary.Matched),
		zap.Int("flagged", summary.Flagged),
		zap.Float64("avg_miles", summary.AvgMiles),
		zap.Float64("avg_minutes", summary.AvgMinutes),
	)

	return runResult{
		employees: summary.Employees,
		matched:   summary.Matched,
		flagged:   summary.Flagged,
		elapsed:   time.Since(started),
	}, summary, nil
}

func mergeFlagged(first, second []int) []int {
	seen := make(map[int]bool, len(first)+len(second))
	merged := make([]int, 0, len(first)+len(second))
	for _, list := range [][]int{first, second} {
		for _, employee := range list {
			if seen[employee] {
				continue
			}
			seen[employee] = true
			merged = append(merged, employee)
		}
	}
	return merged
}

func scheduleDaily(ctx context.Context, log *zap.Logger, cfg runConfig, scheduleAt string) error {
	hour, minute, err := parseScheduleAt(scheduleAt)
	if err != nil {
		return err
	}
	for {
		next := nextRunTime(time.Now(), hour, minute)
		log.Info("waiting for next scheduled run", zap.Time("next", next))
		if err := sleepUntil(ctx, next); err != nil {
			return err
		}
		if err := runWithRetry(ctx, log, cfg); err != nil {
			log.Error("scheduled run failed", zap.Error(err))
		}
	}
}

func runWithRetry(ctx context.Context, log *zap.Logger, cfg runConfig) error {
	var lastErr error
	for attempt := 1; attempt <= maxRunRetry; attempt++ {
		result, err := runOnce(ctx, log, cfg)
		if err == nil {
			log.Info("scheduled run complete",
				zap.Int("employees", result.employees),
				zap.Int("flagged", result.flagged),
				zap.Duration("elapsed", result.elapsed),
			)
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := runRetryBaseDelay * time.Duration(attempt)
		log.Warn("run failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := sleepWithContext(ctx, delay); err != nil {
			return err
		}
	}
	return lastErr
}

func parseScheduleAt(value string) (int, int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid schedule-at format: %s", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid schedule-at hour: %s", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid schedule-at minute: %s", value)
	}
	return hour, minute, nil
}

func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func sleepUntil(ctx context.Context, target time.Time) error {
	delay := time.Until(target)
	if delay <= 0 {
		return nil
	}
	return sleepWithContext(ctx, delay)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
