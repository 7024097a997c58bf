// Command synthgen generates a synthetic clinical dataset from a scenario
// file. It samples patient demographics and study events, persists them to
// the selected sink, and can export the dataset as JSON Lines.
package main

import (
	"context"
	"expvar"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"medsynth/internal/blob"
	"medsynth/internal/config"
	"medsynth/internal/export"
	"medsynth/internal/generator"
	blobfs "medsynth/internal/infra/blob/fs"
	blobs3 "medsynth/internal/infra/blob/s3"
	"medsynth/internal/infra/persistence/memory"
	"medsynth/internal/infra/persistence/postgres"
	"medsynth/internal/infra/persistence/sqlite"
	"medsynth/internal/runmetrics"
	"medsynth/internal/store"
)

var exitFunc = os.Exit

type options struct {
	scenarioPath string
	seed         int64
	baseDate     string

	count      int
	periods    int
	baseVolume float64
	trend      float64
	noise      float64

	sink        string
	sqlitePath  string
	postgresDSN string

	exportDriver string
	exportDir    string
	runID        string

	metrics     string
	metricsAddr string
}

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("synthgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.scenarioPath, "scenario", "", "path to scenario yaml or json (required)")
	fs.Int64Var(&opts.seed, "seed", 42, "random seed driving every draw")
	fs.StringVar(&opts.baseDate, "base-date", "2024-01-01", "calendar date of period zero")
	fs.IntVar(&opts.count, "count", 0, "generate a flat batch of this many records")
	fs.IntVar(&opts.periods, "periods", 0, "generate a growth series over this many periods")
	fs.Float64Var(&opts.baseVolume, "base-volume", 100, "expected records in period zero")
	fs.Float64Var(&opts.trend, "trend", 0, "per-period growth rate, e.g. 0.1 for 10%")
	fs.Float64Var(&opts.noise, "noise", 0, "relative volume noise amplitude in [0,1)")
	fs.StringVar(&opts.sink, "sink", "memory", "persistence sink: memory, sqlite or postgres")
	fs.StringVar(&opts.sqlitePath, "sqlite-path", "medsynth.db", "database file for the sqlite sink")
	fs.StringVar(&opts.postgresDSN, "postgres-dsn", "", "connection string for the postgres sink")
	fs.StringVar(&opts.exportDriver, "export", "", "export driver: fs or s3 (empty disables export)")
	fs.StringVar(&opts.exportDir, "export-dir", "./exports", "root directory for the fs export driver")
	fs.StringVar(&opts.runID, "run-id", "", "export run identifier (default: random)")
	fs.StringVar(&opts.metrics, "metrics", "", "run metrics recorder: expvar or prometheus (empty disables)")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve metrics over HTTP on this address")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.scenarioPath == "" {
		fmt.Fprintln(stderr, "synthgen: -scenario is required")
		return 2
	}
	if (opts.count <= 0) == (opts.periods <= 0) {
		fmt.Fprintln(stderr, "synthgen: exactly one of -count or -periods must be positive")
		return 2
	}
	if err := run(context.Background(), opts, stdout); err != nil {
		fmt.Fprintf(stderr, "synthgen: %v\n", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	baseDate, err := time.Parse("2006-01-02", opts.baseDate)
	if err != nil {
		return fmt.Errorf("parse base date: %w", err)
	}
	scenario, err := config.Load(opts.scenarioPath)
	if err != nil {
		return err
	}
	engine, err := config.Compile(scenario)
	if err != nil {
		return err
	}
	gen, err := generator.New(engine, opts.seed, baseDate)
	if err != nil {
		return err
	}
	if err := setupMetrics(gen, opts); err != nil {
		return err
	}

	sink, err := openSink(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	var patients []generator.Patient
	var studies []generator.Study
	collect := opts.exportDriver != ""
	insert := func(p generator.Patient, s generator.Study) error {
		if err := sink.InsertPair(ctx, p, s); err != nil {
			return err
		}
		if collect {
			patients = append(patients, p)
			studies = append(studies, s)
		}
		return nil
	}
	if opts.count > 0 {
		err = gen.GeneratePeriods(generator.VolumeSeries(1, float64(opts.count), 0, 0, opts.seed), insert)
	} else {
		err = gen.GeneratePeriods(generator.VolumeSeries(opts.periods, opts.baseVolume, opts.trend, opts.noise, opts.seed), insert)
	}
	if err != nil {
		return err
	}

	nPatients, err := sink.CountPatients(ctx)
	if err != nil {
		return err
	}
	nStudies, err := sink.CountStudies(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "generated %d patients and %d studies (seed %d)\n", nPatients, nStudies, opts.seed)

	if collect {
		manifest, err := runExport(ctx, opts, patients, studies)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "exported run %s via %s driver\n", manifest.RunID, manifest.Driver)
	}
	return nil
}

func openSink(ctx context.Context, opts options) (store.Store, error) {
	switch opts.sink {
	case "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.NewStore(opts.sqlitePath)
	case "postgres":
		return postgres.NewStore(ctx, opts.postgresDSN)
	default:
		return nil, fmt.Errorf("unknown sink %q", opts.sink)
	}
}

func openExportStore(ctx context.Context, opts options) (blob.Store, error) {
	switch opts.exportDriver {
	case "fs":
		return blobfs.NewStore(opts.exportDir)
	case "s3":
		return blobs3.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown export driver %q", opts.exportDriver)
	}
}

func runExport(ctx context.Context, opts options, patients []generator.Patient, studies []generator.Study) (export.Manifest, error) {
	exportStore, err := openExportStore(ctx, opts)
	if err != nil {
		return export.Manifest{}, err
	}
	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	return export.New(exportStore).Export(ctx, runID, opts.seed, patients, studies)
}

func setupMetrics(gen *generator.Generator, opts options) error {
	var handler http.Handler
	switch opts.metrics {
	case "":
		if opts.metricsAddr != "" {
			return fmt.Errorf("-metrics-addr requires -metrics")
		}
		return nil
	case "expvar":
		gen.SetRecorder(runmetrics.NewExpvarRecorder("medsynth_run_metrics"))
		handler = expvar.Handler()
	case "prometheus":
		gen.SetRecorder(runmetrics.NewPrometheusRecorder(prometheus.DefaultRegisterer))
		handler = promhttp.Handler()
	default:
		return fmt.Errorf("unknown metrics recorder %q", opts.metrics)
	}
	if opts.metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			_ = http.ListenAndServe(opts.metricsAddr, mux)
		}()
	}
	return nil
}
