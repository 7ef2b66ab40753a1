package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/config"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/datareport"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/gff"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/ncbi"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/store"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/table"
)

// version is the program version. It can be overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

// timestampWriter prefixes each flushed line with an RFC3339 timestamp.
type timestampWriter struct {
	w   io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
}

// Write buffers bytes until a newline is found; for each full line, write a timestamped
// line to the underlying writer. Partial lines are kept in the buffer.
func (t *timestampWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	total := n
	for {
		line, err := t.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			t.buf.Reset()
			t.buf.WriteString(line)
			break
		}
		ts := time.Now().Format(time.RFC3339)
		if _, err := t.w.Write([]byte(ts + " " + line)); err != nil {
			return total, err
		}
	}
	return total, nil
}

// terminalWriter wraps an io.Writer and exposes an Fd method so libraries that
// inspect the file descriptor (for TTY detection) can work with wrapped writers.
type terminalWriter struct {
	w  io.Writer
	fd uintptr
}

func (tw *terminalWriter) Write(p []byte) (int, error) { return tw.w.Write(p) }

// Fd exposes the underlying file descriptor (e.g., os.Stderr.Fd()).
func (tw *terminalWriter) Fd() uintptr { return tw.fd }

type globals struct {
	configPath *string
	verbose    *bool
	logFile    *string
}

type fetchCmd struct {
	taxon    *string
	pageSize *int
	policy   *string
	csv      *bool
	csvPath  *string
	jsonPath *string
	sqlite   *string
	cache    *bool
	progress *bool
	preview  *int
}

type jsonlCmd struct {
	path    *string
	csvPath *string
	sqlite  *string
	preview *int
}

type gffCmd struct {
	path     *string
	genomeID *string
	csvPath  *string
	sqlite   *string
	preview  *int
}

func main() {
	app := kingpin.New("delftia", "Collect genome assembly metadata and gene annotations for a bacterial taxon")
	app.Version(version)
	g := globals{
		configPath: app.Flag("config", "path to config.json or config.yaml (optional)").Default("").String(),
		verbose:    app.Flag("verbose", "enable verbose (debug) logging").Short('v').Bool(),
		logFile:    app.Flag("log-file", "also append logs to this file").Default("").String(),
	}

	fetch := app.Command("fetch", "page through NCBI Datasets genome reports for a taxon")
	fc := fetchCmd{
		taxon:    fetch.Flag("taxon", "NCBI taxonomy id (default from config: 80866, Delftia)").Default("").String(),
		pageSize: fetch.Flag("page-size", "reports per page").Default("0").Int(),
		policy:   fetch.Flag("policy", "missing CheckM metrics policy: pass, zero, fail, unknown").Default("").String(),
		csv:      fetch.Flag("csv", "write the table to the configured out_csv path").Bool(),
		csvPath:  fetch.Flag("csv-path", "write the table to this CSV path").Default("").String(),
		jsonPath: fetch.Flag("json", "write rows as JSON for the tui/web browsers").Default("").String(),
		sqlite:   fetch.Flag("sqlite", "export rows to this SQLite database").Default("").String(),
		cache:    fetch.Flag("cache", "reuse cached dataset_report pages").Bool(),
		progress: fetch.Flag("progress", "show a progress bar").Bool(),
		preview:  fetch.Flag("preview", "rows to preview").Default("5").Int(),
	}

	jsonl := app.Command("jsonl", "flatten an assembly_data_report.jsonl file")
	jc := jsonlCmd{
		path:    jsonl.Arg("file", "path to assembly_data_report.jsonl").Default("").String(),
		csvPath: jsonl.Flag("csv-path", "write the table to this CSV path").Default("").String(),
		sqlite:  jsonl.Flag("sqlite", "export rows to this SQLite database").Default("").String(),
		preview: jsonl.Flag("preview", "rows to preview").Default("0").Int(),
	}

	gffc := app.Command("gff", "extract gene features from a GFF3 file")
	gc := gffCmd{
		path:     gffc.Arg("file", "path to genomic.gff").Default("").String(),
		genomeID: gffc.Flag("genome-id", "genome identifier attached to every row").Default("").String(),
		csvPath:  gffc.Flag("csv-path", "write the table to this CSV path").Default("").String(),
		sqlite:   gffc.Flag("sqlite", "export rows to this SQLite database").Default("").String(),
		preview:  gffc.Flag("preview", "rows to preview").Default("0").Int(),
	}

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// a local .env may carry NCBI_API_KEY; variables already set win
	_ = godotenv.Load()

	// load config (optional file)
	cfg, err := config.LoadConfig(*g.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if *g.logFile != "" {
		cfg.LogFile = *g.logFile
	}
	logger, closeLog := newLogger(cfg, *g.verbose)
	defer closeLog()
	logger.Debug("loaded config", "taxon_id", cfg.TaxonID, "page_size", cfg.PageSize, "quality_policy", cfg.QualityPolicy, "cache_path", cfg.CachePath, "sqlite_path", cfg.SQLitePath, "log_file", cfg.LogFile, "log_level", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch command {
	case fetch.FullCommand():
		err = runFetch(ctx, logger, cfg, fc)
	case jsonl.FullCommand():
		err = runJSONL(ctx, logger, cfg, jc)
	case gffc.FullCommand():
		err = runGFF(ctx, logger, cfg, gc)
	}
	if err != nil {
		logger.Error("run failed", "command", command, "err", err)
		closeLog()
		os.Exit(1)
	}
}

// newLogger builds the charm logger: stderr plus an optional append-only log
// file, every line prefixed with a timestamp.
func newLogger(cfg *config.Config, verbose bool) (*log.Logger, func()) {
	var loggerOut io.Writer = os.Stderr
	var logFileHandle *os.File
	if cfg.LogFile != "" {
		if f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			// write to both stderr and file so running interactively still shows logs
			loggerOut = io.MultiWriter(os.Stderr, f)
			logFileHandle = f
		}
	}
	tw := &timestampWriter{w: loggerOut}
	termW := &terminalWriter{w: tw, fd: os.Stderr.Fd()}
	logger := log.New(termW)

	// apply log level from flags/config (flags override config)
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		switch strings.ToLower(cfg.LogLevel) {
		case "debug":
			logger.SetLevel(log.DebugLevel)
		case "info", "":
			logger.SetLevel(log.InfoLevel)
		case "warn", "warning":
			logger.SetLevel(log.WarnLevel)
		case "error":
			logger.SetLevel(log.ErrorLevel)
		default:
			logger.SetLevel(log.InfoLevel)
			logger.Warn("unknown log_level in config, defaulting to info", "provided", cfg.LogLevel)
		}
	}
	if cfg.LogFile != "" && logFileHandle == nil {
		logger.Warn("log_file specified but could not be opened; logging to stderr only", "path", cfg.LogFile)
	}

	var once sync.Once
	return logger, func() {
		once.Do(func() {
			if logFileHandle != nil {
				_ = logFileHandle.Close()
			}
		})
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func runFetch(ctx context.Context, logger *log.Logger, cfg *config.Config, fc fetchCmd) error {
	taxon := firstNonEmpty(*fc.taxon, cfg.TaxonID, ncbi.DefaultTaxonID)
	policy, err := assembly.ParsePolicy(firstNonEmpty(*fc.policy, cfg.QualityPolicy))
	if err != nil {
		return err
	}
	pageSize := cfg.PageSize
	if *fc.pageSize > 0 {
		pageSize = *fc.pageSize
	}

	client := &ncbi.Client{
		BaseURL:  cfg.APIBaseURL,
		APIKey:   cfg.NcbiApiKey,
		PageSize: pageSize,
		Policy:   policy,
		Logger:   logger,
	}
	if *fc.cache || cfg.CachePath != "" {
		cachePath := cfg.CachePath
		if cachePath != "" {
			if abs, aerr := filepath.Abs(cachePath); aerr == nil {
				cachePath = abs
			}
		}
		cache, cerr := ncbi.OpenCache(cachePath, time.Duration(cfg.CacheTTLSecs)*time.Second)
		if cerr != nil {
			logger.Warn("page cache unavailable; fetching without it", "path", cachePath, "err", cerr)
		} else {
			defer cache.Close()
			client.Cache = cache
			logger.Debug("page cache enabled", "path", firstNonEmpty(cachePath, ncbi.DefaultCachePath()), "ttl_secs", cfg.CacheTTLSecs)
		}
	}
	if cfg.NcbiApiKey != "" {
		logger.Info("ncbi api key set (value not logged)")
	}

	var bar *pb.ProgressBar
	if *fc.progress {
		client.OnPage = func(fetched, total int) {
			if bar == nil {
				bar = pb.New(total)
				bar.Output = os.Stderr
				bar.Start()
			}
			bar.Set(fetched)
		}
	}

	logger.Info("fetching genome metadata", "taxon", taxon, "page_size", pageSize, "policy", policy)
	start := time.Now()
	res, fetchErr := client.FetchTaxon(ctx, taxon)
	if bar != nil {
		bar.Finish()
	}
	if fetchErr != nil {
		// the rows gathered before the failure are still tabulated
		logger.Error("fetch stopped early", "err", fetchErr, "pages", res.Pages, "rows", len(res.Rows))
	}
	logger.Info("fetch finished", "rows", len(res.Rows), "pages", res.Pages, "total_count", res.TotalCount, "duration_ms", time.Since(start).Milliseconds())

	tbl := table.FromRows(res.Rows)
	sum := assembly.Summarize(res.Rows)
	logger.Info("taxon summary", "assemblies", sum.Assemblies, "high_quality", sum.HighQuality, "complete", sum.Complete, "median_size_mb", sum.MedianSizeMb, "mean_gc_percent", sum.MeanGCPercent, "median_contig_n50_kb", sum.MedianContigN50)
	fmt.Println(tbl.Render(*fc.preview))

	csvPath := *fc.csvPath
	if csvPath == "" && *fc.csv {
		csvPath = cfg.OutCSV
	}
	if csvPath != "" {
		if err := tbl.WriteCSVFile(csvPath); err != nil {
			return err
		}
		logger.Info("wrote csv", "path", csvPath, "genomes", tbl.Len())
	}
	if *fc.jsonPath != "" {
		if err := assembly.WriteDump(*fc.jsonPath, res.Rows); err != nil {
			return err
		}
		logger.Info("wrote json", "path", *fc.jsonPath, "genomes", len(res.Rows))
	}
	if path := firstNonEmpty(*fc.sqlite, cfg.SQLitePath); path != "" {
		err := exportRun(ctx, logger, path, store.SourceDatasets, taxon, len(res.Rows), fetchErr, func(s *store.Store, run *store.DownloadRun) error {
			return s.SaveAssemblies(ctx, run, res.Rows)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func runJSONL(ctx context.Context, logger *log.Logger, cfg *config.Config, jc jsonlCmd) error {
	path := firstNonEmpty(*jc.path, cfg.JSONLPath, datareport.DefaultPath)
	rows, err := datareport.ReadFile(path)
	if err != nil {
		return err
	}
	tbl := table.FromRows(rows)
	logger.Info("read data report", "path", path, "rows", tbl.Len())
	preview := cfg.JSONLPreviewRows
	if *jc.preview > 0 {
		preview = *jc.preview
	}
	fmt.Println(tbl.Render(preview))

	if *jc.csvPath != "" {
		if err := tbl.WriteCSVFile(*jc.csvPath); err != nil {
			return err
		}
		logger.Info("wrote csv", "path", *jc.csvPath, "rows", tbl.Len())
	}
	if dbPath := firstNonEmpty(*jc.sqlite, cfg.SQLitePath); dbPath != "" {
		return exportRun(ctx, logger, dbPath, store.SourceDataReport, path, len(rows), nil, func(s *store.Store, run *store.DownloadRun) error {
			return s.SaveSummaries(ctx, run, rows)
		})
	}
	return nil
}

func runGFF(ctx context.Context, logger *log.Logger, cfg *config.Config, gc gffCmd) error {
	path := firstNonEmpty(*gc.path, cfg.GFFPath)
	genomeID := firstNonEmpty(*gc.genomeID, cfg.GenomeID, gff.DefaultGenomeID)
	features, err := gff.ParseFile(path, genomeID)
	if err != nil {
		return err
	}
	tbl := table.FromRows(features)
	preview := cfg.GFFPreviewRows
	if *gc.preview > 0 {
		preview = *gc.preview
	}
	fmt.Println(tbl.Render(preview))
	logger.Info("parsed genes", "path", path, "genes", tbl.Len(), "genome_id", genomeID)

	if *gc.csvPath != "" {
		if err := tbl.WriteCSVFile(*gc.csvPath); err != nil {
			return err
		}
		logger.Info("wrote csv", "path", *gc.csvPath, "genes", tbl.Len())
	}
	if dbPath := firstNonEmpty(*gc.sqlite, cfg.SQLitePath); dbPath != "" {
		return exportRun(ctx, logger, dbPath, store.SourceGFF, path, len(features), nil, func(s *store.Store, run *store.DownloadRun) error {
			return s.SaveFeatures(ctx, run, features)
		})
	}
	return nil
}

// exportRun opens the SQLite store, records a run and saves its rows.
func exportRun(ctx context.Context, logger *log.Logger, path, source, input string, rows int, runErr error, save func(*store.Store, *store.DownloadRun) error) error {
	s, err := store.Open(ctx, path)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer s.Close()
	run, err := s.StartRun(ctx, source, input)
	if err != nil {
		return err
	}
	if err := save(s, run); err != nil {
		_ = s.FinishRun(ctx, run, 0, err)
		return err
	}
	if err := s.FinishRun(ctx, run, rows, runErr); err != nil {
		return err
	}
	logger.Info("exported to sqlite", "path", path, "run_id", run.RunID, "source", source, "rows", rows, "status", run.Status)
	return nil
}
