package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/store"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/table"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"cell": table.Format,
}).ParseFS(templateFS, "templates/*.html"))

// AssembliesPage is used to render the base page and to carry query state
type AssembliesPage struct {
	Assemblies []assembly.Row
	Summary    assembly.Summary
	Query      string
	Sort       string
	Source     string
}

// rowSource returns the assemblies to browse.
type rowSource interface {
	Rows(ctx context.Context) ([]assembly.Row, error)
	String() string
}

// dumpSource reads a fetch --json dump on every request so a new fetch
// shows up without a restart.
type dumpSource string

func (d dumpSource) Rows(context.Context) ([]assembly.Row, error) { return assembly.ReadDump(string(d)) }
func (d dumpSource) String() string { return string(d) }

// sqliteSource serves the latest datasets run stored in a SQLite export.
type sqliteSource struct {
	path string
	st   *store.Store
}

func (s *sqliteSource) Rows(ctx context.Context) ([]assembly.Row, error) {
	run, err := s.st.LatestRun(ctx, store.SourceDatasets)
	if errors.Is(err, store.ErrNoRun) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.st.LoadAssemblies(ctx, run.RunID)
}

func (s *sqliteSource) String() string { return s.path }

// statusResponseWriter captures status and bytes written for logging
type statusResponseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// loggingMiddleware logs each request with method, path, status, size and duration
func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w}
		next.ServeHTTP(srw, r)
		if srw.status == 0 {
			srw.status = http.StatusOK
		}
		logger.Info("request",
			"remote", r.RemoteAddr,
			"method", r.Method,
			"uri", r.URL.RequestURI(),
			"status", srw.status,
			"bytes", srw.written,
			"duration", time.Since(start),
			"ua", r.UserAgent())
	})
}

// filterAndSort keeps rows whose accession, name, assembly or submitter
// contains q (case-insensitive) and orders them by sortMode.
func filterAndSort(rows []assembly.Row, q, sortMode string) []assembly.Row {
	q = strings.ToLower(strings.TrimSpace(q))
	filtered := make([]assembly.Row, 0, len(rows))
	for _, r := range rows {
		if q == "" {
			filtered = append(filtered, r)
			continue
		}
		for _, s := range []string{r.GenBank.String(), r.RefSeq.String(), r.ScientificName.String(), r.Assembly.String(), r.Submitter.String()} {
			if strings.Contains(strings.ToLower(s), q) {
				filtered = append(filtered, r)
				break
			}
		}
	}

	switch sortMode {
	case "size":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].SizeMb > filtered[j].SizeMb })
	case "n50":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].ContigN50Kb > filtered[j].ContigN50Kb })
	case "name":
		sort.SliceStable(filtered, func(i, j int) bool {
			return strings.ToLower(filtered[i].ScientificName.String()) < strings.ToLower(filtered[j].ScientificName.String())
		})
	case "accession":
		sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].GenBank.String() < filtered[j].GenBank.String() })
	}
	// anything else keeps fetch order
	return filtered
}

func findRow(rows []assembly.Row, acc string) (assembly.Row, bool) {
	for _, r := range rows {
		if r.GenBank.String() == acc || (r.RefSeq.Valid && r.RefSeq.String() == acc) {
			return r, true
		}
	}
	return assembly.Row{}, false
}

func isFragment(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" || r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func indexHandler(logger *log.Logger, src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		rows, err := src.Rows(r.Context())
		if err != nil {
			logger.Warn("failed to read assemblies for index", "source", src, "err", err)
			rows = nil
		}
		q, sortMode := r.URL.Query().Get("q"), r.URL.Query().Get("sort")
		page := AssembliesPage{
			Assemblies: filterAndSort(rows, q, sortMode),
			Summary:    assembly.Summarize(rows),
			Query:      q,
			Sort:       sortMode,
			Source:     src.String(),
		}
		if err := templates.ExecuteTemplate(w, "base.html", page); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func assembliesHandler(src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := src.Rows(r.Context())
		if err != nil {
			http.Error(w, "failed to read assemblies", http.StatusInternalServerError)
			return
		}
		filtered := filterAndSort(rows, r.URL.Query().Get("q"), r.URL.Query().Get("sort"))
		// render fragment (send only the slice)
		if err := templates.ExecuteTemplate(w, "assemblies.html", filtered); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func assemblyHandler(src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acc := r.PathValue("acc")
		rows, err := src.Rows(r.Context())
		if err != nil {
			http.Error(w, "failed to read assemblies", http.StatusInternalServerError)
			return
		}
		row, ok := findRow(rows, acc)
		if !ok {
			http.Error(w, "assembly not found", http.StatusNotFound)
			return
		}
		name := "assembly_page.html"
		if isFragment(r) {
			name = "detail.html"
		}
		if err := templates.ExecuteTemplate(w, name, row); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// apiAssemblyHandler returns JSON for a single assembly
func apiAssemblyHandler(src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := src.Rows(r.Context())
		if err != nil {
			http.Error(w, "failed to read assemblies", http.StatusInternalServerError)
			return
		}
		row, ok := findRow(rows, r.PathValue("acc"))
		if !ok {
			http.Error(w, "assembly not found", http.StatusNotFound)
			return
		}
		writeJSON(w, row)
	}
}

// apiAssembliesHandler returns the filtered, sorted list as JSON.
func apiAssembliesHandler(src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := src.Rows(r.Context())
		if err != nil {
			http.Error(w, "failed to read assemblies", http.StatusInternalServerError)
			return
		}
		writeJSON(w, filterAndSort(rows, r.URL.Query().Get("q"), r.URL.Query().Get("sort")))
	}
}

func apiSummaryHandler(src rowSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := src.Rows(r.Context())
		if err != nil {
			http.Error(w, "failed to read assemblies", http.StatusInternalServerError)
			return
		}
		writeJSON(w, assembly.Summarize(rows))
	}
}

func newMux(logger *log.Logger, src rowSource) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", indexHandler(logger, src))
	mux.HandleFunc("GET /assemblies", assembliesHandler(src))
	mux.HandleFunc("GET /assembly/{acc}", assemblyHandler(src))
	// API endpoints for SPA-like interactions
	mux.HandleFunc("GET /api/assemblies", apiAssembliesHandler(src))
	mux.HandleFunc("GET /api/assembly/{acc}", apiAssemblyHandler(src))
	mux.HandleFunc("GET /api/summary", apiSummaryHandler(src))
	return mux
}

func main() {
	addr := kingpin.Flag("addr", "HTTP address to serve").Default(":8080").String()
	dataPath := kingpin.Flag("data", "assemblies JSON written by delftia fetch --json").Default(assembly.DefaultDumpPath).String()
	sqlitePath := kingpin.Flag("sqlite", "serve the latest fetch stored in this SQLite export instead of --data").Default("").String()
	logFile := kingpin.Flag("log", "path to write access logs (optional). If empty, logs go to stderr only").Default("").String()
	kingpin.Parse()

	var out io.Writer = os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatal("failed to open log file", "path", *logFile, "err", err)
		}
		defer f.Close()
		out = io.MultiWriter(os.Stderr, f)
	}
	logger := log.NewWithOptions(out, log.Options{ReportTimestamp: true, Prefix: "delftia-web"})

	var src rowSource = dumpSource(*dataPath)
	if *sqlitePath != "" {
		st, err := store.Open(context.Background(), *sqlitePath)
		if err != nil {
			logger.Fatal("failed to open sqlite export", "path", *sqlitePath, "err", err)
		}
		defer st.Close()
		src = &sqliteSource{path: *sqlitePath, st: st}
	}

	handler := loggingMiddleware(logger, newMux(logger, src))
	srv := &http.Server{Addr: *addr, Handler: handler, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}
	logger.Info("serving assembly browser", "addr", *addr, "source", src)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", "err", err)
	}
}
