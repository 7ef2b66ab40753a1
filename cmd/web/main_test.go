package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/store"
)

func testRows() []assembly.Row {
	return []assembly.Row{
		{
			Assembly:       assembly.NewText("ASM1866v1"),
			GenBank:        assembly.NewText("GCA_000018665.1"),
			RefSeq:         assembly.NewText("GCF_000018665.1"),
			ScientificName: assembly.NewText("Delftia acidovorans SPH-1"),
			Level:          assembly.NewText("Complete Genome"),
			SizeMb:         6.77,
			ContigN50Kb:    6767.51,
			HighQuality:    assembly.NewFlag(true),
		},
		{
			Assembly:       assembly.NewText("ASM2v1"),
			GenBank:        assembly.NewText("GCA_000000002.1"),
			ScientificName: assembly.NewText("Delftia tsuruhatensis"),
			Level:          assembly.NewText("Contig"),
			SizeMb:         6.9,
			ContigN50Kb:    120.5,
			HighQuality:    assembly.NewFlag(false),
		},
	}
}

func newTestServer(t *testing.T, rows []assembly.Row) *httptest.Server {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assemblies.json")
	if err := assembly.WriteDump(path, rows); err != nil {
		t.Fatalf("write dump: %v", err)
	}
	logger := log.New(io.Discard)
	srv := httptest.NewServer(loggingMiddleware(logger, newMux(logger, dumpSource(path))))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, header map[string]string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestFilterAndSort(t *testing.T) {
	rows := testRows()
	got := filterAndSort(rows, "TSURU", "")
	if len(got) != 1 || got[0].GenBank.String() != "GCA_000000002.1" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	got = filterAndSort(rows, "", "size")
	if got[0].SizeMb != 6.9 {
		t.Fatalf("expected largest genome first, got %v", got[0].SizeMb)
	}
	got = filterAndSort(rows, "", "accession")
	if got[0].GenBank.String() != "GCA_000000002.1" {
		t.Fatalf("expected accession order, got %s", got[0].GenBank)
	}
	// unknown sort keeps fetch order
	got = filterAndSort(rows, "", "bogus")
	if got[0].GenBank.String() != "GCA_000018665.1" {
		t.Fatalf("expected fetch order, got %s", got[0].GenBank)
	}
}

func TestIndexRendersTable(t *testing.T) {
	srv := newTestServer(t, testRows())
	code, body := get(t, srv.URL+"/?q=sph", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if !strings.Contains(body, "GCA_000018665.1") || strings.Contains(body, "GCA_000000002.1") {
		t.Fatalf("expected filtered table in index:\n%s", body)
	}
	if !strings.Contains(body, "2 assemblies") {
		t.Fatalf("expected summary of all rows in index")
	}
}

func TestAssemblyDetailFragmentAndPage(t *testing.T) {
	srv := newTestServer(t, testRows())

	code, frag := get(t, srv.URL+"/assembly/GCA_000018665.1", map[string]string{"HX-Request": "true"})
	if code != http.StatusOK || strings.Contains(frag, "<html") || !strings.Contains(frag, "6767.51") {
		t.Fatalf("unexpected fragment (%d):\n%s", code, frag)
	}
	code, page := get(t, srv.URL+"/assembly/GCF_000018665.1", nil)
	if code != http.StatusOK || !strings.Contains(page, "<html") {
		t.Fatalf("unexpected page (%d):\n%s", code, page)
	}
	if code, _ := get(t, srv.URL+"/assembly/GCA_404", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestAPIAssembly(t *testing.T) {
	srv := newTestServer(t, testRows())
	code, body := get(t, srv.URL+"/api/assembly/GCA_000000002.1", nil)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m["High_quality"] != false || m["Level"] != "Contig" || m["Size_(Mb)"] != 6.9 {
		t.Fatalf("unexpected assembly json: %v", m)
	}

	code, body = get(t, srv.URL+"/api/assemblies?sort=n50", nil)
	var list []map[string]any
	if err := json.Unmarshal([]byte(body), &list); err != nil || code != http.StatusOK {
		t.Fatalf("decode list (%d): %v", code, err)
	}
	if len(list) != 2 || list[0]["GenBank"] != "GCA_000018665.1" {
		t.Fatalf("unexpected list: %v", list)
	}
}

func TestAPISummary(t *testing.T) {
	srv := newTestServer(t, testRows())
	_, body := get(t, srv.URL+"/api/summary", nil)
	var s assembly.Summary
	if err := json.Unmarshal([]byte(body), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Assemblies != 2 || s.HighQuality != 1 || s.Complete != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestSQLiteSource(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "delftia.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer st.Close()
	src := &sqliteSource{path: "delftia.db", st: st}

	rows, err := src.Rows(ctx)
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected no rows before any run, got %d (%v)", len(rows), err)
	}

	run, err := st.StartRun(ctx, store.SourceDatasets, "80866")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := st.SaveAssemblies(ctx, run, testRows()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := st.FinishRun(ctx, run, 2, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}
	rows, err = src.Rows(ctx)
	if err != nil || len(rows) != 2 || rows[1].GenBank.String() != "GCA_000000002.1" {
		t.Fatalf("unexpected rows from sqlite: %+v (%v)", rows, err)
	}
}
