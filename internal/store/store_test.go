package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/gff"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "delftia.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveLoadAssemblies(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run, err := s.StartRun(ctx, SourceDatasets, "80866")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.RunID == "" || run.Status != StatusRunning {
		t.Fatalf("unexpected run: %+v", run)
	}
	rows := []assembly.Row{
		{
			Assembly:           assembly.NewText("ASM1866v1"),
			GenBank:            assembly.NewText("GCA_000018665.1"),
			TaxID:              assembly.NewInt(398578),
			SizeMb:             6.77,
			ContigN50Kb:        6767.51,
			GCPercent:          assembly.NewNumber(66.5),
			CheckMCompleteness: assembly.NewNumber(99.2),
			HighQuality:        assembly.NewFlag(true),
		},
		{GenBank: assembly.NewText("GCA_2.1"), HighQuality: assembly.NewFlag(false)},
	}
	if err := s.SaveAssemblies(ctx, run, rows); err != nil {
		t.Fatalf("SaveAssemblies: %v", err)
	}
	if err := s.FinishRun(ctx, run, len(rows), nil); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	latest, err := s.LatestRun(ctx, SourceDatasets)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.RunID != run.RunID || latest.Status != StatusComplete || latest.Rows != 2 || latest.EndTime == nil {
		t.Fatalf("unexpected latest run: %+v", latest)
	}

	got, err := s.LoadAssemblies(ctx, run.RunID)
	if err != nil {
		t.Fatalf("LoadAssemblies: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].Assembly.String() != "ASM1866v1" || got[0].TaxID.String() != "398578" || got[0].SizeMb != 6.77 {
		t.Fatalf("unexpected first row: %+v", got[0])
	}
	if !got[0].HighQuality.Value || got[1].HighQuality.Value || got[1].Assembly.Valid {
		t.Fatalf("unexpected flags or nulls: %+v / %+v", got[0], got[1])
	}
}

func TestFinishRunPartialAndFailed(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	partial, _ := s.StartRun(ctx, SourceDatasets, "80866")
	if err := s.FinishRun(ctx, partial, 3, errors.New("status 503")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if partial.Status != StatusPartial || partial.ErrorLog == nil {
		t.Fatalf("expected partial run with error log, got %+v", partial)
	}

	// later start time so LatestRun is deterministic
	s.now = func() time.Time { return time.Now().Add(time.Minute) }
	failed, _ := s.StartRun(ctx, SourceDatasets, "80866")
	if err := s.FinishRun(ctx, failed, 0, errors.New("dial tcp: timeout")); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	latest, err := s.LatestRun(ctx, SourceDatasets)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if latest.RunID != failed.RunID || latest.Status != StatusFailed {
		t.Fatalf("unexpected latest run: %+v", latest)
	}
}

func TestLatestRunMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.LatestRun(context.Background(), SourceGFF); !errors.Is(err, ErrNoRun) {
		t.Fatalf("expected ErrNoRun, got %v", err)
	}
}

func TestSaveFeaturesAndSummaries(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	run, err := s.StartRun(ctx, SourceGFF, "genomic.gff")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	features := make([]gff.Feature, 1200)
	for i := range features {
		features[i] = gff.Feature{SequenceID: "chr1", FeatureType: gff.FeatureGene, Start: int64(i + 1), End: int64(i + 10), Strand: "+", GenomeID: gff.DefaultGenomeID}
	}
	if err := s.SaveFeatures(ctx, run, features); err != nil {
		t.Fatalf("SaveFeatures: %v", err)
	}
	got, err := s.LoadFeatures(ctx, run.RunID)
	if err != nil {
		t.Fatalf("LoadFeatures: %v", err)
	}
	if len(got) != len(features) || got[1199].Start != 1200 || got[0] != features[0] {
		t.Fatalf("unexpected features: %d rows", len(got))
	}

	srun, _ := s.StartRun(ctx, SourceDataReport, "assembly_data_report.jsonl")
	summaries := []assembly.SummaryRow{{Accession: assembly.NewText("GCF_1.1"), SizeMb: 4.2}}
	if err := s.SaveSummaries(ctx, srun, summaries); err != nil {
		t.Fatalf("SaveSummaries: %v", err)
	}
	if n, err := s.CountSummaries(ctx, srun.RunID); err != nil || n != 1 {
		t.Fatalf("expected 1 summary, got %d (%v)", n, err)
	}
	if err := s.SaveSummaries(ctx, srun, nil); err != nil {
		t.Fatalf("saving nothing should be a no-op: %v", err)
	}
}

func TestAssemblyNumbersKeepTheirSpelling(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	num := func(raw string) assembly.Number {
		var n assembly.Number
		if err := n.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		return n
	}
	row := assembly.Row{
		GenBank:             assembly.NewText("GCA_000018665.1"),
		TaxID:               num(`"+80866"`),
		GCPercent:           num(`"66.50"`),
		CheckMCompleteness:  num(`99.20`),
		CheckMContamination: num(`{"value": 0.4}`),
		BUSCO:               num(`{"complete":0.99}`),
	}
	run, err := s.StartRun(ctx, SourceDatasets, "80866")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := s.SaveAssemblies(ctx, run, []assembly.Row{row}); err != nil {
		t.Fatalf("SaveAssemblies: %v", err)
	}
	got, err := s.LoadAssemblies(ctx, run.RunID)
	if err != nil || len(got) != 1 {
		t.Fatalf("LoadAssemblies: %d rows (%v)", len(got), err)
	}
	r := got[0]
	if r.GCPercent.String() != "66.50" || r.CheckMCompleteness.String() != "99.20" || r.TaxID.String() != "+80866" {
		t.Fatalf("numbers changed spelling: gc=%s checkm=%s tax=%s", r.GCPercent, r.CheckMCompleteness, r.TaxID)
	}
	if r.GCPercent.Float() != 66.5 || !r.GCPercent.Valid() {
		t.Fatalf("expected numeric gc, got %v", r.GCPercent.Float())
	}
	if r.BUSCO.String() != `{"complete":0.99}` || r.CheckMContamination.Valid() {
		t.Fatalf("unexpected opaque leaves: busco=%s contamination=%s", r.BUSCO, r.CheckMContamination)
	}
	for _, n := range []assembly.Number{r.GCPercent, r.TaxID, r.BUSCO} {
		b, err := n.MarshalJSON()
		if err != nil || !json.Valid(b) {
			t.Fatalf("invalid JSON after reload: %s (%v)", b, err)
		}
	}
}
