package store

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
	"github.com/SPGundewar/Delftia-Analysis-tool/internal/gff"
)

// Run sources.
const (
	SourceDatasets   = "datasets"
	SourceDataReport = "data_report"
	SourceGFF        = "gff"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusFailed   = "failed"
)

// DownloadRun tracks one pipeline run and its outcome.
type DownloadRun struct {
	bun.BaseModel `bun:"table:download_runs,alias:dr"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id"`
	RunID     string     `bun:"run_id,unique,notnull" json:"run_id"`
	Source    string     `bun:"source,notnull" json:"source"`
	Input     string     `bun:"input" json:"input"`
	StartTime time.Time  `bun:"start_time,notnull" json:"start_time"`
	EndTime   *time.Time `bun:"end_time" json:"end_time,omitempty"`
	Status    string     `bun:"status,notnull" json:"status"`
	Rows      int        `bun:"rows,default:0" json:"rows"`
	ErrorLog  *string    `bun:"error_log" json:"error_log,omitempty"`
}

// AssemblyModel is a stored assembly.Row.
type AssemblyModel struct {
	bun.BaseModel `bun:"table:assemblies,alias:a"`

	ID                   int64   `bun:"id,pk,autoincrement"`
	RunID                string  `bun:"run_id,notnull"`
	Position             int     `bun:"position,notnull"`
	Assembly             *string `bun:"assembly"`
	GenBank              *string `bun:"genbank"`
	RefSeq               *string `bun:"refseq"`
	ScientificName       *string `bun:"scientific_name"`
	TaxID                *string `bun:"tax_id"`
	TaxonomyCheckStatus  *string `bun:"taxonomy_check_status"`
	Annotation           *string `bun:"annotation"`
	AnnotationDate       *string `bun:"annotation_date"`
	SizeMb               float64 `bun:"size_mb,notnull"`
	Chromosomes          *string `bun:"chromosomes"`
	Contigs              *string `bun:"contigs"`
	Level                *string `bun:"level"`
	ReleaseDate          *string `bun:"release_date"`
	WGSAccession         *string `bun:"wgs_accession"`
	ContigN50Kb          float64 `bun:"contig_n50_kb,notnull"`
	ScaffoldN50Kb        float64 `bun:"scaffold_n50_kb,notnull"`
	Scaffolds            *string `bun:"scaffolds"`
	GCPercent            *string `bun:"gc_percent"`
	BUSCO                *string `bun:"busco"`
	SequencingTechnology *string `bun:"sequencing_technology"`
	Submitter            *string `bun:"submitter"`
	BioProject           *string `bun:"bioproject"`
	BioSample            *string `bun:"biosample"`
	Genes                *string `bun:"genes"`
	ProteinCoding        *string `bun:"protein_coding"`
	Pseudogenes          *string `bun:"pseudogenes"`
	TypeMaterial         *bool   `bun:"type_material"`
	CheckMMarkerSet      *string `bun:"checkm_marker_set"`
	CheckMCompleteness   *string `bun:"checkm_completeness"`
	CheckMContamination  *string `bun:"checkm_contamination"`
	Modifier             *string `bun:"modifier"`
	HighQuality          *bool   `bun:"high_quality"`
}

// SummaryModel is a stored assembly.SummaryRow.
type SummaryModel struct {
	bun.BaseModel `bun:"table:assembly_summaries,alias:s"`

	ID             int64   `bun:"id,pk,autoincrement"`
	RunID          string  `bun:"run_id,notnull"`
	Position       int     `bun:"position,notnull"`
	Assembly       *string `bun:"assembly"`
	Accession      *string `bun:"accession"`
	ScientificName *string `bun:"scientific_name"`
	SizeMb         float64 `bun:"size_mb,notnull"`
	GCPercent      *string `bun:"gc_percent"`
	Genes          *string `bun:"genes"`
	Proteins       *string `bun:"proteins"`
	Pseudogenes    *string `bun:"pseudogenes"`
	AnnotationDate *string `bun:"annotation_date"`
	Submitter      *string `bun:"submitter"`
	BioProject     *string `bun:"bioproject"`
}

// FeatureModel is a stored gff.Feature.
type FeatureModel struct {
	bun.BaseModel `bun:"table:gene_features,alias:f"`

	ID          int64  `bun:"id,pk,autoincrement"`
	RunID       string `bun:"run_id,notnull"`
	Position    int    `bun:"position,notnull"`
	SequenceID  string `bun:"sequence_id,notnull"`
	FeatureType string `bun:"feature_type,notnull"`
	GeneID      string `bun:"gene_id"`
	GeneName    string `bun:"gene_name"`
	Product     string `bun:"product"`
	ProteinID   string `bun:"protein_id"`
	Start       int64  `bun:"start,notnull"`
	End         int64  `bun:"end,notnull"`
	Strand      string `bun:"strand"`
	GenomeID    string `bun:"genome_id,notnull"`
}

func textPtr(t assembly.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.Value
	return &s
}

// numText stores a Number as its JSON spelling so quoted counts, odd shapes
// and trailing zeros all come back unchanged.
func numText(n assembly.Number) *string {
	if !n.Present() {
		return nil
	}
	b, err := n.MarshalJSON()
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func flagPtr(f assembly.Flag) *bool {
	if !f.Valid {
		return nil
	}
	b := f.Value
	return &b
}

func toText(p *string) assembly.Text {
	if p == nil {
		return assembly.Text{}
	}
	return assembly.NewText(*p)
}

func toNumber(p *string) assembly.Number {
	if p == nil {
		return assembly.Number{}
	}
	var n assembly.Number
	if err := n.UnmarshalJSON([]byte(*p)); err != nil {
		return assembly.Number{}
	}
	return n
}

func toFlag(p *bool) assembly.Flag {
	if p == nil {
		return assembly.Flag{}
	}
	return assembly.NewFlag(*p)
}

func newAssemblyModel(runID string, pos int, r assembly.Row) AssemblyModel {
	return AssemblyModel{
		RunID:                runID,
		Position:             pos,
		Assembly:             textPtr(r.Assembly),
		GenBank:              textPtr(r.GenBank),
		RefSeq:               textPtr(r.RefSeq),
		ScientificName:       textPtr(r.ScientificName),
		TaxID:                numText(r.TaxID),
		TaxonomyCheckStatus:  textPtr(r.TaxonomyCheckStatus),
		Annotation:           textPtr(r.Annotation),
		AnnotationDate:       textPtr(r.AnnotationDate),
		SizeMb:               r.SizeMb,
		Chromosomes:          numText(r.Chromosomes),
		Contigs:              numText(r.Contigs),
		Level:                textPtr(r.Level),
		ReleaseDate:          textPtr(r.ReleaseDate),
		WGSAccession:         textPtr(r.WGSAccession),
		ContigN50Kb:          r.ContigN50Kb,
		ScaffoldN50Kb:        r.ScaffoldN50Kb,
		Scaffolds:            numText(r.Scaffolds),
		GCPercent:            numText(r.GCPercent),
		BUSCO:                numText(r.BUSCO),
		SequencingTechnology: textPtr(r.SequencingTechnology),
		Submitter:            textPtr(r.Submitter),
		BioProject:           textPtr(r.BioProject),
		BioSample:            textPtr(r.BioSample),
		Genes:                numText(r.Genes),
		ProteinCoding:        numText(r.ProteinCoding),
		Pseudogenes:          numText(r.Pseudogenes),
		TypeMaterial:         flagPtr(r.TypeMaterial),
		CheckMMarkerSet:      textPtr(r.CheckMMarkerSet),
		CheckMCompleteness:   numText(r.CheckMCompleteness),
		CheckMContamination:  numText(r.CheckMContamination),
		Modifier:             textPtr(r.Modifier),
		HighQuality:          flagPtr(r.HighQuality),
	}
}

// Row converts the model back to an assembly.Row.
func (m AssemblyModel) Row() assembly.Row {
	return assembly.Row{
		Assembly:             toText(m.Assembly),
		GenBank:              toText(m.GenBank),
		RefSeq:               toText(m.RefSeq),
		ScientificName:       toText(m.ScientificName),
		TaxID:                toNumber(m.TaxID),
		TaxonomyCheckStatus:  toText(m.TaxonomyCheckStatus),
		Annotation:           toText(m.Annotation),
		AnnotationDate:       toText(m.AnnotationDate),
		SizeMb:               m.SizeMb,
		Chromosomes:          toNumber(m.Chromosomes),
		Contigs:              toNumber(m.Contigs),
		Level:                toText(m.Level),
		ReleaseDate:          toText(m.ReleaseDate),
		WGSAccession:         toText(m.WGSAccession),
		ContigN50Kb:          m.ContigN50Kb,
		ScaffoldN50Kb:        m.ScaffoldN50Kb,
		Scaffolds:            toNumber(m.Scaffolds),
		GCPercent:            toNumber(m.GCPercent),
		BUSCO:                toNumber(m.BUSCO),
		SequencingTechnology: toText(m.SequencingTechnology),
		Submitter:            toText(m.Submitter),
		BioProject:           toText(m.BioProject),
		BioSample:            toText(m.BioSample),
		Genes:                toNumber(m.Genes),
		ProteinCoding:        toNumber(m.ProteinCoding),
		Pseudogenes:          toNumber(m.Pseudogenes),
		TypeMaterial:         toFlag(m.TypeMaterial),
		CheckMMarkerSet:      toText(m.CheckMMarkerSet),
		CheckMCompleteness:   toNumber(m.CheckMCompleteness),
		CheckMContamination:  toNumber(m.CheckMContamination),
		Modifier:             toText(m.Modifier),
		HighQuality:          toFlag(m.HighQuality),
	}
}

func newSummaryModel(runID string, pos int, r assembly.SummaryRow) SummaryModel {
	return SummaryModel{
		RunID:          runID,
		Position:       pos,
		Assembly:       textPtr(r.Assembly),
		Accession:      textPtr(r.Accession),
		ScientificName: textPtr(r.ScientificName),
		SizeMb:         r.SizeMb,
		GCPercent:      numText(r.GCPercent),
		Genes:          numText(r.Genes),
		Proteins:       numText(r.Proteins),
		Pseudogenes:    numText(r.Pseudogenes),
		AnnotationDate: textPtr(r.AnnotationDate),
		Submitter:      textPtr(r.Submitter),
		BioProject:     textPtr(r.BioProject),
	}
}

func newFeatureModel(runID string, pos int, f gff.Feature) FeatureModel {
	return FeatureModel{
		RunID:       runID,
		Position:    pos,
		SequenceID:  f.SequenceID,
		FeatureType: f.FeatureType,
		GeneID:      f.GeneID,
		GeneName:    f.GeneName,
		Product:     f.Product,
		ProteinID:   f.ProteinID,
		Start:       f.Start,
		End:         f.End,
		Strand:      f.Strand,
		GenomeID:    f.GenomeID,
	}
}

// Feature converts the model back to a gff.Feature.
func (m FeatureModel) Feature() gff.Feature {
	return gff.Feature{
		SequenceID:  m.SequenceID,
		FeatureType: m.FeatureType,
		GeneID:      m.GeneID,
		GeneName:    m.GeneName,
		Product:     m.Product,
		ProteinID:   m.ProteinID,
		Start:       m.Start,
		End:         m.End,
		Strand:      m.Strand,
		GenomeID:    m.GenomeID,
	}
}
