package assembly

import "fmt"

// DataReport is one line of an assembly_data_report.jsonl file as produced by
// the Datasets command line tool. Keys are camel-cased and the gene counts
// sit under annotationInfo.stats.
type DataReport struct {
	Accession Text `json:"accession"`
	Organism  struct {
		Name Text `json:"organismName"`
	} `json:"organism"`
	Info struct {
		Name                Text `json:"assemblyName"`
		Submitter           Text `json:"submitter"`
		BioProjectAccession Text `json:"bioprojectAccession"`
	} `json:"assemblyInfo"`
	Stats struct {
		TotalSequenceLength Number `json:"totalSequenceLength"`
		GCPercent           Number `json:"gcPercent"`
	} `json:"assemblyStats"`
	Annot struct {
		ReleaseDate Text `json:"releaseDate"`
		Stats       struct {
			GeneCounts struct {
				Total         Number `json:"total"`
				ProteinCoding Number `json:"proteinCoding"`
				Pseudogene    Number `json:"pseudogene"`
			} `json:"geneCounts"`
		} `json:"stats"`
	} `json:"annotationInfo"`
}

// SummaryRow is the flattened data report. It is a separate schema from Row
// and the two are never merged.
type SummaryRow struct {
	Assembly       Text    `json:"Assembly"`
	Accession      Text    `json:"Accession"`
	ScientificName Text    `json:"Scientific_name"`
	SizeMb         float64 `json:"Size(Mb)"`
	GCPercent      Number  `json:"GC(%)"`
	Genes          Number  `json:"Genes"`
	Proteins       Number  `json:"Proteins"`
	Pseudogenes    Number  `json:"Pseudogenes"`
	AnnotationDate Text    `json:"Annotation_date"`
	Submitter      Text    `json:"Submitter"`
	BioProject     Text    `json:"BioProject"`
}

var summaryColumns = []string{
	"Assembly", "Accession", "Scientific_name", "Size(Mb)", "GC(%)",
	"Genes", "Proteins", "Pseudogenes", "Annotation_date", "Submitter",
	"BioProject",
}

// FromDataReport flattens a data report line. The sequence length is coerced
// to an integer before it is scaled to megabases.
func FromDataReport(d DataReport) (SummaryRow, error) {
	length, err := d.Stats.TotalSequenceLength.Int()
	if err != nil {
		return SummaryRow{}, fmt.Errorf("totalSequenceLength: %w", err)
	}
	gc := d.Annot.Stats.GeneCounts
	return SummaryRow{
		Assembly:       d.Info.Name,
		Accession:      d.Accession,
		ScientificName: d.Organism.Name,
		SizeMb:         Scale(float64(length), 1e6),
		GCPercent:      d.Stats.GCPercent,
		Genes:          gc.Total,
		Proteins:       gc.ProteinCoding,
		Pseudogenes:    gc.Pseudogene,
		AnnotationDate: d.Annot.ReleaseDate,
		Submitter:      d.Info.Submitter,
		BioProject:     d.Info.BioProjectAccession,
	}, nil
}

func (SummaryRow) Columns() []string { return summaryColumns }

func (r SummaryRow) Values() []any {
	return []any{
		r.Assembly, r.Accession, r.ScientificName, r.SizeMb, r.GCPercent,
		r.Genes, r.Proteins, r.Pseudogenes, r.AnnotationDate, r.Submitter,
		r.BioProject,
	}
}
