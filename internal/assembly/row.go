package assembly

// Row is one assembly flattened for the taxon table. JSON names match the
// column headers so the browsers can read a fetch dump directly.
type Row struct {
	Assembly             Text    `json:"Assembly"`
	GenBank              Text    `json:"GenBank"`
	RefSeq               Text    `json:"RefSeq"`
	ScientificName       Text    `json:"Scientific_name"`
	TaxID                Number  `json:"Tax_ID"`
	TaxonomyCheckStatus  Text    `json:"Taxonomy_check_status"`
	Annotation           Text    `json:"Annotation"`
	AnnotationDate       Text    `json:"Annotation_Date"`
	SizeMb               float64 `json:"Size_(Mb)"`
	Chromosomes          Number  `json:"Chromosomes"`
	Contigs              Number  `json:"Contigs"`
	Level                Text    `json:"Level"`
	ReleaseDate          Text    `json:"Release_Date"`
	WGSAccession         Text    `json:"WGS_accession"`
	ContigN50Kb          float64 `json:"Contig_N50_(kb)"`
	ScaffoldN50Kb        float64 `json:"Scaffold_N50_(kb)"`
	Scaffolds            Number  `json:"Scaffolds"`
	GCPercent            Number  `json:"GC_percent"`
	BUSCO                Number  `json:"BUSCO"`
	SequencingTechnology Text    `json:"Sequencing_technology"`
	Submitter            Text    `json:"Submitter"`
	BioProject           Text    `json:"BioProject"`
	BioSample            Text    `json:"BioSample"`
	Genes                Number  `json:"Genes"`
	ProteinCoding        Number  `json:"Protein_coding"`
	Pseudogenes          Number  `json:"Pseudogenes"`
	TypeMaterial         Flag    `json:"Type_material"`
	CheckMMarkerSet      Text    `json:"CheckM_marker_set"`
	CheckMCompleteness   Number  `json:"CheckM_completeness(%)"`
	CheckMContamination  Number  `json:"CheckM_contamination(%)"`
	Modifier             Text    `json:"Modifier"`
	HighQuality          Flag    `json:"High_quality"`
}

var rowColumns = []string{
	"Assembly", "GenBank", "RefSeq", "Scientific_name", "Tax_ID",
	"Taxonomy_check_status", "Annotation", "Annotation_Date",
	"Size_(Mb)", "Chromosomes", "Contigs", "Level", "Release_Date",
	"WGS_accession", "Contig_N50_(kb)", "Scaffold_N50_(kb)", "Scaffolds",
	"GC_percent", "BUSCO",
	"Sequencing_technology", "Submitter", "BioProject", "BioSample",
	"Genes", "Protein_coding", "Pseudogenes",
	"Type_material", "CheckM_marker_set", "CheckM_completeness(%)",
	"CheckM_contamination(%)", "Modifier", "High_quality",
}

// FromReport flattens a report. Sizes are reported in megabases and N50
// values in kilobases; absent lengths count as 0.
func FromReport(r Report, policy QualityPolicy) Row {
	return Row{
		Assembly:             r.Info.Name,
		GenBank:              r.Info.GenBankAccession.Or(r.Accession),
		RefSeq:               r.Info.RefSeqAccession,
		ScientificName:       r.Organism.Name,
		TaxID:                r.Organism.TaxID,
		TaxonomyCheckStatus:  r.ANI.TaxonomyCheckStatus,
		Annotation:           r.Annot.Name,
		AnnotationDate:       r.Annot.Date,
		SizeMb:               Scale(r.Stats.TotalSequenceLength.Float(), 1e6),
		Chromosomes:          r.Stats.Chromosomes,
		Contigs:              r.Stats.Contigs,
		Level:                r.Info.Level,
		ReleaseDate:          r.Info.ReleaseDate,
		WGSAccession:         r.WGS.ProjectAccession,
		ContigN50Kb:          Scale(r.Stats.ContigN50.Float(), 1e3),
		ScaffoldN50Kb:        Scale(r.Stats.ScaffoldN50.Float(), 1e3),
		Scaffolds:            r.Stats.Scaffolds,
		GCPercent:            r.Stats.GCPercent,
		BUSCO:                r.Stats.BUSCOScore,
		SequencingTechnology: r.Info.SequencingTech,
		Submitter:            r.Info.Submitter,
		BioProject:           r.Info.BioProjectAccession,
		BioSample:            r.Info.BioSample.Accession,
		Genes:                r.Annot.GeneCount,
		ProteinCoding:        r.Annot.ProteinCount,
		Pseudogenes:          r.Annot.PseudogeneCount,
		TypeMaterial:         r.Info.IsTypeMaterial,
		CheckMMarkerSet:      r.CheckM.MarkerSet,
		CheckMCompleteness:   r.CheckM.Completeness,
		CheckMContamination:  r.CheckM.Contamination,
		Modifier:             r.Info.Modifier,
		HighQuality:          policy.HighQuality(r.Info.Level, r.CheckM.Completeness, r.CheckM.Contamination, r.Info.GenomeNotes),
	}
}

// Columns returns the table header for Row.
func (Row) Columns() []string { return rowColumns }

// Values returns the cells in Columns order.
func (r Row) Values() []any {
	return []any{
		r.Assembly, r.GenBank, r.RefSeq, r.ScientificName, r.TaxID,
		r.TaxonomyCheckStatus, r.Annotation, r.AnnotationDate,
		r.SizeMb, r.Chromosomes, r.Contigs, r.Level, r.ReleaseDate,
		r.WGSAccession, r.ContigN50Kb, r.ScaffoldN50Kb, r.Scaffolds,
		r.GCPercent, r.BUSCO,
		r.SequencingTechnology, r.Submitter, r.BioProject, r.BioSample,
		r.Genes, r.ProteinCoding, r.Pseudogenes,
		r.TypeMaterial, r.CheckMMarkerSet, r.CheckMCompleteness,
		r.CheckMContamination, r.Modifier, r.HighQuality,
	}
}
