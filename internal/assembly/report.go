// Package assembly holds the genome assembly record shapes: the Datasets API
// report and its flattened table row, the JSON-lines data report and its
// summary row, and the quality flag derived from them.
package assembly

// Report mirrors one element of the dataset_report "reports" list. Nested
// objects are values, so a missing object reads as an empty one.
type Report struct {
	Accession Text       `json:"accession"`
	Organism  Organism   `json:"organism"`
	Info      Info       `json:"assembly_info"`
	Stats     Stats      `json:"assembly_stats"`
	CheckM    CheckM     `json:"checkm_info"`
	Annot     Annotation `json:"annotation_info"`
	ANI       ANI        `json:"average_nucleotide_identity"`
	WGS       WGS        `json:"wgs_info"`
}

type Organism struct {
	Name  Text   `json:"organism_name"`
	TaxID Number `json:"tax_id"`
}

type Info struct {
	Name                Text      `json:"assembly_name"`
	GenBankAccession    Text      `json:"genbank_accession"`
	RefSeqAccession     Text      `json:"refseq_accession"`
	Level               Text      `json:"assembly_level"`
	ReleaseDate         Text      `json:"release_date"`
	SequencingTech      Text      `json:"sequencing_tech"`
	Submitter           Text      `json:"submitter"`
	BioProjectAccession Text      `json:"bioproject_accession"`
	BioSample           BioSample `json:"biosample"`
	IsTypeMaterial      Flag      `json:"is_type_material"`
	Modifier            Text      `json:"modifier"`
	GenomeNotes         Notes     `json:"genome_notes"`
}

type BioSample struct {
	Accession Text `json:"accession"`
}

type Stats struct {
	TotalSequenceLength Number `json:"total_sequence_length"`
	Chromosomes         Number `json:"number_of_chromosomes"`
	Contigs             Number `json:"number_of_contigs"`
	ContigN50           Number `json:"contig_n50"`
	ScaffoldN50         Number `json:"scaffold_n50"`
	Scaffolds           Number `json:"number_of_scaffolds"`
	GCPercent           Number `json:"gc_percent"`
	BUSCOScore          Number `json:"busco_score"`
}

type CheckM struct {
	MarkerSet     Text   `json:"checkm_marker_set"`
	Completeness  Number `json:"completeness"`
	Contamination Number `json:"contamination"`
}

type Annotation struct {
	Name            Text   `json:"annotation_name"`
	Date            Text   `json:"annotation_date"`
	GeneCount       Number `json:"gene_count"`
	ProteinCount    Number `json:"protein_count"`
	PseudogeneCount Number `json:"pseudogene_count"`
}

type ANI struct {
	TaxonomyCheckStatus Text `json:"taxonomy_check_status"`
}

type WGS struct {
	ProjectAccession Text `json:"wgs_project_accession"`
}
