// Package gff reads gene features out of GFF3 annotation files.
package gff

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultGenomeID tags rows when no genome id is configured.
const DefaultGenomeID = "GCF_000018665.1"

// FeatureGene is the only feature type kept in the output.
const FeatureGene = "gene"

const numColumns = 9

var columns = []string{
	"sequence_id", "feature_type", "gene_id", "gene_name", "product",
	"protein_id", "start", "end", "strand", "genome_id",
}

// Feature is one gene line. Start and End are the file's 1-based inclusive
// coordinates and are not checked against each other.
type Feature struct {
	SequenceID  string `json:"sequence_id"`
	FeatureType string `json:"feature_type"`
	GeneID      string `json:"gene_id"`
	GeneName    string `json:"gene_name"`
	Product     string `json:"product"`
	ProteinID   string `json:"protein_id"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Strand      string `json:"strand"`
	GenomeID    string `json:"genome_id"`
}

func (Feature) Columns() []string { return columns }

func (f Feature) Values() []any {
	return []any{
		f.SequenceID, f.FeatureType, f.GeneID, f.GeneName, f.Product,
		f.ProteinID, f.Start, f.End, f.Strand, f.GenomeID,
	}
}

// ParseAttributes splits a column-9 attribute string. Each ';' segment is
// split at its first '='; segments without one are dropped.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, seg := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		attrs[k] = v
	}
	return attrs
}

// Parse reads gene features from r and tags each with genomeID. Comment
// lines and lines that do not have exactly nine tab-separated columns are
// skipped; a non-numeric coordinate on a gene line is an error.
func Parse(r io.Reader, genomeID string) ([]Feature, error) {
	var features []Feature
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(strings.TrimSpace(line), "\t")
		if len(parts) != numColumns {
			continue
		}
		if parts[2] != FeatureGene {
			continue
		}
		f, err := parseLine(parts, genomeID)
		if err != nil {
			return nil, fmt.Errorf("gff line %d: %w", lineNo, err)
		}
		features = append(features, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return features, nil
}

func parseLine(parts []string, genomeID string) (Feature, error) {
	start, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Feature{}, fmt.Errorf("start %q: %w", parts[3], err)
	}
	end, err := strconv.ParseInt(parts[4], 10, 64)
	if err != nil {
		return Feature{}, fmt.Errorf("end %q: %w", parts[4], err)
	}
	attrs := ParseAttributes(parts[8])
	return Feature{
		SequenceID:  parts[0],
		FeatureType: parts[2],
		GeneID:      attrs["ID"],
		GeneName:    attrs["Name"],
		Product:     attrs["product"],
		ProteinID:   attrs["protein_id"],
		Start:       start,
		End:         end,
		Strand:      parts[6],
		GenomeID:    genomeID,
	}, nil
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path, genomeID string) ([]Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, genomeID)
}
