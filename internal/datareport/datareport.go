// Package datareport reads assembly_data_report.jsonl files, one assembly
// report per line, into summary rows.
package datareport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/SPGundewar/Delftia-Analysis-tool/internal/assembly"
)

// DefaultPath is the file name the Datasets tool writes inside a download.
const DefaultPath = "assembly_data_report.jsonl"

// Read converts every line of r. Blank lines are ignored; the first line that
// does not decode stops the read and nothing is returned.
func Read(r io.Reader) ([]assembly.SummaryRow, error) {
	var rows []assembly.SummaryRow
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				row, perr := parseLine(trimmed)
				if perr != nil {
					return nil, fmt.Errorf("%s line %d: %w", DefaultPath, lineNo, perr)
				}
				rows = append(rows, row)
			}
		}
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func parseLine(b []byte) (assembly.SummaryRow, error) {
	if b[0] != '{' {
		return assembly.SummaryRow{}, fmt.Errorf("expected a JSON object, got %.20s", b)
	}
	var d assembly.DataReport
	if err := json.Unmarshal(b, &d); err != nil {
		return assembly.SummaryRow{}, err
	}
	return assembly.FromDataReport(d)
}

// ReadFile opens path, reads it with Read and closes it.
func ReadFile(path string) ([]assembly.SummaryRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}
