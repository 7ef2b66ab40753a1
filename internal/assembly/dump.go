package assembly

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultDumpPath is where fetch --json writes and the browsers read.
const DefaultDumpPath = "assemblies.json"

// WriteDump writes rows as an indented JSON array keyed by column name.
func WriteDump(path string, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadDump loads rows written by WriteDump.
func ReadDump(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return rows, nil
}
