package assembly

import (
	"github.com/montanaflynn/stats"
)

// Summary describes a fetched taxon table in a few numbers for the run log.
type Summary struct {
	Assemblies      int
	HighQuality     int
	Complete        int
	MedianSizeMb    float64
	MeanGCPercent   float64
	MedianContigN50 float64
}

// Summarize computes Summary over rows. Statistics over an empty input (or a
// column with no values) are 0.
func Summarize(rows []Row) Summary {
	s := Summary{Assemblies: len(rows)}
	var sizes, gcs, n50s stats.Float64Data
	for _, r := range rows {
		if r.HighQuality.Valid && r.HighQuality.Value {
			s.HighQuality++
		}
		if r.Level.Value == CompleteGenome {
			s.Complete++
		}
		sizes = append(sizes, r.SizeMb)
		n50s = append(n50s, r.ContigN50Kb)
		if r.GCPercent.Valid() {
			gcs = append(gcs, r.GCPercent.Float())
		}
	}
	s.MedianSizeMb = rounded(sizes.Median())
	s.MeanGCPercent = rounded(gcs.Mean())
	s.MedianContigN50 = rounded(n50s.Median())
	return s
}

func rounded(v float64, err error) float64 {
	if err != nil {
		return 0
	}
	r, err := stats.Round(v, 2)
	if err != nil {
		return 0
	}
	return r
}
