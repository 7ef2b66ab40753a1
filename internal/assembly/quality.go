package assembly

import (
	"fmt"
	"strings"
)

// Thresholds for the High_quality flag.
const (
	CompleteGenome   = "Complete Genome"
	MinCompleteness  = 95.0
	MaxContamination = 5.0
	metagenomeMarker = "metagenome"
)

// QualityPolicy decides how a missing CheckM metric affects High_quality.
type QualityPolicy string

const (
	// PolicyPass lets a missing metric satisfy its threshold.
	PolicyPass QualityPolicy = "pass"
	// PolicyZero compares a missing metric as 0.
	PolicyZero QualityPolicy = "zero"
	// PolicyFail makes a missing metric fail its threshold.
	PolicyFail QualityPolicy = "fail"
	// PolicyUnknown leaves High_quality null when a missing metric is the only
	// thing standing between the assembly and a verdict.
	PolicyUnknown QualityPolicy = "unknown"
)

// Policies lists the accepted policy names.
var Policies = []QualityPolicy{PolicyPass, PolicyZero, PolicyFail, PolicyUnknown}

// ParsePolicy maps a config or flag value to a policy. Empty means PolicyPass.
func ParsePolicy(s string) (QualityPolicy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return PolicyPass, nil
	}
	for _, p := range Policies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown quality policy %q (want one of pass, zero, fail, unknown)", s)
}

type verdict int

const (
	verdictFail verdict = iota
	verdictPass
	verdictUnknown
)

func (p QualityPolicy) resolve(n Number, ok func(float64) bool) verdict {
	if n.Valid() {
		if ok(n.Float()) {
			return verdictPass
		}
		return verdictFail
	}
	switch p {
	case PolicyZero:
		if ok(0) {
			return verdictPass
		}
		return verdictFail
	case PolicyFail:
		return verdictFail
	case PolicyUnknown:
		return verdictUnknown
	default:
		return verdictPass
	}
}

// HighQuality evaluates the quality flag for one assembly.
func (p QualityPolicy) HighQuality(level Text, completeness, contamination Number, notes Notes) Flag {
	verdicts := []verdict{
		boolVerdict(level.Valid && level.Value == CompleteGenome),
		p.resolve(completeness, func(v float64) bool { return v >= MinCompleteness }),
		p.resolve(contamination, func(v float64) bool { return v <= MaxContamination }),
		boolVerdict(!notes.Mentions(metagenomeMarker)),
	}
	unknown := false
	for _, v := range verdicts {
		switch v {
		case verdictFail:
			return NewFlag(false)
		case verdictUnknown:
			unknown = true
		}
	}
	if unknown {
		return Flag{}
	}
	return NewFlag(true)
}

func boolVerdict(ok bool) verdict {
	if ok {
		return verdictPass
	}
	return verdictFail
}
