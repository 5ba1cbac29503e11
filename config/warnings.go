package config

import (
	"fmt"

	"github.com/antzucaro/matchr"
)

// duplicateNameThreshold is the Jaro-Winkler similarity above which two
// -ref index prefixes are flagged as likely duplicates, strengthening
// spec.md section 7's "duplicate index name" warning (an exact-match-only
// check) with a near-duplicate check, the way options.cpp's own
// diagnostics favor catching operator typos early over staying silent.
const duplicateNameThreshold = 0.92

// Warnings returns human-readable warnings about o that do not block a
// run, the way options.cpp prints non-fatal diagnostics before proceeding.
func (o *Options) Warnings() []string {
	var warnings []string
	for i := 0; i < len(o.Refs); i++ {
		for j := i + 1; j < len(o.Refs); j++ {
			a, b := o.Refs[i].IndexPrefix, o.Refs[j].IndexPrefix
			if a == b {
				warnings = append(warnings, fmt.Sprintf(
					"-ref entries %d and %d share the exact index prefix %q", i, j, a))
				continue
			}
			if sim := matchr.JaroWinkler(a, b, true); sim >= duplicateNameThreshold {
				warnings = append(warnings, fmt.Sprintf(
					"-ref entries %d and %d have very similar index prefixes (%q vs %q, similarity %.2f) -- check for a typo",
					i, j, a, b, sim))
			}
		}
	}
	if o.NoBest && o.Best > 1 {
		warnings = append(warnings, "-no-best set; -best value is ignored")
	}
	if o.ForwardOnly && o.ReverseOnly {
		warnings = append(warnings, "-F and -R both set; both strands will be searched")
	}
	return warnings
}
