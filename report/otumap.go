package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/biotools/rnafilter/read"
)

// OtuMap groups read ids by the reference id of their max-scoring
// alignment, but only for reads with IsIDCov set, per spec.md section 4.9.
// Each worker thread owns one OtuMap and Merge folds them together once
// the align phase finishes.
type OtuMap struct {
	groups map[uint32][]uint64 // refNum -> read ids, insertion order
}

// NewOtuMap allocates an empty per-thread map.
func NewOtuMap() *OtuMap {
	return &OtuMap{groups: make(map[uint32][]uint64)}
}

// Add records rd's membership in its max-scoring alignment's reference
// group, if rd qualifies (IsIDCov and at least one alignment).
func (m *OtuMap) Add(id uint64, rd *read.Read) {
	if !rd.IsIDCov || len(rd.Alignv) == 0 {
		return
	}
	best := rd.Alignv[rd.MaxIndex]
	m.groups[best.RefNum] = append(m.groups[best.RefNum], id)
}

// NumGroups returns the number of distinct reference groups recorded,
// for the summary reporter's total-OTU-count line.
func (m *OtuMap) NumGroups() int {
	return len(m.groups)
}

// Merge folds other's groups into m, appending read ids in other's
// insertion order after m's own, per spec.md section 4.9's "per-thread
// merge" requirement.
func (m *OtuMap) Merge(other *OtuMap) {
	for ref, ids := range other.groups {
		m.groups[ref] = append(m.groups[ref], ids...)
	}
}

// Write emits the OTU map as one line per reference: "<ref_id>\t<id1>
// <id2> ...", references sorted for reproducible output, each group's
// read ids rendered via idFor.
func (m *OtuMap) Write(w io.Writer, idFor func(refNum uint32) string) error {
	bw := bufio.NewWriter(w)
	refs := make([]uint32, 0, len(m.groups))
	for ref := range m.groups {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	for _, ref := range refs {
		ids := m.groups[ref]
		if _, err := fmt.Fprintf(bw, "%s\t", idFor(ref)); err != nil {
			return errors.Wrap(err, "report: write otu map line")
		}
		for i, id := range ids {
			if i > 0 {
				bw.WriteByte(' ')
			}
			fmt.Fprintf(bw, "%d", id)
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "report: flush otu map")
}
