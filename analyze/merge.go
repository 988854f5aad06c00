// Merging of single-likelihood-ordered threads into one run table.

package analyze

import (
	"sort"

	"nsanalyze/run"
)

// tableSorter orders a Table by ascending log likelihood, keeping all columns
// aligned.
type tableSorter struct {
	t *run.Table
}

func (s tableSorter) Len() int { return s.t.Len() }

func (s tableSorter) Less(i, j int) bool { return s.t.LogL[i] < s.t.LogL[j] }

func (s tableSorter) Swap(i, j int) {
	t := s.t
	t.LogL[i], t.LogL[j] = t.LogL[j], t.LogL[i]
	if t.R != nil {
		t.R[i], t.R[j] = t.R[j], t.R[i]
	}
	if t.LogX != nil {
		t.LogX[i], t.LogX[j] = t.LogX[j], t.LogX[i]
	}
	if t.Theta != nil {
		t.Theta[i], t.Theta[j] = t.Theta[j], t.Theta[i]
	}
}

// MergeThreads concatenates the samples of all non-absent threads and sorts
// them by ascending log likelihood.  Returns nil if every thread is absent.
// Columns that are present in some threads but not others are dropped from
// the merged table; the likelihood column is always present.
func MergeThreads(threads []run.Thread) *run.Table {
	n := 0
	haveR, haveX, haveTheta := true, true, true
	any := false
	for _, th := range threads {
		if th.Absent() {
			continue
		}
		any = true
		n += th.Table.Len()
		haveR = haveR && th.Table.R != nil
		haveX = haveX && th.Table.LogX != nil
		haveTheta = haveTheta && th.Table.Theta != nil
	}
	if !any {
		return nil
	}
	m := &run.Table{LogL: make([]float64, 0, n)}
	if haveR {
		m.R = make([]float64, 0, n)
	}
	if haveX {
		m.LogX = make([]float64, 0, n)
	}
	if haveTheta {
		m.Theta = make([][]float64, 0, n)
	}
	for _, th := range threads {
		if th.Absent() {
			continue
		}
		m.LogL = append(m.LogL, th.Table.LogL...)
		if haveR {
			m.R = append(m.R, th.Table.R...)
		}
		if haveX {
			m.LogX = append(m.LogX, th.Table.LogX...)
		}
		if haveTheta {
			m.Theta = append(m.Theta, th.Table.Theta...)
		}
	}
	sort.Sort(tableSorter{m})
	return m
}
