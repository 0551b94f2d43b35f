package mapper

import (
	"fmt"
	"slices"
	"strings"

	"github.com/himanishpuri/omrhythm/pkg/omrhythm/score"
)

// ChordPair links a rookie chord to the active chord it would continue.
// Order matters: (rookie, active).
type ChordPair struct {
	Rookie int
	Active int
}

func (p ChordPair) String() string {
	return fmt.Sprintf("Ch#%d->Ch#%d", p.Active, p.Rookie)
}

// PairSet is a set of chord pairs, used for black and white lists.
type PairSet map[ChordPair]struct{}

func NewPairSet(pairs ...ChordPair) PairSet {
	s := make(PairSet, len(pairs))
	for _, p := range pairs {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts the pair and reports whether it was missing.
func (s PairSet) Add(p ChordPair) bool {
	if _, ok := s[p]; ok {
		return false
	}
	s[p] = struct{}{}
	return true
}

func (s PairSet) Contains(p ChordPair) bool {
	_, ok := s[p]
	return ok
}

// Mapping is the outcome of one assignment: the selected links.
type Mapping struct {
	Pairs []ChordPair
	Cost  int
}

func (mp Mapping) IsEmpty() bool { return len(mp.Pairs) == 0 }

// Ref returns the active chord mapped to the rookie, 0 when none.
func (mp Mapping) Ref(rookie int) int {
	for _, p := range mp.Pairs {
		if p.Rookie == rookie {
			return p.Active
		}
	}
	return 0
}

// PairsOf keeps the pairs whose rookie is among ids.
func (mp Mapping) PairsOf(ids []int) []ChordPair {
	var out []ChordPair
	for _, p := range mp.Pairs {
		if slices.Contains(ids, p.Rookie) {
			out = append(out, p)
		}
	}
	return out
}

func (mp Mapping) String() string {
	return fmt.Sprintf("Mapping%v cost:%d", mp.Pairs, mp.Cost)
}

// ChordsMapper maps rookies to actives. Extinct holds the actives that come
// from extinct voices: they may only be linked through the white list.
type ChordsMapper struct {
	Measure   *score.Measure
	Rookies   []*score.Chord
	Actives   []*score.Chord
	Metric    Metric
	BlackList PairSet
	WhiteList PairSet
	Extinct   map[int]bool
}

// Cost is the price of linking rookie to active.
func (cm *ChordsMapper) Cost(active, rookie *score.Chord, details *strings.Builder) int {
	w := cm.Metric.Weights()
	pair := ChordPair{Rookie: rookie.ID, Active: active.ID}

	if cm.BlackList.Contains(pair) {
		return w.Incompatible
	}
	if cm.WhiteList.Contains(pair) {
		return 0
	}
	if cm.Extinct[active.ID] {
		return w.Incompatible
	}
	return cm.Metric.Distance(cm.Measure, active, rookie, details)
}

// Matrix builds the rookies × (actives + no-link) cost matrix.
func (cm *ChordsMapper) Matrix() [][]int {
	w := cm.Metric.Weights()
	cols := len(cm.Actives) + len(cm.Rookies)
	matrix := make([][]int, len(cm.Rookies))
	for i, r := range cm.Rookies {
		row := make([]int, cols)
		for j, a := range cm.Actives {
			row[j] = cm.Cost(a, r, nil)
		}
		for j := len(cm.Actives); j < cols; j++ {
			row[j] = w.NoLink
		}
		matrix[i] = row
	}
	return matrix
}

// Process solves the assignment. Rookies assigned to a no-link column stay
// unmapped; incompatible links are never returned.
func (cm *ChordsMapper) Process() Mapping {
	var mp Mapping
	if len(cm.Rookies) == 0 || len(cm.Actives) == 0 {
		return mp
	}

	w := cm.Metric.Weights()
	matrix := cm.Matrix()
	for i, j := range Solve(matrix) {
		c := matrix[i][j]
		if j >= len(cm.Actives) || c >= w.Incompatible {
			continue
		}
		mp.Pairs = append(mp.Pairs, ChordPair{Rookie: cm.Rookies[i].ID, Active: cm.Actives[j].ID})
		mp.Cost += c
	}
	return mp
}

// Dump lists, for each rookie, the cost to every active.
func (cm *ChordsMapper) Dump() string {
	var sb strings.Builder
	for _, r := range cm.Rookies {
		fmt.Fprintf(&sb, "\n   rookie %v:", r)
		for _, a := range cm.Actives {
			var details strings.Builder
			c := cm.Cost(a, r, &details)
			end := "NT"
			if e := a.End(); e != nil {
				end = e.String()
			}
			fmt.Fprintf(&sb, "\n%8d %4s active %v %s", c, end, a, details.String())
		}
	}
	return sb.String()
}
