package prettyclevr

import (
	"math/rand"

	"github.com/neurlang/reasoner/datasets"
)

// Scene builds scene number index. jumps < 0 draws the jump count at random.
func Scene(seed int64, index uint32, entities, jumps int) datasets.Sample {
	rng := rand.New(rand.NewSource(seed*1000003 + int64(index)))

	s := datasets.Sample{
		Positions: make([][2]float64, entities),
		Colors:    rng.Perm(len(datasets.Colors))[:entities],
		Markers:   rng.Perm(len(datasets.Markers))[:entities],
	}
	for i := range s.Positions {
		s.Positions[i] = [2]float64{rng.Float64(), rng.Float64()}
	}

	anchor := rng.Intn(entities)
	byMarker := rng.Intn(2) == 1
	if jumps < 0 {
		jumps = rng.Intn(entities)
	}
	reached := anchor
	for j := 0; j < jumps; j++ {
		reached = Farthest(s.Positions, reached)
	}

	s.Jumps = jumps
	if byMarker {
		s.Anchor = datasets.MarkerLabel(s.Markers[anchor])
		s.Target = datasets.MarkerLabel(s.Markers[reached])
	} else {
		s.Anchor = datasets.ColorLabel(s.Colors[anchor])
		s.Target = datasets.ColorLabel(s.Colors[reached])
	}
	return s
}

// Farthest returns the index of the object farthest from object from. Ties go
// to the lowest index. A single object scene returns from itself.
func Farthest(positions [][2]float64, from int) int {
	best, dist := from, -1.0
	for i, p := range positions {
		if i == from {
			continue
		}
		dx := p[0] - positions[from][0]
		dy := p[1] - positions[from][1]
		if d := dx*dx + dy*dy; d > dist {
			best, dist = i, d
		}
	}
	return best
}
