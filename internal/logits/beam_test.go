package logits

import "testing"

func TestBeamAdvanceKeepsWidthBest(t *testing.T) {
	t.Parallel()

	p := &BeamPolicy{Width: 2}
	beams := p.Start()
	if len(beams) != 1 {
		t.Fatalf("start: %d hypotheses, want 1", len(beams))
	}

	beams = p.Advance(beams, [][]float32{{0, 3, 1}})
	if len(beams) != 2 {
		t.Fatalf("advance: %d hypotheses, want 2", len(beams))
	}
	if beams[0].Last() != 1 || beams[1].Last() != 2 {
		t.Fatalf("unexpected survivors: %d, %d", beams[0].Last(), beams[1].Last())
	}
	if beams[0].LogProb < beams[1].LogProb {
		t.Fatalf("survivors not ordered best-first")
	}
}

// Beam search is deterministic: identical inputs always yield identical
// hypothesis sets.
func TestBeamAdvanceDeterministic(t *testing.T) {
	t.Parallel()

	scores := [][]float32{{1, 2, 0.5, 3}}
	p1 := &BeamPolicy{Width: 3}
	p2 := &BeamPolicy{Width: 3}
	a := p1.Advance(p1.Start(), scores)
	b := p2.Advance(p2.Start(), scores)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Last() != b[i].Last() || a[i].LogProb != b[i].LogProb {
			t.Fatalf("hypothesis %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

// Equal-scoring expansions rank by insertion order of their parent, so the
// earlier hypothesis wins ties.
func TestBeamAdvanceTieBreaksByInsertionOrder(t *testing.T) {
	t.Parallel()

	p := &BeamPolicy{Width: 2}
	beams := []Hypothesis{
		{IDs: []int{5}, LogProb: -1, order: 0},
		{IDs: []int{9}, LogProb: -1, order: 1},
	}
	// Identical score vectors: every expansion of beam 0 ties the matching
	// expansion of beam 1.
	vec := []float32{0, 1}
	beams = p.Advance(beams, [][]float32{vec, vec})
	if len(beams) != 2 {
		t.Fatalf("got %d hypotheses, want 2", len(beams))
	}
	if beams[0].IDs[0] != 5 || beams[1].IDs[0] != 5 {
		t.Fatalf("tie break should favor the first-inserted parent: %+v", beams)
	}
}

func TestBeamHypothesisGrowsAppendOnly(t *testing.T) {
	t.Parallel()

	p := &BeamPolicy{Width: 1}
	beams := p.Start()
	for step := 0; step < 4; step++ {
		beams = p.Advance(beams, [][]float32{{0, 5}})
		if len(beams) != 1 {
			t.Fatalf("step %d: %d hypotheses, want 1", step, len(beams))
		}
		if len(beams[0].IDs) != step+1 {
			t.Fatalf("step %d: hypothesis length %d", step, len(beams[0].IDs))
		}
		if beams[0].Last() != 1 {
			t.Fatalf("step %d: last token %d, want 1", step, beams[0].Last())
		}
	}
}
