package run

import (
	"errors"
	"math"
	"testing"
)

func TestCheckRaggedColumns(t *testing.T) {
	// An optional column present for only some of a thread's samples cannot
	// be aligned and must be rejected.
	r := &Run{
		Threads: []Thread{
			{Table: &Table{LogL: []float64{-3, -2, -1}, R: []float64{3, 2}}},
		},
		Settings: Settings{Kind: KindFixed, FixedNlive: 2},
	}
	if err := r.Check(); !errors.Is(err, BadRunShapeErr) {
		t.Fatalf("ragged r column: got %v, want BadRunShapeErr", err)
	}
	r.Threads[0].Table.R = nil
	r.Threads[0].Table.Theta = [][]float64{{1}}
	if err := r.Check(); !errors.Is(err, BadRunShapeErr) {
		t.Fatalf("ragged theta column: got %v, want BadRunShapeErr", err)
	}
	r.Threads[0].Table.Theta = nil
	if err := r.Check(); err != nil {
		t.Fatalf("absent columns rejected: %v", err)
	}
}

func TestCheckBounds(t *testing.T) {
	r := &Run{
		Threads: []Thread{
			{Table: &Table{LogL: []float64{-1}}},
		},
		Bounds:   []Bounds{{Min: math.NaN(), Max: math.NaN(), Multiplicity: 1}},
		Settings: Settings{Kind: KindDynamic},
	}
	if err := r.Check(); !errors.Is(err, BadBoundsErr) {
		t.Fatalf("got %v, want BadBoundsErr", err)
	}
	r.Bounds[0].Min = -2
	if err := r.Check(); err != nil {
		t.Fatal(err)
	}
	r.Bounds = nil
	if err := r.Check(); !errors.Is(err, BadRunShapeErr) {
		t.Fatalf("missing bounds: got %v, want BadRunShapeErr", err)
	}
}
