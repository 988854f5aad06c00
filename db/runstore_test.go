package db

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"nsanalyze/run"
)

func testRun() *run.Run {
	return &run.Run{
		Threads: []run.Thread{
			{Table: &run.Table{
				LogL:  []float64{-5, -3},
				R:     []float64{2, 1},
				Theta: [][]float64{{0.1, 0.2}, {0.3, 0.4}},
			}},
			{}, // absent
			{Table: &run.Table{LogL: []float64{-1}}},
		},
		Bounds: []run.Bounds{
			{Min: math.NaN(), Max: -2, Multiplicity: 3},
			{Min: -4, Max: -2, Multiplicity: 1},
			{Min: -2, Max: math.NaN(), Multiplicity: 2},
		},
		Settings: run.Settings{Kind: run.KindDynamic, DynamicGoal: 0.5, InitNlive: 2},
	}
}

func TestRunFileRoundTrip(t *testing.T) {
	r := testRun()
	var buf bytes.Buffer
	if err := WriteRun(&buf, r); err != nil {
		t.Fatal(err)
	}
	r2, err := ReadRun(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(r2.Threads) != 3 || !r2.Threads[1].Absent() || r2.Threads[0].Absent() {
		t.Fatalf("thread structure lost: %+v", r2.Threads)
	}
	t0 := r2.Threads[0].Table
	if t0.LogL[1] != -3 || t0.R[0] != 2 || t0.Theta[1][1] != 0.4 {
		t.Fatalf("thread 0 columns lost: %+v", t0)
	}
	if r2.Threads[2].Table.R != nil || r2.Threads[2].Table.Theta != nil {
		t.Fatal("optional columns should stay absent")
	}
	if !math.IsNaN(r2.Bounds[0].Min) || r2.Bounds[0].Max != -2 || !math.IsNaN(r2.Bounds[2].Max) {
		t.Fatalf("bounds lost: %+v", r2.Bounds)
	}
	if r2.Settings.Kind != run.KindDynamic || r2.Settings.DynamicGoal != 0.5 || r2.Settings.InitNlive != 2 {
		t.Fatalf("settings lost: %+v", r2.Settings)
	}
}

func TestReadRunRejectsBadShape(t *testing.T) {
	r := testRun()
	r.Bounds = r.Bounds[:2] // no longer parallel with threads
	var buf bytes.Buffer
	if err := WriteRun(&buf, r); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRun(&buf); !errors.Is(err, run.BadRunShapeErr) {
		t.Fatalf("got %v, want BadRunShapeErr", err)
	}

	// An r column covering only some of a thread's samples must also be
	// rejected at load time, before it can misalign a merge.
	r = testRun()
	r.Threads[0].Table.R = r.Threads[0].Table.R[:1]
	buf.Reset()
	if err := WriteRun(&buf, r); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadRun(&buf); !errors.Is(err, run.BadRunShapeErr) {
		t.Fatalf("ragged column: got %v, want BadRunShapeErr", err)
	}
}

func TestSaveName(t *testing.T) {
	s := run.Settings{Kind: run.KindDynamic, DynamicGoal: 0.25, InitNlive: 10}
	if n := SaveName(s); n != "dynamic_0_25_init_10" {
		t.Fatalf("got %q", n)
	}
	s = run.Settings{Kind: run.KindDynamic, DynamicGoal: -1, InitNlive: 5}
	if n := SaveName(s); n != "dynamic__1_init_5" {
		t.Fatalf("got %q", n)
	}
	s = run.Settings{Kind: run.KindFixed, FixedNlive: 100}
	if n := SaveName(s); n != "fixed_100" {
		t.Fatalf("got %q", n)
	}
}

func TestPersistentStore(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenPersistentStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	r := testRun()
	if err := store.Add("a_run", r); err != nil {
		t.Fatal(err)
	}
	names, err := store.RunNames()
	if err != nil || len(names) != 1 || names[0] != "a_run" {
		t.Fatalf("names = %v, err = %v", names, err)
	}
	r2, err := store.Load("a_run")
	if err != nil {
		t.Fatal(err)
	}
	if len(r2.Threads) != len(r.Threads) {
		t.Fatal("loaded run differs")
	}
	if _, err := store.Load("missing"); !errors.Is(err, UnknownRunErr) {
		t.Fatalf("got %v, want UnknownRunErr", err)
	}
	if _, err := OpenPersistentStore(filepath.Join(dir, "nope")); err == nil {
		t.Fatal("missing directory should fail")
	}
}

func TestTransientStore(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "myrun.cbor")
	var buf bytes.Buffer
	if err := WriteRun(&buf, testRun()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	store := OpenTransientStore([]string{file})
	names, err := store.RunNames()
	if err != nil || len(names) != 1 || names[0] != "myrun" {
		t.Fatalf("names = %v, err = %v", names, err)
	}
	if _, err := store.Load("myrun"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Load("other"); !errors.Is(err, UnknownRunErr) {
		t.Fatalf("got %v, want UnknownRunErr", err)
	}
}
