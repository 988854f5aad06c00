// CBOR encoding of runs.
//
// A run file is a single CBOR map holding the settings snapshot, the threads
// (with absent threads encoded as nulls, not as empty tables), the thread
// bounds for dynamic runs, and optionally a precomputed live count vector.

package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"nsanalyze/run"
)

type threadFile struct {
	LogL  []float64   `cbor:"logl"`
	R     []float64   `cbor:"r,omitempty"`
	Theta [][]float64 `cbor:"theta,omitempty"`
}

type boundsFile struct {
	Min  float64 `cbor:"min"`
	Max  float64 `cbor:"max"`
	Mult float64 `cbor:"mult"`
}

type runFile struct {
	Kind        string        `cbor:"kind"`
	DynamicGoal float64       `cbor:"goal,omitempty"`
	FixedNlive  int           `cbor:"nlive,omitempty"`
	InitNlive   int           `cbor:"ninit,omitempty"`
	Threads     []*threadFile `cbor:"threads"`
	Bounds      []boundsFile  `cbor:"bounds,omitempty"`
	NliveArray  []float64     `cbor:"nlive_array,omitempty"`
}

const (
	kindFixedName   = "fixed"
	kindDynamicName = "dynamic"
)

// WriteRun encodes r onto w.
func WriteRun(w io.Writer, r *run.Run) error {
	rf := runFile{
		DynamicGoal: r.Settings.DynamicGoal,
		FixedNlive:  r.Settings.FixedNlive,
		InitNlive:   r.Settings.InitNlive,
		Threads:     make([]*threadFile, len(r.Threads)),
		NliveArray:  r.Nlive,
	}
	switch r.Settings.Kind {
	case run.KindFixed:
		rf.Kind = kindFixedName
	case run.KindDynamic:
		rf.Kind = kindDynamicName
	default:
		return run.BadRunShapeErr
	}
	for i, th := range r.Threads {
		if th.Absent() {
			continue
		}
		rf.Threads[i] = &threadFile{
			LogL:  th.Table.LogL,
			R:     th.Table.R,
			Theta: th.Table.Theta,
		}
	}
	for _, b := range r.Bounds {
		rf.Bounds = append(rf.Bounds, boundsFile{Min: b.Min, Max: b.Max, Mult: b.Multiplicity})
	}
	return cbor.NewEncoder(w).Encode(&rf)
}

// ReadRun decodes a run from rd and validates its shape.
func ReadRun(rd io.Reader) (*run.Run, error) {
	var rf runFile
	if err := cbor.NewDecoder(rd).Decode(&rf); err != nil {
		return nil, fmt.Errorf("decoding run: %w", err)
	}
	r := &run.Run{
		Threads: make([]run.Thread, len(rf.Threads)),
		Nlive:   rf.NliveArray,
		Settings: run.Settings{
			DynamicGoal: rf.DynamicGoal,
			FixedNlive:  rf.FixedNlive,
			InitNlive:   rf.InitNlive,
		},
	}
	switch rf.Kind {
	case kindFixedName:
		r.Settings.Kind = run.KindFixed
	case kindDynamicName:
		r.Settings.Kind = run.KindDynamic
	default:
		return nil, fmt.Errorf("%w: unknown run kind %q", run.BadRunShapeErr, rf.Kind)
	}
	for i, tf := range rf.Threads {
		if tf == nil {
			continue
		}
		r.Threads[i] = run.Thread{Table: &run.Table{
			LogL:  tf.LogL,
			R:     tf.R,
			Theta: tf.Theta,
		}}
	}
	for _, b := range rf.Bounds {
		r.Bounds = append(r.Bounds, run.Bounds{Min: b.Min, Max: b.Max, Multiplicity: b.Mult})
	}
	if err := r.Check(); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveName derives the standard file name (without extension) for a run with
// the given settings.  The name is filesystem- and identifier-safe: dots and
// minus signs are mapped to underscores.
func SaveName(s run.Settings) string {
	var name string
	switch s.Kind {
	case run.KindDynamic:
		name = fmt.Sprintf("dynamic_%v_init_%d", s.DynamicGoal, s.InitNlive)
	default:
		name = fmt.Sprintf("fixed_%d", s.FixedNlive)
	}
	name = strings.ReplaceAll(name, ".", "_")
	return strings.ReplaceAll(name, "-", "_")
}
