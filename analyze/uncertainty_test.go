package analyze

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"nsanalyze/run"
)

// evidence estimator, enough to exercise the error loops
type logZEst struct{}

func (logZEst) Name() string { return "logz" }

func (logZEst) Estimate(logw, logl, r []float64, theta [][]float64) float64 {
	return LogSumExp(logw)
}

func fixedTestRun(n, nlive int) *run.Run {
	logl := make([]float64, n)
	for i := range logl {
		logl[i] = float64(i-n) * 0.1
	}
	return &run.Run{
		Threads:  []run.Thread{{Table: &run.Table{LogL: logl}}},
		Settings: run.Settings{Kind: run.KindFixed, FixedNlive: nlive},
	}
}

func dynamicTestRun(nthreads int) *run.Run {
	r := &run.Run{Settings: run.Settings{Kind: run.KindDynamic, InitNlive: 2}}
	for i := 0; i < nthreads; i++ {
		logl := []float64{float64(-2*nthreads + i), float64(-nthreads + i)}
		r.Threads = append(r.Threads, run.Thread{Table: &run.Table{LogL: logl}})
		r.Bounds = append(r.Bounds, run.Bounds{Min: math.NaN(), Max: math.NaN(), Multiplicity: 1})
	}
	// every thread spans the whole run
	for i := range r.Bounds {
		r.Bounds[i].Min = math.Inf(-1)
	}
	return r
}

func TestSimulatedErrorsReproducible(t *testing.T) {
	r := fixedTestRun(40, 5)
	es := []Estimator{logZEst{}}
	opts := ErrorOpts{NSimulate: 16, Workers: 4, Seed: 77}
	std1, vals1, err := SimulatedErrors(r, es, opts)
	if err != nil {
		t.Fatal(err)
	}
	opts.Workers = 1
	std2, vals2, err := SimulatedErrors(r, es, opts)
	if err != nil {
		t.Fatal(err)
	}
	if std1[0] != std2[0] {
		t.Fatalf("stds differ across worker counts: %g vs %g", std1[0], std2[0])
	}
	for i := range vals1 {
		if vals1[i][0] != vals2[i][0] {
			t.Fatalf("iteration %d differs across worker counts", i)
		}
	}
	if std1[0] <= 0 {
		t.Fatalf("std = %g, want positive", std1[0])
	}
}

func TestBootstrapErrors(t *testing.T) {
	r := dynamicTestRun(6)
	std, vals, err := BootstrapErrors(r, []Estimator{logZEst{}}, ErrorOpts{NSimulate: 8, Workers: 2, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 8 || std[0] < 0 {
		t.Fatalf("unexpected result: std=%v vals=%d", std, len(vals))
	}
}

func TestBootstrapResample(t *testing.T) {
	r := dynamicTestRun(6)
	r.Nlive = []float64{1, 2, 3}
	rng := rand.New(rand.NewPCG(3, 0))
	rs := BootstrapResample(r, rng, true)
	if len(rs.Threads) != len(r.Threads) || len(rs.Bounds) != len(r.Bounds) {
		t.Fatalf("resampled shape %d/%d, want %d/%d",
			len(rs.Threads), len(rs.Bounds), len(r.Threads), len(r.Bounds))
	}
	if rs.Nlive != nil {
		t.Fatal("resampled run must not inherit stored live counts")
	}
	// With separate strata the first InitNlive slots come from the initial
	// threads only.
	ninit := r.Settings.InitNlive
	for iter := 0; iter < 20; iter++ {
		rs = BootstrapResample(r, rng, true)
		for i := 0; i < ninit; i++ {
			found := false
			for k := 0; k < ninit; k++ {
				if rs.Threads[i].Table == r.Threads[k].Table {
					found = true
				}
			}
			if !found {
				t.Fatal("initial stratum drew a dynamically added thread")
			}
		}
	}
}

// A single realization has no resolvable deviation; the std must come out NaN
// rather than a confident-looking zero.
func TestSingleRealizationStdUndefined(t *testing.T) {
	r := fixedTestRun(40, 5)
	std, vals, err := SimulatedErrors(r, []Estimator{logZEst{}}, ErrorOpts{NSimulate: 1, Workers: 1, Seed: 9})
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 1 {
		t.Fatalf("got %d realizations, want 1", len(vals))
	}
	if !math.IsNaN(std[0]) {
		t.Fatalf("std = %g, want NaN", std[0])
	}
}

func TestBootstrapCITooFew(t *testing.T) {
	_, err := BootstrapCI(0, []float64{1}, 0.84)
	if !errors.Is(err, TooFewSimulationsErr) {
		t.Fatalf("got %v, want TooFewSimulationsErr", err)
	}
	_, err = BootstrapCI(0, []float64{1, 2, 3, 4, 5}, 0.84)
	if !errors.Is(err, TooFewSimulationsErr) {
		t.Fatalf("got %v, want TooFewSimulationsErr", err)
	}
}

func TestBootstrapCIValue(t *testing.T) {
	replicates := make([]float64, 100)
	for i := range replicates {
		replicates[i] = float64(i)
	}
	ci, err := BootstrapCI(0, replicates, 0.84)
	if err != nil {
		t.Fatal(err)
	}
	// quantile at 1-0.84=0.16 of the replicate cdf is 15.5
	if math.Abs(ci-(-15.5)) > 1e-12 {
		t.Fatalf("ci = %g, want -15.5", ci)
	}
}

func TestInterpClamps(t *testing.T) {
	xs := []float64{0.1, 0.5, 0.9}
	ys := []float64{10, 50, 90}
	if y := Interp(0, xs, ys); y != 10 {
		t.Fatalf("below range: %g", y)
	}
	if y := Interp(1, xs, ys); y != 90 {
		t.Fatalf("above range: %g", y)
	}
	if y := Interp(0.5, xs, ys); y != 50 {
		t.Fatalf("exact point: %g", y)
	}
	if y := Interp(0.3, xs, ys); math.Abs(y-30) > 1e-12 {
		t.Fatalf("midpoint: %g", y)
	}
}
