package analyze

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"nsanalyze/run"
)

func TestLogSubtract(t *testing.T) {
	if d := LogSubtract(-3.5, -3.5); !math.IsInf(d, -1) {
		t.Fatalf("LogSubtract(a,a) = %g, want -Inf", d)
	}
	ninf := math.Inf(-1)
	if d := LogSubtract(ninf, ninf); !math.IsInf(d, -1) {
		t.Fatalf("LogSubtract(-Inf,-Inf) = %g, want -Inf", d)
	}
	// log(e^0 - e^-1) computed directly
	want := math.Log(1 - math.Exp(-1))
	if d := LogSubtract(0, -1); math.Abs(d-want) > 1e-14 {
		t.Fatalf("LogSubtract(0,-1) = %g, want %g", d, want)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("LogSubtract(-2,-1) should panic")
		}
	}()
	LogSubtract(-2, -1)
}

func TestLogSumExp(t *testing.T) {
	if s := LogSumExp(nil); !math.IsInf(s, -1) {
		t.Fatalf("empty sum = %g, want -Inf", s)
	}
	// log(2e^-1000): naive summation would underflow
	if s := LogSumExp([]float64{-1000, -1000}); math.Abs(s-(-1000+math.Ln2)) > 1e-12 {
		t.Fatalf("got %g, want %g", s, -1000+math.Ln2)
	}
}

func TestLogXExact(t *testing.T) {
	nlive := []float64{5, 5, 5, 5, 5}
	want := []float64{-0.2, -0.4, -0.6, -0.8, -1.0}
	logx := LogX(nlive)
	for i := range want {
		if math.Abs(logx[i]-want[i]) > 1e-12 {
			t.Fatalf("logx[%d] = %.15f, want %.15f", i, logx[i], want[i])
		}
	}
}

func TestLogXMonotone(t *testing.T) {
	nlive := []float64{3, 7, 2, 11, 5, 1}
	logx := LogX(nlive)
	prev := 0.0
	for i, x := range logx {
		if x >= prev {
			t.Fatalf("logx[%d] = %g not below %g", i, x, prev)
		}
		prev = x
	}
	rng := rand.New(rand.NewPCG(1, 2))
	logx = SimulateLogX(nlive, rng)
	prev = 0.0
	for i, x := range logx {
		if x >= prev || math.IsInf(x, 0) {
			t.Fatalf("simulated logx[%d] = %g not strictly decreasing and finite", i, x)
		}
		prev = x
	}
}

// Each simulated shrinkage step is log(1-U)/nlive[i], whose expectation is
// -1/nlive[i]; the mean over many draws must approach it.
func TestSimulateLogXStepMean(t *testing.T) {
	nlive := []float64{2, 5, 10}
	const trials = 20000
	rng := rand.New(rand.NewPCG(7, 0))
	sums := make([]float64, len(nlive))
	for k := 0; k < trials; k++ {
		logx := SimulateLogX(nlive, rng)
		prev := 0.0
		for i, x := range logx {
			sums[i] += x - prev
			prev = x
		}
	}
	for i, c := range nlive {
		mean := sums[i] / trials
		want := -1 / c
		// The steps are exponential with sd 1/c, so the mean of `trials`
		// draws lies well within five standard errors.
		tol := 5 / (c * math.Sqrt(trials))
		if math.Abs(mean-want) > tol {
			t.Fatalf("step %d mean %g, want %g within %g", i, mean, want, tol)
		}
	}
}

func TestLiveCountsDynamic(t *testing.T) {
	r := &run.Run{
		Threads: []run.Thread{
			{Table: &run.Table{LogL: []float64{-5, -3}}},
			{Table: &run.Table{LogL: []float64{-1}}},
		},
		Bounds: []run.Bounds{
			{Min: math.NaN(), Max: -2, Multiplicity: 3},
			{Min: -2, Max: math.NaN(), Multiplicity: 2},
		},
		Settings: run.Settings{Kind: run.KindDynamic},
	}
	nlive, err := LiveCounts(r, []float64{-5, -3, -1})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{3, 3, 2}
	for i := range want {
		if nlive[i] != want[i] {
			t.Fatalf("nlive = %v, want %v", nlive, want)
		}
	}
}

func TestLiveCountsPositive(t *testing.T) {
	// The second sample lies above every thread's range.
	r := &run.Run{
		Threads: []run.Thread{
			{Table: &run.Table{LogL: []float64{-5, -1}}},
		},
		Bounds: []run.Bounds{
			{Min: math.NaN(), Max: -2, Multiplicity: 1},
		},
		Settings: run.Settings{Kind: run.KindDynamic},
	}
	_, err := LiveCounts(r, []float64{-5, -1})
	if !errors.Is(err, BadLiveCountErr) {
		t.Fatalf("got %v, want BadLiveCountErr", err)
	}
}

func TestLiveCountsPrecomputed(t *testing.T) {
	logl := []float64{-5, -3, -1}
	r := &run.Run{
		Nlive:    []float64{3, 2, 1},
		Settings: run.Settings{Kind: run.KindDynamic},
	}
	nlive, err := LiveCounts(r, logl)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range r.Nlive {
		if nlive[i] != want {
			t.Fatalf("nlive = %v, want %v", nlive, r.Nlive)
		}
	}
	// A stored array is validated like a reconstructed one.
	r.Nlive = []float64{2, 0, 1}
	if _, err := LiveCounts(r, logl); !errors.Is(err, BadLiveCountErr) {
		t.Fatalf("got %v, want BadLiveCountErr", err)
	}
}

// Random bounds records with mixed bounded and unbounded sides: the count at
// each sample must equal the summed multiplicity of the records covering it,
// and a full-range record keeps every sample covered.
func TestLiveCountsRandomBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 3))
	for trial := 0; trial < 100; trial++ {
		n := 5 + rng.IntN(20)
		logl := make([]float64, n)
		v := -10.0
		for i := range logl {
			v += rng.Float64()
			logl[i] = v
		}
		bounds := []run.Bounds{
			{Min: math.NaN(), Max: logl[n-1], Multiplicity: float64(1 + rng.IntN(3))},
		}
		extra := rng.IntN(6)
		for k := 0; k < extra; k++ {
			b := run.Bounds{Multiplicity: float64(1 + rng.IntN(3))}
			lo := logl[0] - 1 + 12*rng.Float64()
			hi := lo + 6*rng.Float64()
			switch rng.IntN(3) {
			case 0:
				b.Min, b.Max = math.NaN(), hi
			case 1:
				b.Min, b.Max = lo, math.NaN()
			default:
				b.Min, b.Max = lo, hi
			}
			bounds = append(bounds, b)
		}
		r := &run.Run{Bounds: bounds, Settings: run.Settings{Kind: run.KindDynamic}}
		nlive, err := LiveCounts(r, logl)
		if err != nil {
			t.Fatal(err)
		}
		for i, l := range logl {
			want := 0.0
			for _, b := range bounds {
				if (math.IsNaN(b.Min) || l > b.Min) && (math.IsNaN(b.Max) || l <= b.Max) {
					want += b.Multiplicity
				}
			}
			if want <= 0 || nlive[i] != want {
				t.Fatalf("trial %d: nlive[%d] = %g, want %g > 0", trial, i, nlive[i], want)
			}
		}
	}
}

func TestLiveCountsFixedRamp(t *testing.T) {
	logl := []float64{-8, -7, -6, -5, -4, -3, -2, -1}
	r := &run.Run{
		Threads:  []run.Thread{{Table: &run.Table{LogL: logl}}},
		Settings: run.Settings{Kind: run.KindFixed, FixedNlive: 5},
	}
	nlive, err := LiveCounts(r, logl)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{5, 5, 5, 5, 4, 3, 2, 1}
	for i := range want {
		if nlive[i] != want[i] {
			t.Fatalf("nlive = %v, want %v", nlive, want)
		}
	}
}

func TestMergeSingleThreadRoundTrip(t *testing.T) {
	table := &run.Table{
		LogL:  []float64{-4, -3, -2, -1},
		R:     []float64{4, 3, 2, 1},
		Theta: [][]float64{{4, 40}, {3, 30}, {2, 20}, {1, 10}},
	}
	m := MergeThreads([]run.Thread{{Table: table}, {}})
	if m.Len() != table.Len() {
		t.Fatalf("merged %d samples, want %d", m.Len(), table.Len())
	}
	for i := range table.LogL {
		if m.LogL[i] != table.LogL[i] || m.R[i] != table.R[i] || m.Theta[i][0] != table.Theta[i][0] {
			t.Fatalf("sample %d differs after merge", i)
		}
	}
	if MergeThreads([]run.Thread{{}, {}}) != nil {
		t.Fatal("all-absent merge should be nil")
	}
}

func TestMergeSortsByLikelihood(t *testing.T) {
	m := MergeThreads([]run.Thread{
		{Table: &run.Table{LogL: []float64{-5, -1}, R: []float64{5, 1}}},
		{Table: &run.Table{LogL: []float64{-4, -2}, R: []float64{4, 2}}},
	})
	wantL := []float64{-5, -4, -2, -1}
	wantR := []float64{5, 4, 2, 1}
	for i := range wantL {
		if m.LogL[i] != wantL[i] || m.R[i] != wantR[i] {
			t.Fatalf("merged = %v / %v, want %v / %v", m.LogL, m.R, wantL, wantR)
		}
	}
}

// The log-space trapezium pipeline must agree with a direct linear-space
// computation when the numbers are small enough for the latter.
func TestEvidenceAgainstLinearSpace(t *testing.T) {
	const n = 50
	logl := make([]float64, n)
	nlive := make([]float64, n)
	for i := range logl {
		logl[i] = float64(i) * 0.01
		nlive[i] = 10
	}
	logx := LogX(nlive)
	logw, err := LogW(logx, logl)
	if err != nil {
		t.Fatal(err)
	}
	// Direct trapezium in linear space.
	x := make([]float64, n+1)
	x[0] = 1
	for i := 0; i < n; i++ {
		x[i+1] = math.Exp(logx[i])
	}
	want := 0.0
	w := make([]float64, n)
	for i := 0; i+2 <= n; i++ {
		w[i] = (x[i] - x[i+2]) / 2
	}
	w[0] += (x[0] - x[1]) / 2
	w[n-1] = w[n-2]
	for i := range w {
		want += w[i] * math.Exp(logl[i])
	}
	got := math.Exp(LogSumExp(logw))
	if math.Abs(got-want) > 1e-12*want {
		t.Fatalf("evidence %g, want %g", got, want)
	}
}

func TestLogWTooShort(t *testing.T) {
	if _, err := LogW([]float64{-1}, []float64{0}); !errors.Is(err, run.BadRunShapeErr) {
		t.Fatalf("got %v, want BadRunShapeErr", err)
	}
}

func TestRunEstimatorsEmpty(t *testing.T) {
	r := &run.Run{
		Threads:  []run.Thread{{}},
		Settings: run.Settings{Kind: run.KindFixed, FixedNlive: 3},
	}
	if _, err := RunEstimators(r, nil); !errors.Is(err, EmptyRunErr) {
		t.Fatalf("got %v, want EmptyRunErr", err)
	}
}
