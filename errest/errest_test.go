package errest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"nsanalyze/run"
)

type memSource map[string]*run.Run

func (m memSource) RunNames() ([]string, error) {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (m memSource) Load(name string) (*run.Run, error) {
	if r, found := m[name]; found {
		return r, nil
	}
	return nil, fmt.Errorf("no such run: %s", name)
}

func dynamicRun(nthreads int) *run.Run {
	r := &run.Run{Settings: run.Settings{Kind: run.KindDynamic, InitNlive: 2}}
	for i := 0; i < nthreads; i++ {
		logl := []float64{float64(-2*nthreads + i), float64(-nthreads + i)}
		r.Threads = append(r.Threads, run.Thread{Table: &run.Table{LogL: logl}})
		r.Bounds = append(r.Bounds, run.Bounds{
			Min: math.Inf(-1), Max: math.NaN(), Multiplicity: 1,
		})
	}
	return r
}

func newCommand(t *testing.T, method string, nsim uint) *ErrorsCommand {
	t.Helper()
	ec := &ErrorsCommand{
		Estimators: "logz",
		Method:     method,
		NSimulate:  nsim,
		Workers:    1,
	}
	ec.DataDir = "/nonexistent"
	ec.Fmt = "csv,noheader"
	if err := ec.Validate(); err != nil {
		t.Fatal(err)
	}
	return ec
}

func TestErrorsSimulate(t *testing.T) {
	source := memSource{"r1": dynamicRun(5)}
	ec := newCommand(t, "simulate", 16)
	var sb strings.Builder
	if err := ec.Perform(&sb, source); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 1 || !strings.HasPrefix(lines[0], "r1,logz,") {
		t.Fatalf("got %q", sb.String())
	}
}

func TestErrorsBootstrapWithCI(t *testing.T) {
	source := memSource{"r1": dynamicRun(6)}
	ec := newCommand(t, "bootstrap", 50)
	ec.CredInt = []float64{0.84}
	if err := ec.Validate(); err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := ec.Perform(&sb, source); err != nil {
		t.Fatal(err)
	}
	// run, estimator, value, std, ci-0.84
	if fields := strings.Split(strings.TrimSpace(sb.String()), ","); len(fields) != 5 {
		t.Fatalf("got %q", sb.String())
	}
}

func TestErrorsValues(t *testing.T) {
	source := memSource{"r1": dynamicRun(5)}
	ec := newCommand(t, "simulate", 8)
	ec.Values = true
	var sb strings.Builder
	if err := ec.Perform(&sb, source); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 8 {
		t.Fatalf("expected 8 iteration rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[3], "r1,logz,3,") {
		t.Fatalf("row 3: %q", lines[3])
	}
}

func TestErrorsValidate(t *testing.T) {
	bad := func(mutate func(ec *ErrorsCommand)) {
		t.Helper()
		ec := &ErrorsCommand{Estimators: "logz", Method: "simulate", NSimulate: 100, Workers: 1}
		ec.DataDir = "/nonexistent"
		mutate(ec)
		if err := ec.Validate(); err == nil {
			t.Fatal("expected validation error")
		}
	}
	bad(func(ec *ErrorsCommand) { ec.Method = "jackknife" })
	bad(func(ec *ErrorsCommand) { ec.NSimulate = 0 })
	bad(func(ec *ErrorsCommand) { ec.CredInt = []float64{0.84} }) // requires bootstrap
	bad(func(ec *ErrorsCommand) { ec.NinitSep = true })
	bad(func(ec *ErrorsCommand) {
		ec.Method = "bootstrap"
		ec.NSimulate = 1
		ec.CredInt = []float64{0.95}
	})
	bad(func(ec *ErrorsCommand) {
		ec.Method = "bootstrap"
		ec.CredInt = []float64{1.5}
	})
}
