package estimate

import (
	"fmt"
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

func fixedRun(n int) *run.Run {
	logl := make([]float64, n)
	for i := range logl {
		logl[i] = float64(i-n) * 0.1
	}
	return &run.Run{
		Threads:  []run.Thread{{Table: &run.Table{LogL: logl}}},
		Settings: run.Settings{Kind: run.KindFixed, FixedNlive: 4},
	}
}

func validated(t *testing.T, ec *EstimateCommand) *EstimateCommand {
	t.Helper()
	ec.DataDir = "/nonexistent" // only opened by Perform's caller, not by the command
	ec.Fmt = "csv,noheader"
	if ec.Estimators == "" {
		ec.Estimators = "logz,nsamples"
	}
	if err := ec.Validate(); err != nil {
		t.Fatal(err)
	}
	return ec
}

func TestEstimatePerform(t *testing.T) {
	source := memSource{"r1": fixedRun(20), "r2": fixedRun(30)}
	ec := validated(t, &EstimateCommand{})
	var sb strings.Builder
	if err := ec.Perform(&sb, source); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), sb.String())
	}
	if !strings.HasPrefix(lines[0], "r1,") || !strings.HasSuffix(lines[0], ",20") {
		t.Fatalf("line 1: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "r2,") || !strings.HasSuffix(lines[1], ",30") {
		t.Fatalf("line 2: %q", lines[1])
	}
}

func TestEstimateSelectsRuns(t *testing.T) {
	source := memSource{"r1": fixedRun(20), "r2": fixedRun(30)}
	ec := validated(t, &EstimateCommand{})
	ec.Runs = []string{"r2"}
	var sb strings.Builder
	if err := ec.Perform(&sb, source); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(sb.String(), "r1") {
		t.Fatalf("unselected run in output: %q", sb.String())
	}

	ec.Runs = []string{"zap"}
	if err := ec.Perform(&sb, source); err == nil {
		t.Fatal("unknown run should fail")
	}
}

func TestEstimateSimulateReproducible(t *testing.T) {
	source := memSource{"r1": fixedRun(20)}
	out := func(seed uint) string {
		ec := validated(t, &EstimateCommand{})
		ec.Simulate = true
		ec.Seed = seed
		var sb strings.Builder
		if err := ec.Perform(&sb, source); err != nil {
			t.Fatal(err)
		}
		return sb.String()
	}
	if out(7) != out(7) {
		t.Fatal("same seed must give same output")
	}
	if out(7) == out(8) {
		t.Fatal("different seeds should give different output")
	}
}

func TestEstimateValidate(t *testing.T) {
	ec := &EstimateCommand{Estimators: "zap"}
	ec.DataDir = "/nonexistent"
	if err := ec.Validate(); err == nil {
		t.Fatal("bad estimator list should fail")
	}
}
