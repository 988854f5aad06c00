// The "errors" verb: sampling-uncertainty estimates for stored runs.
//
// Two methods are available.  -method simulate redraws the stochastic prior volumes repeatedly
// for the fixed sample set; -method bootstrap resamples whole threads with replacement and
// reanalyzes each resampled run.  Both report a Bessel-corrected standard deviation per
// estimator; bootstrap can additionally report basic-bootstrap credible intervals with -cred-int.

package errest

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"

	"nsanalyze/analyze"
	. "nsanalyze/command"
	"nsanalyze/db"
	"nsanalyze/estimators"
)

const (
	methodSimulate  = "simulate"
	methodBootstrap = "bootstrap"
)

type ErrorsCommand struct /* implements AnalysisCommand */ {
	SharedArgs
	FormatArgs

	Estimators string
	Method     string
	NSimulate  uint
	CredInt    []float64
	Values     bool
	NinitSep   bool
	Seed       uint
	Workers    uint

	// Synthesized
	es []analyze.Estimator
}

func (ec *ErrorsCommand) Summary() []string {
	return []string{
		"Estimate the sampling uncertainty of estimator values for the",
		"selected runs, by prior-volume simulation or thread bootstrapping.",
	}
}

func (ec *ErrorsCommand) Add(fs *flag.FlagSet) {
	ec.SharedArgs.Add(fs)
	ec.FormatArgs.Add(fs)

	fs.StringVar(&ec.Estimators, "e", "logz,nsamples",
		"Comma-separated `estimators` to evaluate, as for the estimate command")
	fs.StringVar(&ec.Method, "method", methodSimulate,
		"Uncertainty `method`: simulate or bootstrap")
	fs.UintVar(&ec.NSimulate, "n-simulate", 100,
		"Number of `iterations` of the method")
	fs.Var(NewRepeatableFloat64(&ec.CredInt), "cred-int",
		"Also compute the bootstrap credible interval at this `level` in (0,1)\n"+
			"(repeatable).  Requires -method bootstrap.")
	fs.BoolVar(&ec.Values, "values", false,
		"Print the raw per-iteration estimator values instead of the summary")
	fs.BoolVar(&ec.NinitSep, "ninit-sep", false,
		"Bootstrap the initial and dynamically added threads as separate strata")
	fs.UintVar(&ec.Seed, "seed", 0, "Random `seed` [default: 0]")
	fs.UintVar(&ec.Workers, "workers", uint(runtime.NumCPU()),
		"Number of parallel `workers` [default: number of CPUs]")
}

func (ec *ErrorsCommand) ReifyForRemote(x *Reifier) error {
	e1 := ec.SharedArgs.ReifyForRemote(x)
	e2 := ec.FormatArgs.ReifyForRemote(x)
	x.String("e", ec.Estimators)
	x.String("method", ec.Method)
	x.Uint("n-simulate", ec.NSimulate)
	x.RepeatableFloat64("cred-int", ec.CredInt)
	x.Bool("values", ec.Values)
	x.Bool("ninit-sep", ec.NinitSep)
	x.Uint("seed", ec.Seed)
	// Workers is a local resource decision, the remote end picks its own.
	return errors.Join(e1, e2)
}

func (ec *ErrorsCommand) Validate() error {
	e1 := ec.SharedArgs.Validate()
	e2 := ec.FormatArgs.Validate()
	var e3, e4, e5, e6 error
	ec.es, e3 = estimators.ParseList(ec.Estimators)
	switch ec.Method {
	case methodSimulate:
		if len(ec.CredInt) > 0 {
			e4 = errors.New("-cred-int requires -method bootstrap")
		}
		if ec.NinitSep {
			e4 = errors.Join(e4, errors.New("-ninit-sep requires -method bootstrap"))
		}
	case methodBootstrap:
		// ok
	default:
		e4 = fmt.Errorf("Unknown -method %s", ec.Method)
	}
	if ec.NSimulate < 1 {
		e5 = errors.New("-n-simulate must be at least 1")
	}
	for _, q := range ec.CredInt {
		if q <= 0 || q >= 1 {
			e6 = errors.Join(e6, fmt.Errorf("-cred-int %v is not in (0,1)", q))
		} else if min(q, 1-q)*float64(ec.NSimulate) <= 1 {
			// Fail before any work happens, the interval would be meaningless.
			e6 = errors.Join(e6, fmt.Errorf("-n-simulate %d is too small to resolve -cred-int %v",
				ec.NSimulate, q))
		}
	}
	return errors.Join(e1, e2, e3, e4, e5, e6)
}

func (ec *ErrorsCommand) opts() analyze.ErrorOpts {
	return analyze.ErrorOpts{
		NSimulate: int(ec.NSimulate),
		Workers:   max(int(ec.Workers), 1),
		Seed:      uint64(ec.Seed),
		NinitSep:  ec.NinitSep,
	}
}

func (ec *ErrorsCommand) Perform(out io.Writer, source db.RunSource) error {
	available, err := source.RunNames()
	if err != nil {
		return err
	}
	names, err := ec.SelectRuns(available)
	if err != nil {
		return err
	}

	fields := []string{"run", "estimator", "value", "std"}
	for _, q := range ec.CredInt {
		fields = append(fields, fmt.Sprintf("ci-%v", q))
	}
	if ec.Values {
		fields = []string{"run", "estimator", "iter", "value"}
	}

	var rows [][]string
	for _, name := range names {
		r, err := source.Load(name)
		if err != nil {
			return err
		}
		observed, err := analyze.RunEstimators(r, ec.es)
		if err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}
		var stds []float64
		var values [][]float64
		switch ec.Method {
		case methodSimulate:
			stds, values, err = analyze.SimulatedErrors(r, ec.es, ec.opts())
		case methodBootstrap:
			stds, values, err = analyze.BootstrapErrors(r, ec.es, ec.opts())
		}
		if err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}
		if ec.Values {
			for iter, vs := range values {
				for j, e := range ec.es {
					rows = append(rows, []string{
						name, e.Name(), fmt.Sprint(iter), fmt.Sprintf("%.6g", vs[j]),
					})
				}
			}
			continue
		}
		for j, e := range ec.es {
			row := []string{
				name, e.Name(), fmt.Sprintf("%.6g", observed[j]), fmt.Sprintf("%.6g", stds[j]),
			}
			for _, q := range ec.CredInt {
				replicates := make([]float64, len(values))
				for i := range values {
					replicates[i] = values[i][j]
				}
				ci, err := analyze.BootstrapCI(observed[j], replicates, q)
				if err != nil {
					return fmt.Errorf("run %s: %w", name, err)
				}
				row = append(row, fmt.Sprintf("%.6g", ci))
			}
			rows = append(rows, row)
		}
	}

	return FormatData(out, fields, rows, ec.PrintOpts)
}
