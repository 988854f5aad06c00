// Compute estimator point values for stored runs.
//
// For each selected run, the threads are merged, the live counts are reconstructed, and the
// importance weights computed with the expected prior volumes; each requested estimator is then
// evaluated against the weighted samples.  With -simulate, a single stochastic volume realization
// is used instead, seeded by -seed.

package estimate

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"

	"nsanalyze/analyze"
	. "nsanalyze/command"
	"nsanalyze/db"
	"nsanalyze/estimators"
)

type EstimateCommand struct /* implements AnalysisCommand */ {
	SharedArgs
	FormatArgs

	Estimators string
	Simulate   bool
	Seed       uint

	// Synthesized
	es []analyze.Estimator
}

func (ec *EstimateCommand) Summary() []string {
	return []string{
		"Compute and print estimator point values for the selected runs.",
	}
}

func (ec *EstimateCommand) Add(fs *flag.FlagSet) {
	ec.SharedArgs.Add(fs)
	ec.FormatArgs.Add(fs)

	fs.StringVar(&ec.Estimators, "e", "logz,nsamples",
		"Comma-separated `estimators` to evaluate: logz, z, nsamples, r-mean,\n"+
			"r-cred-<q>, theta<i>-mean, theta<i>-sq-mean, theta<i>-cred-<q>")
	fs.BoolVar(&ec.Simulate, "simulate", false,
		"Use one stochastic prior-volume realization instead of the expected volumes")
	fs.UintVar(&ec.Seed, "seed", 0, "Random `seed` for -simulate [default: 0]")
}

func (ec *EstimateCommand) ReifyForRemote(x *Reifier) error {
	e1 := ec.SharedArgs.ReifyForRemote(x)
	e2 := ec.FormatArgs.ReifyForRemote(x)
	x.String("e", ec.Estimators)
	x.Bool("simulate", ec.Simulate)
	x.Uint("seed", ec.Seed)
	return errors.Join(e1, e2)
}

func (ec *EstimateCommand) Validate() error {
	var e3 error
	ec.es, e3 = estimators.ParseList(ec.Estimators)
	return errors.Join(
		ec.SharedArgs.Validate(),
		ec.FormatArgs.Validate(),
		e3,
	)
}

func (ec *EstimateCommand) Perform(out io.Writer, source db.RunSource) error {
	available, err := source.RunNames()
	if err != nil {
		return err
	}
	names, err := ec.SelectRuns(available)
	if err != nil {
		return err
	}

	fields := []string{"run"}
	for _, e := range ec.es {
		fields = append(fields, e.Name())
	}

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		r, err := source.Load(name)
		if err != nil {
			return err
		}
		var values []float64
		if ec.Simulate {
			var rng = rand.New(rand.NewPCG(uint64(ec.Seed), 0))
			table, logw, err := analyze.Weights(r, rng)
			if err != nil {
				return fmt.Errorf("run %s: %w", name, err)
			}
			for _, e := range ec.es {
				values = append(values, e.Estimate(logw, table.LogL, table.R, table.Theta))
			}
		} else {
			values, err = analyze.RunEstimators(r, ec.es)
			if err != nil {
				return fmt.Errorf("run %s: %w", name, err)
			}
		}
		row := []string{name}
		for _, v := range values {
			row = append(row, fmt.Sprintf("%.6g", v))
		}
		rows = append(rows, row)
	}

	return FormatData(out, fields, rows, ec.PrintOpts)
}
