package estimators

import (
	"fmt"
	"strconv"
	"strings"

	"nsanalyze/analyze"
)

// Parse translates an estimator name, as accepted on the command line, into
// an estimator.  The grammar:
//
//	logz | z | nsamples | r-mean | r-cred-<q> |
//	theta<i>-mean | theta<i>-sq-mean | theta<i>-cred-<q>
//
// with <i> a 1-based parameter index and <q> a probability in (0,1).
func Parse(name string) (analyze.Estimator, error) {
	switch name {
	case "logz":
		return LogZ{}, nil
	case "z":
		return Z{}, nil
	case "nsamples":
		return CountSamples{}, nil
	case "r-mean":
		return RMean{}, nil
	}
	if rest, found := strings.CutPrefix(name, "r-cred-"); found {
		q, err := parseQ(rest)
		if err != nil {
			return nil, fmt.Errorf("estimator %q: %v", name, err)
		}
		return RCred{Q: q}, nil
	}
	if rest, found := strings.CutPrefix(name, "theta"); found {
		digits := rest
		if i := strings.IndexByte(rest, '-'); i != -1 {
			digits = rest[:i]
		}
		ix, err := strconv.Atoi(digits)
		if err != nil || ix < 1 {
			return nil, fmt.Errorf("estimator %q: bad parameter index", name)
		}
		switch suffix := rest[len(digits):]; {
		case suffix == "-mean":
			return ParamMean{Param: ix - 1}, nil
		case suffix == "-sq-mean":
			return ParamSquaredMean{Param: ix - 1}, nil
		case strings.HasPrefix(suffix, "-cred-"):
			q, err := parseQ(suffix[len("-cred-"):])
			if err != nil {
				return nil, fmt.Errorf("estimator %q: %v", name, err)
			}
			return ParamCred{Param: ix - 1, Q: q}, nil
		}
	}
	return nil, fmt.Errorf("unknown estimator %q", name)
}

// ParseList parses a comma-separated list of estimator names.
func ParseList(names string) ([]analyze.Estimator, error) {
	var es []analyze.Estimator
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		e, err := Parse(name)
		if err != nil {
			return nil, err
		}
		es = append(es, e)
	}
	if len(es) == 0 {
		return nil, fmt.Errorf("no estimators named")
	}
	return es, nil
}

func parseQ(s string) (float64, error) {
	q, err := strconv.ParseFloat(s, 64)
	if err != nil || q <= 0 || q >= 1 {
		return 0, fmt.Errorf("probability must be in (0,1), got %q", s)
	}
	return q, nil
}
