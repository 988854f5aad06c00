// The reifier is used to build a query string for remote execution from parsed and checked
// arguments.
//
// Uniformly, repeatable values that could be comma-separated on input are exploded as separate
// arguments here, to keep it simple.  The daemon turns each key=value pair back into a -key value
// pair on the command line of the redispatched verb; boolean flags carry the value "true".

package command

import (
	"fmt"
	"net/url"
)

type Reifier struct {
	options string
}

func NewReifier() Reifier {
	return Reifier{""}
}

func (r *Reifier) addString(name, val string) {
	if r.options != "" {
		r.options += "&"
	}
	r.options += url.QueryEscape(name)
	r.options += "="
	r.options += url.QueryEscape(val)
}

func (r *Reifier) Bool(n string, v bool) {
	if v {
		r.addString(n, "true")
	}
}

func (r *Reifier) Uint(n string, v uint) {
	if v != 0 {
		r.addString(n, fmt.Sprint(v))
	}
}

func (r *Reifier) Float64(n string, v float64) {
	if v != 0 {
		r.addString(n, fmt.Sprint(v))
	}
}

func (r *Reifier) String(n, v string) {
	if v != "" {
		r.addString(n, v)
	}
}

func (r *Reifier) RepeatableString(n string, vs []string) {
	for _, v := range vs {
		r.String(n, v)
	}
}

func (r *Reifier) RepeatableFloat64(n string, vs []float64) {
	for _, v := range vs {
		r.Float64(n, v)
	}
}

func (r *Reifier) EncodedArguments() string {
	return r.options
}
