// Log-space arithmetic helpers.
//
// Nested sampling works with likelihoods and prior volumes that span many
// hundreds of orders of magnitude, so everything downstream of the sampler
// stays in log space until the last possible moment.

package analyze

import "math"

// LogSubtract computes log(exp(logA) - exp(logB)) without leaving log space.
// Requires logA >= logB; panics otherwise, as a negative difference has no
// logarithm and always indicates corrupted input upstream.  LogSubtract(a, a)
// is -Inf.
func LogSubtract(logA, logB float64) float64 {
	if logA < logB {
		panic("analyze.LogSubtract: logA < logB")
	}
	if logA == logB {
		// Log1p(-1) is -Inf but go through this path explicitly so that
		// a == b == -Inf does not produce NaN from the subtraction below.
		return math.Inf(-1)
	}
	return logA + math.Log1p(-math.Exp(logB-logA))
}

// LogSumExp computes log(sum_i exp(xs[i])) with max-stabilization.  An empty
// input yields -Inf, the log of an empty sum.
func LogSumExp(xs []float64) float64 {
	if len(xs) == 0 {
		return math.Inf(-1)
	}
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, -1) {
		return max
	}
	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}
