package facematch

import "math"

// MaxDistance is returned for vectors that cannot be compared.
const MaxDistance = math.MaxFloat64

// EuclideanDistance computes the L2 distance between two descriptors.
// Vectors of unequal length, empty vectors and vectors holding NaN or Inf
// are maximally distant so a single malformed roster entry never wins a scan.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return MaxDistance
	}

	var sum float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			return MaxDistance
		}
		d := x - y
		sum += d * d
	}

	dist := math.Sqrt(sum)
	if math.IsInf(dist, 0) || math.IsNaN(dist) {
		return MaxDistance
	}
	return dist
}
