package svm

// dot is the inner product of two vectors of equal width
func dot(x []float64, y []float64) float64 {
	var ret float64

	for i, v := range x {
		ret += v * y[i]
	}

	return ret
}

// nrm2Sq is the squared euclidean norm
func nrm2Sq(x []float64) float64 {
	var ret float64

	for _, v := range x {
		ret += v * v
	}

	return ret
}

// sqDist is |x-y|^2 computed from the differences
func sqDist(x []float64, y []float64) float64 {
	var ret float64

	for i, v := range x {
		d := v - y[i]
		ret += d * d
	}

	return ret
}

// axpy is y += a*x
func axpy(a float64, x []float64, y []float64) {
	for i, v := range x {
		y[i] += a * v
	}
}

func powi(base float64, times int) float64 {
	tmp := base
	ret := 1.0

	for t := times; t > 0; t /= 2 {
		if t%2 == 1 {
			ret *= tmp
		}

		tmp *= tmp
	}

	return ret
}
