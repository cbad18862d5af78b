package svm

import (
	"math"
	"math/rand"
)

// boundEps is the relative distance to 0 or C under which a multiplier is
// snapped onto the bound after a step.
const boundEps = 1e-12

// TrainingState is the phase of the outer SMO loop
type TrainingState int

const (
	// StateScanAll examines every example
	StateScanAll TrainingState = iota
	// StateScanNonBound examines only examples with 0 < alpha < C
	StateScanNonBound
	// StateConverged means a full scan changed nothing
	StateConverged
	// StateExhausted means the pass budget ran out first
	StateExhausted
)

func (s TrainingState) String() string {
	switch s {
	case StateScanAll:
		return "scan_all"
	case StateScanNonBound:
		return "scan_non_bound"
	case StateConverged:
		return "converged"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

// solver holds the dual state of one Fit call: the multipliers, the error
// cache and the bias, together with the training data they refer to.
type solver struct {
	x      [][]float64
	y      []float64
	alpha  []float64
	errors []float64
	b      float64

	c      float64
	tol    float64
	kernel Kernel
	rng    *rand.Rand

	state TrainingState
	stats TrainingStats

	perm []int
}

func newSolver(x [][]float64, y []float64, c float64, tol float64, kernel Kernel, rng *rand.Rand) *solver {
	l := len(x)
	return &solver{
		x:      x,
		y:      y,
		alpha:  make([]float64, l),
		errors: make([]float64, l),
		c:      c,
		tol:    tol,
		kernel: kernel,
		rng:    rng,
		state:  StateScanAll,
		perm:   make([]int, l),
	}
}

// solve runs outer passes until a full scan changes nothing or maxSteps passes were made.
func (s *solver) solve(maxSteps uint) {
	remaining := maxSteps
	l := len(s.x)

	for {
		if remaining == 0 {
			s.state = StateExhausted
			break
		}
		remaining--

		numChanged := 0
		if s.state == StateScanAll {
			for i := 0; i < l; i++ {
				if s.examineExample(i) {
					numChanged++
				}
			}
		} else {
			for _, i := range s.nonBoundIndices() {
				if s.examineExample(i) {
					numChanged++
				}
			}
		}
		s.stats.Passes++

		logger.Debug().
			Int("pass", s.stats.Passes).
			Str("phase", s.state.String()).
			Int("changed", numChanged).
			Uint("remaining", remaining).
			Msg("pass finished")

		switch {
		case s.state == StateScanAll && numChanged == 0:
			s.state = StateConverged
		case s.state == StateScanAll:
			s.state = StateScanNonBound
		case numChanged == 0:
			s.state = StateScanAll
		}

		if s.state == StateConverged {
			break
		}
	}

	s.stats.State = s.state
}

func (s *solver) isNonBound(a float64) bool {
	return a > 0 && a < s.c
}

func (s *solver) nonBoundIndices() []int {
	var indices []int
	for i, a := range s.alpha {
		if s.isNonBound(a) {
			indices = append(indices, i)
		}
	}
	return indices
}

func (s *solver) k(x1 []float64, x2 []float64) float64 {
	s.stats.KernelEvaluations++
	return s.kernel.Compute(x1, x2)
}

// cachedError is f(x_i) - y_i as maintained by takeStep. Valid only while
// alpha[i] is non-bound.
func (s *solver) cachedError(i int) float64 {
	return s.errors[i]
}

// recomputedError evaluates f(x_i) - y_i over the examples with a non-zero multiplier.
func (s *solver) recomputedError(i int) float64 {
	xi := s.x[i]
	var sum float64
	for j, a := range s.alpha {
		if a != 0 {
			sum += a * s.y[j] * s.k(s.x[j], xi)
		}
	}
	return sum - s.b - s.y[i]
}

func (s *solver) errorOf(i int) float64 {
	if s.isNonBound(s.alpha[i]) {
		return s.cachedError(i)
	}
	return s.recomputedError(i)
}

// maxErrorIndex returns the first index holding the largest cached error.
func (s *solver) maxErrorIndex() int {
	best := 0
	for i, e := range s.errors {
		if e > s.errors[best] {
			best = i
		}
	}
	return best
}

func (s *solver) shuffledIndices() []int {
	for i := range s.perm {
		s.perm[i] = i
	}
	s.rng.Shuffle(len(s.perm), func(i, j int) {
		swapIntArray(s.perm, i, j)
	})
	return s.perm
}

// examineExample checks example i2 against the KKT conditions and, if it
// violates them, looks for a partner to optimize it with. It reports whether
// a pair of multipliers was changed.
func (s *solver) examineExample(i2 int) bool {
	s.stats.Examined++

	y2 := s.y[i2]
	alph2 := s.alpha[i2]
	e2 := s.errorOf(i2)
	r2 := e2 * y2

	if !((r2 < -s.tol && alph2 < s.c) || (r2 > s.tol && alph2 > 0)) {
		return false
	}

	nonBound := s.nonBoundIndices()
	if len(nonBound) > 0 {
		if s.takeStep(s.maxErrorIndex(), i2, e2) {
			return true
		}

		s.rng.Shuffle(len(nonBound), func(i, j int) {
			swapIntArray(nonBound, i, j)
		})
		for _, i1 := range nonBound {
			if s.takeStep(i1, i2, e2) {
				return true
			}
		}
	}

	for _, i1 := range s.shuffledIndices() {
		if s.takeStep(i1, i2, e2) {
			return true
		}
	}

	return false
}

// takeStep jointly optimizes alpha[i1] and alpha[i2]; e2 is the error of i2
// already computed by the caller.
func (s *solver) takeStep(i1 int, i2 int, e2 float64) bool {
	if i1 == i2 {
		return false
	}

	alph1, alph2 := s.alpha[i1], s.alpha[i2]
	y1, y2 := s.y[i1], s.y[i2]
	e1 := s.errorOf(i1)
	sign := y1 * y2
	C := s.c

	var L, H float64
	if y1 != y2 {
		L = math.Max(0, alph2-alph1)
		H = math.Min(C, C+alph2-alph1)
	} else {
		L = math.Max(0, alph2+alph1-C)
		H = math.Min(C, alph2+alph1)
	}
	if L == H {
		return false
	}

	x1, x2 := s.x[i1], s.x[i2]
	k11 := s.k(x1, x1)
	k12 := s.k(x1, x2)
	k22 := s.k(x2, x2)
	eta := k11 + k22 - 2*k12

	var a2 float64
	if eta > 0 {
		a2 = clipValue(alph2+y2*(e1-e2)/eta, H, L)
	} else {
		// non-positive curvature: move to whichever end of the segment is lower
		s.stats.DegenerateSteps++
		lObj := s.objectiveAt(alph1, alph2, L, k11, k12, k22, sign, y1, y2, e1, e2)
		hObj := s.objectiveAt(alph1, alph2, H, k11, k12, k22, sign, y1, y2, e1, e2)
		switch {
		case lObj < hObj-s.tol:
			a2 = L
		case lObj > hObj+s.tol:
			a2 = H
		default:
			a2 = alph2
		}
	}

	if math.Abs(a2-alph2) < s.tol*(a2+alph2+s.tol) {
		return false
	}

	a1 := alph1 + sign*(alph2-a2)

	roundoff := C * boundEps
	if a1 < roundoff {
		a2 += sign * a1
		a1 = 0
	} else if a1 > C-roundoff {
		a2 += sign * (a1 - C)
		a1 = C
	}
	if a2 < roundoff {
		a2 = 0
	} else if a2 > C-roundoff {
		a2 = C
	}

	newB := s.computeBias(e1, e2, y1, a1, alph1, y2, a2, alph2, k11, k12, k22)
	deltaB := newB - s.b
	s.b = newB

	t1 := y1 * (a1 - alph1)
	t2 := y2 * (a2 - alph2)
	for i, a := range s.alpha {
		if s.isNonBound(a) {
			xi := s.x[i]
			s.errors[i] += t1*s.k(x1, xi) + t2*s.k(x2, xi) - deltaB
		}
	}
	s.errors[i1] = 0
	s.errors[i2] = 0

	s.alpha[i1] = a1
	s.alpha[i2] = a2
	s.stats.Steps++

	return true
}

// computeBias prefers the threshold that makes a non-bound multiplier's error
// zero and averages the two candidates when both new multipliers are at a bound.
func (s *solver) computeBias(e1, e2, y1, a1, alph1, y2, a2, alph2, k11, k12, k22 float64) float64 {
	b1 := e1 + y1*(a1-alph1)*k11 + y2*(a2-alph2)*k12 + s.b
	b2 := e2 + y1*(a1-alph1)*k12 + y2*(a2-alph2)*k22 + s.b

	if s.isNonBound(a1) {
		return b1
	}
	if s.isNonBound(a2) {
		return b2
	}
	return (b1 + b2) / 2
}

// objectiveAt is the dual objective, restricted to the pair, when alpha2 is
// moved to v and alpha1 follows along the equality constraint.
func (s *solver) objectiveAt(alph1, alph2, v, k11, k12, k22, sign, y1, y2, e1, e2 float64) float64 {
	f1 := y1*(e1+s.b) - alph1*k11 - sign*alph2*k12
	f2 := y2*(e2+s.b) - sign*alph1*k12 - alph2*k22
	v1 := alph1 + sign*(alph2-v)
	return v1*f1 + v*f2 + 0.5*v1*v1*k11 + 0.5*v*v*k22 + sign*v*v1*k12
}

func clipValue(value float64, high float64, low float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

func swapIntArray(array []int, idxA int, idxB int) {
	array[idxA], array[idxB] = array[idxB], array[idxA]
}
