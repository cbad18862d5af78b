package svm

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/tevino/abool"
)

// TrainingStats describes the last Fit of a model
type TrainingStats struct {
	Passes                 int
	Examined               int
	Steps                  int
	DegenerateSteps        int
	KernelEvaluations      int64
	State                  TrainingState
	NumSamples             int
	NumSupportVectors      int
	NumBoundSupportVectors int
	Duration               time.Duration
}

// Model is a binary kernel SVM. It is built with NewModel, trained in place by
// Fit and then queried with Predict and DecisionFunction. A Model must not be
// fitted from several goroutines at once; Fit returns ErrConcurrentFit when it
// detects that.
type Model struct {
	c        float64
	tol      float64
	maxSteps uint
	seed     uint64
	kernel   Kernel
	rng      *rand.Rand
	fitting  *abool.AtomicBool

	fitted         bool
	numFeatures    int
	supportVectors [][]float64
	supportLabels  []float64
	alphas         []float64
	bias           float64
	stats          TrainingStats
}

// NewModel validates the hyperparameters and returns an untrained model.
// The model owns kernel from here on.
func NewModel(c float64, tol float64, kernel Kernel, maxSteps uint, seed uint64) (*Model, error) {
	if err := validateHyperparameters(c, tol); err != nil {
		return nil, err
	}
	if kernel == nil {
		return nil, fmt.Errorf("missing kernel: %w", ErrInvalidConfiguration)
	}

	return &Model{
		c:        c,
		tol:      tol,
		maxSteps: maxSteps,
		seed:     seed,
		kernel:   kernel,
		rng:      rand.New(rand.NewSource(int64(seed))),
		fitting:  abool.New(),
	}, nil
}

// NewModelFromParameter builds the kernel described by param and the model around it
func NewModelFromParameter(param *Parameter) (*Model, error) {
	if err := param.Validate(); err != nil {
		return nil, err
	}
	kernel, err := param.NewKernel()
	if err != nil {
		return nil, err
	}
	return NewModel(param.C, param.Tol, kernel, param.MaxSteps, param.Seed)
}

// Fit trains the model on x (N rows of M features) and y (N labels in {-1, +1}).
// Any previous training result is replaced. Shape and label errors are reported
// before the model is touched.
func (m *Model) Fit(x [][]float64, y []float64) error {
	if !m.fitting.SetToIf(false, true) {
		return ErrConcurrentFit
	}
	defer m.fitting.UnSet()

	numFeatures, err := checkTrainingShape(x, y)
	if err != nil {
		return err
	}
	if err := checkLabels(y); err != nil {
		return err
	}

	logger.Debug().
		Int("samples", len(x)).
		Int("features", numFeatures).
		Str("kernel", m.kernel.Type().Name()).
		Uint("max_steps", m.maxSteps).
		Msg("fitting")

	start := time.Now()
	m.rng.Seed(int64(m.seed))
	s := newSolver(x, y, m.c, m.tol, m.kernel, m.rng)
	s.solve(m.maxSteps)

	m.compact(s, numFeatures)
	m.stats.Duration = time.Since(start)

	level := zerolog.InfoLevel
	if s.state == StateExhausted {
		level = zerolog.WarnLevel
	}
	logger.WithLevel(level).
		Int("passes", m.stats.Passes).
		Int("steps", m.stats.Steps).
		Int("nSV", m.stats.NumSupportVectors).
		Int("nBSV", m.stats.NumBoundSupportVectors).
		Float64("bias", m.bias).
		Str("state", m.stats.State.String()).
		Msg("optimization finished")

	return nil
}

// compact keeps the examples with a non-zero multiplier as the support set and
// drops the rest of the solver state.
func (m *Model) compact(s *solver, numFeatures int) {
	var supportVectors [][]float64
	var supportLabels, alphas []float64
	nBSV := 0

	for i, a := range s.alpha {
		if a == 0 {
			continue
		}
		sv := make([]float64, numFeatures)
		copy(sv, s.x[i])
		supportVectors = append(supportVectors, sv)
		supportLabels = append(supportLabels, s.y[i])
		alphas = append(alphas, a)
		if a == m.c {
			nBSV++
		}
	}

	m.fitted = true
	m.numFeatures = numFeatures
	m.supportVectors = supportVectors
	m.supportLabels = supportLabels
	m.alphas = alphas
	m.bias = s.b

	m.stats = s.stats
	m.stats.NumSamples = len(s.x)
	m.stats.NumSupportVectors = len(alphas)
	m.stats.NumBoundSupportVectors = nBSV
}

// FitPredict trains on x, y and returns the predictions for x
func (m *Model) FitPredict(x [][]float64, y []float64) ([]float64, error) {
	if err := m.Fit(x, y); err != nil {
		return nil, err
	}
	return m.Predict(x)
}

// Predict returns -1 for a negative decision value and +1 otherwise; an exact
// zero is resolved to +1.
func (m *Model) Predict(x [][]float64) ([]float64, error) {
	values, err := m.DecisionFunction(x)
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		if v < 0 {
			values[i] = -1
		} else {
			values[i] = 1
		}
	}
	return values, nil
}

// DecisionFunction returns sum(alpha_i*y_i*k(sv_i, x)) - b for every row of x.
// Without support vectors every value is -b.
func (m *Model) DecisionFunction(x [][]float64) ([]float64, error) {
	if err := m.checkPredictShape(x); err != nil {
		return nil, err
	}

	values := make([]float64, len(x))
	kvalue := make([]float64, len(m.supportVectors))
	for i, row := range x {
		values[i] = m.decisionValue(row, kvalue)
	}
	return values, nil
}

func (m *Model) decisionValue(row []float64, kvalue []float64) float64 {
	kernelRow(m.kernel, m.supportVectors, row, kvalue)

	var sum float64
	for j, k := range kvalue {
		sum += m.alphas[j] * m.supportLabels[j] * k
	}
	return sum - m.bias
}

func (m *Model) checkPredictShape(x [][]float64) error {
	if !m.fitted {
		return nil
	}
	for i, row := range x {
		if len(row) != m.numFeatures {
			return fmt.Errorf("row %d has %d features, model was trained on %d: %w", i, len(row), m.numFeatures, ErrShapeMismatch)
		}
	}
	return nil
}

// checkTrainingShape returns the common row width of x
func checkTrainingShape(x [][]float64, y []float64) (int, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d samples but %d labels: %w", len(x), len(y), ErrShapeMismatch)
	}
	if len(x) == 0 {
		return 0, fmt.Errorf("no samples: %w", ErrShapeMismatch)
	}
	n := len(x[0])
	if n == 0 {
		return 0, fmt.Errorf("samples have no features: %w", ErrShapeMismatch)
	}
	for i, xi := range x {
		if len(xi) != n {
			return 0, fmt.Errorf("row %d has %d features, row 0 has %d: %w", i, len(xi), n, ErrShapeMismatch)
		}
	}
	return n, nil
}

func checkLabels(y []float64) error {
	for i, v := range y {
		if v != -1 && v != 1 {
			return fmt.Errorf("label %g at row %d: %w", v, i, ErrInvalidLabel)
		}
	}
	return nil
}

// C is the box constraint
func (m *Model) C() float64 {
	return m.c
}

// Tol is the KKT tolerance
func (m *Model) Tol() float64 {
	return m.tol
}

// MaxSteps is the outer pass budget
func (m *Model) MaxSteps() uint {
	return m.maxSteps
}

// Seed is the shuffle seed
func (m *Model) Seed() uint64 {
	return m.seed
}

// Kernel returns the kernel owned by the model
func (m *Model) Kernel() Kernel {
	return m.kernel
}

// IsFitted reports whether Fit completed or the model was loaded from a file
func (m *Model) IsFitted() bool {
	return m.fitted
}

// NumFeatures is the width of the training rows
func (m *Model) NumFeatures() int {
	return m.numFeatures
}

// Bias is the threshold b of f(x) = sum(alpha_i*y_i*k(sv_i, x)) - b
func (m *Model) Bias() float64 {
	return m.bias
}

// Alphas returns a copy of the non-zero multipliers, aligned with SupportVectors
func (m *Model) Alphas() []float64 {
	return append([]float64(nil), m.alphas...)
}

// SupportLabels returns a copy of the labels of the support vectors
func (m *Model) SupportLabels() []float64 {
	return append([]float64(nil), m.supportLabels...)
}

// SupportVectors returns a deep copy of the support vectors
func (m *Model) SupportVectors() [][]float64 {
	ret := make([][]float64, len(m.supportVectors))
	for i, sv := range m.supportVectors {
		ret[i] = append([]float64(nil), sv...)
	}
	return ret
}

// NumSupportVectors is the size of the support set
func (m *Model) NumSupportVectors() int {
	return len(m.alphas)
}

// Stats describes the last Fit
func (m *Model) Stats() TrainingStats {
	return m.stats
}

// Weights returns the primal weight vector sum(alpha_i*y_i*sv_i) for a linear
// kernel, so that f(x) = <w, x> - b. It returns nil for the other kernels.
func (m *Model) Weights() []float64 {
	if m.kernel.Type() != LINEAR || !m.fitted {
		return nil
	}
	w := make([]float64, m.numFeatures)
	for i, sv := range m.supportVectors {
		axpy(m.alphas[i]*m.supportLabels[i], sv, w)
	}
	return w
}
