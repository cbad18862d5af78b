package svm

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SetLogger(zerolog.Nop())
}

// createClusters returns 2*n points drawn around (2, 2) labelled +1 and around
// (-2, -2) labelled -1.
func createClusters(seed int64, n int) ([][]float64, []float64) {
	random := rand.New(rand.NewSource(seed))
	x := make([][]float64, 0, 2*n)
	y := make([]float64, 0, 2*n)
	for _, center := range []float64{2, -2} {
		label := 1.0
		if center < 0 {
			label = -1
		}
		for i := 0; i < n; i++ {
			x = append(x, []float64{center + 0.5*random.NormFloat64(), center + 0.5*random.NormFloat64()})
			y = append(y, label)
		}
	}
	return x, y
}

// createOverlapping returns points whose label is a noisy function of the first
// feature, so that no kernel separates them exactly.
func createOverlapping(seed int64, n int) ([][]float64, []float64) {
	random := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = []float64{random.NormFloat64(), random.NormFloat64()}
		y[i] = -1
		if x[i][0]+0.3*random.NormFloat64() > 0 {
			y[i] = 1
		}
	}
	return x, y
}

func xorData() ([][]float64, []float64) {
	return [][]float64{{1, 1}, {-1, -1}, {1, -1}, {-1, 1}}, []float64{1, 1, -1, -1}
}

func newTestModel(t *testing.T, c float64, kernel Kernel, maxSteps uint, seed uint64) *Model {
	t.Helper()
	model, err := NewModel(c, DefaultTol, kernel, maxSteps, seed)
	require.NoError(t, err)
	return model
}

func newRBF(t *testing.T, gamma float64) Kernel {
	t.Helper()
	kernel, err := NewRBFKernel(gamma)
	require.NoError(t, err)
	return kernel
}

func TestNewModelValidation(t *testing.T) {
	_, err := NewModel(0, DefaultTol, NewLinearKernel(), 10, 1)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewModel(1, -1, NewLinearKernel(), 10, 1)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewModel(math.NaN(), DefaultTol, NewLinearKernel(), 10, 1)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewModel(1, DefaultTol, nil, 10, 1)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	model, err := NewModel(2, 1e-4, NewLinearKernel(), 10, 7)
	require.NoError(t, err)
	assert.Equal(t, 2.0, model.C())
	assert.Equal(t, 1e-4, model.Tol())
	assert.Equal(t, uint(10), model.MaxSteps())
	assert.Equal(t, uint64(7), model.Seed())
	assert.False(t, model.IsFitted())
}

func TestNewModelFromParameter(t *testing.T) {
	param := NewParameter(RBF, 1, DefaultTol, 100, 3)
	_, err := NewModelFromParameter(param)
	assert.ErrorIs(t, err, ErrInvalidConfiguration, "rbf without gamma")

	param.Gamma = 0.5
	model, err := NewModelFromParameter(param)
	require.NoError(t, err)
	assert.Equal(t, RBF, model.Kernel().Type())
	assert.Equal(t, 0.5, model.Kernel().Params().Gamma)
}

func TestFitSeparableClusters(t *testing.T) {
	for ds := int64(0); ds < 10; ds++ {
		x, y := createClusters(ds, 20)
		for seed := uint64(0); seed < 3; seed++ {
			model := newTestModel(t, 1, NewLinearKernel(), 100, seed)

			predicted, err := model.FitPredict(x, y)
			require.NoError(t, err)
			assert.Equal(t, 1.0, Accuracy(predicted, y), "dataset %d seed %d", ds, seed)
			assert.Equal(t, StateConverged, model.Stats().State)
		}
	}
}

func TestFitMaxMarginOneDimension(t *testing.T) {
	x := [][]float64{{1}, {2}, {-1}, {-2}}
	y := []float64{1, 1, -1, -1}
	model := newTestModel(t, 10, NewLinearKernel(), 100, DefaultSeed)
	require.NoError(t, model.Fit(x, y))

	assert.Equal(t, 2, model.NumSupportVectors())
	assert.Equal(t, [][]float64{{1}, {-1}}, model.SupportVectors())
	assert.Equal(t, []float64{1, -1}, model.SupportLabels())
	for _, a := range model.Alphas() {
		assert.InDelta(t, 0.5, a, 1e-9)
	}
	assert.InDelta(t, 0, model.Bias(), 1e-9)

	w := model.Weights()
	require.Len(t, w, 1)
	assert.InDelta(t, 1, w[0], 1e-9)

	values, err := model.DecisionFunction([][]float64{{0.5}, {3}})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, values[0], 1e-9)
	assert.InDelta(t, 3, values[1], 1e-9)
}

func TestFitXOR(t *testing.T) {
	x, y := xorData()

	for seed := uint64(0); seed < 10; seed++ {
		linear := newTestModel(t, 1, NewLinearKernel(), 100, seed)
		predicted, err := linear.FitPredict(x, y)
		require.NoError(t, err)
		assert.Less(t, Accuracy(predicted, y), 1.0)

		for _, gamma := range []float64{0.1, 0.5, 1} {
			rbf := newTestModel(t, 1, newRBF(t, gamma), 100, seed)
			predicted, err := rbf.FitPredict(x, y)
			require.NoError(t, err)
			assert.Equal(t, y, predicted, "gamma %g seed %d", gamma, seed)
		}
	}
}

func TestFitBoxConstraint(t *testing.T) {
	x, y := createOverlapping(7, 60)
	kernels := []Kernel{NewLinearKernel(), newRBF(t, 0.5)}
	poly, err := NewPolynomialKernel(2, 0.5, 1)
	require.NoError(t, err)
	sigmoid, err := NewSigmoidKernel(0.5, -1)
	require.NoError(t, err)
	kernels = append(kernels, poly, sigmoid)

	for _, kernel := range kernels {
		for _, c := range []float64{0.1, 1, 10} {
			model := newTestModel(t, c, kernel, 200, 3)
			require.NoError(t, model.Fit(x, y))

			alphas := model.Alphas()
			assert.NotEmpty(t, alphas)
			assert.LessOrEqual(t, len(alphas), len(x))
			for _, a := range alphas {
				assert.Greater(t, a, 0.0, "%v C=%g", kernel.Type(), c)
				assert.LessOrEqual(t, a, c, "%v C=%g", kernel.Type(), c)
			}

			var sum float64
			for i, a := range alphas {
				sum += a * model.SupportLabels()[i]
			}
			assert.InDelta(t, 0, sum, 1e-6, "sum(alpha*y) for %v C=%g", kernel.Type(), c)

			stats := model.Stats()
			assert.Equal(t, len(x), stats.NumSamples)
			assert.Equal(t, len(alphas), stats.NumSupportVectors)
			assert.LessOrEqual(t, stats.NumBoundSupportVectors, stats.NumSupportVectors)
			assert.Positive(t, stats.KernelEvaluations)
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := createOverlapping(11, 50)

	first := newTestModel(t, 1, newRBF(t, 0.5), 200, 42)
	second := newTestModel(t, 1, newRBF(t, 0.5), 200, 42)
	require.NoError(t, first.Fit(x, y))
	require.NoError(t, second.Fit(x, y))

	assert.Equal(t, first.Alphas(), second.Alphas())
	assert.Equal(t, first.Bias(), second.Bias())
	assert.Equal(t, first.SupportVectors(), second.SupportVectors())
	assert.Equal(t, first.Fingerprint(), second.Fingerprint())

	// fitting the same model again replays the same trace
	before := first.Alphas()
	require.NoError(t, first.Fit(x, y))
	if diff := cmp.Diff(before, first.Alphas(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("refit changed the multipliers (-before +after):\n%s", diff)
	}
}

func TestPredictIsIdempotent(t *testing.T) {
	x, y := createClusters(5, 15)
	model := newTestModel(t, 1, newRBF(t, 0.5), 100, 1)
	require.NoError(t, model.Fit(x, y))

	first, err := model.DecisionFunction(x)
	require.NoError(t, err)
	second, err := model.DecisionFunction(x)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	predicted, err := model.Predict(x)
	require.NoError(t, err)
	for i, v := range first {
		if v < 0 {
			assert.Equal(t, -1.0, predicted[i])
		} else {
			assert.Equal(t, 1.0, predicted[i])
		}
	}
}

func TestFitSingleClass(t *testing.T) {
	model := newTestModel(t, 1, NewLinearKernel(), 100, 1)
	require.NoError(t, model.Fit([][]float64{{1, 2}, {3, 4}}, []float64{1, 1}))

	assert.Zero(t, model.NumSupportVectors())
	assert.Equal(t, 0.0, model.Bias())

	values, err := model.DecisionFunction([][]float64{{5, 6}, {-1, 0}})
	require.NoError(t, err)
	assert.Equal(t, []float64{-model.Bias(), -model.Bias()}, values)

	predicted, err := model.Predict([][]float64{{5, 6}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, predicted, "a zero decision value predicts +1")
}

func TestFitDuplicatePoints(t *testing.T) {
	x := [][]float64{{1, 1}, {1, 1}, {-1, -1}, {-1, -1}, {2, 2}}
	y := []float64{1, 1, -1, -1, 1}

	for seed := uint64(0); seed < 5; seed++ {
		model := newTestModel(t, 1, NewLinearKernel(), 100, seed)
		predicted, err := model.FitPredict(x, y)
		require.NoError(t, err)
		assert.Equal(t, y, predicted)
		assert.Equal(t, StateConverged, model.Stats().State)

		values, err := model.DecisionFunction([][]float64{{1, 1}, {-1, -1}})
		require.NoError(t, err)
		assert.InDelta(t, 1, values[0], 1e-3)
		assert.InDelta(t, -1, values[1], 1e-3)
	}
}

func TestFitShapeMismatch(t *testing.T) {
	x, y := createClusters(1, 10)
	model := newTestModel(t, 1, NewLinearKernel(), 100, 1)
	require.NoError(t, model.Fit(x, y))
	fingerprint := model.Fingerprint()

	assert.ErrorIs(t, model.Fit(x, y[:5]), ErrShapeMismatch)
	assert.ErrorIs(t, model.Fit(nil, nil), ErrShapeMismatch)
	assert.ErrorIs(t, model.Fit([][]float64{{}, {}}, []float64{1, -1}), ErrShapeMismatch)
	assert.ErrorIs(t, model.Fit([][]float64{{1, 2}, {3}}, []float64{1, -1}), ErrShapeMismatch)
	assert.Equal(t, fingerprint, model.Fingerprint(), "failed fit must not touch the model")

	_, err := model.Predict([][]float64{{1, 2, 3}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = model.DecisionFunction([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFitInvalidLabel(t *testing.T) {
	model := newTestModel(t, 1, NewLinearKernel(), 100, 1)
	err := model.Fit([][]float64{{1}, {2}}, []float64{0, 1})
	assert.ErrorIs(t, err, ErrInvalidLabel)
	assert.False(t, model.IsFitted())

	y := []float64{0, 1}
	assert.Equal(t, 1, NormalizeLabels(y))
	assert.NoError(t, model.Fit([][]float64{{-1}, {1}}, y))
}

func TestFitConcurrent(t *testing.T) {
	x, y := createOverlapping(3, 200)
	model := newTestModel(t, 1, newRBF(t, 0.5), 1000, 1)

	// hold the in-flight flag so the outcome does not depend on scheduling
	model.fitting.Set()
	assert.ErrorIs(t, model.Fit(x, y), ErrConcurrentFit)
	model.fitting.UnSet()

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = model.Fit(x, y)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrConcurrentFit)
		}
	}
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.True(t, model.IsFitted())
}

func TestFitExhausted(t *testing.T) {
	x, y := createClusters(2, 10)

	model := newTestModel(t, 1, NewLinearKernel(), 0, 1)
	require.NoError(t, model.Fit(x, y))
	assert.Equal(t, StateExhausted, model.Stats().State)
	assert.Zero(t, model.Stats().Passes)
	assert.Zero(t, model.NumSupportVectors())

	model = newTestModel(t, 1, NewLinearKernel(), 1, 1)
	require.NoError(t, model.Fit(x, y))
	assert.Equal(t, StateExhausted, model.Stats().State)
	assert.Equal(t, 1, model.Stats().Passes)
	for _, a := range model.Alphas() {
		assert.Greater(t, a, 0.0)
		assert.LessOrEqual(t, a, 1.0)
	}
}

func TestWeightsOnlyForLinear(t *testing.T) {
	x, y := createClusters(4, 10)

	rbf := newTestModel(t, 1, newRBF(t, 0.5), 100, 1)
	require.NoError(t, rbf.Fit(x, y))
	assert.Nil(t, rbf.Weights())

	linear := newTestModel(t, 1, NewLinearKernel(), 100, 1)
	assert.Nil(t, linear.Weights(), "not fitted")
	require.NoError(t, linear.Fit(x, y))

	w := linear.Weights()
	values, err := linear.DecisionFunction(x)
	require.NoError(t, err)
	for i, row := range x {
		assert.InDelta(t, dot(w, row)-linear.Bias(), values[i], 1e-9)
	}
}

func TestSupportVectorsAreCopies(t *testing.T) {
	x, y := createClusters(6, 10)
	model := newTestModel(t, 1, NewLinearKernel(), 100, 1)
	require.NoError(t, model.Fit(x, y))
	before, err := model.DecisionFunction(x)
	require.NoError(t, err)

	for _, row := range x {
		row[0] = 100
	}
	sv := model.SupportVectors()
	sv[0][0] = -100
	model.Alphas()[0] = 50

	after, err := model.DecisionFunction(createClustersRows(6, 10))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func createClustersRows(seed int64, n int) [][]float64 {
	x, _ := createClusters(seed, n)
	return x
}
