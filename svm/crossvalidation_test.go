package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clustersProblem(seed int64, n int) *Problem {
	x, y := createClusters(seed, n)
	return NewProblem(len(y), 2, y, x)
}

func TestCrossValidation(t *testing.T) {
	prob := clustersProblem(3, 25)
	param := DefaultParameter()
	target := make([]float64, prob.L)

	require.NoError(t, CrossValidation(prob, param, 5, target))
	for _, v := range target {
		assert.Contains(t, []float64{-1, 1}, v)
	}
	assert.Equal(t, 1.0, Accuracy(target, prob.Y))

	again := make([]float64, prob.L)
	require.NoError(t, CrossValidation(prob, param, 5, again))
	assert.Equal(t, target, again)
}

func TestCrossValidationErrors(t *testing.T) {
	prob := clustersProblem(3, 5)
	param := DefaultParameter()

	assert.ErrorIs(t, CrossValidation(prob, param, 1, make([]float64, prob.L)), ErrInvalidConfiguration)
	assert.ErrorIs(t, CrossValidation(prob, param, 5, make([]float64, 3)), ErrShapeMismatch)

	prob.Y[0] = 2
	assert.ErrorIs(t, CrossValidation(prob, param, 5, make([]float64, prob.L)), ErrInvalidLabel)
}

func TestCrossValidationLeaveOneOut(t *testing.T) {
	prob := clustersProblem(8, 3)

	split, err := newFoldSplit(prob, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6}, split.foldStart)

	target := make([]float64, prob.L)
	require.NoError(t, CrossValidation(prob, DefaultParameter(), 100, target))
	assert.Equal(t, 1.0, Accuracy(target, prob.Y))
}

func TestFoldSplitIsStratified(t *testing.T) {
	y := []float64{1, 1, 1, 1, 1, 1, -1, -1, -1, -1, -1, -1}
	prob := NewProblem(len(y), 1, y, make([][]float64, len(y)))

	split, err := newFoldSplit(prob, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 8, 12}, split.foldStart)

	seen := make(map[int]bool)
	for i := 0; i < 3; i++ {
		positives := 0
		for _, idx := range split.perm[split.foldStart[i]:split.foldStart[i+1]] {
			seen[idx] = true
			if y[idx] > 0 {
				positives++
			}
		}
		assert.Equal(t, 2, positives, "fold %d", i)
	}
	assert.Len(t, seen, len(y))
}

func TestFindParameterC(t *testing.T) {
	prob := clustersProblem(4, 15)

	result, err := FindParameterC(prob, DefaultParameter(), 3, 0.25, 4)
	require.NoError(t, err)
	assert.Contains(t, []float64{0.25, 0.5, 1, 2, 4}, result.BestC())
	assert.Equal(t, 1.0, result.BestRate())

	_, err = FindParameterC(prob, DefaultParameter(), 3, 8, 4)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.0, Accuracy(nil, nil))
	assert.Equal(t, 0.75, Accuracy([]float64{1, 1, -1, 1}, []float64{1, 1, -1, -1}))
}
