package svm

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxC is the upper end of the C search
const DefaultMaxC = 1024

// ParameterSearchResult stores the result of the parameter search
type ParameterSearchResult struct {
	bestC    float64
	bestRate float64
}

// NewParameterSearchResult returns a new instance of this struct
func NewParameterSearchResult(bestC float64, bestRate float64) *ParameterSearchResult {
	return &ParameterSearchResult{
		bestC:    bestC,
		bestRate: bestRate,
	}
}

// BestC is the C with the highest cross validation accuracy
func (r *ParameterSearchResult) BestC() float64 {
	return r.bestC
}

// BestRate is the cross validation accuracy reached with BestC, in [0, 1]
func (r *ParameterSearchResult) BestRate() float64 {
	return r.bestRate
}

type foldSplit struct {
	perm      []int
	foldStart []int
}

// CrossValidation trains nrFold models, each on all but one fold, and stores the
// prediction of the held out rows in target. Folds are stratified by label and
// drawn with param.Seed. The fold models are independent and are fitted
// concurrently.
func CrossValidation(prob *Problem, param *Parameter, nrFold int, target []float64) error {
	if len(target) != prob.L {
		return fmt.Errorf("target has %d entries for %d rows: %w", len(target), prob.L, ErrShapeMismatch)
	}
	split, err := newFoldSplit(prob, nrFold, param.Seed)
	if err != nil {
		return err
	}
	return split.run(prob, param, target)
}

// FindParameterC runs cross validation for C = startC, 2*startC, ... up to maxC
// and keeps the C with the best accuracy. A startC <= 0 starts from 2^-5.
// All values of C are evaluated on the same folds.
func FindParameterC(prob *Problem, param *Parameter, nrFold int, startC float64, maxC float64) (*ParameterSearchResult, error) {
	split, err := newFoldSplit(prob, nrFold, param.Seed)
	if err != nil {
		return nil, err
	}
	if startC <= 0 {
		startC = math.Pow(2, -5)
	}
	if maxC < startC {
		return nil, fmt.Errorf("max C %g < start C %g: %w", maxC, startC, ErrInvalidConfiguration)
	}

	target := make([]float64, prob.L)
	bestC := math.NaN()
	bestRate := 0.0

	for c := startC; c <= maxC; c *= 2 {
		param1 := param.WithC(c)
		if err := split.run(prob, param1, target); err != nil {
			return nil, err
		}

		rate := Accuracy(target, prob.Y)
		logger.Info().
			Float64("C", c).
			Float64("accuracy", rate).
			Msg("parameter search step")

		if math.IsNaN(bestC) || rate > bestRate {
			bestC = c
			bestRate = rate
		}
	}

	return NewParameterSearchResult(bestC, bestRate), nil
}

// Accuracy is the fraction of predicted equal to actual
func Accuracy(predicted []float64, actual []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	correct := 0
	for i := range actual {
		if predicted[i] == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

// newFoldSplit groups the rows by label, shuffles every group and deals each
// group evenly over the folds. With as many folds as rows it falls back to a
// shuffled leave-one-out split.
func newFoldSplit(prob *Problem, nrFold int, seed uint64) (*foldSplit, error) {
	l := prob.L
	if nrFold < 2 {
		return nil, fmt.Errorf("n-fold cross validation: n must be >= 2, got %d: %w", nrFold, ErrInvalidConfiguration)
	}
	if l == 0 || len(prob.X) != l || len(prob.Y) != l {
		return nil, fmt.Errorf("problem has %d rows, %d samples and %d labels: %w", l, len(prob.X), len(prob.Y), ErrShapeMismatch)
	}
	if nrFold > l {
		nrFold = l
		logger.Warn().Int("folds", nrFold).Msg("# folds > # data, using leave-one-out cross validation")
	}

	split := &foldSplit{
		perm:      make([]int, 0, l),
		foldStart: make([]int, nrFold+1),
	}
	random := rand.New(rand.NewSource(int64(seed)))

	// leave-one-out cannot be stratified
	if nrFold == l {
		for i := 0; i < l; i++ {
			split.perm = append(split.perm, i)
		}
		random.Shuffle(l, func(i, j int) {
			swapIntArray(split.perm, i, j)
		})
		for i := 0; i <= nrFold; i++ {
			split.foldStart[i] = i * l / nrFold
		}
		return split, nil
	}

	var labels []float64
	groups := make(map[float64][]int)
	for i, y := range prob.Y {
		if _, ok := groups[y]; !ok {
			labels = append(labels, y)
		}
		groups[y] = append(groups[y], i)
	}

	for _, y := range labels {
		index := groups[y]
		random.Shuffle(len(index), func(i, j int) {
			swapIntArray(index, i, j)
		})
	}

	for i := 0; i < nrFold; i++ {
		split.foldStart[i] = len(split.perm)
		for _, y := range labels {
			index := groups[y]
			count := len(index)
			split.perm = append(split.perm, index[i*count/nrFold:(i+1)*count/nrFold]...)
		}
	}
	split.foldStart[nrFold] = l

	return split, nil
}

func (s *foldSplit) run(prob *Problem, param *Parameter, target []float64) error {
	nrFold := len(s.foldStart) - 1
	l := len(s.perm)

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < nrFold; i++ {
		begin := s.foldStart[i]
		end := s.foldStart[i+1]

		g.Go(func() error {
			subL := l - (end - begin)
			subX := make([][]float64, 0, subL)
			subY := make([]float64, 0, subL)
			for j := 0; j < l; j++ {
				if j >= begin && j < end {
					continue
				}
				subX = append(subX, prob.X[s.perm[j]])
				subY = append(subY, prob.Y[s.perm[j]])
			}

			subModel, err := NewModelFromParameter(param)
			if err != nil {
				return err
			}
			if err := subModel.Fit(subX, subY); err != nil {
				return err
			}

			heldOut := make([][]float64, 0, end-begin)
			for j := begin; j < end; j++ {
				heldOut = append(heldOut, prob.X[s.perm[j]])
			}
			predicted, err := subModel.Predict(heldOut)
			if err != nil {
				return err
			}
			for j := begin; j < end; j++ {
				target[s.perm[j]] = predicted[j-begin]
			}
			return nil
		})
	}

	return g.Wait()
}
