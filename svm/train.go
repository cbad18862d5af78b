package svm

import (
	"fmt"
	"os"
	"time"
)

// Training is the struct command to hold
type Training struct {
	FindC           bool
	CSpecified      bool
	CrossValidation bool
	Scale           bool
	InputFilename   string
	ModelFilename   string
	Format          string
	NrFold          int
	Param           *Parameter
	Prob            *Problem
	Scaling         *Scaling
}

// NewTraining creates a new training type
func NewTraining(findC bool, cSpecified bool, crossValidation bool, scale bool, inputFile string, outputFile string, format string, nrFold int, param *Parameter) *Training {
	return &Training{FindC: findC, CSpecified: cSpecified, CrossValidation: crossValidation, Scale: scale, InputFilename: inputFile, ModelFilename: outputFile, Format: format, NrFold: nrFold, Param: param}
}

// RangeFilename is where the column ranges are stored next to the model
func (t *Training) RangeFilename() string {
	return t.ModelFilename + ".range"
}

// ReadProblem reads the input file into the training problem field. Labels 0
// are mapped to -1 and the columns are rescaled when Scale is set.
func (t *Training) ReadProblem() error {
	f, err := os.Open(t.InputFilename)
	if err != nil {
		return fmt.Errorf("error while opening file %s: %w", t.InputFilename, err)
	}
	defer f.Close()

	prob, err := ReadProblem(f, t.Format)
	if err != nil {
		return fmt.Errorf("%s: %w", t.InputFilename, err)
	}
	if changed := NormalizeLabels(prob.Y); changed > 0 {
		logger.Info().Int("labels", changed).Msg("mapped label 0 to -1")
	}
	if t.Scale {
		if t.Scaling, err = ScaleColumns(prob.X); err != nil {
			return err
		}
	}

	logger.Info().
		Str("file", t.InputFilename).
		Int("l", prob.L).
		Int("n", prob.N).
		Msg("read problem")
	t.Prob = prob
	return nil
}

// DoFindParameterC searches for the best parameters for C
func (t *Training) DoFindParameterC() (*ParameterSearchResult, error) {
	startC := -1.0
	if t.CSpecified {
		startC = t.Param.C
	}

	logger.Info().Int("folds", t.NrFold).Msg("doing parameter search with cross validation")
	result, err := FindParameterC(t.Prob, t.Param, t.NrFold, startC, DefaultMaxC)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Float64("best_C", result.BestC()).
		Float64("cv_accuracy", 100.0*result.BestRate()).
		Msg("parameter search finished")
	return result, nil
}

// DoCrossValidation does just that and returns the accuracy
func (t *Training) DoCrossValidation() (float64, error) {
	target := make([]float64, t.Prob.L)

	start := time.Now()
	if err := CrossValidation(t.Prob, t.Param, t.NrFold, target); err != nil {
		return 0, err
	}

	accuracy := Accuracy(target, t.Prob.Y)
	logger.Info().
		Dur("time", time.Since(start)).
		Float64("accuracy", 100.0*accuracy).
		Msg("cross validation finished")
	return accuracy, nil
}

// DoTrain fits a model on the whole problem and writes it, together with the
// column ranges when Scale is set, if ModelFilename is not empty.
func (t *Training) DoTrain() (*Model, error) {
	model, err := NewModelFromParameter(t.Param)
	if err != nil {
		return nil, err
	}
	if err := model.Fit(t.Prob.X, t.Prob.Y); err != nil {
		return nil, err
	}

	if t.ModelFilename == "" {
		return model, nil
	}
	if err := writeFile(t.ModelFilename, func(f *os.File) error { return SaveModel(f, model) }); err != nil {
		return nil, err
	}
	if t.Scaling != nil {
		if err := writeFile(t.RangeFilename(), func(f *os.File) error { return SaveScaling(f, t.Scaling) }); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("file", t.ModelFilename).
		Uint64("fingerprint", model.Fingerprint()).
		Msg("model saved")
	return model, nil
}

func writeFile(name string, write func(f *os.File) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("unable to create file %s: %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
