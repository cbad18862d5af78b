package svm

import (
	"fmt"
	"math"
)

// Defaults used by DefaultParameter and the command line tools
const (
	DefaultC        = 1.0
	DefaultTol      = 1e-3
	DefaultMaxSteps = 1000
	DefaultSeed     = 16
	DefaultDegree   = 3
)

// Parameter contains the hyperparameters for training
type Parameter struct {
	C          float64
	Tol        float64 // KKT tolerance, also scales the minimal step
	MaxSteps   uint    // outer passes, not pairwise steps
	Seed       uint64
	KernelType *KernelType
	Degree     int
	Gamma      float64
	Coef0      float64
}

// NewParameter constructs a Parameter with the default kernel settings for kernelType.
// Gamma defaults to 0 and must be set for RBF, Polynomial and Sigmoid kernels.
func NewParameter(kernelType *KernelType, c float64, tol float64, maxSteps uint, seed uint64) *Parameter {
	parameter := &Parameter{
		KernelType: kernelType,
		C:          c,
		Tol:        tol,
		MaxSteps:   maxSteps,
		Seed:       seed,
		Degree:     DefaultDegree,
	}

	return parameter
}

// DefaultParameter is a linear kernel with C=1, tol=1e-3, 1000 passes and seed 16
func DefaultParameter() *Parameter {
	return NewParameter(LINEAR, DefaultC, DefaultTol, DefaultMaxSteps, DefaultSeed)
}

// Validate checks C, Tol and the kernel parameters
func (p *Parameter) Validate() error {
	if err := validateHyperparameters(p.C, p.Tol); err != nil {
		return err
	}
	if p.KernelType == nil {
		return fmt.Errorf("missing kernel type: %w", ErrInvalidConfiguration)
	}
	_, err := p.NewKernel()
	return err
}

// NewKernel builds the kernel described by the parameter
func (p *Parameter) NewKernel() (Kernel, error) {
	if p.KernelType == nil {
		return nil, fmt.Errorf("missing kernel type: %w", ErrInvalidConfiguration)
	}
	return NewKernelOfType(p.KernelType, KernelParams{Degree: p.Degree, Gamma: p.Gamma, Coef0: p.Coef0})
}

// WithC returns a copy using another C, used by the parameter search
func (p *Parameter) WithC(c float64) *Parameter {
	param := *p
	param.C = c
	return &param
}

func validateHyperparameters(c float64, tol float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return fmt.Errorf("C must be > 0, got %g: %w", c, ErrInvalidConfiguration)
	}
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		return fmt.Errorf("tol must be > 0, got %g: %w", tol, ErrInvalidConfiguration)
	}
	return nil
}
