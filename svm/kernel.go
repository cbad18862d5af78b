package svm

import (
	"fmt"
	"math"
)

// Kernel computes a symmetric similarity between two feature vectors of equal width.
// The set of implementations is closed: LinearKernel, PolynomialKernel, RBFKernel and
// SigmoidKernel.
type Kernel interface {
	Compute(x1 []float64, x2 []float64) float64
	Type() *KernelType
	Params() KernelParams

	sealed()
}

// KernelParams carries the numeric parameters of every kernel family.
// Fields a family does not use are ignored.
type KernelParams struct {
	Degree int
	Gamma  float64
	Coef0  float64
}

// LinearKernel is the plain inner product
type LinearKernel struct{}

// PolynomialKernel is (Gamma*<x1,x2> + Coef0)^Degree
type PolynomialKernel struct {
	Degree int
	Gamma  float64
	Coef0  float64
}

// RBFKernel is exp(-Gamma*|x1-x2|^2)
type RBFKernel struct {
	Gamma float64
}

// SigmoidKernel is tanh(Gamma*<x1,x2> + Coef0)
type SigmoidKernel struct {
	Gamma float64
	Coef0 float64
}

// NewKernel builds the kernel registered under name. Unknown names and invalid
// parameters fail with ErrInvalidConfiguration; no other family is substituted.
func NewKernel(name string, params KernelParams) (Kernel, error) {
	kernelType := GetKernelTypeByName(name)
	if kernelType == nil {
		return nil, fmt.Errorf("unknown kernel %q: %w", name, ErrInvalidConfiguration)
	}
	return NewKernelOfType(kernelType, params)
}

// NewKernelOfType builds a kernel from an already resolved type.
func NewKernelOfType(kernelType *KernelType, params KernelParams) (Kernel, error) {
	switch kernelType {
	case LINEAR:
		return NewLinearKernel(), nil
	case POLYNOMIAL:
		return NewPolynomialKernel(params.Degree, params.Gamma, params.Coef0)
	case RBF:
		return NewRBFKernel(params.Gamma)
	case SIGMOID:
		return NewSigmoidKernel(params.Gamma, params.Coef0)
	}
	return nil, fmt.Errorf("unknown kernel type %v: %w", kernelType, ErrInvalidConfiguration)
}

// NewLinearKernel returns the linear kernel
func NewLinearKernel() *LinearKernel {
	return &LinearKernel{}
}

// NewPolynomialKernel requires degree >= 1, a finite non-zero gamma and a finite coef0
func NewPolynomialKernel(degree int, gamma float64, coef0 float64) (*PolynomialKernel, error) {
	if degree < 1 {
		return nil, fmt.Errorf("polynomial degree %d < 1: %w", degree, ErrInvalidConfiguration)
	}
	if gamma == 0 {
		return nil, fmt.Errorf("polynomial gamma is not set: %w", ErrInvalidConfiguration)
	}
	if !isFinite(gamma) || !isFinite(coef0) {
		return nil, fmt.Errorf("polynomial gamma %g coef0 %g: %w", gamma, coef0, ErrInvalidConfiguration)
	}
	return &PolynomialKernel{Degree: degree, Gamma: gamma, Coef0: coef0}, nil
}

// NewRBFKernel requires a finite gamma > 0
func NewRBFKernel(gamma float64) (*RBFKernel, error) {
	if !isFinite(gamma) || gamma <= 0 {
		return nil, fmt.Errorf("rbf gamma %g must be > 0: %w", gamma, ErrInvalidConfiguration)
	}
	return &RBFKernel{Gamma: gamma}, nil
}

// RBFKernelFromSigma builds exp(-|x1-x2|^2 / (2*sigma^2))
func RBFKernelFromSigma(sigma float64) (*RBFKernel, error) {
	if !isFinite(sigma) || sigma <= 0 {
		return nil, fmt.Errorf("rbf sigma %g must be > 0: %w", sigma, ErrInvalidConfiguration)
	}
	return NewRBFKernel(1 / (2 * sigma * sigma))
}

// NewSigmoidKernel requires a finite non-zero gamma and a finite coef0
func NewSigmoidKernel(gamma float64, coef0 float64) (*SigmoidKernel, error) {
	if gamma == 0 {
		return nil, fmt.Errorf("sigmoid gamma is not set: %w", ErrInvalidConfiguration)
	}
	if !isFinite(gamma) || !isFinite(coef0) {
		return nil, fmt.Errorf("sigmoid gamma %g coef0 %g: %w", gamma, coef0, ErrInvalidConfiguration)
	}
	return &SigmoidKernel{Gamma: gamma, Coef0: coef0}, nil
}

func (k *LinearKernel) Compute(x1 []float64, x2 []float64) float64 {
	return dot(x1, x2)
}

func (k *LinearKernel) Type() *KernelType { return LINEAR }

func (k *LinearKernel) Params() KernelParams { return KernelParams{} }

func (k *LinearKernel) sealed() {}

func (k *PolynomialKernel) Compute(x1 []float64, x2 []float64) float64 {
	return powi(k.Gamma*dot(x1, x2)+k.Coef0, k.Degree)
}

func (k *PolynomialKernel) Type() *KernelType { return POLYNOMIAL }

func (k *PolynomialKernel) Params() KernelParams {
	return KernelParams{Degree: k.Degree, Gamma: k.Gamma, Coef0: k.Coef0}
}

func (k *PolynomialKernel) sealed() {}

// Compute uses the squared distance of the differences, which stays accurate
// for large magnitude features where the dot product expansion cancels.
func (k *RBFKernel) Compute(x1 []float64, x2 []float64) float64 {
	return math.Exp(-k.Gamma * sqDist(x1, x2))
}

// computeExpanded is |x1|^2 + |x2|^2 - 2<x1,x2> in place of the direct distance.
func (k *RBFKernel) computeExpanded(x1 []float64, x2 []float64) float64 {
	s := nrm2Sq(x1) + nrm2Sq(x2) - 2*dot(x1, x2)
	return math.Exp(-k.Gamma * s)
}

func (k *RBFKernel) Type() *KernelType { return RBF }

func (k *RBFKernel) Params() KernelParams { return KernelParams{Gamma: k.Gamma} }

func (k *RBFKernel) sealed() {}

func (k *SigmoidKernel) Compute(x1 []float64, x2 []float64) float64 {
	return math.Tanh(k.Gamma*dot(x1, x2) + k.Coef0)
}

func (k *SigmoidKernel) Type() *KernelType { return SIGMOID }

func (k *SigmoidKernel) Params() KernelParams {
	return KernelParams{Gamma: k.Gamma, Coef0: k.Coef0}
}

func (k *SigmoidKernel) sealed() {}

// kernelRow fills out[i] = k(rows[i], v)
func kernelRow(k Kernel, rows [][]float64, v []float64, out []float64) {
	for i, row := range rows {
		out[i] = k.Compute(row, v)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
