package svm

import "strings"

// LINEAR : u'v
var LINEAR = NewKernelType(0, "LINEAR", false, false)

// POLYNOMIAL : (gamma*u'v + coef0)^degree
var POLYNOMIAL = NewKernelType(1, "POLYNOMIAL", true, true)

// RBF : exp(-gamma*|u-v|^2)
var RBF = NewKernelType(2, "RBF", true, false)

// SIGMOID : tanh(gamma*u'v + coef0)
var SIGMOID = NewKernelType(3, "SIGMOID", true, true)

var kernelTypeValues = []*KernelType{
	LINEAR,
	POLYNOMIAL,
	RBF,
	SIGMOID,
}

// names accepted by GetKernelTypeByName besides the canonical one
var kernelTypeAliases = map[string]*KernelType{
	"poly": POLYNOMIAL,
}

// KernelType describes which parameters a kernel family uses
type KernelType struct {
	name      string
	id        int
	usesGamma bool
	usesCoef0 bool
}

// NewKernelType returns a new KernelType based on input fields
func NewKernelType(id int, name string, usesGamma bool, usesCoef0 bool) *KernelType {
	return &KernelType{
		id:        id,
		name:      name,
		usesGamma: usesGamma,
		usesCoef0: usesCoef0,
	}
}

// KernelTypeValues gives the list of supported kernel types
func KernelTypeValues() []*KernelType {
	return kernelTypeValues
}

// GetKernelTypeById returns nil for an unknown id
func GetKernelTypeById(id int) *KernelType {
	for _, kernelType := range kernelTypeValues {
		if kernelType.id == id {
			return kernelType
		}
	}
	return nil
}

// GetKernelTypeByName is case insensitive and returns nil for an unknown name
func GetKernelTypeByName(name string) *KernelType {
	name = strings.ToLower(strings.TrimSpace(name))
	if kernelType, ok := kernelTypeAliases[name]; ok {
		return kernelType
	}
	for _, kernelType := range kernelTypeValues {
		if strings.ToLower(kernelType.name) == name {
			return kernelType
		}
	}
	return nil
}

// Id is the numeric identifier used by the command line tools
func (kernelType *KernelType) Id() int {
	return kernelType.id
}

// Name is the identifier written to model files
func (kernelType *KernelType) Name() string {
	return kernelType.name
}

func (kernelType *KernelType) String() string {
	return kernelType.name
}

// UsesGamma reports whether gamma is read by this kernel
func (kernelType *KernelType) UsesGamma() bool {
	return kernelType.usesGamma
}

// UsesCoef0 reports whether coef0 is read by this kernel
func (kernelType *KernelType) UsesCoef0() bool {
	return kernelType.usesCoef0
}
