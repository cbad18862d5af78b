package svm

import "errors"

// Errors returned by this package. Callers match them with errors.Is; most call
// sites wrap them with the offending value.
var (
	// ErrInvalidConfiguration is returned for unknown kernels and out of range hyperparameters.
	ErrInvalidConfiguration = errors.New("svm: invalid configuration")

	// ErrShapeMismatch is returned when sample counts or feature widths disagree.
	ErrShapeMismatch = errors.New("svm: shape mismatch")

	// ErrInvalidLabel is returned by Fit for a label other than -1 or +1.
	ErrInvalidLabel = errors.New("svm: labels must be -1 or +1")

	// ErrConcurrentFit is returned when Fit is called on a model that is already fitting.
	ErrConcurrentFit = errors.New("svm: fit already in progress")

	// ErrModelFormat is returned by LoadModel for a malformed model file.
	ErrModelFormat = errors.New("svm: malformed model file")

	// ErrDataFormat is returned by the dataset readers for a malformed line.
	ErrDataFormat = errors.New("svm: malformed data")
)
