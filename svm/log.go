package svm

import (
	"github.com/rs/zerolog"

	svmlogger "limhan.info/svm-go/logger"
)

var logger = svmlogger.NewLogger("svm")

// SetLogger replaces the package logger, e.g. with zerolog.Nop() in quiet mode.
func SetLogger(l zerolog.Logger) {
	logger = l
}
