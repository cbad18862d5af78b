package svm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SaveModel writes a fitted model in the libsvm text layout: a header of
// "key value" lines, then "SV" and one "alpha*y index:value ..." line per
// support vector. Zero features are omitted.
func SaveModel(w io.Writer, model *Model) error {
	if !model.IsFitted() {
		return fmt.Errorf("model is not fitted: %w", ErrInvalidConfiguration)
	}

	bw := bufio.NewWriter(w)
	kernelType := model.kernel.Type()
	params := model.kernel.Params()

	fmt.Fprintf(bw, "svm_type c_svc\n")
	fmt.Fprintf(bw, "kernel_type %s\n", strings.ToLower(kernelType.Name()))
	if kernelType == POLYNOMIAL {
		fmt.Fprintf(bw, "degree %d\n", params.Degree)
	}
	if kernelType.UsesGamma() {
		fmt.Fprintf(bw, "gamma %s\n", formatFloat(params.Gamma))
	}
	if kernelType.UsesCoef0() {
		fmt.Fprintf(bw, "coef0 %s\n", formatFloat(params.Coef0))
	}

	nPos, nNeg := 0, 0
	for _, y := range model.supportLabels {
		if y > 0 {
			nPos++
		} else {
			nNeg++
		}
	}

	fmt.Fprintf(bw, "nr_class 2\n")
	fmt.Fprintf(bw, "total_sv %d\n", len(model.alphas))
	fmt.Fprintf(bw, "rho %s\n", formatFloat(model.bias))
	fmt.Fprintf(bw, "label 1 -1\n")
	fmt.Fprintf(bw, "nr_sv %d %d\n", nPos, nNeg)
	fmt.Fprintf(bw, "c %s\n", formatFloat(model.c))
	fmt.Fprintf(bw, "tol %s\n", formatFloat(model.tol))
	fmt.Fprintf(bw, "max_steps %d\n", model.maxSteps)
	fmt.Fprintf(bw, "seed %d\n", model.seed)
	fmt.Fprintf(bw, "nr_feature %d\n", model.numFeatures)

	fmt.Fprintf(bw, "SV\n")
	for i, sv := range model.supportVectors {
		bw.WriteString(formatFloat(model.alphas[i] * model.supportLabels[i]))
		for j, v := range sv {
			if v == 0 {
				continue
			}
			fmt.Fprintf(bw, " %d:%s", j+1, formatFloat(v))
		}
		bw.WriteString("\n")
	}

	return bw.Flush()
}

// LoadModel reads a model written by SaveModel. The returned model predicts
// exactly like the saved one and can be fitted again.
func LoadModel(r io.Reader) (*Model, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var kernelType *KernelType
	params := KernelParams{Degree: DefaultDegree}
	c, tol := DefaultC, DefaultTol
	var maxSteps uint64 = DefaultMaxSteps
	var seed uint64 = DefaultSeed
	var bias float64
	totalSV, numFeatures := -1, -1
	sawSV := false
	lineNr := 0

header:
	for scanner.Scan() {
		lineNr++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		switch fields[0] {
		case "SV":
			sawSV = true
			break header
		case "svm_type":
			if len(fields) != 2 || fields[1] != "c_svc" {
				return nil, modelFormatError(lineNr, "only c_svc models are supported")
			}
			continue
		case "nr_class", "label", "nr_sv":
			// informational; two classes are implied by c_svc
			continue
		}

		if len(fields) != 2 {
			return nil, modelFormatError(lineNr, "expected \"key value\"")
		}
		val := fields[1]

		switch fields[0] {
		case "kernel_type":
			if kernelType = GetKernelTypeByName(val); kernelType == nil {
				return nil, modelFormatError(lineNr, fmt.Sprintf("unknown kernel type %q", val))
			}
		case "degree":
			params.Degree, err = strconv.Atoi(val)
		case "gamma":
			params.Gamma, err = strconv.ParseFloat(val, 64)
		case "coef0":
			params.Coef0, err = strconv.ParseFloat(val, 64)
		case "total_sv":
			totalSV, err = strconv.Atoi(val)
		case "rho":
			bias, err = strconv.ParseFloat(val, 64)
		case "c":
			c, err = strconv.ParseFloat(val, 64)
		case "tol":
			tol, err = strconv.ParseFloat(val, 64)
		case "max_steps":
			maxSteps, err = strconv.ParseUint(val, 10, 0)
		case "seed":
			seed, err = strconv.ParseUint(val, 10, 64)
		case "nr_feature":
			numFeatures, err = strconv.Atoi(val)
		default:
			return nil, modelFormatError(lineNr, fmt.Sprintf("unknown text in model file: %q", fields[0]))
		}
		if err != nil {
			return nil, modelFormatError(lineNr, err.Error())
		}
	}

	switch {
	case !sawSV:
		return nil, modelFormatError(lineNr, "missing SV section")
	case kernelType == nil:
		return nil, modelFormatError(lineNr, "missing kernel_type")
	case totalSV < 0:
		return nil, modelFormatError(lineNr, "missing total_sv")
	case numFeatures < 1:
		return nil, modelFormatError(lineNr, "missing nr_feature")
	case numFeatures > MaxFeatures:
		return nil, modelFormatError(lineNr, fmt.Sprintf("nr_feature %d exceeds %d", numFeatures, MaxFeatures))
	}

	kernel, err := NewKernelOfType(kernelType, params)
	if err != nil {
		return nil, modelFormatError(lineNr, err.Error())
	}
	model, err := NewModel(c, tol, kernel, uint(maxSteps), seed)
	if err != nil {
		return nil, modelFormatError(lineNr, err.Error())
	}

	var supportVectors [][]float64
	var supportLabels []float64
	var alphas []float64

	for scanner.Scan() {
		lineNr++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(alphas) == totalSV {
			return nil, modelFormatError(lineNr, fmt.Sprintf("more than total_sv=%d support vectors", totalSV))
		}

		coef, err := strconv.ParseFloat(fields[0], 64)
		if err != nil || coef == 0 || !isFinite(coef) {
			return nil, modelFormatError(lineNr, fmt.Sprintf("coefficient %q", fields[0]))
		}

		sv := make([]float64, numFeatures)
		for _, t := range fields[1:] {
			keyVal := strings.SplitN(t, ":", 2)
			if len(keyVal) != 2 {
				return nil, modelFormatError(lineNr, fmt.Sprintf("token %q is not index:value", t))
			}
			idx, err := strconv.Atoi(keyVal[0])
			if err != nil || idx < 1 || idx > numFeatures {
				return nil, modelFormatError(lineNr, fmt.Sprintf("index %q out of range", keyVal[0]))
			}
			if sv[idx-1], err = strconv.ParseFloat(keyVal[1], 64); err != nil {
				return nil, modelFormatError(lineNr, fmt.Sprintf("value %q", keyVal[1]))
			}
		}

		label := 1.0
		if coef < 0 {
			label = -1
		}
		supportVectors = append(supportVectors, sv)
		supportLabels = append(supportLabels, label)
		alphas = append(alphas, coef*label)
	}
	if err := scanner.Err(); err != nil {
		return nil, modelFormatError(lineNr, err.Error())
	}
	if len(alphas) != totalSV {
		return nil, modelFormatError(lineNr, fmt.Sprintf("expected %d support vectors, found %d", totalSV, len(alphas)))
	}

	model.fitted = true
	model.numFeatures = numFeatures
	model.supportVectors = supportVectors
	model.supportLabels = supportLabels
	model.alphas = alphas
	model.bias = bias
	model.stats = TrainingStats{NumSupportVectors: totalSV}

	return model, nil
}

func modelFormatError(lineNr int, msg string) error {
	return fmt.Errorf("line %d: %s: %w", lineNr, msg, ErrModelFormat)
}
