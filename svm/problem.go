package svm

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// MaxFeatures bounds the feature index accepted by the readers; rows are dense
const MaxFeatures = 1 << 24

// Dataset formats accepted by ReadProblem
const (
	FormatLibSVM = "libsvm"
	FormatCSV    = "csv"
)

// Problem is a dense training or test set: L rows of N features and one label per row
type Problem struct {
	L int
	N int
	X [][]float64
	Y []float64
}

// NewProblem returns a new problem
func NewProblem(l int, n int, y []float64, x [][]float64) *Problem {
	return &Problem{
		L: l,
		N: n,
		X: x,
		Y: y,
	}
}

// ReadProblem reads a dataset in the given format ("libsvm" or "csv")
func ReadProblem(r io.Reader, format string) (*Problem, error) {
	switch strings.ToLower(format) {
	case FormatLibSVM, "":
		return ReadLibSVM(r)
	case FormatCSV:
		return ReadCSV(r)
	}
	return nil, fmt.Errorf("unknown dataset format %q: %w", format, ErrInvalidConfiguration)
}

type sparseRow struct {
	index []int
	value []float64
}

// ReadLibSVM reads "label index:value ..." lines with 1-based, increasing indices.
// Missing indices are zero in the dense rows. Empty lines and lines starting with
// '#' are skipped.
func ReadLibSVM(r io.Reader) (*Problem, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var vy []float64
	var vx []sparseRow
	maxIndex := 0
	lineNr := 0

	for scanner.Scan() {
		lineNr++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}

		tokens := strings.Fields(line)
		label, err := strconv.ParseFloat(tokens[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: label %q: %w", lineNr, tokens[0], ErrDataFormat)
		}

		row := sparseRow{
			index: make([]int, 0, len(tokens)-1),
			value: make([]float64, 0, len(tokens)-1),
		}
		prev := 0
		for _, t := range tokens[1:] {
			keyVal := strings.SplitN(t, ":", 2)
			if len(keyVal) != 2 {
				return nil, fmt.Errorf("line %d: token %q is not index:value: %w", lineNr, t, ErrDataFormat)
			}

			key, err := strconv.Atoi(keyVal[0])
			if err != nil || key <= prev {
				return nil, fmt.Errorf("line %d: index %q must be an increasing integer >= 1: %w", lineNr, keyVal[0], ErrDataFormat)
			}
			if key > MaxFeatures {
				return nil, fmt.Errorf("line %d: index %d exceeds %d: %w", lineNr, key, MaxFeatures, ErrDataFormat)
			}
			val, err := strconv.ParseFloat(keyVal[1], 64)
			if err != nil || !isFinite(val) {
				return nil, fmt.Errorf("line %d: value %q: %w", lineNr, keyVal[1], ErrDataFormat)
			}

			row.index = append(row.index, key)
			row.value = append(row.value, val)
			prev = key
		}
		if prev > maxIndex {
			maxIndex = prev
		}

		vy = append(vy, label)
		vx = append(vx, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %v: %w", lineNr+1, err, ErrDataFormat)
	}

	return constructProblem(vy, vx, maxIndex), nil
}

func constructProblem(vy []float64, vx []sparseRow, maxIndex int) *Problem {
	l := len(vy)
	x := make([][]float64, l)
	for i, row := range vx {
		x[i] = make([]float64, maxIndex)
		for j, idx := range row.index {
			x[i][idx-1] = row.value[j]
		}
	}
	return NewProblem(l, maxIndex, vy, x)
}

// ReadCSV reads comma separated rows whose last column is the label. A first
// row whose label column is not a number is taken as a header.
func ReadCSV(r io.Reader) (*Problem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var vy []float64
	var vx [][]float64
	n := -1
	lineNr := 0

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		lineNr++
		if err != nil {
			return nil, fmt.Errorf("record %d: %v: %w", lineNr, err, ErrDataFormat)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("record %d: need at least one feature and a label: %w", lineNr, ErrDataFormat)
		}

		last := len(record) - 1
		label, err := strconv.ParseFloat(strings.TrimSpace(record[last]), 64)
		if err != nil {
			if lineNr == 1 {
				continue
			}
			return nil, fmt.Errorf("record %d: label %q: %w", lineNr, record[last], ErrDataFormat)
		}

		row := make([]float64, last)
		for j := 0; j < last; j++ {
			if row[j], err = strconv.ParseFloat(strings.TrimSpace(record[j]), 64); err != nil || !isFinite(row[j]) {
				return nil, fmt.Errorf("record %d: column %d value %q: %w", lineNr, j+1, record[j], ErrDataFormat)
			}
		}

		vy = append(vy, label)
		vx = append(vx, row)
		n = last
	}

	if n < 0 {
		n = 0
	}
	return NewProblem(len(vy), n, vy, vx), nil
}

// Resize pads every row with zeros or drops trailing features so that the problem
// has n columns. Used to read libsvm test files against a model of known width.
func (p *Problem) Resize(n int) {
	for i, row := range p.X {
		switch {
		case len(row) > n:
			p.X[i] = row[:n]
		case len(row) < n:
			padded := make([]float64, n)
			copy(padded, row)
			p.X[i] = padded
		}
	}
	p.N = n
}

// NormalizeLabels maps the label 0 to -1 in place, so that {0, 1} datasets can be
// trained. It returns the number of labels changed.
func NormalizeLabels(y []float64) int {
	changed := 0
	for i, v := range y {
		if v == 0 {
			y[i] = -1
			changed++
		}
	}
	return changed
}
