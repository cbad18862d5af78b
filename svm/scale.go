package svm

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Scaling maps every column linearly from [Min[j], Max[j]] onto [0, 1].
// Constant columns are mapped to 0.
type Scaling struct {
	Min []float64
	Max []float64
}

// ScaleColumns computes the column ranges of x and rescales x in place
func ScaleColumns(x [][]float64) (*Scaling, error) {
	s := FitScaling(x)
	if err := s.Apply(x); err != nil {
		return nil, err
	}
	return s, nil
}

// FitScaling computes the column ranges of x without changing it
func FitScaling(x [][]float64) *Scaling {
	if len(x) == 0 {
		return &Scaling{}
	}
	n := len(x[0])
	s := &Scaling{
		Min: append([]float64(nil), x[0]...),
		Max: append([]float64(nil), x[0]...),
	}
	for _, row := range x[1:] {
		for j := 0; j < n && j < len(row); j++ {
			if row[j] < s.Min[j] {
				s.Min[j] = row[j]
			}
			if row[j] > s.Max[j] {
				s.Max[j] = row[j]
			}
		}
	}
	return s
}

// Apply rescales x in place with the stored ranges
func (s *Scaling) Apply(x [][]float64) error {
	for i, row := range x {
		if len(row) != len(s.Min) {
			return fmt.Errorf("row %d has %d features, scaling has %d: %w", i, len(row), len(s.Min), ErrShapeMismatch)
		}
	}
	for _, row := range x {
		for j, v := range row {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				row[j] = 0
				continue
			}
			row[j] = (v - s.Min[j]) / span
		}
	}
	return nil
}

// SaveScaling writes the ranges in the svm-scale range file layout:
// "x", the target interval, then one "index min max" line per column.
func SaveScaling(w io.Writer, s *Scaling) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "x\n0 1\n")
	for j := range s.Min {
		fmt.Fprintf(bw, "%d %s %s\n", j+1, formatFloat(s.Min[j]), formatFloat(s.Max[j]))
	}
	return bw.Flush()
}

// LoadScaling reads a range file written by SaveScaling
func LoadScaling(r io.Reader) (*Scaling, error) {
	scanner := bufio.NewScanner(r)
	s := &Scaling{}
	lineNr := 0

	for scanner.Scan() {
		lineNr++
		fields := strings.Fields(scanner.Text())
		switch {
		case lineNr == 1:
			if len(fields) != 1 || fields[0] != "x" {
				return nil, fmt.Errorf("range file must start with \"x\": %w", ErrDataFormat)
			}
			continue
		case lineNr == 2:
			continue
		case len(fields) == 0:
			continue
		case len(fields) != 3:
			return nil, fmt.Errorf("range line %d: %w", lineNr, ErrDataFormat)
		}

		idx, err := strconv.Atoi(fields[0])
		if err != nil || idx != len(s.Min)+1 {
			return nil, fmt.Errorf("range line %d: index %q out of order: %w", lineNr, fields[0], ErrDataFormat)
		}
		lo, err1 := strconv.ParseFloat(fields[1], 64)
		hi, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("range line %d: %w", lineNr, ErrDataFormat)
		}
		s.Min = append(s.Min, lo)
		s.Max = append(s.Max, hi)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrDataFormat)
	}
	if lineNr == 0 {
		return nil, fmt.Errorf("empty range file: %w", ErrDataFormat)
	}
	return s, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
