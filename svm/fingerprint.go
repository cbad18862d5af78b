package svm

import (
	"encoding/binary"
	"math"

	"github.com/twmb/murmur3"
)

// Fingerprint is a 64-bit murmur3 hash of everything that determines the decision
// function: kernel type and parameters, bias, support vectors, labels and
// multipliers. Two models with the same fingerprint predict identically; a saved
// and reloaded model keeps its fingerprint.
func (m *Model) Fingerprint() uint64 {
	hash := murmur3.New64()
	buf := make([]byte, 8)

	writeUint := func(v uint64) {
		binary.LittleEndian.PutUint64(buf, v)
		_, _ = hash.Write(buf)
	}
	writeFloat := func(v float64) {
		writeUint(math.Float64bits(v))
	}

	params := m.kernel.Params()
	_, _ = hash.Write([]byte(m.kernel.Type().Name()))
	writeUint(uint64(params.Degree))
	writeFloat(params.Gamma)
	writeFloat(params.Coef0)

	writeFloat(m.bias)
	writeUint(uint64(m.numFeatures))
	writeUint(uint64(len(m.alphas)))
	for i, sv := range m.supportVectors {
		writeFloat(m.alphas[i])
		writeFloat(m.supportLabels[i])
		for _, v := range sv {
			writeFloat(v)
		}
	}

	return hash.Sum64()
}
