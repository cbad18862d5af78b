package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limhan.info/svm-go/svm"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	param, err := cfg.ToParameter()
	require.NoError(t, err)
	assert.Equal(t, svm.DefaultParameter(), param)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
kernel: RBF
c: 4
gamma: 0.5
max_steps: 200
seed: 3
folds: 5
format: csv
scale: true
`))
	require.NoError(t, err)
	assert.Equal(t, "rbf", cfg.Kernel)
	assert.Equal(t, 4.0, cfg.C)
	assert.Equal(t, svm.DefaultTol, cfg.Tol)
	assert.Equal(t, uint(200), cfg.MaxSteps)
	assert.Equal(t, uint64(3), cfg.Seed)
	assert.Equal(t, 5, cfg.Folds)
	assert.Equal(t, "csv", cfg.Format)
	assert.True(t, cfg.Scale)

	param, err := cfg.ToParameter()
	require.NoError(t, err)
	assert.Equal(t, svm.RBF, param.KernelType)
	assert.Equal(t, 0.5, param.Gamma)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("SVM_C", "16")
	t.Setenv("SVM_KERNEL", "poly")
	t.Setenv("SVM_GAMMA", "0.25")

	cfg, err := Parse([]byte("kernel: linear\nc: 2\n"))
	require.NoError(t, err)
	assert.Equal(t, 16.0, cfg.C)
	assert.Equal(t, "poly", cfg.Kernel)

	param, err := cfg.ToParameter()
	require.NoError(t, err)
	assert.Equal(t, svm.POLYNOMIAL, param.KernelType)
}

func TestParseInvalid(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown key":        "kernal: rbf\n",
		"unknown kernel":     "kernel: laplacian\n",
		"negative C":         "c: -1\n",
		"zero tol":           "tol: 0\n",
		"one fold":           "folds: 1\n",
		"format":             "format: arff\n",
		"rbf without gamma":  "kernel: rbf\n",
		"poly without gamma": "kernel: poly\ncoef0: 1\n",
		"sigmoid zero gamma": "kernel: sigmoid\ngamma: 0\n",
		"not yaml":           "kernel: [\n",
	} {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalid, name)
	}

	t.Setenv("SVM_C", "abc")
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidateGamma(t *testing.T) {
	cfg := Default()
	cfg.Kernel = "sigmoid"
	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "Gamma")

	cfg.Gamma = 0.5
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Gamma = 0
	assert.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernel: sigmoid\ngamma: 0.1\ncoef0: -1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sigmoid", cfg.Kernel)
	assert.Equal(t, -1.0, cfg.Coef0)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
}
