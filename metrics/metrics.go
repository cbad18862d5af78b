// Package metrics exposes the outcome of training runs as Prometheus metrics.
// The command line tools write them to a node_exporter textfile.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"limhan.info/svm-go/svm"
)

const namespace = "svm"

// Metrics owns a private registry and the collectors describing training runs
type Metrics struct {
	registry *prometheus.Registry

	Fits              *prometheus.CounterVec
	Passes            *prometheus.GaugeVec
	Steps             *prometheus.GaugeVec
	DegenerateSteps   *prometheus.GaugeVec
	KernelEvaluations *prometheus.GaugeVec
	SupportVectors    *prometheus.GaugeVec
	Bias              *prometheus.GaugeVec
	FitDuration       *prometheus.HistogramVec
	Accuracy          *prometheus.GaugeVec
}

// NewMetrics registers every collector on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.Fits = m.NewCounterVec(prometheus.CounterOpts{
		Name: "fits_total",
		Help: "Number of finished fits by kernel and final state",
	}, []string{"kernel", "state"})

	m.Passes = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "training_passes",
		Help: "Outer passes made by the last fit",
	}, []string{"kernel"})

	m.Steps = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "training_steps",
		Help: "Successful pairwise steps made by the last fit",
	}, []string{"kernel"})

	m.DegenerateSteps = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "training_degenerate_steps",
		Help: "Pairwise steps with non-positive curvature in the last fit",
	}, []string{"kernel"})

	m.KernelEvaluations = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "training_kernel_evaluations",
		Help: "Kernel evaluations made by the last fit",
	}, []string{"kernel"})

	m.SupportVectors = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "support_vectors",
		Help: "Support vectors of the last fit, all or at the upper bound C",
	}, []string{"kernel", "kind"})

	m.Bias = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bias",
		Help: "Threshold b of the last fit",
	}, []string{"kernel"})

	m.FitDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fit_duration_seconds",
		Help:    "Wall time of a fit",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"kernel"})

	m.Accuracy = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "accuracy_ratio",
		Help: "Accuracy measured by cross validation or prediction",
	}, []string{"kernel", "source"})

	return m
}

// NewCounterVec creates and registers a counter
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	opts.Namespace = namespace
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec creates and registers a gauge
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	opts.Namespace = namespace
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec creates and registers a histogram
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	opts.Namespace = namespace
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry is the gatherer holding every collector
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveModel records the statistics of the last fit of model
func (m *Metrics) ObserveModel(model *svm.Model) {
	kernel := kernelLabel(model)
	stats := model.Stats()

	m.Fits.WithLabelValues(kernel, stats.State.String()).Inc()
	m.Passes.WithLabelValues(kernel).Set(float64(stats.Passes))
	m.Steps.WithLabelValues(kernel).Set(float64(stats.Steps))
	m.DegenerateSteps.WithLabelValues(kernel).Set(float64(stats.DegenerateSteps))
	m.KernelEvaluations.WithLabelValues(kernel).Set(float64(stats.KernelEvaluations))
	m.SupportVectors.WithLabelValues(kernel, "all").Set(float64(stats.NumSupportVectors))
	m.SupportVectors.WithLabelValues(kernel, "bound").Set(float64(stats.NumBoundSupportVectors))
	m.Bias.WithLabelValues(kernel).Set(model.Bias())
	m.FitDuration.WithLabelValues(kernel).Observe(stats.Duration.Seconds())
}

// ObserveAccuracy records an accuracy in [0, 1] measured on model's kernel;
// source is e.g. "cross_validation" or "predict".
func (m *Metrics) ObserveAccuracy(model *svm.Model, source string, accuracy float64) {
	m.Accuracy.WithLabelValues(kernelLabel(model), source).Set(accuracy)
}

// ObserveAccuracyForKernel is ObserveAccuracy when no model was kept, as in
// cross validation.
func (m *Metrics) ObserveAccuracyForKernel(kernelType *svm.KernelType, source string, accuracy float64) {
	m.Accuracy.WithLabelValues(kernelType.Name(), source).Set(accuracy)
}

// WriteTextfile writes every metric in the text exposition format, atomically,
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}

func kernelLabel(model *svm.Model) string {
	return model.Kernel().Type().Name()
}
