package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	svmlogger "limhan.info/svm-go/logger"
	"limhan.info/svm-go/metrics"
	"limhan.info/svm-go/svm"
)

var logger = svmlogger.NewLogger("predict")

var errUsage = errors.New("invalid command line")

type options struct {
	inputFilename  string
	modelFilename  string
	outputFilename string
	rangeFilename  string
	metricsFile    string
	format         string
	quiet          bool
}

// DoPredict reads a labelled dataset from reader and writes one predicted label
// per line to writer. The rows are rescaled with scaling when it is not nil.
// It returns the accuracy against the labels of the dataset.
func DoPredict(reader io.Reader, writer io.Writer, model *svm.Model, format string, scaling *svm.Scaling) (float64, error) {
	prob, err := svm.ReadProblem(reader, format)
	if err != nil {
		return 0, err
	}
	if prob.L == 0 {
		return 0, nil
	}

	// trailing zero features are not written in the sparse format
	if format == "" || strings.EqualFold(format, svm.FormatLibSVM) {
		prob.Resize(model.NumFeatures())
	}
	if scaling != nil {
		if err := scaling.Apply(prob.X); err != nil {
			return 0, err
		}
	}
	svm.NormalizeLabels(prob.Y)

	predicted, err := model.Predict(prob.X)
	if err != nil {
		return 0, err
	}

	bw := bufio.NewWriter(writer)
	for _, label := range predicted {
		fmt.Fprintf(bw, "%g\n", label)
	}
	if err := bw.Flush(); err != nil {
		return 0, err
	}

	accuracy := svm.Accuracy(predicted, prob.Y)
	correct := int(accuracy*float64(prob.L) + 0.5)
	logger.Info().
		Float64("accuracy", 100.0*accuracy).
		Int("correct", correct).
		Int("total", prob.L).
		Msg("prediction finished")
	return accuracy, nil
}

func parseArgs(args []string) (*options, error) {
	opts := &options{format: svm.FormatLibSVM}

	for _, arg := range args {
		flagVal := strings.SplitN(arg, "=", 2)
		var val string
		if len(flagVal) > 1 {
			val = flagVal[1]
		}

		switch flagVal[0] {
		case "-mf":
			opts.modelFilename = val
		case "-if":
			opts.inputFilename = val
		case "-of":
			opts.outputFilename = val
		case "-r":
			opts.rangeFilename = val
		case "-format":
			opts.format = val
		case "-metrics":
			opts.metricsFile = val
		case "-q":
			opts.quiet = true
		default:
			return nil, fmt.Errorf("unknown option %s: %w", flagVal[0], errUsage)
		}
	}

	if opts.inputFilename == "" || opts.modelFilename == "" {
		return nil, fmt.Errorf("input and model files are required: %w", errUsage)
	}
	return opts, nil
}

func loadModel(filename string) (*svm.Model, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open modelfile %s: %w", filename, err)
	}
	defer f.Close()
	return svm.LoadModel(f)
}

func loadScaling(filename string) (*svm.Scaling, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open range file %s: %w", filename, err)
	}
	defer f.Close()
	return svm.LoadScaling(f)
}

func run(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		return err
	}
	if opts.quiet {
		logger = zerolog.Nop()
		svm.SetLogger(zerolog.Nop())
	}

	model, err := loadModel(opts.modelFilename)
	if err != nil {
		return err
	}

	var scaling *svm.Scaling
	if opts.rangeFilename != "" {
		if scaling, err = loadScaling(opts.rangeFilename); err != nil {
			return err
		}
	}

	inputFile, err := os.Open(opts.inputFilename)
	if err != nil {
		return fmt.Errorf("unable to open inputfile %s: %w", opts.inputFilename, err)
	}
	defer inputFile.Close()

	var writer io.Writer = os.Stdout
	if opts.outputFilename != "" {
		outputFile, err := os.Create(opts.outputFilename)
		if err != nil {
			return fmt.Errorf("unable to create outputfile %s: %w", opts.outputFilename, err)
		}
		defer outputFile.Close()
		writer = outputFile
	}

	accuracy, err := DoPredict(inputFile, writer, model, opts.format, scaling)
	if err != nil {
		return err
	}

	if opts.metricsFile != "" {
		m := metrics.NewMetrics()
		m.ObserveAccuracy(model, "predict", accuracy)
		return m.WriteTextfile(opts.metricsFile)
	}
	return nil
}

func usage() string {
	return "Usage: predict [options] -if=test_file -mf=model_file [-of=output_file]\n" +
		"options:\n" +
		"-if test_file\n" +
		"-of output_file (default standard output)\n" +
		"-mf model_file\n" +
		"-r range_file written by train -scale\n" +
		"-format libsvm or csv (default libsvm)\n" +
		"-metrics file: write the accuracy as a Prometheus metric to file\n" +
		"-q quiet mode (no outputs)\n"
}

func main() {
	svmlogger.SetupLogging()

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage())
		}
		logger.Fatal().Err(err).Msg("prediction failed")
	}
}
