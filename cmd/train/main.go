package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"limhan.info/svm-go/config"
	svmlogger "limhan.info/svm-go/logger"
	"limhan.info/svm-go/metrics"
	"limhan.info/svm-go/svm"
)

var logger = svmlogger.NewLogger("train")

var errUsage = errors.New("invalid command line")

type options struct {
	training    *svm.Training
	metricsFile string
	quiet       bool
}

func parseTrainingFromArgs(args []string) (*options, error) {
	var findC bool
	var cSpecified bool
	var crossValidation bool
	var scale bool
	var inputFilename string
	var modelFilename string
	var format string
	var nrFold int

	opts := &options{}

	// the configuration file and SVM_ variables are the base the other flags override
	var cfg *config.Config
	var err error
	for _, arg := range args {
		if flag, val := splitArg(arg); flag == "-config" {
			if cfg, err = config.Load(val); err != nil {
				return nil, err
			}
		}
	}
	if cfg == nil {
		if cfg, err = config.Parse(nil); err != nil {
			return nil, err
		}
	}
	if cfg.Folds > 0 {
		crossValidation = true
		nrFold = cfg.Folds
	}
	format = cfg.Format
	scale = cfg.Scale
	param, err := cfg.ToParameter()
	if err != nil {
		return nil, err
	}

	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("unexpected argument %q: %w", arg, errUsage)
		}

		flag, val := splitArg(arg)
		switch flag {
		case "-t":
			kernelType := svm.GetKernelTypeByName(val)
			if id, err := strconv.Atoi(val); err == nil {
				kernelType = svm.GetKernelTypeById(id)
			}
			if kernelType == nil {
				return nil, fmt.Errorf("unknown kernel type %q: %w", val, errUsage)
			}
			param.KernelType = kernelType
		case "-c":
			if param.C, err = parseFloat(flag, val); err != nil {
				return nil, err
			}
			cSpecified = true
		case "-e":
			if param.Tol, err = parseFloat(flag, val); err != nil {
				return nil, err
			}
		case "-g":
			if param.Gamma, err = parseFloat(flag, val); err != nil {
				return nil, err
			}
		case "-r":
			if param.Coef0, err = parseFloat(flag, val); err != nil {
				return nil, err
			}
		case "-d":
			if param.Degree, err = strconv.Atoi(val); err != nil {
				return nil, fmt.Errorf("degree %q: %w", val, errUsage)
			}
		case "-m":
			maxSteps, err := strconv.ParseUint(val, 10, 0)
			if err != nil {
				return nil, fmt.Errorf("max passes %q: %w", val, errUsage)
			}
			param.MaxSteps = uint(maxSteps)
		case "-S":
			if param.Seed, err = strconv.ParseUint(val, 10, 64); err != nil {
				return nil, fmt.Errorf("seed %q: %w", val, errUsage)
			}
		case "-v":
			crossValidation = true
			nrFold, _ = strconv.Atoi(val)
			if nrFold < 2 {
				return nil, fmt.Errorf("n-fold cross validation: n must be >= 2: %w", errUsage)
			}
		case "-C":
			findC = true
		case "-scale":
			scale = true
		case "-format":
			format = val
		case "-if":
			inputFilename = val
		case "-of":
			modelFilename = val
		case "-metrics":
			opts.metricsFile = val
		case "-config":
		case "-q":
			opts.quiet = true
		default:
			return nil, fmt.Errorf("unknown option %s: %w", flag, errUsage)
		}
	}

	if inputFilename == "" {
		return nil, fmt.Errorf("missing input file: %w", errUsage)
	}
	if findC && !crossValidation {
		nrFold = 5
	}
	if err := param.Validate(); err != nil {
		return nil, err
	}

	opts.training = svm.NewTraining(findC, cSpecified, crossValidation, scale, inputFilename, modelFilename, format, nrFold, param)
	return opts, nil
}

func splitArg(arg string) (string, string) {
	tokens := strings.SplitN(arg, "=", 2)
	if len(tokens) > 1 {
		return tokens[0], tokens[1]
	}
	return tokens[0], ""
}

func parseFloat(flag string, val string) (float64, error) {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number: %w", flag, val, errUsage)
	}
	return v, nil
}

func run(args []string) error {
	opts, err := parseTrainingFromArgs(args)
	if err != nil {
		return err
	}
	if opts.quiet {
		logger = zerolog.Nop()
		svm.SetLogger(zerolog.Nop())
	}

	training := opts.training
	if err := training.ReadProblem(); err != nil {
		return err
	}

	m := metrics.NewMetrics()
	kernelType := training.Param.KernelType

	switch {
	case training.FindC:
		result, err := training.DoFindParameterC()
		if err != nil {
			return err
		}
		m.ObserveAccuracyForKernel(kernelType, "parameter_search", result.BestRate())
	case training.CrossValidation:
		accuracy, err := training.DoCrossValidation()
		if err != nil {
			return err
		}
		m.ObserveAccuracyForKernel(kernelType, "cross_validation", accuracy)
	default:
		if training.ModelFilename == "" {
			training.ModelFilename = training.InputFilename + ".model"
		}
		model, err := training.DoTrain()
		if err != nil {
			return err
		}
		m.ObserveModel(model)
	}

	if opts.metricsFile != "" {
		if err := m.WriteTextfile(opts.metricsFile); err != nil {
			return err
		}
		logger.Debug().Str("file", opts.metricsFile).Msg("metrics written")
	}
	return nil
}

func usage() string {
	return "Usage: train [options] -if=training_set_file [-of=model_file]\n" +
		"options:\n" +
		"-t=type : set type of kernel function (default 0)\n" +
		"    0 or linear -- u'*v\n" +
		"    1 or polynomial -- (gamma*u'*v + coef0)^degree\n" +
		"    2 or rbf -- exp(-gamma*|u-v|^2)\n" +
		"    3 or sigmoid -- tanh(gamma*u'*v + coef0)\n" +
		"-d=degree : set degree in kernel function (default 3)\n" +
		"-g=gamma : set gamma in kernel function, required by types 1-3\n" +
		"-r=coef0 : set coef0 in kernel function (default 0)\n" +
		"-c=cost : set the parameter C (default 1)\n" +
		"-e=epsilon : set tolerance of termination criterion (default 0.001)\n" +
		"-m=passes : set the maximal number of passes over the data (default 1000)\n" +
		"-S=seed : set the seed of the working set selection (default 16)\n" +
		"-v=n : n-fold cross validation mode\n" +
		"-C : find parameter C by cross validation (5 folds unless -v is given)\n" +
		"-scale : rescale every feature to [0, 1], ranges are saved to model_file.range\n" +
		"-format=libsvm|csv : format of the training set (default libsvm)\n" +
		"-config=file : read the options above from a YAML file\n" +
		"-metrics=file : write Prometheus metrics of the run to file\n" +
		"-of : Model filename (default training_set_file.model)\n" +
		"-if : Input filename\n" +
		"-q : quiet mode (no outputs)\n"
}

func main() {
	svmlogger.SetupLogging()

	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, config.ErrInvalid) || errors.Is(err, svm.ErrInvalidConfiguration) {
			fmt.Fprint(os.Stderr, usage())
		}
		logger.Fatal().Err(err).Msg("training failed")
	}
}
