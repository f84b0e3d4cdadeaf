package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/MrFaiman/student-personalizer/internal/cfg"
	"github.com/MrFaiman/student-personalizer/internal/metrics"
	"github.com/MrFaiman/student-personalizer/internal/ml"
	"github.com/MrFaiman/student-personalizer/internal/school"
	"github.com/MrFaiman/student-personalizer/internal/storage"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: personalizer [flags] <command>

commands:
  train                train both models on the in-scope population
  predict <tz>         predict grade and dropout risk for one student
  predict-all          predict for all students, highest risk first
  status               show model status and quality metrics

flags:
`)
	flag.PrintDefaults()
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Optional .env for local development.
	_ = godotenv.Load()

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	schoolFlag := flag.String("school", c.School, "school scope to operate on")
	period := flag.String("period", "", "optional exact-match period filter")
	page := flag.Int("page", 1, "page number for predict-all")
	pageSize := flag.Int("page-size", c.DefaultPageSize, "page size for predict-all")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	m := metrics.New()
	if c.MetricsAddr != "" {
		go serveMetrics(c.MetricsAddr)
	}

	source, cleanup, err := openSource(c)
	if err != nil {
		log.Fatal().Err(err).Msg("data source initialization failed")
	}
	defer cleanup()

	svc := ml.NewService(source, ml.NewModelStore(c.ModelsDir), c, metrics.NewWrapper(m))

	switch cmd := flag.Arg(0); cmd {
	case "train":
		runTrain(svc, *schoolFlag, *period)
	case "predict":
		if flag.NArg() < 2 {
			log.Fatal().Msg("predict requires a student TZ argument")
		}
		runPredict(svc, *schoolFlag, flag.Arg(1), *period)
	case "predict-all":
		runPredictAll(svc, *schoolFlag, *period, *page, *pageSize)
	case "status":
		runStatus(svc, *schoolFlag)
	default:
		log.Error().Str("command", cmd).Msg("unknown command")
		usage()
		os.Exit(2)
	}
}

// openSource prefers a remote SIS API when configured, otherwise the
// local record store.
func openSource(c cfg.Settings) (school.Source, func(), error) {
	if c.SISBaseURL != "" {
		log.Info().Str("base_url", c.SISBaseURL).Msg("using remote SIS data source")
		return school.NewClient(c.SISBaseURL, c.SISAPIKey, c.RESTTimeout), func() {}, nil
	}

	store, err := storage.New(c.DataPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("data_path", c.DataPath).Msg("using local record store")
	return store, func() { store.Close() }, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("metrics server failed")
	}
}

func runTrain(svc *ml.Service, scope, period string) {
	result, err := svc.Train(scope, period)
	if err != nil {
		log.Fatal().Err(err).Msg("training failed")
	}
	log.Info().
		Int("samples", result.Samples).
		Float64("grade_mae", result.GradeModelMAE).
		Float64("dropout_accuracy", result.DropoutModelAccuracy).
		Msg("models trained")
	printJSON(result)
}

func runPredict(svc *ml.Service, scope, studentTZ, period string) {
	result, err := svc.PredictStudent(scope, studentTZ, period)
	if err != nil {
		log.Fatal().Err(err).Msg("prediction failed")
	}
	printJSON(result)
}

func runPredictAll(svc *ml.Service, scope, period string, page, pageSize int) {
	result, err := svc.PredictAll(scope, period, page, pageSize)
	if err != nil {
		log.Fatal().Err(err).Msg("batch prediction failed")
	}
	log.Info().
		Int("total", result.TotalStudents).
		Int("high_risk", result.HighRiskCount).
		Int("medium_risk", result.MediumRiskCount).
		Msg("population scored")
	printJSON(result)
}

func runStatus(svc *ml.Service, scope string) {
	status, err := svc.GetStatus(scope)
	if err != nil {
		log.Fatal().Err(err).Msg("status read failed")
	}
	printJSON(status)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("encode output failed")
	}
}
