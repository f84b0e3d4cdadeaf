package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ForestParams fixes the ensemble hyperparameters. Production defaults
// match the tuned values baked into the original models; tests shrink the
// ensembles for speed without touching production behavior.
type ForestParams struct {
	Trees           int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures caps the features considered per split: 0 uses all,
	// -1 uses sqrt(total).
	MaxFeatures int
	Seed        int64
}

// forestOverride carries optional per-field YAML overrides. Pointer
// fields keep an explicit zero (maxDepth: 0 for unlimited, maxFeatures: 0
// for all) distinguishable from an unset field.
type forestOverride struct {
	Trees           *int   `yaml:"trees"`
	MaxDepth        *int   `yaml:"maxDepth"`
	MinSamplesSplit *int   `yaml:"minSamplesSplit"`
	MinSamplesLeaf  *int   `yaml:"minSamplesLeaf"`
	MaxFeatures     *int   `yaml:"maxFeatures"`
	Seed            *int64 `yaml:"seed"`
}

// apply overlays the set fields onto the defaults.
func (o forestOverride) apply(def ForestParams) ForestParams {
	if o.Trees != nil {
		def.Trees = *o.Trees
	}
	if o.MaxDepth != nil {
		def.MaxDepth = *o.MaxDepth
	}
	if o.MinSamplesSplit != nil {
		def.MinSamplesSplit = *o.MinSamplesSplit
	}
	if o.MinSamplesLeaf != nil {
		def.MinSamplesLeaf = *o.MinSamplesLeaf
	}
	if o.MaxFeatures != nil {
		def.MaxFeatures = *o.MaxFeatures
	}
	if o.Seed != nil {
		def.Seed = *o.Seed
	}
	return def
}

type Settings struct {
	School               string
	DataPath             string
	ModelsDir            string
	SISBaseURL           string
	SISAPIKey            string
	RESTTimeout          time.Duration
	MetricsAddr          string
	AtRiskGradeThreshold float64
	MinTrainingSamples   int
	HighRiskThreshold    float64
	MediumRiskThreshold  float64
	CrossValidationFolds int
	DefaultPageSize      int
	MaxPageSize          int
	GradeForest          ForestParams
	DropoutForest        ForestParams
}

type ConfigFile struct {
	School string `yaml:"school"`

	SIS struct {
		BaseURL string `yaml:"baseURL"`
		APIKey  string `yaml:"apiKey"`
		Timeout string `yaml:"timeout"`
	} `yaml:"sis"`

	Thresholds struct {
		AtRiskGrade float64 `yaml:"atRiskGrade"`
		HighRisk    float64 `yaml:"highRisk"`
		MediumRisk  float64 `yaml:"mediumRisk"`
	} `yaml:"thresholds"`

	Training struct {
		MinSamples    int            `yaml:"minSamples"`
		CVFolds       int            `yaml:"cvFolds"`
		GradeForest   forestOverride `yaml:"gradeForest"`
		DropoutForest forestOverride `yaml:"dropoutForest"`
	} `yaml:"training"`

	Pagination struct {
		DefaultPageSize int `yaml:"defaultPageSize"`
		MaxPageSize     int `yaml:"maxPageSize"`
	} `yaml:"pagination"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		ModelsDir   string `yaml:"modelsDir"`
		MetricsAddr string `yaml:"metricsAddr"`
	} `yaml:"system"`
}

// DefaultGradeForest mirrors the tuned regressor: a large bagged ensemble
// with unrestricted depth, every feature considered at each split.
func DefaultGradeForest() ForestParams {
	return ForestParams{
		Trees:           300,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Seed:            42,
	}
}

// DefaultDropoutForest mirrors the tuned classifier: shallow trees with
// sqrt feature subsampling to keep variance down on small cohorts.
func DefaultDropoutForest() ForestParams {
	return ForestParams{
		Trees:           100,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  2,
		MaxFeatures:     -1,
		Seed:            42,
	}
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	restTimeout, err := time.ParseDuration(config.SIS.Timeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	settings := Settings{
		School:               getEnvOrDefault("SCHOOL", defaultString(config.School, "default")),
		DataPath:             getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ModelsDir:            getEnvOrDefault("MODELS_DIR", defaultString(config.System.ModelsDir, "models")),
		SISBaseURL:           getEnvOrDefault("SIS_BASE_URL", config.SIS.BaseURL),
		SISAPIKey:            getEnvOrDefault("SIS_API_KEY", config.SIS.APIKey),
		RESTTimeout:          restTimeout,
		MetricsAddr:          getEnvOrDefault("METRICS_ADDR", config.System.MetricsAddr),
		AtRiskGradeThreshold: getFloatFromEnvOrConfig("AT_RISK_GRADE_THRESHOLD", config.Thresholds.AtRiskGrade, 55),
		MinTrainingSamples:   getIntFromEnvOrConfig("MIN_TRAINING_SAMPLES", config.Training.MinSamples, 5),
		HighRiskThreshold:    getFloatFromEnvOrConfig("HIGH_RISK_THRESHOLD", config.Thresholds.HighRisk, 0.7),
		MediumRiskThreshold:  getFloatFromEnvOrConfig("MEDIUM_RISK_THRESHOLD", config.Thresholds.MediumRisk, 0.3),
		CrossValidationFolds: getIntFromEnvOrConfig("CROSS_VALIDATION_FOLDS", config.Training.CVFolds, 5),
		DefaultPageSize:      getIntFromEnvOrConfig("DEFAULT_PAGE_SIZE", config.Pagination.DefaultPageSize, 10),
		MaxPageSize:          getIntFromEnvOrConfig("MAX_PAGE_SIZE", config.Pagination.MaxPageSize, 100),
		GradeForest:          config.Training.GradeForest.apply(DefaultGradeForest()),
		DropoutForest:        config.Training.DropoutForest.apply(DefaultDropoutForest()),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		School:               getEnvOrDefault("SCHOOL", "default"),
		DataPath:             os.Getenv("DATA_PATH"), // optional when an SIS URL is set
		ModelsDir:            getEnvOrDefault("MODELS_DIR", "models"),
		SISBaseURL:           os.Getenv("SIS_BASE_URL"),
		SISAPIKey:            os.Getenv("SIS_API_KEY"),
		RESTTimeout:          getDurationOrDefault("REST_TIMEOUT", 5*time.Second),
		MetricsAddr:          os.Getenv("METRICS_ADDR"),
		AtRiskGradeThreshold: getFloatOrDefault("AT_RISK_GRADE_THRESHOLD", 55),
		MinTrainingSamples:   getIntOrDefault("MIN_TRAINING_SAMPLES", 5),
		HighRiskThreshold:    getFloatOrDefault("HIGH_RISK_THRESHOLD", 0.7),
		MediumRiskThreshold:  getFloatOrDefault("MEDIUM_RISK_THRESHOLD", 0.3),
		CrossValidationFolds: getIntOrDefault("CROSS_VALIDATION_FOLDS", 5),
		DefaultPageSize:      getIntOrDefault("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:          getIntOrDefault("MAX_PAGE_SIZE", 100),
		GradeForest:          DefaultGradeForest(),
		DropoutForest:        DefaultDropoutForest(),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.School == "" {
		return fmt.Errorf("school scope cannot be empty")
	}
	if settings.DataPath == "" && settings.SISBaseURL == "" {
		return fmt.Errorf("either DATA_PATH or SIS_BASE_URL must be configured")
	}
	if settings.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}

	if settings.AtRiskGradeThreshold <= 0 || settings.AtRiskGradeThreshold > 100 {
		return fmt.Errorf("at-risk grade threshold must be between 0 and 100, got %v", settings.AtRiskGradeThreshold)
	}
	if settings.MinTrainingSamples < 2 {
		return fmt.Errorf("minimum training samples must be at least 2, got %d", settings.MinTrainingSamples)
	}
	if settings.HighRiskThreshold <= 0 || settings.HighRiskThreshold >= 1 {
		return fmt.Errorf("high risk threshold must be between 0 and 1, got %v", settings.HighRiskThreshold)
	}
	if settings.MediumRiskThreshold <= 0 || settings.MediumRiskThreshold >= settings.HighRiskThreshold {
		return fmt.Errorf("medium risk threshold must be between 0 and the high risk threshold, got %v", settings.MediumRiskThreshold)
	}
	if settings.CrossValidationFolds < 2 {
		return fmt.Errorf("cross-validation folds must be at least 2, got %d", settings.CrossValidationFolds)
	}
	if settings.DefaultPageSize <= 0 || settings.DefaultPageSize > settings.MaxPageSize {
		return fmt.Errorf("default page size must be between 1 and the max page size, got %d", settings.DefaultPageSize)
	}
	if settings.RESTTimeout < time.Second || settings.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", settings.RESTTimeout)
	}

	for _, fp := range []struct {
		name   string
		params ForestParams
	}{{"grade forest", settings.GradeForest}, {"dropout forest", settings.DropoutForest}} {
		if fp.params.Trees <= 0 || fp.params.Trees > 10000 {
			return fmt.Errorf("%s: trees must be between 1 and 10000, got %d", fp.name, fp.params.Trees)
		}
		if fp.params.MaxDepth < 0 {
			return fmt.Errorf("%s: max depth cannot be negative, got %d", fp.name, fp.params.MaxDepth)
		}
		if fp.params.MinSamplesSplit < 2 {
			return fmt.Errorf("%s: min samples split must be at least 2, got %d", fp.name, fp.params.MinSamplesSplit)
		}
		if fp.params.MinSamplesLeaf < 1 {
			return fmt.Errorf("%s: min samples leaf must be at least 1, got %d", fp.name, fp.params.MinSamplesLeaf)
		}
		if fp.params.MaxFeatures < -1 {
			return fmt.Errorf("%s: max features must be -1 (sqrt), 0 (all), or positive, got %d", fp.name, fp.params.MaxFeatures)
		}
	}

	return nil
}
