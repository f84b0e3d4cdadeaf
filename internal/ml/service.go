// Package ml implements the analytics core: feature-matrix assembly,
// weak-label construction, forest training with cross-validation, and
// risk-scored prediction with version-keyed caching.
package ml

import (
	"math"
	"time"

	"github.com/MrFaiman/student-personalizer/internal/cfg"
	"github.com/MrFaiman/student-personalizer/internal/features"
	"github.com/MrFaiman/student-personalizer/internal/school"
)

// Observer defines the metrics methods the service reports through.
type Observer interface {
	TrainingsInc()
	TrainingFailuresInc()
	TrainingDurationObserve(float64)
	PredictionsInc()
	PredictionFailuresInc()
	PredictionLatencyObserve(float64)
	CacheHitsInc()
	CacheMissesInc()
	ModelAgeSet(float64)
	HighRiskStudentsSet(float64)
	FeatureBuildDurationObserve(float64)
}

// Service trains and serves the grade regressor and dropout classifier
// for one or more schools. It is synchronous and CPU-bound; callers own
// any request-level timeout.
type Service struct {
	source    school.Source
	store     *ModelStore
	settings  cfg.Settings
	cache     *predictionCache
	metrics   Observer
	extractor features.Extractor
}

func NewService(source school.Source, store *ModelStore, settings cfg.Settings, metrics Observer) *Service {
	return &Service{
		source:   source,
		store:    store,
		settings: settings,
		cache:    newPredictionCache(),
		metrics:  metrics,
		extractor: features.Extractor{
			AtRiskThreshold: settings.AtRiskGradeThreshold,
		},
	}
}

// TrainingMetrics is returned by Train and mirrors the persisted metadata.
type TrainingMetrics struct {
	Status                    string             `json:"status"`
	Samples                   int                `json:"samples"`
	GradeModelMAE             float64            `json:"grade_model_mae"`
	DropoutModelAccuracy      float64            `json:"dropout_model_accuracy"`
	GradeFeatureImportances   map[string]float64 `json:"grade_feature_importances"`
	DropoutFeatureImportances map[string]float64 `json:"dropout_feature_importances"`
	TrainedAt                 time.Time          `json:"trained_at"`
}

// Prediction is one student's risk assessment.
type Prediction struct {
	StudentTZ      string             `json:"student_tz"`
	StudentName    string             `json:"student_name"`
	PredictedGrade float64            `json:"predicted_grade"`
	DropoutRisk    float64            `json:"dropout_risk"`
	RiskLevel      string             `json:"risk_level"`
	Features       map[string]float64 `json:"features"`
}

// BatchPrediction is one page of the whole-population assessment.
type BatchPrediction struct {
	Predictions     []Prediction `json:"predictions"`
	ModelTrained    bool         `json:"model_trained"`
	TotalStudents   int          `json:"total_students"`
	Page            int          `json:"page"`
	PageSize        int          `json:"page_size"`
	HighRiskCount   int          `json:"high_risk_count"`
	MediumRiskCount int          `json:"medium_risk_count"`
}

// Status reports whether models exist for a school and their quality.
type Status struct {
	Trained              bool       `json:"trained"`
	TrainedAt            *time.Time `json:"trained_at,omitempty"`
	Samples              int        `json:"samples,omitempty"`
	GradeModelMAE        float64    `json:"grade_model_mae,omitempty"`
	DropoutModelAccuracy float64    `json:"dropout_model_accuracy,omitempty"`
}

// buildVectors assembles the feature matrix for a scope/period. Only
// students with at least one in-scope grade appear.
func (s *Service) buildVectors(scope, period string) ([]features.Vector, error) {
	start := time.Now()

	students, err := s.source.FetchStudents(scope)
	if err != nil {
		return nil, err
	}
	grades, err := s.source.FetchGrades(scope, period)
	if err != nil {
		return nil, err
	}
	attendance, err := s.source.FetchAttendance(scope, period)
	if err != nil {
		return nil, err
	}

	vectors := s.extractor.Build(students, grades, attendance)
	if s.metrics != nil {
		s.metrics.FeatureBuildDurationObserve(time.Since(start).Seconds())
	}
	return vectors, nil
}

// Train fits both models on the current population, cross-validates them,
// and atomically replaces the persisted model pair and metadata. On any
// failure the previous models stay untouched.
func (s *Service) Train(scope, period string) (*TrainingMetrics, error) {
	start := time.Now()

	vectors, err := s.buildVectors(scope, period)
	if err != nil {
		s.failTraining()
		return nil, err
	}
	if len(vectors) < s.settings.MinTrainingSamples {
		s.failTraining()
		return nil, &InsufficientDataError{Got: len(vectors), Required: s.settings.MinTrainingSamples}
	}

	x := features.Matrix(vectors)
	yGrade := make([]float64, len(vectors))
	for i, v := range vectors {
		yGrade[i] = v.AverageGrade
	}
	yDropout := DropoutLabels(vectors, s.settings.AtRiskGradeThreshold)

	gradeModel := FitRegressor(x, yGrade, s.settings.GradeForest)
	gradeMAE := round2(crossValMAE(x, yGrade, s.settings.GradeForest, s.settings.CrossValidationFolds))

	dropoutModel := FitClassifier(x, yDropout, s.settings.DropoutForest)
	dropoutAccuracy := round4(crossValAccuracy(x, yDropout, s.settings.DropoutForest, s.settings.CrossValidationFolds))

	meta := Meta{
		TrainedAt:                 time.Now().UTC(),
		Samples:                   len(vectors),
		GradeModelMAE:             gradeMAE,
		DropoutModelAccuracy:      dropoutAccuracy,
		GradeFeatureImportances:   importanceMap(gradeModel),
		DropoutFeatureImportances: importanceMap(dropoutModel),
	}

	if err := s.store.Save(scope, gradeModel, dropoutModel, meta); err != nil {
		s.failTraining()
		return nil, err
	}

	// The new trained_at already changes every cache key; dropping the
	// school's entries just reclaims the memory immediately.
	s.cache.invalidate(scope)

	if s.metrics != nil {
		s.metrics.TrainingsInc()
		s.metrics.TrainingDurationObserve(time.Since(start).Seconds())
		s.metrics.ModelAgeSet(0)
	}

	return &TrainingMetrics{
		Status:                    "trained",
		Samples:                   meta.Samples,
		GradeModelMAE:             meta.GradeModelMAE,
		DropoutModelAccuracy:      meta.DropoutModelAccuracy,
		GradeFeatureImportances:   meta.GradeFeatureImportances,
		DropoutFeatureImportances: meta.DropoutFeatureImportances,
		TrainedAt:                 meta.TrainedAt,
	}, nil
}

func (s *Service) failTraining() {
	if s.metrics != nil {
		s.metrics.TrainingFailuresInc()
	}
}

// PredictStudent scores one student with both models.
func (s *Service) PredictStudent(scope, studentTZ, period string) (*Prediction, error) {
	start := time.Now()

	gradeModel, dropoutModel, err := s.store.Load(scope)
	if err != nil {
		s.failPrediction()
		return nil, err
	}

	vectors, err := s.buildVectors(scope, period)
	if err != nil {
		s.failPrediction()
		return nil, err
	}

	for _, v := range vectors {
		if v.StudentTZ != studentTZ {
			continue
		}
		pred := s.score(gradeModel, dropoutModel, v)
		if s.metrics != nil {
			s.metrics.PredictionsInc()
			s.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
			s.observeModelAge(scope)
		}
		return &pred, nil
	}

	s.failPrediction()
	return nil, &StudentNotFoundError{StudentTZ: studentTZ}
}

// PredictAll scores the whole in-scope population, sorted by dropout risk
// descending, and returns one page. Results are cached per (scope,
// period, model version).
func (s *Service) PredictAll(scope, period string, page, pageSize int) (*BatchPrediction, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.settings.DefaultPageSize
	}
	if pageSize > s.settings.MaxPageSize {
		pageSize = s.settings.MaxPageSize
	}

	all, err := s.computeAll(scope, period)
	if err != nil {
		return nil, err
	}

	high, medium := 0, 0
	for _, p := range all {
		switch p.RiskLevel {
		case "high":
			high++
		case "medium":
			medium++
		}
	}
	if s.metrics != nil {
		s.metrics.HighRiskStudentsSet(float64(high))
	}

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}

	return &BatchPrediction{
		Predictions:     clonePredictions(all[start:end]),
		ModelTrained:    true,
		TotalStudents:   len(all),
		Page:            page,
		PageSize:        pageSize,
		HighRiskCount:   high,
		MediumRiskCount: medium,
	}, nil
}

// computeAll returns the full sorted prediction list, serving from cache
// when the model version has not changed since the last computation.
func (s *Service) computeAll(scope, period string) ([]Prediction, error) {
	meta, err := s.store.ReadMeta(scope)
	if err != nil {
		return nil, err
	}

	key := cacheKey{school: scope, period: period}
	if meta != nil {
		key.trainedAt = meta.TrainedAt.Format(time.RFC3339Nano)
	}
	if cached, ok := s.cache.get(key); ok {
		if s.metrics != nil {
			s.metrics.CacheHitsInc()
		}
		return cached, nil
	}
	if s.metrics != nil {
		s.metrics.CacheMissesInc()
	}

	start := time.Now()
	gradeModel, dropoutModel, err := s.store.Load(scope)
	if err != nil {
		s.failPrediction()
		return nil, err
	}

	vectors, err := s.buildVectors(scope, period)
	if err != nil {
		s.failPrediction()
		return nil, err
	}

	all := make([]Prediction, len(vectors))
	for i, v := range vectors {
		all[i] = s.score(gradeModel, dropoutModel, v)
	}
	sortByRiskDesc(all)

	s.cache.put(key, all)
	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.PredictionLatencyObserve(time.Since(start).Seconds())
		s.observeModelAge(scope)
	}
	return all, nil
}

// GetStatus reports model presence and persisted quality metrics.
func (s *Service) GetStatus(scope string) (*Status, error) {
	meta, err := s.store.ReadMeta(scope)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return &Status{Trained: false}, nil
	}
	trainedAt := meta.TrainedAt
	return &Status{
		Trained:              true,
		TrainedAt:            &trainedAt,
		Samples:              meta.Samples,
		GradeModelMAE:        meta.GradeModelMAE,
		DropoutModelAccuracy: meta.DropoutModelAccuracy,
	}, nil
}

func (s *Service) score(gradeModel, dropoutModel *Forest, v features.Vector) Prediction {
	values := v.Values()
	risk := round4(dropoutModel.PositiveProb(values))
	return Prediction{
		StudentTZ:      v.StudentTZ,
		StudentName:    v.StudentName,
		PredictedGrade: round2(gradeModel.Predict(values)),
		DropoutRisk:    risk,
		RiskLevel:      s.riskLevel(risk),
		Features:       v.Map(),
	}
}

// riskLevel buckets a dropout probability. The high bound is exclusive
// and the medium bound inclusive: exactly 0.7 is medium, exactly 0.3 is
// medium.
func (s *Service) riskLevel(risk float64) string {
	switch {
	case risk > s.settings.HighRiskThreshold:
		return "high"
	case risk >= s.settings.MediumRiskThreshold:
		return "medium"
	default:
		return "low"
	}
}

func (s *Service) failPrediction() {
	if s.metrics != nil {
		s.metrics.PredictionFailuresInc()
	}
}

func (s *Service) observeModelAge(scope string) {
	meta, err := s.store.ReadMeta(scope)
	if err != nil || meta == nil {
		return
	}
	s.metrics.ModelAgeSet(time.Since(meta.TrainedAt).Seconds())
}

// sortByRiskDesc is a stable insertion sort: populations are small and
// ties keep their relative student order.
func sortByRiskDesc(preds []Prediction) {
	for i := 1; i < len(preds); i++ {
		for j := i; j > 0 && preds[j].DropoutRisk > preds[j-1].DropoutRisk; j-- {
			preds[j], preds[j-1] = preds[j-1], preds[j]
		}
	}
}

// clonePredictions deep-copies a page before it leaves the service. The
// cache owns its entries; a caller mutating a returned page (or its
// Features maps) must not corrupt later hits.
func clonePredictions(preds []Prediction) []Prediction {
	out := make([]Prediction, len(preds))
	for i, p := range preds {
		snapshot := make(map[string]float64, len(p.Features))
		for k, v := range p.Features {
			snapshot[k] = v
		}
		p.Features = snapshot
		out[i] = p
	}
	return out
}

func importanceMap(f *Forest) map[string]float64 {
	m := make(map[string]float64, len(features.Columns))
	for i, name := range features.Columns {
		m[name] = round4(f.Importances[i])
	}
	return m
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
