package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	gradeModelFile   = "grade_predictor.json"
	dropoutModelFile = "dropout_classifier.json"
	metaFile         = "model_meta.json"
)

// Meta is the metadata sidecar persisted next to the two model artifacts.
// TrainedAt doubles as the model version for prediction-cache keying, so
// the Predictor can validate its cache without deserializing the models.
type Meta struct {
	TrainedAt                 time.Time          `json:"trained_at"`
	Samples                   int                `json:"samples"`
	GradeModelMAE             float64            `json:"grade_model_mae"`
	DropoutModelAccuracy      float64            `json:"dropout_model_accuracy"`
	GradeFeatureImportances   map[string]float64 `json:"grade_feature_importances"`
	DropoutFeatureImportances map[string]float64 `json:"dropout_feature_importances"`
}

// ModelStore persists trained model pairs under a per-school directory.
// Writes are atomic from a reader's point of view: every artifact is
// written to a temp file and renamed into place, with the metadata sidecar
// renamed last so a visible metadata file always refers to fully written
// models.
type ModelStore struct {
	dir string
}

func NewModelStore(dir string) *ModelStore {
	return &ModelStore{dir: dir}
}

func (ms *ModelStore) schoolDir(school string) string {
	return filepath.Join(ms.dir, school)
}

// Save atomically replaces both models and the metadata sidecar. On any
// failure the previously persisted pair stays intact.
func (ms *ModelStore) Save(school string, grade, dropout *Forest, meta Meta) error {
	dir := ms.schoolDir(school)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	if err := writeJSONAtomic(filepath.Join(dir, gradeModelFile), grade); err != nil {
		return fmt.Errorf("write grade model: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(dir, dropoutModelFile), dropout); err != nil {
		return fmt.Errorf("write dropout model: %w", err)
	}
	// Meta goes last: readers key on its presence and trained_at value.
	if err := writeJSONAtomic(filepath.Join(dir, metaFile), meta); err != nil {
		return fmt.Errorf("write model metadata: %w", err)
	}
	return nil
}

// Load reads both persisted models. Absence of either artifact means the
// school has never been trained.
func (ms *ModelStore) Load(school string) (grade, dropout *Forest, err error) {
	dir := ms.schoolDir(school)

	grade = &Forest{}
	if err := readJSON(filepath.Join(dir, gradeModelFile), grade); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &ModelNotTrainedError{School: school}
		}
		return nil, nil, fmt.Errorf("load grade model: %w", err)
	}

	dropout = &Forest{}
	if err := readJSON(filepath.Join(dir, dropoutModelFile), dropout); err != nil {
		if os.IsNotExist(err) {
			return nil, nil, &ModelNotTrainedError{School: school}
		}
		return nil, nil, fmt.Errorf("load dropout model: %w", err)
	}

	return grade, dropout, nil
}

// ReadMeta reads the metadata sidecar without touching the model
// artifacts. A missing sidecar returns (nil, nil): untrained, not an
// error.
func (ms *ModelStore) ReadMeta(school string) (*Meta, error) {
	meta := &Meta{}
	if err := readJSON(filepath.Join(ms.schoolDir(school), metaFile), meta); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	return meta, nil
}

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
