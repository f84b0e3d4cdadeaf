package ml

import "fmt"

// InsufficientDataError reports a training population below the minimum.
// It is a client-class failure: the caller fixes it by ingesting more
// data, not by retrying.
type InsufficientDataError struct {
	Got      int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("not enough data to train: only %d students with grades found, need at least %d", e.Got, e.Required)
}

// ModelNotTrainedError signals a missing precondition, distinct from a
// lookup miss: no model artifacts exist yet for the school.
type ModelNotTrainedError struct {
	School string
}

func (e *ModelNotTrainedError) Error() string {
	return fmt.Sprintf("models not trained yet for school %q: run training first", e.School)
}

// StudentNotFoundError is a genuine lookup miss: the student has no grade
// data in the requested scope and period.
type StudentNotFoundError struct {
	StudentTZ string
}

func (e *StudentNotFoundError) Error() string {
	return fmt.Sprintf("student %q not found or has no grade data", e.StudentTZ)
}
