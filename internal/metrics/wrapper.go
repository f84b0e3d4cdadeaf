package metrics

// Wrapper adapts Metrics to the observer interface consumed by the ml
// package, avoiding a circular import between ml and metrics.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) TrainingsInc()                      { w.m.TrainingsTotal.Inc() }
func (w *Wrapper) TrainingFailuresInc()               { w.m.TrainingFailuresTotal.Inc() }
func (w *Wrapper) TrainingDurationObserve(s float64)  { w.m.TrainingDuration.Observe(s) }
func (w *Wrapper) PredictionsInc()                    { w.m.PredictionsTotal.Inc() }
func (w *Wrapper) PredictionFailuresInc()             { w.m.PredictionFailuresTotal.Inc() }
func (w *Wrapper) PredictionLatencyObserve(s float64) { w.m.PredictionLatency.Observe(s) }
func (w *Wrapper) CacheHitsInc()                      { w.m.CacheHits.Inc() }
func (w *Wrapper) CacheMissesInc()                    { w.m.CacheMisses.Inc() }
func (w *Wrapper) ModelAgeSet(s float64)              { w.m.ModelAge.Set(s) }
func (w *Wrapper) HighRiskStudentsSet(n float64)      { w.m.HighRiskStudents.Set(n) }
func (w *Wrapper) FeatureBuildDurationObserve(s float64) {
	w.m.FeatureBuildDuration.Observe(s)
}
