package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome and result label values
const (
	OutcomeSuccess = "success"

	ResultSuccess   = "success"
	ResultExhausted = "exhausted"
	ResultCached    = "cached"
	ResultEmpty     = "empty"
)

// Recorder holds the run's Prometheus counters.
// A nil *Recorder is valid and records nothing.
//
// Metrics:
//   - zettelgen_extraction_attempts_total{provider,outcome} - one per backend attempt
//   - zettelgen_extractions_total{provider,result} - one per chapter extraction
//   - zettelgen_notes_written_total - note files created
//   - zettelgen_notes_skipped_total - note files left untouched because they existed
type Recorder struct {
	registry     *prometheus.Registry
	attempts     *prometheus.CounterVec
	extractions  *prometheus.CounterVec
	notesWritten prometheus.Counter
	notesSkipped prometheus.Counter
}

// New creates a Recorder backed by its own registry
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zettelgen_extraction_attempts_total",
				Help: "Total number of extraction attempts by outcome",
			},
			[]string{"provider", "outcome"}, // "success" or a failure category
		),
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "zettelgen_extractions_total",
				Help: "Total number of chapter extractions by result",
			},
			[]string{"provider", "result"},
		),
		notesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zettelgen_notes_written_total",
			Help: "Total number of note files written",
		}),
		notesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zettelgen_notes_skipped_total",
			Help: "Total number of note files skipped because they already existed",
		}),
	}

	r.registry.MustRegister(r.attempts, r.extractions, r.notesWritten, r.notesSkipped)
	return r
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObserveAttempt counts one backend attempt
func (r *Recorder) ObserveAttempt(provider, outcome string) {
	if r == nil {
		return
	}
	r.attempts.WithLabelValues(provider, outcome).Inc()
}

// ObserveExtraction counts one finished chapter extraction
func (r *Recorder) ObserveExtraction(provider, result string) {
	if r == nil {
		return
	}
	r.extractions.WithLabelValues(provider, result).Inc()
}

// AddNotes counts written and skipped note files
func (r *Recorder) AddNotes(written, skipped int) {
	if r == nil {
		return
	}
	r.notesWritten.Add(float64(written))
	r.notesSkipped.Add(float64(skipped))
}

// WriteTextfile writes all metrics in the Prometheus text format to path
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
