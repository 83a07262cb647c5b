package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counters(t *testing.T) {
	r := New()

	r.ObserveAttempt("openai", "malformed_response")
	r.ObserveAttempt("openai", OutcomeSuccess)
	r.ObserveAttempt("openai", OutcomeSuccess)
	r.ObserveExtraction("openai", ResultSuccess)
	r.AddNotes(3, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.attempts.WithLabelValues("openai", "malformed_response")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.attempts.WithLabelValues("openai", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.extractions.WithLabelValues("openai", ResultSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.notesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.notesSkipped))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var r *Recorder

	assert.NotPanics(t, func() {
		r.ObserveAttempt("google", "backend")
		r.ObserveExtraction("google", ResultExhausted)
		r.AddNotes(1, 0)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "unused.prom")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveAttempt("anthropic", "backend")

	path := filepath.Join(t.TempDir(), "zettelgen.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `zettelgen_extraction_attempts_total{outcome="backend",provider="anthropic"} 1`)
	assert.Contains(t, string(data), "# TYPE zettelgen_notes_written_total counter")
}
