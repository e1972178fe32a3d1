package observability

import "time"

// CallRecord is the record emitted after every chat or streaming call,
// successful or not. External session tracking consumes these; this core
// keeps no per-session state of its own.
type CallRecord struct {
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	Duration     time.Duration `json:"duration"`
	Success      bool          `json:"success"`
	InputTokens  int           `json:"input_tokens"`
	OutputTokens int           `json:"output_tokens"`
	TotalTokens  int           `json:"total_tokens"`
}

// Recorder consumes call records. Implementations must be safe for
// concurrent use and must not block; they run on the calling goroutine.
type Recorder interface {
	Record(rec CallRecord)
}

// NopRecorder discards all records.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(CallRecord) {}

// MetricsRecorder maps call records onto the Prometheus collectors.
type MetricsRecorder struct{}

// Record implements Recorder.
func (MetricsRecorder) Record(rec CallRecord) {
	status := "ok"
	if !rec.Success {
		status = "error"
	}
	ProviderRequestsTotal.WithLabelValues(rec.Provider, rec.Model, status).Inc()
	ProviderLatency.WithLabelValues(rec.Provider, rec.Model).Observe(rec.Duration.Seconds())
	if rec.InputTokens > 0 {
		ProviderTokensTotal.WithLabelValues(rec.Provider, rec.Model, "input").Add(float64(rec.InputTokens))
	}
	if rec.OutputTokens > 0 {
		ProviderTokensTotal.WithLabelValues(rec.Provider, rec.Model, "output").Add(float64(rec.OutputTokens))
	}
}

// Combine fans records out to several recorders in order.
func Combine(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

type multiRecorder []Recorder

func (m multiRecorder) Record(rec CallRecord) {
	for _, r := range m {
		r.Record(rec)
	}
}
